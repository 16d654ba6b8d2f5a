package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/hedgehog-panel/hedgehog/internal/pkg/crypto"
	"github.com/hedgehog-panel/hedgehog/internal/service"
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

func runUser(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: hedgehog-admin user <create|list|delete|passwd> [flags]")
	}

	ctx := context.Background()
	sub, args := args[0], args[1:]

	switch sub {
	case "create":
		fs, configPath := newFlagSet("user create", out)
		username := fs.String("username", "", "login name")
		email := fs.String("email", "", "email address")
		firstName := fs.String("first-name", "", "first name")
		middleName := fs.String("middle-name", "", "middle name")
		lastName := fs.String("last-name", "", "last name")
		generate := fs.Bool("generate-password", false, "generate a random password and print it")
		if err := fs.Parse(args); err != nil {
			return err
		}

		password, err := choosePassword(*generate, out)
		if err != nil {
			return err
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		created, err := e.services.Accounts.Create(ctx, service.CreateUserInput{
			Username:   *username,
			Email:      *email,
			Password:   password,
			FirstName:  *firstName,
			MiddleName: *middleName,
			LastName:   *lastName,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Created user %s (%s)\n", created.User.Username, created.User.ID)
		if *generate {
			fmt.Fprintf(out, "Password: %s\n", password)
		}
		return nil

	case "list":
		fs, configPath := newFlagSet("user list", out)
		limit := fs.Int("limit", 0, "maximum number of users")
		offset := fs.Int("offset", 0, "number of users to skip")
		if err := fs.Parse(args); err != nil {
			return err
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.services.Accounts.List(ctx, service.ListUsersInput{Limit: *limit, Offset: *offset})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tNAME\tADMIN\tCREATED")
		for _, u := range result.Users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
				u.ID, u.Username, u.Email, u.DisplayName(), u.IsAdmin(), u.CreatedAt.Format("2006-01-02 15:04"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d of %d users\n", len(result.Users), result.TotalCount)
		return nil

	case "delete":
		fs, configPath := newFlagSet("user delete", out)
		username := fs.String("username", "", "login name")
		if err := fs.Parse(args); err != nil {
			return err
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		deleted, err := e.services.Accounts.Delete(ctx, *username)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("user %q not found", *username)
		}
		fmt.Fprintf(out, "Deleted user %s\n", *username)
		return nil

	case "passwd":
		fs, configPath := newFlagSet("user passwd", out)
		username := fs.String("username", "", "login name")
		generate := fs.Bool("generate-password", false, "generate a random password and print it")
		if err := fs.Parse(args); err != nil {
			return err
		}

		password, err := choosePassword(*generate, out)
		if err != nil {
			return err
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		if _, err := e.services.Accounts.Update(ctx, service.UpdateUserInput{
			Username:    *username,
			NewPassword: &password,
		}); err != nil {
			return err
		}

		fmt.Fprintf(out, "Password updated for %s\n", *username)
		if *generate {
			fmt.Fprintf(out, "Password: %s\n", password)
		}
		return nil

	default:
		return fmt.Errorf("unknown user command %q", sub)
	}
}

// choosePassword generates a password or prompts for one twice without echo.
func choosePassword(generate bool, out io.Writer) (string, error) {
	if generate {
		return crypto.GeneratePassword(crypto.MinPasswordLength + 4)
	}

	fmt.Fprint(out, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if strings.TrimSpace(string(first)) == "" {
		return "", errors.New("password must not be empty")
	}
	return string(first), nil
}
