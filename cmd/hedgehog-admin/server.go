package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/hedgehog-panel/hedgehog/internal/service"
)

func runServer(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: hedgehog-admin server <create|list|delete> [flags]")
	}

	ctx := context.Background()
	sub, args := args[0], args[1:]

	switch sub {
	case "create":
		fs, configPath := newFlagSet("server create", out)
		name := fs.String("name", "", "server name")
		description := fs.String("description", "", "optional description")
		owner := fs.String("owner", "", "username of the owner")
		if err := fs.Parse(args); err != nil {
			return err
		}

		input := service.CreateServerInput{Name: *name, OwnerUsername: *owner}
		if strings.TrimSpace(*description) != "" {
			input.Description = description
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		created, err := e.services.Servers.Create(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created server %s (%s)\n", created.Server.Name, created.Server.ID)
		return nil

	case "list":
		fs, configPath := newFlagSet("server list", out)
		limit := fs.Int("limit", 0, "maximum number of servers")
		offset := fs.Int("offset", 0, "number of servers to skip")
		if err := fs.Parse(args); err != nil {
			return err
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.services.Servers.List(ctx, service.ListServersInput{Limit: *limit, Offset: *offset})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tOWNER\tCREATED")
		for _, s := range result.Servers {
			owner := "-"
			if s.OwnerUsername != nil {
				owner = *s.OwnerUsername
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, owner, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d of %d servers\n", len(result.Servers), result.TotalCount)
		return nil

	case "delete":
		fs, configPath := newFlagSet("server delete", out)
		rawID := fs.String("id", "", "server id")
		if err := fs.Parse(args); err != nil {
			return err
		}

		id, err := uuid.Parse(strings.TrimSpace(*rawID))
		if err != nil {
			return fmt.Errorf("invalid server id %q", *rawID)
		}

		e, err := openEnv(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.Close()

		deleted, err := e.services.Servers.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("server %s not found", id)
		}
		fmt.Fprintf(out, "Deleted server %s\n", id)
		return nil

	default:
		return fmt.Errorf("unknown server command %q", sub)
	}
}
