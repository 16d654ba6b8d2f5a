package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
	"github.com/hedgehog-panel/hedgehog/internal/repository"
)

// serverRepository implements repository.ServerRepository for SQLite.
type serverRepository struct {
	db *DB
}

// NewServerRepository creates a new SQLite server repository.
func NewServerRepository(db *DB) repository.ServerRepository {
	return &serverRepository{db: db}
}

// Create inserts the server and its ownership link atomically.
func (r *serverRepository) Create(ctx context.Context, server *domain.Server, ownerID *uuid.UUID) error {
	var ownerUsername *string

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO servers (uuid, name, description, created_at) VALUES (?, ?, ?, ?)`,
			server.ID.String(),
			server.Name,
			server.Description,
			formatTime(server.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert server: %w", err)
		}

		if ownerID == nil {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO server_owners (server_uuid, user_uuid, assigned_at) VALUES (?, ?, ?)`,
			server.ID.String(),
			ownerID.String(),
			formatTime(server.CreatedAt),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrOwnerNotFound
			}
			return fmt.Errorf("failed to insert server owner: %w", err)
		}

		var username string
		err = tx.QueryRowContext(ctx, `SELECT username FROM users WHERE uuid = ?`, ownerID.String()).Scan(&username)
		if err != nil {
			if isNoRows(err) {
				return domain.ErrOwnerNotFound
			}
			return fmt.Errorf("failed to read server owner: %w", err)
		}
		ownerUsername = &username
		return nil
	})
	if err != nil {
		return err
	}

	server.OwnerUsername = ownerUsername
	return nil
}

// List returns servers ordered by ID with their earliest user owner.
// Group-only ownership links are ignored.
func (r *serverRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Server], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM servers`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count servers: %w", err)
	}

	query := `
		SELECT s.uuid, s.name, s.description, s.created_at,
		       (SELECT u.username
		          FROM server_owners so
		          JOIN users u ON u.uuid = so.user_uuid
		         WHERE so.server_uuid = s.uuid AND so.user_uuid IS NOT NULL
		         ORDER BY so.assigned_at ASC
		         LIMIT 1)
		FROM servers s
		ORDER BY s.uuid
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers, err := scanServers(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Server]{
		Items:  servers,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// ListByOwner returns the servers linked to the given user.
func (r *serverRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*domain.Server, error) {
	query := `
		SELECT DISTINCT s.uuid, s.name, s.description, s.created_at, u.username
		FROM servers s
		JOIN server_owners so ON so.server_uuid = s.uuid
		JOIN users u ON u.uuid = so.user_uuid
		WHERE so.user_uuid = ?
		ORDER BY s.uuid
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list servers by owner: %w", err)
	}
	defer rows.Close()

	return scanServers(rows)
}

// Delete deletes a server by ID.
func (r *serverRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE uuid = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("failed to delete server: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

func scanServers(rows *sql.Rows) ([]*domain.Server, error) {
	servers := make([]*domain.Server, 0)
	for rows.Next() {
		var (
			server             domain.Server
			id, createdAt      string
			description, owner sql.NullString
		)
		if err := rows.Scan(&id, &server.Name, &description, &createdAt, &owner); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid server id %q: %w", id, err)
		}
		server.ID = parsed
		server.Description = scanNullString(description)
		server.CreatedAt = parseTime(createdAt)
		server.OwnerUsername = scanNullString(owner)

		servers = append(servers, &server)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating servers: %w", err)
	}
	return servers, nil
}

// Ensure serverRepository implements repository.ServerRepository.
var _ repository.ServerRepository = (*serverRepository)(nil)
