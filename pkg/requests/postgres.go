package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

var _ Repository = (*PostgresRepository)(nil)

// pq error code for a value that cannot be cast to the column type, e.g. a
// non-numeric id against the integer primary key.
const invalidTextRepresentation = "22P02"

// PostgresRepository reads the requests table owned by the API service.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository opens and pings databaseURL.
func NewPostgresRepository(ctx context.Context, logger *slog.Logger, databaseURL string) (*PostgresRepository, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: database, logger: logger}, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Request, error) {
	query := `
		SELECT id::text, title, COALESCE(description, ''), type, priority, status, assignee_id
		FROM requests
		WHERE id = $1`

	var (
		req        Request
		status     string
		assigneeID sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID, &req.Title, &req.Description, &req.Type, &req.Priority, &status, &assigneeID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, newRequestError("Get", id, ErrRequestNotFound)
		}

		return nil, newRequestError("Get", id, err)
	}

	req.Status = Status(status)
	if assigneeID.Valid {
		req.AssigneeID = &assigneeID.Int64
	}

	return &req, nil
}

func (r *PostgresRepository) RaisePriority(ctx context.Context, id, priority string) error {
	query := `UPDATE requests SET priority = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, priority)
	if err != nil {
		if isInvalidText(err) {
			return newRequestError("RaisePriority", id, ErrRequestNotFound)
		}

		return newRequestError("RaisePriority", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return newRequestError("RaisePriority", id, err)
	}

	if rows == 0 {
		return newRequestError("RaisePriority", id, ErrRequestNotFound)
	}

	r.logger.DebugContext(ctx, "Raised request priority", "requestId", id, "priority", priority)

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	err := r.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		err := r.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func isInvalidText(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}
