package requests_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/fastorc/requestshub/pkg/requests"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id          SERIAL PRIMARY KEY,
	title       VARCHAR(200) NOT NULL,
	description TEXT,
	type        VARCHAR(50) NOT NULL,
	priority    VARCHAR(20) NOT NULL,
	status      VARCHAR(20) NOT NULL DEFAULT 'open',
	assignee_id INTEGER,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func setupTestDB(t *testing.T) (*requests.PostgresRepository, *sql.DB, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("requests_hub_test"),
			postgres.WithUsername("requestshub"),
			postgres.WithPassword("requestshub"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS requests")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, schema)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	repo, err := requests.NewPostgresRepository(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, repo.Close())
		require.NoError(t, db.Close())
		cancel()
	})

	return repo, db, ctx
}

func TestPostgresRepository_Get(t *testing.T) {
	repo, db, ctx := setupTestDB(t)

	var id string
	err := db.QueryRowContext(ctx,
		`INSERT INTO requests (title, type, priority, status, assignee_id) VALUES ($1, $2, $3, $4, $5) RETURNING id::text`,
		"VPN down", "incident", "high", "in_progress", 7,
	).Scan(&id)
	require.NoError(t, err)

	req, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, "VPN down", req.Title)
	assert.Equal(t, "", req.Description)
	assert.Equal(t, requests.StatusInProgress, req.Status)
	require.NotNil(t, req.AssigneeID)
	assert.Equal(t, int64(7), *req.AssigneeID)
	assert.True(t, req.Status.IsOpen())
}

func TestPostgresRepository_NotFound(t *testing.T) {
	repo, _, ctx := setupTestDB(t)

	_, err := repo.Get(ctx, "9999")
	assert.True(t, requests.IsRequestNotFound(err))

	_, err = repo.Get(ctx, "not-a-number")
	assert.True(t, requests.IsRequestNotFound(err))

	err = repo.RaisePriority(ctx, "9999", requests.PriorityUrgent)
	assert.True(t, requests.IsRequestNotFound(err))
}

func TestPostgresRepository_RaisePriority(t *testing.T) {
	repo, db, ctx := setupTestDB(t)

	var id string
	err := db.QueryRowContext(ctx,
		`INSERT INTO requests (title, type, priority) VALUES ($1, $2, $3) RETURNING id::text`,
		"Laptop request", "hardware", "low",
	).Scan(&id)
	require.NoError(t, err)

	require.NoError(t, repo.RaisePriority(ctx, id, requests.PriorityUrgent))
	require.NoError(t, repo.RaisePriority(ctx, id, requests.PriorityUrgent))

	req, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, requests.PriorityUrgent, req.Priority)
	assert.Equal(t, requests.StatusOpen, req.Status)

	require.NoError(t, repo.HealthCheck(ctx))
}
