package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	WorkspaceIDKey contextKey = "workspace_id"
	DBConnKey      contextKey = "db_conn"
	DBTxKey        contextKey = "db_tx"
)

var workspaceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// WorkspaceMiddleware resolves the calling workspace, acquires a connection
// scoped to its schema (workspace_<id>) and stores both on the request context.
func WorkspaceMiddleware(pool *pgxpool.Pool, defaultWorkspace string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			workspaceID := extractWorkspaceID(c, defaultWorkspace)

			if !workspaceIDPattern.MatchString(workspaceID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid workspace identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			// Every table lives in the workspace schema; public stays on the
			// path only for extensions (gen_random_uuid).
			schema := fmt.Sprintf("workspace_%s", workspaceID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "workspace resolution failed")
			}

			ctx = context.WithValue(ctx, WorkspaceIDKey, workspaceID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("workspace_id", workspaceID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractWorkspaceID(c echo.Context, defaultWorkspace string) string {
	// 1. JWT claim (set by auth middleware)
	if wid, ok := c.Get("jwt_workspace_id").(string); ok && wid != "" {
		return wid
	}

	// 2. X-Workspace-ID header
	if wid := c.Request().Header.Get("X-Workspace-ID"); wid != "" {
		return wid
	}

	// 3. Query parameter
	if wid := c.QueryParam("workspace_id"); wid != "" {
		return wid
	}

	return defaultWorkspace
}

// ConnFromContext retrieves the workspace-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext retrieves an in-flight transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx stores a transaction on the context so repositories pick it up
// instead of the pool or workspace connection.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// WorkspaceFromContext retrieves the workspace ID from context.
func WorkspaceFromContext(ctx context.Context) string {
	wid, _ := ctx.Value(WorkspaceIDKey).(string)
	return wid
}

// WithWorkspace stores a workspace ID on the context. Used by non-HTTP
// entry points (CLI commands, batch workers) that bypass the middleware.
func WithWorkspace(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, WorkspaceIDKey, workspaceID)
}

// CreateWorkspaceSchema creates the schema for a new workspace and runs all
// migrations against it. If migrationsDir is empty, migrations are skipped.
func CreateWorkspaceSchema(ctx context.Context, pool *pgxpool.Pool, workspaceID string, migrationsDir string) error {
	if !workspaceIDPattern.MatchString(workspaceID) {
		return fmt.Errorf("invalid workspace identifier: %s", workspaceID)
	}

	schema := fmt.Sprintf("workspace_%s", workspaceID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
