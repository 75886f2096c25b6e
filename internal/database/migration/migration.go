package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_signals",
		SQL: `CREATE TABLE IF NOT EXISTS signals (
  id          UUID             PRIMARY KEY,
  pair        TEXT             NOT NULL,
  action      TEXT             NOT NULL CHECK (action IN ('buy', 'sell')),
  close_price DOUBLE PRECISION NOT NULL,
  rsi         DOUBLE PRECISION NOT NULL,
  metadata    JSONB            NOT NULL,
  created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_signals_pair_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signals_pair_created_at ON signals (pair, created_at DESC);`,
	},
	{
		Name: "create_index_signals_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals (created_at);`,
	},
}

// EnsureMigrated checks if the 'signals' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "database", "db_host", dbHost)
	start := time.Now()

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public.signals') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
