package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"privatize-quote/internal/storage/migrations"
)

func newMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	const operation = "storage.RunMigrations"

	provider, err := newMigrationProvider(db)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		logger.Info("Migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("took", r.Duration))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("%s: read schema version: %w", operation, err)
	}
	logger.Info("Database schema up to date",
		zap.Int64("version", version),
		zap.Int("applied", len(results)))
	return nil
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	const operation = "storage.RollbackMigration"

	provider, err := newMigrationProvider(db)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	r, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	logger.Info("Migration rolled back",
		zap.Int64("version", r.Source.Version),
		zap.String("file", r.Source.Path))
	return nil
}

// MigrationStatus logs one line per known migration.
func MigrationStatus(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	const operation = "storage.MigrationStatus"

	provider, err := newMigrationProvider(db)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	for _, st := range statuses {
		fields := []zap.Field{
			zap.Int64("version", st.Source.Version),
			zap.String("file", st.Source.Path),
			zap.String("state", string(st.State)),
		}
		if !st.AppliedAt.IsZero() {
			fields = append(fields, zap.Time("applied_at", st.AppliedAt))
		}
		logger.Info("Migration", fields...)
	}
	return nil
}
