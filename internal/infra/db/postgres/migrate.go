package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) error {
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct{ log *zerolog.Logger }

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Str("component", "migrate").Msgf(format, v...)
}
