// Command warden-migrate applies the embedded schema to the configured
// postgres database. The schema is idempotent so re-running is safe.
package main

import (
	"context"
	_ "embed"
	"time"

	"warden/internal/platform/config"
	"warden/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

func main() {
	root := config.New()
	pgCfg := root.Prefix("PG_")
	l := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, pgCfg.MustString("DBURL"))
	if err != nil {
		l.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer func() { _ = conn.Close(context.Background()) }()

	// no bind parameters, so pgx sends the whole file over the simple
	// protocol and multi-statement DDL just works
	if _, err := conn.Exec(ctx, schema); err != nil {
		l.Fatal().Err(err).Msg("schema apply failed")
	}
	l.Info().Msg("schema applied")
}
