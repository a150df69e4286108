// Command warden-investigate runs the investigation daemon: it sweeps
// tiled time windows over scored events per profile, flags malicious
// anomalies, and ships them to the configured sinks.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"warden/internal/adapters/ops"
	"warden/internal/adapters/ship"
	"warden/internal/modkit"
	"warden/internal/platform/config"
	"warden/internal/platform/logger"
	"warden/internal/platform/store"

	invdom "warden/internal/services/investigate/domain"
	invmod "warden/internal/services/investigate/module"
	profdom "warden/internal/services/profiles/domain"
	profmod "warden/internal/services/profiles/module"

	_ "warden/internal/services/profiles/builtin"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("PG_")
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "warden-investigate",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Guard(ctx); err != nil {
		l.Fatal().Err(err).Msg("store not ready")
	}

	deps := modkit.Deps{Log: *l, Cfg: root, PG: st.PG}

	// the investigator shares the pipeline's profile declarations; syncing
	// here keeps both daemons startable in any order
	declared, err := profdom.Resolve(root.MayCSV("PROFILES", []string{"greeting"}))
	if err != nil {
		l.Fatal().Err(err).Msg("profile resolution failed")
	}
	synced, err := profmod.New(deps).Ports().Sync.SyncAll(ctx, declared)
	if err != nil {
		l.Fatal().Err(err).Msg("profile sync failed")
	}
	profileIDs := make([]int64, len(synced))
	for i, s := range synced {
		profileIDs[i] = s.ProfileID
	}

	shippers := make([]invdom.Shipper, 0, 2)
	for _, name := range root.MayCSV("SHIPPERS", []string{"log"}) {
		sh, err := ship.New(name, root.Prefix("SHIP_"))
		if err != nil {
			l.Fatal().Err(err).Str("shipper", name).Msg("shipper setup failed")
		}
		shippers = append(shippers, sh)
	}

	im, err := invmod.New(deps, profileIDs, shippers)
	if err != nil {
		l.Fatal().Err(err).Msg("investigate module failed")
	}
	investigator := im.Ports().Investigator

	opsSrv := ops.New(root, map[string]ops.StatsFunc{
		"investigate": func() any { return investigator.Stats() },
	})
	go func() {
		if err := opsSrv.Run(ctx); err != nil {
			l.Error().Err(err).Msg("ops server failed")
		}
	}()

	if err := investigator.Run(ctx); err != nil {
		l.Error().Err(err).Msg("investigator stopped with error")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutCtx); err != nil {
		l.Error().Err(err).Msg("ops shutdown failed")
	}

	stats := investigator.Stats()
	l.Info().
		Int64("windows", stats.Windows).
		Int64("collected", stats.Collected).
		Int64("malicious", stats.Malicious).
		Int64("errors", stats.Errors).
		Msg("investigator stopped")
}
