// Command warden-pipeline runs the ingestion daemon: transports feed the
// batching pipeline, which scores messages against the synced profiles.
// The process exits when every transport has finished or on SIGINT/SIGTERM.
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"warden/internal/adapters/ops"
	"warden/internal/adapters/transport"
	"warden/internal/modkit"
	"warden/internal/platform/config"
	"warden/internal/platform/logger"
	"warden/internal/platform/store"

	featmod "warden/internal/services/features/module"
	pipemod "warden/internal/services/pipeline/module"
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
		AppName: "warden-pipeline",
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

	// sync declared profiles so every field has a storage id before the
	// first batch arrives
	declared, err := profdom.Resolve(root.MayCSV("PROFILES", []string{"greeting"}))
	if err != nil {
		l.Fatal().Err(err).Msg("profile resolution failed")
	}
	synced, err := profmod.New(deps).Ports().Sync.SyncAll(ctx, declared)
	if err != nil {
		l.Fatal().Err(err).Msg("profile sync failed")
	}

	recorder := featmod.New(deps).Ports().Recorder
	pm, err := pipemod.New(deps, recorder, synced)
	if err != nil {
		l.Fatal().Err(err).Msg("pipeline module failed")
	}
	svc := pm.Service()

	transports := make([]transport.Transport, 0, 2)
	for _, name := range root.MayCSV("TRANSPORTS", []string{"heartbeat"}) {
		tr, err := transport.New(name, root.Prefix("TRANSPORT_"))
		if err != nil {
			l.Fatal().Err(err).Str("transport", name).Msg("transport setup failed")
		}
		transports = append(transports, tr)
	}

	opsSrv := ops.New(root, map[string]ops.StatsFunc{
		"pipeline": func() any { return svc.Stats() },
	})
	go func() {
		if err := opsSrv.Run(ctx); err != nil {
			l.Error().Err(err).Msg("ops server failed")
		}
	}()

	runDone := make(chan error, 1)
	go func() { runDone <- svc.Run(ctx) }()

	var wg sync.WaitGroup
	for _, tr := range transports {
		wg.Add(1)
		go func(tr transport.Transport) {
			defer wg.Done()
			if err := tr.Run(ctx, svc.SubmitterFor(tr.Name())); err != nil {
				l.Error().Err(err).Str("transport", tr.Name()).Msg("transport failed")
				return
			}
			l.Info().Str("transport", tr.Name()).Msg("transport finished")
		}(tr)
	}

	// all transports done (ephemeral replay) or a signal arrived
	wg.Wait()
	stop()

	if err := <-runDone; err != nil {
		l.Error().Err(err).Msg("pipeline stopped with error")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutCtx); err != nil {
		l.Error().Err(err).Msg("ops shutdown failed")
	}

	stats := svc.Stats()
	l.Info().
		Int64("submitted", stats.Submitted).
		Int64("processed", stats.Processed).
		Int64("events", stats.Events).
		Int64("skipped", stats.Skipped).
		Int64("errors", stats.Errors).
		Msg("pipeline stopped")
}
