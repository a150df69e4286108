// Package service implements the investigation engine: watermark-tiled
// windows over scored events, analyzer verdicts, and shipper dispatch
package service

import (
	"context"
	"sync/atomic"
	"time"

	"warden/internal/core/analyzers"
	"warden/internal/modkit/repokit"
	perr "warden/internal/platform/errors"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/internal/platform/store"
	"warden/internal/services/investigate/domain"
	"warden/internal/services/investigate/repo"
)

// Config for the investigation service
type Config struct {
	// ProfileIDs to investigate, in rotation order
	ProfileIDs []int64
	// Interval between RunOnce rotations
	Interval time.Duration
	// Epoch anchors the very first window; zero means the profile's
	// earliest event
	Epoch time.Time
	// Retry bounds repository retries within one window
	Retry store.RetryConfig

	now func() time.Time
}

// Service implements domain.InvestigatorPort
type Service struct {
	Log       logger.Logger
	Tx        repokit.TxRunner
	Binder    repokit.Binder[repo.Storage]
	Collector domain.Collector
	Analyzer  analyzers.Analyzer
	Shippers  []domain.Shipper
	Cfg       Config

	windows   atomic.Int64
	collected atomic.Int64
	malicious atomic.Int64
	errors    atomic.Int64
}

// New constructs a new investigation service
func New(
	log logger.Logger,
	tx repokit.TxRunner,
	binder repokit.Binder[repo.Storage],
	collector domain.Collector,
	analyzer analyzers.Analyzer,
	shippers []domain.Shipper,
	cfg Config,
) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Service{
		Log:       log.With().Str("component", "investigate").Logger(),
		Tx:        tx,
		Binder:    binder,
		Collector: collector,
		Analyzer:  analyzer,
		Shippers:  shippers,
		Cfg:       cfg,
	}
}

// Run implements domain.InvestigatorPort. Cancellation is cooperative:
// checked between windows, never mid-window
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Cfg.Interval)
	defer ticker.Stop()

	for {
		for _, pid := range s.Cfg.ProfileIDs {
			if ctx.Err() != nil {
				return nil
			}
			out, err := s.RunOnce(ctx, pid)
			switch {
			case err != nil:
				s.errors.Add(1)
				s.Log.Error().Err(err).Int64("profile_id", pid).Msg("investigation failed, will resume")
			case out.Skipped:
				s.Log.Debug().Int64("profile_id", pid).Msg("nothing to investigate yet")
			default:
				s.Log.Info().
					Int64("profile_id", pid).
					Int64("investigation_id", out.Investigation.ID).
					Time("window_start", out.Investigation.WindowStart).
					Time("window_end", out.Investigation.WindowEnd).
					Int("collected", out.Collected).
					Int("malicious", out.Malicious).
					Bool("resumed", out.Resumed).
					Msg("investigation completed")
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce implements domain.InvestigatorPort
func (s *Service) RunOnce(ctx context.Context, profileID int64) (domain.Outcome, error) {
	inv, resumed, err := s.openWindow(ctx, profileID)
	if err != nil || inv == nil {
		return domain.Outcome{Skipped: inv == nil}, err
	}

	var events []analyzers.Event
	err = store.Retry(ctx, s.Cfg.Retry, func(ctx context.Context) error {
		var err error
		events, err = s.Collector.Collect(ctx, profileID, inv.ID, inv.WindowStart, inv.WindowEnd)
		return err
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	eventIDs := make([]int64, len(events))
	for i, ev := range events {
		eventIDs[i] = ev.ID
	}

	flagged := s.Analyzer.Analyze(events)
	anomalyIDs := make([]int64, len(flagged))
	for i, an := range flagged {
		anomalyIDs[i] = an.ID
	}

	var records []domain.Record
	err = store.Retry(ctx, s.Cfg.Retry, func(ctx context.Context) error {
		return s.Tx.Tx(ctx, func(q repokit.Queryer) error {
			st := s.Binder.Bind(q)
			if err := st.AssignEvents(ctx, inv.ID, eventIDs); err != nil {
				return err
			}
			if err := st.MarkMalicious(ctx, anomalyIDs); err != nil {
				return err
			}
			var err error
			records, err = st.MaliciousRecords(ctx, inv.ID)
			return err
		})
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	// ship before completing: a shipping failure leaves the window open
	// so the resume re-ships (at-least-once)
	if err := s.ship(ctx, *inv, records); err != nil {
		return domain.Outcome{}, err
	}

	err = store.Retry(ctx, s.Cfg.Retry, func(ctx context.Context) error {
		return s.Tx.Tx(ctx, func(q repokit.Queryer) error {
			return s.Binder.Bind(q).CompleteInvestigation(ctx, inv.ID, s.Cfg.now().UTC())
		})
	})
	if err != nil {
		return domain.Outcome{}, err
	}

	s.windows.Add(1)
	s.collected.Add(int64(len(events)))
	s.malicious.Add(int64(len(records)))
	metrics.WindowsAnalyzed.Inc()
	metrics.AnomaliesFlagged.WithLabelValues(s.Analyzer.Name()).Add(float64(len(records)))

	inv.Status = domain.StatusCompleted
	return domain.Outcome{
		Investigation: *inv,
		Collected:     len(events),
		Malicious:     len(records),
		Resumed:       resumed,
	}, nil
}

// openWindow resumes the profile's open investigation or opens the next
// tiled window. A nil investigation with nil error means there is nothing
// to anchor a window on yet
func (s *Service) openWindow(ctx context.Context, profileID int64) (*domain.Investigation, bool, error) {
	var open *domain.Investigation
	err := s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		open, err = s.Binder.Bind(q).OpenInvestigation(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if open != nil {
		return open, true, nil
	}

	var start time.Time
	err = s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		wm, ok, err := st.Watermark(ctx, profileID)
		if err != nil {
			return err
		}
		if ok {
			start = wm
			return nil
		}
		if !s.Cfg.Epoch.IsZero() {
			start = s.Cfg.Epoch.UTC()
			return nil
		}
		first, ok, err := st.FirstEventAt(ctx, profileID)
		if err != nil {
			return err
		}
		if ok {
			start = first
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if start.IsZero() {
		return nil, false, nil
	}

	now := s.Cfg.now().UTC()
	if !start.Before(now) {
		return nil, false, nil
	}
	end := start.Add(s.Collector.Window())
	if end.After(now) {
		end = now
	}

	var inv domain.Investigation
	err = s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		inv, err = s.Binder.Bind(q).CreateInvestigation(ctx, profileID, start, end)
		return err
	})
	if err != nil {
		// a concurrent investigator opened the window first
		if perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &inv, false, nil
}

func (s *Service) ship(ctx context.Context, inv domain.Investigation, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, sh := range s.Shippers {
		started := time.Now()
		if err := sh.Ship(ctx, inv, records); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "shipper %s", sh.Name())
		}
		metrics.ShipDuration.WithLabelValues(sh.Name()).
			Observe(float64(time.Since(started).Milliseconds()))
	}
	return nil
}

// Stats implements domain.InvestigatorPort
func (s *Service) Stats() domain.Stats {
	return domain.Stats{
		Windows:   s.windows.Load(),
		Collected: s.collected.Load(),
		Malicious: s.malicious.Load(),
		Errors:    s.errors.Load(),
	}
}
