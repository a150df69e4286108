// Package service implements the ingestion pipeline: a bounded queue,
// a size/timeout batcher, and per-profile batch processing
package service

import (
	"context"
	"sync/atomic"
	"time"

	"warden/internal/core/message"
	"warden/internal/core/normalize"
	"warden/internal/modkit/repokit"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/internal/platform/store"
	featdom "warden/internal/services/features/domain"
	"warden/internal/services/pipeline/domain"
	"warden/internal/services/pipeline/repo"
	profdom "warden/internal/services/profiles/domain"
)

// Config for the pipeline service
type Config struct {
	// QueueSize bounds the submit queue and caps the batch size
	QueueSize int
	// Timeout flushes a non-empty buffer this long after its oldest message
	Timeout time.Duration
	// Retry bounds the per-profile repository retry loop
	Retry store.RetryConfig
}

// Service implements domain.SubmitPort and domain.RunnerPort
type Service struct {
	Log      logger.Logger
	Tx       repokit.TxRunner
	Binder   repokit.Binder[repo.Storage]
	Recorder featdom.RecorderPort
	Profiles []profdom.Synced
	Cfg      Config

	norm  *normalize.Normalizer
	queue chan item

	// per-profile batches awaiting wholesale retry after exhausted backoff
	pending map[string][]item

	submitted atomic.Int64
	flushed   atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	events    atomic.Int64
	errors    atomic.Int64
}

type item struct {
	msg       message.Message
	transport string
}

// New constructs a new pipeline service
func New(
	log logger.Logger,
	tx repokit.TxRunner,
	binder repokit.Binder[repo.Storage],
	recorder featdom.RecorderPort,
	profiles []profdom.Synced,
	cfg Config,
) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Service{
		Log:      log.With().Str("component", "pipeline").Logger(),
		Tx:       tx,
		Binder:   binder,
		Recorder: recorder,
		Profiles: profiles,
		Cfg:      cfg,
		norm:     normalize.New(),
		queue:    make(chan item, cfg.QueueSize),
		pending:  make(map[string][]item),
	}
}

// Submit implements domain.SubmitPort. The bounded channel is the
// backpressure point: when a flush is behind, producers wait here
func (s *Service) Submit(ctx context.Context, msg message.Message) error {
	return s.submit(ctx, item{msg: msg, transport: "direct"})
}

// SubmitterFor labels submissions with the transport's name
func (s *Service) SubmitterFor(transport string) func(ctx context.Context, msg message.Message) error {
	return func(ctx context.Context, msg message.Message) error {
		return s.submit(ctx, item{msg: msg, transport: transport})
	}
}

func (s *Service) submit(ctx context.Context, it item) error {
	select {
	case s.queue <- it:
		s.submitted.Add(1)
		metrics.MessagesSubmitted.Inc()
		metrics.QueueUtilization.Set(float64(len(s.queue)) / float64(cap(s.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats implements domain.RunnerPort
func (s *Service) Stats() domain.Stats {
	return domain.Stats{
		Submitted: s.submitted.Load(),
		Flushed:   s.flushed.Load(),
		Processed: s.processed.Load(),
		Skipped:   s.skipped.Load(),
		Events:    s.events.Load(),
		Errors:    s.errors.Load(),
	}
}
