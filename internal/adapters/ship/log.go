package ship

import (
	"context"

	"warden/internal/platform/config"
	"warden/internal/platform/logger"
	"warden/internal/services/investigate/domain"

	"github.com/rs/zerolog"
)

// LogOptions configures the log shipper
type LogOptions struct {
	// Level to emit records at
	Level zerolog.Level `json:"level"`
	// CountOnly logs one line per window instead of one per record
	CountOnly bool `json:"count_only"`
}

// Log writes malicious records to the process log. Useful as a default
// sink and for demos
type Log struct {
	log  logger.Logger
	opts LogOptions
}

func init() {
	Register("log", func(cfg config.Conf) (domain.Shipper, error) {
		return NewLog(LogOptions{
			Level:     logger.ParseLevel(cfg.MayString("LOG_LEVEL", "info")),
			CountOnly: cfg.MayBool("LOG_COUNT_ONLY", false),
		}), nil
	})
}

// NewLog builds the log shipper
func NewLog(opts LogOptions) *Log {
	return &Log{log: *logger.Named("ship.log"), opts: opts}
}

// Name implements domain.Shipper
func (s *Log) Name() string { return "log" }

// Ship implements domain.Shipper
func (s *Log) Ship(_ context.Context, inv domain.Investigation, records []domain.Record) error {
	if s.opts.CountOnly {
		s.log.WithLevel(s.opts.Level).
			Int64("investigation_id", inv.ID).
			Int("records", len(records)).
			Msg("malicious records")
		return nil
	}
	for _, rec := range records {
		s.log.WithLevel(s.opts.Level).
			Int64("investigation_id", inv.ID).
			Int64("event_id", rec.EventID).
			Stringer("message_id", rec.MessageID).
			Int64("actor_id", rec.ActorID).
			Time("event_created_at", rec.EventCreatedAt).
			Int64("anomaly_id", rec.AnomalyID).
			Int64("field_id", rec.FieldID).
			Float64("score", rec.Score).
			Msg("malicious record")
	}
	return nil
}
