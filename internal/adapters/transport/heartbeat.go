package transport

import (
	"context"
	"encoding/json"
	"time"

	"warden/internal/core/message"
	"warden/internal/platform/config"
	perr "warden/internal/platform/errors"
	"warden/internal/platform/logger"
	"warden/internal/platform/validate"
)

// HeartbeatOptions configures the heartbeat generator
type HeartbeatOptions struct {
	// Interval between beats
	Interval time.Duration `json:"interval" validate:"gt=0"`
	// Count of rounds per beat; every round sends each payload once
	Count int `json:"count" validate:"gte=1"`
	// Payloads sent each round. Empty means the built-in demo payloads
	Payloads []map[string]any `json:"payloads"`
}

// Heartbeat emits a fixed payload rotation on an interval. It exists to
// exercise profiles end to end without a real source
type Heartbeat struct {
	log  logger.Logger
	opts HeartbeatOptions
}

func init() {
	Register("heartbeat", func(cfg config.Conf) (Transport, error) {
		opts := HeartbeatOptions{
			Interval: cfg.MayDuration("HEARTBEAT_INTERVAL", 5*time.Second),
			Count:    cfg.MayInt("HEARTBEAT_COUNT", 1),
		}
		if raw := cfg.MayString("HEARTBEAT_PAYLOADS", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &opts.Payloads); err != nil {
				return nil, perr.Wrap(err, perr.ErrorCodeConfig, "HEARTBEAT_PAYLOADS is not a JSON array of objects")
			}
		}
		return NewHeartbeat(opts)
	})
}

// NewHeartbeat builds the heartbeat transport
func NewHeartbeat(opts HeartbeatOptions) (*Heartbeat, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	if len(opts.Payloads) == 0 {
		opts.Payloads = []map[string]any{
			{"person": "George", "greeting": "hello"},
			{"person": "Ben", "greeting": "howdy"},
			{"person": "Susan", "greeting": "salutations"},
		}
	}
	return &Heartbeat{log: *logger.Named("transport.heartbeat"), opts: opts}, nil
}

// Name implements Transport
func (t *Heartbeat) Name() string { return "heartbeat" }

// Run implements Transport. It beats until ctx is cancelled
func (t *Heartbeat) Run(ctx context.Context, submit SubmitFunc) error {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := t.beat(ctx, submit); err != nil {
			return err
		}
	}
}

func (t *Heartbeat) beat(ctx context.Context, submit SubmitFunc) error {
	for i := 0; i < t.opts.Count; i++ {
		for _, payload := range t.opts.Payloads {
			msg, err := message.New(time.Now(), payload)
			if err != nil {
				return err
			}
			t.log.Debug().Stringer("message_id", msg.ID()).Msg("sending heartbeat")
			if err := submit(ctx, msg); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
	}
	return nil
}
