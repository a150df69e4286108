package module

import (
	"time"

	"warden/internal/platform/config"
)

// Options holds configuration settings for the investigate module
type Options struct {
	Collector     string        `json:"collector" validate:"required"`
	WindowSeconds int           `json:"window_seconds" validate:"gte=1"`
	Analyzer      string        `json:"analyzer" validate:"required"`
	Interval      time.Duration `json:"interval" validate:"gt=0"`
	// Epoch anchors the first window when no investigation has completed
	// yet; empty means the profile's earliest event
	Epoch time.Time `json:"epoch"`

	// AnalyzerOpts are free-form knobs handed to the analyzer factory
	AnalyzerOpts map[string]any `json:"analyzer_opts"`
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	inf := cfg.Prefix("INVESTIGATE_")

	opts := Options{
		Collector:     inf.MayString("COLLECTOR", "time-range"),
		WindowSeconds: inf.MayInt("WINDOW_SECONDS", 60),
		Analyzer:      inf.MayString("ANALYZER", "exponential-decay"),
		Interval:      inf.MayDuration("INTERVAL", 10*time.Second),
		AnalyzerOpts:  map[string]any{},
	}
	if raw := inf.MayString("EPOCH", ""); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			opts.Epoch = t
		}
	}
	opts.AnalyzerOpts["weight"] = inf.MayFloat64("ANALYZER_WEIGHT", 0.2)
	opts.AnalyzerOpts["decay"] = inf.MayFloat64("ANALYZER_DECAY", 0.1)
	opts.AnalyzerOpts["threshold"] = inf.MayFloat64("ANALYZER_THRESHOLD", 0.5)
	return opts
}
