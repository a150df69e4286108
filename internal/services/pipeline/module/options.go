package module

import (
	"time"

	"warden/internal/platform/config"
)

// Options holds configuration settings for the pipeline module
type Options struct {
	QueueSize int           `json:"queue_size" validate:"gte=1"`
	Timeout   time.Duration `json:"timeout" validate:"gt=0"`
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	pf := cfg.Prefix("PIPELINE_")
	return Options{
		QueueSize: pf.MayInt("QUEUE_SIZE", 500),
		Timeout:   pf.MayDuration("TIMEOUT", 10*time.Second),
	}
}
