package domain

import (
	"context"
	"time"

	"warden/internal/core/analyzers"
)

// Collector fetches the events of one time window for one profile.
// Collectors are stateless with respect to windowing; the investigation
// sequences windows and owns event assignment
type Collector interface {
	// Window is the fixed window size this collector was configured with
	Window() time.Duration

	// Collect returns events in [start, end) that are unassigned or
	// already assigned to investigationID (resume), with their
	// anomalies, in deterministic order
	Collect(ctx context.Context, profileID, investigationID int64, start, end time.Time) ([]analyzers.Event, error)
}

// Shipper delivers malicious records downstream. Delivery is
// at-least-once; shippers must tolerate duplicates
type Shipper interface {
	Name() string
	Ship(ctx context.Context, inv Investigation, recs []Record) error
}

// InvestigatorPort drives investigations
type InvestigatorPort interface {
	// RunOnce resumes the profile's open investigation or opens the next
	// watermark-tiled window, analyzes it, ships verdicts, completes it
	RunOnce(ctx context.Context, profileID int64) (Outcome, error)

	// Run loops RunOnce over the configured profiles until ctx ends
	Run(ctx context.Context) error

	// Stats reports investigation progress
	Stats() Stats
}
