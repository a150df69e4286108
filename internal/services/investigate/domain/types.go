// Package domain defines the investigation engine's types and ports
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Investigation statuses
const (
	StatusOpen      = "open"
	StatusCompleted = "completed"
)

// Investigation is one bounded analysis run over a profile's events
type Investigation struct {
	ID          int64
	ProfileID   int64
	WindowStart time.Time
	WindowEnd   time.Time
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Record is one malicious anomaly as exposed to shippers
type Record struct {
	EventID        int64     `json:"event_id"`
	MessageID      uuid.UUID `json:"message_id"`
	ActorID        int64     `json:"actor_id"`
	EventCreatedAt time.Time `json:"event_created_at"`
	AnomalyID      int64     `json:"anomaly_id"`
	FieldID        int64     `json:"field_id"`
	Score          float64   `json:"score"`
}

// Outcome summarizes one RunOnce
type Outcome struct {
	Investigation Investigation
	Collected     int
	Malicious     int
	Resumed       bool
	// Skipped means there was nothing to anchor a window on yet
	Skipped bool
}

// Stats is a point-in-time snapshot served by the ops endpoint
type Stats struct {
	Windows   int64 `json:"windows"`
	Collected int64 `json:"collected"`
	Malicious int64 `json:"malicious"`
	Errors    int64 `json:"errors"`
}
