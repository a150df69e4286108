// Package domain defines the ingestion pipeline's types and ports
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageWrite is one message row to upsert
type MessageWrite struct {
	ID         uuid.UUID
	Transport  string
	Payload    []byte
	ReceivedAt time.Time
}

// AnomalyWrite is one scored field to attach to an event
type AnomalyWrite struct {
	FieldID   int64
	FeatureID int64
	Score     float64
}

// EventWrite is one (message, profile) acceptance with its anomalies
type EventWrite struct {
	MessageID uuid.UUID
	ActorID   int64
	ProfileID int64
	CreatedAt time.Time
	Anomalies []AnomalyWrite
}

// Stats is a point-in-time snapshot of pipeline progress, served by the
// ops endpoint
type Stats struct {
	Submitted int64 `json:"submitted"`
	Flushed   int64 `json:"flushed"`
	Processed int64 `json:"processed"`
	Skipped   int64 `json:"skipped"`
	Events    int64 `json:"events"`
	Errors    int64 `json:"errors"`
}
