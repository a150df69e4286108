// Package domain defines behavior profiles and their field descriptors
package domain

import (
	"fmt"

	"warden/internal/core/message"
)

// FieldSpec declares one observed field of a profile: how to pull its
// value out of a message and which reporter scores it
type FieldSpec struct {
	// Name is unique within the profile and stable across runs; it keys
	// the persisted field row
	Name string

	// Reporter names the scoring function in the reporters registry
	Reporter string

	// Weight scales the reporter's score; zero means 1.0
	Weight float64

	// Extract pulls the field value from a message. ok=false means the
	// field is absent, which is recorded as a null observation
	Extract func(msg message.Message) (string, bool)
}

// Single builds a FieldSpec that reads one payload path as a scalar.
// Non-string scalars are rendered with fmt to keep feature values textual
func Single(name, reporter string, path ...string) FieldSpec {
	if len(path) == 0 {
		path = []string{name}
	}
	return FieldSpec{
		Name:     name,
		Reporter: reporter,
		Extract: func(msg message.Message) (string, bool) {
			v, ok := msg.Get(path...)
			if !ok || v == nil {
				return "", false
			}
			if s, isStr := v.(string); isStr {
				return s, true
			}
			return fmt.Sprintf("%v", v), true
		},
	}
}

// Profile identifies actors in a message stream and declares which fields
// to track for them
type Profile interface {
	// Name keys the persisted profile row
	Name() string

	// Matches reports whether the message belongs to this profile
	Matches(msg message.Message) bool

	// Actor extracts the raw actor name. Errors mean the message cannot
	// be attributed and is skipped for this profile
	Actor(msg message.Message) (string, error)

	// Fields returns the ordered field descriptors. Order is stable and
	// drives anomaly output ordering
	Fields() []FieldSpec
}

// Synced carries the storage ids of a synced profile
type Synced struct {
	Profile   Profile
	ProfileID int64
	// FieldIDs maps FieldSpec.Name to its row id
	FieldIDs map[string]int64
}

// FieldID returns the id for a declared field name
func (s Synced) FieldID(name string) (int64, bool) {
	id, ok := s.FieldIDs[name]
	return id, ok
}
