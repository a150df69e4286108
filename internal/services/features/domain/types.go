// Package domain defines the feature store's observation and score types
package domain

// Observation is one extracted field occurrence to record. A nil Value
// means the field was absent from the message
type Observation struct {
	ActorID int64
	FieldID int64
	Value   *string

	// Reporter names the scoring function; Weight scales its result
	// (zero means 1.0)
	Reporter string
	Weight   float64
}

// Score is the stored outcome of one observation
type Score struct {
	ActorID   int64
	FieldID   int64
	FeatureID int64
	Value     *string
	Score     float64
}

// Increment is a pre-aggregated counter bump for one feature row
type Increment struct {
	ActorID int64
	FieldID int64
	Value   *string
	N       int64
}

// FeatureCount is one feature row's state after an increment
type FeatureCount struct {
	ID      int64
	ActorID int64
	FieldID int64
	Value   *string
	Count   int64
}

// Pair addresses one actor's history for one field
type Pair struct {
	ActorID int64
	FieldID int64
}
