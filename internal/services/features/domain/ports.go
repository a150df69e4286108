package domain

import "context"

// RecorderPort records observations and returns their anomaly scores
type RecorderPort interface {
	// Record stores one observation atomically and scores it against the
	// actor's history as of after the increment
	Record(ctx context.Context, obs Observation) (Score, error)

	// RecordBatch stores a batch in two round trips. Scores align 1:1
	// with the input; duplicate observations within one batch share the
	// score computed from the post-batch counts
	RecordBatch(ctx context.Context, obs []Observation) ([]Score, error)
}
