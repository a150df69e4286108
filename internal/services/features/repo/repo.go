// Package repo persists per-actor feature counters
package repo

import (
	"context"
	"fmt"
	"strings"

	"warden/internal/modkit/repokit"
	"warden/internal/platform/store"
	"warden/internal/services/features/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the features repository
type Storage interface {
	// IncrementFeatures bumps each feature counter by its N, creating
	// missing rows at count N. Increments must be pre-aggregated: one
	// row per distinct (actor, field, value)
	IncrementFeatures(ctx context.Context, incs []domain.Increment) ([]domain.FeatureCount, error)

	// ActorFieldCounts returns every feature row for the given pairs
	ActorFieldCounts(ctx context.Context, pairs []domain.Pair) ([]domain.FeatureCount, error)
}

// IncrementFeatures implements Storage. The single-statement upsert is
// what makes concurrent pipelines safe without application locks
func (s *pg) IncrementFeatures(ctx context.Context, incs []domain.Increment) ([]domain.FeatureCount, error) {
	if len(incs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO features (actor_id, field_id, value, count) VALUES `)

	args := make([]any, 0, len(incs)*4)
	for i, inc := range incs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*4 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", base, base+1, base+2, base+3)
		args = append(args, inc.ActorID, inc.FieldID, inc.Value, inc.N)
	}
	sb.WriteString(`
		ON CONFLICT (field_id, actor_id, value)
		DO UPDATE SET count = features.count + EXCLUDED.count
		RETURNING id, actor_id, field_id, value, count`)

	return store.Many(ctx, s.q, scanFeatureCount, sb.String(), args...)
}

func scanFeatureCount(r store.Row) (domain.FeatureCount, error) {
	var fc domain.FeatureCount
	err := r.Scan(&fc.ID, &fc.ActorID, &fc.FieldID, &fc.Value, &fc.Count)
	return fc, err
}

// ActorFieldCounts implements Storage
func (s *pg) ActorFieldCounts(ctx context.Context, pairs []domain.Pair) ([]domain.FeatureCount, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, actor_id, field_id, value, count
		FROM features
		WHERE (actor_id, field_id) IN (`)

	args := make([]any, 0, len(pairs)*2)
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*2 + 1
		fmt.Fprintf(&sb, "($%d,$%d)", base, base+1)
		args = append(args, p.ActorID, p.FieldID)
	}
	sb.WriteString(")")

	return store.Many(ctx, s.q, scanFeatureCount, sb.String(), args...)
}
