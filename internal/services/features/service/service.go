// Package service implements the feature store: atomic counter updates
// plus reporter scoring against the actor's history
package service

import (
	"context"

	"warden/internal/core/reporters"
	"warden/internal/modkit/repokit"
	perr "warden/internal/platform/errors"
	"warden/internal/services/features/domain"
	"warden/internal/services/features/repo"
)

// Service implements domain.RecorderPort
type Service struct {
	Tx     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a new features service
func New(tx repokit.TxRunner, binder repokit.Binder[repo.Storage]) *Service {
	return &Service{Tx: tx, Binder: binder}
}

// Record implements domain.RecorderPort
func (s *Service) Record(ctx context.Context, obs domain.Observation) (domain.Score, error) {
	scores, err := s.RecordBatch(ctx, []domain.Observation{obs})
	if err != nil {
		return domain.Score{}, err
	}
	return scores[0], nil
}

// RecordBatch implements domain.RecorderPort
func (s *Service) RecordBatch(ctx context.Context, obs []domain.Observation) ([]domain.Score, error) {
	if len(obs) == 0 {
		return nil, nil
	}

	// resolve reporters up front so a bad name fails before any write
	fns := make(map[string]reporters.Func)
	for _, o := range obs {
		if o.Value == nil {
			continue // absence is recorded but never scored
		}
		if _, ok := fns[o.Reporter]; ok {
			continue
		}
		fn, err := reporters.Resolve(o.Reporter)
		if err != nil {
			return nil, err
		}
		fns[o.Reporter] = fn
	}

	incs := aggregate(obs)

	pairSet := make(map[domain.Pair]struct{})
	pairs := make([]domain.Pair, 0, 4)
	for _, inc := range incs {
		p := domain.Pair{ActorID: inc.ActorID, FieldID: inc.FieldID}
		if _, ok := pairSet[p]; !ok {
			pairSet[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}

	var counts []domain.FeatureCount
	err := s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		if _, err := st.IncrementFeatures(ctx, incs); err != nil {
			return err
		}
		var err error
		counts, err = st.ActorFieldCounts(ctx, pairs)
		return err
	})
	if err != nil {
		return nil, perr.WrapIf(err, perr.ErrorCodeDB, "record features")
	}

	hist := buildHistory(counts)

	out := make([]domain.Score, len(obs))
	for i, o := range obs {
		h := hist[domain.Pair{ActorID: o.ActorID, FieldID: o.FieldID}]
		row, ok := h.rows[valueKey(o.Value)]
		if !ok {
			return nil, perr.DBf("feature row missing after increment (actor %d field %d)", o.ActorID, o.FieldID)
		}
		sc := domain.Score{
			ActorID:   o.ActorID,
			FieldID:   o.FieldID,
			FeatureID: row.ID,
			Value:     o.Value,
		}
		if o.Value != nil {
			fn := fns[o.Reporter]
			if w := o.Weight; w > 0 && w != 1 {
				fn = reporters.Weighted(fn, w)
			}
			sc.Score = fn(reporters.Observation{
				Count:     row.Count,
				NullCount: h.nullCount,
				Siblings:  h.siblings,
			})
		}
		out[i] = sc
	}
	return out, nil
}

// aggregate folds duplicate observations into single increments, keeping
// first-appearance order for deterministic SQL
func aggregate(obs []domain.Observation) []domain.Increment {
	type key struct {
		actor, field int64
		val          string
	}
	idx := make(map[key]int)
	incs := make([]domain.Increment, 0, len(obs))
	for _, o := range obs {
		k := key{o.ActorID, o.FieldID, valueKey(o.Value)}
		if i, ok := idx[k]; ok {
			incs[i].N++
			continue
		}
		idx[k] = len(incs)
		incs = append(incs, domain.Increment{
			ActorID: o.ActorID,
			FieldID: o.FieldID,
			Value:   o.Value,
			N:       1,
		})
	}
	return incs
}

type history struct {
	rows      map[string]domain.FeatureCount
	nullCount int64
	siblings  []int64
}

func buildHistory(counts []domain.FeatureCount) map[domain.Pair]history {
	out := make(map[domain.Pair]history)
	for _, fc := range counts {
		p := domain.Pair{ActorID: fc.ActorID, FieldID: fc.FieldID}
		h, ok := out[p]
		if !ok {
			h = history{rows: make(map[string]domain.FeatureCount)}
		}
		h.rows[valueKey(fc.Value)] = fc
		if fc.Value == nil {
			h.nullCount = fc.Count
		} else {
			h.siblings = append(h.siblings, fc.Count)
		}
		out[p] = h
	}
	return out
}

// valueKey distinguishes the null observation from every real value,
// including the empty string
func valueKey(v *string) string {
	if v == nil {
		return "\x00null"
	}
	return "v:" + *v
}
