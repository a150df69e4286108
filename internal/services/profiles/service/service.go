// Package service reconciles declared profiles with storage
package service

import (
	"context"

	"warden/internal/core/reporters"
	"warden/internal/modkit/repokit"
	perr "warden/internal/platform/errors"
	"warden/internal/services/profiles/domain"
	"warden/internal/services/profiles/repo"
)

// Service implements domain.SyncPort
type Service struct {
	Tx     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a new profiles service
func New(tx repokit.TxRunner, binder repokit.Binder[repo.Storage]) *Service {
	return &Service{Tx: tx, Binder: binder}
}

// Sync implements domain.SyncPort
func (s *Service) Sync(ctx context.Context, p domain.Profile) (domain.Synced, error) {
	fields := p.Fields()
	if len(fields) == 0 {
		return domain.Synced{}, perr.Configf("profile %q declares no fields", p.Name())
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" || f.Extract == nil {
			return domain.Synced{}, perr.Configf("profile %q has an incomplete field descriptor", p.Name())
		}
		if _, dup := seen[f.Name]; dup {
			return domain.Synced{}, perr.Configf("profile %q declares field %q twice", p.Name(), f.Name)
		}
		seen[f.Name] = struct{}{}
		if _, err := reporters.Resolve(f.Reporter); err != nil {
			return domain.Synced{}, perr.Wrapf(err, perr.ErrorCodeConfig,
				"profile %q field %q", p.Name(), f.Name)
		}
	}

	out := domain.Synced{Profile: p, FieldIDs: make(map[string]int64, len(fields))}
	err := s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		id, err := st.UpsertProfile(ctx, p.Name())
		if err != nil {
			return err
		}
		out.ProfileID = id
		for _, f := range fields {
			fid, err := st.UpsertField(ctx, id, f.Name)
			if err != nil {
				return err
			}
			out.FieldIDs[f.Name] = fid
		}
		return nil
	})
	if err != nil {
		return domain.Synced{}, perr.WrapIf(err, perr.ErrorCodeDB, "sync profile")
	}
	return out, nil
}

// SyncAll implements domain.SyncPort
func (s *Service) SyncAll(ctx context.Context, ps []domain.Profile) ([]domain.Synced, error) {
	out := make([]domain.Synced, 0, len(ps))
	for _, p := range ps {
		synced, err := s.Sync(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, synced)
	}
	return out, nil
}
