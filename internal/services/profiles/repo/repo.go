// Package repo persists profile and field declarations
package repo

import (
	"context"

	"warden/internal/modkit/repokit"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the profiles repository
type Storage interface {
	UpsertProfile(ctx context.Context, name string) (int64, error)
	UpsertField(ctx context.Context, profileID int64, name string) (int64, error)
}

// UpsertProfile implements Storage
func (s *pg) UpsertProfile(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO profiles (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	return id, err
}

// UpsertField implements Storage
func (s *pg) UpsertField(ctx context.Context, profileID int64, name string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx, `
		INSERT INTO fields (profile_id, name) VALUES ($1, $2)
		ON CONFLICT (profile_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, profileID, name).Scan(&id)
	return id, err
}
