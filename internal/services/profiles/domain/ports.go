package domain

import "context"

// SyncPort reconciles declared profiles with their storage rows
type SyncPort interface {
	// Sync upserts the profile and its fields, returning their ids.
	// Declared reporters are resolved eagerly so misconfiguration fails
	// at startup rather than mid-batch
	Sync(ctx context.Context, p Profile) (Synced, error)

	// SyncAll syncs every profile in declaration order
	SyncAll(ctx context.Context, ps []Profile) ([]Synced, error)
}
