// Package repo persists actors, messages, events and their anomalies
package repo

import (
	"context"
	"fmt"
	"strings"

	"warden/internal/modkit/repokit"
	"warden/internal/platform/store"
	"warden/internal/services/pipeline/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the pipeline repository
type Storage interface {
	// UpsertActors creates-or-fetches one actor row per distinct name
	// for the profile and returns name -> id
	UpsertActors(ctx context.Context, profileID int64, names []string) (map[string]int64, error)

	// UpsertMessages dedups by payload-derived id; re-ingesting an
	// identical payload only advances received_at
	UpsertMessages(ctx context.Context, rows []domain.MessageWrite) error

	// InsertEvents writes events and their anomalies. Redelivered
	// events resolve to their existing row and anomalies are not
	// duplicated
	InsertEvents(ctx context.Context, events []domain.EventWrite) error
}

// UpsertActors implements Storage
func (s *pg) UpsertActors(ctx context.Context, profileID int64, names []string) (map[string]int64, error) {
	if len(names) == 0 {
		return map[string]int64{}, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO actors (profile_id, name) VALUES `)
	args := make([]any, 0, len(names)*2)
	for i, n := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*2 + 1
		fmt.Fprintf(&sb, "($%d,$%d)", base, base+1)
		args = append(args, profileID, n)
	}
	// DO UPDATE rather than DO NOTHING so every row comes back
	sb.WriteString(`
		ON CONFLICT (profile_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`)

	type actorRow struct {
		id   int64
		name string
	}
	rows, err := store.Many(ctx, s.q, func(r store.Row) (actorRow, error) {
		var ar actorRow
		err := r.Scan(&ar.id, &ar.name)
		return ar, err
	}, sb.String(), args...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(names))
	for _, ar := range rows {
		out[ar.name] = ar.id
	}
	return out, nil
}

// UpsertMessages implements Storage
func (s *pg) UpsertMessages(ctx context.Context, rows []domain.MessageWrite) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO messages (id, transport, payload, received_at) VALUES `)
	args := make([]any, 0, len(rows)*4)
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*4 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", base, base+1, base+2, base+3)
		args = append(args, r.ID, r.Transport, r.Payload, r.ReceivedAt)
	}
	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET received_at = EXCLUDED.received_at`)

	_, err := s.q.Exec(ctx, sb.String(), args...)
	return err
}

// InsertEvents implements Storage
func (s *pg) InsertEvents(ctx context.Context, events []domain.EventWrite) error {
	for _, ev := range events {
		var eventID int64
		err := s.q.QueryRow(ctx, `
			INSERT INTO events (message_id, actor_id, profile_id, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (message_id, profile_id) DO UPDATE SET actor_id = EXCLUDED.actor_id
			RETURNING id
		`, ev.MessageID, ev.ActorID, ev.ProfileID, ev.CreatedAt).Scan(&eventID)
		if err != nil {
			return err
		}
		if len(ev.Anomalies) == 0 {
			continue
		}

		var sb strings.Builder
		sb.WriteString(`INSERT INTO event_anomalies (event_id, field_id, feature_id, score) VALUES `)
		args := make([]any, 0, len(ev.Anomalies)*4)
		for i, an := range ev.Anomalies {
			if i > 0 {
				sb.WriteByte(',')
			}
			base := i*4 + 1
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", base, base+1, base+2, base+3)
			args = append(args, eventID, an.FieldID, an.FeatureID, an.Score)
		}
		// Idempotent under at-least-once batch redelivery
		sb.WriteString(` ON CONFLICT (event_id, field_id) DO NOTHING`)

		if _, err := s.q.Exec(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}
