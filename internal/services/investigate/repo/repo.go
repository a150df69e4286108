// Package repo persists investigations and reads back scored events
package repo

import (
	"context"
	"errors"
	"time"

	"warden/internal/core/analyzers"
	"warden/internal/modkit/repokit"
	perr "warden/internal/platform/errors"
	"warden/internal/platform/store"
	"warden/internal/services/investigate/domain"
)

type (
	pgRepo struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pgRepo{q: q} }

// Storage defines the investigations repository
type Storage interface {
	// OpenInvestigation returns the profile's open investigation, if any
	OpenInvestigation(ctx context.Context, profileID int64) (*domain.Investigation, error)

	// Watermark returns the window end of the profile's most recently
	// completed investigation
	Watermark(ctx context.Context, profileID int64) (time.Time, bool, error)

	// FirstEventAt returns the earliest event time for the profile,
	// used to anchor the very first window when no epoch is configured
	FirstEventAt(ctx context.Context, profileID int64) (time.Time, bool, error)

	// CreateInvestigation opens a new row. The partial unique index on
	// open investigations rejects a second concurrent opener
	CreateInvestigation(ctx context.Context, profileID int64, start, end time.Time) (domain.Investigation, error)

	// CollectEvents returns the window's events that are unassigned or
	// assigned to investigationID, with anomalies, ordered by
	// (created_at, id)
	CollectEvents(ctx context.Context, profileID, investigationID int64, start, end time.Time) ([]analyzers.Event, error)

	// AssignEvents claims unassigned events for the investigation
	AssignEvents(ctx context.Context, investigationID int64, eventIDs []int64) error

	// MarkMalicious flags the given anomalies
	MarkMalicious(ctx context.Context, anomalyIDs []int64) error

	// MaliciousRecords returns ship records for the investigation's
	// malicious anomalies
	MaliciousRecords(ctx context.Context, investigationID int64) ([]domain.Record, error)

	// CompleteInvestigation transitions open -> completed; completing a
	// non-open row is an invariant breach
	CompleteInvestigation(ctx context.Context, investigationID int64, completedAt time.Time) error
}

func scanInvestigation(r store.Row) (domain.Investigation, error) {
	var inv domain.Investigation
	err := r.Scan(
		&inv.ID, &inv.ProfileID, &inv.WindowStart, &inv.WindowEnd,
		&inv.Status, &inv.CreatedAt, &inv.CompletedAt,
	)
	return inv, err
}

// OpenInvestigation implements Storage
func (s *pgRepo) OpenInvestigation(ctx context.Context, profileID int64) (*domain.Investigation, error) {
	inv, err := store.One(ctx, s.q, scanInvestigation, `
		SELECT id, profile_id, window_start, window_end, status, created_at, completed_at
		FROM investigations
		WHERE profile_id = $1 AND status = 'open'
	`, profileID)
	if err != nil {
		if errors.Is(err, perr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// Watermark implements Storage
func (s *pgRepo) Watermark(ctx context.Context, profileID int64) (time.Time, bool, error) {
	wm, err := store.Scalar[*time.Time](ctx, s.q, `
		SELECT MAX(window_end) FROM investigations
		WHERE profile_id = $1 AND status = 'completed'
	`, profileID)
	if err != nil {
		return time.Time{}, false, err
	}
	if wm == nil {
		return time.Time{}, false, nil
	}
	return wm.UTC(), true, nil
}

// FirstEventAt implements Storage
func (s *pgRepo) FirstEventAt(ctx context.Context, profileID int64) (time.Time, bool, error) {
	at, err := store.Scalar[*time.Time](ctx, s.q, `
		SELECT MIN(created_at) FROM events WHERE profile_id = $1
	`, profileID)
	if err != nil {
		return time.Time{}, false, err
	}
	if at == nil {
		return time.Time{}, false, nil
	}
	return at.UTC(), true, nil
}

// CreateInvestigation implements Storage
func (s *pgRepo) CreateInvestigation(
	ctx context.Context,
	profileID int64,
	start, end time.Time,
) (domain.Investigation, error) {
	inv, err := store.One(ctx, s.q, scanInvestigation, `
		INSERT INTO investigations (profile_id, window_start, window_end, status, created_at)
		VALUES ($1, $2, $3, 'open', now())
		RETURNING id, profile_id, window_start, window_end, status, created_at, completed_at
	`, profileID, start, end)
	if err != nil {
		return domain.Investigation{}, perr.FromPostgres(err, "create investigation")
	}
	return inv, nil
}

// CollectEvents implements Storage
func (s *pgRepo) CollectEvents(
	ctx context.Context,
	profileID, investigationID int64,
	start, end time.Time,
) ([]analyzers.Event, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			e.id, e.actor_id, e.message_id, e.created_at,
			a.id, a.field_id, a.feature_id, a.score
		FROM events e
		LEFT JOIN event_anomalies a ON a.event_id = e.id
		WHERE e.profile_id = $1
			AND e.created_at >= $2 AND e.created_at < $3
			AND (e.investigation_id IS NULL OR e.investigation_id = $4)
		ORDER BY e.created_at, e.id, a.id
	`, profileID, start, end, investigationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analyzers.Event
	byID := map[int64]int{}
	for rows.Next() {
		var ev analyzers.Event
		var anID, anField, anFeature *int64
		var anScore *float64
		if err := rows.Scan(
			&ev.ID, &ev.ActorID, &ev.MessageID, &ev.CreatedAt,
			&anID, &anField, &anFeature, &anScore,
		); err != nil {
			return nil, err
		}
		idx, ok := byID[ev.ID]
		if !ok {
			idx = len(out)
			byID[ev.ID] = idx
			out = append(out, ev)
		}
		if anID != nil {
			out[idx].Anomalies = append(out[idx].Anomalies, analyzers.Anomaly{
				ID:        *anID,
				EventID:   ev.ID,
				FieldID:   *anField,
				FeatureID: *anFeature,
				Score:     *anScore,
			})
		}
	}
	return out, rows.Err()
}

// AssignEvents implements Storage
func (s *pgRepo) AssignEvents(ctx context.Context, investigationID int64, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx, `
		UPDATE events SET investigation_id = $1
		WHERE id = ANY($2) AND investigation_id IS NULL
	`, investigationID, eventIDs)
	return err
}

// MarkMalicious implements Storage
func (s *pgRepo) MarkMalicious(ctx context.Context, anomalyIDs []int64) error {
	if len(anomalyIDs) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx, `
		UPDATE event_anomalies SET malicious = true WHERE id = ANY($1)
	`, anomalyIDs)
	return err
}

// MaliciousRecords implements Storage
func (s *pgRepo) MaliciousRecords(ctx context.Context, investigationID int64) ([]domain.Record, error) {
	return store.Many(ctx, s.q, func(row store.Row) (domain.Record, error) {
		var r domain.Record
		err := row.Scan(
			&r.EventID, &r.MessageID, &r.ActorID, &r.EventCreatedAt,
			&r.AnomalyID, &r.FieldID, &r.Score,
		)
		return r, err
	}, `
		SELECT e.id, e.message_id, e.actor_id, e.created_at, a.id, a.field_id, a.score
		FROM event_anomalies a
		JOIN events e ON e.id = a.event_id
		WHERE e.investigation_id = $1 AND a.malicious
		ORDER BY e.created_at, e.id, a.id
	`, investigationID)
}

// CompleteInvestigation implements Storage
func (s *pgRepo) CompleteInvestigation(ctx context.Context, investigationID int64, completedAt time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE investigations SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'open'
	`, investigationID, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return perr.Conflictf("investigation %d not open", investigationID)
	}
	return nil
}
