package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"warden/internal/core/analyzers"
	"warden/internal/modkit/repokit"
	"warden/internal/platform/logger"
	"warden/internal/services/investigate/domain"
	"warden/internal/services/investigate/repo"

	"github.com/google/uuid"
)

type memEvent struct {
	ev        analyzers.Event
	profileID int64
	invID     *int64
}

// memInvStorage is an in-memory investigations repository
type memInvStorage struct {
	mu        sync.Mutex
	invs      map[int64]*domain.Investigation
	nextInv   int64
	events    []*memEvent
	malicious map[int64]bool

	failComplete int
}

func newMemInvStorage() *memInvStorage {
	return &memInvStorage{
		invs:      make(map[int64]*domain.Investigation),
		malicious: make(map[int64]bool),
	}
}

func (m *memInvStorage) addEvent(id, profileID, actorID int64, at time.Time, scores ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := analyzers.Event{ID: id, ActorID: actorID, MessageID: uuid.New(), CreatedAt: at}
	for i, s := range scores {
		ev.Anomalies = append(ev.Anomalies, analyzers.Anomaly{
			ID: id*100 + int64(i), EventID: id, FieldID: int64(i + 1), Score: s,
		})
	}
	m.events = append(m.events, &memEvent{ev: ev, profileID: profileID})
}

func (m *memInvStorage) OpenInvestigation(_ context.Context, profileID int64) (*domain.Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invs {
		if inv.ProfileID == profileID && inv.Status == domain.StatusOpen {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memInvStorage) Watermark(_ context.Context, profileID int64) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var wm time.Time
	found := false
	for _, inv := range m.invs {
		if inv.ProfileID == profileID && inv.Status == domain.StatusCompleted && inv.WindowEnd.After(wm) {
			wm = inv.WindowEnd
			found = true
		}
	}
	return wm, found, nil
}

func (m *memInvStorage) FirstEventAt(_ context.Context, profileID int64) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first time.Time
	found := false
	for _, e := range m.events {
		if e.profileID != profileID {
			continue
		}
		if !found || e.ev.CreatedAt.Before(first) {
			first = e.ev.CreatedAt
			found = true
		}
	}
	return first, found, nil
}

func (m *memInvStorage) CreateInvestigation(
	_ context.Context, profileID int64, start, end time.Time,
) (domain.Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextInv++
	inv := &domain.Investigation{
		ID: m.nextInv, ProfileID: profileID,
		WindowStart: start, WindowEnd: end,
		Status: domain.StatusOpen, CreatedAt: time.Now(),
	}
	m.invs[inv.ID] = inv
	cp := *inv
	return cp, nil
}

func (m *memInvStorage) CollectEvents(
	_ context.Context, profileID, investigationID int64, start, end time.Time,
) ([]analyzers.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []analyzers.Event
	for _, e := range m.events {
		if e.profileID != profileID {
			continue
		}
		if e.ev.CreatedAt.Before(start) || !e.ev.CreatedAt.Before(end) {
			continue
		}
		if e.invID != nil && *e.invID != investigationID {
			continue
		}
		out = append(out, e.ev)
	}
	return out, nil
}

func (m *memInvStorage) AssignEvents(_ context.Context, investigationID int64, eventIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range eventIDs {
		for _, e := range m.events {
			if e.ev.ID == id && e.invID == nil {
				inv := investigationID
				e.invID = &inv
			}
		}
	}
	return nil
}

func (m *memInvStorage) MarkMalicious(_ context.Context, anomalyIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range anomalyIDs {
		m.malicious[id] = true
	}
	return nil
}

func (m *memInvStorage) MaliciousRecords(_ context.Context, investigationID int64) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Record
	for _, e := range m.events {
		if e.invID == nil || *e.invID != investigationID {
			continue
		}
		for _, an := range e.ev.Anomalies {
			if !m.malicious[an.ID] {
				continue
			}
			out = append(out, domain.Record{
				EventID: e.ev.ID, MessageID: e.ev.MessageID, ActorID: e.ev.ActorID,
				EventCreatedAt: e.ev.CreatedAt, AnomalyID: an.ID, FieldID: an.FieldID, Score: an.Score,
			})
		}
	}
	return out, nil
}

func (m *memInvStorage) CompleteInvestigation(_ context.Context, investigationID int64, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failComplete > 0 {
		m.failComplete--
		return errors.New("storage down")
	}
	inv, ok := m.invs[investigationID]
	if !ok || inv.Status != domain.StatusOpen {
		return errors.New("not open")
	}
	inv.Status = domain.StatusCompleted
	inv.CompletedAt = &completedAt
	return nil
}

type memTx struct{}

func (memTx) Tx(_ context.Context, fn func(q repokit.Queryer) error) error { return fn(nil) }

func (memTx) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errors.New("memTx: direct exec not supported")
}

func (memTx) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("memTx: direct query not supported")
}

func (memTx) QueryRow(context.Context, string, ...any) repokit.Row { return nil }

type memBinder struct{ st repo.Storage }

func (b memBinder) Bind(repokit.Queryer) repo.Storage { return b.st }

// capShipper records shipments, optionally failing first
type capShipper struct {
	mu       sync.Mutex
	batches  [][]domain.Record
	failures int
}

func (c *capShipper) Name() string { return "capture" }

func (c *capShipper) Ship(_ context.Context, _ domain.Investigation, recs []domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("downstream unavailable")
	}
	c.batches = append(c.batches, recs)
	return nil
}

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newInvestigator(t *testing.T, st *memInvStorage, sh []domain.Shipper, now time.Time) *Service {
	t.Helper()
	binder := memBinder{st: st}
	collector, err := NewCollector("time-range", memTx{}, repokit.Binder[repo.Storage](binder), 60*time.Second)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	analyzer, err := analyzers.New(analyzers.ExpDecayName, nil)
	if err != nil {
		t.Fatalf("analyzers.New: %v", err)
	}
	return New(*logger.Get(), memTx{}, binder, collector, analyzer, sh, Config{
		ProfileIDs: []int64{1},
		Interval:   time.Second,
		now:        func() time.Time { return now },
	})
}

func TestRunOnceAnalyzesWindowAndShips(t *testing.T) {
	st := newMemInvStorage()
	st.addEvent(1, 1, 7, base.Add(5*time.Second), 1.0)
	st.addEvent(2, 1, 7, base.Add(10*time.Second), 0.9)
	sh := &capShipper{}

	svc := newInvestigator(t, st, []domain.Shipper{sh}, base.Add(5*time.Minute))
	out, err := svc.RunOnce(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.Skipped || out.Resumed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Collected != 2 || out.Malicious != 2 {
		t.Fatalf("collected/malicious = %d/%d, want 2/2", out.Collected, out.Malicious)
	}
	if got := out.Investigation.WindowStart; !got.Equal(base.Add(5 * time.Second)) {
		t.Fatalf("window anchored at %v, want first event time", got)
	}
	if len(sh.batches) != 1 || len(sh.batches[0]) != 2 {
		t.Fatalf("shipped batches = %+v, want one batch of 2", sh.batches)
	}
}

func TestWindowsTileWithoutGapOrOverlap(t *testing.T) {
	st := newMemInvStorage()
	st.addEvent(1, 1, 7, base, 0.2)
	svc := newInvestigator(t, st, nil, base.Add(10*time.Minute))
	ctx := context.Background()

	var prev domain.Outcome
	for i := 0; i < 4; i++ {
		out, err := svc.RunOnce(ctx, 1)
		if err != nil {
			t.Fatalf("RunOnce %d: %v", i, err)
		}
		if out.Skipped {
			t.Fatalf("run %d skipped", i)
		}
		win := out.Investigation.WindowEnd.Sub(out.Investigation.WindowStart)
		if win != 60*time.Second {
			t.Fatalf("run %d window = %v, want 60s", i, win)
		}
		if i > 0 && !out.Investigation.WindowStart.Equal(prev.Investigation.WindowEnd) {
			t.Fatalf("gap or overlap: end(%d)=%v start(%d)=%v",
				i-1, prev.Investigation.WindowEnd, i, out.Investigation.WindowStart)
		}
		prev = out
	}
}

// no new events: collected set empty, watermark still advances one window
func TestEmptyWindowStillAdvancesWatermark(t *testing.T) {
	st := newMemInvStorage()
	st.addEvent(1, 1, 7, base, 0.5)
	svc := newInvestigator(t, st, nil, base.Add(10*time.Minute))
	ctx := context.Background()

	first, err := svc.RunOnce(ctx, 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	second, err := svc.RunOnce(ctx, 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if second.Collected != 0 {
		t.Fatalf("second run collected %d, want 0", second.Collected)
	}
	if !second.Investigation.WindowStart.Equal(first.Investigation.WindowEnd) {
		t.Fatal("second window does not start at first window's end")
	}
	if second.Investigation.WindowEnd.Sub(second.Investigation.WindowStart) != 60*time.Second {
		t.Fatal("empty window did not advance by one window length")
	}
}

func TestWindowNeverExtendsBeyondNow(t *testing.T) {
	st := newMemInvStorage()
	st.addEvent(1, 1, 7, base, 0.5)
	// now is only 20s past the first event
	svc := newInvestigator(t, st, nil, base.Add(20*time.Second))

	out, err := svc.RunOnce(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !out.Investigation.WindowEnd.Equal(base.Add(20 * time.Second)) {
		t.Fatalf("window end = %v, want clamped to now", out.Investigation.WindowEnd)
	}
}

func TestNothingToAnchorSkips(t *testing.T) {
	st := newMemInvStorage()
	svc := newInvestigator(t, st, nil, base)

	out, err := svc.RunOnce(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !out.Skipped {
		t.Fatal("expected skip with no events and no epoch")
	}
}

func TestFailureLeavesWindowOpenAndResumes(t *testing.T) {
	st := newMemInvStorage()
	st.addEvent(1, 1, 7, base.Add(time.Second), 1.0)
	sh := &capShipper{failures: 1}
	svc := newInvestigator(t, st, []domain.Shipper{sh}, base.Add(5*time.Minute))
	ctx := context.Background()

	if _, err := svc.RunOnce(ctx, 1); err == nil {
		t.Fatal("expected shipping failure")
	}

	out, err := svc.RunOnce(ctx, 1)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !out.Resumed {
		t.Fatal("expected resume of the open investigation")
	}
	if out.Collected != 1 || len(sh.batches) != 1 {
		t.Fatalf("resume collected %d, shipped %d batches; want 1 and 1", out.Collected, len(sh.batches))
	}
	// the same window, not a new overlapping one
	if got := len(st.invs); got != 1 {
		t.Fatalf("investigations = %d, want 1", got)
	}
}

func TestEventsAssignedToExactlyOneInvestigation(t *testing.T) {
	st := newMemInvStorage()
	st.addEvent(1, 1, 7, base.Add(time.Second), 0.4)
	svc := newInvestigator(t, st, nil, base.Add(10*time.Minute))
	ctx := context.Background()

	first, err := svc.RunOnce(ctx, 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if first.Collected != 1 {
		t.Fatalf("first run collected %d, want 1", first.Collected)
	}
	second, err := svc.RunOnce(ctx, 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if second.Collected != 0 {
		t.Fatalf("event re-collected by run 2 (%d)", second.Collected)
	}
	if st.events[0].invID == nil || *st.events[0].invID != first.Investigation.ID {
		t.Fatal("event not assigned to its investigation")
	}
}

func TestEpochAnchorsFirstWindow(t *testing.T) {
	st := newMemInvStorage()
	epoch := base.Add(-time.Hour)
	binder := memBinder{st: st}
	collector, _ := NewCollector("time-range", memTx{}, repokit.Binder[repo.Storage](binder), 60*time.Second)
	analyzer, _ := analyzers.New(analyzers.ExpDecayName, nil)
	svc := New(*logger.Get(), memTx{}, binder, collector, analyzer, nil, Config{
		ProfileIDs: []int64{1},
		Interval:   time.Second,
		Epoch:      epoch,
		now:        func() time.Time { return base },
	})

	out, err := svc.RunOnce(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !out.Investigation.WindowStart.Equal(epoch) {
		t.Fatalf("window start = %v, want epoch %v", out.Investigation.WindowStart, epoch)
	}
}
