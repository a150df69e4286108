// Package analyzers decides which scored events in an investigation window
// are malicious. Analyzers are pure: same input, same verdict, no storage
package analyzers

import (
	"sort"
	"sync"
	"time"

	perr "warden/internal/platform/errors"

	"github.com/google/uuid"
)

// Anomaly is one scored field occurrence attached to an event
type Anomaly struct {
	ID        int64
	EventID   int64
	FieldID   int64
	FeatureID int64
	Score     float64
}

// Event is a scored (message, profile) pair with its anomalies
type Event struct {
	ID        int64
	ActorID   int64
	MessageID uuid.UUID
	CreatedAt time.Time
	Anomalies []Anomaly
}

// Analyzer selects the subset of anomalies to flag as malicious.
// Implementations must be deterministic and must never flag an anomaly
// whose score is zero
type Analyzer interface {
	Name() string
	Analyze(events []Event) []Anomaly
}

// Factory builds a configured analyzer from free-form options
type Factory func(opts map[string]any) (Analyzer, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a named analyzer factory. Duplicate names panic early
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("analyzers: duplicate registration for " + name)
	}
	registry[name] = f
}

// New resolves name and builds the analyzer with opts
func New(name string, opts map[string]any) (Analyzer, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, perr.Configf("unknown analyzer %q (have %v)", name, names())
	}
	return f(opts)
}

func names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
