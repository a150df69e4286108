// Package reporters scores single feature observations against an actor's
// accumulated history. A reporter is a pure function over the observation;
// storage access happens upstream in the feature store
package reporters

import (
	"sort"
	"sync"

	perr "warden/internal/platform/errors"
)

// Observation is one recorded (actor, field, value) occurrence together
// with the history it is judged against. Counts are post-increment: the
// occurrence being scored is already included
type Observation struct {
	// Count of the observed value for this actor and field, current
	// occurrence included. Count == 1 means first sight
	Count int64

	// NullCount is how often the field was absent for this actor
	NullCount int64

	// Siblings are the per-value counts for this actor and field,
	// the observed value's count included
	Siblings []int64
}

// Total sums all known occurrences for the actor and field
func (o Observation) Total() int64 {
	var t int64 = o.NullCount
	for _, c := range o.Siblings {
		t += c
	}
	return t
}

// Func scores an observation into [0, 1]; higher means more anomalous
type Func func(Observation) float64

// Weighted scales fn by w and clamps back into [0, 1]
func Weighted(fn Func, w float64) Func {
	return func(o Observation) float64 {
		return clamp(fn(o) * w)
	}
}

// Mandatory treats the field as expected on every message. A never-seen
// value is maximally anomalous; a value at or above the actor's mean
// frequency is normal; anything between scales with relative frequency
func Mandatory(o Observation) float64 {
	if o.Count <= 1 {
		return 1
	}
	var sum int64
	for _, c := range o.Siblings {
		sum += c
	}
	if len(o.Siblings) == 0 || sum <= 0 {
		return 1
	}
	mean := float64(sum) / float64(len(o.Siblings))
	if float64(o.Count) >= mean {
		return 0
	}
	return clamp(1 - float64(o.Count)/float64(sum))
}

// Optional treats the field as legitimately absent. Repeats are normal;
// a first-seen value scores by how often the actor omitted the field,
// and with no history at all it is maximally anomalous
func Optional(o Observation) float64 {
	if o.Count > 1 {
		return 0
	}
	prior := o.Total() - 1
	if prior <= 0 {
		return 1
	}
	return clamp(float64(o.NullCount) / float64(prior))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var (
	regMu    sync.RWMutex
	registry = map[string]Func{
		"mandatory": Mandatory,
		"optional":  Optional,
	}
)

// Register adds a named reporter. Re-registering a name panics early
// since it is always a wiring bug
func Register(name string, fn Func) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("reporters: duplicate registration for " + name)
	}
	registry[name] = fn
}

// Resolve returns the reporter registered under name
func Resolve(name string) (Func, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	fn, ok := registry[name]
	if !ok {
		return nil, perr.Configf("unknown reporter %q (have %v)", name, names())
	}
	return fn, nil
}

func names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
