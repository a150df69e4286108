package domain

import (
	"sort"
	"sync"

	perr "warden/internal/platform/errors"
)

// Factory builds a fresh profile instance
type Factory func() Profile

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a named profile factory. Duplicate names panic early
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("profiles: duplicate registration for " + name)
	}
	registry[name] = f
}

// Resolve builds the profiles for the given names, preserving order
func Resolve(names []string) ([]Profile, error) {
	regMu.RLock()
	defer regMu.RUnlock()

	out := make([]Profile, 0, len(names))
	for _, n := range names {
		f, ok := registry[n]
		if !ok {
			return nil, perr.Configf("unknown profile %q (have %v)", n, registered())
		}
		out = append(out, f())
	}
	return out, nil
}

func registered() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
