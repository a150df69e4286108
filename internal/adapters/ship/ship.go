// Package ship delivers malicious investigation records to downstream
// sinks. Shippers are fan-out targets: every configured shipper receives
// every completed window's records, at-least-once
package ship

import (
	"sort"
	"sync"

	"warden/internal/platform/config"
	perr "warden/internal/platform/errors"
	"warden/internal/services/investigate/domain"
)

// Factory builds a configured shipper. The Conf is already scoped to the
// shipper config prefix
type Factory func(cfg config.Conf) (domain.Shipper, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a named shipper factory. Duplicate names panic early
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("ship: duplicate registration for " + name)
	}
	registry[name] = f
}

// New resolves name and builds the shipper with cfg
func New(name string, cfg config.Conf) (domain.Shipper, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, perr.Configf("unknown shipper %q (have %v)", name, names())
	}
	return f(cfg)
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
