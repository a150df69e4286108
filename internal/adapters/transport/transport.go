// Package transport feeds messages from external sources into the
// ingestion pipeline. Transports push through a submit callback and honor
// its backpressure: a full queue blocks the transport, never drops
package transport

import (
	"context"
	"sort"
	"sync"

	"warden/internal/core/message"
	"warden/internal/platform/config"
	perr "warden/internal/platform/errors"
)

// SubmitFunc hands one message to the pipeline. It blocks while the
// ingestion queue is full
type SubmitFunc = func(ctx context.Context, msg message.Message) error

// Transport produces messages until its source is exhausted or ctx is
// cancelled. Ephemeral transports (file replay) return nil at end of
// input; generators run until cancellation
type Transport interface {
	Name() string
	Run(ctx context.Context, submit SubmitFunc) error
}

// Factory builds a configured transport. The Conf is already scoped to
// the transport's own prefix
type Factory func(cfg config.Conf) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a named transport factory. Duplicate names panic early
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("transport: duplicate registration for " + name)
	}
	registry[name] = f
}

// New resolves name and builds the transport with cfg
func New(name string, cfg config.Conf) (Transport, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, perr.Configf("unknown transport %q (have %v)", name, names())
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
