package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"warden/internal/core/analyzers"
	"warden/internal/modkit/repokit"
	perr "warden/internal/platform/errors"
	"warden/internal/services/investigate/domain"
	"warden/internal/services/investigate/repo"
)

// CollectorFactory builds a configured collector against storage
type CollectorFactory func(tx repokit.TxRunner, binder repokit.Binder[repo.Storage], window time.Duration) domain.Collector

var (
	colMu       sync.RWMutex
	colRegistry = map[string]CollectorFactory{}
)

// RegisterCollector adds a named collector factory. Duplicates panic early
func RegisterCollector(name string, f CollectorFactory) {
	colMu.Lock()
	defer colMu.Unlock()
	if _, dup := colRegistry[name]; dup {
		panic("investigate: duplicate collector registration for " + name)
	}
	colRegistry[name] = f
}

// NewCollector resolves name and builds the collector
func NewCollector(
	name string,
	tx repokit.TxRunner,
	binder repokit.Binder[repo.Storage],
	window time.Duration,
) (domain.Collector, error) {
	colMu.RLock()
	f, ok := colRegistry[name]
	colMu.RUnlock()
	if !ok {
		names := make([]string, 0, len(colRegistry))
		colMu.RLock()
		for n := range colRegistry {
			names = append(names, n)
		}
		colMu.RUnlock()
		sort.Strings(names)
		return nil, perr.Configf("unknown collector %q (have %v)", name, names)
	}
	return f(tx, binder, window), nil
}

func init() {
	RegisterCollector("time-range", func(
		tx repokit.TxRunner,
		binder repokit.Binder[repo.Storage],
		window time.Duration,
	) domain.Collector {
		if window <= 0 {
			window = 60 * time.Second
		}
		return &timeRange{tx: tx, binder: binder, window: window}
	})
}

// timeRange fetches exactly the caller's window; sequencing lives in the
// investigation
type timeRange struct {
	tx     repokit.TxRunner
	binder repokit.Binder[repo.Storage]
	window time.Duration
}

// Window implements domain.Collector
func (c *timeRange) Window() time.Duration { return c.window }

// Collect implements domain.Collector
func (c *timeRange) Collect(
	ctx context.Context,
	profileID, investigationID int64,
	start, end time.Time,
) ([]analyzers.Event, error) {
	var out []analyzers.Event
	err := c.tx.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = c.binder.Bind(q).CollectEvents(ctx, profileID, investigationID, start, end)
		return err
	})
	return out, err
}
