// Package module wires the investigation service
package module

import (
	"time"

	"warden/internal/core/analyzers"
	"warden/internal/modkit"
	"warden/internal/platform/validate"
	"warden/internal/services/investigate/domain"
	"warden/internal/services/investigate/repo"
	"warden/internal/services/investigate/service"
)

// Ports exposed by the investigate module
type Ports struct {
	Investigator domain.InvestigatorPort
}

// Module implements the investigate service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new investigate module. Option validation failures and
// unresolvable plugin names are fatal configuration errors
func New(deps modkit.Deps, profileIDs []int64, shippers []domain.Shipper) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	binder := repo.NewPG()
	collector, err := service.NewCollector(
		opts.Collector, deps.PG, binder,
		time.Duration(opts.WindowSeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}
	analyzer, err := analyzers.New(opts.Analyzer, opts.AnalyzerOpts)
	if err != nil {
		return nil, err
	}

	svc := service.New(deps.Log, deps.PG, binder, collector, analyzer, shippers, service.Config{
		ProfileIDs: profileIDs,
		Interval:   opts.Interval,
		Epoch:      opts.Epoch,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Investigator: svc}
	return m, nil
}

// Name satisfies the module contract
func (m *Module) Name() string { return "investigate" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }
