// Package module wires the pipeline service
package module

import (
	"warden/internal/modkit"
	"warden/internal/platform/validate"
	featdom "warden/internal/services/features/domain"
	"warden/internal/services/pipeline/domain"
	"warden/internal/services/pipeline/repo"
	"warden/internal/services/pipeline/service"
	profdom "warden/internal/services/profiles/domain"
)

// Ports exposed by the pipeline module
type Ports struct {
	Submit domain.SubmitPort
	Runner domain.RunnerPort
}

// Module implements the pipeline service module
type Module struct {
	deps  modkit.Deps
	svc   *service.Service
	ports Ports
}

// New constructs a new pipeline module. Option validation failures are
// fatal configuration errors
func New(deps modkit.Deps, recorder featdom.RecorderPort, profiles []profdom.Synced) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	svc := service.New(deps.Log, deps.PG, repo.NewPG(), recorder, profiles, service.Config{
		QueueSize: opts.QueueSize,
		Timeout:   opts.Timeout,
	})

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Submit: svc, Runner: svc}
	return m, nil
}

// Name satisfies the module contract
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }

// Service exposes the concrete service for transport wiring
func (m *Module) Service() *service.Service { return m.svc }
