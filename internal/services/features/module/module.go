// Package module wires the features service
package module

import (
	"warden/internal/modkit"
	"warden/internal/services/features/domain"
	"warden/internal/services/features/repo"
	"warden/internal/services/features/service"
)

// Ports exposed by the features module
type Ports struct {
	Recorder domain.RecorderPort
}

// Module implements the features service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new features module
func New(deps modkit.Deps) *Module {
	svc := service.New(deps.PG, repo.NewPG())

	m := &Module{deps: deps}
	m.ports = Ports{Recorder: svc}
	return m
}

// Name satisfies the module contract
func (m *Module) Name() string { return "features" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }
