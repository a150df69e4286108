// Package module wires the profiles service
package module

import (
	"warden/internal/modkit"
	"warden/internal/services/profiles/domain"
	"warden/internal/services/profiles/repo"
	"warden/internal/services/profiles/service"
)

// Ports exposed by the profiles module
type Ports struct {
	Sync domain.SyncPort
}

// Module implements the profiles service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new profiles module
func New(deps modkit.Deps) *Module {
	svc := service.New(deps.PG, repo.NewPG())

	m := &Module{deps: deps}
	m.ports = Ports{Sync: svc}
	return m
}

// Name satisfies the module contract
func (m *Module) Name() string { return "profiles" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }
