package controller

import (
	"sync/atomic"

	"github.com/oshokin/gpufan/internal/domain/fan"
)

// ReloadablePolicy resolves through the most recently stored speed table.
// Store may be called from another goroutine while the loop resolves.
type ReloadablePolicy struct {
	table atomic.Pointer[fan.SpeedTable]
}

// NewReloadablePolicy creates a policy starting with table.
func NewReloadablePolicy(table *fan.SpeedTable) *ReloadablePolicy {
	p := new(ReloadablePolicy)
	p.table.Store(table)

	return p
}

// Resolve implements SpeedPolicy.
func (p *ReloadablePolicy) Resolve(temperature int) (int, error) {
	return p.table.Load().Resolve(temperature)
}

// Store replaces the table used by later Resolve calls.
func (p *ReloadablePolicy) Store(table *fan.SpeedTable) {
	p.table.Store(table)
}
