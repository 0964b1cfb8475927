package gateway

import (
	"context"
	"fmt"
	"net/url"

	"boipoka/internal/commerce"
)

// Manager is a registry of adapters keyed by payment method.
type Manager struct {
	adapters map[commerce.Method]Adapter
}

func NewManager() *Manager {
	return &Manager{adapters: make(map[commerce.Method]Adapter)}
}

func (m *Manager) Register(a Adapter) {
	m.adapters[a.Method()] = a
}

func (m *Manager) Begin(ctx context.Context, method commerce.Method, req BeginRequest) (*Handoff, error) {
	a, ok := m.adapters[method]
	if !ok {
		return nil, fmt.Errorf("gateway not registered: %s", method)
	}
	return a.Begin(ctx, req)
}

// ParseReturn dispatches a provider callback to its adapter. An unknown
// method yields an error event rather than a panic: callback URLs are
// attacker-reachable.
func (m *Manager) ParseReturn(method commerce.Method, route ReturnRoute, q url.Values) Event {
	a, ok := m.adapters[method]
	if !ok {
		return Event{Method: method, Outcome: OutcomeError, Reason: "gateway not registered"}
	}
	p, ok := a.(ReturnParser)
	if !ok {
		return Event{Method: method, Outcome: OutcomeError, Reason: "gateway has no return surface"}
	}
	return p.ParseReturn(route, q)
}

func (m *Manager) Confirm(ctx context.Context, method commerce.Method, req BeginRequest) (Event, error) {
	a, ok := m.adapters[method]
	if !ok {
		return Event{}, fmt.Errorf("gateway not registered: %s", method)
	}
	c, ok := a.(Confirmer)
	if !ok {
		return Event{}, fmt.Errorf("gateway %s does not support confirmation", method)
	}
	return c.Confirm(ctx, req), nil
}
