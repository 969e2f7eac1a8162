package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Guard evaluates whether a transition may proceed.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Action runs during a transition before the state changes. Returning an
// error aborts the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Observer is notified after every completed transition.
type Observer[S, E comparable] func(ctx context.Context, from, to S, event E)

type transition[S, E comparable] struct {
	to      S
	guards  []Guard[S, E]
	actions []Action[S, E]
}

// Machine is a thread-safe in-memory finite state machine.
// Transitions are indexed as [from][event] for constant time lookup.
type Machine[S, E comparable] struct {
	initial     S
	current     S
	transitions map[S]map[E][]transition[S, E]
	observers   []Observer[S, E]
	mu          sync.RWMutex
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// Fire applies event to the current state. The first transition whose guards
// all pass wins. Observers run after the state changed and outside the lock.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) error {
	m.mu.Lock()

	from := m.current
	t, err := m.find(ctx, event, data)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, action := range t.actions {
		if err := action(ctx, from, t.to, event, data); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.to
	observers := m.observers
	m.mu.Unlock()

	for _, o := range observers {
		o(ctx, from, t.to, event)
	}
	return nil
}

// CanFire reports whether Fire would find a transition for event.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.find(ctx, event, data)
	return err == nil
}

// Reset returns the machine to its initial state without notifying observers.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// find must be called with the lock held.
func (m *Machine[S, E]) find(ctx context.Context, event E, data any) (*transition[S, E], error) {
	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return nil, NewErrNoTransitionAvailable(m.current, event)
	}

	for i, t := range candidates {
		passed := true
		for _, guard := range t.guards {
			if !guard(ctx, m.current, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &candidates[i], nil
		}
	}

	return nil, NewErrTransitionRejected(m.current, event)
}

func (m *Machine[S, E]) add(from, to S, event E, guards []Guard[S, E], actions []Action[S, E]) {
	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[E][]transition[S, E])
	}
	// Several transitions per (from, event) allow guard-based branching.
	m.transitions[from][event] = append(m.transitions[from][event], transition[S, E]{
		to:      to,
		guards:  guards,
		actions: actions,
	})
}
