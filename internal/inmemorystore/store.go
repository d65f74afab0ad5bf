package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // Key: task ID, Value: node.Status
	results sync.Map // Key: task ID, Value: node.Result
	errors  sync.Map // Key: task ID, Value: error
}

// New creates a new, empty in-memory store.
func New() nodestore.Store {
	return &Store{}
}

// GetStatus retrieves the status of a task, StatusPending if unset.
func (s *Store) GetStatus(ctx context.Context, id string) (node.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// Transition moves the task to `to` if the state machine allows it.
func (s *Store) Transition(ctx context.Context, id string, to node.Status) error {
	for {
		current, loaded := s.states.LoadOrStore(id, node.StatusPending)
		from := node.StatusPending
		if loaded {
			from = current.(node.Status)
		}
		if !node.CanTransition(from, to) {
			return &node.TransitionError{ID: id, From: from, To: to}
		}
		if s.states.CompareAndSwap(id, from, to) {
			return nil
		}
	}
}

// SetResult records the result of a task.
func (s *Store) SetResult(ctx context.Context, id string, result node.Result) error {
	s.results.Store(id, result)
	return nil
}

// GetResult retrieves the recorded result of a task.
func (s *Store) GetResult(ctx context.Context, id string) (node.Result, error) {
	result, ok := s.results.Load(id)
	if !ok {
		return node.Result{}, nil
	}
	return result.(node.Result), nil
}

// SetError records the cause of a failure or skip.
func (s *Store) SetError(ctx context.Context, id string, cause error) error {
	s.errors.Store(id, cause)
	return nil
}

// GetError retrieves the recorded cause of a task.
func (s *Store) GetError(ctx context.Context, id string) (error, error) {
	cause, ok := s.errors.Load(id)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return cause.(error), nil
}
