package scheduler

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
)

// DefaultScheduler is the reference implementation of the Scheduler interface.
type DefaultScheduler struct {
	g       *graph.Graph
	store   nodestore.Store
	held    map[string]string // resource name -> holder task ID
	running int
}

// New creates a scheduler over g that keeps task state in store.
func New(g *graph.Graph, store nodestore.Store) Scheduler {
	return &DefaultScheduler{
		g:     g,
		store: store,
		held:  make(map[string]string),
	}
}

// Next implements the Scheduler interface.
func (s *DefaultScheduler) Next(ctx context.Context) ([]*graph.Node, error) {
	logger := ctxlog.FromContext(ctx)

	for _, n := range s.g.Order() {
		status, err := s.store.GetStatus(ctx, n.ID())
		if err != nil {
			return nil, err
		}
		if status != node.StatusPending {
			continue
		}
		next, cause, err := s.evaluate(ctx, n)
		if err != nil {
			return nil, err
		}
		if next == node.StatusPending {
			continue
		}
		if err := s.store.Transition(ctx, n.ID(), next); err != nil {
			return nil, err
		}
		if cause != nil {
			if err := s.store.SetError(ctx, n.ID(), cause); err != nil {
				return nil, err
			}
		}
		logger.Debug("Task settled.", "task", n.ID(), "status", next.String())
	}

	var ready []*graph.Node
	claimed := make(map[string]bool)
	for _, n := range s.g.Order() {
		status, err := s.store.GetStatus(ctx, n.ID())
		if err != nil {
			return nil, err
		}
		if status != node.StatusReady || !s.available(n, claimed) {
			continue
		}
		for _, r := range n.Task.Resources() {
			claimed[r] = true
		}
		ready = append(ready, n)
	}
	return ready, nil
}

// evaluate decides the next status of a PENDING task. It returns
// StatusPending when the task must keep waiting.
func (s *DefaultScheduler) evaluate(ctx context.Context, n *graph.Node) (next node.Status, cause error, err error) {
	waiting := false
	for _, i := range n.Deps {
		dep := s.g.NodeAt(i)
		status, err := s.store.GetStatus(ctx, dep.ID())
		if err != nil {
			return 0, nil, err
		}
		switch status {
		case node.StatusSucceeded:
		case node.StatusFailed, node.StatusSkipped, node.StatusNotExecuted:
			return node.StatusSkipped, &DependencyError{Dependency: dep.ID(), Status: status}, nil
		default:
			waiting = true
		}
	}
	if waiting {
		return node.StatusPending, nil, nil
	}

	anyRan := false
	for _, i := range n.Finalizes {
		status, err := s.store.GetStatus(ctx, s.g.NodeAt(i).ID())
		if err != nil {
			return 0, nil, err
		}
		if !status.IsTerminal() {
			return node.StatusPending, nil, nil
		}
		anyRan = anyRan || status.Ran()
	}
	if n.Conditional() && !anyRan {
		return node.StatusNotExecuted, nil, nil
	}
	return node.StatusReady, nil, nil
}

func (s *DefaultScheduler) available(n *graph.Node, claimed map[string]bool) bool {
	for _, r := range n.Task.Resources() {
		if _, busy := s.held[r]; busy || claimed[r] {
			return false
		}
	}
	return true
}

// Started implements the Scheduler interface.
func (s *DefaultScheduler) Started(ctx context.Context, id string) error {
	n, ok := s.g.Node(id)
	if !ok {
		return fmt.Errorf("task %s is not part of the graph", id)
	}
	for _, r := range n.Task.Resources() {
		if holder, busy := s.held[r]; busy {
			return fmt.Errorf("task %s: resource %q is held by %s", id, r, holder)
		}
	}
	if err := s.store.Transition(ctx, id, node.StatusRunning); err != nil {
		return err
	}
	for _, r := range n.Task.Resources() {
		s.held[r] = id
	}
	s.running++
	return nil
}

// Finished implements the Scheduler interface.
func (s *DefaultScheduler) Finished(ctx context.Context, id string, status node.Status, cause error) error {
	n, ok := s.g.Node(id)
	if !ok {
		return fmt.Errorf("task %s is not part of the graph", id)
	}
	if err := s.store.Transition(ctx, id, status); err != nil {
		return err
	}
	if cause != nil {
		if err := s.store.SetError(ctx, id, cause); err != nil {
			return err
		}
	}
	for _, r := range n.Task.Resources() {
		if s.held[r] == id {
			delete(s.held, r)
		}
	}
	s.running--
	return nil
}

// Abort implements the Scheduler interface.
func (s *DefaultScheduler) Abort(ctx context.Context, cause error) error {
	for _, n := range s.g.Order() {
		status, err := s.store.GetStatus(ctx, n.ID())
		if err != nil {
			return err
		}
		if status != node.StatusPending && status != node.StatusReady {
			continue
		}
		if err := s.store.Transition(ctx, n.ID(), node.StatusSkipped); err != nil {
			return err
		}
		if err := s.store.SetError(ctx, n.ID(), cause); err != nil {
			return err
		}
	}
	return nil
}

// Running implements the Scheduler interface.
func (s *DefaultScheduler) Running() int {
	return s.running
}

// Done implements the Scheduler interface.
func (s *DefaultScheduler) Done(ctx context.Context) (bool, error) {
	for _, n := range s.g.Nodes() {
		status, err := s.store.GetStatus(ctx, n.ID())
		if err != nil {
			return false, err
		}
		if !status.IsTerminal() {
			return false, nil
		}
	}
	return true, nil
}
