package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/node"
)

// statusBoard tracks live task states for the status server.
type statusBoard struct {
	mu      sync.Mutex
	runID   string
	order   []string
	status  map[string]node.Status
	causes  map[string]string
	started time.Time
}

var _ executor.Listener = (*statusBoard)(nil)

type taskStatus struct {
	Address string `json:"address"`
	Status  string `json:"status"`
	Cause   string `json:"cause,omitempty"`
}

type runStatus struct {
	RunID   string       `json:"run_id"`
	Elapsed string       `json:"elapsed"`
	Tasks   []taskStatus `json:"tasks"`
}

func newStatusBoard(runID string, g *graph.Graph) *statusBoard {
	b := &statusBoard{
		runID:   runID,
		status:  make(map[string]node.Status, g.Len()),
		causes:  make(map[string]string),
		started: time.Now(),
	}
	for _, n := range g.Order() {
		b.order = append(b.order, n.ID())
		b.status[n.ID()] = node.StatusPending
	}
	return b
}

// TaskStarted implements executor.Listener.
func (b *statusBoard) TaskStarted(_ context.Context, n *graph.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[n.ID()] = node.StatusRunning
}

// TaskFinished implements executor.Listener.
func (b *statusBoard) TaskFinished(_ context.Context, n *graph.Node, status node.Status, _ node.Result, cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[n.ID()] = status
	if cause != nil {
		b.causes[n.ID()] = cause.Error()
	}
}

func (b *statusBoard) snapshot() runStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := runStatus{RunID: b.runID, Elapsed: time.Since(b.started).Round(time.Millisecond).String()}
	for _, id := range b.order {
		out.Tasks = append(out.Tasks, taskStatus{Address: id, Status: b.status[id].String(), Cause: b.causes[id]})
	}
	return out
}

func (b *statusBoard) handler(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(b.snapshot()); err != nil {
			logger.Warn("Failed to write status.", "error", err)
		}
	})
	return mux
}

// statusServer serves the board over HTTP for the duration of a run.
type statusServer struct {
	srv    *http.Server
	addr   net.Addr
	logger *slog.Logger
}

func startStatusServer(addr string, b *statusBoard, logger *slog.Logger) (*statusServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status server: %w", err)
	}
	s := &statusServer{
		srv:    &http.Server{Handler: b.handler(logger), ReadHeaderTimeout: 5 * time.Second},
		addr:   l.Addr(),
		logger: logger,
	}
	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://%s/status", l.Addr()))
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return s, nil
}

func (s *statusServer) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.logger.Debug("Shutting down status server.")
	return s.srv.Shutdown(ctx)
}
