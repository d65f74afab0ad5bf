// Package statetracker remembers input fingerprints of successful tasks
// between runs so unchanged tasks can be reported up to date without running
// their action.
package statetracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/fsutil"
	"github.com/specialistvlad/buildgrid/internal/task"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the state file name used when none is configured.
const DefaultFile = ".build/buildgrid-state.yaml"

const fileVersion = 1

// Entry is the persisted record of a task's last successful run.
type Entry struct {
	Fingerprint string    `yaml:"fingerprint"`
	RecordedAt  time.Time `yaml:"recorded_at"`
}

type stateFile struct {
	Version int              `yaml:"version"`
	Tasks   map[string]Entry `yaml:"tasks"`
}

// Tracker is a YAML-backed executor.StateTracker. It is safe for
// concurrent use by workers.
type Tracker struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// Open loads the state file at path. A missing file yields an empty tracker.
func Open(path string) (*Tracker, error) {
	t := &Tracker{path: path, entries: make(map[string]Entry)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var sf stateFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	if sf.Version != fileVersion {
		// An unknown layout is treated as no state at all.
		return t, nil
	}
	for id, e := range sf.Tasks {
		t.entries[id] = e
	}
	return t, nil
}

// Path returns the location of the state file.
func (t *Tracker) Path() string { return t.path }

// Check fingerprints the task's inputs and reports whether they match the
// last successful run and every declared output still exists.
func (t *Tracker) Check(ctx context.Context, tk *task.Task) (string, bool, error) {
	fingerprint, err := Fingerprint(tk)
	if err != nil {
		return "", false, err
	}

	t.mu.Lock()
	prev, ok := t.entries[tk.ID()]
	t.mu.Unlock()
	if !ok || prev.Fingerprint != fingerprint {
		return fingerprint, false, nil
	}

	present, err := outputsExist(tk)
	if err != nil {
		return "", false, err
	}
	if !present {
		ctxlog.FromContext(ctx).Debug("Inputs unchanged but outputs are missing.")
	}
	return fingerprint, present, nil
}

// Record stores the fingerprint of a successful run.
func (t *Tracker) Record(_ context.Context, tk *task.Task, fingerprint string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[tk.ID()] = Entry{Fingerprint: fingerprint, RecordedAt: time.Now().UTC()}
	t.dirty = true
	return nil
}

// Entry returns the recorded state of the task at id.
func (t *Tracker) Entry(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// Flush writes the state file if anything was recorded since Open.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}

	raw, err := yaml.Marshal(stateFile{Version: fileVersion, Tasks: t.entries})
	if err != nil {
		return fmt.Errorf("encoding state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	t.dirty = false
	return nil
}

// Fingerprint hashes the task's address, its declared outputs and the
// path and content of every file matched by its input globs.
func Fingerprint(tk *task.Task) (string, error) {
	files, err := fsutil.ExpandGlobs(tk.Dir(), tk.Inputs())
	if err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "task\x00%s\x00", tk.ID())
	for _, out := range tk.Outputs() {
		fmt.Fprintf(h, "output\x00%s\x00", out)
	}
	for _, path := range files {
		rel, err := filepath.Rel(tk.Dir(), path)
		if err != nil {
			rel = path
		}
		fmt.Fprintf(h, "input\x00%s\x00", filepath.ToSlash(rel))
		if err := hashFile(h, path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func outputsExist(tk *task.Task) (bool, error) {
	for _, out := range tk.Outputs() {
		if !filepath.IsAbs(out) {
			out = filepath.Join(tk.Dir(), out)
		}
		matches, err := filepath.Glob(out)
		if err != nil {
			return false, err
		}
		if len(matches) == 0 {
			return false, nil
		}
	}
	return true, nil
}
