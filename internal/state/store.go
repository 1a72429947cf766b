// Package state persists the desired set of pinned routes and keeps a
// journal of reconciliation runs.
//
// The desired state is a single JSON record written with write-then-rename so
// a crash never leaves a partially written file behind. Loading is forgiving:
// a missing or malformed file yields an empty, never-anchored state.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"grimm.is/routepin/internal/logging"
)

// DefaultFileName is the state file created in the user's home directory.
const DefaultFileName = "routes.json"

// ErrEmptyInput is returned when an operation receives nothing to act on.
var ErrEmptyInput = errors.New("input cannot be empty")

// PersistenceError reports that the desired state could not be written.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save state to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store reads and writes DesiredState at a fixed path. It does no locking;
// the reconciler is its only writer.
type Store struct {
	path   string
	logger *logging.Logger
}

// DefaultPath returns ~/routes.json, falling back to the working directory
// when the home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// NewStore creates a store for path.
func NewStore(path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.WithComponent("state")
	}
	return &Store{path: path, logger: logger}
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Load reads the persisted state. It never fails: absence or corruption
// yields Empty().
func (s *Store) Load() DesiredState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cannot read state file, starting empty", "path", s.path, "error", err)
		}
		return Empty()
	}

	// Both keys must be present for the record to be trusted.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		s.logger.Warn("malformed state file, starting empty", "path", s.path, "error", err)
		return Empty()
	}
	if _, ok := probe["gateway"]; !ok {
		s.logger.Warn("state file missing gateway, starting empty", "path", s.path)
		return Empty()
	}
	if _, ok := probe["routes"]; !ok {
		s.logger.Warn("state file missing routes, starting empty", "path", s.path)
		return Empty()
	}

	var st DesiredState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("malformed state file, starting empty", "path", s.path, "error", err)
		return Empty()
	}
	st.normalize()

	s.logger.Debug("loaded state", "path", s.path, "gateway", st.GatewayString(), "routes", len(st.Routes))
	return st
}

// Save writes the full state atomically.
func (s *Store) Save(st DesiredState) error {
	st = st.Clone()

	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	tmpPath := s.path + ".tmp"
	if err := writeSynced(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.path, Err: err}
	}

	s.logger.Debug("saved state", "path", s.path, "gateway", st.GatewayString(), "routes", len(st.Routes))
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
