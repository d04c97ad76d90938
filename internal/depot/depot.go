// Package depot persists the fleet configuration snapshot to disk.
//
// The snapshot is a single JSON document written atomically: a rename
// over the previous file, so a crash mid-save never leaves a truncated
// configuration behind. Live state (speeds, function masks) is not part
// of the snapshot and is lost on restart on purpose.
package depot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pascal-fb-martin/housedcc/internal/fleet"
)

// ErrNoSnapshot is returned by Load when no snapshot file exists yet.
var ErrNoSnapshot = errors.New("depot: no snapshot")

// Logger defines the logging interface used by the Depot.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Depot stores fleet snapshots at a fixed path.
// Save and Load are safe for concurrent use.
type Depot struct {
	mu     sync.Mutex
	path   string
	logger Logger
}

// New creates a depot writing to the given path.
func New(path string) *Depot {
	return &Depot{path: path, logger: noopLogger{}}
}

// SetLogger sets the logger for the depot.
func (d *Depot) SetLogger(logger Logger) {
	d.logger = logger
}

// Path returns the snapshot file path.
func (d *Depot) Path() string {
	return d.path
}

// Save writes the snapshot atomically: temp file in the same directory,
// fsync, rename.
func (d *Depot) Save(snapshot fleet.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating depot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fleet-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	d.logger.Debug("snapshot saved", "path", d.path, "bytes", len(data))
	return nil
}

// Load reads the snapshot file. ErrNoSnapshot means a fresh install,
// not a failure.
func (d *Depot) Load() (fleet.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fleet.Snapshot{}, ErrNoSnapshot
		}
		return fleet.Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot fleet.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fleet.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snapshot, nil
}
