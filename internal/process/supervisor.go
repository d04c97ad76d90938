package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a supervised process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
)

// stderrBufferSize is the buffer size for capturing subprocess stderr.
const stderrBufferSize = 4096

// Config holds configuration for a supervised subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// RestartOnExit enables automatic relaunch when the process exits
	// without Stop having been requested.
	RestartOnExit bool

	// RestartDelay is the constant interval between an exit and the
	// relaunch. There is no backoff: a worker that keeps dying is
	// retried at this cadence indefinitely.
	RestartDelay time.Duration

	// GracefulTimeout is how long to wait for graceful shutdown before SIGKILL.
	GracefulTimeout time.Duration

	// OnStart is called after each successful launch with the process's
	// stdin and stdout pipes. The callee owns reading stdout; stderr is
	// drained and logged by the supervisor.
	OnStart func(stdin io.WriteCloser, stdout io.ReadCloser)

	// OnExit is called when the process exits, with the exit error if
	// any. It runs before any relaunch is scheduled.
	OnExit func(err error)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(name, binary string, args []string) Config {
	return Config{
		Name:            name,
		Binary:          binary,
		Args:            args,
		RestartOnExit:   true,
		RestartDelay:    5 * time.Second,
		GracefulTimeout: 10 * time.Second,
	}
}

// Logger defines the logging interface for the supervisor.
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

// Supervisor manages the lifecycle of a pipe-connected subprocess.
//
// Unlike a plain daemon wrapper, the supervised process is a worker the
// parent talks to over stdin/stdout. The pipes of each launch are
// handed to the OnStart callback; after an exit the worker is relaunched
// at a constant interval and OnStart runs again with fresh pipes.
type Supervisor struct {
	config Config
	logger Logger

	mu            sync.RWMutex
	cmd           *exec.Cmd
	status        Status
	restartCount  int
	lastError     error
	startTime     time.Time
	stopRequested bool

	done chan struct{}
}

// New creates a new supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	// Apply defaults for zero values
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = 5 * time.Second
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}

	return &Supervisor{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the subprocess and begins monitoring it.
// Returns an error if the first launch fails; later exits are handled
// by the relaunch loop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusRunning || s.status == StatusStarting {
		s.mu.Unlock()
		return fmt.Errorf("process %s is already running", s.config.Name)
	}
	s.status = StatusStarting
	s.stopRequested = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.startProcess(ctx); err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.lastError = err
		s.mu.Unlock()
		return err
	}

	go s.monitor(ctx)

	return nil
}

// startProcess actually starts the subprocess and wires its pipes.
func (s *Supervisor) startProcess(ctx context.Context) error {
	s.logger.Info("starting process",
		"name", s.config.Name,
		"binary", s.config.Binary,
		"args", s.config.Args,
	)

	cmd := exec.CommandContext(ctx, s.config.Binary, s.config.Args...) //nolint:gosec // Binary path comes from validated configuration

	// Create a new process group so we can signal all children on shutdown
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if s.config.Env != nil {
		cmd.Env = append(os.Environ(), s.config.Env...)
	}
	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.config.Name, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.status = StatusRunning
	s.startTime = time.Now()
	s.mu.Unlock()

	go s.captureStderr(stderr)

	s.logger.Info("process started",
		"name", s.config.Name,
		"pid", cmd.Process.Pid,
	)

	if s.config.OnStart != nil {
		s.config.OnStart(stdin, stdout)
	}

	return nil
}

// captureStderr reads the worker's stderr and logs each chunk.
func (s *Supervisor) captureStderr(r io.Reader) {
	buf := make([]byte, stderrBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.logger.Debug("process stderr",
				"name", s.config.Name,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

// monitor watches the process and handles relaunches.
func (s *Supervisor) monitor(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.RLock()
		cmd := s.cmd
		s.mu.RUnlock()

		if cmd == nil {
			return
		}

		err := cmd.Wait()

		s.mu.Lock()
		stopRequested := s.stopRequested
		s.mu.Unlock()

		if stopRequested {
			s.logger.Info("process stopped as requested", "name", s.config.Name)
			s.mu.Lock()
			s.status = StatusStopped
			s.mu.Unlock()
			if s.config.OnExit != nil {
				s.config.OnExit(nil)
			}
			return
		}

		s.logger.Warn("process exited unexpectedly",
			"name", s.config.Name,
			"error", err,
		)

		s.mu.Lock()
		s.lastError = err
		s.status = StatusFailed
		s.mu.Unlock()

		if s.config.OnExit != nil {
			s.config.OnExit(err)
		}

		if !s.config.RestartOnExit {
			s.logger.Info("relaunch disabled, not restarting", "name", s.config.Name)
			return
		}

		s.mu.Lock()
		s.restartCount++
		attempt := s.restartCount
		s.mu.Unlock()

		s.logger.Info("relaunching process",
			"name", s.config.Name,
			"attempt", attempt,
			"delay", s.config.RestartDelay,
		)

		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, not restarting", "name", s.config.Name)
			return
		case <-time.After(s.config.RestartDelay):
		}

		// Stop may have been requested during the delay.
		s.mu.RLock()
		stopRequested = s.stopRequested
		s.mu.RUnlock()
		if stopRequested {
			return
		}

		// Keep launching at the same cadence until one attempt sticks.
		for {
			if err := s.startProcess(ctx); err == nil {
				break
			} else {
				s.logger.Error("failed to relaunch process",
					"name", s.config.Name,
					"error", err,
				)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.config.RestartDelay):
			}
			s.mu.RLock()
			stopRequested = s.stopRequested
			s.mu.RUnlock()
			if stopRequested {
				return
			}
		}
	}
}

// Stop gracefully stops the subprocess.
// It sends SIGTERM and waits for graceful shutdown, then SIGKILL if needed.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.status != StatusRunning && s.status != StatusStarting {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	cmd := s.cmd
	done := s.done // Capture done channel under lock to avoid race
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return nil
	}

	pid := cmd.Process.Pid
	s.logger.Info("stopping process", "name", s.config.Name, "pid", pid)

	// Signal the whole process group (created via Setpgid).
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			s.logger.Warn("failed to send SIGTERM to process group", "name", s.config.Name, "error", err)
		}
	}

	select {
	case <-done:
		s.logger.Info("process stopped gracefully", "name", s.config.Name)
		return nil
	case <-time.After(s.config.GracefulTimeout):
		s.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", s.config.Name,
			"timeout", s.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("killing process group %s: %w", s.config.Name, err)
		}
	}

	<-done
	s.logger.Info("process killed", "name", s.config.Name)

	return nil
}

// Status returns the current status of the supervised process.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsRunning returns true if the process is currently running.
func (s *Supervisor) IsRunning() bool {
	return s.Status() == StatusRunning
}

// LastError returns the last error that caused the process to exit.
func (s *Supervisor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// RestartCount returns the number of times the process has been relaunched.
func (s *Supervisor) RestartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restartCount
}

// Uptime returns how long the process has been running.
// Returns 0 if the process is not running.
func (s *Supervisor) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusRunning {
		return 0
	}
	return time.Since(s.startTime)
}

// PID returns the process ID, or 0 if not running.
func (s *Supervisor) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cmd != nil && s.cmd.Process != nil {
		return s.cmd.Process.Pid
	}
	return 0
}

// Stats holds statistics about the supervised process.
type Stats struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Name:         s.config.Name,
		Status:       s.status,
		RestartCount: s.restartCount,
	}

	if s.cmd != nil && s.cmd.Process != nil {
		stats.PID = s.cmd.Process.Pid
	}
	if s.status == StatusRunning {
		stats.Uptime = time.Since(s.startTime)
	}
	if s.lastError != nil {
		stats.LastError = s.lastError.Error()
	}

	return stats
}
