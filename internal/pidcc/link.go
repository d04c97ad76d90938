package pidcc

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pascal-fb-martin/housedcc/internal/dcc"
	"github.com/pascal-fb-martin/housedcc/internal/process"
)

// State is the worker readiness as last reported on stdout.
type State int

// Readiness states.
const (
	// StateIdle means the worker queue is empty; commands flow freely.
	StateIdle State = iota

	// StateBusy means the worker is transmitting but still accepting.
	StateBusy

	// StateQueueFull means the worker refuses new packets; everything
	// except stops is held back.
	StateQueueFull

	// StateError is reserved for a worker that reported a hard fault.
	// Error report lines are logged without entering this state.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateQueueFull:
		return "queue_full"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Receive buffer geometry. The buffer is fixed size: the consumed
// prefix is shifted out once free space runs low, and a full buffer
// without a line terminator is discarded.
const (
	recvBufferSize       = 1024
	recvCompactThreshold = 128
)

// Worker readiness sigils, one per stdout line.
const (
	sigilIdle      = '#'
	sigilBusy      = '%'
	sigilQueueFull = '*'
	sigilError     = '!'
	sigilDebug     = '$'
)

// Logger defines the logging interface used by the Link.
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

// Recorder receives every wire event for the flight recorder.
// Categories: "write", "built", "read", "event", "timeout".
type Recorder interface {
	Record(category, format string, args ...any)
}

// noopRecorder is a recorder that drops everything.
type noopRecorder struct{}

func (noopRecorder) Record(string, string, ...any) {}

// Link owns the pidcc worker and its wire protocol.
//
// All exported methods are safe for concurrent use. Commands are
// serialized under one lock so their order on the wire matches the
// order the callers observed.
type Link struct {
	config   Config
	logger   Logger
	recorder Recorder

	supervisor *process.Supervisor
	runCtx     context.Context

	mu       sync.Mutex
	stdin    io.WriteCloser
	state    State
	deadline time.Time
	buf      [recvBufferSize]byte
	consumer int
	producer int
	started  bool

	stopTick chan struct{}
	tickDone chan struct{}
}

// New creates a link from the configuration. Zero-value durations get
// defaults; the worker is not started until Start.
func New(cfg Config) *Link {
	defaults := DefaultConfig()
	if cfg.Binary == "" {
		cfg.Binary = defaults.Binary
	}
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = defaults.RestartDelay
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = defaults.GracefulTimeout
	}
	if cfg.ReadinessTimeout == 0 {
		cfg.ReadinessTimeout = defaults.ReadinessTimeout
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = defaults.TickInterval
	}

	return &Link{
		config:   cfg,
		logger:   noopLogger{},
		recorder: noopRecorder{},
		stopTick: make(chan struct{}),
		tickDone: make(chan struct{}),
	}
}

// SetLogger sets the logger for the link.
func (l *Link) SetLogger(logger Logger) {
	l.logger = logger
}

// SetRecorder sets the flight recorder sink.
func (l *Link) SetRecorder(recorder Recorder) {
	l.recorder = recorder
}

// Start launches the worker (when pins are configured) and the
// periodic deadline check. The context bounds the worker's lifetime.
func (l *Link) Start(ctx context.Context) error {
	if err := l.config.Validate(); err != nil {
		return err
	}
	l.runCtx = ctx

	go l.tickLoop(ctx)

	if !l.config.configured() {
		l.logger.Info("no gpio pins configured, running dry")
		l.recorder.Record("event", "dry run, no gpio pins configured")
		return nil
	}
	return l.launch(ctx)
}

// launch builds the supervisor and starts the worker.
func (l *Link) launch(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = true
	l.mu.Unlock()

	l.supervisor = process.New(process.Config{
		Name:            "pidcc",
		Binary:          l.config.Binary,
		Args:            l.config.Args,
		RestartOnExit:   true,
		RestartDelay:    l.config.RestartDelay,
		GracefulTimeout: l.config.GracefulTimeout,
		OnStart:         l.attach,
		OnExit:          l.detach,
	})
	if logger, ok := l.logger.(process.Logger); ok {
		l.supervisor.SetLogger(logger)
	}

	if err := l.supervisor.Start(ctx); err != nil {
		l.mu.Lock()
		l.started = false
		l.mu.Unlock()
		return fmt.Errorf("launching pidcc: %w", err)
	}
	return nil
}

// attach wires a fresh worker launch: new pipes, clean receive buffer,
// and the pin configuration replayed so a relaunched worker is never
// left driving nothing.
func (l *Link) attach(stdin io.WriteCloser, stdout io.ReadCloser) {
	l.mu.Lock()
	l.stdin = stdin
	l.state = StateIdle
	l.deadline = time.Time{}
	l.consumer = 0
	l.producer = 0

	l.recorder.Record("event", "worker attached")
	if err := l.send("pin %d %d", l.config.PinA, l.config.PinB); err != nil {
		l.logger.Error("pin configuration failed", "error", err)
	}
	l.mu.Unlock()

	go l.readLoop(stdout)
}

// detach clears the dead worker's pipes. Buffered partial input is
// dropped: the next launch starts from a clean frame boundary.
func (l *Link) detach(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stdin = nil
	l.state = StateIdle
	l.deadline = time.Time{}
	l.consumer = 0
	l.producer = 0

	if err != nil {
		l.recorder.Record("event", "worker exited: %v", err)
	} else {
		l.recorder.Record("event", "worker exited")
	}
}

// Close shuts down the periodic check and the worker.
func (l *Link) Close() error {
	select {
	case <-l.stopTick:
	default:
		close(l.stopTick)
	}
	if l.runCtx != nil {
		<-l.tickDone
	}

	if l.supervisor != nil {
		return l.supervisor.Stop()
	}
	return nil
}

// ConfigurePins sets the GPIO pin pair at runtime.
//
// With a worker already up the new pair is sent immediately; a link
// that was running dry launches the worker now.
func (l *Link) ConfigurePins(pinA, pinB int) error {
	if pinA <= 0 || pinB <= 0 || pinA == pinB {
		return fmt.Errorf("%w: %d, %d", ErrInvalidPins, pinA, pinB)
	}

	l.mu.Lock()
	l.config.PinA = pinA
	l.config.PinB = pinB
	running := l.stdin != nil
	if running {
		err := l.send("pin %d %d", pinA, pinB)
		l.mu.Unlock()
		return err
	}
	started := l.started
	l.mu.Unlock()

	l.logger.Info("gpio pins configured", "pin_a", pinA, "pin_b", pinB)
	if !started && l.runCtx != nil {
		return l.launch(l.runCtx)
	}
	return nil
}

// Move sends a speed instruction to a mobile decoder.
// The address must be 1-127; the speed must fit the 28-step encoding.
func (l *Link) Move(address, speed int) error {
	if address < 1 || address > 127 {
		return fmt.Errorf("%w: %d", ErrAddressRange, address)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.gate(); err != nil {
		return err
	}
	instruction, err := dcc.Move(speed)
	if err != nil {
		return err
	}
	return l.send("send %d %d", address, instruction)
}

// Stop sends a stop instruction. Address 0 is the broadcast stop that
// halts every decoder on the track. Stops are never held back by the
// queue-full gate: a stop must always get through.
func (l *Link) Stop(address int, emergency bool) error {
	if address < 0 || address > 127 {
		return fmt.Errorf("%w: %d", ErrAddressRange, address)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.send("send %d %d", address, dcc.Stop(emergency))
}

// Function sends an already encoded grouped function instruction.
func (l *Link) Function(address int, instruction byte) error {
	if address < 1 || address > 127 {
		return fmt.Errorf("%w: %d", ErrAddressRange, address)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.gate(); err != nil {
		return err
	}
	return l.send("send %d %d", address, instruction)
}

// Accessory switches a stationary decoder output (turnout, signal).
func (l *Link) Accessory(address, device int, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.gate(); err != nil {
		return err
	}
	addressByte, instruction, err := dcc.Accessory(address, device, active)
	if err != nil {
		return err
	}
	return l.send("send %d %d", addressByte, instruction)
}

// gate refuses commands while the worker queue is full.
// Callers must hold the lock.
func (l *Link) gate() error {
	if l.state == StateQueueFull {
		return ErrQueueFull
	}
	return nil
}

// send writes one newline-terminated command line. Without pins the
// line is recorded as built but not transmitted; with a dead worker it
// is recorded the same way and the caller learns the worker is down.
// Callers must hold the lock.
func (l *Link) send(format string, args ...any) error {
	line := fmt.Sprintf(format, args...)

	if !l.config.configured() {
		l.recorder.Record("built", "%s", line)
		l.logger.Debug("dry run", "line", line)
		return ErrNotConfigured
	}
	if l.stdin == nil {
		l.recorder.Record("built", "%s", line)
		return ErrNotRunning
	}

	if _, err := io.WriteString(l.stdin, line+"\n"); err != nil {
		l.recorder.Record("event", "write failed: %v", err)
		return fmt.Errorf("writing to pidcc: %w", err)
	}
	l.recorder.Record("write", "%s", line)
	return nil
}

// readLoop pumps one launch's stdout into the frame decoder.
func (l *Link) readLoop(stdout io.ReadCloser) {
	chunk := make([]byte, 256)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			l.feed(chunk[:n])
		}
		if err != nil {
			return
		}
	}
}

// feed appends received bytes to the frame buffer and consumes
// complete lines. Lines end at '\n' or '\r'; empty lines are skipped.
// A partial line survives in the buffer until its terminator arrives.
func (l *Link) feed(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(data) > 0 {
		n := copy(l.buf[l.producer:], data)
		data = data[n:]
		l.producer += n

		for i := l.consumer; i < l.producer; i++ {
			c := l.buf[i]
			if c != '\n' && c != '\r' {
				continue
			}
			if i > l.consumer {
				l.handleLine(string(l.buf[l.consumer:i]))
			}
			l.consumer = i + 1
		}

		// Shift the consumed prefix out once free space runs low.
		if l.producer >= recvBufferSize-recvCompactThreshold && l.consumer > 0 {
			copy(l.buf[:], l.buf[l.consumer:l.producer])
			l.producer -= l.consumer
			l.consumer = 0
		}

		// A full buffer with no terminator at all cannot make
		// progress; drop it.
		if l.producer == recvBufferSize && l.consumer == 0 {
			l.logger.Warn("receive buffer overflow, discarding", "bytes", l.producer)
			l.producer = 0
		}
	}
}

// handleLine decodes one worker report. Callers must hold the lock.
func (l *Link) handleLine(line string) {
	l.recorder.Record("read", "%s", line)

	switch line[0] {
	case sigilIdle:
		l.state = StateIdle
		l.deadline = time.Time{}
	case sigilBusy:
		l.state = StateBusy
		l.deadline = time.Now().Add(l.config.ReadinessTimeout)
	case sigilQueueFull:
		l.state = StateQueueFull
		l.deadline = time.Now().Add(l.config.ReadinessTimeout)
		l.logger.Warn("worker queue full")
	case sigilError:
		l.logger.Error("worker error report", "line", line)
	case sigilDebug:
		l.logger.Debug("worker debug", "line", line)
	default:
		l.logger.Warn("unexpected worker output", "line", line)
	}
}

// tickLoop runs the periodic deadline check.
func (l *Link) tickLoop(ctx context.Context) {
	defer close(l.tickDone)

	ticker := time.NewTicker(l.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopTick:
			return
		case now := <-ticker.C:
			l.checkDeadline(now)
		}
	}
}

// checkDeadline reverts a stale busy or queue-full report to idle.
// A worker that stopped reporting must not block traffic forever.
func (l *Link) checkDeadline(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateBusy && l.state != StateQueueFull {
		return
	}
	if l.deadline.IsZero() || now.Before(l.deadline) {
		return
	}

	l.logger.Warn("worker readiness timed out", "state", l.state.String())
	l.recorder.Record("timeout", "worker %s report expired", l.state)
	l.state = StateIdle
	l.deadline = time.Time{}
}

// State returns the current readiness state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// DryRun reports whether the link runs without a worker.
func (l *Link) DryRun() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.config.configured()
}

// Stats is a JSON-ready snapshot of the link.
type Stats struct {
	State  string         `json:"state"`
	PinA   int            `json:"pin_a,omitempty"`
	PinB   int            `json:"pin_b,omitempty"`
	DryRun bool           `json:"dry_run"`
	Worker *process.Stats `json:"worker,omitempty"`
}

// Stats returns the current link statistics.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	stats := Stats{
		State:  l.state.String(),
		PinA:   l.config.PinA,
		PinB:   l.config.PinB,
		DryRun: !l.config.configured(),
	}
	l.mu.Unlock()

	if l.supervisor != nil {
		worker := l.supervisor.Stats()
		stats.Worker = &worker
	}
	return stats
}
