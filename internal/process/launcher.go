package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/devup/internal/readiness"
)

// Default shutdown timeouts.
const (
	DefaultGracefulTimeout = 10 * time.Second
	DefaultKillTimeout     = 5 * time.Second
)

// exitCodeKilled is reported for a process that had to be force killed.
const exitCodeKilled = 137

const groupPollInterval = 20 * time.Millisecond

const outputBufferSize = 64 * 1024

// Spec describes a process to launch.
type Spec struct {
	Name       string
	Command    string
	Dir        string
	Env        []string // extra KEY=VALUE pairs appended to the parent environment
	Exec       bool     // run Command directly instead of through the shell
	Shell      string   // shell for non-Exec commands, default DefaultShell
	StopSignal syscall.Signal
	Matcher    readiness.Matcher
}

// Options configures Launch.
type Options struct {
	// Logger for lifecycle messages. If nil, uses slog.Default().
	Logger *slog.Logger

	// OutputLogger receives every output line at debug level (optional).
	OutputLogger *slog.Logger

	// OutputHandler receives every output line (optional, in addition to OutputLogger).
	OutputHandler readiness.LineHandler

	// GracefulTimeout bounds the wait after the stop signal before SIGKILL.
	GracefulTimeout time.Duration

	// KillTimeout bounds the wait after SIGKILL.
	KillTimeout time.Duration
}

// ExitStatus describes how a process ended.
type ExitStatus struct {
	Code   int
	Forced bool // SIGKILL was needed
	Err    error
}

// Handle controls a launched process and its output watcher.
type Handle struct {
	name            string
	cmd             *exec.Cmd
	output          *os.File
	signal          *readiness.Signal
	watcher         *readiness.Watcher
	ctx             context.Context
	cancel          context.CancelFunc
	stopSignal      syscall.Signal
	gracefulTimeout time.Duration
	killTimeout     time.Duration
	logger          *slog.Logger
	startedAt       time.Time

	exited  chan struct{}
	waitErr error

	watchDone  chan struct{}
	outputDone chan struct{}
	result     readiness.Result
	watchErr   error

	stopOnce   sync.Once
	stopStatus ExitStatus
}

// Launch starts spec as a child process with its stdout and stderr combined
// into one captured stream, and starts exactly one readiness watcher on it.
// A process that cannot be started yields a *LaunchError.
func Launch(spec Spec, opts *Options) (*Handle, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", spec.Name)

	launchErr := func(err error) error {
		return &LaunchError{Name: spec.Name, Command: spec.Command, Dir: spec.Dir, Err: err}
	}

	if spec.Matcher == nil {
		return nil, launchErr(errors.New("no readiness matcher"))
	}

	args, err := spec.argv()
	if err != nil {
		return nil, launchErr(err)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.SysProcAttr = sysProcAttr()

	// One pipe for both streams keeps their relative order and needs no
	// copying goroutines inside exec.
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, launchErr(err)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	if err := cmd.Start(); err != nil {
		reader.Close()
		writer.Close()
		logger.Error("Failed to start process", "error", err, "command", spec.Command, "dir", spec.Dir)
		return nil, launchErr(err)
	}
	// The child holds its own copy of the write end; EOF arrives when it
	// (and any descendants sharing the pipe) close it.
	writer.Close()

	stopSignal := spec.StopSignal
	if stopSignal == 0 {
		stopSignal = DefaultStopSignal
	}
	graceful := opts.GracefulTimeout
	if graceful <= 0 {
		graceful = DefaultGracefulTimeout
	}
	kill := opts.KillTimeout
	if kill <= 0 {
		kill = DefaultKillTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := readiness.NewSignal()

	watcherOpts := []readiness.WatcherOption{readiness.WithLogger(logger)}
	if handler := lineHandler(opts); handler != nil {
		watcherOpts = append(watcherOpts, readiness.WithLineHandler(handler))
	}

	h := &Handle{
		name:            spec.Name,
		cmd:             cmd,
		output:          reader,
		signal:          sig,
		watcher:         readiness.NewWatcher(spec.Name, spec.Matcher, sig, watcherOpts...),
		ctx:             ctx,
		cancel:          cancel,
		stopSignal:      stopSignal,
		gracefulTimeout: graceful,
		killTimeout:     kill,
		logger:          logger,
		startedAt:       time.Now(),
		exited:          make(chan struct{}),
		watchDone:       make(chan struct{}),
		outputDone:      make(chan struct{}),
	}

	logger.Info("Process started", "pid", cmd.Process.Pid, "command", spec.Command, "dir", spec.Dir)

	go func() {
		h.waitErr = cmd.Wait()
		close(h.exited)
	}()
	go h.watch()

	return h, nil
}

// watch runs the readiness watcher, then keeps the pipe drained until it
// closes so the child never blocks writing output.
func (h *Handle) watch() {
	defer close(h.outputDone)

	r := bufio.NewReaderSize(h.output, outputBufferSize)
	h.result, h.watchErr = h.watcher.Watch(h.ctx, r)
	close(h.watchDone)

	if h.watchErr != nil {
		h.logger.Warn("Error reading output", "error", h.watchErr)
		return
	}
	if h.result.Matched {
		if err := h.watcher.Drain(h.ctx, r); err != nil {
			h.logger.Warn("Error reading output", "error", err)
			return
		}
	}
	// Cancelled or finished: discard anything left until the pipe closes.
	_, _ = io.Copy(io.Discard, r)
}

// Name returns the process name.
func (h *Handle) Name() string {
	return h.name
}

// PID returns the child's process ID.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// StartedAt returns when the process was launched.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// Signal returns the process readiness signal.
func (h *Handle) Signal() *readiness.Signal {
	return h.signal
}

// Cancel asks the watcher to stop scanning. Safe to call more than once.
func (h *Handle) Cancel() {
	h.cancel()
}

// Exited returns a channel closed once the process has exited.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// ExitCode returns the exit code and true once the process has exited.
func (h *Handle) ExitCode() (int, bool) {
	select {
	case <-h.exited:
		return exitCodeFromError(h.waitErr), true
	default:
		return 0, false
	}
}

// WatchDone returns a channel closed once the readiness watcher has returned.
func (h *Handle) WatchDone() <-chan struct{} {
	return h.watchDone
}

// WatchResult returns the watcher outcome. Only valid after WatchDone is closed.
func (h *Handle) WatchResult() (readiness.Result, error) {
	<-h.watchDone
	return h.result, h.watchErr
}

// Terminate sends the graceful stop signal to the process group. The group
// is signalled even after the leader exited, since descendants such as a
// server started by an npm wrapper may outlive it.
func (h *Handle) Terminate() error {
	h.logger.Info("Sending stop signal", "pid", h.cmd.Process.Pid, "signal", h.stopSignal.String())
	return signalGroup(h.cmd.Process, h.stopSignal)
}

// Wait blocks until the process exits or ctx is done.
// Waiting on an already exited process returns immediately.
func (h *Handle) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.exited:
		return exitCodeFromError(h.waitErr), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Stop shuts the process down in order: cancel the watcher, send the stop
// signal, wait for exit (force killing after the graceful timeout), then
// close the output stream and join the watcher. Repeated calls return the
// first result.
func (h *Handle) Stop() ExitStatus {
	h.stopOnce.Do(func() {
		h.stopStatus = h.stop()
	})
	return h.stopStatus
}

func (h *Handle) stop() ExitStatus {
	h.cancel()

	var status ExitStatus
	if err := h.Terminate(); err != nil {
		h.logger.Warn("Failed to send stop signal", "error", err)
		status.Err = err
	}

	code, forced := h.waitForExit()
	status.Code = code
	status.Forced = forced

	// Unblocks the watcher if a descendant still holds the write end.
	h.output.Close()
	<-h.outputDone

	h.logger.Info("Process stopped", "exit_code", code, "forced", forced)
	return status
}

// waitForExit waits for the whole process group to exit, force killing it
// after the graceful timeout. The code is the leader's own exit code when
// it was reaped, exitCodeKilled otherwise.
func (h *Handle) waitForExit() (int, bool) {
	if h.awaitGroup(h.gracefulTimeout) {
		return exitCodeFromError(h.waitErr), false
	}

	h.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", h.gracefulTimeout)
	if err := signalGroup(h.cmd.Process, syscall.SIGKILL); err != nil {
		h.logger.Error("Failed to kill process", "error", err)
	}

	if !h.awaitGroup(h.killTimeout) {
		h.logger.Error("Process group did not exit after kill signal")
	}
	select {
	case <-h.exited:
		return exitCodeFromError(h.waitErr), true
	default:
		return exitCodeKilled, true
	}
}

// awaitGroup reports whether the leader was reaped and no other member of
// its process group remains within timeout.
func (h *Handle) awaitGroup(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-h.exited:
	case <-deadline.C:
		return false
	}

	tick := time.NewTicker(groupPollInterval)
	defer tick.Stop()
	for groupAlive(h.cmd.Process.Pid) {
		select {
		case <-tick.C:
		case <-deadline.C:
			return false
		}
	}
	return true
}

// exitCodeFromError extracts exit code from a cmd.Wait error.
// Returns 0 for nil, the exit code for ExitError (128+signal when signalled),
// or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
