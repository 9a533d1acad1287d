package readiness

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// LineHandler receives every line read from a watched stream.
// Implementations can log output, mirror it to a file, etc.
type LineHandler interface {
	HandleLine(name, line string)
}

// Result is the outcome of a Watch call.
type Result struct {
	Matched bool
	Address string
}

// WatchError reports a failed read from a process output stream.
type WatchError struct {
	Name string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s output: %v", e.Name, e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// Watcher scans one process's output for its readiness marker.
type Watcher struct {
	name    string
	matcher Matcher
	signal  *Signal
	handler LineHandler
	logger  *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLineHandler forwards every line read to h.
func WithLineHandler(h LineHandler) WatcherOption {
	return func(w *Watcher) {
		w.handler = h
	}
}

// WithLogger sets the watcher's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher that sets sig on the first line m accepts.
func NewWatcher(name string, m Matcher, sig *Signal, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		name:    name,
		matcher: m,
		signal:  sig,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Signal returns the readiness signal this watcher sets.
func (w *Watcher) Signal() *Signal {
	return w.signal
}

// Watch reads r line by line until the first readiness match, end of stream,
// or cancellation of ctx, whichever comes first. Lines after the match are
// left unread in r.
//
// End of stream without a match returns a zero Result and no error.
// Cancellation is checked between reads; read errors that happen after ctx
// is cancelled are expected during shutdown and are suppressed.
func (w *Watcher) Watch(ctx context.Context, r *bufio.Reader) (Result, error) {
	for {
		if ctx.Err() != nil {
			w.logger.Debug("Watch cancelled", "service", w.name)
			return Result{}, nil
		}

		line, readErr := r.ReadString('\n')
		if ctx.Err() != nil {
			return Result{}, nil
		}

		if line != "" {
			cleaned := cleanLine(line)
			w.forward(cleaned)
			if addr, ok := w.matcher.Match(cleaned); ok {
				if w.signal.Set(addr) {
					w.logger.Info("Readiness detected", "service", w.name, "address", addr)
				}
				got, _ := w.signal.Address()
				return Result{Matched: true, Address: got}, nil
			}
		}

		if readErr != nil {
			return Result{}, w.readError(ctx, readErr)
		}
	}
}

// Drain forwards the rest of r to the line handler without matching,
// until end of stream or cancellation. It keeps a running child from
// blocking on a full pipe once readiness has been detected.
func (w *Watcher) Drain(ctx context.Context, r *bufio.Reader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, readErr := r.ReadString('\n')
		if ctx.Err() != nil {
			return nil
		}
		if line != "" {
			w.forward(cleanLine(line))
		}
		if readErr != nil {
			return w.readError(ctx, readErr)
		}
	}
}

func (w *Watcher) forward(line string) {
	if w.handler != nil && line != "" {
		w.handler.HandleLine(w.name, line)
	}
}

// readError maps a read failure to the error reported by Watch and Drain.
func (w *Watcher) readError(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) || ctx.Err() != nil {
		return nil
	}
	return &WatchError{Name: w.name, Err: err}
}
