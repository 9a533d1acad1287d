// Package supervisor launches a fixed set of services, waits for all of them
// to become ready and shuts them down together when its context ends.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/smazurov/devup/internal/config"
	"github.com/smazurov/devup/internal/events"
	"github.com/smazurov/devup/internal/process"
	"github.com/smazurov/devup/internal/readiness"
)

// DefaultStopTimeout bounds the graceful stop of each process.
const DefaultStopTimeout = process.DefaultGracefulTimeout

var (
	// ErrNothingLaunched is returned by Run when no service could be started.
	ErrNothingLaunched = errors.New("no service could be launched")

	// ErrAlreadyRunning is returned when Run is called more than once.
	ErrAlreadyRunning = errors.New("supervisor already ran")
)

// Options configures a Supervisor.
type Options struct {
	Services []config.ServiceSpec

	Reporter Reporter   // defaults to NopReporter
	Bus      *events.Bus // optional lifecycle event bus
	Notifier Notifier   // optional service manager notifications

	// Logger for supervisor messages. If nil, uses slog.Default().
	Logger *slog.Logger
	// OutputLogger receives child output lines at debug level (optional).
	OutputLogger *slog.Logger
	// OutputHandler receives child output lines (optional).
	OutputHandler readiness.LineHandler

	// ReadyTimeout reports services still not ready after this long.
	// Zero waits without a bound. Expiry never stops anything.
	ReadyTimeout time.Duration
	// StopTimeout bounds the wait after the stop signal before SIGKILL.
	StopTimeout time.Duration
	// KillTimeout bounds the wait after SIGKILL.
	KillTimeout time.Duration
}

// Supervisor owns the managed processes and their lifecycle phases.
type Supervisor struct {
	opts     Options
	reporter Reporter
	logger   *slog.Logger
	started  atomic.Bool

	mu       sync.Mutex
	services []*managed
}

type managed struct {
	spec   config.ServiceSpec
	handle *process.Handle
	status process.Status
}

// New creates a supervisor for opts.Services.
func New(opts Options) *Supervisor {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}

	s := &Supervisor{
		opts:     opts,
		reporter: reporter,
		logger:   logger,
	}
	for _, spec := range opts.Services {
		s.services = append(s.services, &managed{
			spec:   spec,
			status: process.Status{Name: spec.Name, Phase: process.PhaseStarting},
		})
	}
	return s
}

// Snapshot returns the current status of every service in configuration order.
func (s *Supervisor) Snapshot() []process.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]process.Status, len(s.services))
	for i, m := range s.services {
		out[i] = m.status
	}
	return out
}

// Run launches every service, reports readiness, waits for ctx to end and
// then stops every launched process. It returns nil after a confirmed
// shutdown, or ErrNothingLaunched if no service could be started.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	names := make([]string, len(s.services))
	for i, m := range s.services {
		names[i] = m.spec.Name
	}
	s.reporter.Starting(names)

	launched := s.launchAll()
	if len(launched) == 0 {
		s.logger.Error("No service could be launched")
		return ErrNothingLaunched
	}

	notices := make(chan notice, 2*len(launched))
	var monitors conc.WaitGroup
	for _, i := range launched {
		m := s.services[i]
		monitors.Go(func() { monitor(ctx, i, m.handle, notices) })
	}

	s.await(ctx, launched, notices)
	s.shutdown(launched)

	monitors.Wait()
	s.reporter.AllStopped()
	s.logger.Info("All services stopped")
	return nil
}

// launchAll starts every service concurrently and returns the indexes of
// those that started. Failures are reported in configuration order.
func (s *Supervisor) launchAll() []int {
	errs := make([]error, len(s.services))

	var wg conc.WaitGroup
	for i, m := range s.services {
		wg.Go(func() {
			m.handle, errs[i] = s.launch(m.spec)
		})
	}
	wg.Wait()

	var launched []int
	for i, m := range s.services {
		if err := errs[i]; err != nil {
			s.logger.Error("Failed to launch service", "service", m.spec.Name, "error", err)
			s.update(i, func(st *process.Status) { st.LastError = err })
			s.transition(i, process.PhaseFailed)
			s.reporter.LaunchFailed(m.spec.Name, err)
			s.publish(events.LaunchFailedEvent{Name: m.spec.Name, Error: err.Error(), Timestamp: timestamp()})
			continue
		}
		s.update(i, func(st *process.Status) {
			st.PID = m.handle.PID()
			st.StartedAt = m.handle.StartedAt()
		})
		launched = append(launched, i)
	}
	return launched
}

func (s *Supervisor) launch(spec config.ServiceSpec) (*process.Handle, error) {
	ps, err := spec.ProcessSpec()
	if err != nil {
		return nil, &process.LaunchError{Name: spec.Name, Command: spec.Command, Dir: spec.Dir, Err: err}
	}
	return process.Launch(ps, &process.Options{
		Logger:          s.logger,
		OutputLogger:    s.opts.OutputLogger,
		OutputHandler:   s.opts.OutputHandler,
		GracefulTimeout: s.opts.StopTimeout,
		KillTimeout:     s.opts.KillTimeout,
	})
}

// await handles monitor notices until ctx ends.
func (s *Supervisor) await(ctx context.Context, launched []int, notices <-chan notice) {
	pending := make(map[int]bool, len(launched))
	for _, i := range launched {
		pending[i] = true
	}

	var timeout <-chan time.Time
	if s.opts.ReadyTimeout > 0 {
		timer := time.NewTimer(s.opts.ReadyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case n := <-notices:
			name := s.services[n.index].spec.Name
			switch n.kind {
			case noticeReady:
				s.markReady(n.index, n.address)
				delete(pending, n.index)
				if len(pending) == 0 {
					s.allReady(launched)
				}
			case noticeWatchFailed:
				s.logger.Warn("Error reading service output", "service", name, "error", n.err)
				s.update(n.index, func(st *process.Status) { st.LastError = n.err })
				s.reporter.WatchFailed(name, n.err)
				s.publish(events.WatchErrorEvent{Name: name, Error: n.err.Error(), Timestamp: timestamp()})
			case noticeExited:
				s.update(n.index, func(st *process.Status) {
					st.Exited = true
					st.ExitCode = n.code
				})
				if n.ready {
					s.logger.Warn("Service exited", "service", name, "exit_code", n.code)
				} else {
					s.logger.Warn("Service exited before becoming ready", "service", name, "exit_code", n.code)
				}
				s.reporter.ProcessExited(name, n.code, n.ready)
			}

		case <-timeout:
			timeout = nil
			if len(pending) == 0 {
				continue
			}
			var names []string
			for _, i := range launched {
				if pending[i] {
					names = append(names, s.services[i].spec.Name)
				}
			}
			s.logger.Warn("Services not ready after timeout", "timeout", s.opts.ReadyTimeout, "services", names)
			s.reporter.ReadyTimeout(names)
		}
	}
}

func (s *Supervisor) markReady(i int, address string) {
	m := s.services[i]
	readyAt := m.handle.Signal().SetAt()
	s.update(i, func(st *process.Status) {
		st.Address = address
		st.ReadyAt = readyAt
	})
	if !s.transition(i, process.PhaseReady) {
		return
	}

	s.logger.Info("Service ready", "service", m.spec.Name, "address", address)
	s.reporter.ProcessReady(m.spec.Name, address)
	s.publish(events.ReadyEvent{
		Name:      m.spec.Name,
		Address:   address,
		Seconds:   readyAt.Sub(m.handle.StartedAt()).Seconds(),
		Timestamp: timestamp(),
	})
}

func (s *Supervisor) allReady(launched []int) {
	ready := make([]Ready, 0, len(launched))
	services := make([]events.ServiceAddress, 0, len(launched))
	for _, i := range launched {
		addr, _ := s.services[i].handle.Signal().Address()
		ready = append(ready, Ready{Name: s.services[i].spec.Name, Address: addr})
		services = append(services, events.ServiceAddress{Name: s.services[i].spec.Name, Address: addr})
	}

	s.logger.Info("All services ready", "count", len(ready))
	s.reporter.AllReady(ready)
	if s.opts.Notifier != nil {
		s.opts.Notifier.Ready(fmt.Sprintf("%d services ready", len(ready)))
	}
	s.publish(events.AllReadyEvent{Services: services, Timestamp: timestamp()})
}

type stopResult struct {
	index  int
	status process.ExitStatus
}

// shutdown stops every launched process concurrently and confirms each
// one as it finishes.
func (s *Supervisor) shutdown(launched []int) {
	s.logger.Info("Shutting down services", "count", len(launched))
	s.reporter.ShutdownStarted()
	if s.opts.Notifier != nil {
		s.opts.Notifier.Stopping()
	}
	s.publish(events.ShutdownStartedEvent{Timestamp: timestamp()})

	results := make(chan stopResult, len(launched))
	var wg conc.WaitGroup
	for _, i := range launched {
		s.transition(i, process.PhaseStopping)
		h := s.services[i].handle
		wg.Go(func() {
			results <- stopResult{index: i, status: h.Stop()}
		})
	}

	for range launched {
		r := <-results
		name := s.services[r.index].spec.Name
		s.update(r.index, func(st *process.Status) {
			st.Exited = true
			st.ExitCode = r.status.Code
			if r.status.Err != nil {
				st.LastError = r.status.Err
			}
		})
		s.transition(r.index, process.PhaseStopped)
		s.reporter.ProcessStopped(name, r.status)
		s.publish(events.StoppedEvent{
			Name:      name,
			ExitCode:  r.status.Code,
			Forced:    r.status.Forced,
			Timestamp: timestamp(),
		})
	}
	wg.Wait()
}

func (s *Supervisor) update(i int, fn func(*process.Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.services[i].status)
}

// transition moves service i to phase to, publishing the change.
// Illegal transitions are ignored and reported as false.
func (s *Supervisor) transition(i int, to process.Phase) bool {
	s.mu.Lock()
	st := &s.services[i].status
	from := st.Phase
	ok := process.CanTransition(from, to)
	if ok {
		st.Phase = to
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("Ignoring phase transition", "service", st.Name, "from", from, "to", to)
		return false
	}
	s.publish(events.StateChangedEvent{Name: st.Name, From: string(from), To: string(to), Timestamp: timestamp()})
	return true
}

func (s *Supervisor) publish(ev events.Event) {
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
