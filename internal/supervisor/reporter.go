package supervisor

import "github.com/smazurov/devup/internal/process"

// Ready pairs a service name with its resolved address.
type Ready struct {
	Name    string
	Address string
}

// Reporter presents supervisor progress to the operator.
// Calls are made from a single goroutine, in lifecycle order.
type Reporter interface {
	// Starting is called once before any process is launched.
	Starting(names []string)
	// LaunchFailed reports a process that could not be started.
	LaunchFailed(name string, err error)
	// ProcessReady is called exactly once per process that became ready.
	ProcessReady(name, address string)
	// AllReady is called once, after the last launched process became ready.
	AllReady(ready []Ready)
	// ProcessExited reports a process that exited on its own before shutdown.
	ProcessExited(name string, code int, wasReady bool)
	// WatchFailed reports an output read error outside shutdown.
	WatchFailed(name string, err error)
	// ReadyTimeout reports processes still not ready after the ready timeout.
	ReadyTimeout(pending []string)
	// ShutdownStarted is called once when shutdown begins.
	ShutdownStarted()
	// ProcessStopped confirms a process exited and its watcher finished.
	ProcessStopped(name string, status process.ExitStatus)
	// AllStopped is called once after every process was confirmed stopped.
	AllStopped()
}

// Notifier receives service manager notifications (e.g. systemd).
type Notifier interface {
	Ready(status string)
	Stopping()
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) Starting([]string)                         {}
func (NopReporter) LaunchFailed(string, error)                {}
func (NopReporter) ProcessReady(string, string)               {}
func (NopReporter) AllReady([]Ready)                          {}
func (NopReporter) ProcessExited(string, int, bool)           {}
func (NopReporter) WatchFailed(string, error)                 {}
func (NopReporter) ReadyTimeout([]string)                     {}
func (NopReporter) ShutdownStarted()                          {}
func (NopReporter) ProcessStopped(string, process.ExitStatus) {}
func (NopReporter) AllStopped()                               {}
