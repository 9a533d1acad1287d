package events

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeReady
	TypeAllReady
	TypeStopped
	TypeLaunchFailed
	TypeWatchError
	TypeShutdownStarted
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published on every process phase transition.
type StateChangedEvent struct {
	Name      string `json:"name" example:"Backend Server" doc:"Process name"`
	From      string `json:"from" example:"starting" doc:"Previous phase"`
	To        string `json:"to" example:"ready" doc:"New phase"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// ReadyEvent is published once per process when its readiness marker is seen.
type ReadyEvent struct {
	Name      string  `json:"name" example:"Backend Server" doc:"Process name"`
	Address   string  `json:"address" example:"http://localhost:3000" doc:"Resolved address"`
	Seconds   float64 `json:"seconds" example:"1.25" doc:"Time from launch to readiness"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ReadyEvent.
func (e ReadyEvent) Type() uint32 { return TypeReady }

// ServiceAddress pairs a process name with its resolved address.
type ServiceAddress struct {
	Name    string `json:"name" example:"Frontend Server" doc:"Process name"`
	Address string `json:"address" example:"http://localhost:5173" doc:"Resolved address"`
}

// AllReadyEvent is published once, after the last process became ready.
type AllReadyEvent struct {
	Services  []ServiceAddress `json:"services" doc:"Ready processes in configuration order"`
	Timestamp string           `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AllReadyEvent.
func (e AllReadyEvent) Type() uint32 { return TypeAllReady }

// ShutdownStartedEvent is published when coordinated shutdown begins.
type ShutdownStartedEvent struct {
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ShutdownStartedEvent.
func (e ShutdownStartedEvent) Type() uint32 { return TypeShutdownStarted }

// StoppedEvent is published once a process exit is confirmed and its watcher joined.
type StoppedEvent struct {
	Name      string `json:"name" example:"Backend Server" doc:"Process name"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Process exit code"`
	Forced    bool   `json:"forced" example:"false" doc:"Whether SIGKILL was needed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StoppedEvent.
func (e StoppedEvent) Type() uint32 { return TypeStopped }

// LaunchFailedEvent is published when a process could not be started.
type LaunchFailedEvent struct {
	Name      string `json:"name" example:"Backend Server" doc:"Process name"`
	Error     string `json:"error" example:"chdir ./backend: no such file or directory" doc:"Launch error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LaunchFailedEvent.
func (e LaunchFailedEvent) Type() uint32 { return TypeLaunchFailed }

// WatchErrorEvent is published when reading a process's output failed outside shutdown.
type WatchErrorEvent struct {
	Name      string `json:"name" example:"Backend Server" doc:"Process name"`
	Error     string `json:"error" example:"read |0: input/output error" doc:"Read error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WatchErrorEvent.
func (e WatchErrorEvent) Type() uint32 { return TypeWatchError }
