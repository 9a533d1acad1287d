package process

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// DefaultStopSignal is sent to a process group on graceful termination.
const DefaultStopSignal = syscall.SIGTERM

var stopSignals = map[string]syscall.Signal{
	"TERM": syscall.SIGTERM,
	"INT":  syscall.SIGINT,
	"HUP":  syscall.SIGHUP,
	"QUIT": syscall.SIGQUIT,
}

// ParseSignal parses a stop signal name such as "TERM", "SIGINT" or "int".
// An empty name yields DefaultStopSignal.
func ParseSignal(name string) (syscall.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return DefaultStopSignal, nil
	}
	if sig, ok := stopSignals[strings.TrimPrefix(name, "SIG")]; ok {
		return sig, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
}

// signalGroup delivers sig to the process group led by pid, falling back to
// the process itself. A process that already exited is not an error.
func signalGroup(proc *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-proc.Pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// groupExists reports whether any process, zombies included, is left in
// the group led by pid.
func groupExists(pid int) bool {
	err := syscall.Kill(-pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
