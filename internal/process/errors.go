package process

import (
	"errors"
	"fmt"
)

// ErrUnknownSignal is returned by ParseSignal for unsupported names.
var ErrUnknownSignal = errors.New("unknown stop signal")

// LaunchError reports a process that could not be started.
type LaunchError struct {
	Name    string
	Command string
	Dir     string
	Err     error
}

func (e *LaunchError) Error() string {
	if e.Dir != "" {
		return fmt.Sprintf("launch %s (%q in %s): %v", e.Name, e.Command, e.Dir, e.Err)
	}
	return fmt.Sprintf("launch %s (%q): %v", e.Name, e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
