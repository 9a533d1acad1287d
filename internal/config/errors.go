package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig matches every ValidationError via errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError lists every problem found in a service configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// errOrNil returns e only if it recorded problems.
func (e *ValidationError) errOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
