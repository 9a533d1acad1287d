package process

import (
	"errors"
	"strings"
)

// DefaultShell runs commands that are not marked Exec.
const DefaultShell = "/bin/sh"

var (
	errEmptyCommand  = errors.New("empty command")
	errUnclosedQuote = errors.New("unclosed quote in command")
)

// argv returns the argument vector for spec.
// Shell commands run as `sh -c <command>` so pipelines, env assignments and
// npm scripts behave as typed. Exec commands are split on whitespace with
// quote and escape handling and run directly.
func (s Spec) argv() ([]string, error) {
	command := strings.TrimSpace(s.Command)
	if command == "" {
		return nil, errEmptyCommand
	}
	if !s.Exec {
		shell := s.Shell
		if shell == "" {
			shell = DefaultShell
		}
		return []string{shell, "-c", command}, nil
	}
	args, err := parseCommand(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errEmptyCommand
	}
	return args, nil
}

// Program returns the executable Launch will start: the shell for shell
// commands, the first word of the command for Exec commands.
func (s Spec) Program() (string, error) {
	args, err := s.argv()
	if err != nil {
		return "", err
	}
	return args[0], nil
}

// parseCommand splits a command string into arguments.
// Handles single and double quotes and backslash escapes.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	hasArg := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case (r == '"' || r == '\'') && (!inQuote || r == quoteChar):
			inQuote = !inQuote
			hasArg = true
			if inQuote {
				quoteChar = r
			} else {
				quoteChar = 0
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if hasArg {
				args = append(args, current.String())
				current.Reset()
				hasArg = false
			}
		case r == '\\' && i+1 < len(runes) && quoteChar != '\'':
			i++
			current.WriteRune(runes[i])
			hasArg = true
		default:
			current.WriteRune(r)
			hasArg = true
		}
	}

	if inQuote {
		return nil, errUnclosedQuote
	}
	if hasArg {
		args = append(args, current.String())
	}
	return args, nil
}
