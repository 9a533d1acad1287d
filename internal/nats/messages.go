package nats

import (
	"strings"
	"unicode"
)

// Subject prefixes for NATS topics.
const (
	SubjectPrefix          = "devup"
	SubjectProcessesPrefix = SubjectPrefix + ".processes"
	SubjectStackReady      = SubjectPrefix + ".stack.ready"
	SubjectStackShutdown   = SubjectPrefix + ".stack.shutdown"
)

// Per-process event kinds, the last subject token.
const (
	KindState   = "state"
	KindReady   = "ready"
	KindFailed  = "failed"
	KindError   = "error"
	KindStopped = "stopped"
)

// SubjectProcess returns the subject for a per-process event.
func SubjectProcess(name, kind string) string {
	return SubjectProcessesPrefix + "." + SubjectToken(name) + "." + kind
}

// SubjectToken turns a process name into a single subject token.
func SubjectToken(name string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '*' || r == '>' || unicode.IsSpace(r):
			return '-'
		default:
			return unicode.ToLower(r)
		}
	}, strings.TrimSpace(name))
	if token == "" {
		return "_"
	}
	return token
}
