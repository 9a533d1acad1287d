package supervisor

import (
	"context"

	"github.com/smazurov/devup/internal/process"
)

type noticeKind int

const (
	noticeReady noticeKind = iota
	noticeWatchFailed
	noticeExited
)

// notice is sent from a monitor to the supervisor loop.
type notice struct {
	index   int
	kind    noticeKind
	address string
	code    int
	ready   bool
	err     error
}

// monitor turns one handle's channels into at most two notices: readiness
// or a watch failure, then an exit. It returns when ctx ends. notices must
// have room for both so a monitor never blocks after the loop stops reading.
func monitor(ctx context.Context, index int, h *process.Handle, notices chan<- notice) {
	ready := false

	select {
	case <-ctx.Done():
		return
	case <-h.Signal().Done():
		ready = true
	case <-h.WatchDone():
		// The watcher sets the signal before returning on a match.
		if h.Signal().Ready() {
			ready = true
		} else if _, err := h.WatchResult(); err != nil {
			notices <- notice{index: index, kind: noticeWatchFailed, err: err}
		}
	}

	if ready {
		addr, _ := h.Signal().Address()
		notices <- notice{index: index, kind: noticeReady, address: addr}
	}

	select {
	case <-ctx.Done():
	case <-h.Exited():
		if ctx.Err() != nil {
			return
		}
		code, _ := h.ExitCode()
		notices <- notice{index: index, kind: noticeExited, code: code, ready: ready}
	}
}
