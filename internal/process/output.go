package process

import (
	"log/slog"

	"github.com/smazurov/devup/internal/readiness"
)

// logOutput forwards child output lines to a logger at debug level.
type logOutput struct {
	logger *slog.Logger
}

func (l logOutput) HandleLine(name, line string) {
	l.logger.Debug(line, "service", name)
}

// multiOutput fans a line out to several handlers.
type multiOutput []readiness.LineHandler

func (m multiOutput) HandleLine(name, line string) {
	for _, h := range m {
		h.HandleLine(name, line)
	}
}

// lineHandler builds the line handler for a launch, or nil if none is configured.
func lineHandler(opts *Options) readiness.LineHandler {
	var handlers multiOutput
	if opts.OutputLogger != nil {
		handlers = append(handlers, logOutput{logger: opts.OutputLogger})
	}
	if opts.OutputHandler != nil {
		handlers = append(handlers, opts.OutputHandler)
	}
	switch len(handlers) {
	case 0:
		return nil
	case 1:
		return handlers[0]
	default:
		return handlers
	}
}
