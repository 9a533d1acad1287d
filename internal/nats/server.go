package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// DefaultPort is the standard NATS client port. -1 picks a free port.
const DefaultPort = 4222

const (
	loopback     = "127.0.0.1"
	readyTimeout = 5 * time.Second
	maxPayload   = 64 * 1024
)

// Embedded is an in-process NATS server bound to loopback, for setups
// without a broker of their own.
type Embedded struct {
	ns     *server.Server
	logger *slog.Logger
}

// StartEmbedded starts a server on port and waits until it accepts clients.
func StartEmbedded(port int, logger *slog.Logger) (*Embedded, error) {
	if port == 0 {
		port = DefaultPort
	}

	ns, err := server.NewServer(&server.Options{
		ServerName: SubjectPrefix,
		Host:       loopback,
		Port:       port,
		MaxPayload: maxPayload,
		NoLog:      true,
		// signals belong to the supervisor
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("embedded nats: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats on port %d: not ready after %s", port, readyTimeout)
	}

	e := &Embedded{ns: ns, logger: logger}
	logger.Info("Embedded NATS server listening", "url", e.URL())
	return e, nil
}

// URL is the client URL of the running server.
func (e *Embedded) URL() string {
	return e.ns.ClientURL()
}

// Running reports whether the server still accepts connections.
func (e *Embedded) Running() bool {
	return e.ns.Running()
}

// Close shuts the server down and waits for it to finish.
func (e *Embedded) Close() {
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
	e.logger.Debug("Embedded NATS server stopped")
}
