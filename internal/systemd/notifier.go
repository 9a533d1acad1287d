// Package systemd reports supervisor state to the service manager via sd_notify.
package systemd

import (
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Outside systemd (no NOTIFY_SOCKET) every
// call is a no-op.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready reports READY=1 together with a status line.
func (n *Notifier) Ready(status string) {
	n.notify(daemon.SdNotifyReady + "\n" + statusLine(status))
}

// Stopping reports STOPPING=1.
func (n *Notifier) Stopping() {
	n.notify(daemon.SdNotifyStopping)
}

// Status updates the free-form status shown by systemctl.
func (n *Notifier) Status(status string) {
	n.notify(statusLine(status))
}

func (n *Notifier) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}

func statusLine(status string) string {
	return fmt.Sprintf("STATUS=%s", status)
}
