// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// Every module logger writes through one handler chain:
//   - text or json records to Config.Output (stderr by default, or a log file)
//   - the systemd journal when available, tagged SYSLOG_IDENTIFIER=devup
//   - an in-memory history of recent entries served by the status API
//
// Child process output is logged on the "output" module at debug level with a
// "service" attribute, so it stays hidden unless that module is turned up.
//
// # Usage
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"output":     "debug",
//			"supervisor": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Process ready", "service", name, "address", addr)
//
// # Viewing Logs
//
//	journalctl -t devup -f
//	journalctl -t devup MODULE=output SERVICE="Frontend Server"
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	file = "/tmp/devup.log"
//
//	[logging.modules]
//	output = "debug"
package logging
