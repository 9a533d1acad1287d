// Package nats publishes supervisor lifecycle events to NATS so other local
// tooling (test runners, editors, scripts) can react when the stack is up.
//
// # Architecture
//
//   - Server: optional embedded NATS server for machines without a broker
//   - Publisher: subscribes to the event bus and publishes each event as JSON
//
// # Subject Hierarchy
//
//	devup.processes.{process}.state     # phase transitions
//	devup.processes.{process}.ready     # readiness detected
//	devup.processes.{process}.failed    # launch failed
//	devup.processes.{process}.error     # output read error
//	devup.processes.{process}.stopped   # exit confirmed
//	devup.stack.ready                   # every launched process is ready
//	devup.stack.shutdown                # coordinated shutdown started
//
// The process token is the process name lowercased with spaces and subject
// metacharacters replaced by dashes ("Backend Server" -> "backend-server").
// Messaging is fire-and-forget core NATS; publishing degrades to a no-op
// while disconnected.
//
// # Watching events
//
//	nats sub "devup.>" -s nats://127.0.0.1:4222
//
// Block a script until the stack is ready:
//
//	nats sub "devup.stack.ready" --count=1
package nats
