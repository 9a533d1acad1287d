// Package process launches child processes and watches them for readiness.
//
// Launch starts a command in a working directory:
//   - stdout and stderr share one captured pipe, stdin is not wired
//   - the child leads its own process group so signals reach its descendants
//   - one readiness.Watcher scans the output concurrently and sets the
//     handle's write-once Signal on the first match
//
// Handle.Stop shuts a process down in a fixed order: cancel the watcher,
// send the stop signal (SIGTERM by default) to the group, wait for exit with
// a graceful timeout, SIGKILL if needed, then close the stream and join the
// watcher. Stop, Terminate and Wait are safe on a process that already exited.
//
// Example:
//
//	m, _ := readiness.New(readiness.Config{Port: 3000})
//	h, err := process.Launch(process.Spec{
//	    Name:    "backend",
//	    Command: "npm start",
//	    Dir:     "./backend",
//	    Matcher: m,
//	}, &process.Options{Logger: logger})
//	if err != nil {
//	    return err // *process.LaunchError
//	}
//	<-h.Signal().Done()
//	status := h.Stop()
package process
