package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/devup/internal/readiness"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() *Options {
	return &Options{
		Logger:          testLogger(),
		GracefulTimeout: 2 * time.Second,
		KillTimeout:     time.Second,
	}
}

func addressSpec(name, command string, port int) Spec {
	return Spec{
		Name:    name,
		Command: command,
		Matcher: readiness.NewAddressMatcher(port),
	}
}

// launchTest launches spec and stops it when the test ends.
func launchTest(t *testing.T, spec Spec, opts *Options) *Handle {
	t.Helper()
	h, err := Launch(spec, opts)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	t.Cleanup(func() { h.Stop() })
	return h
}

// waitClosed waits for ch with timeout, fails test on timeout.
func waitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for %s", what)
	}
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) HandleLine(_, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) has(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if line == want {
			return true
		}
	}
	return false
}

func (r *lineRecorder) waitFor(t *testing.T, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !r.has(want) {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for line %q", want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// serve wraps setup so the TERM trap is installed before anything runs.
func serve(setup string) string {
	return `trap 'exit 0' TERM; ` + setup + `while :; do sleep 0.1; done`
}

func TestLaunchDetectsReadiness(t *testing.T) {
	h := launchTest(t, addressSpec("backend",
		serve(`echo 'Server listening at http://localhost:3000'; `), 3000), testOptions())

	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")

	addr, ok := h.Signal().Address()
	if !ok || addr != "http://localhost:3000" {
		t.Errorf("signal = (%q, %v)", addr, ok)
	}
	if h.PID() <= 0 {
		t.Errorf("expected a pid, got %d", h.PID())
	}

	status := h.Stop()
	if status.Code != 0 || status.Forced {
		t.Errorf("expected clean exit, got %+v", status)
	}
	waitClosed(t, h.WatchDone(), time.Second, "watcher")
	res, err := h.WatchResult()
	if err != nil || !res.Matched {
		t.Errorf("WatchResult = (%+v, %v)", res, err)
	}
}

func TestLaunchReadsStderr(t *testing.T) {
	h := launchTest(t, addressSpec("api", serve(`echo 'ready at http://127.0.0.1:4000' >&2; `), 4000), testOptions())
	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness from stderr")
}

func TestLaunchKeywordFallback(t *testing.T) {
	m, err := readiness.New(readiness.Config{
		Mode:     readiness.ModeAddressKeywords,
		Port:     5173,
		Keywords: []string{"VITE", "READY"},
	})
	if err != nil {
		t.Fatalf("readiness.New failed: %v", err)
	}
	h := launchTest(t, Spec{
		Name:    "frontend",
		Command: serve(`echo '  VITE v5.0.0  ready in 300 ms'; `),
		Matcher: m,
	}, testOptions())

	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")
	if addr, _ := h.Signal().Address(); addr != "http://localhost:5173" {
		t.Errorf("address = %q", addr)
	}
}

func TestLaunchWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/marker", []byte("http://localhost:9000\n"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	spec := addressSpec("cat", serve(`cat marker; `), 9000)
	spec.Dir = dir

	h := launchTest(t, spec, testOptions())
	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")
}

func TestLaunchErrors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"missing dir", Spec{Name: "a", Command: "true", Dir: "/definitely/not/here", Matcher: readiness.NewAddressMatcher(1)}},
		{"exec not found", Spec{Name: "b", Command: "devup-no-such-binary --flag", Exec: true, Matcher: readiness.NewAddressMatcher(1)}},
		{"empty command", Spec{Name: "c", Command: "  ", Matcher: readiness.NewAddressMatcher(1)}},
		{"unclosed quote", Spec{Name: "d", Command: `echo "oops`, Exec: true, Matcher: readiness.NewAddressMatcher(1)}},
		{"no matcher", Spec{Name: "e", Command: "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Launch(tt.spec, testOptions())
			if err == nil {
				h.Stop()
				t.Fatal("expected launch error")
			}
			var launchErr *LaunchError
			if !errors.As(err, &launchErr) {
				t.Fatalf("expected *LaunchError, got %T: %v", err, err)
			}
			if launchErr.Name != tt.spec.Name {
				t.Errorf("LaunchError.Name = %q, want %q", launchErr.Name, tt.spec.Name)
			}
		})
	}
}

func TestUnreadyExit(t *testing.T) {
	h := launchTest(t, addressSpec("backend", `echo 'npm ERR! missing script: start'; exit 3`, 3000), testOptions())

	waitClosed(t, h.WatchDone(), 2*time.Second, "watcher")
	res, err := h.WatchResult()
	if err != nil {
		t.Errorf("end of stream must not be an error, got %v", err)
	}
	if res.Matched || h.Signal().Ready() {
		t.Error("expected no readiness")
	}

	waitClosed(t, h.Exited(), 2*time.Second, "exit")
	if code, ok := h.ExitCode(); !ok || code != 3 {
		t.Errorf("ExitCode = (%d, %v), want (3, true)", code, ok)
	}
}

func TestStopAlreadyExitedIsIdempotent(t *testing.T) {
	h := launchTest(t, addressSpec("oneshot", "echo done", 1), testOptions())
	waitClosed(t, h.Exited(), 2*time.Second, "exit")

	if err := h.Terminate(); err != nil {
		t.Errorf("Terminate on exited process: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if code, err := h.Wait(ctx); err != nil || code != 0 {
		t.Errorf("Wait = (%d, %v)", code, err)
	}

	start := time.Now()
	first := h.Stop()
	second := h.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("stopping an exited process took %v", elapsed)
	}
	if first != second {
		t.Errorf("Stop results differ: %+v vs %+v", first, second)
	}
	h.Cancel()
	h.Cancel()
}

func TestStopBeforeReady(t *testing.T) {
	h := launchTest(t, addressSpec("slow", serve(`echo compiling; `), 3000), testOptions())
	time.Sleep(100 * time.Millisecond)

	status := h.Stop()
	if status.Forced {
		t.Errorf("expected graceful stop, got %+v", status)
	}
	res, err := h.WatchResult()
	if err != nil {
		t.Errorf("shutdown must not surface a watch error, got %v", err)
	}
	if res.Matched || h.Signal().Ready() {
		t.Error("expected no readiness")
	}
}

func TestStopForceKill(t *testing.T) {
	opts := testOptions()
	opts.GracefulTimeout = 100 * time.Millisecond
	opts.KillTimeout = time.Second

	h := launchTest(t, addressSpec("stubborn", `trap '' TERM; echo http://localhost:3000; while :; do sleep 0.1; done`, 3000), opts)
	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")

	done := make(chan ExitStatus, 1)
	go func() { done <- h.Stop() }()

	select {
	case status := <-done:
		if !status.Forced || status.Code != 137 {
			t.Errorf("expected forced kill with 137, got %+v", status)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for forced stop")
	}
}

func TestStopSignalInt(t *testing.T) {
	spec := addressSpec("int", `trap 'exit 0' INT; echo http://localhost:3000; while :; do sleep 0.1; done`, 3000)
	sig, err := ParseSignal("SIGINT")
	if err != nil {
		t.Fatalf("ParseSignal failed: %v", err)
	}
	spec.StopSignal = sig

	h := launchTest(t, spec, testOptions())
	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")

	if status := h.Stop(); status.Code != 0 || status.Forced {
		t.Errorf("expected clean exit on SIGINT, got %+v", status)
	}
}

func TestOutputDrainedAfterReady(t *testing.T) {
	rec := &lineRecorder{}
	opts := testOptions()
	opts.OutputHandler = rec
	opts.OutputLogger = testLogger()

	// Far more output than a pipe buffer holds; the child would block if
	// nothing read it after readiness.
	command := serve(`echo http://localhost:3000; i=0; while [ $i -lt 4000 ]; do echo "line $i padding padding padding"; i=$((i+1)); done; echo finished; `)
	h := launchTest(t, addressSpec("chatty", command, 3000), opts)

	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")
	rec.waitFor(t, "finished", 5*time.Second)

	rec.mu.Lock()
	first := rec.lines[0]
	rec.mu.Unlock()
	if !strings.Contains(first, "http://localhost:3000") {
		t.Errorf("first forwarded line = %q", first)
	}
}

func TestEnvPassedToChild(t *testing.T) {
	spec := addressSpec("env", serve(`echo "http://localhost:$DEVUP_TEST_PORT"; `), 7777)
	spec.Env = []string{"DEVUP_TEST_PORT=7777"}

	h := launchTest(t, spec, testOptions())
	waitClosed(t, h.Signal().Done(), 2*time.Second, "readiness")
}
