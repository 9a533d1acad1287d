package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/devup/internal/events"
	"github.com/smazurov/devup/internal/process"
)

// eventually polls value until it equals want; bus delivery is asynchronous.
func eventually(t *testing.T, c prometheus.Collector, want float64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		got := testutil.ToFloat64(c)
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("metric = %v, want %v", got, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSetState(t *testing.T) {
	m := New()

	m.SetState("backend", process.PhaseStarting)
	m.SetState("backend", process.PhaseReady)

	if got := testutil.ToFloat64(m.state.WithLabelValues("backend", "ready")); got != 1 {
		t.Errorf("ready = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.state.WithLabelValues("backend", "starting")); got != 0 {
		t.Errorf("starting = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(m.state); n != len(phases) {
		t.Errorf("state series = %d, want %d", n, len(phases))
	}
}

func TestAttach(t *testing.T) {
	m := New()
	bus := events.New()
	detach := m.Attach(bus)
	defer detach()

	bus.Publish(events.StateChangedEvent{Name: "frontend", From: "starting", To: "ready"})
	bus.Publish(events.ReadyEvent{Name: "frontend", Address: "http://localhost:5173", Seconds: 1.5})
	bus.Publish(events.LaunchFailedEvent{Name: "backend", Error: "boom"})
	bus.Publish(events.WatchErrorEvent{Name: "frontend", Error: "eio"})
	bus.Publish(events.StoppedEvent{Name: "frontend", ExitCode: 137, Forced: true})
	bus.Publish(events.StoppedEvent{Name: "other", ExitCode: 0})

	eventually(t, m.state.WithLabelValues("frontend", "ready"), 1)
	eventually(t, m.readySeconds.WithLabelValues("frontend"), 1.5)
	eventually(t, m.launchFailures.WithLabelValues("backend"), 1)
	eventually(t, m.watchErrors.WithLabelValues("frontend"), 1)
	eventually(t, m.forcedKills.WithLabelValues("frontend"), 1)

	if got := testutil.ToFloat64(m.forcedKills.WithLabelValues("other")); got != 0 {
		t.Errorf("forced kills for clean stop = %v", got)
	}
}

func TestDetachStopsUpdates(t *testing.T) {
	m := New()
	bus := events.New()
	detach := m.Attach(bus)

	bus.Publish(events.LaunchFailedEvent{Name: "a"})
	eventually(t, m.launchFailures.WithLabelValues("a"), 1)

	detach()
	bus.Publish(events.LaunchFailedEvent{Name: "a"})
	time.Sleep(20 * time.Millisecond)

	if got := testutil.ToFloat64(m.launchFailures.WithLabelValues("a")); got != 1 {
		t.Errorf("launch failures after detach = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetState("backend", process.PhaseReady)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`devup_process_state{name="backend",phase="ready"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
