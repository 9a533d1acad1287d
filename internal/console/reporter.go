// Package console renders supervisor progress on a terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/smazurov/devup/internal/config"
	"github.com/smazurov/devup/internal/process"
	"github.com/smazurov/devup/internal/supervisor"
)

// clearScreen resets the terminal (RIS).
const clearScreen = "\033c"

// namedColors maps color names used in configuration to ANSI colors.
// Any other value is passed to lipgloss as is ("#ff00aa", "201").
var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
}

// Options configures a Reporter.
type Options struct {
	// Clear resets the terminal before the "Starting servers..." header.
	Clear bool
	// NoColor disables styling regardless of the terminal.
	NoColor bool
}

// Reporter prints supervisor progress with per-service colors.
type Reporter struct {
	mu       sync.Mutex
	out      io.Writer
	clear    bool
	services map[string]lipgloss.Style
	labels   map[string]string
	plain    lipgloss.Style
	banner   lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
}

var _ supervisor.Reporter = (*Reporter)(nil)

// New creates a reporter writing to out. Colors come from each service's
// Color field.
func New(out io.Writer, services []config.ServiceSpec, opts Options) *Reporter {
	r := lipgloss.NewRenderer(out)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}

	color := func(name string) lipgloss.Style {
		if ansi, ok := namedColors[strings.ToLower(name)]; ok {
			name = ansi
		}
		return r.NewStyle().Foreground(lipgloss.Color(name))
	}

	rep := &Reporter{
		out:      out,
		clear:    opts.Clear,
		services: make(map[string]lipgloss.Style, len(services)),
		labels:   make(map[string]string, len(services)),
		plain:    r.NewStyle(),
		banner:   color("yellow"),
		success:  color("green"),
		failure:  color("red"),
	}
	for _, s := range services {
		rep.labels[s.Name] = s.DisplayLabel()
		if s.Color == "" {
			rep.services[s.Name] = rep.plain
			continue
		}
		rep.services[s.Name] = color(s.Color)
	}
	return rep
}

func (r *Reporter) style(name string) lipgloss.Style {
	if st, ok := r.services[name]; ok {
		return st
	}
	return r.plain
}

func (r *Reporter) println(lines ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(r.out, line)
	}
}

// Starting implements supervisor.Reporter.
func (r *Reporter) Starting(_ []string) {
	if r.clear {
		r.mu.Lock()
		fmt.Fprint(r.out, clearScreen)
		r.mu.Unlock()
	}
	r.println("Starting servers...", "")
}

// LaunchFailed implements supervisor.Reporter.
func (r *Reporter) LaunchFailed(name string, err error) {
	r.println(r.failure.Render(fmt.Sprintf("Error starting %s: %v", name, err)))
}

// ProcessReady implements supervisor.Reporter.
func (r *Reporter) ProcessReady(name, address string) {
	r.println(r.style(name).Render(fmt.Sprintf("%s started at %s", name, address)))
}

// AllReady implements supervisor.Reporter.
func (r *Reporter) AllReady(ready []supervisor.Ready) {
	lines := []string{"", r.banner.Render("Application running at:")}
	for _, s := range ready {
		label, ok := r.labels[s.Name]
		if !ok {
			label = s.Name
		}
		lines = append(lines, r.style(s.Name).Render(fmt.Sprintf("%s: %s", label, s.Address)))
	}
	r.println(lines...)
}

// ProcessExited implements supervisor.Reporter.
func (r *Reporter) ProcessExited(name string, code int, wasReady bool) {
	msg := fmt.Sprintf("%s exited with code %d before becoming ready.", name, code)
	if wasReady {
		msg = fmt.Sprintf("%s exited with code %d.", name, code)
	}
	r.println(r.failure.Render(msg))
}

// WatchFailed implements supervisor.Reporter.
func (r *Reporter) WatchFailed(name string, err error) {
	r.println(r.failure.Render(fmt.Sprintf("Error in %s output monitoring: %v", name, err)))
}

// ReadyTimeout implements supervisor.Reporter.
func (r *Reporter) ReadyTimeout(pending []string) {
	r.println(r.banner.Render("Still waiting for: " + strings.Join(pending, ", ")))
}

// ShutdownStarted implements supervisor.Reporter.
func (r *Reporter) ShutdownStarted() {
	r.println("", r.banner.Render("Shutting down servers..."))
}

// ProcessStopped implements supervisor.Reporter.
func (r *Reporter) ProcessStopped(name string, status process.ExitStatus) {
	if status.Forced {
		r.println(r.failure.Render(fmt.Sprintf("%s killed after stop timeout.", name)))
		return
	}
	r.println(r.style(name).Render(fmt.Sprintf("%s stopped gracefully.", name)))
}

// AllStopped implements supervisor.Reporter.
func (r *Reporter) AllStopped() {
	r.println(r.success.Render("Servers stopped gracefully."))
}
