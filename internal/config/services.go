package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/devup/internal/process"
	"github.com/smazurov/devup/internal/readiness"
)

// Built-in service names.
const (
	BackendName  = "Backend Server"
	FrontendName = "Frontend Server"
)

// defaultColors are assigned in order to services without a color.
var defaultColors = []string{"cyan", "green", "magenta", "blue"}

// ServiceSpec describes one managed process.
type ServiceSpec struct {
	Name       string            `toml:"name" json:"name"`
	Label      string            `toml:"label" json:"label,omitempty"` // summary label, defaults to Name
	Command    string            `toml:"command" json:"command"`
	Dir        string            `toml:"dir" json:"dir,omitempty"`
	Port       int               `toml:"port" json:"port"`
	Color      string            `toml:"color" json:"color,omitempty"`
	Readiness  string            `toml:"readiness" json:"readiness"`
	Keywords   []string          `toml:"keywords" json:"keywords,omitempty"`
	Scheme     string            `toml:"scheme" json:"scheme,omitempty"`
	Host       string            `toml:"host" json:"host,omitempty"`
	Exec       bool              `toml:"exec" json:"exec,omitempty"`
	Shell      string            `toml:"shell" json:"shell,omitempty"`
	StopSignal string            `toml:"stop_signal" json:"stop_signal,omitempty"`
	Env        map[string]string `toml:"env" json:"env,omitempty"`
}

// ReadinessConfig returns the readiness matcher configuration.
func (s ServiceSpec) ReadinessConfig() readiness.Config {
	return readiness.Config{
		Mode:     readiness.Mode(s.Readiness),
		Port:     s.Port,
		Scheme:   s.Scheme,
		Host:     s.Host,
		Keywords: s.Keywords,
	}
}

// Matcher builds the readiness matcher for the service.
func (s ServiceSpec) Matcher() (readiness.Matcher, error) {
	return readiness.New(s.ReadinessConfig())
}

// DisplayLabel returns Label, or Name when no label is set.
func (s ServiceSpec) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// Environ returns Env as sorted KEY=VALUE pairs.
func (s ServiceSpec) Environ() []string {
	env := make([]string, 0, len(s.Env))
	for _, key := range slices.Sorted(maps.Keys(s.Env)) {
		env = append(env, key+"="+s.Env[key])
	}
	return env
}

// ProcessSpec converts the service into a launch spec.
func (s ServiceSpec) ProcessSpec() (process.Spec, error) {
	m, err := s.Matcher()
	if err != nil {
		return process.Spec{}, err
	}
	sig, err := process.ParseSignal(s.StopSignal)
	if err != nil {
		return process.Spec{}, err
	}
	return process.Spec{
		Name:       s.Name,
		Command:    s.Command,
		Dir:        s.Dir,
		Env:        s.Environ(),
		Exec:       s.Exec,
		Shell:      s.Shell,
		StopSignal: sig,
		Matcher:    m,
	}, nil
}

// Overrides replace fields of the built-in backend/frontend pair.
// Zero values keep the default.
type Overrides struct {
	BackendDir      string
	BackendCommand  string
	BackendPort     int
	FrontendDir     string
	FrontendCommand string
	FrontendPort    int
}

// DefaultServices returns the built-in backend and frontend pair.
func DefaultServices(o Overrides) []ServiceSpec {
	backend := ServiceSpec{
		Name:      BackendName,
		Label:     "Backend",
		Command:   "npm start",
		Dir:       "./backend",
		Port:      3000,
		Color:     "cyan",
		Readiness: string(readiness.ModeAddress),
	}
	frontend := ServiceSpec{
		Name:      FrontendName,
		Label:     "Frontend",
		Command:   "npm run dev",
		Dir:       "./frontend",
		Port:      5173,
		Color:     "green",
		Readiness: string(readiness.ModeAddressKeywords),
		Keywords:  []string{"VITE", "READY"},
	}

	override(&backend.Dir, o.BackendDir)
	override(&backend.Command, o.BackendCommand)
	override(&backend.Port, o.BackendPort)
	override(&frontend.Dir, o.FrontendDir)
	override(&frontend.Command, o.FrontendCommand)
	override(&frontend.Port, o.FrontendPort)

	return []ServiceSpec{backend, frontend}
}

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// servicesFile is the [[services]] part of the config file.
type servicesFile struct {
	Services []ServiceSpec `toml:"services"`
}

// LoadServices reads [[services]] tables from the config file.
// A missing file or one without services yields nil.
func LoadServices(path string) ([]ServiceSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := readConfigFile(path)
	if err != nil || data == nil {
		return nil, err
	}

	var file servicesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse services in %s: %w", path, err)
	}
	return file.Services, nil
}

// ResolveServices returns the validated services to run: the [[services]]
// tables of the config file if any, otherwise the built-in pair with o
// applied.
func ResolveServices(path string, o Overrides) ([]ServiceSpec, error) {
	services, err := LoadServices(path)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		services = DefaultServices(o)
	}

	for i := range services {
		applyDefaults(&services[i], i)
	}
	if err := Validate(services); err != nil {
		return nil, err
	}
	return services, nil
}

func applyDefaults(s *ServiceSpec, index int) {
	if s.Readiness == "" {
		s.Readiness = string(readiness.ModeAddress)
	}
	if s.Color == "" {
		s.Color = defaultColors[index%len(defaultColors)]
	}
}

// Validate checks every service and reports all problems at once.
func Validate(services []ServiceSpec) error {
	verr := &ValidationError{}
	if len(services) == 0 {
		verr.add("no services configured")
	}

	seen := make(map[string]bool, len(services))
	for i, s := range services {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("services[%d]", i)
			verr.add("%s: name is required", label)
		} else if seen[s.Name] {
			verr.add("%s: duplicate name", label)
		}
		seen[s.Name] = true

		if s.Command == "" {
			verr.add("%s: command is required", label)
		}
		if s.Port < 1 || s.Port > 65535 {
			verr.add("%s: port %d out of range 1-65535", label, s.Port)
		}
		if _, err := s.Matcher(); err != nil {
			verr.add("%s: %v", label, err)
		}
		if _, err := process.ParseSignal(s.StopSignal); err != nil {
			verr.add("%s: %v", label, err)
		}
	}
	return verr.errOrNil()
}
