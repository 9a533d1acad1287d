package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/devup/internal/config"
)

func lookPathIn(known ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, k := range known {
			if k == file {
				return file, nil
			}
		}
		return "", errors.New("executable file not found")
	}
}

func TestCheckServices(t *testing.T) {
	dir := t.TempDir()

	services := []config.ServiceSpec{
		{Name: "api", Command: "npm start", Dir: dir, Port: 3000, Readiness: "address"},
		{Name: "worker", Command: "./bin/worker --verbose", Dir: dir, Exec: true, Port: 4000, Readiness: "address"},
		{Name: "web", Command: "vite", Dir: filepath.Join(dir, "missing"), Exec: true, Port: 5173, Readiness: "address"},
	}

	results := CheckServices(services, lookPathIn("/bin/sh", filepath.Join(dir, "bin", "worker")))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if !results[0].OK() || results[0].Program != "/bin/sh" {
		t.Errorf("shell service: %+v", results[0])
	}
	if !results[1].OK() || results[1].Program != "./bin/worker" {
		t.Errorf("exec service: %+v", results[1])
	}
	if results[2].OK() {
		t.Error("expected problems for missing dir and program")
	}
	if len(results[2].Problems) != 2 {
		t.Errorf("expected 2 problems, got %q", results[2].Problems)
	}
}

func TestCheckServicesNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	results := CheckServices([]config.ServiceSpec{
		{Name: "api", Command: "npm start", Dir: file, Port: 3000, Readiness: "address"},
	}, lookPathIn("/bin/sh"))
	if results[0].OK() || !strings.Contains(results[0].Problems[0], "not a directory") {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devup.toml")
	content := `
[[services]]
name = "api"
command = "sh -c 'echo http://localhost:3000'"
exec = true
dir = "` + dir + `"
port = 3000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := RunCheck(&out, path, config.Overrides{}); err != nil {
		t.Fatalf("RunCheck failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "api") || !strings.Contains(out.String(), "ok") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunCheckReportsProblems(t *testing.T) {
	var out bytes.Buffer
	err := RunCheck(&out, filepath.Join(t.TempDir(), "absent.toml"), config.Overrides{
		BackendDir:  "/definitely/not/here",
		FrontendDir: "/definitely/not/here/either",
	})
	if !errors.Is(err, ErrCheckFailed) {
		t.Fatalf("expected ErrCheckFailed, got %v", err)
	}
	if !strings.Contains(out.String(), "Backend Server") {
		t.Errorf("expected default services in output:\n%s", out.String())
	}
}

func TestRunCheckInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devup.toml")
	if err := os.WriteFile(path, []byte("[[services]]\nname = \"api\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := RunCheck(&bytes.Buffer{}, path, config.Overrides{})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
