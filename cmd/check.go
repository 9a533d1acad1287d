package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/smazurov/devup/internal/config"
	"github.com/spf13/cobra"
)

// ErrCheckFailed is returned by RunCheck when any service has a problem.
var ErrCheckFailed = errors.New("service check failed")

// CheckResult is the outcome of checking one service.
type CheckResult struct {
	Service  config.ServiceSpec
	Program  string
	Problems []string
}

// OK reports whether the service passed every check.
func (r CheckResult) OK() bool {
	return len(r.Problems) == 0
}

// CheckServices verifies that each service's directory exists and that
// the program it would start can be found.
func CheckServices(services []config.ServiceSpec, lookPath func(string) (string, error)) []CheckResult {
	results := make([]CheckResult, 0, len(services))
	for _, s := range services {
		r := CheckResult{Service: s}

		if s.Dir != "" {
			info, err := os.Stat(s.Dir)
			switch {
			case err != nil:
				r.Problems = append(r.Problems, fmt.Sprintf("dir %s: %v", s.Dir, err))
			case !info.IsDir():
				r.Problems = append(r.Problems, fmt.Sprintf("dir %s: not a directory", s.Dir))
			}
		}

		spec, err := s.ProcessSpec()
		if err == nil {
			r.Program, err = spec.Program()
		}
		if err != nil {
			r.Problems = append(r.Problems, err.Error())
			results = append(results, r)
			continue
		}

		// Relative program paths resolve against the service directory.
		program := r.Program
		if strings.ContainsRune(program, filepath.Separator) && !filepath.IsAbs(program) {
			program = filepath.Join(s.Dir, program)
			if !filepath.IsAbs(program) {
				program = "." + string(filepath.Separator) + program
			}
		}
		if _, err := lookPath(program); err != nil {
			r.Problems = append(r.Problems, fmt.Sprintf("program %s: %v", r.Program, err))
		}

		results = append(results, r)
	}
	return results
}

// RunCheck resolves the services from path and o, checks them and writes
// a summary table to w. It returns ErrCheckFailed if any check failed.
func RunCheck(w io.Writer, path string, o config.Overrides) error {
	services, err := config.ResolveServices(path, o)
	if err != nil {
		return err
	}

	results := CheckServices(services, exec.LookPath)

	failed := false
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "DIR", "COMMAND", "PORT", "READINESS", "STATUS")
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			failed = true
			status = strings.Join(r.Problems, "; ")
		}
		t.Row(r.Service.Name, r.Service.Dir, r.Service.Command, strconv.Itoa(r.Service.Port), r.Service.Readiness, status)
	}
	fmt.Fprintln(w, t.String())

	if failed {
		return ErrCheckFailed
	}
	return nil
}

// CreateCheckCmd creates the check command. resolve supplies the config
// file path and overrides after flags, environment and file are merged.
func CreateCheckCmd(resolve func() (string, config.Overrides)) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate service definitions without starting them",
		Long: `Resolves the services from the config file or the built-in backend/frontend pair, ` +
			`validates them and checks that each working directory and program exists.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			path, overrides := resolve()
			if err := RunCheck(cmd.OutOrStdout(), path, overrides); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				os.Exit(1)
			}
		},
	}
}
