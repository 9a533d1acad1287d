package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/sourcegraph/conc"

	"github.com/smazurov/devup/cmd"
	"github.com/smazurov/devup/internal/api"
	"github.com/smazurov/devup/internal/config"
	"github.com/smazurov/devup/internal/console"
	"github.com/smazurov/devup/internal/events"
	"github.com/smazurov/devup/internal/logging"
	"github.com/smazurov/devup/internal/metrics"
	"github.com/smazurov/devup/internal/nats"
	"github.com/smazurov/devup/internal/process"
	"github.com/smazurov/devup/internal/supervisor"
	"github.com/smazurov/devup/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"devup.toml"`

	// Built-in service pair, ignored when the config file defines [[services]]
	BackendDir      string `help:"Backend working directory (default ./backend)" toml:"backend.dir" env:"BACKEND_DIR"`
	BackendCommand  string `help:"Backend start command (default \"npm start\")" toml:"backend.command" env:"BACKEND_COMMAND"`
	BackendPort     int    `help:"Backend port used to detect readiness (default 3000)" toml:"backend.port" env:"BACKEND_PORT"`
	FrontendDir     string `help:"Frontend working directory (default ./frontend)" toml:"frontend.dir" env:"FRONTEND_DIR"`
	FrontendCommand string `help:"Frontend start command (default \"npm run dev\")" toml:"frontend.command" env:"FRONTEND_COMMAND"`
	FrontendPort    int    `help:"Frontend port used to detect readiness (default 5173)" toml:"frontend.port" env:"FRONTEND_PORT"`

	// Supervisor settings
	ReadyTimeout string `help:"Report services not ready after this long, 0 waits forever" default:"0s" toml:"supervisor.ready_timeout" env:"READY_TIMEOUT"`
	StopTimeout  string `help:"Grace period after the stop signal before SIGKILL" default:"10s" toml:"supervisor.stop_timeout" env:"STOP_TIMEOUT"`
	KillTimeout  string `help:"Wait after SIGKILL before giving up on a process" default:"5s" toml:"supervisor.kill_timeout" env:"KILL_TIMEOUT"`

	// Status API settings
	StatusAddr string `help:"Serve the read-only status API on this address (e.g. 127.0.0.1:8095)" toml:"status.addr" env:"STATUS_ADDR"`

	// NATS settings
	NatsURL      string `help:"Publish lifecycle events to this NATS server" toml:"nats.url" env:"NATS_URL"`
	NatsEmbedded bool   `help:"Run an embedded NATS server and publish to it" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsPort     int    `help:"Port for the embedded NATS server" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Console settings
	NoClear bool `help:"Do not clear the terminal on startup" toml:"console.no_clear" env:"NO_CLEAR"`
	NoColor bool `help:"Disable colored output" toml:"console.no_color" env:"NO_COLOR"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFile   string `help:"Write logs to this file instead of stderr" toml:"logging.file" env:"LOGGING_FILE"`
}

func (o *Options) overrides() config.Overrides {
	return config.Overrides{
		BackendDir:      o.BackendDir,
		BackendCommand:  o.BackendCommand,
		BackendPort:     o.BackendPort,
		FrontendDir:     o.FrontendDir,
		FrontendCommand: o.FrontendCommand,
		FrontendPort:    o.FrontendPort,
	}
}

// duration parses value, falling back to def with a warning.
func duration(logger *slog.Logger, name, value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger.Warn("Invalid duration, using default", "option", name, "value", value, "default", def)
		return def
	}
	return d
}

// applyModuleLevels sets the level of every module named in the reloaded
// [logging.modules] table.
func applyModuleLevels(modules map[string]string) {
	for module, level := range modules {
		if !logging.SetModuleLevel(module, level) {
			logging.GetLogger("config").Warn("Invalid module log level", "module", module, "level", level)
		}
	}
}

func main() {
	var (
		cli    humacli.CLI
		parsed *Options
	)

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		parsed = opts

		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:   opts.LoggingLevel,
			Format:  opts.LoggingFormat,
			Modules: config.LoadLoggingModules(opts.Config),
		}
		if opts.LoggingFile != "" {
			logFile, openErr := logging.OpenLogFile(opts.LoggingFile)
			if openErr != nil {
				slog.Warn("Failed to open log file, logging to stderr", "path", opts.LoggingFile, "error", openErr)
			} else {
				loggingConfig.Output = logFile
			}
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")
		if !logging.ValidLevel(opts.LoggingLevel) {
			logger.Warn("Unknown logging level, using info", "level", opts.LoggingLevel)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		hooks.OnStart(func() {
			defer close(done)
			if runErr := run(ctx, opts, logger); runErr != nil {
				logger.Error("Supervisor failed", "error", runErr)
				fmt.Fprintln(os.Stderr, "Error:", runErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			// Returning lets the process exit, so wait for confirmed shutdown.
			cancel()
			<-done
		})
	})

	cli.Root().Use = "devup"
	cli.Root().Short = "Start a development stack and stop it cleanly on interrupt"

	cli.Root().AddCommand(cmd.CreateCheckCmd(func() (string, config.Overrides) {
		return parsed.Config, parsed.overrides()
	}))
	cli.Root().AddCommand(cmd.CreateVersionCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}

// run supervises the configured services until ctx is cancelled.
func run(ctx context.Context, opts *Options, logger *slog.Logger) error {
	services, err := config.ResolveServices(opts.Config, opts.overrides())
	if err != nil {
		return err
	}

	eventBus := events.New()

	promMetrics := metrics.New()
	defer promMetrics.Attach(eventBus)()
	for _, s := range services {
		promMetrics.SetState(s.Name, process.PhaseStarting)
	}

	reporter := console.New(os.Stdout, services, console.Options{
		Clear:   !opts.NoClear,
		NoColor: opts.NoColor,
	})

	sup := supervisor.New(supervisor.Options{
		Services:     services,
		Reporter:     reporter,
		Bus:          eventBus,
		Notifier:     systemd.NewNotifier(logging.GetLogger("systemd")),
		Logger:       logging.GetLogger("supervisor"),
		OutputLogger: logging.GetLogger("output"),
		ReadyTimeout: duration(logger, "ready-timeout", opts.ReadyTimeout, 0),
		StopTimeout:  duration(logger, "stop-timeout", opts.StopTimeout, process.DefaultGracefulTimeout),
		KillTimeout:  duration(logger, "kill-timeout", opts.KillTimeout, process.DefaultKillTimeout),
	})

	var background conc.WaitGroup
	defer background.Wait()
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	if _, statErr := os.Stat(opts.Config); statErr == nil {
		watcher := config.NewWatcher(opts.Config, config.ReadLoggingModules, logging.GetLogger("config"))
		watcher.OnChange(applyModuleLevels)
		background.Go(func() {
			if watchErr := watcher.Run(bgCtx); watchErr != nil {
				logger.Warn("Config file will not be watched", "path", opts.Config, "error", watchErr)
			}
		})
	}

	if watchErr := promMetrics.WatchResources(sup); watchErr != nil {
		logger.Debug("Per-process resource metrics unavailable", "error", watchErr)
	}

	natsURL := opts.NatsURL
	if opts.NatsEmbedded {
		embedded, startErr := nats.StartEmbedded(opts.NatsPort, logging.GetLogger("nats"))
		if startErr != nil {
			logger.Warn("Failed to start embedded NATS server", "error", startErr)
		} else {
			defer embedded.Close()
			natsURL = embedded.URL()
		}
	}
	if natsURL != "" {
		publisher := nats.NewPublisher(natsURL, eventBus, logging.GetLogger("nats"))
		if startErr := publisher.Start(); startErr != nil {
			logger.Warn("Failed to connect to NATS, events will not be published", "url", natsURL, "error", startErr)
		} else {
			defer publisher.Stop()
		}
	}

	if opts.StatusAddr != "" {
		server := api.NewServer(&api.Options{
			Processes:         sup,
			EventBus:          eventBus,
			PrometheusHandler: promMetrics.Handler(),
		})
		go func() {
			if startErr := server.Start(opts.StatusAddr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start status API server", "error", startErr)
			}
		}()
		defer func() {
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping status API server", "error", stopErr)
			}
		}()
	}

	return sup.Run(ctx)
}
