package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/imroc/req/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/inboxsync/internal/metrics"
	"github.com/desertthunder/inboxsync/internal/repositories"
	"github.com/desertthunder/inboxsync/internal/server"
	"github.com/desertthunder/inboxsync/internal/services"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/tasks"
)

const daemonTimeout = 10 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	executor   services.Executor
	daemon     *req.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Executor   services.Executor
	DaemonURL  string // base URL of a running serve instance, defaults to the [server] section
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.DaemonURL == "" {
		opts.DaemonURL = "http://" + opts.Config.Server.Addr()
	}

	daemon := req.C().
		SetBaseURL(opts.DaemonURL).
		SetTimeout(daemonTimeout).
		SetUserAgent("inboxsync-cli").
		SetCommonErrorResult(&server.ErrorResponse{})

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		executor:   opts.Executor,
		daemon:     daemon,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, statusCommand, cancelCommand, serveCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// session is an orchestrator plus the sqlite history that backs it.
type session struct {
	orch    *tasks.Orchestrator
	history *repositories.HistoryAdapter
	close   func() error
}

func (s *session) Close() error {
	s.orch.Close()
	return s.close()
}

// newOrchestrator builds an orchestrator for one command. history may be nil, in
// which case sync metadata lives in memory for the lifetime of the process.
func (r *Runner) newOrchestrator(history *repositories.HistoryAdapter, reg prometheus.Registerer) (*tasks.Orchestrator, error) {
	if r.executor == nil {
		return nil, fmt.Errorf("%w: executor client not initialized (set executor.base_url)", shared.ErrServiceUnavailable)
	}

	m, err := metrics.NewSyncMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := tasks.OptionsFromConfig(r.config, r.executor)
	opts.Metrics = m
	opts.Logger = r.logger
	if history != nil {
		opts.Metadata = history
		opts.Recorder = history
	}
	return tasks.NewOrchestrator(opts)
}

// openSession opens the configured database and wires its history into a new orchestrator.
func (r *Runner) openSession(reg prometheus.Registerer) (*session, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	history := historyAdapter(db)
	orch, err := r.newOrchestrator(history, reg)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &session{orch: orch, history: history, close: db.Close}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
