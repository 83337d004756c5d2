// Package cmdutil carries the plumbing shared by the harness subcommands:
// environment loading, interrupt aware contexts, exit code mapping and the
// completion webhook.
package cmdutil

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/internal/batch"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/store"
	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
	"github.com/probstack/btcpay-harness/internal/utils/notify"
)

// Interrupted is the exit code of a run cut short by a signal, following
// the shell convention for SIGINT.
const Interrupted = 130

// ExitError carries a process exit code through cobra's error path. A nil
// Err means the command already reported everything it had to say and only
// the code matters.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit turns an exit code into cobra's error contract: nil for success, an
// ExitError otherwise.
func Exit(code int) error {
	if code == 0 {
		return nil
	}

	return &ExitError{Code: code}
}

// Env bundles the process level dependencies every subcommand starts from.
type Env struct {
	Config *config.AppConfig
	Logger *logger.Logger

	// File is the parsed run config named by --config, nil when the flag
	// was not given.
	File *runconfig.File
}

// LoadEnv builds the app config and logger, then loads the run config file
// when the command was given one. Each subcommand keeps a file trail under
// LOG_DIR next to its console output.
func LoadEnv(cmd *cobra.Command) (*Env, error) {
	appConfig := config.New()
	logFile := filepath.Join(appConfig.LogDir, cmd.Name()+".log")

	env := &Env{
		Config: appConfig,
		Logger: logger.NewWithFile(appConfig.Environment, logFile),
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return env, nil
	}

	file, err := runconfig.Load(path)
	if err != nil {
		return nil, err
	}
	env.File = file

	return env, nil
}

// NotifyURL resolves the completion webhook target. The run config's
// network section wins over the RUN_WEBHOOK_URL environment fallback.
func (e *Env) NotifyURL() string {
	if e.File != nil {
		network, err := e.File.Network()
		if err == nil && network.NotifyURL != nil {
			return *network.NotifyURL
		}
	}

	return e.Config.WebhookURL
}

// OpenDB validates the resolved database options and opens a postgres store
// from them.
func OpenDB(e *Env, opts runconfig.PaymentsOptions) (store.DBRepo, error) {
	if opts.Host == "" || opts.Database == "" || opts.User == "" {
		return nil, errors.New("database host, name and user are required, set the flags or the config file")
	}

	e.Config.Postgres = config.DBConnection{
		Host:    opts.Host,
		Port:    strconv.Itoa(opts.Port),
		User:    opts.User,
		Name:    opts.Database,
		Pass:    opts.Password,
		SSLMode: e.Config.Postgres.SSLMode,
	}

	return store.NewPostgresStore(e.Config, e.Logger)
}

// SignalContext returns a context canceled on SIGINT or SIGTERM, so batch
// runs stop at the next boundary and still export what they accumulated.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ReportExitCode maps a finished run onto the exit code contract: 0 when
// every unit landed, Interrupted when the run was cut short, 1 otherwise.
func ReportExitCode(stats batch.RunStats) int {
	switch {
	case stats.Interrupted:
		return Interrupted
	case stats.Failed > 0:
		return 1
	default:
		return 0
	}
}

// NotifyRun posts the best effort completion event for a finished run. It
// uses a fresh context so an interrupted run still notifies.
func NotifyRun(e *Env, kind string, stats batch.RunStats) {
	url := e.NotifyURL()
	if url == "" {
		return
	}

	notify.New(e.Logger).RunComplete(context.Background(), url, notify.Event{
		Event:       kind,
		Total:       stats.TotalRequested,
		Successful:  stats.Successful,
		Failed:      stats.Failed,
		DurationSec: stats.Duration().Seconds(),
		Interrupted: stats.Interrupted,
		Timestamp:   stats.EndTime,
	})
}
