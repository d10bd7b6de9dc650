// Package cli implements the loopline command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/config"
	"github.com/tOgg1/loopline/internal/db"
	"github.com/tOgg1/loopline/internal/logging"
)

// Exit codes.
const (
	ExitCodeSuccess  = 0
	ExitCodeFailure  = 1
	ExitCodeCritical = 2
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
	// Printed is set when the command already reported the problem.
	Printed bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exitf builds an ExitError from a format string.
func Exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// Execute runs the loopline CLI.
func Execute(version string) error {
	a := &app{}
	defer a.close()
	return a.rootCmd(version).Execute()
}

type app struct {
	configFile string
	logLevel   string
	dbPath     string
	mediaID    string
	jsonOutput bool

	cfg      *config.Config
	contexts *config.ContextStore
	logFile  *os.File
	logCfg   logging.Config
}

func (a *app) rootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loopline",
		Short:         "Check and repair practice loops on a media timeline",
		Long:          "loopline validates, detects conflicts in, and repairs collections of practice loops.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithContext(ctx, logging.Component("cli").With().Str("command", cmd.Name()).Logger()))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ~/.config/loopline/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&a.dbPath, "db", "", "database path override")
	flags.StringVar(&a.mediaID, "media", "", "media id to read loops from the database")
	flags.BoolVar(&a.jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(
		newNewCmd(a),
		newValidateCmd(a),
		newDetectCmd(a),
		newSuggestCmd(a),
		newResolveCmd(a),
		newCheckCmd(a),
		newDebugCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newListCmd(a),
		newHistoryCmd(a),
		newUseCmd(a),
	)

	return cmd
}

func (a *app) setup() error {
	loader := config.NewLoader()
	if a.configFile != "" {
		loader.SetConfigFile(a.configFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return Exitf(ExitCodeFailure, "load config: %v", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg
	a.contexts = config.NewContextStore(filepath.Join(cfg.Global.ConfigDir, "context.yaml"))

	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       os.Stderr,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return Exitf(ExitCodeFailure, "create log directory: %v", err)
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return Exitf(ExitCodeFailure, "open log file: %v", err)
		}
		a.logFile = f
		logCfg.Output = f
		logCfg.Format = "json"
	}
	logging.Init(logCfg)
	a.logCfg = logCfg

	logging.Debug().
		Str("config", loader.ConfigFileUsed()).
		Str("database", cfg.DatabasePath()).
		Msg("configuration loaded")
	return nil
}

// close releases the log file opened by setup. Logging falls back to stderr
// so later events never reach a closed file.
func (a *app) close() {
	if a.logFile == nil {
		return
	}
	f := a.logFile
	a.logFile = nil

	cfg := a.logCfg
	cfg.Output = os.Stderr
	cfg.Format = a.cfg.Logging.Format
	logging.Init(cfg)
	if err := f.Close(); err != nil {
		logging.Error().Err(err).Str("path", f.Name()).Msg("close log file")
	}
}

// openStore opens and migrates the loop database.
func (a *app) openStore(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(db.Config{
		Path:          a.cfg.DatabasePath(),
		BusyTimeoutMs: a.cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return nil, Exitf(ExitCodeFailure, "open database: %v", err)
	}
	applied, err := database.MigrateUp(ctx)
	if err != nil {
		_ = database.Close()
		return nil, Exitf(ExitCodeFailure, "migrate database: %v", err)
	}
	if applied > 0 {
		logging.Info().Int("migrations", applied).Str("path", database.Path()).Msg("database migrated")
	}
	return database, nil
}

// resolveMediaID picks the media id from an explicit value, the --media
// flag, or the saved context, in that order.
func (a *app) resolveMediaID(explicit string) (string, error) {
	for _, candidate := range []string{explicit, a.mediaID} {
		if id := strings.TrimSpace(candidate); id != "" {
			return id, nil
		}
	}
	current, err := a.contexts.Load()
	if err != nil {
		return "", Exitf(ExitCodeFailure, "load context: %v", err)
	}
	if current.IsEmpty() {
		return "", Exitf(ExitCodeFailure, "no media selected: pass a loop file, --media, or run 'loopline use MEDIA_ID'")
	}
	return current.MediaID, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrMediaNotFound) || errors.Is(err, os.ErrNotExist)
}
