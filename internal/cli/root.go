package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/medialib/internal/config"
	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/tracker/index"
	"github.com/dl-alexandre/medialib/internal/types"
	"github.com/dl-alexandre/medialib/internal/utils"
	"github.com/dl-alexandre/medialib/pkg/version"
)

var (
	globalFlags types.GlobalFlags
	logger      logging.Logger = logging.NewNoOpLogger()
	appConfig                  = config.DefaultConfig()
	traceID     string
)

var rootCmd = &cobra.Command{
	Use:   "medialib",
	Short: "Track media directories and keep the library in sync",
	Long: `medialib tracks the directories of local media collections.

A sweep walks a collection, records a content digest per directory and flags
directories that were added, modified or removed since the last sweep. The
import step reads flagged directories and confirms them, and purge removes
what vanished while relinking moved tracks to keep their ratings.

All commands support JSON output for automation and scripting.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return setupError(cmd, utils.ErrCodeInvalidConfig, err)
		}
		appConfig = cfg
		applyConfigDefaults(cmd, cfg)

		if err := validateGlobalFlags(); err != nil {
			return setupError(cmd, utils.ErrCodeInvalidArgument, err)
		}

		// Initialize logging
		logConfig := logging.DefaultLogConfig()
		logConfig.OutputFile = globalFlags.LogFile
		logConfig.EnableConsole = !globalFlags.Quiet
		logConfig.EnableDebug = globalFlags.Debug
		logConfig.EnableColor = cfg.ColorOutput
		logConfig.Format = globalFlags.LogFormat
		if globalFlags.Verbose {
			logConfig.Level = logging.DEBUG
		}
		if globalFlags.OutputFormat == types.OutputFormatJSON && !globalFlags.Verbose && !globalFlags.Debug {
			logConfig.EnableConsole = false
		}

		l, err := logging.NewLogger(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		traceID = uuid.New().String()
		logger = l.WithTraceID(traceID)
		cmd.SetContext(logging.ContextWithTraceID(cmd.Context(), traceID))
		logger.Debug("command started", logging.String("command", cmd.CommandPath()))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version, commit and build information of medialib",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := NewOutputWriter(cmd)
		if globalFlags.OutputFormat == types.OutputFormatJSON {
			return out.WriteSuccess("version", version.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar((*string)(&globalFlags.OutputFormat), "output", "", "Output format (json, table)")
	pf.BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	pf.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output")
	pf.StringVar(&globalFlags.Config, "config", "", "Path to configuration file (.json, .yaml)")
	pf.StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	pf.StringVar(&globalFlags.LogFormat, "log-format", "", "Console log format (text, json)")
	pf.StringVar(&globalFlags.DatabaseDriver, "db-driver", "", "Index database driver (sqlite, postgres)")
	pf.StringVar(&globalFlags.DatabaseDSN, "db", "", "Index database file or connection string")

	rootCmd.AddCommand(versionCmd)
}

// setupError reports a failure that happens before the output format is known.
func setupError(cmd *cobra.Command, code string, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", code, err)
	return utils.NewAppError(utils.NewCLIError(code, err.Error()).Build())
}

func loadConfig() (*config.Config, error) {
	if globalFlags.Config != "" {
		return config.LoadFrom(globalFlags.Config)
	}
	return config.Load()
}

// applyConfigDefaults fills the flags the user did not pass from cfg.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("output") && !globalFlags.JSON {
		globalFlags.OutputFormat = cfg.DefaultOutputFormat
	}
	if globalFlags.LogFormat == "" {
		globalFlags.LogFormat = cfg.LogFormat
	}
	switch cfg.LogLevel {
	case "quiet":
		if !cmd.Flags().Changed("verbose") && !cmd.Flags().Changed("debug") {
			globalFlags.Quiet = true
		}
	case "verbose":
		globalFlags.Verbose = true
	case "debug":
		globalFlags.Debug = true
	}
	if globalFlags.DatabaseDriver == "" {
		globalFlags.DatabaseDriver = cfg.DatabaseDriver
	}
}

func validateGlobalFlags() error {
	// Handle --json flag as alias for --output json
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s", globalFlags.OutputFormat)
	}
	if globalFlags.LogFormat != "text" && globalFlags.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s", globalFlags.LogFormat)
	}
	return nil
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return utils.GetExitCode(appErr.CLIError.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return utils.ExitInvalidArgument
	}
	return utils.ExitSuccess
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	return logger
}

// commandContext is cancelled on SIGINT or SIGTERM so walks stop cleanly.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// openIndex opens the tracking database selected by flags and configuration.
func openIndex(ctx context.Context) (*index.Store, error) {
	driver, err := index.ParseDriver(globalFlags.DatabaseDriver)
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}
	dsn := globalFlags.DatabaseDSN
	if dsn == "" {
		if dsn, err = appConfig.GetDatabaseDSN(); err != nil {
			return nil, err
		}
	}
	return index.Open(ctx, driver, dsn, logger)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
