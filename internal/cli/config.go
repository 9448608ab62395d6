package cli

import (
	"github.com/spf13/cobra"

	"github.com/dl-alexandre/medialib/internal/config"
	"github.com/dl-alexandre/medialib/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing medialib configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration: file values with environment overrides applied",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Use 'config show' to see available keys",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  "Reset all configuration settings to their default values",
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

func configPath() (string, error) {
	if globalFlags.Config != "" {
		return globalFlags.Config, nil
	}
	return config.GetConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	path, err := configPath()
	if err != nil {
		return out.Fail("config.show", err)
	}
	out.Verbose("Config file: %s", path)
	return out.WriteSuccess("config.show", map[string]interface{}{
		"defaultOutputFormat": appConfig.DefaultOutputFormat,
		"logLevel":            appConfig.LogLevel,
		"logFormat":           appConfig.LogFormat,
		"colorOutput":         appConfig.ColorOutput,
		"databaseDriver":      appConfig.DatabaseDriver,
		"databaseDSN":         appConfig.DatabaseDSN,
		"progressIntervalMs":  appConfig.ProgressIntervalMs,
		"pageSize":            appConfig.PageSize,
		"maxDepth":            appConfig.MaxDepth,
		"excludePatterns":     appConfig.ExcludePatterns,
		"watchIntervalSec":    appConfig.WatchIntervalSec,
		"metricsAddr":         appConfig.MetricsAddr,
	})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)

	key := args[0]
	value := args[1]

	path, err := configPath()
	if err != nil {
		return out.Fail("config.set", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return out.Fail("config.set", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build()))
	}
	if err := cfg.Set(key, value); err != nil {
		return out.Invalid("config.set", "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return out.Invalid("config.set", "%v", err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return out.Fail("config.set", err)
	}

	out.Log("Configuration updated: %s = %s", key, value)
	return out.WriteSuccess("config.set", map[string]interface{}{
		"key":   key,
		"value": value,
		"file":  path,
	})
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)

	path, err := configPath()
	if err != nil {
		return out.Fail("config.reset", err)
	}
	cfg := config.DefaultConfig()
	if err := cfg.SaveTo(path); err != nil {
		return out.Fail("config.reset", err)
	}

	out.Log("Configuration reset to defaults")
	return out.WriteSuccess("config.reset", map[string]interface{}{"file": path})
}
