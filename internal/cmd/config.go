package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tf2director/tf2director/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify tf2director configuration",
	Long: `View or modify tf2director configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  tf2director config set stop.delay_seconds 30
  tf2director config set tmux.socket tf2director

Valid keys:
  logging.enabled        - Write the debug log (true/false)
  logging.level          - Debug log level: debug, info, warn, error
  tmux.socket            - tmux server socket name (-L)
  tmux.session_prefix    - Prefix of default session names
  update.steamcmd_path   - Absolute path of steamcmd
  update.app_id          - Steam app id to install
  stop.delay_seconds     - Seconds players are warned before quit
  stop.grace_seconds     - Seconds srcds gets to exit after quit
  query.timeout_ms       - Status query timeout in milliseconds

Servers are edited in the config file directly.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter config file",
	Long:  `Create a starter config file at ~/.config/tf2director/config.yaml with one example server.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)

	fmt.Fprintln(out, "tmux:")
	fmt.Fprintf(out, "  socket: %s\n", cfg.Tmux.Socket)
	fmt.Fprintf(out, "  session_prefix: %s\n", cfg.Tmux.SessionPrefix)

	fmt.Fprintln(out, "update:")
	fmt.Fprintf(out, "  steamcmd_path: %s\n", cfg.Update.SteamcmdPath)
	fmt.Fprintf(out, "  app_id: %d\n", cfg.Update.AppID)

	fmt.Fprintln(out, "stop:")
	fmt.Fprintf(out, "  delay_seconds: %d\n", cfg.Stop.DelaySeconds)
	fmt.Fprintf(out, "  grace_seconds: %d\n", cfg.Stop.GraceSeconds)

	fmt.Fprintln(out, "query:")
	fmt.Fprintf(out, "  timeout_ms: %d\n", cfg.Query.TimeoutMs)

	fmt.Fprintln(out, "servers:")
	if len(cfg.Servers) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, s := range cfg.Servers {
		fmt.Fprintf(out, "  - %s: %s (%s:%d)\n", s.Name, s.Path, s.IP, s.Port)
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"logging.enabled":      "bool",
		"logging.level":        "string",
		"tmux.socket":          "string",
		"tmux.session_prefix":  "string",
		"update.steamcmd_path": "string",
		"update.app_id":        "int",
		"stop.delay_seconds":   "int",
		"stop.grace_seconds":   "int",
		"query.timeout_ms":     "int",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'tf2director config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	}

	// Reject values the config loader would refuse later
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
		if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'tf2director config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(config.Example()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit the servers section to point at your installs.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintf(out, "  2. /etc/tf2director/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: TF2DIRECTOR_* (e.g., TF2DIRECTOR_STOP_DELAY_SECONDS)")

	return nil
}
