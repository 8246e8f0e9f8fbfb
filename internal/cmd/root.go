package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tf2director/tf2director/internal/config"
)

// Version is set at build time with -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tf2director",
	Short: "Manage TF2 dedicated servers running in tmux",
	Long: `tf2director starts, stops, restarts and updates Team Fortress 2
dedicated servers. Each server runs inside its own tmux session with its
console mirrored to a log file; updates are installed with steamcmd and live
status is read over the Source query protocol.

Servers are named in the config file. Every action takes any number of
server names, or "all" (the default) for every configured server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/tf2director/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "debug log level: debug, info, warn, error")
	bindFlags()
}

// bindFlags ties the global flags to their viper keys.
func bindFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("/etc/tf2director")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TF2DIRECTOR")
	// e.g. TF2DIRECTOR_STOP_DELAY_SECONDS for stop.delay_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is reported by loadConfig, which knows whether
	// the command needs servers.
	_ = viper.ReadInConfig()
}
