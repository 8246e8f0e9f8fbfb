package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tf2director/tf2director/internal/config"
	"github.com/tf2director/tf2director/internal/director"
	"github.com/tf2director/tf2director/internal/logging"
	"github.com/tf2director/tf2director/internal/query"
	"github.com/tf2director/tf2director/internal/server"
	"github.com/tf2director/tf2director/internal/session"
	"github.com/tf2director/tf2director/internal/steamcmd"
)

// app is everything a server command needs, built from the config.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	director *director.Director
	// buildErr holds servers that could not be constructed. It is reported
	// with the action's own errors once the rest have been handled.
	buildErr error
}

func (r *app) Close() {
	_ = r.logger.Close()
}

// finish joins construction failures with the action result.
func (r *app) finish(err error) error {
	return errors.Join(r.buildErr, err)
}

func loadConfig() (*config.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("no config file found; create one with 'tf2director config init' (looked in %s)", config.ConfigDir())
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", viper.ConfigFileUsed(), err)
	}
	return cfg, nil
}

// newLogger opens the debug log in the config directory. Logging problems
// never stop a command.
func newLogger(cfg *config.Config, stderr io.Writer) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLoggerWithRotation(config.ConfigDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(stderr, "warning: debug log disabled: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// newDeps wires the production collaborators.
func newDeps(cfg *config.Config, logger *logging.Logger, out io.Writer) server.Deps {
	return server.Deps{
		Sessions: session.NewTmux(cfg.Tmux.Socket, logger),
		Updater:  steamcmd.New(cfg.Update.SteamcmdPath, out, logger),
		Querier:  query.A2S{Timeout: cfg.Query.Timeout()},
		Logger:   logger,
		Out:      out,
	}
}

// newApp loads the config and builds the servers named in args. A
// server that fails to build is skipped; the command fails only when none
// could be built.
func newApp(cmd *cobra.Command, args []string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cfg, cmd.ErrOrStderr())
	logger.Debug("command invoked", "command", cmd.Name(), "servers", args)

	servers, buildErr := director.Build(cfg, args, newDeps(cfg, logger, out))
	if len(servers) == 0 {
		_ = logger.Close()
		if buildErr == nil {
			buildErr = errors.New("no servers selected")
		}
		return nil, buildErr
	}
	if buildErr != nil {
		logger.Warn("skipping servers", "error", buildErr.Error())
	}

	d := director.New(servers, out, logger)
	d.OnResult = reporter(cmd.ErrOrStderr())

	return &app{cfg: cfg, logger: logger, director: d, buildErr: buildErr}, nil
}

// withApp adapts an action over the director into a cobra RunE.
func withApp(action func(cmd *cobra.Command, rt *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		defer rt.Close()
		return rt.finish(action(cmd, rt))
	}
}

// serverCompletion completes configured server names.
func serverCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return append(cfg.Names(), config.SelectAll), cobra.ShellCompDirectiveNoFileComp
}
