package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	direrrors "github.com/tf2director/tf2director/internal/errors"
)

// SelectAll selects every configured server when given as a server name.
const SelectAll = "all"

// Config represents the complete tf2director configuration
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging"`
	Tmux    TmuxConfig     `mapstructure:"tmux"`
	Update  UpdateConfig   `mapstructure:"update"`
	Stop    StopConfig     `mapstructure:"stop"`
	Query   QueryConfig    `mapstructure:"query"`
	Servers []ServerConfig `mapstructure:"servers"`
}

// LoggingConfig controls tf2director's own debug log
type LoggingConfig struct {
	// Enabled controls whether the debug log is written at all (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level written: debug, info, warn, error (default: info)
	Level string `mapstructure:"level"`
	// MaxSizeMB is the size at which the debug log is rotated (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated debug logs kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// TmuxConfig controls where server sessions live
type TmuxConfig struct {
	// Socket is passed to tmux as -L. Empty uses the default tmux server so
	// sessions can be attached to by hand.
	Socket string `mapstructure:"socket"`
	// SessionPrefix forms session names "<prefix>_<name>_console" (default: tf2server)
	SessionPrefix string `mapstructure:"session_prefix"`
}

// UpdateConfig controls steamcmd
type UpdateConfig struct {
	// SteamcmdPath is an explicit steamcmd location. Empty searches PATH,
	// /usr/games and /usr/bin.
	SteamcmdPath string `mapstructure:"steamcmd_path"`
	// AppID is the Steam app to update (default: 232250, the TF2 dedicated server)
	AppID int `mapstructure:"app_id"`
}

// StopConfig controls the shutdown sequence
type StopConfig struct {
	// DelaySeconds is how long players are warned before quit (default: 10)
	DelaySeconds int `mapstructure:"delay_seconds"`
	// GraceSeconds is how long srcds gets to exit after quit (default: 5)
	GraceSeconds int `mapstructure:"grace_seconds"`
}

// QueryConfig controls A2S status queries
type QueryConfig struct {
	// TimeoutMs bounds each query. 0 uses the query library default.
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// ServerConfig describes one server install
type ServerConfig struct {
	Name         string `mapstructure:"name"`
	Path         string `mapstructure:"path"`
	IP           string `mapstructure:"ip"`
	Port         int    `mapstructure:"port"`
	TVPort       int    `mapstructure:"tv_port"`
	InitialMap   string `mapstructure:"initial_map"`
	ServerConfig string `mapstructure:"server_config"`
	MaxPlayers   int    `mapstructure:"max_players"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Tmux: TmuxConfig{
			Socket:        "",
			SessionPrefix: "tf2server",
		},
		Update: UpdateConfig{
			SteamcmdPath: "",
			AppID:        232250,
		},
		Stop: StopConfig{
			DelaySeconds: 10,
			GraceSeconds: 5,
		},
		Query: QueryConfig{
			TimeoutMs: 0,
		},
	}
}

// StopDelay returns the warning delay as a time.Duration
func (c *StopConfig) StopDelay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// StopGrace returns the post-quit grace period as a time.Duration
func (c *StopConfig) StopGrace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// Timeout returns the query timeout as a time.Duration (0 means library default)
func (c *QueryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Tmux defaults
	viper.SetDefault("tmux.socket", defaults.Tmux.Socket)
	viper.SetDefault("tmux.session_prefix", defaults.Tmux.SessionPrefix)

	// Update defaults
	viper.SetDefault("update.steamcmd_path", defaults.Update.SteamcmdPath)
	viper.SetDefault("update.app_id", defaults.Update.AppID)

	// Stop defaults
	viper.SetDefault("stop.delay_seconds", defaults.Stop.DelaySeconds)
	viper.SetDefault("stop.grace_seconds", defaults.Stop.GraceSeconds)

	// Query defaults
	viper.SetDefault("query.timeout_ms", defaults.Query.TimeoutMs)
}

// Load reads the configuration from viper into a Config struct, expands
// paths and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.expandPaths()

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

func (c *Config) expandPaths() {
	c.Update.SteamcmdPath = ExpandPath(c.Update.SteamcmdPath)
	for i := range c.Servers {
		c.Servers[i].Path = ExpandPath(c.Servers[i].Path)
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Server returns the configuration of the named server.
func (c *Config) Server(name string) (*ServerConfig, error) {
	for i := range c.Servers {
		if c.Servers[i].Name == name {
			return &c.Servers[i], nil
		}
	}
	return nil, direrrors.NewNotFoundError("server", name).WithCause(direrrors.ErrServerNotConfigured)
}

// Select resolves server names given on the command line. No names, or the
// name "all", selects every server in file order. Repeated names are
// returned once. An unknown name is an error.
func (c *Config) Select(names []string) ([]ServerConfig, error) {
	if len(c.Servers) == 0 {
		return nil, direrrors.NewValidationError("no servers configured").WithField("servers")
	}
	if len(names) == 0 || slices.Contains(names, SelectAll) {
		return slices.Clone(c.Servers), nil
	}

	selected := make([]ServerConfig, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		srv, err := c.Server(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, *srv)
	}
	return selected, nil
}

// Names returns the configured server names in file order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Servers))
	for i, s := range c.Servers {
		names[i] = s.Name
	}
	return names
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tf2director")
	}
	// Fall back to ~/.config/tf2director
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tf2director"
	}
	return filepath.Join(home, ".config", "tf2director")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Example returns a commented starter configuration.
func Example() string {
	d := Default()
	return fmt.Sprintf(`# tf2director configuration

logging:
  enabled: %t
  level: %s
  max_size_mb: %d
  max_backups: %d

tmux:
  # socket: tf2director   # run sessions on a dedicated tmux server (tmux -L)
  session_prefix: %s

update:
  # steamcmd_path: /usr/games/steamcmd
  app_id: %d

stop:
  delay_seconds: %d
  grace_seconds: %d

query:
  timeout_ms: %d

servers:
  - name: alpha
    path: ~/tf2/alpha
    ip: 203.0.113.10
    port: 27015
    initial_map: cp_badlands
    server_config: server.cfg
    max_players: 24
`, d.Logging.Enabled, d.Logging.Level, d.Logging.MaxSizeMB, d.Logging.MaxBackups,
		d.Tmux.SessionPrefix, d.Update.AppID, d.Stop.DelaySeconds, d.Stop.GraceSeconds, d.Query.TimeoutMs)
}
