package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "servers[0].port")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// serverNameRegex limits names to characters safe in tmux session names and
// file names.
var serverNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// tmuxNameRegex validates the session prefix and socket name.
var tmuxNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// MaxPlayersLimit is the largest player count srcds accepts.
const MaxPlayersLimit = 101

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTmux()...)
	errors = append(errors, c.validateUpdate()...)
	errors = append(errors, c.validateStop()...)
	errors = append(errors, c.validateQuery()...)
	errors = append(errors, c.validateServers()...)

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateTmux validates the TmuxConfig
func (c *Config) validateTmux() []ValidationError {
	var errors []ValidationError

	if c.Tmux.Socket != "" && !tmuxNameRegex.MatchString(c.Tmux.Socket) {
		errors = append(errors, ValidationError{
			Field:   "tmux.socket",
			Value:   c.Tmux.Socket,
			Message: "must contain only letters, digits, '.', '_' and '-'",
		})
	}

	if !tmuxNameRegex.MatchString(c.Tmux.SessionPrefix) {
		errors = append(errors, ValidationError{
			Field:   "tmux.session_prefix",
			Value:   c.Tmux.SessionPrefix,
			Message: "must be non-empty and contain only letters, digits, '.', '_' and '-'",
		})
	}

	return errors
}

// validateUpdate validates the UpdateConfig
func (c *Config) validateUpdate() []ValidationError {
	var errors []ValidationError

	if c.Update.AppID <= 0 {
		errors = append(errors, ValidationError{
			Field:   "update.app_id",
			Value:   c.Update.AppID,
			Message: "must be positive",
		})
	}

	if c.Update.SteamcmdPath != "" && !filepath.IsAbs(c.Update.SteamcmdPath) {
		errors = append(errors, ValidationError{
			Field:   "update.steamcmd_path",
			Value:   c.Update.SteamcmdPath,
			Message: "must be an absolute path",
		})
	}

	return errors
}

// validateStop validates the StopConfig
func (c *Config) validateStop() []ValidationError {
	var errors []ValidationError

	if c.Stop.DelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "stop.delay_seconds",
			Value:   c.Stop.DelaySeconds,
			Message: "must be non-negative",
		})
	}

	if c.Stop.GraceSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "stop.grace_seconds",
			Value:   c.Stop.GraceSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateQuery validates the QueryConfig
func (c *Config) validateQuery() []ValidationError {
	if c.Query.TimeoutMs < 0 {
		return []ValidationError{{
			Field:   "query.timeout_ms",
			Value:   c.Query.TimeoutMs,
			Message: "must be non-negative",
		}}
	}
	return nil
}

// validateServers validates every ServerConfig
func (c *Config) validateServers() []ValidationError {
	var errors []ValidationError
	seen := make(map[string]int, len(c.Servers))

	for i, s := range c.Servers {
		field := func(name string) string { return fmt.Sprintf("servers[%d].%s", i, name) }

		switch {
		case s.Name == "":
			errors = append(errors, ValidationError{Field: field("name"), Value: s.Name, Message: "is required"})
		case s.Name == SelectAll:
			errors = append(errors, ValidationError{Field: field("name"), Value: s.Name, Message: "is reserved"})
		case !serverNameRegex.MatchString(s.Name):
			errors = append(errors, ValidationError{
				Field:   field("name"),
				Value:   s.Name,
				Message: "must start with a letter or digit and contain only letters, digits, '.', '_' and '-'",
			})
		}
		if first, dup := seen[s.Name]; dup && s.Name != "" {
			errors = append(errors, ValidationError{
				Field:   field("name"),
				Value:   s.Name,
				Message: fmt.Sprintf("duplicates servers[%d]", first),
			})
		} else {
			seen[s.Name] = i
		}

		if s.Path == "" {
			errors = append(errors, ValidationError{Field: field("path"), Value: s.Path, Message: "is required"})
		} else if !filepath.IsAbs(s.Path) {
			errors = append(errors, ValidationError{Field: field("path"), Value: s.Path, Message: "must be an absolute path"})
		}

		if s.IP != "" && net.ParseIP(s.IP) == nil {
			errors = append(errors, ValidationError{Field: field("ip"), Value: s.IP, Message: "is not a valid IP address"})
		}

		if s.Port < 0 || s.Port > 65535 {
			errors = append(errors, ValidationError{Field: field("port"), Value: s.Port, Message: "must be between 1 and 65535"})
		}
		if s.TVPort < 0 || s.TVPort > 65535 {
			errors = append(errors, ValidationError{Field: field("tv_port"), Value: s.TVPort, Message: "must be between 1 and 65535"})
		}

		if s.MaxPlayers < 0 || s.MaxPlayers > MaxPlayersLimit {
			errors = append(errors, ValidationError{
				Field:   field("max_players"),
				Value:   s.MaxPlayers,
				Message: fmt.Sprintf("must be between 1 and %d", MaxPlayersLimit),
			})
		}

		if strings.ContainsAny(s.InitialMap, " \t\"'") {
			errors = append(errors, ValidationError{Field: field("initial_map"), Value: s.InitialMap, Message: "must not contain spaces or quotes"})
		}
		if strings.ContainsAny(s.ServerConfig, " \t\"'") {
			errors = append(errors, ValidationError{Field: field("server_config"), Value: s.ServerConfig, Message: "must not contain spaces or quotes"})
		}
	}

	return errors
}
