package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tf2director/tf2director/internal/config"
	"github.com/tf2director/tf2director/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the tf2director debug log",
	Long: `View and filter tf2director's own debug log.

This is the JSON log of what tf2director did (sessions created, commands
sent, updates run). Server console output is in logs/<server>-console.log
inside each install.

Examples:
  # Show the last 50 entries
  tf2director logs

  # Everything that happened to one server
  tf2director logs --server alpha -n 0

  # Follow new entries
  tf2director logs -f

  # Warnings and errors from the last hour
  tf2director logs --level warn --since 1h`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsServer string
	logsTail   int
	logsFollow bool
	logsLevel  string
	logsSince  string
	logsGrep   string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsServer, "server", "s", "", "Only entries for this server")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
}

// logEntry is one parsed line of the debug log.
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Server    string         `json:"server,omitempty"`
	Session   string         `json:"tmux_session,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Extra     map[string]any `json:"-"`
}

// UnmarshalJSON keeps fields other than the known ones in Extra.
func (e *logEntry) UnmarshalJSON(data []byte) error {
	type alias logEntry
	aux := &struct{ *alias }{alias: (*alias)(e)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{"time", "level", "msg", "server", "tmux_session", "operation"} {
		delete(all, known)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter selects debug log entries.
type logFilter struct {
	server   string
	minLevel int
	since    time.Time
	grep     *regexp.Regexp
}

func newLogFilter(server, level, since, grep string, now time.Time) (logFilter, error) {
	f := logFilter{server: server, minLevel: -1}
	if level != "" {
		f.minLevel = levelPriority(logging.ParseLevel(level))
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = now.Add(-d)
	}
	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}
	return f, nil
}

func (f logFilter) empty() bool {
	return f.server == "" && f.minLevel < 0 && f.since.IsZero() && f.grep == nil
}

func (f logFilter) match(e *logEntry) bool {
	if f.server != "" && e.Server != f.server {
		return false
	}
	if f.minLevel >= 0 && levelPriority(e.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && e.Time.Before(f.since) {
		return false
	}
	if f.grep != nil {
		text := e.Msg
		keys := make([]string, 0, len(e.Extra))
		for k := range e.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			text += fmt.Sprintf(" %v", e.Extra[k])
		}
		if !f.grep.MatchString(text) {
			return false
		}
	}
	return true
}

// levelPriority orders levels for filtering; unknown levels sort first.
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

func (p palette) level(level string) string {
	label := "[" + strings.ToUpper(level) + "]"
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return p.render(mutedStyle, label)
	case logging.LevelWarn:
		return p.render(warningStyle, label)
	case logging.LevelError:
		return p.render(errorStyle, label)
	default:
		return p.render(okStyle, label)
	}
}

// formatLogEntry renders an entry on one line with extra fields in key order.
func formatLogEntry(p palette, e *logEntry) string {
	var sb strings.Builder
	sb.WriteString(p.render(mutedStyle, "["+e.Time.Format("2006-01-02 15:04:05")+"]"))
	sb.WriteString(" ")
	sb.WriteString(p.level(e.Level))
	if e.Server != "" {
		sb.WriteString(" ")
		sb.WriteString(p.render(serverStyle, e.Server))
	}
	if e.Operation != "" {
		sb.WriteString(" " + e.Operation + ":")
	}
	sb.WriteString(" ")
	sb.WriteString(e.Msg)

	keys := make([]string, 0, len(e.Extra)+1)
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if e.Session != "" {
		sb.WriteString(" " + p.render(mutedStyle, "tmux_session=") + e.Session)
	}
	for _, k := range keys {
		sb.WriteString(" " + p.render(mutedStyle, k+"=") + fmt.Sprintf("%v", e.Extra[k]))
	}
	return sb.String()
}

// formatLine parses and filters one raw line. Lines that are not JSON are
// shown as they are unless a filter is active.
func formatLine(p palette, f logFilter, line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	var e logEntry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return line, f.empty()
	}
	if !f.match(&e) {
		return "", false
	}
	return formatLogEntry(p, &e), true
}

func runLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logPath := filepath.Join(config.ConfigDir(), logging.FileName)

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No debug log at %s yet.\n", logPath)
		return nil
	}

	filter, err := newLogFilter(logsServer, logsLevel, logsSince, logsGrep, time.Now())
	if err != nil {
		return err
	}

	p := paletteFor(out)
	if logsFollow {
		return followLogs(cmd.Context(), out, p, logPath, filter)
	}
	return displayLogs(out, p, logPath, logsTail, filter)
}

// displayLogs prints the last tail matching entries.
func displayLogs(out io.Writer, p palette, logPath string, tail int, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line, ok := formatLine(p, filter, scanner.Text()); ok {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	for _, e := range entries {
		fmt.Fprintln(out, e)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// followLogs prints new matching entries until ctx is done.
func followLogs(ctx context.Context, out io.Writer, p palette, logPath string, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(out, "Following %s... (Ctrl+C to stop)\n\n", logPath)

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	var partial string
	for {
		line, err := reader.ReadString('\n')
		partial += line
		switch {
		case err == io.EOF:
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		case err != nil:
			return fmt.Errorf("error reading log file: %w", err)
		}
		if formatted, ok := formatLine(p, filter, partial); ok {
			fmt.Fprintln(out, formatted)
		}
		partial = ""
	}
}
