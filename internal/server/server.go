// Package server implements the lifecycle of a single TF2 dedicated server
// instance: starting it inside a tmux session, stopping it with an in-game
// warning, applying updates through steamcmd and reporting live status.
//
// A Server holds no run-state of its own. Whether it is running is asked of
// the session manager every time, so an instance started by hand or by an
// earlier invocation is seen exactly like one started here.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tf2director/tf2director/internal/consolelog"
	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/logging"
	"github.com/tf2director/tf2director/internal/query"
	"github.com/tf2director/tf2director/internal/session"
)

// Filesystem layout of an install.
const (
	// MarkerDir must exist inside every install path.
	MarkerDir = "tf"
	// SessionOverrideFile, when present in the install path, names the tmux
	// session on its first line.
	SessionOverrideFile = ".tmux-session"
	// LogsDir holds the console log and its archives.
	LogsDir = "logs"
	// ChatPlugin is the SourceMod plugin providing sm_csay.
	ChatPlugin = "tf/addons/sourcemod/plugins/basechat.smx"
	// LaunchScript starts srcds inside the install path.
	LaunchScript = "srcds_run"
)

// Server is one TF2 dedicated server install.
type Server struct {
	name string
	path string
	opts Options

	sessions session.Manager
	updater  Updater
	querier  query.Querier
	rotator  LogRotator
	sleep    func(time.Duration)
	logger   *logging.Logger
	out      io.Writer
}

// New returns the Server installed at path. It fails with
// ErrCorruptedInstall when path has no tf/ directory.
func New(name, path string, opts Options, deps Deps) (*Server, error) {
	if name == "" {
		return nil, direrrors.NewValidationError("server name is required").WithField("name")
	}

	info, err := os.Stat(filepath.Join(path, MarkerDir))
	if err != nil || !info.IsDir() {
		cause := direrrors.ErrCorruptedInstall
		if err != nil && !os.IsNotExist(err) {
			cause = fmt.Errorf("%w: %w", direrrors.ErrCorruptedInstall, err)
		}
		return nil, direrrors.NewServerError(fmt.Sprintf("no %s/ directory in %s", MarkerDir, path), cause).
			WithServer(name)
	}

	deps = deps.withDefaults()
	return &Server{
		name:     name,
		path:     path,
		opts:     opts.withDefaults(),
		sessions: deps.Sessions,
		updater:  deps.Updater,
		querier:  deps.Querier,
		rotator:  deps.Rotator,
		sleep:    deps.Sleep,
		logger:   deps.Logger.WithServer(name),
		out:      deps.Out,
	}, nil
}

// Name returns the instance name.
func (s *Server) Name() string { return s.name }

// Path returns the install path.
func (s *Server) Path() string { return s.path }

// Options returns the effective options, defaults applied.
func (s *Server) Options() Options { return s.opts }

// SessionName returns the tmux session the server runs in: the first line of
// .tmux-session in the install path when that file exists, otherwise
// "<prefix>_<name>_console".
func (s *Server) SessionName() string {
	data, err := os.ReadFile(filepath.Join(s.path, SessionOverrideFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("ignoring unreadable session override", "error", err.Error())
		}
		return s.defaultSessionName()
	}

	name := strings.TrimSpace(string(data))
	if first, _, found := strings.Cut(name, "\n"); found {
		name = strings.TrimSpace(first)
	}
	if name == "" {
		return s.defaultSessionName()
	}
	return name
}

func (s *Server) defaultSessionName() string {
	return fmt.Sprintf("%s_%s_console", s.opts.SessionPrefix, s.name)
}

// LogFilePath returns the path of the live console log.
func (s *Server) LogFilePath() string {
	return filepath.Join(s.path, LogsDir, s.name+"-console.log")
}

// LaunchCommand returns the command line typed into the session to start
// srcds.
func (s *Server) LaunchCommand() string {
	o := s.opts
	return strings.Join([]string{
		filepath.Join(s.path, LaunchScript),
		"-game", "tf",
		"-ip", o.IP,
		"-port", strconv.Itoa(o.Port),
		"+map", o.InitialMap,
		"+maxplayers", strconv.Itoa(o.MaxPlayers),
		"-secured",
		"-timeout", "0",
		"+servercfgfile", o.CfgFile,
		"+tv_port", strconv.Itoa(o.TVPort),
	}, " ")
}

// ShutdownMessage is the chat warning Stop broadcasts before quitting.
func ShutdownMessage(delay time.Duration) string {
	return fmt.Sprintf("Server shutting down in %s seconds!", strconv.FormatFloat(delay.Seconds(), 'f', -1, 64))
}

// IsRunning reports whether the server's session exists.
func (s *Server) IsRunning(ctx context.Context) (bool, error) {
	name := s.SessionName()
	running, err := s.sessions.HasSession(ctx, name)
	if err != nil {
		return false, s.fail(name, "cannot check session", err)
	}
	return running, nil
}

// Start launches the server in a new session. It fails with
// ErrAlreadyRunning, without touching the session, when one exists.
func (s *Server) Start(ctx context.Context) error {
	logger := s.logger.WithOperation("start")
	name := s.SessionName()

	running, err := s.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		return s.precondition(name, "cannot start", direrrors.ErrAlreadyRunning)
	}

	logPath := s.LogFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return s.fail(name, "cannot create logs directory", err)
	}
	if err := s.rotateLog(logger); err != nil {
		return s.fail(name, "cannot rotate console log", err)
	}

	if err := s.sessions.NewSession(ctx, name, s.path); err != nil {
		return s.fail(name, "cannot create session", err)
	}
	logger = logger.WithSession(name)

	if err := s.sessions.PipeOutput(ctx, name, logPath); err != nil {
		s.abandon(name, logger)
		return s.fail(name, "cannot mirror session output", err)
	}

	command := s.LaunchCommand()
	fmt.Fprintln(s.out, command)
	if err := s.sessions.SendKeys(ctx, name, command); err != nil {
		s.abandon(name, logger)
		return s.fail(name, "cannot send launch command", err)
	}

	logger.Info("server started", "ip", s.opts.IP, "port", s.opts.Port, "map", s.opts.InitialMap)
	return nil
}

// abandon kills a half-created session after Start failed part way.
func (s *Server) abandon(name string, logger *logging.Logger) {
	if err := s.sessions.KillSession(context.Background(), name); err != nil {
		logger.Warn("failed to clean up session after failed start", "error", err.Error())
	}
}

// Stop warns players, waits delay, quits srcds, waits the grace period and
// then kills the session whether or not srcds has exited. It fails with
// ErrNotRunning, sending nothing, when there is no session.
//
// ctx is only consulted before the warning goes out. Once players have been
// told the server is going down the sequence runs to completion.
func (s *Server) Stop(ctx context.Context, delay time.Duration) error {
	logger := s.logger.WithOperation("stop")
	name := s.SessionName()

	running, err := s.IsRunning(ctx)
	if err != nil {
		return err
	}
	if !running {
		return s.precondition(name, "cannot stop", direrrors.ErrNotRunning)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(name, "stop cancelled", err)
	}
	ctx = context.WithoutCancel(ctx)
	logger = logger.WithSession(name)

	msg := ShutdownMessage(delay)
	fmt.Fprintln(s.out, msg)
	if s.hasChatPlugin() {
		s.commandLogged(ctx, logger, fmt.Sprintf("sm_csay %q", msg))
	}
	s.commandLogged(ctx, logger, fmt.Sprintf("say %q", msg))

	logger.Info("waiting before quit", "delay_s", delay.Seconds())
	s.sleep(delay)
	s.commandLogged(ctx, logger, "quit")
	s.sleep(s.opts.StopGrace)

	if err := s.sessions.KillSession(ctx, name); err != nil {
		return s.fail(name, "cannot kill session", err)
	}
	if err := s.rotateLog(logger); err != nil {
		return s.fail(name, "cannot rotate console log", err)
	}

	logger.Info("server stopped")
	return nil
}

// commandLogged sends a command during Stop. A failure is logged and the
// sequence continues, since srcds may already have died.
func (s *Server) commandLogged(ctx context.Context, logger *logging.Logger, text string) {
	if err := s.Command(ctx, text); err != nil {
		logger.Warn("failed to send command", "command", text, "error", err.Error())
	}
}

func (s *Server) hasChatPlugin() bool {
	info, err := os.Stat(filepath.Join(s.path, ChatPlugin))
	return err == nil && info.Mode().IsRegular()
}

// Command types text into the server console followed by Enter. When the
// server is not running this is a silent no-op returning nil, so callers can
// fire commands without checking state first. Delivery is not acknowledged.
func (s *Server) Command(ctx context.Context, text string) error {
	running, err := s.IsRunning(ctx)
	if err != nil {
		return err
	}
	if !running {
		s.logger.Debug("command dropped, server not running", "command", text)
		return nil
	}

	name := s.SessionName()
	fmt.Fprintln(s.out, text)
	if err := s.sessions.SendKeys(ctx, name, text); err != nil {
		return s.fail(name, "cannot send command", err)
	}
	return nil
}

// Update installs the latest server build with steamcmd. It fails with
// ErrRunning when the server is running. steamcmd's own exit status is not
// reported; failing to find steamcmd is ErrUpdaterNotFound.
func (s *Server) Update(ctx context.Context) error {
	logger := s.logger.WithOperation("update")
	name := s.SessionName()

	running, err := s.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		return s.precondition(name, "cannot update", direrrors.ErrRunning)
	}

	if err := s.updater.Update(ctx, s.path, s.opts.AppID); err != nil {
		return s.fail(name, "cannot update", err)
	}
	logger.Info("update finished", "app_id", s.opts.AppID)
	return nil
}

// HasUpdate reports whether the console log contains the update marker.
// No log means no update.
func (s *Server) HasUpdate() (bool, error) {
	pending, err := consolelog.HasUpdateMarker(s.LogFilePath())
	if err != nil {
		return false, s.fail(s.SessionName(), "cannot check for update", err)
	}
	return pending, nil
}

// PrintStatus queries the server over A2S and writes its name, player count
// and player list to the output. It fails with ErrNoAddress when no public
// IP is configured. Query errors are returned wrapped.
func (s *Server) PrintStatus(ctx context.Context) error {
	name := s.SessionName()
	if s.opts.IP == "" || s.opts.IP == DefaultIP {
		return s.precondition(name, "cannot query status", direrrors.ErrNoAddress)
	}

	addr := query.Addr(s.opts.IP, s.opts.Port)
	status, err := s.querier.Query(ctx, addr)
	if err != nil {
		return s.fail(name, "status query failed", err)
	}
	s.logger.WithOperation("status").Debug("status received",
		"addr", addr,
		"players", status.Players,
		"max_players", status.MaxPlayers,
	)
	return query.Render(s.out, status)
}

// Attach connects the calling terminal to the server console and blocks
// until the operator detaches (Ctrl-b d). It fails with ErrNotRunning.
func (s *Server) Attach(ctx context.Context) error {
	name := s.SessionName()

	running, err := s.IsRunning(ctx)
	if err != nil {
		return err
	}
	if !running {
		return s.precondition(name, "cannot attach", direrrors.ErrNotRunning)
	}

	if err := s.sessions.Attach(ctx, name); err != nil {
		return s.fail(name, "cannot attach", err)
	}
	return nil
}

func (s *Server) rotateLog(logger *logging.Logger) error {
	from := s.LogFilePath()
	to, err := s.rotator.Rotate(from)
	if err != nil {
		return err
	}
	if to != "" {
		fmt.Fprintf(s.out, "Saving %s as %s\n", from, to)
		logger.Debug("console log rotated", "from", from, "to", to)
	}
	return nil
}

func (s *Server) fail(sessionName, msg string, cause error) error {
	return direrrors.NewServerError(msg, cause).WithServer(s.name).WithTmuxSession(sessionName)
}

func (s *Server) precondition(sessionName, msg string, cause error) error {
	return direrrors.NewServerError(msg, cause).
		WithServer(s.name).
		WithTmuxSession(sessionName).
		WithSeverity(direrrors.SeverityWarning)
}
