package server

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/tf2director/tf2director/internal/consolelog"
	"github.com/tf2director/tf2director/internal/logging"
	"github.com/tf2director/tf2director/internal/query"
	"github.com/tf2director/tf2director/internal/session"
	"github.com/tf2director/tf2director/internal/steamcmd"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultIP            = "0.0.0.0"
	DefaultPort          = 27015
	DefaultInitialMap    = "cp_badlands"
	DefaultCfgFile       = "server.cfg"
	DefaultMaxPlayers    = 24
	DefaultSessionPrefix = "tf2server"
	DefaultStopDelay     = 10 * time.Second
	DefaultStopGrace     = 5 * time.Second

	// tvPortOffset places SourceTV next to the game port.
	tvPortOffset = 5
)

// Options is the runtime configuration of one server instance.
type Options struct {
	IP         string
	Port       int
	TVPort     int // Port+5 when zero
	InitialMap string
	CfgFile    string
	MaxPlayers int

	// SessionPrefix forms the default session name "<prefix>_<name>_console".
	SessionPrefix string
	// StopGrace is how long Stop waits after "quit" before killing the session.
	StopGrace time.Duration
	// AppID is the Steam application updated by Update.
	AppID int
}

func (o Options) withDefaults() Options {
	if o.IP == "" {
		o.IP = DefaultIP
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.TVPort == 0 {
		o.TVPort = o.Port + tvPortOffset
	}
	if o.InitialMap == "" {
		o.InitialMap = DefaultInitialMap
	}
	if o.CfgFile == "" {
		o.CfgFile = DefaultCfgFile
	}
	if o.MaxPlayers == 0 {
		o.MaxPlayers = DefaultMaxPlayers
	}
	if o.SessionPrefix == "" {
		o.SessionPrefix = DefaultSessionPrefix
	}
	if o.StopGrace == 0 {
		o.StopGrace = DefaultStopGrace
	}
	if o.AppID == 0 {
		o.AppID = steamcmd.TF2AppID
	}
	return o
}

// Updater installs the latest build of a Steam app into a directory.
// *steamcmd.Updater implements it.
type Updater interface {
	Update(ctx context.Context, installDir string, appID int) error
}

// LogRotator archives a console log. consolelog.Rotator implements it.
type LogRotator interface {
	Rotate(path string) (string, error)
}

// Deps are the collaborators a Server uses. Nil fields are replaced with the
// production implementations; tests inject fakes.
type Deps struct {
	Sessions session.Manager
	Updater  Updater
	Querier  query.Querier
	Rotator  LogRotator
	// Sleep blocks for the stop delay and grace period.
	Sleep  func(time.Duration)
	Logger *logging.Logger
	// Out receives operator-facing progress: launch lines, chat commands,
	// rotated log names and status tables.
	Out io.Writer
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.NopLogger()
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Sessions == nil {
		d.Sessions = session.NewTmux("", d.Logger)
	}
	if d.Updater == nil {
		d.Updater = steamcmd.New("", d.Out, d.Logger)
	}
	if d.Querier == nil {
		d.Querier = query.A2S{}
	}
	if d.Rotator == nil {
		d.Rotator = consolelog.Rotator{}
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	return d
}
