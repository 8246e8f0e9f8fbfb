// Package director runs one lifecycle action across a list of servers.
//
// Servers are handled strictly one after another. A failure on one server is
// reported and the next server is still processed; the combined error of all
// real failures is returned at the end. Run-state preconditions (starting a
// running server, stopping a stopped one) are reported but are not failures.
package director

import (
	"context"
	"fmt"
	"io"
	"time"

	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/lock"
	"github.com/tf2director/tf2director/internal/logging"
	"github.com/tf2director/tf2director/internal/server"
)

// Action names, used in results and logs.
const (
	ActionStart       = "start"
	ActionStop        = "stop"
	ActionRestart     = "restart"
	ActionUpdate      = "update"
	ActionStatus      = "status"
	ActionCheckUpdate = "check-update"
	ActionAttach      = "attach"
)

// Result is the outcome of one action on one server.
type Result struct {
	Server  string
	Action  string
	Outcome server.Outcome
	// Note is a short human-readable summary, e.g. "HAS UPDATE".
	Note string
	Err  error
}

// Failed reports whether the result counts towards the exit status.
func (r Result) Failed() bool {
	return r.Err != nil && !r.Outcome.Precondition()
}

// Director dispatches actions over servers.
type Director struct {
	servers []*server.Server
	logger  *logging.Logger
	out     io.Writer

	// OnResult, when set, is called after each server is handled.
	OnResult func(Result)
}

// New returns a Director over servers, in the given order. out receives the
// per-server lines of check-update; logger may be nil.
func New(servers []*server.Server, out io.Writer, logger *logging.Logger) *Director {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if out == nil {
		out = io.Discard
	}
	return &Director{servers: servers, logger: logger, out: out}
}

// Servers returns the servers the director acts on.
func (d *Director) Servers() []*server.Server {
	return d.servers
}

// Start starts every server.
func (d *Director) Start(ctx context.Context) error {
	return d.each(ctx, ActionStart, true, func(ctx context.Context, s *server.Server) (string, error) {
		return "started", s.Start(ctx)
	})
}

// Stop stops every server, warning players delay ahead.
func (d *Director) Stop(ctx context.Context, delay time.Duration) error {
	return d.each(ctx, ActionStop, true, func(ctx context.Context, s *server.Server) (string, error) {
		return "stopped", s.Stop(ctx, delay)
	})
}

// Restart stops and then starts every server. A server that was not running
// is simply started.
func (d *Director) Restart(ctx context.Context, delay time.Duration) error {
	return d.each(ctx, ActionRestart, true, func(ctx context.Context, s *server.Server) (string, error) {
		if err := s.Stop(ctx, delay); err != nil && server.OutcomeOf(err) != server.OutcomeNotRunning {
			return "", err
		}
		return "restarted", s.Start(ctx)
	})
}

// Update brings every server up to date. A running server with a pending
// update is stopped, updated and started again; a stopped server is updated;
// a running server without a pending update is left alone.
func (d *Director) Update(ctx context.Context, delay time.Duration) error {
	return d.each(ctx, ActionUpdate, true, func(ctx context.Context, s *server.Server) (string, error) {
		running, err := s.IsRunning(ctx)
		if err != nil {
			return "", err
		}
		if !running {
			return "updated", s.Update(ctx)
		}

		pending, err := s.HasUpdate()
		if err != nil {
			return "", err
		}
		if !pending {
			return "no update", nil
		}

		if err := s.Stop(ctx, delay); err != nil {
			return "", err
		}
		if err := s.Update(ctx); err != nil {
			return "", err
		}
		return "updated and restarted", s.Start(ctx)
	})
}

// Status prints the A2S status of every server.
func (d *Director) Status(ctx context.Context) error {
	return d.each(ctx, ActionStatus, false, func(ctx context.Context, s *server.Server) (string, error) {
		return "", s.PrintStatus(ctx)
	})
}

// Check-update states.
const (
	UpdateNotRunning = "not running"
	UpdatePending    = "HAS UPDATE"
	UpdateNone       = "no update"
)

// CheckUpdate prints "<name>: <state>" for every server, where state is
// UpdateNotRunning, UpdatePending or UpdateNone. Only running servers are
// checked for the update marker.
func (d *Director) CheckUpdate(ctx context.Context) error {
	return d.each(ctx, ActionCheckUpdate, false, func(ctx context.Context, s *server.Server) (string, error) {
		state, err := updateState(ctx, s)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(d.out, "%s: %s\n", s.Name(), state)
		return state, nil
	})
}

func updateState(ctx context.Context, s *server.Server) (string, error) {
	running, err := s.IsRunning(ctx)
	if err != nil {
		return "", err
	}
	if !running {
		return UpdateNotRunning, nil
	}
	pending, err := s.HasUpdate()
	if err != nil {
		return "", err
	}
	if pending {
		return UpdatePending, nil
	}
	return UpdateNone, nil
}

// Attach attaches the terminal to the only server. It is an error to call it
// with more than one server.
func (d *Director) Attach(ctx context.Context) error {
	if len(d.servers) != 1 {
		return direrrors.NewValidationError("attach needs exactly one server").
			WithField("servers").
			WithValue(len(d.servers))
	}
	return d.each(ctx, ActionAttach, false, func(ctx context.Context, s *server.Server) (string, error) {
		return "detached", s.Attach(ctx)
	})
}

// ServerState is one row of List.
type ServerState struct {
	Name    string
	Path    string
	Session string
	Address string
	Running bool
	Err     error
}

// List reports the session and run state of every server.
func (d *Director) List(ctx context.Context) []ServerState {
	states := make([]ServerState, 0, len(d.servers))
	for _, s := range d.servers {
		opts := s.Options()
		running, err := s.IsRunning(ctx)
		states = append(states, ServerState{
			Name:    s.Name(),
			Path:    s.Path(),
			Session: s.SessionName(),
			Address: fmt.Sprintf("%s:%d", opts.IP, opts.Port),
			Running: running,
			Err:     err,
		})
	}
	return states
}

type actionFunc func(ctx context.Context, s *server.Server) (note string, err error)

func (d *Director) each(ctx context.Context, action string, exclusive bool, fn actionFunc) error {
	var errs []error
	for _, s := range d.servers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res := d.run(ctx, s, action, exclusive, fn)
		if d.OnResult != nil {
			d.OnResult(res)
		}
		if res.Failed() {
			errs = append(errs, res.Err)
		}
	}
	return direrrors.Join(errs...)
}

// run handles one server. Actions that change run-state hold the server's
// advisory lock so two tf2director processes cannot interleave on it.
func (d *Director) run(ctx context.Context, s *server.Server, action string, exclusive bool, fn actionFunc) Result {
	logger := d.logger.WithServer(s.Name()).WithOperation(action)
	res := Result{Server: s.Name(), Action: action}

	if exclusive {
		l, err := lock.Acquire(s.Path(), s.Name(), action, d.logger)
		if err != nil {
			res.Outcome, res.Err = server.OutcomeFailed, err
			logger.Error("could not lock server", "error", err.Error())
			return res
		}
		defer func() {
			if err := l.Release(); err != nil {
				logger.Warn("failed to release server lock", "error", err.Error())
			}
		}()
	}

	start := time.Now()
	note, err := fn(ctx, s)
	res.Note, res.Err, res.Outcome = note, err, server.OutcomeOf(err)

	switch {
	case err == nil:
		logger.Info("action finished", "note", note, "duration_ms", time.Since(start).Milliseconds())
	case res.Outcome.Precondition():
		res.Note = res.Outcome.String()
		logger.Warn("action skipped", "outcome", res.Outcome.String())
	case direrrors.GetSeverity(err) < direrrors.SeverityError:
		logger.Warn("action failed", "error", err.Error())
	default:
		logger.Error("action failed", "error", err.Error())
	}
	return res
}
