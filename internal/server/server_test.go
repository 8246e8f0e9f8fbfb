package server

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tf2director/tf2director/internal/consolelog"
	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/logging"
	"github.com/tf2director/tf2director/internal/query"
	"github.com/tf2director/tf2director/internal/session/sessiontest"
)

var clock = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

type fakeUpdater struct {
	calls []string
	err   error
}

func (u *fakeUpdater) Update(_ context.Context, installDir string, appID int) error {
	u.calls = append(u.calls, installDir+"#"+strconv.Itoa(appID))
	return u.err
}

type fakeQuerier struct {
	addr   string
	status *query.Status
	err    error
}

func (q *fakeQuerier) Query(_ context.Context, addr string) (*query.Status, error) {
	q.addr = addr
	return q.status, q.err
}

type harness struct {
	srv      *Server
	sessions *sessiontest.Fake
	updater  *fakeUpdater
	querier  *fakeQuerier
	out      *bytes.Buffer
	sleeps   []time.Duration
	dir      string
}

// newHarness creates an install directory with tf/ and a Server wired to
// in-memory collaborators.
func newHarness(t *testing.T, name string, opts Options) *harness {
	t.Helper()

	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Join(dir, MarkerDir), 0755); err != nil {
		t.Fatalf("failed to create install: %v", err)
	}

	h := &harness{
		sessions: sessiontest.NewFake(),
		updater:  &fakeUpdater{},
		querier:  &fakeQuerier{},
		out:      &bytes.Buffer{},
		dir:      dir,
	}

	srv, err := New(name, dir, opts, Deps{
		Sessions: h.sessions,
		Updater:  h.updater,
		Querier:  h.querier,
		Rotator:  consolelog.Rotator{Now: func() time.Time { return clock }},
		Sleep: func(d time.Duration) {
			h.sleeps = append(h.sleeps, d)
			h.sessions.Note("sleep %s", d)
		},
		Logger: logging.NopLogger(),
		Out:    h.out,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.srv = srv
	return h
}

func (h *harness) writeFile(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (h *harness) running(t *testing.T) bool {
	t.Helper()
	ok, err := h.srv.IsRunning(context.Background())
	if err != nil {
		t.Fatalf("IsRunning() error = %v", err)
	}
	return ok
}

func TestNew_CorruptedInstall(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dir string)
	}{
		{"missing path", func(string) {}},
		{"no tf directory", func(dir string) { _ = os.MkdirAll(dir, 0755) }},
		{"tf is a file", func(dir string) {
			_ = os.MkdirAll(dir, 0755)
			_ = os.WriteFile(filepath.Join(dir, "tf"), nil, 0644)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "alpha")
			tt.setup(dir)

			srv, err := New("alpha", dir, Options{}, Deps{Sessions: sessiontest.NewFake()})
			if !errors.Is(err, direrrors.ErrCorruptedInstall) {
				t.Fatalf("New() error = %v, want ErrCorruptedInstall", err)
			}
			if srv != nil {
				t.Error("New() must not return an instance on failure")
			}
		})
	}
}

func TestNew_RequiresName(t *testing.T) {
	if _, err := New("", t.TempDir(), Options{}, Deps{}); !errors.Is(err, direrrors.ErrInvalidInput) {
		t.Errorf("New() error = %v, want ErrInvalidInput", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	h := newHarness(t, "alpha", Options{})
	got := h.srv.Options()

	want := Options{
		IP:            "0.0.0.0",
		Port:          27015,
		TVPort:        27020,
		InitialMap:    "cp_badlands",
		CfgFile:       "server.cfg",
		MaxPlayers:    24,
		SessionPrefix: "tf2server",
		StopGrace:     5 * time.Second,
		AppID:         232250,
	}
	if got != want {
		t.Errorf("Options() = %+v, want %+v", got, want)
	}

	h = newHarness(t, "beta", Options{Port: 27115})
	if h.srv.Options().TVPort != 27120 {
		t.Errorf("TVPort = %d, want Port+5", h.srv.Options().TVPort)
	}
}

func TestSessionName(t *testing.T) {
	tests := []struct {
		name     string
		override *string
		want     string
	}{
		{"no override", nil, "tf2server_alpha_console"},
		{"override with newline", ptr("custom\n"), "custom"},
		{"override with padding", ptr("  padded  \n"), "padded"},
		{"only first line", ptr("first\nsecond\n"), "first"},
		{"blank override", ptr("\n  \n"), "tf2server_alpha_console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "alpha", Options{})
			if tt.override != nil {
				h.writeFile(t, SessionOverrideFile, *tt.override)
			}
			if got := h.srv.SessionName(); got != tt.want {
				t.Errorf("SessionName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionName_Prefix(t *testing.T) {
	h := newHarness(t, "alpha", Options{SessionPrefix: "mge"})
	if got := h.srv.SessionName(); got != "mge_alpha_console" {
		t.Errorf("SessionName() = %q", got)
	}
}

func TestLogFilePath(t *testing.T) {
	h := newHarness(t, "alpha", Options{})
	want := filepath.Join(h.dir, "logs", "alpha-console.log")
	if got := h.srv.LogFilePath(); got != want {
		t.Errorf("LogFilePath() = %q, want %q", got, want)
	}
}

func TestLaunchCommand(t *testing.T) {
	h := newHarness(t, "alpha", Options{
		IP:         "203.0.113.10",
		Port:       27016,
		InitialMap: "pl_upward",
		CfgFile:    "alpha.cfg",
		MaxPlayers: 32,
	})

	want := filepath.Join(h.dir, "srcds_run") +
		" -game tf -ip 203.0.113.10 -port 27016 +map pl_upward +maxplayers 32" +
		" -secured -timeout 0 +servercfgfile alpha.cfg +tv_port 27021"
	if got := h.srv.LaunchCommand(); got != want {
		t.Errorf("LaunchCommand() =\n%s\nwant\n%s", got, want)
	}
}

func TestStart(t *testing.T) {
	h := newHarness(t, "alpha", Options{IP: "203.0.113.10", Port: 27015, InitialMap: "cp_badlands"})
	ctx := context.Background()

	if h.running(t) {
		t.Fatal("fresh instance should not be running")
	}
	if err := h.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const name = "tf2server_alpha_console"
	if !h.running(t) {
		t.Error("IsRunning() = false after Start")
	}
	if h.sessions.WorkDir(name) != h.dir {
		t.Errorf("session work dir = %q, want %q", h.sessions.WorkDir(name), h.dir)
	}

	logPath := h.srv.LogFilePath()
	if info, err := os.Stat(filepath.Dir(logPath)); err != nil || !info.IsDir() {
		t.Error("logs directory was not created")
	}

	launch := h.srv.LaunchCommand()
	for _, part := range []string{"-ip 203.0.113.10", "-port 27015", "+map cp_badlands"} {
		if !strings.Contains(launch, part) {
			t.Errorf("launch command %q missing %q", launch, part)
		}
	}

	wantOps := []string{
		"new " + name,
		"pipe " + name + " " + logPath,
		"send " + name + " " + launch,
	}
	if !reflect.DeepEqual(h.sessions.Ops, wantOps) {
		t.Errorf("Ops = %v, want %v", h.sessions.Ops, wantOps)
	}
	if !strings.Contains(h.out.String(), launch) {
		t.Errorf("launch command not printed: %q", h.out.String())
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	h := newHarness(t, "alpha", Options{})
	h.sessions.AddSession("tf2server_alpha_console")
	logPath := h.writeFile(t, "logs/alpha-console.log", "previous run\n")

	err := h.srv.Start(context.Background())

	if !errors.Is(err, direrrors.ErrAlreadyRunning) {
		t.Fatalf("Start() error = %v, want ErrAlreadyRunning", err)
	}
	if OutcomeOf(err) != OutcomeAlreadyRunning {
		t.Errorf("OutcomeOf() = %v", OutcomeOf(err))
	}
	if n := h.sessions.Mutations(); n != 0 {
		t.Errorf("Start on a running server mutated the session %d times: %v", n, h.sessions.Ops)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Error("console log must not be rotated while the server runs")
	}
}

func TestStart_RotatesExistingLog(t *testing.T) {
	h := newHarness(t, "alpha", Options{})
	logPath := h.writeFile(t, "logs/alpha-console.log", "previous run\n")

	if err := h.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rotated := logPath + ".20240309140507"
	content, err := os.ReadFile(rotated)
	if err != nil {
		t.Fatalf("rotated log missing: %v", err)
	}
	if string(content) != "previous run\n" {
		t.Errorf("rotated content = %q", content)
	}
	if !strings.Contains(h.out.String(), "Saving "+logPath+" as "+rotated) {
		t.Errorf("rotation not reported: %q", h.out.String())
	}
}

func TestStart_CleansUpOnFailure(t *testing.T) {
	for _, op := range []string{"pipe", "send"} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t, "alpha", Options{})
			h.sessions.FailOn(op, errors.New("tmux exploded"))

			err := h.srv.Start(context.Background())
			if err == nil {
				t.Fatal("expected Start to fail")
			}
			if OutcomeOf(err) != OutcomeFailed {
				t.Errorf("OutcomeOf() = %v, want failed", OutcomeOf(err))
			}
			if h.sessions.Live("tf2server_alpha_console") {
				t.Error("half-started session was left behind")
			}
		})
	}
}

func TestStop(t *testing.T) {
	h := newHarness(t, "beta", Options{})
	const name = "tf2server_beta_console"
	h.sessions.AddSession(name)

	if err := h.srv.Stop(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	wantOps := []string{
		"send " + name + ` say "Server shutting down in 2 seconds!"`,
		"sleep 2s",
		"send " + name + " quit",
		"sleep 5s",
		"kill " + name,
	}
	if !reflect.DeepEqual(h.sessions.Ops, wantOps) {
		t.Errorf("Ops =\n%v\nwant\n%v", h.sessions.Ops, wantOps)
	}
	if !reflect.DeepEqual(h.sleeps, []time.Duration{2 * time.Second, 5 * time.Second}) {
		t.Errorf("sleeps = %v", h.sleeps)
	}
	if h.running(t) {
		t.Error("IsRunning() = true after Stop")
	}
	if !strings.HasPrefix(h.out.String(), "Server shutting down in 2 seconds!\n") {
		t.Errorf("warning not printed first: %q", h.out.String())
	}
}

func TestStop_WithChatPlugin(t *testing.T) {
	h := newHarness(t, "beta", Options{})
	const name = "tf2server_beta_console"
	h.sessions.AddSession(name)
	h.writeFile(t, ChatPlugin, "smx")

	if err := h.srv.Stop(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := []string{
		`sm_csay "Server shutting down in 10 seconds!"`,
		`say "Server shutting down in 10 seconds!"`,
		"quit",
	}
	if got := h.sessions.Sent(name); !reflect.DeepEqual(got, want) {
		t.Errorf("Sent() = %v, want %v", got, want)
	}
}

func TestStop_NotRunning(t *testing.T) {
	h := newHarness(t, "beta", Options{})

	err := h.srv.Stop(context.Background(), 2*time.Second)

	if !errors.Is(err, direrrors.ErrNotRunning) {
		t.Fatalf("Stop() error = %v, want ErrNotRunning", err)
	}
	if OutcomeOf(err) != OutcomeNotRunning {
		t.Errorf("OutcomeOf() = %v", OutcomeOf(err))
	}
	if len(h.sessions.Ops) != 0 || len(h.sleeps) != 0 {
		t.Errorf("Stop on a stopped server did work: ops=%v sleeps=%v", h.sessions.Ops, h.sleeps)
	}
}

func TestStop_RotatesAfterKill(t *testing.T) {
	h := newHarness(t, "beta", Options{})
	h.sessions.AddSession("tf2server_beta_console")
	logPath := h.writeFile(t, "logs/beta-console.log", "match log\n")

	if err := h.srv.Stop(context.Background(), time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("live log should have been rotated")
	}
	if _, err := os.Stat(logPath + ".20240309140507"); err != nil {
		t.Errorf("rotated log missing: %v", err)
	}
}

func TestStop_ContinuesWhenCommandsFail(t *testing.T) {
	h := newHarness(t, "beta", Options{})
	const name = "tf2server_beta_console"
	h.sessions.AddSession(name)
	h.sessions.FailOn("send", errors.New("pane is dead"))

	if err := h.srv.Stop(context.Background(), time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.sessions.Live(name) {
		t.Error("session must be killed even when commands fail")
	}
}

func TestStop_CancelledBeforeWarning(t *testing.T) {
	h := newHarness(t, "beta", Options{})
	h.sessions.AddSession("tf2server_beta_console")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.srv.Stop(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Stop() error = %v, want context.Canceled", err)
	}
	if len(h.sessions.Ops) != 0 {
		t.Errorf("cancelled Stop sent commands: %v", h.sessions.Ops)
	}
}

func TestStartStopCycle(t *testing.T) {
	h := newHarness(t, "alpha", Options{IP: "203.0.113.10"})
	ctx := context.Background()
	logPath := h.srv.LogFilePath()

	if err := h.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// the fake does not execute pipe-pane, so write the log by hand
	h.writeFile(t, "logs/alpha-console.log", "first\n")
	if err := h.srv.Stop(ctx, 0); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.running(t) {
		t.Fatal("still running after Stop")
	}

	if err := h.srv.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	h.writeFile(t, "logs/alpha-console.log", "second\n")
	if err := h.srv.Stop(ctx, 0); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	first, _ := os.ReadFile(logPath + ".20240309140507")
	second, _ := os.ReadFile(logPath + ".20240309140507-1")
	if string(first) != "first\n" || string(second) != "second\n" {
		t.Errorf("archives = %q, %q", first, second)
	}
}

func TestCommand(t *testing.T) {
	t.Run("not running is a silent no-op", func(t *testing.T) {
		h := newHarness(t, "alpha", Options{})
		if err := h.srv.Command(context.Background(), "changelevel cp_dustbowl"); err != nil {
			t.Fatalf("Command() error = %v", err)
		}
		if len(h.sessions.Ops) != 0 {
			t.Errorf("Command on a stopped server touched the session: %v", h.sessions.Ops)
		}
	})

	t.Run("running sends literal text", func(t *testing.T) {
		h := newHarness(t, "alpha", Options{})
		h.sessions.AddSession("tf2server_alpha_console")

		if err := h.srv.Command(context.Background(), "changelevel cp_dustbowl"); err != nil {
			t.Fatalf("Command() error = %v", err)
		}
		if got := h.sessions.Sent("tf2server_alpha_console"); !reflect.DeepEqual(got, []string{"changelevel cp_dustbowl"}) {
			t.Errorf("Sent() = %v", got)
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Run("stopped server is updated", func(t *testing.T) {
		h := newHarness(t, "alpha", Options{})
		if err := h.srv.Update(context.Background()); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if want := []string{h.dir + "#232250"}; !reflect.DeepEqual(h.updater.calls, want) {
			t.Errorf("updater calls = %v, want %v", h.updater.calls, want)
		}
	})

	t.Run("running server is refused", func(t *testing.T) {
		h := newHarness(t, "alpha", Options{})
		h.sessions.AddSession("tf2server_alpha_console")

		err := h.srv.Update(context.Background())
		if !errors.Is(err, direrrors.ErrRunning) {
			t.Fatalf("Update() error = %v, want ErrRunning", err)
		}
		if OutcomeOf(err) != OutcomeRunning {
			t.Errorf("OutcomeOf() = %v", OutcomeOf(err))
		}
		if len(h.updater.calls) != 0 {
			t.Error("updater must not run while the server is running")
		}
	})

	t.Run("missing steamcmd", func(t *testing.T) {
		h := newHarness(t, "alpha", Options{})
		h.updater.err = direrrors.NewNotFoundError("steamcmd", "steamcmd").WithCause(direrrors.ErrUpdaterNotFound)

		if err := h.srv.Update(context.Background()); !errors.Is(err, direrrors.ErrUpdaterNotFound) {
			t.Errorf("Update() error = %v, want ErrUpdaterNotFound", err)
		}
	})
}

func TestHasUpdate(t *testing.T) {
	tests := []struct {
		name string
		log  *string
		want bool
	}{
		{"no log file", nil, false},
		{"marker present", ptr("Connection to Steam servers successful.\nMasterRequestRestart\n"), true},
		{"marker absent", ptr("Server is hibernating\n"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "alpha", Options{})
			if tt.log != nil {
				h.writeFile(t, "logs/alpha-console.log", *tt.log)
			}

			got, err := h.srv.HasUpdate()
			if err != nil {
				t.Fatalf("HasUpdate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasUpdate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintStatus(t *testing.T) {
	h := newHarness(t, "alpha", Options{IP: "203.0.113.10", Port: 27016})
	h.querier.status = &query.Status{
		Name:       "Badlands 24/7",
		Players:    3,
		MaxPlayers: 24,
		Roster: []query.Player{
			{Name: "scout", Score: 2},
			{Name: "heavy", Score: 9},
			{Name: "medic", Score: 5},
		},
	}

	if err := h.srv.PrintStatus(context.Background()); err != nil {
		t.Fatalf("PrintStatus() error = %v", err)
	}

	if h.querier.addr != "203.0.113.10:27016" {
		t.Errorf("queried %q", h.querier.addr)
	}
	want := "Badlands 24/7: 3/24 players\n" +
		"     9  heavy\n" +
		"     5  medic\n" +
		"     2  scout\n"
	if h.out.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", h.out.String(), want)
	}
}

func TestPrintStatus_NoAddress(t *testing.T) {
	for _, ip := range []string{"", "0.0.0.0"} {
		h := newHarness(t, "alpha", Options{IP: ip})

		err := h.srv.PrintStatus(context.Background())
		if !errors.Is(err, direrrors.ErrNoAddress) {
			t.Errorf("ip %q: PrintStatus() error = %v, want ErrNoAddress", ip, err)
		}
		if h.querier.addr != "" {
			t.Errorf("ip %q: querier should not be called", ip)
		}
	}
}

func TestPrintStatus_QueryErrorPropagates(t *testing.T) {
	h := newHarness(t, "alpha", Options{IP: "203.0.113.10"})
	timeout := errors.New("i/o timeout")
	h.querier.err = timeout

	err := h.srv.PrintStatus(context.Background())
	if !errors.Is(err, timeout) {
		t.Errorf("PrintStatus() error = %v, want wrapped query error", err)
	}
}

func TestAttach(t *testing.T) {
	h := newHarness(t, "alpha", Options{})

	if err := h.srv.Attach(context.Background()); !errors.Is(err, direrrors.ErrNotRunning) {
		t.Fatalf("Attach() error = %v, want ErrNotRunning", err)
	}

	h.sessions.AddSession("tf2server_alpha_console")
	if err := h.srv.Attach(context.Background()); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if want := []string{"attach tf2server_alpha_console"}; !reflect.DeepEqual(h.sessions.Ops, want) {
		t.Errorf("Ops = %v, want %v", h.sessions.Ops, want)
	}
}

func TestIsRunning_Error(t *testing.T) {
	h := newHarness(t, "alpha", Options{})
	h.sessions.FailOn("has", errors.New("tmux: command not found"))

	if _, err := h.srv.IsRunning(context.Background()); err == nil {
		t.Error("expected session manager error to propagate")
	}
	if err := h.srv.Start(context.Background()); OutcomeOf(err) != OutcomeFailed {
		t.Errorf("Start() outcome = %v, want failed", OutcomeOf(err))
	}
}

func TestShutdownMessage(t *testing.T) {
	tests := []struct {
		delay time.Duration
		want  string
	}{
		{10 * time.Second, "Server shutting down in 10 seconds!"},
		{2 * time.Second, "Server shutting down in 2 seconds!"},
		{0, "Server shutting down in 0 seconds!"},
		{1500 * time.Millisecond, "Server shutting down in 1.5 seconds!"},
	}
	for _, tt := range tests {
		if got := ShutdownMessage(tt.delay); got != tt.want {
			t.Errorf("ShutdownMessage(%v) = %q, want %q", tt.delay, got, tt.want)
		}
	}
}

func ptr(s string) *string { return &s }
