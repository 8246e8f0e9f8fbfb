package tmux

import (
	"context"
	"testing"
)

func TestCommand(t *testing.T) {
	cmd := Command("tf2", "list-sessions")
	args := cmd.Args

	if len(args) != 4 {
		t.Fatalf("Expected 4 args, got %d: %v", len(args), args)
	}

	if args[0] != "tmux" {
		t.Errorf("args[0] = %q, want %q", args[0], "tmux")
	}
	if args[1] != "-L" {
		t.Errorf("args[1] = %q, want %q", args[1], "-L")
	}
	if args[2] != "tf2" {
		t.Errorf("args[2] = %q, want %q", args[2], "tf2")
	}
	if args[3] != "list-sessions" {
		t.Errorf("args[3] = %q, want %q", args[3], "list-sessions")
	}
}

func TestCommand_DefaultServer(t *testing.T) {
	cmd := Command("", "has-session", "-t", "test")

	expected := []string{"tmux", "has-session", "-t", "test"}
	if len(cmd.Args) != len(expected) {
		t.Fatalf("len(args) = %d, want %d: %v", len(cmd.Args), len(expected), cmd.Args)
	}
	for i, want := range expected {
		if cmd.Args[i] != want {
			t.Errorf("args[%d] = %q, want %q", i, cmd.Args[i], want)
		}
	}
}

func TestCommandContext(t *testing.T) {
	ctx := context.Background()
	cmd := CommandContext(ctx, "tf2", "has-session", "-t", "test")
	args := cmd.Args

	if len(args) != 6 {
		t.Fatalf("Expected 6 args, got %d: %v", len(args), args)
	}
	if args[3] != "has-session" {
		t.Errorf("args[3] = %q, want %q", args[3], "has-session")
	}
}

func TestCommandArgs(t *testing.T) {
	args := CommandArgs("tf2", "kill-session", "-t", "test")

	expected := []string{"-L", "tf2", "kill-session", "-t", "test"}
	if len(args) != len(expected) {
		t.Fatalf("len(args) = %d, want %d", len(args), len(expected))
	}

	for i, want := range expected {
		if args[i] != want {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want)
		}
	}
}

func TestBaseArgs(t *testing.T) {
	if args := BaseArgs(""); len(args) != 0 {
		t.Errorf("BaseArgs(\"\") = %v, want empty", args)
	}

	args := BaseArgs("tf2")
	if len(args) != 2 || args[0] != "-L" || args[1] != "tf2" {
		t.Errorf("BaseArgs(\"tf2\") = %v, want [-L tf2]", args)
	}
}

func TestAttachCommand(t *testing.T) {
	tests := []struct {
		socket string
		want   string
	}{
		{"", "tmux attach-session -t tf2server_alpha_console"},
		{"tf2", "tmux -L tf2 attach-session -t tf2server_alpha_console"},
	}

	for _, tt := range tests {
		if got := AttachCommand(tt.socket, "tf2server_alpha_console"); got != tt.want {
			t.Errorf("AttachCommand(%q) = %q, want %q", tt.socket, got, tt.want)
		}
	}
}

func TestIsSessionNotFound(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"can't find session: tf2server_alpha_console", true},
		{"no server running on /tmp/tmux-1000/default", true},
		{"error connecting to /tmp/tmux-1000/tf2 (No such file or directory)", true},
		{"session not found: x", true},
		{"exit status 1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSessionNotFound(tt.msg); got != tt.want {
			t.Errorf("IsSessionNotFound(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestPipeCommand(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/srv/tf2/alpha/logs/alpha-console.log", "cat >> '/srv/tf2/alpha/logs/alpha-console.log'"},
		{"/srv/it's/log", `cat >> '/srv/it'"'"'s/log'`},
	}

	for _, tt := range tests {
		if got := PipeCommand(tt.path); got != tt.want {
			t.Errorf("PipeCommand(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExactTargets(t *testing.T) {
	if got := ExactSession("tf2server_alpha_console"); got != "=tf2server_alpha_console" {
		t.Errorf("ExactSession() = %q", got)
	}
	if got := ExactPane("tf2server_alpha_console"); got != "=tf2server_alpha_console:" {
		t.Errorf("ExactPane() = %q", got)
	}
}
