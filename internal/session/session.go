// Package session provides the Session Handle used by server instances: a
// named, detachable terminal session that keeps the game server process alive
// independent of the terminal that started it.
//
// A session is identified only by its name. Whether a server is running is
// always re-derived by asking the session provider for that name; nothing is
// cached. The check is not a synchronization primitive: two operators starting
// the same server at once can both observe "not running".
package session

import "context"

// Manager is the session capability a server instance depends on.
// Implementations must be safe to share between instances.
type Manager interface {
	// HasSession reports whether a session with exactly this name exists.
	// A missing session (or no session server at all) is false, not an error.
	HasSession(ctx context.Context, name string) (bool, error)

	// NewSession creates a detached session whose shell starts in workDir.
	NewSession(ctx context.Context, name, workDir string) error

	// PipeOutput mirrors everything the session's pane prints into the file
	// at path, appending.
	PipeOutput(ctx context.Context, name, path string) error

	// SendKeys types text into the session as literal keystrokes followed by
	// Enter. Delivery is best-effort with no acknowledgement.
	SendKeys(ctx context.Context, name, text string) error

	// Attach hands the calling terminal to the session and blocks until the
	// operator detaches.
	Attach(ctx context.Context, name string) error

	// KillSession destroys the session and everything running in it.
	KillSession(ctx context.Context, name string) error
}
