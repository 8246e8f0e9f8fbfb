// Package sessiontest provides an in-memory session.Manager for tests.
package sessiontest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is an in-memory session.Manager. It records every call in Ops, in
// order, so tests can assert on sequencing.
type Fake struct {
	mu sync.Mutex

	live  map[string]string   // session name -> work dir
	pipes map[string]string   // session name -> piped file
	keys  map[string][]string // session name -> text sent, kept after kill
	fail  map[string]error

	// Ops lists calls as "<op> <session>[ <arg>]", plus anything added with Note.
	Ops []string
}

// NewFake returns an empty Fake with no sessions.
func NewFake() *Fake {
	return &Fake{
		live:  make(map[string]string),
		pipes: make(map[string]string),
		keys:  make(map[string][]string),
		fail:  make(map[string]error),
	}
}

// FailOn makes every later call of op ("new", "pipe", "send", "kill",
// "attach", "has") return err. A nil err clears the failure.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// AddSession creates a live session without recording an op, as if some
// earlier run had started it.
func (f *Fake) AddSession(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[name] = ""
}

// Note appends a marker to Ops. Useful for interleaving sleeps or other
// events with session calls.
func (f *Fake) Note(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, fmt.Sprintf(format, args...))
}

// Sent returns the text sent to the named session, including text sent
// before it was killed.
func (f *Fake) Sent(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys[name]...)
}

// Pipe returns the file the session output is piped to, or "".
func (f *Fake) Pipe(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipes[name]
}

// WorkDir returns the working directory the session was created in.
func (f *Fake) WorkDir(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[name]
}

// Live reports whether the session exists.
func (f *Fake) Live(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.live[name]
	return ok
}

// Mutations counts the calls that change session state.
func (f *Fake) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range f.Ops {
		switch opName(op) {
		case "new", "pipe", "send", "kill":
			n++
		}
	}
	return n
}

func (f *Fake) record(op, name string, extra ...string) error {
	f.Ops = append(f.Ops, strings.Join(append([]string{op, name}, extra...), " "))
	return f.fail[op]
}

// HasSession implements session.Manager.
func (f *Fake) HasSession(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["has"]; err != nil {
		return false, err
	}
	_, ok := f.live[name]
	return ok, nil
}

// NewSession implements session.Manager.
func (f *Fake) NewSession(_ context.Context, name, workDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("new", name); err != nil {
		return err
	}
	if _, ok := f.live[name]; ok {
		return fmt.Errorf("duplicate session: %s", name)
	}
	f.live[name] = workDir
	return nil
}

// PipeOutput implements session.Manager.
func (f *Fake) PipeOutput(_ context.Context, name, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("pipe", name, path); err != nil {
		return err
	}
	if _, ok := f.live[name]; !ok {
		return fmt.Errorf("can't find session: %s", name)
	}
	f.pipes[name] = path
	return nil
}

// SendKeys implements session.Manager.
func (f *Fake) SendKeys(_ context.Context, name, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("send", name, text); err != nil {
		return err
	}
	if _, ok := f.live[name]; !ok {
		return fmt.Errorf("can't find session: %s", name)
	}
	f.keys[name] = append(f.keys[name], text)
	return nil
}

// Attach implements session.Manager.
func (f *Fake) Attach(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("attach", name); err != nil {
		return err
	}
	if _, ok := f.live[name]; !ok {
		return fmt.Errorf("can't find session: %s", name)
	}
	return nil
}

// KillSession implements session.Manager.
func (f *Fake) KillSession(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("kill", name); err != nil {
		return err
	}
	delete(f.live, name)
	delete(f.pipes, name)
	return nil
}

func opName(entry string) string {
	op, _, _ := strings.Cut(entry, " ")
	return op
}
