// Package consolelog handles the console log a game server writes through
// its tmux pane: archiving it between runs and scanning it for the update
// marker.
//
// Archived logs are never pruned. Each start and stop leaves one more
// timestamped file next to the live log.
package consolelog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampLayout is the suffix format of archived logs (YYYYMMDDHHMMSS).
const TimestampLayout = "20060102150405"

// UpdateMarker is printed by the server when Steam asks it to restart for
// an update.
const UpdateMarker = "MasterRequestRestart"

// Rotator archives console logs under timestamped names.
type Rotator struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Rotate renames the file at path to "<path>.<timestamp>" and returns the
// new name. It returns "" without error when there is no file to rotate.
//
// When the timestamped name is already taken (two rotations in the same
// second) a "-N" suffix is added so an earlier archive is never overwritten.
func (r Rotator) Rotate(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat console log: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	base := path + "." + now().Format(TimestampLayout)
	target := base
	for n := 1; exists(target); n++ {
		target = fmt.Sprintf("%s-%d", base, n)
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to rotate console log: %w", err)
	}
	return target, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// HasUpdateMarker reports whether any line of the log at path contains
// UpdateMarker. A missing log means no update is pending.
func HasUpdateMarker(path string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open console log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// srcds occasionally prints very long lines (map lists, cvar dumps).
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), UpdateMarker) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to read console log: %w", err)
	}
	return false, nil
}
