package consolelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "alpha-console.log")
	writeFile(t, logPath, "first run\n")

	r := Rotator{Now: fixedClock(time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local))}
	got, err := r.Rotate(logPath)
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	want := logPath + ".20240309140507"
	if got != want {
		t.Errorf("Rotate() = %q, want %q", got, want)
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("live log should be gone after rotation")
	}
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	if string(content) != "first run\n" {
		t.Errorf("rotated content = %q", content)
	}
}

func TestRotate_NoFile(t *testing.T) {
	r := Rotator{Now: fixedClock(time.Now())}

	got, err := r.Rotate(filepath.Join(t.TempDir(), "missing.log"))
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if got != "" {
		t.Errorf("Rotate() = %q, want empty", got)
	}
}

func TestRotate_SameSecondNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "alpha-console.log")
	r := Rotator{Now: fixedClock(time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local))}

	var rotated []string
	for _, run := range []string{"run one", "run two", "run three"} {
		writeFile(t, logPath, run)
		name, err := r.Rotate(logPath)
		if err != nil {
			t.Fatalf("Rotate() error = %v", err)
		}
		rotated = append(rotated, name)
	}

	seen := make(map[string]bool)
	for _, name := range rotated {
		if seen[name] {
			t.Fatalf("rotation produced duplicate name %q", name)
		}
		seen[name] = true
	}

	base := logPath + ".20240309140507"
	want := []string{base, base + "-1", base + "-2"}
	for i, name := range rotated {
		if name != want[i] {
			t.Errorf("rotation %d = %q, want %q", i, name, want[i])
		}
	}

	first, err := os.ReadFile(base)
	if err != nil {
		t.Fatalf("first archive missing: %v", err)
	}
	if string(first) != "run one" {
		t.Errorf("first archive was overwritten: %q", first)
	}
}

func TestRotate_DistinctTimestamps(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "beta-console.log")

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	r := Rotator{Now: func() time.Time {
		now = now.Add(time.Second)
		return now
	}}

	writeFile(t, logPath, "a")
	first, _ := r.Rotate(logPath)
	writeFile(t, logPath, "b")
	second, _ := r.Rotate(logPath)

	if first == second {
		t.Fatalf("expected distinct names, both %q", first)
	}
	if !strings.HasSuffix(first, ".20240101000001") || !strings.HasSuffix(second, ".20240101000002") {
		t.Errorf("unexpected names %q, %q", first, second)
	}
}

func TestHasUpdateMarker(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		want    bool
	}{
		{name: "no log file", content: nil, want: false},
		{name: "marker present", content: ptr("L 03/09/2024 - 14:05:07: Connection to Steam servers successful.\nMasterRequestRestart\nYour server needs to be restarted\n"), want: true},
		{name: "marker mid-line", content: ptr("12:00 [STEAM] MasterRequestRestart received\n"), want: true},
		{name: "marker absent", content: ptr("Server is hibernating\nsv_pure set to 2.\n"), want: false},
		{name: "empty log", content: ptr(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".log")
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}

			got, err := HasUpdateMarker(path)
			if err != nil {
				t.Fatalf("HasUpdateMarker() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasUpdateMarker() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasUpdateMarker_LongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.log")
	writeFile(t, path, strings.Repeat("x", 200*1024)+"\n"+UpdateMarker+"\n")

	got, err := HasUpdateMarker(path)
	if err != nil {
		t.Fatalf("HasUpdateMarker() error = %v", err)
	}
	if !got {
		t.Error("marker after a long line was not found")
	}
}

func ptr(s string) *string { return &s }
