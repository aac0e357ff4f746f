package watcher

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zevtool/internal/logging"
	"zevtool/internal/zev"
)

func container(t *testing.T) []byte {
	t.Helper()
	events := []zev.Event{{
		Name: "Intro",
		Actors: []zev.Actor{{
			Name: "Link",
			Steps: []zev.Step{
				{LongName: "Walk", Name: "walk", Data: []zev.StepData{{Name: "dist", Value: zev.Floats{2.5}}}},
				{LongName: "Talk", Name: "talk", Data: []zev.StepData{{Name: "text", Value: zev.Text("hey")}}},
			},
		}},
		WaitFors: []zev.WaitFor{{
			Waiting:   zev.StepRef{Actor: 0, Step: 1},
			WaitingOn: zev.StepRef{Actor: 0, Step: 0},
		}},
	}}
	data, err := zev.Encode(events)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.New(&logging.Config{Level: logging.LevelError, Writer: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newWatcher(t *testing.T, paths ...string) *Watcher {
	t.Helper()
	w, err := New(Config{
		Paths:      paths,
		Debounce:   200 * time.Millisecond,
		Extensions: []string{".dat"},
		Logger:     quietLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	return w
}

func waitReport(t *testing.T, w *Watcher) Report {
	t.Helper()
	select {
	case r := <-w.Reports():
		return r
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for report")
	}
	return Report{}
}

func TestVerifyFile(t *testing.T) {
	data := container(t)
	path := filepath.Join(t.TempDir(), "event.dat")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := VerifyFile(path)
	if err != nil {
		t.Fatalf("VerifyFile failed: %v", err)
	}
	if r.Err != nil {
		t.Fatalf("unexpected decode error: %v", r.Err)
	}
	if !r.RoundTrip {
		t.Error("expected byte exact round trip")
	}
	if r.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), r.Size)
	}
	if r.Counts.Events != 1 || r.Counts.Steps != 2 || r.Counts.StringBytes != 4 {
		t.Errorf("unexpected counts %+v", r.Counts)
	}
}

func TestVerifyFileInvalid(t *testing.T) {
	data := container(t)
	data[0] = 0

	path := filepath.Join(t.TempDir(), "bad.dat")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := VerifyFile(path)
	if err != nil {
		t.Fatalf("VerifyFile failed: %v", err)
	}
	if !errors.Is(r.Err, zev.ErrInvalidHeader) {
		t.Errorf("expected invalid header, got %v", r.Err)
	}
	if r.RoundTrip {
		t.Error("invalid file cannot round trip")
	}
}

func TestVerifyFileNotFound(t *testing.T) {
	if _, err := VerifyFile("/nonexistent/file.dat"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestWatcherStartStop(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "initial.dat"), container(t), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("skip"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	w := newWatcher(t, tmpDir)
	if w.TrackedFiles() != 0 {
		t.Errorf("expected 0 tracked files before start, got %d", w.TrackedFiles())
	}
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	// Only the container matches the extension filter.
	if w.TrackedFiles() != 1 {
		t.Errorf("expected 1 tracked file, got %d", w.TrackedFiles())
	}

	r := waitReport(t, w)
	if filepath.Base(r.Path) != "initial.dat" || !r.RoundTrip {
		t.Errorf("unexpected report %+v", r)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("failed to stop watcher: %v", err)
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	w := newWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	good := filepath.Join(tmpDir, "good.dat")
	if err := os.WriteFile(good, container(t), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := waitReport(t, w)
	if r.Path != good || r.Err != nil || !r.RoundTrip {
		t.Errorf("unexpected report for valid container %+v", r)
	}

	bad := filepath.Join(tmpDir, "bad.dat")
	if err := os.WriteFile(bad, []byte("not a container"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	r = waitReport(t, w)
	if r.Path != bad {
		t.Errorf("expected report for %s, got %s", bad, r.Path)
	}
	if r.Err == nil {
		t.Error("expected decode error for garbage file")
	}
}

func TestWatcherDebounce(t *testing.T) {
	tmpDir := t.TempDir()
	w := newWatcher(t, tmpDir)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	data := container(t)
	testFile := filepath.Join(tmpDir, "debounce.dat")

	// Rewrite the same content quickly; identical content is reported once.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(testFile, data, 0600); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	reportCount := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-w.Reports():
			reportCount++
			if reportCount > 1 {
				t.Error("expected only one report due to debouncing")
				return
			}
		case <-timeout:
			if reportCount != 1 {
				t.Errorf("expected 1 report, got %d", reportCount)
			}
			return
		}
	}
}

func TestWatcherSingleFileIgnoresSiblings(t *testing.T) {
	tmpDir := t.TempDir()
	named := filepath.Join(tmpDir, "named.zev")
	if err := os.WriteFile(named, container(t), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := newWatcher(t, named)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	// Named files bypass the extension filter.
	if w.TrackedFiles() != 1 {
		t.Errorf("expected named file to be tracked, got %d", w.TrackedFiles())
	}
	if r := waitReport(t, w); r.Path != named {
		t.Fatalf("expected report for %s, got %s", named, r.Path)
	}

	sibling := filepath.Join(tmpDir, "sibling.dat")
	if err := os.WriteFile(sibling, container(t), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case r := <-w.Reports():
		t.Errorf("unexpected report for %s", r.Path)
	case <-time.After(time.Second):
	}
}
