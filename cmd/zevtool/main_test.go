package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zevtool/internal/config"
	"zevtool/internal/export"
	"zevtool/internal/logging"
	"zevtool/internal/zev"
)

func writeContainer(t *testing.T, dir, name string, events ...zev.Event) string {
	t.Helper()
	data, err := zev.Encode(events)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func introEvent(name string) zev.Event {
	return zev.Event{
		Name: name,
		Actors: []zev.Actor{
			{
				Name: "Link",
				Steps: []zev.Step{
					{LongName: "Walk", Name: "walk", Data: []zev.StepData{{Name: "dist", Value: zev.Floats{1}}}},
					{LongName: "Talk", Name: "talk", Data: []zev.StepData{{Name: "text", Value: zev.Text("hello")}}},
				},
			},
			{
				Name:  "Camera",
				Steps: []zev.Step{{LongName: "Pan", Name: "move", Data: []zev.StepData{{Name: "time", Value: zev.Ints{30}}}}},
			},
		},
		WaitFors: []zev.WaitFor{
			{Waiting: zev.StepRef{Actor: 1, Step: 0}, WaitingOn: zev.StepRef{Actor: 0, Step: 1}},
		},
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("ZEVTOOL_CONFIG_DIR", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestInfo(t *testing.T) {
	path := writeContainer(t, t.TempDir(), "a.dat", introEvent("Intro"))

	code, out, _ := runCLI(t, "info", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "events")
	assert.Contains(t, out, "0x14")
	assert.Regexp(t, `steps \(part 1\)\s+3`, out)
}

func TestList(t *testing.T) {
	path := writeContainer(t, t.TempDir(), "a.dat", introEvent("Intro"))

	code, out, _ := runCLI(t, "list", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Intro (flag 0, 2 actors, 1 waits)")
	assert.Contains(t, out, "1. Camera")
	assert.Contains(t, out, "waits on 0.1")
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeContainer(t, dir, "a.dat", introEvent("Intro"), introEvent("Bye"))

	code, out, _ := runCLI(t, "roundtrip", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 events")
	assert.Contains(t, out, "round trip OK")

	bad := filepath.Join(dir, "bad.dat")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))
	code, _, errOut := runCLI(t, "roundtrip", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid file")
}

func TestJSONExport(t *testing.T) {
	path := writeContainer(t, t.TempDir(), "a.dat", introEvent("Intro"))

	code, out, _ := runCLI(t, "json", path, "Intro")
	require.Equal(t, 0, code)
	assert.NoError(t, export.ValidateJSON([]byte(out)))
	assert.Contains(t, out, `"waitOnActoridx": 0`)

	code, out, _ = runCLI(t, "json", "-format", "yaml", path, "Intro")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "longname: Walk")

	code, out, _ = runCLI(t, "json", "-format", "full", path, "Intro")
	require.Equal(t, 0, code)
	assert.NoError(t, export.ValidateFullJSON([]byte(out)))
	ev, err := export.ParseFull([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, introEvent("Intro"), ev)

	code, _, errOut := runCLI(t, "json", path, "Missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "event not found")
}

func TestDOTExport(t *testing.T) {
	path := writeContainer(t, t.TempDir(), "a.dat", introEvent("Intro"))

	code, out, _ := runCLI(t, "dot", path, "Intro")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "digraph {\nlabel=\"Intro\"\n"))
	assert.Contains(t, out, "action_0_1 -> action_1_0\n")
}

func TestPort(t *testing.T) {
	dir := t.TempDir()
	dst := writeContainer(t, dir, "dst.dat", introEvent("Home"))
	src := writeContainer(t, dir, "src.dat", introEvent("Intro"), introEvent("Bye"))
	out := filepath.Join(dir, "out.dat")

	code, stdout, _ := runCLI(t, "port", dst, src, out, "Bye")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "2 events")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	events, err := zev.Decode(data)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Home", events[0].Name)
	assert.Equal(t, "Bye", events[1].Name)

	code, _, errOut := runCLI(t, "port", dst, src, out, "Home")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")

	code, _, errOut = runCLI(t, "port", dst, src, out, "Missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "event not found")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"frobnicate"}, 2},
		{"info without file", []string{"info"}, 2},
		{"port too few args", []string{"port", "a", "b"}, 2},
		{"help", []string{"help"}, 0},
		{"version", []string{"-version"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestConfigFileSelectsYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeContainer(t, dir, "a.dat", introEvent("Intro"))
	cfgPath := filepath.Join(dir, "zevtool.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[export]\nformat = \"yaml\"\n"), 0o600))

	code, out, _ := runCLI(t, "-config", cfgPath, "json", path, "Intro")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "name: Intro")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Watch.DebounceMs = 100

	log, err := logging.New(&logging.Config{Level: logging.LevelError, Writer: &bytes.Buffer{}})
	require.NoError(t, err)

	var stdout syncBuffer
	a := &app{
		cfg:    cfg,
		log:    log,
		stdout: &stdout,
		stderr: &bytes.Buffer{},
		loader: config.NewLoader(filepath.Join(dir, "missing.toml")),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, []string{dir}) }()

	time.Sleep(100 * time.Millisecond)
	writeContainer(t, dir, "a.dat", introEvent("Intro"))

	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "a.dat  1 events  OK")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestApplyConfigChangesLogLevel(t *testing.T) {
	var logs syncBuffer
	log, err := logging.New(&logging.Config{Level: logging.LevelInfo, Writer: &logs})
	require.NoError(t, err)

	a := &app{
		cfg:    config.DefaultConfig(),
		log:    log,
		loader: config.NewLoader(filepath.Join(t.TempDir(), "zevtool.toml")),
	}

	next := config.DefaultConfig()
	next.Logging.Level = "debug"
	a.applyConfig(nil, next)
	assert.Equal(t, logging.LevelDebug, log.Level())

	next = config.DefaultConfig()
	next.Logging.Level = "error"
	next.Watch.DebounceMs = 500
	a.applyConfig(nil, next)
	assert.Equal(t, logging.LevelError, log.Level())

	// -log-level on the command line wins over the file.
	a.levelFlag = true
	next = config.DefaultConfig()
	next.Logging.Level = "debug"
	a.applyConfig(nil, next)
	assert.Equal(t, logging.LevelError, log.Level())
}

func TestWatchAppliesReloadedLogLevel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "zevtool.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[logging]\nlevel = \"error\"\n"), 0o600))

	loader := config.NewLoader(cfgPath)
	cfg, err := loader.Load()
	require.NoError(t, err)

	var logs syncBuffer
	log, err := logging.New(&logging.Config{Level: logging.LevelError, Writer: &logs})
	require.NoError(t, err)

	a := &app{cfg: cfg, log: log, stdout: &syncBuffer{}, stderr: &bytes.Buffer{}, loader: loader}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, []string{t.TempDir()}) }()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o600))

	assert.Eventually(t, func() bool {
		return log.Level() == logging.LevelDebug
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
