package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"zevtool/internal/config"
	"zevtool/internal/export"
	"zevtool/internal/logging"
	"zevtool/internal/watcher"
	"zevtool/internal/zev"
)

// usageError carries the synopsis of a command invoked with bad arguments.
type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func (a *app) readContainer(path string) ([]byte, []zev.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	events, err := zev.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	a.log.Debug("decoded container", "path", path, "bytes", len(data), "events", len(events))
	return data, events, nil
}

func (a *app) cmdInfo(args []string) error {
	if len(args) != 1 {
		return usageError("info <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	c, err := zev.ReadHeader(data)
	if err != nil {
		return fmt.Errorf("read header %s: %w", args[0], err)
	}
	l := zev.ComputeLayout(c)

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", args[0])
	fmt.Fprintf(tw, "Size:\t%d bytes (expected %d)\n", len(data), l.Total)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Section\tCount\tOffset")
	fmt.Fprintf(tw, "events\t%d\t%#x\n", c.Events, l.Events)
	fmt.Fprintf(tw, "actors\t%d\t%#x\n", c.Actors, l.Actors)
	fmt.Fprintf(tw, "steps (part 1)\t%d\t%#x\n", c.Steps, l.Steps1)
	fmt.Fprintf(tw, "steps (part 2)\t%d\t%#x\n", c.Steps, l.Steps2)
	fmt.Fprintf(tw, "data defs\t%d\t%#x\n", c.DataDefs, l.DataDefs)
	fmt.Fprintf(tw, "ints\t%d\t%#x\n", c.Ints, l.Ints)
	fmt.Fprintf(tw, "floats\t%d\t%#x\n", c.Floats, l.Floats)
	fmt.Fprintf(tw, "string bytes\t%d\t%#x\n", c.StringBytes, l.Strings)
	return tw.Flush()
}

func (a *app) cmdList(args []string) error {
	if len(args) != 1 {
		return usageError("list <file>")
	}
	_, events, err := a.readContainer(args[0])
	if err != nil {
		return err
	}

	for _, ev := range events {
		fmt.Fprintf(a.stdout, "%s (flag %d, %d actors, %d waits)\n", ev.Name, ev.Flag, len(ev.Actors), len(ev.WaitFors))
		for ai, actor := range ev.Actors {
			fmt.Fprintf(a.stdout, "  %d. %s\n", ai, actor.Name)
			for si, step := range actor.Steps {
				line := fmt.Sprintf("    %d. %-16s %-4s", si, step.LongName, step.Name)
				if on, ok := ev.WaitedOn(ai, si); ok {
					line += fmt.Sprintf("  waits on %d.%d", on.Actor, on.Step)
				}
				fmt.Fprintln(a.stdout, line)
			}
		}
	}
	return nil
}

func (a *app) cmdRoundTrip(args []string) error {
	if len(args) != 1 {
		return usageError("roundtrip <file>")
	}
	data, events, err := a.readContainer(args[0])
	if err != nil {
		return err
	}
	again, err := zev.Encode(events)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if !bytes.Equal(data, again) {
		at := firstDifference(data, again)
		a.log.Warn("round trip mismatch", "path", args[0], "offset", at)
		return fmt.Errorf("round trip differs at byte %#x (%d bytes in, %d bytes out)", at, len(data), len(again))
	}
	fmt.Fprintf(a.stdout, "%s: %d events, %d bytes, round trip OK\n", args[0], len(events), len(data))
	return nil
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func (a *app) cmdExport(args []string) error {
	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	formatStr := fs.String("format", a.cfg.Export.Format, "output format: json, yaml or full")
	indent := fs.Int("indent", a.cfg.Export.Indent, "spaces per nesting level")
	if err := fs.Parse(args); err != nil {
		return usageError("json [-format json|yaml|full] [-indent n] <file> <event>")
	}
	if fs.NArg() != 2 {
		return usageError("json [-format json|yaml|full] [-indent n] <file> <event>")
	}
	format, err := export.ParseFormat(*formatStr)
	if err != nil {
		return err
	}
	return a.writeEvent(fs.Arg(0), fs.Arg(1), export.NewGenerator(format, *indent))
}

func (a *app) cmdDOT(args []string) error {
	if len(args) != 2 {
		return usageError("dot <file> <event>")
	}
	return a.writeEvent(args[0], args[1], export.NewGenerator(export.FormatDOT, 0))
}

func (a *app) writeEvent(path, name string, g *export.Generator) error {
	_, events, err := a.readContainer(path)
	if err != nil {
		return err
	}
	ev, err := zev.FindEvent(events, name)
	if err != nil {
		return err
	}
	return g.Generate(ev, a.stdout)
}

func (a *app) cmdPort(args []string) error {
	if len(args) < 4 {
		return usageError("port <dst> <src> <out> <event>...")
	}
	dstPath, srcPath, outPath, names := args[0], args[1], args[2], args[3:]

	_, dst, err := a.readContainer(dstPath)
	if err != nil {
		return err
	}
	_, src, err := a.readContainer(srcPath)
	if err != nil {
		return err
	}

	merged, err := zev.Port(dst, src, names...)
	if err != nil {
		return err
	}
	out, err := zev.Encode(merged)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return err
	}

	a.log.Info("ported events", "events", names, "from", srcPath, "into", dstPath, "out", outPath, "bytes", len(out))
	fmt.Fprintf(a.stdout, "wrote %s: %d events, %d bytes\n", outPath, len(merged), len(out))
	return nil
}

func (a *app) cmdWatch(args []string) error {
	if len(args) < 1 {
		return usageError("watch <path>...")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.watch(ctx, args)
}

// watch runs the container watcher until ctx is done. A reloaded config
// file changes the log level at once; watch settings apply on restart.
func (a *app) watch(ctx context.Context, paths []string) error {
	w, err := watcher.New(watcher.Config{
		Paths:      paths,
		Debounce:   time.Duration(a.cfg.Watch.DebounceMs) * time.Millisecond,
		Extensions: a.cfg.Watch.Extensions,
		Logger:     a.log,
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	a.loader.OnChange(a.applyConfig)
	if err := a.loader.Watch(); err != nil {
		a.log.Warn("config watch disabled", "error", err)
	} else {
		defer a.loader.Close()
	}

	a.log.Info("watching", "paths", w.WatchedPaths(), "debounce_ms", a.cfg.Watch.DebounceMs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-w.Reports():
			if !ok {
				return nil
			}
			status := "OK"
			switch {
			case r.Err != nil:
				status = "INVALID: " + r.Err.Error()
			case !r.RoundTrip:
				status = "ROUND TRIP MISMATCH"
			}
			fmt.Fprintf(a.stdout, "%s  %s  %d events  %s\n", r.Timestamp.Format(time.RFC3339), r.Path, r.Counts.Events, status)
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			a.log.Warn("watch error", "error", err)
		case err := <-a.loader.Errors():
			a.log.Warn("config reload failed", "error", err)
		}
	}
}

// applyConfig takes over settings from a reloaded config file. A level
// given with -log-level keeps precedence.
func (a *app) applyConfig(_, next *config.Config) {
	if !a.levelFlag {
		level, err := logging.ParseLevel(next.Logging.Level)
		if err != nil {
			a.log.Warn("config reload: bad log level", "level", next.Logging.Level, "error", err)
		} else {
			a.log.SetLevel(level)
		}
	}
	if a.cfg.Watch.DebounceMs != next.Watch.DebounceMs || !slices.Equal(a.cfg.Watch.Extensions, next.Watch.Extensions) {
		a.log.Warn("watch settings changed; restart to apply",
			"debounce_ms", next.Watch.DebounceMs, "extensions", next.Watch.Extensions)
	}
	a.log.Info("config reloaded", "path", a.loader.Path(), "level", logging.LevelString(a.log.Level()))
}
