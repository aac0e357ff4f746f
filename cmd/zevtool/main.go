// Command zevtool inspects, converts and verifies zev event containers.
//
// Usage:
//
//	zevtool [options] <command> [args]
//
// Examples:
//
//	# Header counts and section offsets
//	zevtool info event.dat
//
//	# Check that decode followed by encode is byte exact
//	zevtool roundtrip event.dat
//
//	# Graph of one event
//	zevtool dot event.dat F200R02 | dot -Tsvg > F200R02.svg
//
//	# Copy an event from one container into another
//	zevtool port dst.dat src.dat out.dat F200R02
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"zevtool/internal/config"
	"zevtool/internal/logging"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	cfg    *config.Config
	log    *logging.Logger
	stdout io.Writer
	stderr io.Writer
	loader *config.Loader

	// levelFlag is set when -log-level overrides the config file.
	levelFlag bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zevtool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	logLevel := fs.String("log-level", "", "override logging.level")
	versionFlag := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *versionFlag {
		fmt.Fprintf(stdout, "zevtool %s\n", version)
		return 0
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer log.Close()
	logging.SetDefault(log)

	a := &app{cfg: cfg, log: log, stdout: stdout, stderr: stderr, loader: loader, levelFlag: *logLevel != ""}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var cmdErr error
	switch cmd {
	case "info":
		cmdErr = a.cmdInfo(rest)
	case "list":
		cmdErr = a.cmdList(rest)
	case "roundtrip":
		cmdErr = a.cmdRoundTrip(rest)
	case "json":
		cmdErr = a.cmdExport(rest)
	case "dot":
		cmdErr = a.cmdDOT(rest)
	case "port":
		cmdErr = a.cmdPort(rest)
	case "watch":
		cmdErr = a.cmdWatch(rest)
	case "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		usage(stderr)
		return 2
	}

	if cmdErr != nil {
		var ue usageError
		if errors.As(cmdErr, &ue) {
			fmt.Fprintf(stderr, "Usage: zevtool %s\n", string(ue))
			return 2
		}
		log.Error("command failed", "command", cmd, "error", cmdErr)
		fmt.Fprintf(stderr, "Error: %v\n", cmdErr)
		return 1
	}
	return 0
}

// newLogger maps the config section onto logging.Config. "stderr" output
// goes to the caller's stderr writer.
func newLogger(lc config.LoggingConfig, stderr io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(lc.Format)
	if err != nil {
		return nil, err
	}
	cfg := &logging.Config{
		Level:     level,
		Format:    format,
		Output:    lc.Output,
		FilePath:  lc.FilePath,
		Component: "zevtool",
	}
	if lc.Output == "stderr" {
		cfg.Writer = stderr
	}
	return logging.New(cfg)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `zevtool - Inspect and edit zev event containers

Usage: zevtool [options] <command> [args]

Commands:
  info <file>                         Show header counts and section offsets
  list <file>                         List events, actors, steps and waits
  roundtrip <file>                    Decode and re-encode, compare bytes
  json [-format json|yaml|full] <file> <event>
                                      Export one event as structured text
  dot <file> <event>                  Export one event as a Graphviz graph
  port <dst> <src> <out> <event>...   Copy events from src into dst, write out
  watch <path>...                     Re-verify containers whenever they change
  help                                Show this help message

Options:
  -config <path>     Path to config file (TOML, JSON or YAML)
  -log-level <lvl>   Override the configured log level
  -version           Print version and exit`)
}
