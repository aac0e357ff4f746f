// Package watcher monitors container files and re-verifies them when they change.
package watcher

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"zevtool/internal/logging"
	"zevtool/internal/zev"
)

// Report is the result of verifying one container file.
type Report struct {
	Path      string
	Size      int64
	Checksum  [32]byte
	Counts    zev.Counts
	Timestamp time.Time

	// RoundTrip is true when re-encoding the decoded events reproduces
	// the file byte for byte.
	RoundTrip bool

	// Err is the decode or encode failure, if any.
	Err error
}

// Config configures a Watcher.
type Config struct {
	// Paths are files or directories to watch. Directories are watched
	// non-recursively.
	Paths []string

	// Debounce is how long a file must stay unchanged before it is checked.
	Debounce time.Duration

	// Extensions filters directory entries; empty accepts every file.
	// Files named in Paths are always watched.
	Extensions []string

	// Logger receives one line per report; nil uses the default logger.
	Logger *logging.Logger
}

// Watcher monitors files and directories for changes.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	paths      []string
	interval   time.Duration
	extensions []string
	log        *logging.Logger

	// Watched directories and explicitly named files, by absolute path.
	// Fixed once Start returns.
	dirs  map[string]bool
	files map[string]bool

	// State tracking: path -> last modification time
	state   map[string]time.Time
	stateMu sync.RWMutex

	// last reported checksum per path
	seen map[string][32]byte

	reports chan Report
	errors  chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a new container watcher.
func New(cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	exts := make([]string, 0, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		exts = append(exts, strings.ToLower(e))
	}

	return &Watcher{
		fsWatcher:  fsWatcher,
		paths:      cfg.Paths,
		interval:   cfg.Debounce,
		extensions: exts,
		log:        log.WithComponent("watcher"),
		dirs:       make(map[string]bool),
		files:      make(map[string]bool),
		state:      make(map[string]time.Time),
		seen:       make(map[string][32]byte),
		reports:    make(chan Report, 100),
		errors:     make(chan error, 10),
		done:       make(chan struct{}),
	}, nil
}

// Reports returns the channel of verification reports.
func (w *Watcher) Reports() <-chan Report {
	return w.reports
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching all configured paths. Existing matching files
// are checked once after the first debounce interval.
func (w *Watcher) Start() error {
	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if err := w.fsWatcher.Add(absPath); err != nil {
				return err
			}
			w.dirs[absPath] = true

			entries, err := os.ReadDir(absPath)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					w.trackFile(filepath.Join(absPath, entry.Name()))
				}
			}
		} else {
			// Watch single file (by watching its directory)
			if err := w.fsWatcher.Add(filepath.Dir(absPath)); err != nil {
				return err
			}
			w.files[absPath] = true
			w.trackFile(absPath)
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop gracefully shuts down the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.reports)
	close(w.errors)
	return w.fsWatcher.Close()
}

// wanted reports whether path was named explicitly, or sits in a watched
// directory and passes the extension filter.
func (w *Watcher) wanted(path string) bool {
	if w.files[path] {
		return true
	}
	if !w.dirs[filepath.Dir(path)] {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(path)))
}

// trackFile adds a file to state tracking.
func (w *Watcher) trackFile(path string) {
	if !w.wanted(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.stateMu.Lock()
	w.state[path] = info.ModTime()
	w.stateMu.Unlock()
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.wanted(filepath.Clean(event.Name)) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// debounceLoop checks for stable files and verifies them.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.interval / 2
	if tick <= 0 || tick > time.Second {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.checkStableFiles(now)
		}
	}
}

// stableFile represents a file ready for verification.
type stableFile struct {
	path    string
	lastMod time.Time
}

// checkStableFiles verifies files that haven't changed for the debounce
// interval. The lock is released during file I/O.
func (w *Watcher) checkStableFiles(now time.Time) {
	threshold := now.Add(-w.interval)

	var stableFiles []stableFile
	w.stateMu.RLock()
	for path, lastMod := range w.state {
		if !lastMod.After(threshold) {
			stableFiles = append(stableFiles, stableFile{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.RUnlock()

	if len(stableFiles) == 0 {
		return
	}

	type result struct {
		stableFile
		report Report
		err    error
	}
	results := make([]result, 0, len(stableFiles))
	for _, sf := range stableFiles {
		r, err := VerifyFile(sf.path)
		r.Timestamp = now
		results = append(results, result{stableFile: sf, report: r, err: err})
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	for _, r := range results {
		currentLastMod, exists := w.state[r.path]
		if !exists || currentLastMod != r.lastMod {
			// Removed, or modified during verification: let it stabilize again.
			continue
		}
		if r.err != nil {
			delete(w.state, r.path)
			select {
			case w.errors <- r.err:
			default:
			}
			continue
		}
		if prev, ok := w.seen[r.path]; ok && prev == r.report.Checksum {
			delete(w.state, r.path)
			continue
		}

		select {
		case w.reports <- r.report:
			delete(w.state, r.path)
			w.seen[r.path] = r.report.Checksum
			w.logReport(r.report)
		default:
			// Report channel full, try again later
		}
	}
}

func (w *Watcher) logReport(r Report) {
	if r.Err != nil {
		w.log.Warn("container invalid", "path", r.Path, "size", r.Size, "error", r.Err)
		return
	}
	w.log.Info("container verified",
		"path", r.Path,
		"events", r.Counts.Events,
		"steps", r.Counts.Steps,
		"round_trip", r.RoundTrip,
	)
}

// VerifyFile decodes the container at path and checks that encoding the
// result reproduces it. A malformed container is reported through
// Report.Err; only I/O failures return an error.
func VerifyFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", path, err)
	}
	r := Report{
		Path:     path,
		Size:     int64(len(data)),
		Checksum: sha256.Sum256(data),
	}

	events, err := zev.Decode(data)
	if err != nil {
		r.Err = err
		return r, nil
	}
	r.Counts = zev.CountEvents(events)

	again, err := zev.Encode(events)
	if err != nil {
		r.Err = err
		return r, nil
	}
	r.RoundTrip = bytes.Equal(data, again)
	return r, nil
}

// WatchedPaths returns the list of paths being watched.
func (w *Watcher) WatchedPaths() []string {
	return w.paths
}

// TrackedFiles returns the number of files waiting to be checked.
func (w *Watcher) TrackedFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}
