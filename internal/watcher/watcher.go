// Package watcher watches manifest directories and reports debounced batches
// of changed paths.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/registrar/internal/log"
)

// Watcher monitors a directory for manifest changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       Config
	onChange  chan []string
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Dir string
	// Recursive also watches subdirectories, including ones created later.
	Recursive bool
	// Extensions limits events to files with these suffixes. Empty means all files.
	Extensions  []string
	DebounceDur time.Duration
}

// DefaultConfig returns defaults for watching yaml manifests in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Extensions:  []string{".yaml", ".yml"},
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a new directory watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		cfg:       cfg,
		onChange:  make(chan []string, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. The returned channel receives the sorted set of paths
// that changed during each quiet period.
func (w *Watcher) Start() (<-chan []string, error) {
	if err := w.add(w.cfg.Dir); err != nil {
		return nil, err
	}

	go w.loop()

	return w.onChange, nil
}

func (w *Watcher) add(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	if !w.cfg.Recursive {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.add(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending = make(map[string]struct{})
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			w.trackDir(event)
			if !w.isRelevantEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.cfg.DebounceDur)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.cfg.DebounceDur)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)

			select {
			case w.onChange <- paths:
				pending = make(map[string]struct{})
			default:
				// Receiver is behind; keep the paths and try again later.
				timer.Reset(w.cfg.DebounceDur)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "Watcher error", "dir", w.cfg.Dir, "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// trackDir starts watching directories created under a recursive watch.
func (w *Watcher) trackDir(event fsnotify.Event) {
	if !w.cfg.Recursive || !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.add(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn(log.CatWatcher, "Cannot watch new directory", "dir", event.Name, "error", err)
	}
}

// isRelevantEvent checks if the event should be reported.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if len(w.cfg.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if slices.Contains(w.cfg.Extensions, ext) {
		return true
	}
	// Removing a watched subdirectory removes the manifests inside it.
	return w.cfg.Recursive && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && ext == ""
}
