// Package watcher re-runs inference when the input files change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/crystal-bonds/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeCrystal ChangeType = iota
	ChangeTypeRadii
	ChangeTypeRules
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeCrystal:
		return "crystal"
	case ChangeTypeRadii:
		return "radii"
	case ChangeTypeRules:
		return "rules"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches the input files of an analysis. The parent
// directories are watched rather than the files so that editors replacing
// a file by rename are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // absolute path -> type
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for the given files. Empty paths are
// skipped.
func NewFileWatcher(files map[ChangeType]string) (*FileWatcher, error) {
	abs := make(map[string]ChangeType)
	for t, p := range files {
		if p == "" {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		abs[filepath.Clean(a)] = t
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher: w,
		files:   abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Dirs returns the directories that Start watches, sorted.
func (fw *FileWatcher) Dirs() []string {
	seen := map[string]bool{}
	var dirs []string
	for p := range fw.files {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Start begins watching for file changes. The events channel is closed
// when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	for _, dir := range fw.Dirs() {
		if err := fw.watcher.Add(dir); err != nil {
			_ = fw.watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Debug("watching directory", "path", dir)
	}
	logging.Info("started watching input files", "files", len(fw.files))

	go fw.processEvents(ctx)
	return nil
}

// Classify maps an event path to the input it belongs to.
func (fw *FileWatcher) Classify(name string) (ChangeType, bool) {
	a, err := filepath.Abs(name)
	if err != nil {
		return 0, false
	}
	t, ok := fw.files[filepath.Clean(a)]
	return t, ok
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer func() { _ = fw.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			t, ok := fw.Classify(event.Name)
			if !ok {
				continue
			}
			logging.Trace("input changed", "type", t.String(), "path", event.Name, "op", event.Op.String())
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
