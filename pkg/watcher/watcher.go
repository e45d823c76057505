// Package watcher reports changes to the local metadata file.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/service-catalog/pkg/logging"
)

// ChangeType is the kind of file system change seen
type ChangeType int

const (
	ChangeTypeWritten ChangeType = iota // created or written
	ChangeTypeRemoved                   // removed or renamed away
)

func (t ChangeType) String() string {
	if t == ChangeTypeRemoved {
		return "removed"
	}
	return "written"
}

// ChangeEvent is a batch of changes of one type
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches a set of files. fsnotify watches their parent
// directories so editors that replace files on save are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	events  chan ChangeEvent
	log     *slog.Logger
}

// NewFileWatcher creates a watcher for the given files.
func NewFileWatcher(files ...string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: w,
		files:   make(map[string]bool, len(files)),
		events:  make(chan ChangeEvent, 16),
		log:     logging.New("watcher"),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// Start processes file system events until ctx is done. The Events channel
// is closed afterwards.
func (fw *FileWatcher) Start(ctx context.Context) {
	for f := range fw.files {
		fw.log.Info("watching metadata file", "path", f)
	}
	go fw.processEvents(ctx)
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := map[ChangeType][]string{}
	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeRemoved, ChangeTypeWritten} {
			if paths := pending[t]; len(paths) > 0 {
				select {
				case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
				}
			}
		}
		pending = map[ChangeType][]string{}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !fw.files[path] {
				continue
			}

			changeType, relevant := classify(event.Op)
			if !relevant {
				continue
			}
			fw.log.Debug("file changed", "path", path, "op", event.Op.String())
			pending[changeType] = appendOnce(pending[changeType], path)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Error("watcher error", "error", err)
		}
	}
}

func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeTypeRemoved, true
	case op.Has(fsnotify.Write), op.Has(fsnotify.Create):
		return ChangeTypeWritten, true
	}
	return 0, false
}

func appendOnce(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// Events returns the channel of change batches.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
