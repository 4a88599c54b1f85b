package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay gives editors that write-then-rename time to finish before
// the file is re-read.
const settleDelay = 100 * time.Millisecond

// Watcher re-reads the config file whenever it changes on disk and
// publishes the parsed result. Updates carries at most the latest file;
// a slow consumer sees only the newest state.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	updates chan *File
	errs    chan error
}

// NewWatcher creates a watcher for the given config path. The parent
// directory is watched, not the file itself, so atomic rename-into-place
// rewrites are observed.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		fsw:     fsw,
		updates: make(chan *File, 1),
		errs:    make(chan error, 8),
	}, nil
}

// Updates delivers the latest successfully parsed file.
func (w *Watcher) Updates() <-chan *File { return w.updates }

// Errors delivers reload failures. The previous config stays in effect
// when a reload fails.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close stops the underlying fs watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			time.Sleep(settleDelay)
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	f, err := Load(w.path)
	if err != nil {
		w.report(err)
		return
	}

	// Replace any undelivered update with the newer one.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- f
}

func (w *Watcher) report(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
