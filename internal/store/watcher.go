// ABOUTME: fsnotify watcher that notices writes to the SQLite file from other processes
// ABOUTME: Each write to the database or its WAL triggers a change_log poll

package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollTimeout bounds a single change_log poll.
const pollTimeout = 5 * time.Second

type watcher struct {
	fs     *fsnotify.Watcher
	base   string
	poll   func(ctx context.Context) error
	logger *slog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// newWatcher watches the directory holding dbPath. fsnotify cannot watch a
// file that SQLite replaces or truncates reliably, so the directory is
// watched and events are filtered by name.
func newWatcher(dbPath string, poll func(ctx context.Context) error, logger *slog.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(dbPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &watcher{
		fs:     fsw,
		base:   filepath.Base(dbPath),
		poll:   poll,
		logger: logger,
		done:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
			if err := w.poll(ctx); err != nil && !errors.Is(err, ErrClosed) {
				w.logger.Warn("polling change log failed", "error", err)
			}
			cancel()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// relevant matches writes to the database file and its WAL. The -shm file
// changes on reads too and is ignored.
func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if name == w.base {
		return true
	}
	return strings.HasPrefix(name, w.base) && strings.HasSuffix(name, "-wal")
}

// Close stops the watcher goroutine and waits for it.
func (w *watcher) Close() {
	close(w.done)
	w.fs.Close()
	w.wg.Wait()
}
