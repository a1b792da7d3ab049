package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher drops the store cache when the catalog file changes on disk, so
// edits made outside this process show up on the next Load.
type Watcher struct {
	store   *FileStore
	watcher *fsnotify.Watcher
	log     *zap.Logger
	done    chan struct{}
}

// NewWatcher watches the directory holding the store's file. Saves replace the
// file by rename, which a watch on the file itself would not survive.
func NewWatcher(store *FileStore, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(store.Path())
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		store:   store,
		watcher: fw,
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// Run processes file events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	target := filepath.Clean(w.store.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				w.store.Invalidate()
				w.log.Debug("Catalog file changed, cache dropped",
					zap.String("path", event.Name),
					zap.String("op", event.Op.String()),
				)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Catalog watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher. Run returns once the event channels drain.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
