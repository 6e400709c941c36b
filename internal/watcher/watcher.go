package watcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"copier/internal/logger"
	"copier/internal/model"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher adapts fsnotify to a stream of model.FileEvent. Only directories
// are watched; the event's Dir is the parent of the reported path.
type Watcher struct {
	fw      *fsnotify.Watcher
	eventCh chan model.FileEvent
	doneCh  chan struct{}
	exitCh  chan struct{}
	once    sync.Once

	mu   sync.Mutex
	dirs map[string]struct{}
}

func New(bufferSize int) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fw:      fw,
		eventCh: make(chan model.FileEvent, bufferSize),
		doneCh:  make(chan struct{}),
		exitCh:  make(chan struct{}),
		dirs:    make(map[string]struct{}),
	}

	go w.run()
	return w, nil
}

func (w *Watcher) Add(dir string) error {
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.mu.Lock()
	w.dirs[filepath.Clean(dir)] = struct{}{}
	w.mu.Unlock()

	logger.Log.Debug("watching directory",
		zap.String("dir", dir))
	return nil
}

func (w *Watcher) Events() <-chan model.FileEvent {
	return w.eventCh
}

// Close releases every watch and ends the event stream.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.doneCh)
		err = w.fw.Close()
		<-w.exitCh
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.exitCh)
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			logger.Log.Debug("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if fsEvent.Has(fsnotify.Remove) && w.forget(fsEvent.Name) {
				// the kernel drops the watch along with the directory
				logger.Log.Warn("watched directory removed, its files are no longer mirrored until restart",
					zap.String("dir", fsEvent.Name))
				continue
			}

			kind := toEventKind(fsEvent.Op)
			if kind == 0 {
				continue
			}

			w.emit(model.FileEvent{
				Dir:       filepath.Dir(fsEvent.Name),
				Name:      filepath.Base(fsEvent.Name),
				Kind:      kind,
				Timestamp: time.Now(),
			})

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Log.Warn("event queue overflowed, forcing resync")
				w.emit(model.FileEvent{
					Kind:      model.KindOverflow,
					Timestamp: time.Now(),
				})
				continue
			}

			logger.Log.Error("watcher error",
				zap.Error(err))
		}
	}
}

// forget reports whether path was a watched directory and stops tracking it.
func (w *Watcher) forget(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	path = filepath.Clean(path)
	if _, ok := w.dirs[path]; !ok {
		return false
	}
	delete(w.dirs, path)
	return true
}

// emit blocks until the consumer takes the event; the kernel queue absorbs the
// backlog and reports an overflow if it fills up.
func (w *Watcher) emit(event model.FileEvent) {
	select {
	case w.eventCh <- event:
	case <-w.doneCh:
	}
}

// toEventKind keeps only creation, deletion and modification. A rename onto
// a watched name is reported by fsnotify as Create.
func toEventKind(op fsnotify.Op) model.EventKind {
	var kind model.EventKind
	if op.Has(fsnotify.Create) {
		kind |= model.KindCreate
	}
	if op.Has(fsnotify.Write) {
		kind |= model.KindModify
	}
	if op.Has(fsnotify.Remove) {
		kind |= model.KindDelete
	}
	return kind
}
