// Package walwatch tails the newline-delimited WAL append log a transaction
// manager would write from localstore.WALAppendEvent records (commit.go),
// notifying a subscriber as soon as each line lands on disk. It exists for
// out-of-process consumers (replicas, metrics exporters) that want to learn
// about a flush without holding the transaction's Storage in memory.
package walwatch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/thornfield-data/stagedb/internal/localstore"
	"github.com/thornfield-data/stagedb/pkg/types"
)

// WatcherOps creates a file system watcher. Production code uses realWatcherOps;
// tests inject a fake to avoid depending on a real inotify instance.
type WatcherOps interface {
	NewWatcher() (WatcherInstance, error)
}

// WatcherInstance abstracts fsnotify.Watcher.
type WatcherInstance interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type realWatcherOps struct{}

func (realWatcherOps) NewWatcher() (WatcherInstance, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &realWatcherInstance{w: w}, nil
}

type realWatcherInstance struct {
	w *fsnotify.Watcher
}

func (r *realWatcherInstance) Add(name string) error       { return r.w.Add(name) }
func (r *realWatcherInstance) Close() error                { return r.w.Close() }
func (r *realWatcherInstance) Events() <-chan fsnotify.Event { return r.w.Events }
func (r *realWatcherInstance) Errors() <-chan error         { return r.w.Errors }

// Watcher tails a WAL append log file, emitting one localstore.WALAppendEvent
// per complete newline-delimited JSON record as it is written.
type Watcher struct {
	watcher    WatcherInstance
	file       *os.File
	lastOffset atomic.Int64
	onEvent    func(localstore.WALAppendEvent)
	onError    func(error)
}

// New opens path (which must already exist — the transaction manager creates
// it on first flush) and starts tailing it from the current end of file.
// watcherOps may be nil to use the real fsnotify implementation.
func New(path string, onEvent func(localstore.WALAppendEvent), onError func(error), watcherOps WatcherOps) (*Watcher, error) {
	if watcherOps == nil {
		watcherOps = realWatcherOps{}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewInternalInvariantError(fmt.Sprintf("wal file %s must exist before tailing", path), err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, types.NewInternalInvariantError("failed to stat wal file", err)
	}

	fsw, err := watcherOps.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, types.NewInternalInvariantError("failed to create wal watcher", err)
	}
	if err := fsw.Add(path); err != nil {
		_ = f.Close()
		_ = fsw.Close()
		return nil, types.NewInternalInvariantError(fmt.Sprintf("failed to watch %s", path), err)
	}

	w := &Watcher{watcher: fsw, file: f, onEvent: onEvent, onError: onError}
	w.lastOffset.Store(info.Size())

	go w.watchLoop()
	return w, nil
}

// Close stops tailing and releases the watcher and file handle.
func (w *Watcher) Close() error {
	if err := w.watcher.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

func (w *Watcher) watchLoop() {
	// Kickstart: pick up anything written between Stat and Add.
	if err := w.drain(); err != nil {
		w.onError(err)
		return
	}

	for {
		select {
		case event, ok := <-w.watcher.Events():
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) {
				if err := w.drain(); err != nil {
					w.onError(err)
					return
				}
			}
		case err, ok := <-w.watcher.Errors():
			if !ok {
				return
			}
			w.onError(types.NewInternalInvariantError("wal watcher error", err))
			return
		}
	}
}

// drain reads every complete newline-terminated record appended since
// lastOffset and dispatches it, leaving a trailing partial line for the next
// write event to complete.
func (w *Watcher) drain() error {
	if _, err := w.file.Seek(w.lastOffset.Load(), 0); err != nil {
		return types.NewInternalInvariantError("failed to seek wal file", err)
	}

	reader := bufio.NewReader(w.file)
	offset := w.lastOffset.Load()
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			offset += int64(len(line))
			var ev localstore.WALAppendEvent
			if jsonErr := json.Unmarshal(line[:len(line)-1], &ev); jsonErr != nil {
				return types.NewInternalInvariantError("malformed wal record", jsonErr)
			}
			w.onEvent(ev)
			continue
		}
		// Partial or empty trailing line: stop here, don't advance offset.
		break
	}
	w.lastOffset.Store(offset)
	return nil
}
