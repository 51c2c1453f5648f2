package walwatch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thornfield-data/stagedb/internal/localstore"
)

// fakeWatcherOps lets tests drive the watch loop without a real inotify
// instance.
type fakeWatcherOps struct {
	instance *fakeWatcherInstance
}

func (f *fakeWatcherOps) NewWatcher() (WatcherInstance, error) {
	return f.instance, nil
}

type fakeWatcherInstance struct {
	events chan fsnotify.Event
	errs   chan error
	added  string
}

func newFakeWatcherInstance() *fakeWatcherInstance {
	return &fakeWatcherInstance{events: make(chan fsnotify.Event, 8), errs: make(chan error, 1)}
}

func (f *fakeWatcherInstance) Add(name string) error         { f.added = name; return nil }
func (f *fakeWatcherInstance) Close() error                  { close(f.events); return nil }
func (f *fakeWatcherInstance) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcherInstance) Errors() <-chan error          { return f.errs }

func TestWatcher_IgnoresContentWrittenBeforeOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	ev := localstore.WALAppendEvent{TableName: "t", RowStart: 0, AppendedRows: 3}
	line, _ := json.Marshal(ev)
	if err := os.WriteFile(path, append(line, '\n'), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	received := make(chan localstore.WALAppendEvent, 1)
	fake := &fakeWatcherOps{instance: newFakeWatcherInstance()}

	w, err := New(path, func(e localstore.WALAppendEvent) { received <- e }, func(error) {}, fake)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	select {
	case got := <-received:
		t.Fatalf("did not expect pre-existing content to be replayed, got %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_DispatchesOnWriteEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	received := make(chan localstore.WALAppendEvent, 1)
	instance := newFakeWatcherInstance()
	fake := &fakeWatcherOps{instance: instance}

	w, err := New(path, func(e localstore.WALAppendEvent) { received <- e }, func(error) {}, fake)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	ev := localstore.WALAppendEvent{TableName: "t2", RowStart: 5, AppendedRows: 1}
	line, _ := json.Marshal(ev)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	instance.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}

	select {
	case got := <-received:
		if got.TableName != "t2" {
			t.Fatalf("got %+v, want table=t2", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the write-triggered event")
	}
}
