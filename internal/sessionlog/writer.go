package sessionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"clnpd/internal/logging"
)

// Writer appends session records to a JSONL file. Rotation is owned by
// an external consumer: when the file is renamed or removed out from
// under us, the writer reopens a fresh file at the same path.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWriter opens (creating if needed) the JSONL file at path and
// starts watching it for external rotation.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	w := &Writer{path: path, f: f, done: make(chan struct{})}

	watcher, err := fsnotify.NewWatcher()
	if err == nil && watcher.Add(filepath.Dir(path)) == nil {
		w.watcher = watcher
		go w.watchLoop()
	} else if watcher != nil {
		watcher.Close()
	}
	return w, nil
}

// watchLoop reopens the log after an external rotate.
func (w *Writer) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.reopen()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Writer) reopen() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f != nil {
		w.f.Close()
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logging.Warn("session log reopen failed", "path", w.path, "err", err)
		w.f = nil
		return
	}
	logging.Info("session log reopened after rotation", "path", w.path)
	w.f = f
}

// Append writes one record as a JSON line. Errors are returned for the
// caller to log; they must never fail the verification response.
func (w *Writer) Append(rec *Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return fmt.Errorf("session log unavailable")
	}
	if _, err := w.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append session record: %w", err)
	}
	return nil
}

// Path returns the log file location.
func (w *Writer) Path() string {
	return w.path
}

// Close stops the watcher and closes the file.
func (w *Writer) Close() error {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
