package calsync

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher calls onChange when a watched feed file is written, created or
// replaced. Bursts of events for one file collapse into a single call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(string)
	debounce time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	files  map[string]struct{}
	dirs   map[string]int
	timers map[string]*time.Timer
	done   chan struct{}
	closed bool
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithWatcherLogger(l zerolog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.log = l
	}
}

func NewWatcher(onChange func(string), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	w := &Watcher{
		watcher:  fsw,
		onChange: onChange,
		debounce: defaultDebounce,
		log:      zerolog.Nop(),
		files:    make(map[string]struct{}),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With().Str("component", "watcher").Logger()

	go w.watch()
	return w, nil
}

// Add starts watching path. The parent directory is watched so that editors
// replacing the file by rename are noticed.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[abs]; ok {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
	}
	w.dirs[dir]++
	w.files[abs] = struct{}{}
	w.log.Debug().Str("path", abs).Msg("watching")
	return nil
}

func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[abs]; !ok {
		return nil
	}
	delete(w.files, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	return w.watcher.Remove(dir)
}

func (w *Watcher) watch() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(filepath.Clean(ev.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[name]; !ok || w.closed {
		return
	}
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, name)
		_, watching := w.files[name]
		closed := w.closed
		w.mu.Unlock()

		if watching && !closed && w.onChange != nil {
			w.log.Debug().Str("path", name).Msg("changed")
			w.onChange(name)
		}
	})
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
