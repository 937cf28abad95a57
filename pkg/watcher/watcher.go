// Package watcher adapts fsnotify to the abstract event stream the
// engine consumes. Watches are non-recursive: a watched directory
// reports events for itself and its direct children only.
package watcher

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Gavin1937/aggregate-linker/pkg/errors"
	"github.com/Gavin1937/aggregate-linker/pkg/logging"
	"github.com/Gavin1937/aggregate-linker/pkg/types"
)

// Watcher implements types.EventSource on top of fsnotify.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan types.Event
	errs   chan error
	logger zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

var _ types.EventSource = (*Watcher)(nil)

// New creates a started Watcher with no directories under watch yet.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWatchInit, "cannot initialize filesystem notifications")
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan types.Event, 64),
		errs:   make(chan error, 8),
		logger: logging.GetLogger("watcher"),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add starts watching dir.
func (w *Watcher) Add(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return errors.Wrapf(err, errors.ErrWatchAdd, "cannot watch %s", dir)
	}
	w.logger.Debug().Str("dir", dir).Msg("watch established")
	return nil
}

// Remove stops watching dir. fsnotify drops watches on deleted
// directories by itself, so a missing watch is not an error.
func (w *Watcher) Remove(dir string) error {
	if err := w.fsw.Remove(dir); err != nil {
		w.logger.Debug().Err(err).Str("dir", dir).Msg("watch removal (already gone)")
	}
	return nil
}

// Events returns the translated event stream.
func (w *Watcher) Events() <-chan types.Event {
	return w.events
}

// Errors returns the stream of watch-mechanism errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close shuts the watcher down and closes both channels.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		<-w.done
		close(w.events)
		close(w.errs)
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if out, ok := translate(ev); ok {
				select {
				case w.events <- out:
				default:
					w.logger.Warn().Str("path", ev.Name).Msg("event buffer full, dropping event")
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// translate maps an fsnotify event onto the engine's event model.
// Chmod-only events carry no reconciliation signal and are dropped.
func translate(ev fsnotify.Event) (types.Event, bool) {
	out := types.Event{Path: ev.Name}

	switch {
	case ev.Op.Has(fsnotify.Create):
		out.Type = types.EventCreated
	case ev.Op.Has(fsnotify.Remove):
		out.Type = types.EventDeleted
	case ev.Op.Has(fsnotify.Rename):
		out.Type = types.EventRenamed
	case ev.Op.Has(fsnotify.Write):
		out.Type = types.EventModified
	default:
		return types.Event{}, false
	}

	// Deleted and renamed-away paths cannot be inspected anymore;
	// IsDir stays false and the engine classifies them by path.
	if out.Type == types.EventCreated || out.Type == types.EventModified {
		if info, err := os.Lstat(ev.Name); err == nil {
			out.IsDir = info.IsDir()
		}
	}

	return out, true
}
