// Package watcher adapts fsnotify to the pipeline's event model.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"medio/src/media"
)

// Source monitors the source directory and pushes raw change events to a
// handler. Classification and queueing happen downstream; this adapter
// never touches file contents.
type Source struct {
	watcher  *fsnotify.Watcher
	handle   func(media.Event)
	running  bool
	stopChan chan struct{}
}

// NewSource creates a new file system event source.
func NewSource(handle func(media.Event)) (*Source, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Source{
		watcher:  watcher,
		handle:   handle,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching the given path for file changes.
func (s *Source) Start(ctx context.Context, watchPath string) error {
	slog.Info("Starting file watcher", "path", watchPath)

	if err := s.watcher.Add(watchPath); err != nil {
		return err
	}

	s.running = true
	go s.watchLoop(ctx)

	slog.Info("File watcher started successfully")
	return nil
}

// Stop stops the file watcher.
func (s *Source) Stop() {
	if !s.running {
		return
	}

	slog.Info("Stopping file watcher")
	s.running = false
	close(s.stopChan)
	s.watcher.Close()
}

// watchLoop forwards file system events until stopped.
func (s *Source) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-s.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent translates an fsnotify op into a pipeline event. On inotify
// platforms a move into the directory surfaces as Create, so every new
// path goes through the stability detector; the detector's quiet period
// is the cost of not being able to tell the two apart here.
func (s *Source) handleEvent(event fsnotify.Event) {
	var kind media.EventKind
	switch {
	case event.Op.Has(fsnotify.Create):
		kind = media.Created
	case event.Op.Has(fsnotify.Write):
		kind = media.Written
	default:
		return
	}

	s.handle(media.Event{
		Path: event.Name,
		Kind: kind,
		Time: time.Now(),
	})
}
