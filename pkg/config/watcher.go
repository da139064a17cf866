package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/EvgeniyStrigo/skyscanner-app/pkg/engine"
)

// Watcher reloads a journeys file when it changes on disk.
type Watcher struct {
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a journeys file watcher.
func NewWatcher(logger zerolog.Logger) *Watcher {
	return &Watcher{
		logger: logger.With().Str("component", "journeys-watcher").Logger(),
	}
}

// Watch starts watching the journeys file and calls reloadFn with the newly
// loaded journeys after each change. Events are debounced so editors that
// write in multiple passes trigger a single reload. Watch returns
// immediately; the watcher stops when ctx is done.
func (w *Watcher) Watch(ctx context.Context, path string, reloadFn func([]engine.Journey)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher

	// Watch the directory: editors replace files, which breaks a direct
	// file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go w.processEvents(ctx, path, reloadFn)

	w.logger.Info().Str("path", path).Msg("Started watching journeys file")
	return nil
}

// processEvents debounces file events and triggers reloads.
func (w *Watcher) processEvents(ctx context.Context, path string, reloadFn func([]engine.Journey)) {
	const reloadDelay = 500 * time.Millisecond
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Journeys file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				journeys, err := LoadJourneys(path)
				if err != nil {
					w.logger.Error().Err(err).Msg("Failed to reload journeys")
					return
				}
				w.logger.Info().Int("journeys", len(journeys)).Msg("Journeys reloaded")
				reloadFn(journeys)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
