// Package inbox watches the archive drop folder and triggers sync batches
// when note containers appear or change.
package inbox

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on dir and processes change events
// until ctx is cancelled. Bursts of events (a device dropping many
// archives at once) are debounced into a single onBatch call.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, onBatch func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("inbox watcher: started", slog.String("dir", dir))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox watcher: stopped")
			return nil

		case <-fire:
			onBatch()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".note") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("inbox watcher: archive changed",
				slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("inbox watcher: error", slog.String("error", err.Error()))
		}
	}
}
