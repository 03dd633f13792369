package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Alia5/remapd/internal/log"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDelay is the quiet period after the last file event before a
// watcher fires.
const DefaultWatchDelay = 250 * time.Millisecond

// Watch calls onChange after profile files in the directory change, until
// ctx is done. Bursts of events within delay are coalesced into one call.
func (d *Dir) Watch(ctx context.Context, delay time.Duration, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(d.path); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", d.path, err)
	}

	debounced := debounce.New(delay)
	ext := "." + string(d.format)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				base := filepath.Base(ev.Name)
				if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ext) {
					continue
				}
				logger.Log(ctx, log.LevelTrace, "profile file event", "file", base, "op", ev.Op.String())
				debounced(onChange)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("profile watcher error", "error", err)
			}
		}
	}()
	return nil
}
