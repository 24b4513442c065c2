// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 300 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from the config file in long-running modes.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

// NewHolder creates a new configuration holder with initial config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration and validates it. On failure the previous
// configuration stays active and the error is returned.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher starts watching the config file for changes until ctx is done.
// Without a config file this is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors and config-map mounts replace the file,
	// which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go h.watchLoop(ctx, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, path string) {
	defer h.wg.Done()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		_ = h.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(xglog.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Wait blocks until the watcher goroutine has exited.
func (h *Holder) Wait() {
	h.wg.Wait()
}

// RegisterListener registers a channel to receive config reload notifications.
// Sends are non-blocking; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(cfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_full").
				Msg("config listener channel full, skipping notification")
		}
	}
}

func (h *Holder) logChanges(oldCfg, newCfg AppConfig) {
	ev := h.logger.Info().Str(xglog.FieldEvent, "config.changed")
	changed := false
	if oldCfg.StreamPrefix != newCfg.StreamPrefix {
		ev = ev.Str("prefix_old", oldCfg.StreamPrefix).Str("prefix_new", newCfg.StreamPrefix)
		changed = true
	}
	if oldCfg.FailurePolicy != newCfg.FailurePolicy {
		ev = ev.Str("policy_old", string(oldCfg.FailurePolicy)).Str("policy_new", string(newCfg.FailurePolicy))
		changed = true
	}
	if oldCfg.ReportPartial != newCfg.ReportPartial {
		ev = ev.Bool("report_partial", newCfg.ReportPartial)
		changed = true
	}
	if oldCfg.SessionExpires != newCfg.SessionExpires {
		ev = ev.Dur("session_expires", newCfg.SessionExpires)
		changed = true
	}
	if !changed {
		ev.Discard()
		return
	}
	ev.Msg("configuration changed")
}
