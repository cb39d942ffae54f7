package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called after every reload attempt triggered by Watch.
// err is nil when the new content was applied.
type ReloadFunc func(p *Properties, err error)

type watchOptions struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

// WithDebounce coalesces bursts of file events; 100ms by default.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(l *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Watch reloads p whenever its file changes and reports each attempt to
// onReload. It blocks until ctx is done and then returns nil; setup
// failures are returned immediately.
//
// The directory is watched rather than the file, because editors and
// config-map mounts replace files by rename.
func Watch(ctx context.Context, p *Properties, onReload ReloadFunc, opts ...WatchOption) error {
	if p.path == "" {
		return ErrNotReloadable
	}
	o := &watchOptions{debounce: 100 * time.Millisecond, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := w.Add(dir); err != nil {
		return errors.Join(fmt.Errorf("config: watch %s: %w", dir, err), w.Close())
	}
	defer func() { _ = w.Close() }()

	name := filepath.Base(p.path)
	log := o.logger.With(slog.String("path", p.path))
	log.Debug("config watch started")

	// A nil channel blocks forever until the first relevant event arms it.
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("config watch stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(o.debounce)
			} else {
				timer.Reset(o.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := p.Reload()
			if err != nil {
				log.Warn("config reload failed", slog.Any("error", err))
			} else {
				log.Info("config reloaded")
			}
			if onReload != nil {
				onReload(p, err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watch error", slog.Any("error", err))
			if onReload != nil {
				onReload(p, fmt.Errorf("config: watch: %w", err))
			}
		}
	}
}
