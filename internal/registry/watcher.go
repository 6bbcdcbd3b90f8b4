package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever definition files change, until ctx is
// cancelled. Reload errors are logged and the previous definition set is
// kept; a watcher setup failure is returned.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", r.dir, err)
	}

	go func() {
		defer watcher.Close()

		// Editors fire bursts of events per save; coalesce them.
		var pending bool
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".toml") {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !pending {
					pending = true
					debounce.Reset(200 * time.Millisecond)
				}
			case <-debounce.C:
				pending = false
				if err := r.Load(); err != nil {
					r.log.Warn("reloading flow definitions failed", "err", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn("flow watcher error", "err", err)
			}
		}
	}()
	return nil
}
