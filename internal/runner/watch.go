package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last source event before
// checking.
const DefaultDebounce = 500 * time.Millisecond

// Watch runs CheckAll once and then again whenever a target source is written,
// created or renamed, until ctx is done. Directories are watched rather than
// files so editors that save by renaming are noticed. Failed checks are logged
// and retried on the next change.
func (r *Runner) Watch(ctx context.Context, targets []Target, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create fsnotify: %w", err)
	}
	defer fsw.Close()

	tracked := make(map[string]bool, len(targets))
	dirs := make(map[string]bool)
	for _, t := range targets {
		path := filepath.Clean(t.Source)
		tracked[path] = true
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	r.check(ctx, targets)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !tracked[filepath.Clean(event.Name)] {
				continue
			}
			r.logger.Debug("schema source changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher error", "error", err)

		case <-timer.C:
			r.check(ctx, targets)
		}
	}
}

func (r *Runner) check(ctx context.Context, targets []Target) {
	if _, err := r.CheckAll(ctx, targets, false); err != nil {
		r.logger.Error("schema check failed", "error", err)
	}
}
