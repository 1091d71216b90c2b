package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

const reloadDebounce = 500 * time.Millisecond

// Watch reloads the corpus whenever a skill directory changes, debouncing
// bursts of filesystem events. Skill files live in subdirectories
// (<dir>/<skill>/SKILL.md) and fsnotify is not recursive, so every
// subdirectory is watched individually and directories created while
// watching are added as they appear. A failed reload keeps the previous
// snapshot published and is logged; queries are never left without a
// corpus. Watch blocks until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create filesystem watcher")
	}
	defer watcher.Close()

	watching := 0
	for _, dir := range e.skillDirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watchRecursive(watcher, dir); err != nil {
			return err
		}
		watching++
	}
	if watching == 0 {
		return errors.New("no existing skill directories to watch")
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			logger.G(ctx).WithField("event", event.String()).Debug("Skill directory changed")

			// A new skill directory needs its own watch before edits
			// inside it can be seen
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchRecursive(watcher, event.Name); err != nil {
						logger.G(ctx).WithError(err).Warn("Failed to watch new skill directory")
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("Filesystem watcher error")

		case <-timerC:
			timer = nil
			timerC = nil
			if _, err := e.Load(ctx); err != nil {
				logger.G(ctx).WithError(err).Error("Corpus reload failed, keeping previous snapshot")
			}
		}
	}
}

// watchRecursive adds root and every directory beneath it to the watcher
func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}
