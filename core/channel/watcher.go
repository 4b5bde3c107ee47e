package channel

import (
	"context"
	"fmt"
	"path/filepath"

	"NawaxRadio/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the directory from path whenever the file changes, until ctx
// is done. The parent directory is watched so editors that replace the file
// by rename are picked up too. A file that fails to parse keeps the previous set.
func (d *Directory) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create channel file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				d.reload(path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("channel file watcher error", logger.ErrorField(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (d *Directory) reload(path string) {
	channels, err := LoadFile(path)
	if err != nil {
		logger.Warn("channel file reload rejected, keeping previous channels",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}
	d.Set(channels)
	keys := make([]string, 0, len(channels))
	for _, ch := range channels {
		keys = append(keys, ch.Key)
	}
	logger.Info("channel directory reloaded",
		logger.String("path", path),
		logger.Int("channels", len(channels)),
		logger.Strings("keys", keys))
}
