package convert

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/logger"
)

// Watch reruns job every time its input is written or recreated, until ctx
// is done. The directory is watched so editors that replace files are
// handled. done receives the outcome of every run.
func Watch(ctx context.Context, job Job, done func(out string, err error)) error {
	log := logger.Named("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrapf(err, "Failed to create watcher")
	}
	defer watcher.Close()

	in, err := filepath.Abs(job.In)
	if err != nil {
		return errors.Wrapf(err, "Failed to resolve %q", job.In)
	}
	if err := watcher.Add(filepath.Dir(in)); err != nil {
		return errors.Wrapf(err, "Failed to watch %q", filepath.Dir(in))
	}
	log.Info("Watching", zap.String("path", in))

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != in || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			out, err := job.Run()
			if err != nil {
				log.Warn("Conversion failed", zap.String("path", in), zap.Error(err))
			}
			if done != nil {
				done(out, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", zap.Error(err))
		}
	}
}
