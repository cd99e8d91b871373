package launcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
)

// responseReadAttempts bounds reads of a response file that exists but is
// still held open by the agent (sharing violations on Windows).
const responseReadAttempts = 10

// WaitForFile blocks until path exists or ctx is done. The parent directory is
// watched with fsnotify and polled every pollInterval, so the wait also works
// where file events are unavailable.
func WaitForFile(ctx context.Context, path string, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	path = filepath.Clean(path)
	log := logger.G(ctx).WithField("path", path)

	var events chan fsnotify.Event
	var watchErrors chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Debug("File watcher unavailable, polling only")
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			log.WithError(err).Debug("Failed to watch response directory, polling only")
		} else {
			events = watcher.Events
			watchErrors = watcher.Errors
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if fileExists(path) {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "stopped waiting for %s", path)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) == path {
				log.WithField("op", event.Op.String()).Debug("Response file event")
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			log.WithError(err).Debug("File watcher error")
		case <-ticker.C:
		}
	}
}

// ReadResponse reads path, retrying failed reads up to 10 times
func ReadResponse(ctx context.Context, path string, retryDelay time.Duration) (string, error) {
	var content []byte
	err := retry.Do(
		func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			content = data
			return nil
		},
		retry.Attempts(responseReadAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("Retrying response read")
		}),
	)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read agent response %s", path)
	}
	return string(content), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
