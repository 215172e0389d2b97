package store

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"chromaflow/internal/logging"
)

const watchDebounce = 50 * time.Millisecond

// Subscribe delivers the collection now and whenever the revision counter
// moves. Changes are noticed through filesystem events on the database
// directory, with polling as a fallback for filesystems that do not report
// them.
func (s *SQLite) Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.WarnWithContext(s.logger, "filesystem watch unavailable; polling only", "watch_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_instances"),
			logging.String(logging.FieldImpact, "remote changes arrive on the poll interval"),
		)
		watcher = nil
	} else if addErr := watcher.Add(filepath.Dir(s.path)); addErr != nil {
		logging.WarnWithContext(s.logger, "watch database directory failed; polling only", "watch_unavailable",
			logging.Error(addErr),
			logging.String("path", filepath.Dir(s.path)),
			logging.String(logging.FieldImpact, "remote changes arrive on the poll interval"),
		)
		_ = watcher.Close()
		watcher = nil
	}

	stop := watch(ctx, func(ctx context.Context) {
		if watcher != nil {
			defer watcher.Close()
		}
		s.watchLoop(ctx, watcher, onChange, onError)
	})
	return stop, nil
}

func (s *SQLite) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange ChangeFunc, onError ErrorFunc) {
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	last := int64(-1)
	check := func() {
		rev, err := s.Revision(ctx)
		if err != nil {
			if ctx.Err() == nil && onError != nil {
				onError(err)
			}
			return
		}
		if rev == last {
			return
		}
		if deliver(ctx, s.ListAll, onChange, onError) {
			last = rev
		}
	}

	check()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Debug("filesystem watch error", logging.Error(err))
		case <-debounce.C:
			check()
		case <-ticker.C:
			check()
		}
	}
}
