package video

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultSettle is how long a new file must go without writes before it is
// processed.
const DefaultSettle = 2 * time.Second

// Watch processes the videos already in job.InputDir and then every video
// that appears there, until ctx is done. current is called before each file,
// so a reloaded configuration takes effect from the next file on.
func Watch(ctx context.Context, current func() *Pipeline, job BatchJob, settle time.Duration) (*BatchReport, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	defer watcher.Close()
	if err := watcher.Add(job.InputDir); err != nil {
		return nil, errors.Wrapf(err, "watching %v", job.InputDir)
	}

	br, err := ForEachVideo(ctx, current(), job)
	if err != nil {
		return br, err
	}
	log.Infof("Watching %v for new videos", job.InputDir)

	// pending holds the time of the last write to each new file.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return br, nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return br, nil
			}
			name := filepath.Base(ev.Name)
			if !job.IsVideo(name) || job.IsOutput(name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[name] = time.Now()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return br, nil
			}
			log.Errorf("Error watching %v: %v", job.InputDir, err)
		case now := <-ticker.C:
			for _, name := range settled(pending, now, settle) {
				delete(pending, name)
				p := *current()
				p.BatchID = br.ID
				br.runFile(ctx, &p, &job, name)
				if ctx.Err() != nil {
					return br, nil
				}
			}
		}
	}
}

// settled returns the names that have not been written to for settle.
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var names []string
	for name, t := range pending {
		if now.Sub(t) >= settle {
			names = append(names, name)
		}
	}
	return names
}
