package serve

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	intconfig "github.com/autocitation/autocite/internal/config"
)

// debounceDelay coalesces bursts of file events into one reload.
const debounceDelay = 200 * time.Millisecond

// change classifies a file event.
type change int

const (
	changeNone change = iota
	changeRIS
	changeConfig
)

func classify(ev fsnotify.Event) change {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return changeNone
	}
	base := filepath.Base(ev.Name)
	switch {
	case base == intconfig.ConfigFileName || base == intconfig.ConfigFileNameAlt:
		return changeConfig
	case strings.EqualFold(filepath.Ext(base), ".ris"):
		return changeRIS
	default:
		return changeNone
	}
}

// watchFiles reloads the project when RIS files or autocite.yaml change.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, s.cfg.Folder, s.cfg.LoadOptions.Recursive); err != nil {
		s.logger.Error("failed to watch folder", "folder", s.cfg.Folder, "error", err)
	}
	if s.cfg.ProjectRoot != "" {
		if err := watcher.Add(s.cfg.ProjectRoot); err != nil {
			s.logger.Error("failed to watch project root", "dir", s.cfg.ProjectRoot, "error", err)
		}
	}

	var (
		timer   *time.Timer
		pending change
		fire    = make(chan change, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c := classify(ev)
			if ev.Op&fsnotify.Create != 0 && s.cfg.LoadOptions.Recursive {
				if isDir(ev.Name) {
					_ = watchDirRecursive(watcher, ev.Name, true)
					c = changeRIS
				}
			}
			if c == changeNone {
				continue
			}
			// A config change also reloads the records.
			if c > pending {
				pending = c
			}
			if timer != nil {
				timer.Stop()
			}
			next := pending
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case fire <- next:
				default:
				}
			})

		case c := <-fire:
			pending = changeNone
			var err error
			if c == changeConfig {
				s.logger.Debug("config changed, reloading")
				err = s.ReloadConfig(ctx)
			} else {
				s.logger.Debug("RIS files changed, reloading")
				err = s.Reload(ctx, "ris")
			}
			if err != nil {
				s.logger.Error("reload failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds dir and, when recursive, its subdirectories.
// Hidden directories are skipped.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string, recursive bool) error {
	if !recursive {
		return watcher.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
