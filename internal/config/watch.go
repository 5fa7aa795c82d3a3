/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-Loads dir's config files on every write/create/rename event
// and hands the result to onReload, the same single fsnotify.Watcher-plus-
// event-loop-goroutine shape cc-backend's internal/util.AddListener uses,
// narrowed to one watched directory instead of a package-wide listener
// registry (rkv only ever has one config directory per process).
type Watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// WatchDir starts watching dir for changes to default.toml/custom.toml.
// A parse failure is logged and dropped: onReload is only invoked with a
// config that loaded successfully, so a broken edit never displaces the
// config already in effect.
func WatchDir(dir string, flags Flags, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	watcher := &Watcher{w: fw, done: make(chan struct{})}
	go watcher.loop(dir, flags, onReload)
	return watcher, nil
}

func (watcher *Watcher) loop(dir string, flags Flags, onReload func(*Config)) {
	defer close(watcher.done)
	for {
		select {
		case event, ok := <-watcher.w.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(dir, flags)
			if err != nil {
				zap.L().Warn("config: reload failed, keeping previous config",
					zap.String("path", event.Name), zap.Error(err))
				continue
			}
			onReload(cfg)
		case err, ok := <-watcher.w.Errors:
			if !ok {
				return
			}
			zap.L().Warn("config: watcher error", zap.Error(err))
		}
	}
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "default.toml" || base == "custom.toml"
}

// Close stops the watcher and waits for its event loop to exit.
func (watcher *Watcher) Close() error {
	err := watcher.w.Close()
	<-watcher.done
	return err
}
