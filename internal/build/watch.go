/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package build

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long Watch waits for a burst of writes to settle.
var Debounce = 150 * time.Millisecond

// Watch rebuilds documents below root whenever they change until ctx is done.
// Each rebuild is reported through report; build errors do not stop watching.
func (b *Builder) Watch(ctx context.Context, root string, report func(Result, error)) error {
	l := b.logger("watch").With(slog.String("root", root))
	tr, optHash, err := b.prepare()
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := addTree(w, root); err != nil {
		return err
	}
	l.Info("watching")

	pending := map[string]struct{}{}
	timer := time.NewTimer(Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", slog.Any("err", err))
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if !hidden(filepath.Base(ev.Name)) {
						if err := addTree(w, ev.Name); err != nil {
							l.Warn("watch new dir failed", slog.String("dir", ev.Name), slog.Any("err", err))
						}
					}
					continue
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !IsSource(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(Debounce)
		case <-timer.C:
			for src := range pending {
				delete(pending, src)
				if _, err := os.Stat(src); err != nil {
					continue // renamed away or deleted
				}
				r, err := b.buildOne(ctx, tr, optHash, root, src)
				if report != nil {
					report(r, err)
				}
			}
		}
	}
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
