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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mdrpy/internal/storage"
	"mdrpy/internal/transpile"
)

const introMD = "# Intro\nMT - Hello there # greeting\n"
const introRPY = "label Intro:\n    od \"Hello there\" # greeting\n"

func write(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestBuildFileNextToSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "intro.md")
	write(t, src, introMD)

	b := New(transpile.DefaultOptions())
	r, err := b.BuildFile(context.Background(), src)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	if r.Output != filepath.Join(dir, "intro.rpy") || !r.Written || r.Cached {
		t.Fatalf("unexpected result: %+v", r)
	}
	if got := read(t, r.Output); got != introRPY {
		t.Fatalf("output = %q", got)
	}

	// unchanged output is not rewritten
	r2, err := b.BuildFile(context.Background(), src)
	if err != nil || r2.Written {
		t.Fatalf("second build = %+v, %v", r2, err)
	}
}

func TestBuildDirWithCacheAndOutDir(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	write(t, filepath.Join(root, "a.md"), introMD)
	write(t, filepath.Join(root, "chapters", "b.markdown"), "# B\n- ?flag\n- ???\n")
	write(t, filepath.Join(root, ".drafts", "skip.md"), "# Skip\n")
	write(t, filepath.Join(root, "notes.txt"), "not markdown")

	cache, err := storage.OpenCache(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	b := New(transpile.DefaultOptions())
	b.OutDir = out
	b.Cache = cache
	b.Workers = 2

	res, err := b.BuildDir(context.Background(), root)
	if err != nil {
		t.Fatalf("BuildDir: %v", err)
	}
	var rels []string
	for _, r := range res {
		rels = append(rels, r.Rel)
		if r.Cached {
			t.Fatalf("first build must not hit the cache: %+v", r)
		}
	}
	if want := []string{"a.md", "chapters/b.markdown"}; !reflect.DeepEqual(rels, want) {
		t.Fatalf("rels = %v, want %v", rels, want)
	}
	if got := read(t, filepath.Join(out, "a.rpy")); got != introRPY {
		t.Fatalf("a.rpy = %q", got)
	}
	if got := read(t, filepath.Join(out, "chapters", "b.rpy")); got != "label B:\n    if flag:\n    else:\n" {
		t.Fatalf("b.rpy = %q", got)
	}

	// second run: served from cache, output recreated if deleted
	if err := os.Remove(filepath.Join(out, "a.rpy")); err != nil {
		t.Fatal(err)
	}
	res, err = b.BuildDir(context.Background(), root)
	if err != nil {
		t.Fatalf("BuildDir again: %v", err)
	}
	for _, r := range res {
		if !r.Cached {
			t.Fatalf("expected cache hit: %+v", r)
		}
	}
	if !res[0].Written || res[1].Written {
		t.Fatalf("unexpected written flags: %+v", res)
	}
	if got := read(t, filepath.Join(out, "a.rpy")); got != introRPY {
		t.Fatalf("cached a.rpy = %q", got)
	}

	// a changed source misses
	write(t, filepath.Join(root, "a.md"), "# Intro\nME - Bye\n")
	res, err = b.BuildDir(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Cached || read(t, filepath.Join(out, "a.rpy")) != "label Intro:\n    s \"Bye\"\n" {
		t.Fatalf("changed source served stale output: %+v", res[0])
	}
}

func TestBuildDirReportsFailingDocument(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "ok.md"), introMD)
	// a lone list item label that is not inline text cannot be read as a branch
	write(t, filepath.Join(root, "bad.md"), "- ```\n  code\n  ```\n")

	b := New(transpile.DefaultOptions())
	_, err := b.BuildDir(context.Background(), root)
	if !errors.Is(err, transpile.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestBuildRejectsInvalidOptions(t *testing.T) {
	opts := transpile.DefaultOptions()
	opts.Syntax.Jump = opts.Syntax.Call
	b := New(opts)
	if _, err := b.BuildDir(context.Background(), t.TempDir()); !errors.Is(err, transpile.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
}

func TestBuildBackupKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "intro.md")
	write(t, src, introMD)
	write(t, filepath.Join(dir, "intro.rpy"), "# hand edited\n")

	b := New(transpile.DefaultOptions())
	b.Backup = true
	if _, err := b.BuildFile(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	bs, err := storage.Backups(filepath.Join(dir, "intro.rpy"))
	if err != nil || len(bs) != 1 || read(t, bs[0]) != "# hand edited\n" {
		t.Fatalf("backup missing: %v %v", bs, err)
	}
}

func TestBuildDirCanceled(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.md"), introMD)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(transpile.DefaultOptions()).BuildDir(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOptionsHash(t *testing.T) {
	a := transpile.DefaultOptions()
	b := transpile.DefaultOptions()
	if OptionsHash(a) != OptionsHash(b) {
		t.Fatalf("equal options hash differently")
	}
	b.Characters["zz"] = "z"
	if OptionsHash(a) == OptionsHash(b) {
		t.Fatalf("character change not reflected")
	}
	c := transpile.DefaultOptions()
	c.CharacterDelim = ": "
	if OptionsHash(a) == OptionsHash(c) {
		t.Fatalf("delimiter change not reflected")
	}
	if SourceHash([]byte("x")) == SourceHash([]byte("y")) {
		t.Fatalf("source hash collision")
	}
}

func TestWatchRebuildsChangedDocument(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "intro.md")
	write(t, src, introMD)

	old := Debounce
	Debounce = 20 * time.Millisecond
	t.Cleanup(func() { Debounce = old })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Result, 4)
	done := make(chan error, 1)
	b := New(transpile.DefaultOptions())
	go func() {
		done <- b.Watch(ctx, root, func(r Result, err error) {
			if err != nil {
				return
			}
			select {
			case got <- r:
			default:
			}
		})
	}()

	// the watcher registers asynchronously; keep touching until it reports
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case r := <-got:
			if r.Rel != "intro.md" || read(t, r.Output) != introRPY {
				t.Fatalf("unexpected watch result: %+v", r)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			write(t, src, introMD)
		case <-deadline:
			t.Fatalf("no rebuild observed")
		}
	}
}
