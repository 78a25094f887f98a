/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package build turns Markdown sources on disk into .rpy scripts. Documents
// are independent, so directories are built in parallel; unchanged documents
// are served from the build cache.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	applog "mdrpy/internal/log"
	"mdrpy/internal/markdown"
	"mdrpy/internal/storage"
	"mdrpy/internal/transpile"
)

// Builder holds the settings shared by every document of a run.
type Builder struct {
	Options transpile.Options
	OutDir  string         // empty: write next to each source
	Ext     string         // output extension, ".rpy" when empty
	Workers int            // <= 0: one per CPU
	Cache   *storage.Cache // nil disables caching
	Backup  bool           // keep a timestamped copy of replaced outputs
	RunID   string
}

// Result describes one built document.
type Result struct {
	Source   string // as discovered or given
	Rel      string // slash-separated path relative to the build root
	Output   string
	Cached   bool // output came from the build cache
	Written  bool // output file changed on disk
	Bytes    int
	Duration time.Duration
}

// New returns a Builder with defaults and a fresh run id.
func New(opts transpile.Options) *Builder {
	return &Builder{Options: opts, Ext: ".rpy", RunID: uuid.NewString()}
}

// BuildFile builds a single document. Its output lands next to it or, with
// OutDir set, directly inside OutDir.
func (b *Builder) BuildFile(ctx context.Context, src string) (Result, error) {
	tr, optHash, err := b.prepare()
	if err != nil {
		return Result{}, err
	}
	return b.buildOne(ctx, tr, optHash, filepath.Dir(src), src)
}

// BuildDir builds every Markdown document below root. Results are ordered by
// path; the first failure cancels the remaining work.
func (b *Builder) BuildDir(ctx context.Context, root string) ([]Result, error) {
	l := b.logger("dir").With(slog.String("root", root))
	tr, optHash, err := b.prepare()
	if err != nil {
		return nil, err
	}
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			r, err := b.buildOne(gctx, tr, optHash, root, f)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Error("build failed", slog.Any("err", err))
		return nil, err
	}
	var cached, written, size int
	for _, r := range results {
		if r.Cached {
			cached++
		}
		if r.Written {
			written++
		}
		size += r.Bytes
	}
	l.Info("build finished",
		slog.Int("documents", len(results)),
		slog.Int("cached", cached),
		slog.Int("written", written),
		slog.String("size", humanize.Bytes(uint64(size))),
		slog.Duration("took", time.Since(start)))
	return results, nil
}

// Discover lists *.md and *.markdown files below root, skipping hidden
// directories. The result is sorted.
func Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSource(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// IsSource reports whether path names a Markdown document.
func IsSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return !strings.HasPrefix(filepath.Base(path), ".")
	}
	return false
}

// OptionsHash is a stable digest of everything in opts that affects output.
func OptionsHash(opts transpile.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "delim=%q\nignore=%q\ncall=%q\njump=%q\n",
		opts.CharacterDelim, opts.Syntax.Ignore, opts.Syntax.Call, opts.Syntax.Jump)
	tags := make([]string, 0, len(opts.Characters))
	for tag := range opts.Characters {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(h, "char %q=%q\n", tag, opts.Characters[tag])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash digests a document's bytes.
func SourceHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// OutputPath maps a source below root to its script path.
func (b *Builder) OutputPath(root, src string) (string, error) {
	ext := b.Ext
	if ext == "" {
		ext = ".rpy"
	}
	if b.OutDir == "" {
		return strings.TrimSuffix(src, filepath.Ext(src)) + ext, nil
	}
	rel, err := filepath.Rel(root, src)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.OutDir, strings.TrimSuffix(rel, filepath.Ext(rel))+ext), nil
}

func (b *Builder) prepare() (*transpile.Transpiler, string, error) {
	if err := b.Options.Validate(); err != nil {
		return nil, "", err
	}
	return transpile.New(b.Options, nil), OptionsHash(b.Options), nil
}

func (b *Builder) workers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

func (b *Builder) logger(op string) *slog.Logger {
	l := applog.WithOperation(applog.WithComponent("build"), op)
	if b.RunID != "" {
		l = l.With(slog.String("run", b.RunID))
	}
	return l
}

func (b *Builder) buildOne(ctx context.Context, tr *transpile.Transpiler, optHash, root, src string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	ctx = applog.WithDocument(ctx, src)
	l := b.logger("file")

	rel, err := filepath.Rel(root, src)
	if err != nil {
		rel = filepath.Base(src)
	}
	res := Result{Source: src, Rel: filepath.ToSlash(rel)}
	if res.Output, err = b.OutputPath(root, src); err != nil {
		return res, err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", src, err)
	}
	srcHash := SourceHash(data)

	var script string
	if b.Cache != nil {
		if out, ok, err := b.Cache.Lookup(ctx, res.Rel, srcHash, optHash); err != nil {
			l.WarnContext(ctx, "cache lookup failed", slog.Any("err", err))
		} else if ok {
			script, res.Cached = out, true
		}
	}
	if !res.Cached {
		script, err = tr.Transpile(markdown.Tokenize(data))
		if err != nil {
			return res, fmt.Errorf("%s: %w", res.Rel, err)
		}
		if b.Cache != nil {
			e := storage.Entry{SourcePath: res.Rel, SourceHash: srcHash, OptionsHash: optHash, Output: script, RunID: b.RunID}
			if err := b.Cache.Store(ctx, e); err != nil {
				l.WarnContext(ctx, "cache store failed", slog.Any("err", err))
			}
		}
	}
	res.Bytes = len(script)

	if cur, err := os.ReadFile(res.Output); err != nil || !bytes.Equal(cur, []byte(script)) {
		if err := storage.WriteFileAtomic(res.Output, []byte(script), b.Backup); err != nil {
			return res, fmt.Errorf("write %s: %w", res.Output, err)
		}
		res.Written = true
	}
	res.Duration = time.Since(start)
	l.InfoContext(ctx, "built",
		slog.String("out", res.Output),
		slog.Bool("cached", res.Cached),
		slog.Bool("written", res.Written),
		slog.Duration("took", res.Duration))
	return res, nil
}
