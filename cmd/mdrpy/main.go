/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"mdrpy/internal/build"
	"mdrpy/internal/config"
	"mdrpy/internal/crash"
	"mdrpy/internal/export"
	applog "mdrpy/internal/log"
	"mdrpy/internal/storage"
	"mdrpy/internal/transpile"
	"mdrpy/internal/version"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

// errUsage marks argument errors; run prints usage and exits with 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "mdrpy: Markdown to Ren'Py script transpiler")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  mdrpy version|-v|--version                      Show version")
	_, _ = fmt.Fprintln(w, "  mdrpy print <file.md> [-config f]                Print the script to stdout")
	_, _ = fmt.Fprintln(w, "  mdrpy build <file|dir> [-o dir] [-workers n]     Write .rpy files")
	_, _ = fmt.Fprintln(w, "              [-config f] [-no-cache] [-backup]")
	_, _ = fmt.Fprintln(w, "  mdrpy watch <dir> [-o dir] [-config f]           Rebuild documents as they change")
	_, _ = fmt.Fprintln(w, "  mdrpy pdf <file.md> <out.pdf> [-numbers]         Render a PDF proof of the script")
	_, _ = fmt.Fprintln(w, "  mdrpy config [-config f] [-save path]            Show (or save) the effective config")
	_, _ = fmt.Fprintln(w, "  mdrpy cache stats|prune <dir> [-days n]          Inspect or trim the build cache")
	_, _ = fmt.Fprintln(w, "  mdrpy restore <file.rpy>                         Put back the newest backup of a script")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	defer crash.Recover(stateRoot(os.Args[1:]))
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// stateRoot guesses where a crash report belongs: the directory being built.
func stateRoot(args []string) string {
	if len(args) < 2 {
		return ""
	}
	switch args[0] {
	case "build", "watch":
		if fi, err := os.Stat(args[1]); err == nil {
			if fi.IsDir() {
				return args[1]
			}
			return filepath.Dir(args[1])
		}
	}
	return ""
}

func run(args []string, stdout, stderr io.Writer) int {
	l := applog.WithComponent("cli")
	if len(args) == 0 {
		usage(stdout)
		return exitOK
	}
	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(stdout, "mdrpy", version.String())
		return exitOK
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	case "print":
		err = cmdPrint(args[1:], stdout)
	case "build":
		err = cmdBuild(args[1:], stdout)
	case "watch":
		err = cmdWatch(args[1:], stdout, stderr)
	case "pdf":
		err = cmdPDF(args[1:], stdout)
	case "config":
		err = cmdConfig(args[1:], stdout)
	case "cache":
		err = cmdCache(args[1:], stdout)
	case "restore":
		err = cmdRestore(args[1:], stdout)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintln(stderr, "Error:", strings.TrimPrefix(err.Error(), "usage: "))
		usage(stderr)
		return exitUsage
	default:
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return exitFail
	}
}

// parseInterspersed lets flags appear before, between and after positionals.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

// loadConfig reads the config and re-initializes logging from it.
func loadConfig(path string) (config.AppConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	return cfg, nil
}

func cmdPrint(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: print requires <file.md>", errUsage)
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(pos[0])
	if err != nil {
		return err
	}
	out, err := transpile.Parse(string(src), cfg.Script)
	if err != nil {
		return fmt.Errorf("%s: %w", pos[0], err)
	}
	_, err = io.WriteString(stdout, out)
	return err
}

type buildFlags struct {
	cfgPath string
	outDir  string
	workers int
	noCache bool
	backup  bool
}

func (f *buildFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.cfgPath, "config", "", "config file")
	fs.StringVar(&f.outDir, "o", "", "output directory")
	fs.IntVar(&f.workers, "workers", 0, "parallel documents (0: config or one per CPU)")
	fs.BoolVar(&f.noCache, "no-cache", false, "ignore the build cache")
	fs.BoolVar(&f.backup, "backup", false, "back up replaced scripts")
}

// builder wires config, flags and cache. The returned close func releases the cache.
func (f *buildFlags) builder(ctx context.Context, root string) (*build.Builder, func(), error) {
	cfg, err := loadConfig(f.cfgPath)
	if err != nil {
		return nil, nil, err
	}
	b := build.New(cfg.Script)
	b.OutDir = cfg.Build.OutDir
	b.Ext = cfg.Build.Ext
	b.Workers = cfg.Build.Workers
	b.Backup = cfg.Build.Backup || f.backup
	if f.outDir != "" {
		b.OutDir = f.outDir
	}
	if f.workers > 0 {
		b.Workers = f.workers
	}
	closeFn := func() {}
	if !cfg.Cache.Disabled && !f.noCache {
		dsn := cfg.Cache.DSN
		if dsn == "" {
			dsn = root
		}
		c, err := storage.OpenCache(ctx, dsn)
		if err != nil {
			// a broken cache never blocks a build
			applog.WithComponent("cli").Warn("build cache unavailable", slog.Any("err", err))
		} else {
			b.Cache = c
			closeFn = func() { _ = c.Close() }
		}
	}
	return b, closeFn, nil
}

func cmdBuild(args []string, stdout io.Writer) error {
	var f buildFlags
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	f.register(fs)
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: build requires <file|dir>", errUsage)
	}
	target := pos[0]
	fi, err := os.Stat(target)
	if err != nil {
		return err
	}
	root := target
	if !fi.IsDir() {
		root = filepath.Dir(target)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	b, closeCache, err := f.builder(ctx, root)
	if err != nil {
		return err
	}
	defer closeCache()

	var results []build.Result
	if fi.IsDir() {
		results, err = b.BuildDir(ctx, target)
	} else {
		var r build.Result
		r, err = b.BuildFile(ctx, target)
		results = []build.Result{r}
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		state := "built"
		switch {
		case r.Cached && r.Written:
			state = "restored"
		case r.Cached || !r.Written:
			state = "unchanged"
		}
		_, _ = fmt.Fprintf(stdout, "%-9s %s -> %s\n", state, r.Rel, r.Output)
	}
	return nil
}

func cmdWatch(args []string, stdout, stderr io.Writer) error {
	var f buildFlags
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	f.register(fs)
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: watch requires <dir>", errUsage)
	}
	root := pos[0]
	if fi, err := os.Stat(root); err != nil {
		return err
	} else if !fi.IsDir() {
		return fmt.Errorf("%w: watch needs a directory, got %s", errUsage, root)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	b, closeCache, err := f.builder(ctx, root)
	if err != nil {
		return err
	}
	defer closeCache()

	// bring everything up to date before waiting for changes
	if _, err := b.BuildDir(ctx, root); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
	}
	_, _ = fmt.Fprintf(stdout, "watching %s (Ctrl+C to stop)\n", root)
	return b.Watch(ctx, root, func(r build.Result, err error) {
		if err != nil {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			return
		}
		_, _ = fmt.Fprintf(stdout, "%s rebuilt %s\n", time.Now().Format("15:04:05"), r.Rel)
	})
}

func cmdPDF(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("pdf", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file")
	numbers := fs.Bool("numbers", true, "print line numbers")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("%w: pdf requires <file.md> <out.pdf>", errUsage)
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(pos[0])
	if err != nil {
		return err
	}
	script, err := transpile.Parse(string(src), cfg.Script)
	if err != nil {
		return fmt.Errorf("%s: %w", pos[0], err)
	}
	opt := export.PDFOptions{LineNumbers: *numbers, IncludeRule: *numbers, Author: "mdrpy " + version.Version}
	if err := export.ExportScriptPDF(pos[1], filepath.Base(pos[0]), script, opt); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, "Wrote", pos[1])
	return nil
}

// configKeys are the env-overridable settings reported by `mdrpy config`.
var configKeys = []string{
	"script.character_delim", "build.out_dir", "build.workers", "cache.dsn", "cache.disabled",
	"logging.level", "logging.format", "logging.source", "logging.file",
}

func cmdConfig(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file")
	savePath := fs.String("save", "", "write the effective config to this file")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return fmt.Errorf("%w: config takes no arguments", errUsage)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *savePath != "" {
		if err := config.Save(*savePath, cfg); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, "Saved", *savePath)
		return nil
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(data); err != nil {
		return err
	}
	for _, key := range configKeys {
		if env, ok := config.EnvOverrideFor(key); ok {
			_, _ = fmt.Fprintf(stdout, "# %s overridden by %s\n", key, env)
		}
	}
	return nil
}

func cmdCache(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: cache requires stats or prune", errUsage)
	}
	sub := args[0]
	fs := flag.NewFlagSet("cache "+sub, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file")
	days := fs.Int("days", 30, "prune entries older than this many days")
	pos, err := parseInterspersed(fs, args[1:])
	if err != nil {
		return err
	}
	if len(pos) > 1 {
		return fmt.Errorf("%w: cache %s takes at most one <dir>", errUsage, sub)
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	dsn := cfg.Cache.DSN
	if len(pos) == 1 {
		dsn = pos[0]
	}

	ctx := context.Background()
	switch sub {
	case "stats":
		c, err := storage.OpenCache(ctx, dsn)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		st, err := c.Stats(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "backend:  %s\nlocation: %s\nentries:  %d\nsize:     %s\n",
			st.Backend, st.Location, st.Entries, humanize.Bytes(uint64(st.OutputBytes)))
		if st.Entries > 0 {
			_, _ = fmt.Fprintf(stdout, "oldest:   %s\nnewest:   %s\n", humanize.Time(st.Oldest), humanize.Time(st.Newest))
		}
		return nil
	case "prune":
		if *days < 0 {
			return fmt.Errorf("%w: -days must not be negative", errUsage)
		}
		c, err := storage.OpenCache(ctx, dsn)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		n, err := c.Prune(ctx, time.Duration(*days)*24*time.Hour)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Removed %d cache %s older than %d days\n", n, plural(n, "entry", "entries"), *days)
		return nil
	default:
		return fmt.Errorf("%w: unknown cache command %q", errUsage, sub)
	}
}

func cmdRestore(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: restore requires <file.rpy>", errUsage)
	}
	from, err := storage.RestoreLatestBackup(args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Restored %s from %s\n", args[0], from)
	return nil
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
