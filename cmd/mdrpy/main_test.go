/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("MDRPY_LOG_LEVEL", "error")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "intro.md"), []byte("# Intro\nMT - Hello there # greeting\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersionAndUsage(t *testing.T) {
	setup(t)
	if code, out, _ := runCLI(t, "--version"); code != exitOK || !strings.HasPrefix(out, "mdrpy ") {
		t.Fatalf("version = %d %q", code, out)
	}
	if code, out, _ := runCLI(t); code != exitOK || !strings.Contains(out, "Usage:") {
		t.Fatalf("bare run = %d %q", code, out)
	}
	if code, _, errOut := runCLI(t, "frobnicate"); code != exitUsage || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Fatalf("unknown command = %d %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "print"); code != exitUsage {
		t.Fatalf("print without file = %d", code)
	}
}

func TestPrint(t *testing.T) {
	dir := setup(t)
	code, out, errOut := runCLI(t, "print", filepath.Join(dir, "intro.md"))
	if code != exitOK {
		t.Fatalf("print = %d %q", code, errOut)
	}
	if out != "label Intro:\n    od \"Hello there\" # greeting\n" {
		t.Fatalf("print output = %q", out)
	}
}

func TestPrintWithConfigFile(t *testing.T) {
	dir := setup(t)
	cfg := filepath.Join(dir, "mdrpy.yaml")
	if err := os.WriteFile(cfg, []byte("script:\n  characters:\n    mt: mentor\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "print", filepath.Join(dir, "intro.md"), "-config", cfg)
	if code != exitOK || !strings.Contains(out, `mentor "Hello there"`) {
		t.Fatalf("print with config = %d %q %q", code, out, errOut)
	}
}

func TestBuildDirAndCache(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(t.TempDir(), "game")
	code, stdout, errOut := runCLI(t, "build", dir, "-o", out, "-workers", "2")
	if code != exitOK {
		t.Fatalf("build = %d %q", code, errOut)
	}
	if !strings.Contains(stdout, "built") || !strings.Contains(stdout, "intro.md") {
		t.Fatalf("build output = %q", stdout)
	}
	b, err := os.ReadFile(filepath.Join(out, "intro.rpy"))
	if err != nil || !strings.HasPrefix(string(b), "label Intro:") {
		t.Fatalf("intro.rpy = %q, %v", b, err)
	}

	code, stdout, _ = runCLI(t, "build", dir, "-o", out)
	if code != exitOK || !strings.Contains(stdout, "unchanged") {
		t.Fatalf("rebuild = %d %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, "cache", "stats", dir)
	if code != exitOK || !strings.Contains(stdout, "entries:  1") {
		t.Fatalf("cache stats = %d %q", code, stdout)
	}
	code, stdout, _ = runCLI(t, "cache", "prune", dir, "-days", "1")
	if code != exitOK || !strings.Contains(stdout, "Removed 0 cache entries") {
		t.Fatalf("cache prune = %d %q", code, stdout)
	}
}

func TestBuildSingleFileNoCache(t *testing.T) {
	dir := setup(t)
	src := filepath.Join(dir, "intro.md")
	if code, _, errOut := runCLI(t, "build", src, "-no-cache"); code != exitOK {
		t.Fatalf("build file = %d %q", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(dir, "intro.rpy")); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".mdrpy", "cache.sqlite")); !os.IsNotExist(err) {
		t.Fatalf("cache created despite -no-cache")
	}
}

func TestBuildReportsTranspileError(t *testing.T) {
	dir := setup(t)
	if err := os.WriteFile(filepath.Join(dir, "bad.md"), []byte("- ```\n  x\n  ```\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "build", dir, "-no-cache")
	if code != exitFail || !strings.Contains(errOut, "bad.md") {
		t.Fatalf("build with bad doc = %d %q", code, errOut)
	}
}

func TestPDF(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(dir, "proof", "intro.pdf")
	if code, _, errOut := runCLI(t, "pdf", filepath.Join(dir, "intro.md"), out); code != exitOK {
		t.Fatalf("pdf = %d %q", code, errOut)
	}
	b, err := os.ReadFile(out)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("pdf not written: %v", err)
	}
}

func TestConfigShowAndSave(t *testing.T) {
	dir := setup(t)
	t.Setenv("MDRPY_OUT_DIR", "game")
	code, out, errOut := runCLI(t, "config")
	if code != exitOK {
		t.Fatalf("config = %d %q", code, errOut)
	}
	if !strings.Contains(out, "character_delim:") || !strings.Contains(out, "out_dir: game") {
		t.Fatalf("config output = %q", out)
	}
	if !strings.Contains(out, "# build.out_dir overridden by MDRPY_OUT_DIR") {
		t.Fatalf("override note missing: %q", out)
	}
	saved := filepath.Join(dir, "saved.yaml")
	if code, _, _ := runCLI(t, "config", "-save", saved); code != exitOK {
		t.Fatalf("config -save = %d", code)
	}
	if _, err := os.Stat(saved); err != nil {
		t.Fatalf("saved config missing: %v", err)
	}
}

func TestRestore(t *testing.T) {
	dir := setup(t)
	target := filepath.Join(dir, "intro.rpy")
	if code, _, _ := runCLI(t, "restore", target); code != exitFail {
		t.Fatalf("restore without backups = %d", code)
	}
	if err := os.WriteFile(target, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runCLI(t, "build", filepath.Join(dir, "intro.md"), "-backup", "-no-cache"); code != exitOK {
		t.Fatalf("build = %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "restore", target); code != exitOK {
		t.Fatalf("restore = %d %q", code, errOut)
	}
	if b, _ := os.ReadFile(target); string(b) != "# mine\n" {
		t.Fatalf("restored content = %q", b)
	}
}

func TestParseInterspersed(t *testing.T) {
	var f buildFlags
	fs := newTestFlagSet(&f)
	pos, err := parseInterspersed(fs, []string{"-o", "out", "src", "-workers", "3", "-no-cache"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pos) != 1 || pos[0] != "src" || f.outDir != "out" || f.workers != 3 || !f.noCache {
		t.Fatalf("parsed %v %+v", pos, f)
	}
}

func newTestFlagSet(f *buildFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.register(fs)
	return fs
}
