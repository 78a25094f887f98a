/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, data []byte) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

// TestInitAndStructuredLoggingToFile checks the rotated file sink and the
// static, component and context attributes.
func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "mdrpy.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Out: &console})

	l := WithOperation(WithComponent("build"), "file")
	ctx := WithDocument(context.Background(), "chapters/intro.md")
	l.InfoContext(ctx, "built", slog.Int("lines", 12))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, m := range []map[string]any{lastJSONLine(t, b), lastJSONLine(t, console.Bytes())} {
		if m["app"] != "mdrpy" {
			t.Fatalf("missing app attr: %v", m["app"])
		}
		if _, ok := m["ver"].(string); !ok {
			t.Fatalf("missing ver attr")
		}
		if m["component"] != "build" || m["op"] != "file" {
			t.Fatalf("component/op mismatch: %v", m)
		}
		if m["doc"] != "chapters/intro.md" {
			t.Fatalf("context attr missing: %v", m)
		}
		if m["msg"] != "built" || m["lines"] != float64(12) {
			t.Fatalf("record mismatch: %v", m)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MDRPY_LOG_LEVEL", "warn")
	t.Setenv("MDRPY_LOG_FORMAT", "json")
	t.Setenv("MDRPY_LOG_SOURCE", "true")
	t.Setenv("MDRPY_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("MDRPY_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Out: &buf})
	ctx := context.Background()

	L().InfoContext(ctx, "hidden")
	L().With("k", "v").WithGroup("grp").ErrorContext(ctx, "boom",
		slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true), slog.String("path", "a b"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked at warn level: %q", out)
	}
	for _, want := range []string{" ERR boom", " app=mdrpy", " k=v", " grp.n=42", " grp.pi=3.14", " grp.ok=true", ` grp.path="a b"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if !strings.HasSuffix(out, "\n") || strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}
}

func TestContextWithAccumulates(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Out: &buf})
	ctx := ContextWith(context.Background(), slog.String("run", "r1"))
	ctx = WithDocument(ctx, "a.md")
	L().InfoContext(ctx, "x")
	m := lastJSONLine(t, buf.Bytes())
	if m["run"] != "r1" || m["doc"] != "a.md" {
		t.Fatalf("context attrs missing: %v", m)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if levelString(slog.LevelDebug) != "DBG" || levelString(slog.LevelWarn+1) == "WRN" {
		t.Fatalf("unexpected level strings")
	}
	if attrValueString(slog.DurationValue(1500*time.Millisecond)) != "1.5s" {
		t.Fatalf("duration formatting")
	}
}
