/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicCreatesDirsAndNoTemp(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "game", "intro.rpy")
	if err := WriteFileAtomic(path, []byte("label Intro:\n"), false); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "label Intro:\n" {
		t.Fatalf("content = %q, err = %v", b, err)
	}
	ents, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if _, err := os.Stat(BackupDir(filepath.Dir(path))); !os.IsNotExist(err) {
		t.Fatalf("backup dir must not exist without backup flag")
	}
}

func TestWriteFileAtomicBackupAndRestore(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "intro.rpy")
	if err := WriteFileAtomic(path, []byte("v1\n"), true); err != nil {
		t.Fatal(err)
	}
	if bs, _ := Backups(path); len(bs) != 0 {
		t.Fatalf("first write must not back up: %v", bs)
	}
	if err := WriteFileAtomic(path, []byte("v2\n"), true); err != nil {
		t.Fatal(err)
	}
	bs, err := Backups(path)
	if err != nil || len(bs) != 1 {
		t.Fatalf("expected one backup, got %v (err %v)", bs, err)
	}
	old, _ := os.ReadFile(bs[0])
	if string(old) != "v1\n" {
		t.Fatalf("backup content = %q", old)
	}
	cur, _ := os.ReadFile(path)
	if string(cur) != "v2\n" {
		t.Fatalf("current content = %q", cur)
	}

	restored, err := RestoreLatestBackup(path)
	if err != nil || restored != bs[0] {
		t.Fatalf("RestoreLatestBackup = %q, %v", restored, err)
	}
	cur, _ = os.ReadFile(path)
	if string(cur) != "v1\n" {
		t.Fatalf("restored content = %q", cur)
	}
}

func TestRestoreWithoutBackups(t *testing.T) {
	if _, err := RestoreLatestBackup(filepath.Join(t.TempDir(), "x.rpy")); err == nil {
		t.Fatalf("expected error without backups")
	}
}
