/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	applog "mdrpy/internal/log"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Entry is one cached build.
type Entry struct {
	SourcePath  string
	SourceHash  string
	OptionsHash string
	Output      string
	RunID       string
	BuiltAt     time.Time // zero means now
}

// Stats summarizes the cache contents.
type Stats struct {
	Backend     string
	Location    string
	Entries     int64
	OutputBytes int64
	Oldest      time.Time
	Newest      time.Time
}

// Cache is the build cache. It is safe for concurrent use.
type Cache struct {
	db       *sql.DB
	dialect  dialect
	location string
}

// OpenCache opens or creates the build cache named by dsn:
//   - postgres:// or postgresql:// URLs select a shared PostgreSQL cache
//   - a path ending in .sqlite or .db is used as the SQLite file
//   - anything else (including "") is a build root; the cache lives at
//     <root>/.mdrpy/cache.sqlite
func OpenCache(ctx context.Context, dsn string) (*Cache, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn)
	case strings.HasSuffix(dsn, ".sqlite"), strings.HasSuffix(dsn, ".db"):
		return openSQLite(ctx, dsn)
	default:
		if dsn == "" {
			dsn = "."
		}
		return openSQLite(ctx, CachePath(dsn))
	}
}

// Location is the SQLite file path or the redacted PostgreSQL URL.
func (c *Cache) Location() string { return c.location }

// Close releases the database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the cached output for path when both hashes match.
func (c *Cache) Lookup(ctx context.Context, path, sourceHash, optionsHash string) (string, bool, error) {
	var out string
	err := c.db.QueryRowContext(ctx,
		c.rebind(`SELECT output FROM builds WHERE source_path = ? AND source_hash = ? AND options_hash = ?`),
		path, sourceHash, optionsHash).Scan(&out)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return out, true, nil
}

// Store records e, replacing any earlier entry for the same source path.
func (c *Cache) Store(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.SourcePath) == "" {
		return errors.New("cache entry without source path")
	}
	at := e.BuiltAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := c.db.ExecContext(ctx, c.rebind(`
		INSERT INTO builds (source_path, source_hash, options_hash, output, run_id, built_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_path) DO UPDATE SET
			source_hash = excluded.source_hash,
			options_hash = excluded.options_hash,
			output = excluded.output,
			run_id = excluded.run_id,
			built_at = excluded.built_at`),
		e.SourcePath, e.SourceHash, e.OptionsHash, e.Output, e.RunID, at.UTC().Unix())
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Prune deletes entries built more than olderThan ago and reports how many went.
func (c *Cache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "cache_prune")
	cutoff := time.Now().Add(-olderThan).UTC().Unix()
	res, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM builds WHERE built_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	l.Info("cache pruned", slog.Int64("removed", n), slog.String("location", c.location))
	return n, nil
}

// Stats reports entry count, output size and the build time range.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Backend: c.dialect.String(), Location: c.location}
	var oldest, newest sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(output)), 0), MIN(built_at), MAX(built_at) FROM builds`).
		Scan(&st.Entries, &st.OutputBytes, &oldest, &newest)
	if err != nil {
		return st, fmt.Errorf("cache stats: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		st.Newest = time.Unix(newest.Int64, 0)
	}
	return st, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (c *Cache) rebind(q string) string {
	if c.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
