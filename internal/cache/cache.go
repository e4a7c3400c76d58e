// Package cache is a SQLite-backed result cache for IYP queries.
//
// A report run issues the same handful of queries per region; caching
// lets a re-run (tweaked thresholds, new chart styling) skip the remote
// graph entirely while the data is still fresh. The cache decorates an
// iyp.Executor; failures inside the cache degrade to direct execution,
// they never fail the run.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ixpscope/ixpscope/internal/iyp"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_cache (
	key        TEXT PRIMARY KEY,
	cypher     TEXT NOT NULL,
	result     TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_cache_fetched ON query_cache(fetched_at);
`

// Cache holds the sqlite handle. Open once per run, Close when done.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Wrap returns an Executor that consults the cache before exec and
// stores fresh results after it.
func (c *Cache) Wrap(exec iyp.Executor, ttl time.Duration, warn func(format string, args ...any)) iyp.Executor {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &cachingExecutor{cache: c, next: exec, ttl: ttl, warn: warn}
}

type cachingExecutor struct {
	cache *Cache
	next  iyp.Executor
	ttl   time.Duration
	warn  func(format string, args ...any)
}

func (ce *cachingExecutor) Execute(ctx context.Context, cypher string, params map[string]any) (*iyp.Result, error) {
	key, err := cacheKey(cypher, params)
	if err != nil {
		ce.warn("cache: cannot key query: %v", err)
		return ce.next.Execute(ctx, cypher, params)
	}

	if res, ok := ce.cache.get(ctx, key, ce.ttl); ok {
		return res, nil
	}

	res, err := ce.next.Execute(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if err := ce.cache.put(ctx, key, cypher, res); err != nil {
		ce.warn("cache: store failed: %v", err)
	}
	return res, nil
}

func (c *Cache) get(ctx context.Context, key string, ttl time.Duration) (*iyp.Result, bool) {
	var blob string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT result, fetched_at FROM query_cache WHERE key = ?`, key,
	).Scan(&blob, &fetchedAt)
	if err != nil {
		return nil, false
	}
	if time.Since(time.Unix(fetchedAt, 0)) > ttl {
		return nil, false
	}
	var res iyp.Result
	if err := json.Unmarshal([]byte(blob), &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *Cache) put(ctx context.Context, key, cypher string, res *iyp.Result) error {
	blob, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO query_cache (key, cypher, result, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET result = excluded.result, fetched_at = excluded.fetched_at`,
		key, cypher, string(blob), time.Now().Unix())
	return err
}

// cacheKey hashes the cypher text plus params in sorted-key order so
// the same logical query always maps to the same row.
func cacheKey(cypher string, params map[string]any) (string, error) {
	h := sha256.New()
	h.Write([]byte(cypher))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(params[k])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "|%s=%s", k, v)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
