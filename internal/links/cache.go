// Package links resolves intra-document anchors, relative file links, and
// external URLs for ledger entries.
package links

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const cacheSchemaSQL = `
CREATE TABLE IF NOT EXISTS probes (
	url        TEXT PRIMARY KEY,
	ok         INTEGER NOT NULL,
	http_code  INTEGER,
	final_url  TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	checked_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_checked_at ON probes(checked_at);
`

// CachedProbe is one persisted external-link result.
type CachedProbe struct {
	URL       string
	OK        bool
	HTTPCode  int
	FinalURL  string
	Reason    string
	CheckedAt time.Time
}

// Cache is a machine-local SQLite store of external probe results. It is
// read-mostly and safe for concurrent use; rows older than the freshness
// window are ignored and pruned away on explicit refresh.
type Cache struct {
	conn    *sql.DB
	maxAge  time.Duration
	maxRows int
}

// OpenCache opens (or creates) the cache database and applies the schema.
func OpenCache(dsn string, maxAge time.Duration, maxRows int) (*Cache, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("links: open cache: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("links: ping cache: %w", err)
	}
	if _, err := conn.Exec(cacheSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("links: apply cache schema: %w", err)
	}
	if maxRows <= 0 {
		maxRows = 10000
	}
	return &Cache{conn: conn, maxAge: maxAge, maxRows: maxRows}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Get returns the cached probe for url if it is still within the freshness
// window.
func (c *Cache) Get(url string) (CachedProbe, bool) {
	var p CachedProbe
	var okInt int
	var code sql.NullInt64
	err := c.conn.QueryRow(
		`SELECT url, ok, http_code, final_url, reason, checked_at FROM probes WHERE url = ?`, url,
	).Scan(&p.URL, &okInt, &code, &p.FinalURL, &p.Reason, &p.CheckedAt)
	if err != nil {
		return CachedProbe{}, false
	}
	if time.Since(p.CheckedAt) > c.maxAge {
		return CachedProbe{}, false
	}
	p.OK = okInt != 0
	if code.Valid {
		p.HTTPCode = int(code.Int64)
	}
	return p, true
}

// Put upserts a probe result and evicts the oldest rows beyond the cache's
// row budget.
func (c *Cache) Put(p CachedProbe) error {
	okInt := 0
	if p.OK {
		okInt = 1
	}
	if p.CheckedAt.IsZero() {
		p.CheckedAt = time.Now().UTC()
	}
	_, err := c.conn.Exec(
		`INSERT INTO probes (url, ok, http_code, final_url, reason, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   ok = excluded.ok, http_code = excluded.http_code,
		   final_url = excluded.final_url, reason = excluded.reason,
		   checked_at = excluded.checked_at`,
		p.URL, okInt, p.HTTPCode, p.FinalURL, p.Reason, p.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("links: cache put: %w", err)
	}
	_, err = c.conn.Exec(
		`DELETE FROM probes WHERE url IN (
		   SELECT url FROM probes ORDER BY checked_at DESC LIMIT -1 OFFSET ?
		 )`, c.maxRows,
	)
	if err != nil {
		return fmt.Errorf("links: cache evict: %w", err)
	}
	return nil
}

// Refresh removes every row older than the freshness window. This is an
// explicit operator action, not part of verification.
func (c *Cache) Refresh() (int64, error) {
	cutoff := time.Now().UTC().Add(-c.maxAge)
	res, err := c.conn.Exec(`DELETE FROM probes WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("links: cache refresh: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
