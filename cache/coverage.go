package cache

import (
	"database/sql"
	"sync"
	"time"

	"github.com/ThisIsLeoZhao/stock/market"
)

type span struct {
	min time.Time
	max time.Time
}

// coverageIndex answers "does storage cover [start, end] for this key"
// without scanning rows. It tracks only the min/max stored date per key,
// so interior trading-calendar gaps are invisible to it; Get re-filters
// the actual rows for exactly that reason.
//
// The index is rebuilt from the bars table at open and kept current on
// every committed write, so a reader never observes it stale relative to
// its own process's writes.
type coverageIndex struct {
	mu    sync.RWMutex
	spans map[market.Key]span
}

func newCoverageIndex() *coverageIndex {
	return &coverageIndex{spans: make(map[market.Key]span)}
}

func (c *coverageIndex) load(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT symbol, interval, MIN(date), MAX(date)
		FROM bars
		GROUP BY symbol, interval`)
	if err != nil {
		return err
	}
	defer rows.Close()

	spans := make(map[market.Key]span)
	for rows.Next() {
		var symbol, interval, minStr, maxStr string
		if err := rows.Scan(&symbol, &interval, &minStr, &maxStr); err != nil {
			return err
		}
		min, err := time.ParseInLocation(dateLayout, minStr, time.UTC)
		if err != nil {
			return err
		}
		max, err := time.ParseInLocation(dateLayout, maxStr, time.UTC)
		if err != nil {
			return err
		}
		spans[market.Key{Symbol: symbol, Interval: market.Interval(interval)}] = span{min: min, max: max}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.spans = spans
	c.mu.Unlock()
	return nil
}

// extend widens the span for key to include [min, max].
func (c *coverageIndex) extend(key market.Key, min, max time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.spans[key]
	if !ok {
		c.spans[key] = span{min: min, max: max}
		return
	}
	if min.Before(cur.min) {
		cur.min = min
	}
	if max.After(cur.max) {
		cur.max = max
	}
	c.spans[key] = cur
}

func (c *coverageIndex) drop(key market.Key) {
	c.mu.Lock()
	delete(c.spans, key)
	c.mu.Unlock()
}

func (c *coverageIndex) coverage(key market.Key) (min, max time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sp, ok := c.spans[key]
	return sp.min, sp.max, ok
}

// covers is a closed-interval boundary test: equal boundary dates count.
func (c *coverageIndex) covers(key market.Key, start, end time.Time) bool {
	min, max, ok := c.coverage(key)
	if !ok {
		return false
	}
	return !min.After(start) && !max.Before(end)
}
