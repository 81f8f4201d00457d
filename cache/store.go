package cache

import (
	"database/sql"
	"os"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ThisIsLeoZhao/stock/market"
)

// Store is the persistent row store: one SQLite row per
// (symbol, interval, trading date), plus the in-memory coverage index
// derived from it.
type Store struct {
	db   *sql.DB
	path string
	cov  *coverageIndex

	// mu serializes writers. Readers go straight to SQLite; WAL mode lets
	// them proceed while a batch commits.
	mu sync.Mutex
}

// NewStore opens (or creates) the database at path and runs the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}

	cov := newCoverageIndex()
	if err := cov.load(db); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}

	return &Store{db: db, path: path, cov: cov}, nil
}

// Upsert writes the batch atomically: every bar lands or none does. A bar
// whose (symbol, interval, date) already exists is replaced, so replaying a
// fetch is harmless and newer values win. The whole batch shares one
// written_at and one batch ID.
func (s *Store) Upsert(key market.Key, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Op: "upsert", Err: err}
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars
		(symbol, interval, date, open, high, low, close, volume, written_at, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return &StorageError{Op: "upsert", Err: err}
	}
	defer stmt.Close()

	writtenAt := time.Now().UTC()
	batchID := newBatchID()

	for _, b := range bars {
		var volume sql.NullInt64
		if b.HasVolume {
			volume = sql.NullInt64{Int64: b.Volume, Valid: true}
		}
		_, err := stmt.Exec(
			key.Symbol, string(key.Interval), b.Date.UTC().Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, volume,
			writtenAt, batchID,
		)
		if err != nil {
			tx.Rollback()
			return &StorageError{Op: "upsert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "upsert", Err: err}
	}

	// Only after the commit: a failed batch must not widen coverage.
	min, max, _ := market.DateRange(bars)
	s.cov.extend(key, market.Midnight(min), market.Midnight(max))
	return nil
}

// Query returns all bars for key with date in [start, end], ascending by
// date. An unknown key or an empty window yields an empty result, not an
// error.
func (s *Store) Query(key market.Key, start, end time.Time) ([]market.Bar, error) {
	rows, err := s.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		key.Symbol, string(key.Interval),
		start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	var out []market.Bar
	for rows.Next() {
		var (
			dateStr string
			bar     market.Bar
			volume  sql.NullInt64
		)
		if err := rows.Scan(&dateStr, &bar.Open, &bar.High, &bar.Low, &bar.Close, &volume); err != nil {
			return nil, &StorageError{Op: "query", Err: err}
		}
		date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, &StorageError{Op: "query", Err: err}
		}
		bar.Date = date
		if volume.Valid {
			bar.Volume = volume.Int64
			bar.HasVolume = true
		}
		out = append(out, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	return out, nil
}

// Coverage reports the stored date span for key.
func (s *Store) Coverage(key market.Key) (min, max time.Time, ok bool) {
	return s.cov.coverage(key)
}

// Covers reports whether the stored span contains [start, end], boundary
// dates inclusive. It says nothing about interior gaps.
func (s *Store) Covers(key market.Key, start, end time.Time) bool {
	return s.cov.covers(key, start, end)
}

// DeleteKey removes every bar for the exact (symbol, interval) key.
func (s *Store) DeleteKey(key market.Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.deleteWhere("symbol = ? AND interval = ?", key.Symbol, string(key.Interval))
	if err != nil {
		return 0, err
	}
	s.cov.drop(key)
	return n, nil
}

// DeleteSymbol removes every bar for the symbol across all intervals.
func (s *Store) DeleteSymbol(symbol string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.deleteWhere("symbol = ?", symbol)
	if err != nil {
		return 0, err
	}
	return n, s.reloadCoverage()
}

// DeleteInterval removes every bar with the interval across all symbols.
func (s *Store) DeleteInterval(interval market.Interval) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.deleteWhere("interval = ?", string(interval))
	if err != nil {
		return 0, err
	}
	return n, s.reloadCoverage()
}

// DeleteAll empties the store.
func (s *Store) DeleteAll() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.deleteWhere("1 = 1")
	if err != nil {
		return 0, err
	}
	return n, s.reloadCoverage()
}

// DeleteOlderThan removes rows whose last write precedes cutoff, across all
// keys. Coverage can shrink or split, so the index is reloaded afterwards.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM bars WHERE written_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, &StorageError{Op: "delete", Err: err}
	}
	n, _ := res.RowsAffected()
	if err := s.cov.load(s.db); err != nil {
		return n, &StorageError{Op: "delete", Err: err}
	}
	return n, nil
}

// deleteWhere and reloadCoverage run with s.mu held: the DELETE and the
// index refresh must be one step relative to writers, or an Upsert slipping
// between them commits rows the refreshed index has never seen.
func (s *Store) deleteWhere(where string, args ...any) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM bars WHERE `+where, args...)
	if err != nil {
		return 0, &StorageError{Op: "delete", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) reloadCoverage() error {
	if err := s.cov.load(s.db); err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// KeyStats summarizes one stored series.
type KeyStats struct {
	Symbol    string
	Interval  market.Interval
	Rows      int64
	MinDate   time.Time
	MaxDate   time.Time
	LastWrite time.Time
}

// Stats describes the whole store. Err is set instead of an error return so
// an inspection surface never fails; see Manager.Info.
type Stats struct {
	DBPath      string
	DBSizeBytes int64
	TotalRows   int64
	Keys        []KeyStats
	Err         string
}

func (s *Store) Stats() (Stats, error) {
	st := Stats{DBPath: s.path}

	rows, err := s.db.Query(`
		SELECT symbol, interval, COUNT(*), MIN(date), MAX(date), MAX(written_at)
		FROM bars
		GROUP BY symbol, interval
		ORDER BY symbol, interval`)
	if err != nil {
		return Stats{}, &StorageError{Op: "stats", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ks             KeyStats
			interval       string
			minStr, maxStr string
			lastWriteStr   string
		)
		if err := rows.Scan(&ks.Symbol, &interval, &ks.Rows, &minStr, &maxStr, &lastWriteStr); err != nil {
			return Stats{}, &StorageError{Op: "stats", Err: err}
		}
		ks.Interval = market.Interval(interval)
		if ks.MinDate, err = time.ParseInLocation(dateLayout, minStr, time.UTC); err != nil {
			return Stats{}, &StorageError{Op: "stats", Err: err}
		}
		if ks.MaxDate, err = time.ParseInLocation(dateLayout, maxStr, time.UTC); err != nil {
			return Stats{}, &StorageError{Op: "stats", Err: err}
		}
		// MAX() strips the column's declared type, so the driver hands the
		// timestamp back as text.
		if ks.LastWrite, err = parseTimestamp(lastWriteStr); err != nil {
			return Stats{}, &StorageError{Op: "stats", Err: err}
		}
		st.TotalRows += ks.Rows
		st.Keys = append(st.Keys, ks)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, &StorageError{Op: "stats", Err: err}
	}

	if fi, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = fi.Size()
	}
	return st, nil
}

// parseTimestamp reads a timestamp in any of the textual forms the sqlite3
// driver writes.
func parseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	}
	var err error
	for _, layout := range layouts {
		var ts time.Time
		if ts, err = time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
