// cache/schema.go
package cache

// One row per (symbol, interval, trading date). written_at and batch_id
// identify the merge batch that last wrote the row; written_at feeds
// age-based cleanup only, never freshness decisions.
const Schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER,
	written_at DATETIME NOT NULL,
	batch_id TEXT NOT NULL,
	PRIMARY KEY (symbol, interval, date)
);

CREATE INDEX IF NOT EXISTS idx_bars_key ON bars(symbol, interval);
CREATE INDEX IF NOT EXISTS idx_bars_date ON bars(date);
`

// dateLayout is how trading dates are stored; the textual form sorts and
// compares correctly in SQL.
const dateLayout = "2006-01-02"
