package cache

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/ThisIsLeoZhao/stock/market"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := NewStore(path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, path
}

func testBars(dates ...time.Time) []market.Bar {
	bars := make([]market.Bar, 0, len(dates))
	for i, d := range dates {
		bars = append(bars, market.Bar{
			Date:      d,
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    int64(1000 * (i + 1)),
			HasVolume: true,
		})
	}
	return bars
}

var aaplDaily = market.Key{Symbol: "AAPL", Interval: market.Daily}

func TestStoreSchemaCreated(t *testing.T) {
	t.Parallel()

	s, path := newTestStore(t)
	assert.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name='bars'`)
	assert.NoError(t, err)
	defer rows.Close()

	assert.True(t, rows.Next())
	assert.NoError(t, rows.Err())
}

func TestStoreUpsertAndQuery(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	bars := testBars(
		market.Day(2024, time.January, 3),
		market.Day(2024, time.January, 2),
		market.Day(2024, time.January, 5),
	)
	assert.NoError(t, s.Upsert(aaplDaily, bars))

	got, err := s.Query(aaplDaily, market.Day(2024, time.January, 1), market.Day(2024, time.January, 31))
	assert.NoError(t, err)
	assert.Len(t, got, 3)

	// ascending by date regardless of insert order
	assert.Equal(t, market.Day(2024, time.January, 2), got[0].Date)
	assert.Equal(t, market.Day(2024, time.January, 3), got[1].Date)
	assert.Equal(t, market.Day(2024, time.January, 5), got[2].Date)

	assert.Equal(t, 101.0, got[1].Open)
	assert.True(t, got[0].HasVolume)
	assert.Equal(t, int64(2000), got[0].Volume)
}

func TestStoreQueryUnknownKey(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	got, err := s.Query(market.Key{Symbol: "NONE", Interval: market.Daily},
		market.Day(2024, time.January, 1), market.Day(2024, time.December, 31))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreUpsertReplacesDuplicateDates(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	d := market.Day(2024, time.March, 15)
	first := []market.Bar{{Date: d, Open: 1, High: 2, Low: 0.5, Close: 1.5}}
	second := []market.Bar{{Date: d, Open: 10, High: 20, Low: 5, Close: 15}}

	assert.NoError(t, s.Upsert(aaplDaily, first))
	assert.NoError(t, s.Upsert(aaplDaily, second))

	got, err := s.Query(aaplDaily, d, d)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 15.0, got[0].Close)
	assert.False(t, got[0].HasVolume)
}

func TestStoreUpsertIsAtomicBatch(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	bars := testBars(market.Day(2024, time.June, 3), market.Day(2024, time.June, 4))
	assert.NoError(t, s.Upsert(aaplDaily, bars))

	// one batch ID and one written_at for the whole batch
	var batches int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT batch_id) FROM bars`).Scan(&batches)
	assert.NoError(t, err)
	assert.Equal(t, 1, batches)

	var stamps int
	err = s.db.QueryRow(`SELECT COUNT(DISTINCT written_at) FROM bars`).Scan(&stamps)
	assert.NoError(t, err)
	assert.Equal(t, 1, stamps)
}

func TestStoreVolumeNullable(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	d := market.Day(2024, time.May, 6)
	bars := []market.Bar{{Date: d, Open: 1, High: 2, Low: 0.5, Close: 1.5}}
	assert.NoError(t, s.Upsert(aaplDaily, bars))

	var vol sql.NullInt64
	err := s.db.QueryRow(`SELECT volume FROM bars WHERE date = ?`, d.Format(dateLayout)).Scan(&vol)
	assert.NoError(t, err)
	assert.False(t, vol.Valid)
}

func TestStoreDeleteVariants(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	keys := []market.Key{
		{Symbol: "AAPL", Interval: market.Daily},
		{Symbol: "AAPL", Interval: market.Weekly},
		{Symbol: "GOOG", Interval: market.Daily},
		{Symbol: "GOOG", Interval: market.Monthly},
	}
	for _, k := range keys {
		assert.NoError(t, s.Upsert(k, testBars(market.Day(2024, time.January, 2), market.Day(2024, time.January, 3))))
	}

	n, err := s.DeleteKey(market.Key{Symbol: "AAPL", Interval: market.Daily})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, _, ok := s.Coverage(market.Key{Symbol: "AAPL", Interval: market.Daily})
	assert.False(t, ok)
	_, _, ok = s.Coverage(market.Key{Symbol: "AAPL", Interval: market.Weekly})
	assert.True(t, ok)

	n, err = s.DeleteSymbol("GOOG")
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = s.DeleteInterval(market.Weekly)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteAll()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStoreDeleteOlderThan(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	old := market.Key{Symbol: "OLD", Interval: market.Daily}
	fresh := market.Key{Symbol: "NEW", Interval: market.Daily}
	assert.NoError(t, s.Upsert(old, testBars(market.Day(2024, time.January, 2))))
	assert.NoError(t, s.Upsert(fresh, testBars(market.Day(2024, time.January, 2))))

	// backdate one key's write stamp
	_, err := s.db.Exec(`UPDATE bars SET written_at = ? WHERE symbol = 'OLD'`,
		time.Now().UTC().Add(-48*time.Hour))
	assert.NoError(t, err)

	n, err := s.DeleteOlderThan(time.Now().UTC().Add(-24 * time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, ok := s.Coverage(old)
	assert.False(t, ok)
	_, _, ok = s.Coverage(fresh)
	assert.True(t, ok)
}

func TestStoreStats(t *testing.T) {
	t.Parallel()

	s, path := newTestStore(t)

	assert.NoError(t, s.Upsert(aaplDaily, testBars(
		market.Day(2024, time.January, 2),
		market.Day(2024, time.January, 31),
	)))
	assert.NoError(t, s.Upsert(market.Key{Symbol: "GOOG", Interval: market.Weekly},
		testBars(market.Day(2024, time.February, 5))))

	st, err := s.Stats()
	assert.NoError(t, err)
	assert.Equal(t, path, st.DBPath)
	assert.Equal(t, int64(3), st.TotalRows)
	assert.Len(t, st.Keys, 2)
	assert.Greater(t, st.DBSizeBytes, int64(0))

	// ordered by symbol
	assert.Equal(t, "AAPL", st.Keys[0].Symbol)
	assert.Equal(t, int64(2), st.Keys[0].Rows)
	assert.Equal(t, market.Day(2024, time.January, 2), st.Keys[0].MinDate)
	assert.Equal(t, market.Day(2024, time.January, 31), st.Keys[0].MaxDate)
	assert.False(t, st.Keys[0].LastWrite.IsZero())
}
