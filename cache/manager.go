package cache

import (
	"io"
	"log"
	"time"

	"github.com/ThisIsLeoZhao/stock/market"
)

// Manager is the public face of the cache. It decides whether stored data
// satisfies a request, merges fetched ranges into the store, and keeps
// storage failures contained: a broken cache looks like an empty cache,
// never like a broken request.
type Manager struct {
	store  *Store
	logger *log.Logger
	now    func() time.Time
}

// NewManager wraps store. logger may be nil, in which case the manager stays
// silent.
func NewManager(store *Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the stored bars for [start, end] if coverage holds. A nil
// slice with nil error is a miss: no coverage, or coverage whose window
// turned out to contain no rows (a weekend-only request can do that).
//
// A non-nil error is always a *StorageError and means the cache is degraded;
// the caller should treat it exactly like a miss, but can observe it.
func (m *Manager) Get(key market.Key, start, end time.Time) ([]market.Bar, error) {
	if !m.store.Covers(key, start, end) {
		return nil, nil
	}

	// Coverage only guarantees the boundary. Re-filter the actual rows to
	// the requested window; interior trading-day gaps are expected.
	bars, err := m.store.Query(key, start, end)
	if err != nil {
		m.logger.Printf("get %s: degraded to miss: %v", key, err)
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	return bars, nil
}

// Put merges a fetched batch into the store. An empty batch is a logged
// no-op: upstream returning nothing must never masquerade as a stored
// series. A returned *StorageError is advisory; the bars were simply not
// cached.
func (m *Manager) Put(key market.Key, bars []market.Bar) error {
	if len(bars) == 0 {
		m.logger.Printf("put %s: empty batch ignored", key)
		return nil
	}
	if err := m.store.Upsert(key, bars); err != nil {
		m.logger.Printf("put %s: %v", key, err)
		return err
	}
	min, max, _ := market.DateRange(bars)
	m.logger.Printf("put %s: %d bars (%s to %s)",
		key, len(bars), min.Format(dateLayout), max.Format(dateLayout))
	return nil
}

// Evict removes stored series. All four combinations are supported:
//
//	Evict("AAPL", market.Daily)  one exact key
//	Evict("AAPL", "")            every interval of a symbol
//	Evict("", market.Daily)      every symbol at an interval
//	Evict("", "")                everything
//
// It returns the number of rows removed.
func (m *Manager) Evict(symbol string, interval market.Interval) (int64, error) {
	switch {
	case symbol != "" && interval != "":
		return m.store.DeleteKey(market.Key{Symbol: symbol, Interval: interval})
	case symbol != "":
		return m.store.DeleteSymbol(symbol)
	case interval != "":
		return m.store.DeleteInterval(interval)
	default:
		return m.store.DeleteAll()
	}
}

// Cleanup evicts rows last written more than maxAge ago. Age never affects
// Get; this is the only place the write timestamp matters.
func (m *Manager) Cleanup(maxAge time.Duration) (int64, error) {
	n, err := m.store.DeleteOlderThan(m.now().Add(-maxAge))
	if err != nil {
		m.logger.Printf("cleanup: %v", err)
		return n, err
	}
	if n > 0 {
		m.logger.Printf("cleanup: removed %d rows older than %s", n, maxAge)
	}
	return n, nil
}

// Info reports cache statistics. It never fails: on an internal error the
// stats come back zeroed with Err set.
func (m *Manager) Info() Stats {
	st, err := m.store.Stats()
	if err != nil {
		m.logger.Printf("info: %v", err)
		return Stats{DBPath: m.store.path, Err: err.Error()}
	}
	return st
}
