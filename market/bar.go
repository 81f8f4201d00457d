package market

import (
	"fmt"
	"time"
)

// Bar represents one OHLC (Open, High, Low, Close) period of a price series.
// Volume is optional; upstream sources do not report it for every instrument,
// so HasVolume records whether the value is real or just zero.
type Bar struct {
	Date      time.Time // trading date, UTC midnight
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	HasVolume bool
}

// Key identifies one logical time series in the cache.
type Key struct {
	Symbol   string
	Interval Interval
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Symbol, k.Interval)
}

// Day builds a UTC-midnight date, the normalized form every Bar.Date uses.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
