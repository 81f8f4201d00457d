package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ThisIsLeoZhao/stock/market"
)

// Fetcher retrieves raw OHLCV bars for a symbol from an upstream source.
// Implementations must return only bars with all four of open/high/low/close
// present; bars with missing values are dropped before they can reach the
// cache. An upstream that answers with no bars at all is an error, never an
// empty success.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, period Period, interval market.Interval) ([]market.Bar, error)
}

// Period is a lookback length like "10y", "6mo" or "30d".
type Period string

// ParsePeriod validates the period format.
func ParsePeriod(s string) (Period, error) {
	_, err := periodDays(s)
	if err != nil {
		return "", err
	}
	return Period(s), nil
}

func periodDays(s string) (int, error) {
	var digits string
	switch {
	case strings.HasSuffix(s, "mo"):
		digits = strings.TrimSuffix(s, "mo")
	case strings.HasSuffix(s, "y"), strings.HasSuffix(s, "d"):
		digits = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("unsupported period format: %q (want e.g. 10y, 6mo, 30d)", s)
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported period format: %q (want e.g. 10y, 6mo, 30d)", s)
	}

	switch {
	case strings.HasSuffix(s, "mo"):
		return n * 30, nil
	case strings.HasSuffix(s, "y"):
		return n * 365, nil
	default:
		return n, nil
	}
}

// Window converts the period to a concrete closed date range ending today.
// A Period that did not come through ParsePeriod can be malformed, so the
// format error surfaces here too.
func (p Period) Window(today time.Time) (start, end time.Time, err error) {
	days, err := periodDays(string(p))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end = market.Midnight(today)
	return end.AddDate(0, 0, -days), end, nil
}

// UpstreamError reports that the source could not produce data for a symbol.
type UpstreamError struct {
	Symbol string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
