package market

import "fmt"

// Interval is the sampling granularity of a price series.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// ParseInterval accepts either the canonical names or the Yahoo-style
// short codes ("1d", "1wk", "1mo").
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "daily", "1d", "d":
		return Daily, nil
	case "weekly", "1wk", "w":
		return Weekly, nil
	case "monthly", "1mo", "m":
		return Monthly, nil
	}
	return "", fmt.Errorf("unsupported interval: %q (want daily, weekly or monthly)", s)
}

func (iv Interval) Valid() bool {
	switch iv {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// ChartCode returns the interval parameter the Yahoo chart API expects.
func (iv Interval) ChartCode() string {
	switch iv {
	case Weekly:
		return "1wk"
	case Monthly:
		return "1mo"
	default:
		return "1d"
	}
}

func (iv Interval) String() string {
	return string(iv)
}
