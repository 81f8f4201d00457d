package market

import (
	"sort"
	"time"
)

// SortByDate orders bars ascending by date, in place.
func SortByDate(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// Clip returns the bars whose date falls inside [start, end], both ends
// inclusive. The input is not modified; the result shares no backing array
// beyond the selected elements.
func Clip(bars []Bar, start, end time.Time) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// DateRange reports the min and max date across bars. ok is false for an
// empty slice.
func DateRange(bars []Bar) (min, max time.Time, ok bool) {
	if len(bars) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = bars[0].Date, bars[0].Date
	for _, b := range bars[1:] {
		if b.Date.Before(min) {
			min = b.Date
		}
		if b.Date.After(max) {
			max = b.Date
		}
	}
	return min, max, true
}
