package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/ThisIsLeoZhao/stock/cache"
	"github.com/ThisIsLeoZhao/stock/fetch"
	"github.com/ThisIsLeoZhao/stock/market"
)

// InvalidRequestError rejects a request before any cache or upstream work
// happens. It is never retried.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Source says where a result's bars came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
	// SourceStale marks a degraded answer: the upstream fetch failed and
	// previously cached rows were served instead.
	SourceStale Source = "stale-cache"
)

// Request asks for a symbol's history over a lookback period.
type Request struct {
	Symbol       string
	Period       string // e.g. "10y", "6mo", "30d"
	Interval     string // daily, weekly or monthly
	ForceRefresh bool
}

// Result carries the bars plus enough provenance to reason about how the
// request was served. CacheErr records any storage failure that was absorbed
// along the way; the request still succeeded, the cache just did not help.
type Result struct {
	Bars     []market.Bar
	Source   Source
	CacheErr error
}

// Service is the outward-facing entry point: cache first, upstream on miss,
// stale cache when upstream fails.
type Service struct {
	cache   *cache.Manager
	fetcher fetch.Fetcher
	logger  *log.Logger
	now     func() time.Time
}

// New builds a Service. logger may be nil.
func New(cm *cache.Manager, fetcher fetch.Fetcher, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		cache:   cm,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// History returns bars for the requested window.
//
// The flow is fixed: validate, check coverage, fetch on miss, merge, slice.
// A fetch failure falls back to whatever covering data the cache already
// holds; only when that is empty too does the upstream error reach the
// caller. Cache failures never do.
func (s *Service) History(ctx context.Context, req Request) (Result, error) {
	symbol, period, interval, err := validate(req)
	if err != nil {
		return Result{}, err
	}

	start, end, err := period.Window(s.now())
	if err != nil {
		return Result{}, &InvalidRequestError{Field: "period", Reason: err.Error()}
	}
	key := market.Key{Symbol: symbol, Interval: interval}

	var cacheErr error
	if !req.ForceRefresh {
		bars, cerr := s.cache.Get(key, start, end)
		if cerr != nil {
			cacheErr = cerr
		}
		if bars != nil {
			s.logger.Printf("%s: served %d bars from cache", key, len(bars))
			return Result{Bars: bars, Source: SourceCache, CacheErr: cacheErr}, nil
		}
	}

	fresh, err := s.fetcher.Fetch(ctx, symbol, period, interval)
	if err == nil && len(fresh) == 0 {
		// A fetcher should never answer with zero bars, but guard anyway:
		// caching an empty series would poison every later coverage check.
		err = &fetch.UpstreamError{Symbol: symbol, Err: fmt.Errorf("upstream returned no bars")}
	}
	if err != nil {
		s.logger.Printf("%s: fetch failed: %v", key, err)
		bars, cerr := s.cache.Get(key, start, end)
		if cerr != nil {
			cacheErr = cerr
		}
		if bars != nil {
			s.logger.Printf("%s: falling back to %d stale cached bars", key, len(bars))
			return Result{Bars: bars, Source: SourceStale, CacheErr: cacheErr}, nil
		}
		return Result{CacheErr: cacheErr}, err
	}

	if perr := s.cache.Put(key, fresh); perr != nil {
		// Caching is an optimization; the fresh bars are still good.
		cacheErr = perr
	}

	bars := fresh
	if min, max, ok := market.DateRange(fresh); ok && (min.Before(start) || max.After(end)) {
		bars = market.Clip(fresh, start, end)
	}
	s.logger.Printf("%s: served %d bars from upstream", key, len(bars))
	return Result{Bars: bars, Source: SourceUpstream, CacheErr: cacheErr}, nil
}

// Evict removes cached series; empty symbol or interval widens the match,
// both empty clears everything.
func (s *Service) Evict(symbol, interval string) (int64, error) {
	var iv market.Interval
	if interval != "" {
		parsed, err := market.ParseInterval(interval)
		if err != nil {
			return 0, &InvalidRequestError{Field: "interval", Reason: err.Error()}
		}
		iv = parsed
	}
	return s.cache.Evict(strings.ToUpper(strings.TrimSpace(symbol)), iv)
}

// Cleanup removes rows last written more than maxAge ago.
func (s *Service) Cleanup(maxAge time.Duration) (int64, error) {
	return s.cache.Cleanup(maxAge)
}

// CacheInfo reports cache statistics; it never fails.
func (s *Service) CacheInfo() cache.Stats {
	return s.cache.Info()
}

func validate(req Request) (string, fetch.Period, market.Interval, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return "", "", "", &InvalidRequestError{Field: "symbol", Reason: "must be non-empty"}
	}

	interval, err := market.ParseInterval(req.Interval)
	if err != nil {
		return "", "", "", &InvalidRequestError{Field: "interval", Reason: err.Error()}
	}

	period, err := fetch.ParsePeriod(req.Period)
	if err != nil {
		return "", "", "", &InvalidRequestError{Field: "period", Reason: err.Error()}
	}

	return symbol, period, interval, nil
}
