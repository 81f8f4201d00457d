package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ThisIsLeoZhao/stock/service"
)

var historyCmd = &cobra.Command{
	Use:   "history <symbol>",
	Short: "Fetch historical bars for a symbol",
	Long: `Fetch historical OHLCV bars for a symbol over a lookback period.

The cache is consulted first; the upstream source is only called when the
stored date range does not cover the request. If the upstream call fails
but covering cached data exists, the stale data is served and marked.

Examples:
  stock history AAPL
  stock history AAPL --period 1y --interval weekly
  stock history GOOGL --period 6mo --refresh`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var (
	historyPeriod   string
	historyInterval string
	historyRefresh  bool
	historyVerbose  bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyPeriod, "period", "p", "1y", "lookback period (e.g. 10y, 6mo, 30d)")
	historyCmd.Flags().StringVarP(&historyInterval, "interval", "i", "daily", "bar interval: daily, weekly or monthly")
	historyCmd.Flags().BoolVarP(&historyRefresh, "refresh", "r", false, "ignore the cache and fetch fresh data")
	historyCmd.Flags().BoolVarP(&historyVerbose, "verbose", "v", false, "log cache and fetch activity")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, store, err := openService(cfg, historyVerbose)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	res, err := svc.History(cmd.Context(), service.Request{
		Symbol:       args[0],
		Period:       historyPeriod,
		Interval:     historyInterval,
		ForceRefresh: historyRefresh,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %10s %10s %10s %10s %12s\n", "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
	for _, b := range res.Bars {
		vol := "-"
		if b.HasVolume {
			vol = fmt.Sprintf("%d", b.Volume)
		}
		fmt.Printf("%-12s %10.2f %10.2f %10.2f %10.2f %12s\n",
			b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, vol)
	}
	fmt.Printf("\n%d bars (source: %s)\n", len(res.Bars), res.Source)
	if res.Source == service.SourceStale {
		fmt.Println("warning: upstream fetch failed, served previously cached data")
	}
	if res.CacheErr != nil {
		fmt.Printf("warning: cache degraded: %v\n", res.CacheErr)
	}
	return nil
}
