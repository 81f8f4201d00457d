package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the price cache",
	Long: `Inspect and manage the local price cache.

Subcommands:
  info     - show cached series and storage footprint
  evict    - remove cached series by symbol and/or interval
  cleanup  - remove rows last written before an age threshold

Examples:
  stock cache info
  stock cache evict --symbol AAPL
  stock cache evict --symbol AAPL --interval daily
  stock cache evict --all
  stock cache cleanup --older-than 30
  stock cache cleanup --older-than 7 --schedule "@daily"`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Remove cached series",
	Args:  cobra.NoArgs,
	RunE:  runCacheEvict,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove rows older than a write-age threshold",
	Args:  cobra.NoArgs,
	RunE:  runCacheCleanup,
}

var (
	evictSymbol   string
	evictInterval string
	evictAll      bool

	cleanupDays     int
	cleanupSchedule string
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)

	cacheEvictCmd.Flags().StringVarP(&evictSymbol, "symbol", "s", "", "only this symbol")
	cacheEvictCmd.Flags().StringVarP(&evictInterval, "interval", "i", "", "only this interval")
	cacheEvictCmd.Flags().BoolVar(&evictAll, "all", false, "clear the entire cache")

	cacheCleanupCmd.Flags().IntVar(&cleanupDays, "older-than", 0, "remove rows written more than this many days ago (0 = config default)")
	cacheCleanupCmd.Flags().StringVar(&cleanupSchedule, "schedule", "", "cron spec; keep running and clean up on this schedule")
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, store, err := openService(cfg, false)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	st := svc.CacheInfo()
	if st.Err != "" {
		fmt.Printf("cache unavailable: %s\n", st.Err)
		return nil
	}

	fmt.Printf("Database: %s (%.3f MB)\n", st.DBPath, float64(st.DBSizeBytes)/(1024*1024))
	fmt.Printf("Total rows: %d\n\n", st.TotalRows)
	if len(st.Keys) == 0 {
		fmt.Println("cache is empty")
		return nil
	}

	fmt.Printf("%-10s %-8s %-12s %-12s %8s  %s\n", "SYMBOL", "INTERVAL", "FROM", "TO", "ROWS", "LAST WRITE")
	for _, k := range st.Keys {
		fmt.Printf("%-10s %-8s %-12s %-12s %8d  %s\n",
			k.Symbol, k.Interval,
			k.MinDate.Format("2006-01-02"), k.MaxDate.Format("2006-01-02"),
			k.Rows, k.LastWrite.Format(time.RFC3339))
	}
	return nil
}

func runCacheEvict(cmd *cobra.Command, args []string) error {
	if evictSymbol == "" && evictInterval == "" && !evictAll {
		return fmt.Errorf("refusing to clear the whole cache without --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, store, err := openService(cfg, false)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	n, err := svc.Evict(evictSymbol, evictInterval)
	if err != nil {
		return err
	}
	fmt.Printf("evicted %d rows\n", n)
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	days := cleanupDays
	if days == 0 {
		days = cfg.Cache.MaxAgeDays
	}
	maxAge := time.Duration(days) * 24 * time.Hour

	svc, store, err := openService(cfg, cleanupSchedule != "")
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	runOnce := func() {
		n, err := svc.Cleanup(maxAge)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
			return
		}
		fmt.Printf("removed %d rows older than %d days\n", n, days)
	}

	if cleanupSchedule == "" {
		runOnce()
		return nil
	}

	// Scheduled mode: the cache never evicts on its own, so a cron loop in
	// the caller is how periodic cleanup happens.
	c := cron.New()
	if _, err := c.AddFunc(cleanupSchedule, runOnce); err != nil {
		return fmt.Errorf("bad schedule %q: %w", cleanupSchedule, err)
	}
	c.Start()
	defer c.Stop()

	fmt.Printf("cleanup scheduled (%s); press Ctrl-C to stop\n", cleanupSchedule)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
