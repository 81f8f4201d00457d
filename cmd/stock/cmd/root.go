package cmd

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ThisIsLeoZhao/stock/cache"
	"github.com/ThisIsLeoZhao/stock/config"
	"github.com/ThisIsLeoZhao/stock/fetch"
	"github.com/ThisIsLeoZhao/stock/service"
)

var rootCmd = &cobra.Command{
	Use:   "stock",
	Short: "Historical stock price fetcher with a coverage-based cache",
	Long: `Stock retrieves historical price series and keeps them in a local
SQLite cache. A request is answered from the cache whenever the stored
date range covers it; otherwise the upstream source is fetched once and
merged, so repeated lookups over the same window cost nothing.

Commands:
  history  - fetch bars for a symbol over a lookback period
  cache    - inspect, evict or clean up the cache
  version  - print the version`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var cfgFile string

func init() {
	// A .env next to the binary may carry STOCK_DB / STOCK_PROXY.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
}

// loadConfig resolves configuration: file if given, defaults otherwise, then
// environment overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if db := os.Getenv("STOCK_DB"); db != "" {
		cfg.Cache.DBPath = db
	}
	if proxy := os.Getenv("STOCK_PROXY"); proxy != "" {
		cfg.Fetch.ProxyURL = proxy
	}
	// Environment overrides bypass LoadFromFile, so re-validate here; a bad
	// proxy URL must fail loudly instead of degrading to a direct connection.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService wires the store, manager, fetcher and service together. The
// caller owns the returned closer.
func openService(cfg *config.Config, verbose bool) (*service.Service, *cache.Store, error) {
	if dir := filepath.Dir(cfg.Cache.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
	}

	store, err := cache.NewStore(cfg.Cache.DBPath)
	if err != nil {
		return nil, nil, err
	}

	var logger *log.Logger
	if verbose {
		logger = log.New(os.Stderr, "stock: ", log.LstdFlags)
	}

	manager := cache.NewManager(store, logger)
	fetcher := fetch.NewYahooClient(cfg.Fetch.Timeout(), cfg.Fetch.ProxyURL)
	svc := service.New(manager, fetcher, logger)
	return svc, store, nil
}
