package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, 30*24*time.Hour, cfg.Cache.MaxAge())
}

func TestLoadFromYAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
cache:
  db_path: /tmp/cache.db
  max_age_days: 7
fetch:
  timeout_seconds: 10
  proxy_url: http://localhost:8080
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/cache.db", cfg.Cache.DBPath)
	assert.Equal(t, 7, cfg.Cache.MaxAgeDays)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, "http://localhost:8080", cfg.Fetch.ProxyURL)
}

func TestLoadFromJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"cache":{"db_path":"cache.db","max_age_days":1},"fetch":{"timeout_seconds":5}}`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "cache.db", cfg.Cache.DBPath)
	assert.Equal(t, 5, cfg.Fetch.TimeoutSeconds)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.DBPath = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Cache.MaxAgeDays = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fetch.TimeoutSeconds = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateProxyURL(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Fetch.ProxyURL = "http://localhost:8080"
	assert.NoError(t, cfg.Validate())

	// a relative or garbled proxy must be rejected, not silently ignored
	for _, bad := range []string{"localhost:8080:extra", "://nope", "just-a-host"} {
		cfg = Default()
		cfg.Fetch.ProxyURL = bad
		assert.Error(t, cfg.Validate(), bad)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Cache.DBPath = "elsewhere.db"

	assert.NoError(t, cfg.SaveToFile(path))
	loaded, err := LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
