package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Provider.BaseURL = "http://127.0.0.1:0/v2" // tests point this at an httptest server
	cfg.Provider.APIKey = "test-key"
	cfg.Provider.HTTPTimeout = 5 * time.Second
	cfg.Provider.UserAgent = "newsdesk-test/1.0"
	cfg.Provider.RequestsPerSecond = 1000
	cfg.Provider.Burst = 1000
	cfg.Catalog.Path = "" // tests open their own store under t.TempDir()
	cfg.Log.Level = "off"
	cfg.Log.File = ""
	return cfg
}
