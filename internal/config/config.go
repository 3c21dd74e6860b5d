package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/newsdesk/internal/query"
	"github.com/pders01/newsdesk/internal/validation"
)

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Search   SearchConfig   `mapstructure:"search"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ProviderConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	PageSize          int           `mapstructure:"page_size"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the provider.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

type SearchConfig struct {
	DefaultSources []string `mapstructure:"default_sources"`
	DefaultMode    string   `mapstructure:"default_mode"`
	DefaultOrderBy string   `mapstructure:"default_order_by"`
}

type CatalogConfig struct {
	Path   string        `mapstructure:"path"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors"`
	Article ArticleConfig `mapstructure:"article"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type ArticleConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit     string `mapstructure:"quit"`
	Search   string `mapstructure:"search"`
	Mode     string `mapstructure:"mode"`
	OrderBy  string `mapstructure:"order_by"`
	Sources  string `mapstructure:"sources"`
	NextPage string `mapstructure:"next_page"`
	PrevPage string `mapstructure:"prev_page"`
	Open     string `mapstructure:"open"`
	Dismiss  string `mapstructure:"dismiss"`
	Refresh  string `mapstructure:"refresh"`
	Back     string `mapstructure:"back"`
	Help     string `mapstructure:"help"`
}

type BrowserConfig struct {
	DefaultOpener string `mapstructure:"default_opener"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".newsdesk")

	return &Config{
		Provider: ProviderConfig{
			BaseURL:           "https://newsapi.org/v2",
			HTTPTimeout:       30 * time.Second,
			PageSize:          20,
			UserAgent:         "newsdesk/1.0 (https://github.com/pders01/newsdesk)",
			RequestsPerSecond: 2,
			Burst:             5,
			Breaker: BreakerConfig{
				MaxRequests:      3,
				Interval:         60 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.6,
				MinRequests:      5,
			},
		},
		Search: SearchConfig{
			DefaultSources: []string{"cnn", "the-wall-street-journal", "fox-news"},
			DefaultMode:    "top-headlines",
			DefaultOrderBy: "publishedAt",
		},
		Catalog: CatalogConfig{
			Path:   filepath.Join(dataDir, "sources.db"),
			MaxAge: 24 * time.Hour,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Article: ArticleConfig{
				MaxDescriptionLength: 150,
				WordWrapMaxWidth:     120,
				WordWrapMinWidth:     40,
			},
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:     "q",
				Search:   "s",
				Mode:     "t",
				OrderBy:  "f",
				Sources:  "p",
				NextPage: "n",
				PrevPage: "b",
				Open:     "o",
				Dismiss:  "d",
				Refresh:  "r",
				Back:     "esc",
				Help:     "?",
			},
		},
		Browser: BrowserConfig{
			DefaultOpener: getDefaultOpener(),
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "newsdesk.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// flatten turns the config into dotted viper keys so that defaults, partial
// config files and NEWSDESK_* environment variables merge key by key.
func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"provider.base_url":                  cfg.Provider.BaseURL,
		"provider.api_key":                   cfg.Provider.APIKey,
		"provider.http_timeout":              cfg.Provider.HTTPTimeout.String(),
		"provider.page_size":                 cfg.Provider.PageSize,
		"provider.user_agent":                cfg.Provider.UserAgent,
		"provider.requests_per_second":       cfg.Provider.RequestsPerSecond,
		"provider.burst":                     cfg.Provider.Burst,
		"provider.breaker.max_requests":      cfg.Provider.Breaker.MaxRequests,
		"provider.breaker.interval":          cfg.Provider.Breaker.Interval.String(),
		"provider.breaker.timeout":           cfg.Provider.Breaker.Timeout.String(),
		"provider.breaker.failure_threshold": cfg.Provider.Breaker.FailureThreshold,
		"provider.breaker.min_requests":      cfg.Provider.Breaker.MinRequests,
		"search.default_sources":             cfg.Search.DefaultSources,
		"search.default_mode":                cfg.Search.DefaultMode,
		"search.default_order_by":            cfg.Search.DefaultOrderBy,
		"catalog.path":                       cfg.Catalog.Path,
		"catalog.max_age":                    cfg.Catalog.MaxAge.String(),
		"ui.colors.primary":                  cfg.UI.Colors.Primary,
		"ui.colors.secondary":                cfg.UI.Colors.Secondary,
		"ui.colors.accent":                   cfg.UI.Colors.Accent,
		"ui.colors.background":               cfg.UI.Colors.Background,
		"ui.colors.surface":                  cfg.UI.Colors.Surface,
		"ui.colors.text":                     cfg.UI.Colors.Text,
		"ui.colors.muted":                    cfg.UI.Colors.Muted,
		"ui.colors.error":                    cfg.UI.Colors.Error,
		"ui.colors.success":                  cfg.UI.Colors.Success,
		"ui.article.max_description_length":  cfg.UI.Article.MaxDescriptionLength,
		"ui.article.word_wrap_max_width":     cfg.UI.Article.WordWrapMaxWidth,
		"ui.article.word_wrap_min_width":     cfg.UI.Article.WordWrapMinWidth,
		"keys.modifier":                      cfg.Keys.Modifier,
		"keys.bindings.quit":                 cfg.Keys.Bindings.Quit,
		"keys.bindings.search":               cfg.Keys.Bindings.Search,
		"keys.bindings.mode":                 cfg.Keys.Bindings.Mode,
		"keys.bindings.order_by":             cfg.Keys.Bindings.OrderBy,
		"keys.bindings.sources":              cfg.Keys.Bindings.Sources,
		"keys.bindings.next_page":            cfg.Keys.Bindings.NextPage,
		"keys.bindings.prev_page":            cfg.Keys.Bindings.PrevPage,
		"keys.bindings.open":                 cfg.Keys.Bindings.Open,
		"keys.bindings.dismiss":              cfg.Keys.Bindings.Dismiss,
		"keys.bindings.refresh":              cfg.Keys.Bindings.Refresh,
		"keys.bindings.back":                 cfg.Keys.Bindings.Back,
		"keys.bindings.help":                 cfg.Keys.Bindings.Help,
		"browser.default_opener":             cfg.Browser.DefaultOpener,
		"log.level":                          cfg.Log.Level,
		"log.file":                           cfg.Log.File,
		"metrics.addr":                       cfg.Metrics.Addr,
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range flatten(defaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "newsdesk")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NEWSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := expandPaths(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks settings that would otherwise only fail on first use.
func (c *Config) Validate() error {
	baseURL, err := validation.NewAPIURLValidator().ValidateAndNormalize(c.Provider.BaseURL)
	if err != nil {
		return fmt.Errorf("provider.base_url: %w", err)
	}
	c.Provider.BaseURL = baseURL

	if c.Provider.PageSize < 1 || c.Provider.PageSize > 100 {
		return fmt.Errorf("provider.page_size must be between 1 and 100, got %d", c.Provider.PageSize)
	}
	if c.Provider.RequestsPerSecond <= 0 {
		return fmt.Errorf("provider.requests_per_second must be positive")
	}
	if c.Provider.Breaker.FailureThreshold <= 0 || c.Provider.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("provider.breaker.failure_threshold must be in (0, 1]")
	}
	if err := query.ValidateSourceIDs(query.NewSources(c.Search.DefaultSources...)); err != nil {
		return fmt.Errorf("search.default_sources: %w", err)
	}
	return nil
}

// expandPaths resolves the data file locations.
func expandPaths(cfg *Config) error {
	v := validation.NewFilePathValidator()

	catalogPath, err := v.ValidateFile(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	cfg.Catalog.Path = catalogPath

	logFile, err := v.ValidateFile(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("log.file: %w", err)
	}
	cfg.Log.File = logFile
	return nil
}

// Save writes cfg as TOML. Durations are stored as strings for readability.
func Save(config *Config, path string) error {
	v := viper.New()

	for key, value := range flatten(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// DefaultPath is where GenerateDefaultConfig writes when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "newsdesk", "config.toml")
}
