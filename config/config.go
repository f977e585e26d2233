package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported price source platforms.
const (
	PlatformSnapshot = "snapshot"
	PlatformBinance  = "binance"
	PlatformBybit    = "bybit"
)

const (
	DefaultFeedURL         = "https://interview.switcheo.com/prices.json"
	DefaultDataDir         = "./data"
	DefaultListenAddr      = ":8080"
	DefaultRefreshInterval = time.Minute
	DefaultFeedTimeout     = 10 * time.Second
)

// Config is the resolved daemon configuration.
type Config struct {
	Platform        string
	FeedURL         string
	Symbols         []string
	DataDir         string
	ListenAddr      string
	Domain          string
	RefreshInterval time.Duration
	FeedTimeout     time.Duration

	// Setup asks main to run the interactive wizard instead of the daemon.
	Setup bool
}

// File is the YAML shape of the configuration file.
type File struct {
	Platform        string        `yaml:"platform"`
	FeedURL         string        `yaml:"feed_url,omitempty"`
	Symbols         []string      `yaml:"symbols,omitempty"`
	DataDir         string        `yaml:"data_dir,omitempty"`
	ListenAddr      string        `yaml:"listen_addr,omitempty"`
	Domain          string        `yaml:"domain,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
	FeedTimeout     time.Duration `yaml:"feed_timeout,omitempty"`
}

// Get resolves configuration from a YAML file when --config is provided,
// otherwise from the remaining flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive configuration wizard")
	platform := flag.String("platform", PlatformSnapshot, "price source: snapshot, binance or bybit")
	feedURL := flag.String("feed", DefaultFeedURL, "snapshot price feed URL")
	symbols := flag.String("symbols", "btc,eth,usdt", "comma-separated symbols for exchange price sources")
	dataDir := flag.String("datadir", DefaultDataDir, "directory for wallet and transaction files")
	listenAddr := flag.String("listen", DefaultListenAddr, "HTTP API listen address")
	domain := flag.String("domain", "", "serve TLS for this domain via ACME")
	refreshInterval := flag.Duration("refreshinterval", DefaultRefreshInterval, "price refresh interval")
	feedTimeout := flag.Duration("feedtimeout", DefaultFeedTimeout, "price feed request timeout")
	flag.Parse()

	if *setup {
		return Config{Setup: true}, nil
	}

	if *configPath != "" {
		return fromYaml(*configPath)
	}

	cfg := Config{
		Platform:        strings.ToLower(*platform),
		FeedURL:         *feedURL,
		Symbols:         splitSymbols(*symbols),
		DataDir:         *dataDir,
		ListenAddr:      *listenAddr,
		Domain:          *domain,
		RefreshInterval: *refreshInterval,
		FeedTimeout:     *feedTimeout,
	}

	return cfg, cfg.validate()
}

// ParseFile decodes the YAML configuration file shape.
func ParseFile(payload []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(payload, &f); err != nil {
		return File{}, fmt.Errorf("parse yaml config: %w", err)
	}
	return f, nil
}

func fromYaml(path string) (Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	f, err := ParseFile(payload)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Platform:        strings.ToLower(f.Platform),
		FeedURL:         f.FeedURL,
		Symbols:         f.Symbols,
		DataDir:         f.DataDir,
		ListenAddr:      f.ListenAddr,
		Domain:          f.Domain,
		RefreshInterval: f.RefreshInterval,
		FeedTimeout:     f.FeedTimeout,
	}

	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.FeedTimeout <= 0 {
		cfg.FeedTimeout = DefaultFeedTimeout
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Platform {
	case PlatformSnapshot:
		if c.FeedURL == "" {
			return fmt.Errorf("'feed_url' is required for the snapshot platform")
		}
	case PlatformBinance, PlatformBybit:
		if len(c.Symbols) == 0 {
			return fmt.Errorf("'symbols' is required for the %s platform", c.Platform)
		}
	default:
		return fmt.Errorf("unsupported platform %q, expected snapshot, binance or bybit", c.Platform)
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("'refresh_interval' must be positive")
	}

	return nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")

	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			symbols = append(symbols, p)
		}
	}

	return symbols
}
