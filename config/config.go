// Package config loads screener configuration from a YAML file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Subakiz/IDX-SCREENER/internal/services/history"
	"github.com/Subakiz/IDX-SCREENER/internal/services/regime"
	"github.com/Subakiz/IDX-SCREENER/internal/services/topology"
)

// Feed kinds.
const (
	FeedMock     = "mock"
	FeedStockbit = "stockbit"
	FeedBinance  = "binance"
)

// Store kinds.
const (
	StoreWAL      = "wal"
	StorePostgres = "postgres"
)

// Notifier kinds.
const (
	NotifierLog      = "log"
	NotifierTelegram = "telegram"
)

// Config holds the runtime parameters for one tracked symbol.
type Config struct {
	Symbol string

	Feed        string
	Store       string
	Notifier    string
	WalDir      string
	PostgresDSN string
	CookiesPath string

	QueueSize  int
	HistoryCap int

	WindowSize       int
	EvaluationStride int
	CrashThreshold   float64
	StableThreshold  float64
	ScoreTimeout     time.Duration

	MCPaths   int
	MCHorizon int
	MCStepDt  float64

	TelegramChatID int64

	MockStartPrice float64
	MockInterval   time.Duration

	MetricsAddr   string
	SignalsWalDir string
}

// ConfigTmp is the yaml-facing shape of a symbol entry. Exported so the
// setup wizard can marshal generated configs.
type ConfigTmp struct {
	Symbol           string  `yaml:"symbol"`
	Feed             string  `yaml:"feed,omitempty"`
	Store            string  `yaml:"store,omitempty"`
	Notifier         string  `yaml:"notifier,omitempty"`
	WalDir           string  `yaml:"wal_dir,omitempty"`
	PostgresDSN      string  `yaml:"postgres_dsn,omitempty"`
	CookiesPath      string  `yaml:"cookies_path,omitempty"`
	QueueSize        int     `yaml:"queue_size,omitempty"`
	HistoryCap       int     `yaml:"history_cap,omitempty"`
	WindowSize       int     `yaml:"window_size,omitempty"`
	EvaluationStride int     `yaml:"evaluation_stride,omitempty"`
	CrashThreshold   float64 `yaml:"crash_threshold,omitempty"`
	StableThreshold  float64 `yaml:"stable_threshold,omitempty"`
	ScoreTimeoutStr  string  `yaml:"score_timeout,omitempty"`
	MCPaths          int     `yaml:"mc_paths,omitempty"`
	MCHorizon        int     `yaml:"mc_horizon,omitempty"`
	MCStepDt         float64 `yaml:"mc_step_dt,omitempty"`
	TelegramChatID   int64   `yaml:"telegram_chat_id,omitempty"`
	MockStartPrice   float64 `yaml:"mock_start_price,omitempty"`
	MockIntervalStr  string  `yaml:"mock_interval,omitempty"`
	MetricsAddr      string  `yaml:"metrics_addr,omitempty"`
	SignalsWalDir    string  `yaml:"signals_wal_dir,omitempty"`
}

// Get reads configuration from --config yaml (a list of per-symbol configs)
// or, absent that, from CLI flags for a single symbol.
func Get() ([]Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	symbol := flag.String("symbol", "BBRI", "tracked symbol, example: BBRI")
	feedKind := flag.String("feed", FeedMock, "tick source: mock, stockbit or binance")
	storeKind := flag.String("store", StoreWAL, "tick store: wal or postgres")
	notifierKind := flag.String("notifier", NotifierLog, "signal notifier: log or telegram")
	metricsAddr := flag.String("metrics", ":9100", "prometheus metrics listen address")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	conf := withDefaults(ConfigTmp{
		Symbol:      *symbol,
		Feed:        *feedKind,
		Store:       *storeKind,
		Notifier:    *notifierKind,
		MetricsAddr: *metricsAddr,
	})
	parsed, err := finalize(conf)
	if err != nil {
		return nil, err
	}
	return []Config{parsed}, nil
}

func getYaml(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmps []ConfigTmp
	if err := yaml.Unmarshal(f, &tmps); err != nil {
		return nil, err
	}
	if len(tmps) == 0 {
		return nil, fmt.Errorf("config %s contains no symbol entries", path)
	}

	configs := make([]Config, 0, len(tmps))
	for _, tmp := range tmps {
		parsed, err := finalize(withDefaults(tmp))
		if err != nil {
			return nil, err
		}
		configs = append(configs, parsed)
	}
	return configs, nil
}

func withDefaults(c ConfigTmp) ConfigTmp {
	if c.Feed == "" {
		c.Feed = FeedMock
	}
	if c.Store == "" {
		c.Store = StoreWAL
	}
	if c.Notifier == "" {
		c.Notifier = NotifierLog
	}
	if c.CookiesPath == "" {
		c.CookiesPath = "stockbit_cookies.json"
	}
	if c.QueueSize == 0 {
		c.QueueSize = 1024
	}
	if c.HistoryCap == 0 {
		c.HistoryCap = history.DefaultCap
	}
	if c.WindowSize == 0 {
		c.WindowSize = regime.DefaultWindowSize
	}
	if c.EvaluationStride == 0 {
		c.EvaluationStride = regime.DefaultEvaluationStride
	}
	if c.CrashThreshold == 0 {
		c.CrashThreshold = regime.DefaultCrashThreshold
	}
	if c.StableThreshold == 0 {
		c.StableThreshold = regime.DefaultStableThreshold
	}
	if c.ScoreTimeoutStr == "" {
		c.ScoreTimeoutStr = topology.DefaultScoreTimeout.String()
	}
	if c.MCPaths == 0 {
		c.MCPaths = 500
	}
	if c.MCHorizon == 0 {
		c.MCHorizon = 5
	}
	if c.MCStepDt == 0 {
		c.MCStepDt = 1.0 / 252
	}
	if c.MockStartPrice == 0 {
		c.MockStartPrice = 4800
	}
	if c.MockIntervalStr == "" {
		c.MockIntervalStr = "10ms"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9100"
	}
	return c
}

func finalize(c ConfigTmp) (Config, error) {
	if c.Symbol == "" {
		return Config{}, fmt.Errorf("'symbol' is required")
	}

	switch c.Feed {
	case FeedMock, FeedStockbit, FeedBinance:
	default:
		return Config{}, fmt.Errorf("unknown feed %q for %s", c.Feed, c.Symbol)
	}
	switch c.Store {
	case StoreWAL:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return Config{}, fmt.Errorf("'postgres_dsn' is required for %s with the postgres store", c.Symbol)
		}
	default:
		return Config{}, fmt.Errorf("unknown store %q for %s", c.Store, c.Symbol)
	}
	switch c.Notifier {
	case NotifierLog:
	case NotifierTelegram:
		if c.TelegramChatID == 0 {
			return Config{}, fmt.Errorf("'telegram_chat_id' is required for %s with the telegram notifier", c.Symbol)
		}
	default:
		return Config{}, fmt.Errorf("unknown notifier %q for %s", c.Notifier, c.Symbol)
	}

	if c.CrashThreshold <= c.StableThreshold {
		return Config{}, fmt.Errorf("'crash_threshold' must exceed 'stable_threshold' for %s", c.Symbol)
	}
	if c.MCPaths < 1 {
		return Config{}, fmt.Errorf("'mc_paths' must be >= 1 for %s", c.Symbol)
	}

	scoreTimeout, err := time.ParseDuration(c.ScoreTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'score_timeout' for %s: %w", c.Symbol, err)
	}
	mockInterval, err := time.ParseDuration(c.MockIntervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'mock_interval' for %s: %w", c.Symbol, err)
	}

	return Config{
		Symbol:           c.Symbol,
		Feed:             c.Feed,
		Store:            c.Store,
		Notifier:         c.Notifier,
		WalDir:           c.WalDir,
		PostgresDSN:      c.PostgresDSN,
		CookiesPath:      c.CookiesPath,
		QueueSize:        c.QueueSize,
		HistoryCap:       c.HistoryCap,
		WindowSize:       c.WindowSize,
		EvaluationStride: c.EvaluationStride,
		CrashThreshold:   c.CrashThreshold,
		StableThreshold:  c.StableThreshold,
		ScoreTimeout:     scoreTimeout,
		MCPaths:          c.MCPaths,
		MCHorizon:        c.MCHorizon,
		MCStepDt:         c.MCStepDt,
		TelegramChatID:   c.TelegramChatID,
		MockStartPrice:   c.MockStartPrice,
		MockInterval:     mockInterval,
		MetricsAddr:      c.MetricsAddr,
		SignalsWalDir:    c.SignalsWalDir,
	}, nil
}
