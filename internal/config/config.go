package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 顶层运行配置，按子系统分节。
type Config struct {
	Binance BinanceConfig `toml:"binance"`
	Scan    ScanConfig    `toml:"scan"`
	Signal  SignalConfig  `toml:"signal"`
	Trend   TrendConfig   `toml:"trend"`
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

type BinanceConfig struct {
	APIKey             string `toml:"api_key"`
	APISecret          string `toml:"api_secret"`
	BaseURL            string `toml:"base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
}

type ScanConfig struct {
	Symbols        []string `toml:"symbols"`
	SymbolsAPIURL  string   `toml:"symbols_api_url"`
	RefreshSeconds int      `toml:"refresh_seconds"`
	Intervals      []string `toml:"intervals"`
	HistoryBars    int      `toml:"history_bars"`
	Concurrency    int      `toml:"concurrency"`
	CacheSeconds   int      `toml:"cache_seconds"`
	RSIScreenMax   float64  `toml:"rsi_screen_max"`
}

type SignalConfig struct {
	ChannelLen     int     `toml:"channel_len"`
	AverageLen     int     `toml:"average_len"`
	MALen          int     `toml:"ma_len"`
	Overbought     float64 `toml:"overbought"`
	Oversold       float64 `toml:"oversold"`
	DeepOversold   float64 `toml:"deep_oversold"`
	RSIPeriod      int     `toml:"rsi_period"`
	RSIGoldMax     float64 `toml:"rsi_gold_max"`
	DivUpperLimit  float64 `toml:"div_upper_limit"`
	DivLowerLimit  float64 `toml:"div_lower_limit"`
	HiddenNoLimits bool    `toml:"hidden_no_limits"`
}

type TrendConfig struct {
	BiasTimeframe     string  `toml:"bias_timeframe"`
	FastTimeframe     string  `toml:"fast_timeframe"`
	MomentumTimeframe string  `toml:"momentum_timeframe"`
	EMAFast           int     `toml:"ema_fast"`
	EMASlow           int     `toml:"ema_slow"`
	RSIPeriod         int     `toml:"rsi_period"`
	RSIMAPeriod       int     `toml:"rsi_ma_period"`
	DowntrendRSIMax   float64 `toml:"downtrend_rsi_max"`
	BreakoutLookback  int     `toml:"breakout_lookback"`
	BreakoutExclude   int     `toml:"breakout_exclude"`
	FetchLimit        int     `toml:"fetch_limit"`
}

type StoreConfig struct {
	SQLitePath string `toml:"sqlite_path"`
	MaxRuns    int    `toml:"max_runs"`
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Load 读取 TOML 配置文件并填默认值。path 为空时返回纯默认配置。
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	out := c
	if out.Binance.HTTPTimeoutSeconds <= 0 {
		out.Binance.HTTPTimeoutSeconds = 15
	}
	if len(out.Scan.Symbols) == 0 {
		out.Scan.Symbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT"}
	}
	if out.Scan.RefreshSeconds <= 0 {
		out.Scan.RefreshSeconds = 3600
	}
	if len(out.Scan.Intervals) == 0 {
		out.Scan.Intervals = []string{"15m", "1h", "4h", "1d", "1w"}
	}
	if out.Scan.HistoryBars <= 0 {
		out.Scan.HistoryBars = 150
	}
	if out.Scan.Concurrency <= 0 {
		out.Scan.Concurrency = 6
	}
	if out.Scan.CacheSeconds <= 0 {
		out.Scan.CacheSeconds = 60
	}
	if out.Scan.RSIScreenMax == 0 {
		out.Scan.RSIScreenMax = 22
	}
	if out.Store.MaxRuns <= 0 {
		out.Store.MaxRuns = 32
	}
	if out.Server.Listen == "" {
		out.Server.Listen = ":8780"
	}
	if out.Log.Level == "" {
		out.Log.Level = "info"
	}
	return out
}

// HTTPTimeout 便捷换算。
func (b BinanceConfig) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutSeconds) * time.Second
}
