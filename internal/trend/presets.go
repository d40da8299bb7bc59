package trend

import "cipherwatch/internal/signal"

const (
	defaultBiasTimeframe     = "4h"
	defaultFastTimeframe     = "30m"
	defaultMomentumTimeframe = "1h"

	defaultEMAFast     = 8
	defaultEMASlow     = 14
	defaultRSIPeriod   = 14
	defaultRSIMAPeriod = 9

	defaultDowntrendRSIMax  = 45
	defaultBreakoutLookback = 20
	defaultBreakoutExclude  = 3
	defaultFetchLimit       = 100
)

// Config 趋势规则链的全部数值参数。上行与下行链共用一份配置，极性差异
// 在预设里以数据表达。
type Config struct {
	BiasTimeframe     string `toml:"bias_timeframe"`
	FastTimeframe     string `toml:"fast_timeframe"`
	MomentumTimeframe string `toml:"momentum_timeframe"`

	EMAFast     int `toml:"ema_fast"`
	EMASlow     int `toml:"ema_slow"`
	RSIPeriod   int `toml:"rsi_period"`
	RSIMAPeriod int `toml:"rsi_ma_period"`

	DowntrendRSIMax  float64 `toml:"downtrend_rsi_max"`
	BreakoutLookback int     `toml:"breakout_lookback"`
	BreakoutExclude  int     `toml:"breakout_exclude"`
	FetchLimit       int     `toml:"fetch_limit"`

	Signal signal.Params `toml:"-"`
}

func (c Config) withDefaults() Config {
	out := c
	if out.BiasTimeframe == "" {
		out.BiasTimeframe = defaultBiasTimeframe
	}
	if out.FastTimeframe == "" {
		out.FastTimeframe = defaultFastTimeframe
	}
	if out.MomentumTimeframe == "" {
		out.MomentumTimeframe = defaultMomentumTimeframe
	}
	if out.EMAFast <= 0 {
		out.EMAFast = defaultEMAFast
	}
	if out.EMASlow <= 0 {
		out.EMASlow = defaultEMASlow
	}
	if out.RSIPeriod <= 0 {
		out.RSIPeriod = defaultRSIPeriod
	}
	if out.RSIMAPeriod <= 0 {
		out.RSIMAPeriod = defaultRSIMAPeriod
	}
	if out.DowntrendRSIMax == 0 {
		out.DowntrendRSIMax = defaultDowntrendRSIMax
	}
	if out.BreakoutLookback <= 0 {
		out.BreakoutLookback = defaultBreakoutLookback
	}
	if out.BreakoutExclude <= 0 {
		out.BreakoutExclude = defaultBreakoutExclude
	}
	if out.FetchLimit <= 0 {
		out.FetchLimit = defaultFetchLimit
	}
	return out
}

// NewUptrendEngine 短线上行确认链：
//  1. 4h 收盘价高于 EMA8 与 EMA14
//  2. 30m EMA8 在 EMA14 上方
//  3. 1h RSI 高于其 9 期均线
//  4. 4h 收盘价突破排除最近 3 根后的 20 根最高收盘
func NewUptrendEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return NewEngine("uptrend", []Rule{
		PriceVsEMAs("close_above_emas", cfg.BiasTimeframe, cfg.FetchLimit, true, cfg.EMAFast, cfg.EMASlow),
		EMAOrdering("fast_ema_above_slow", cfg.FastTimeframe, cfg.FetchLimit, cfg.EMAFast, cfg.EMASlow, true),
		RSIVsMA("rsi_above_rsi_ma", cfg.MomentumTimeframe, cfg.FetchLimit, cfg.RSIPeriod, cfg.RSIMAPeriod, true),
		BreakoutExtreme("close_breaks_lookback_high", cfg.BiasTimeframe, cfg.FetchLimit, cfg.BreakoutLookback, cfg.BreakoutExclude, true),
	})
}

// NewDowntrendEngine 短线下行确认链，与上行链同构，极性相反：
//  1. 4h RSI 低于 45
//  2. 1h 出现红圈（超买区向下交叉）
//  3. 30m EMA8 在 EMA14 下方
//  4. 4h 收盘价跌破排除最近 3 根后的 20 根最低收盘
func NewDowntrendEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return NewEngine("downtrend", []Rule{
		RSIThreshold("rsi_below_max", cfg.BiasTimeframe, cfg.FetchLimit, cfg.RSIPeriod, cfg.DowntrendRSIMax, true),
		CircleSignal("red_circle", cfg.MomentumTimeframe, cfg.FetchLimit, cfg.Signal, func(r signal.Result) bool {
			return r.HasRedCircle
		}),
		EMAOrdering("fast_ema_below_slow", cfg.FastTimeframe, cfg.FetchLimit, cfg.EMAFast, cfg.EMASlow, false),
		BreakoutExtreme("close_breaks_lookback_low", cfg.BiasTimeframe, cfg.FetchLimit, cfg.BreakoutLookback, cfg.BreakoutExclude, false),
	})
}
