package indicator

import (
	"errors"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"cipherwatch/internal/market"
)

// ErrInsufficientData 窗口长度不足以覆盖指标回看期。
// 计算器宁可显式报错也不输出截断后的误导序列。
var ErrInsufficientData = errors.New("insufficient candle history")

const (
	defaultWTChannelLen = 9
	defaultWTAverageLen = 12
	defaultWTMALen      = 3
	defaultRSIPeriod    = 14
)

// WaveTrendSettings bundles the three WaveTrend lengths. Zero values fall
// back to the classic 9/12/3 configuration.
type WaveTrendSettings struct {
	ChannelLen int `toml:"channel_len" json:"channel_len,omitempty"`
	AverageLen int `toml:"average_len" json:"average_len,omitempty"`
	MALen      int `toml:"ma_len" json:"ma_len,omitempty"`
}

func (s WaveTrendSettings) withDefaults() WaveTrendSettings {
	out := s
	if out.ChannelLen <= 0 {
		out.ChannelLen = defaultWTChannelLen
	}
	if out.AverageLen <= 0 {
		out.AverageLen = defaultWTAverageLen
	}
	if out.MALen <= 0 {
		out.MALen = defaultWTMALen
	}
	return out
}

// Lookback 返回结果序列中属于“低置信”预热区的长度。
func (s WaveTrendSettings) Lookback() int {
	s = s.withDefaults()
	return maxInt(s.ChannelLen, s.AverageLen, s.MALen)
}

// ComputeWaveTrend 计算 WaveTrend 双线。算法：
//
//	typical = hlc3
//	esa = ema(typical, channel)
//	d   = ema(|typical-esa|, channel)
//	ci  = (typical-esa) / (0.015*d)   // d==0 时 ci 取 0
//	wt1 = ema(ci, average)
//	wt2 = sma(wt1, ma)
//
// EMA 采用 alpha=2/(span+1)、以首值为种子的递推（与源指标一致），不做
// 任何前视。返回序列与窗口等长；前 Lookback() 个值为预热区。
func ComputeWaveTrend(w *market.Window, settings WaveTrendSettings) (wt1, wt2 []float64, err error) {
	settings = settings.withDefaults()
	required := settings.Lookback()
	if w == nil || w.Len() < required {
		got := 0
		if w != nil {
			got = w.Len()
		}
		return nil, nil, fmt.Errorf("wavetrend needs %d bars, got %d: %w", required, got, ErrInsufficientData)
	}

	src := w.TypicalPrices()
	n := len(src)
	esa := ewmSpan(src, settings.ChannelLen)
	absDiff := make([]float64, n)
	for i := range src {
		absDiff[i] = math.Abs(src[i] - esa[i])
	}
	d := ewmSpan(absDiff, settings.ChannelLen)
	ci := make([]float64, n)
	for i := range src {
		denom := 0.015 * d[i]
		if denom == 0 {
			ci[i] = 0
			continue
		}
		ci[i] = (src[i] - esa[i]) / denom
	}
	wt1 = ewmSpan(ci, settings.AverageLen)
	wt2 = talib.Sma(wt1, settings.MALen)
	return wt1, wt2, nil
}

// ComputeRSI 计算 Wilder 平滑 RSI。前 period 个值为预热区。
func ComputeRSI(w *market.Window, period int) ([]float64, error) {
	if period <= 0 {
		period = defaultRSIPeriod
	}
	if w == nil || w.Len() < period+1 {
		got := 0
		if w != nil {
			got = w.Len()
		}
		return nil, fmt.Errorf("rsi needs %d bars, got %d: %w", period+1, got, ErrInsufficientData)
	}
	return talib.Rsi(w.Closes(), period), nil
}

// EMA 返回收盘价 EMA 序列，趋势规则引擎用它做价格/均线比较。
// 与 WaveTrend 内部一致，使用首值种子的 ewm 递推。
func EMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("ema span must be positive, got %d", span)
	}
	if len(values) < span {
		return nil, fmt.Errorf("ema needs %d values, got %d: %w", span, len(values), ErrInsufficientData)
	}
	return ewmSpan(values, span), nil
}

// ewmSpan 指数加权递推：alpha=2/(span+1)，s[0]=x[0]。
func ewmSpan(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func maxInt(values ...int) int {
	if len(values) == 0 {
		return 0
	}
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}
