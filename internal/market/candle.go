package market

import (
	"fmt"
	"math"
	"time"
)

// Candle 单根 K 线，OpenTime/CloseTime 为毫秒时间戳。
type Candle struct {
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Time returns the candle open time in UTC.
func (c Candle) Time() time.Time { return time.UnixMilli(c.OpenTime).UTC() }

// MinWindowBars is the recommended minimum history for any calculator
// consuming a Window. Shorter windows are accepted by NewWindow but the
// calculators will reject them when their own lookback is not covered.
const MinWindowBars = 52

// Window is an immutable, ordered candle sequence for one symbol+interval.
// Index 0 is the oldest bar. Lookback access is expressed as "bars ago",
// with the most recent bar at offset 0.
type Window struct {
	symbol   string
	interval string
	candles  []Candle
}

// NewWindow validates and wraps a candle sequence. Candles must be ordered
// by strictly increasing OpenTime and contain only finite values.
func NewWindow(symbol, interval string, candles []Candle) (*Window, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("window %s %s: no candles", symbol, interval)
	}
	for i, c := range candles {
		if i > 0 && c.OpenTime <= candles[i-1].OpenTime {
			return nil, fmt.Errorf("window %s %s: open_time not increasing at index %d", symbol, interval, i)
		}
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("window %s %s: non-finite value at index %d", symbol, interval, i)
			}
		}
	}
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	return &Window{symbol: symbol, interval: interval, candles: cp}, nil
}

func (w *Window) Symbol() string   { return w.symbol }
func (w *Window) Interval() string { return w.interval }
func (w *Window) Len() int         { return len(w.candles) }

// At returns the candle barsAgo bars before the most recent one.
func (w *Window) At(barsAgo int) (Candle, bool) {
	idx := len(w.candles) - 1 - barsAgo
	if barsAgo < 0 || idx < 0 {
		return Candle{}, false
	}
	return w.candles[idx], true
}

// Last returns the most recent candle.
func (w *Window) Last() Candle { return w.candles[len(w.candles)-1] }

// Candles returns a copy of the underlying sequence, oldest first.
func (w *Window) Candles() []Candle {
	out := make([]Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

// Closes 返回收盘价序列（最旧在前）。
func (w *Window) Closes() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.Close
	}
	return out
}

// Highs 返回最高价序列（最旧在前）。
func (w *Window) Highs() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.High
	}
	return out
}

// Lows 返回最低价序列（最旧在前）。
func (w *Window) Lows() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.Low
	}
	return out
}

// TypicalPrices returns (high+low+close)/3 per bar, the WaveTrend source.
func (w *Window) TypicalPrices() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = (c.High + c.Low + c.Close) / 3
	}
	return out
}
