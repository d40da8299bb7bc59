package trend

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"cipherwatch/internal/analysis/indicator"
	"cipherwatch/internal/market"
	"cipherwatch/internal/signal"
)

// PriceVsEMAs 现价与若干条 EMA 的比较。above 为 true 时要求收盘价
// 严格高于每一条 EMA，false 时严格低于。
func PriceVsEMAs(name, timeframe string, limit int, above bool, spans ...int) Rule {
	return Rule{
		Name:      name,
		Timeframe: timeframe,
		Limit:     limit,
		Check: func(w *market.Window) (bool, error) {
			closes := w.Closes()
			lastClose := closes[len(closes)-1]
			for _, span := range spans {
				ema, err := indicator.EMA(closes, span)
				if err != nil {
					return false, err
				}
				lastEMA := ema[len(ema)-1]
				if above && lastClose <= lastEMA {
					return false, nil
				}
				if !above && lastClose >= lastEMA {
					return false, nil
				}
			}
			return true, nil
		},
	}
}

// EMAOrdering 快慢 EMA 的相对位置。fastAbove 为 true 要求快线在慢线上方。
func EMAOrdering(name, timeframe string, limit, fast, slow int, fastAbove bool) Rule {
	return Rule{
		Name:      name,
		Timeframe: timeframe,
		Limit:     limit,
		Check: func(w *market.Window) (bool, error) {
			closes := w.Closes()
			fastEMA, err := indicator.EMA(closes, fast)
			if err != nil {
				return false, err
			}
			slowEMA, err := indicator.EMA(closes, slow)
			if err != nil {
				return false, err
			}
			f := fastEMA[len(fastEMA)-1]
			s := slowEMA[len(slowEMA)-1]
			if fastAbove {
				return f > s, nil
			}
			return f < s, nil
		},
	}
}

// RSIVsMA RSI 与其自身移动平均的比较（above=true 要求 RSI 在均线上方）。
func RSIVsMA(name, timeframe string, limit, period, maPeriod int, above bool) Rule {
	return Rule{
		Name:      name,
		Timeframe: timeframe,
		Limit:     limit,
		Check: func(w *market.Window) (bool, error) {
			rsi, err := indicator.ComputeRSI(w, period)
			if err != nil {
				return false, err
			}
			if len(rsi) < maPeriod {
				return false, fmt.Errorf("rsi ma needs %d values, got %d", maPeriod, len(rsi))
			}
			rsiMA := talib.Sma(rsi, maPeriod)
			last := rsi[len(rsi)-1]
			lastMA := rsiMA[len(rsiMA)-1]
			if above {
				return last > lastMA, nil
			}
			return last < lastMA, nil
		},
	}
}

// RSIThreshold RSI 与固定水平的比较（below=true 要求 RSI 低于 level）。
func RSIThreshold(name, timeframe string, limit, period int, level float64, below bool) Rule {
	return Rule{
		Name:      name,
		Timeframe: timeframe,
		Limit:     limit,
		Check: func(w *market.Window) (bool, error) {
			rsi, err := indicator.ComputeRSI(w, period)
			if err != nil {
				return false, err
			}
			last := rsi[len(rsi)-1]
			if below {
				return last < level, nil
			}
			return last > level, nil
		},
	}
}

// BreakoutExtreme 回看极值突破：当前收盘价要越过一段历史窗口的极值，
// 且该窗口显式排除最近 exclude 根，避免极值被当前 K 线自己满足。
// 历史不足 lookback+exclude 根时条件直接不成立，不报错。
func BreakoutExtreme(name, timeframe string, limit, lookback, exclude int, up bool) Rule {
	return Rule{
		Name:      name,
		Timeframe: timeframe,
		Limit:     limit,
		Check: func(w *market.Window) (bool, error) {
			closes := w.Closes()
			n := len(closes)
			if lookback <= 0 || n < lookback+exclude {
				return false, nil
			}
			window := closes[n-lookback-exclude : n-exclude]
			extreme := window[0]
			for _, v := range window[1:] {
				if up && v > extreme {
					extreme = v
				}
				if !up && v < extreme {
					extreme = v
				}
			}
			lastClose := closes[n-1]
			if up {
				return lastClose > extreme, nil
			}
			return lastClose < extreme, nil
		},
	}
}

// CircleSignal 把信号分类器的某个圆圈信号作为趋势条件使用（下行链里
// 的 1h 红圈条件）。
func CircleSignal(name, timeframe string, limit int, params signal.Params, pick func(signal.Result) bool) Rule {
	return Rule{
		Name:      name,
		Timeframe: timeframe,
		Limit:     limit,
		Check: func(w *market.Window) (bool, error) {
			return pick(signal.Classify(w, params)), nil
		},
	}
}
