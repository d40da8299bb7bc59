package signal

import (
	"errors"
	"time"

	"cipherwatch/internal/analysis/indicator"
	"cipherwatch/internal/logger"
	"cipherwatch/internal/market"
)

const (
	defaultOverbought    = 53
	defaultOversold      = -53
	defaultDeepOversold  = -80
	defaultRSIExtreme    = 20
	defaultRSIPeriod     = 14
	defaultDivUpperLimit = 45
	defaultDivLowerLimit = -65
)

// Params 打包信号分类的全部阈值。零值字段回落到源指标的默认配置。
type Params struct {
	WaveTrend indicator.WaveTrendSettings `toml:"wavetrend" json:"wavetrend"`

	Overbought   float64 `toml:"overbought" json:"overbought,omitempty"`
	Oversold     float64 `toml:"oversold" json:"oversold,omitempty"`
	DeepOversold float64 `toml:"deep_oversold" json:"deep_oversold,omitempty"`
	RSIPeriod    int     `toml:"rsi_period" json:"rsi_period,omitempty"`
	RSIExtreme   float64 `toml:"rsi_extreme" json:"rsi_extreme,omitempty"`

	DivUpperLimit  float64 `toml:"div_upper_limit" json:"div_upper_limit,omitempty"`
	DivLowerLimit  float64 `toml:"div_lower_limit" json:"div_lower_limit,omitempty"`
	HiddenNoLimits bool    `toml:"hidden_no_limits" json:"hidden_no_limits,omitempty"`
}

func (p Params) withDefaults() Params {
	out := p
	if out.Overbought == 0 {
		out.Overbought = defaultOverbought
	}
	if out.Oversold == 0 {
		out.Oversold = defaultOversold
	}
	if out.DeepOversold == 0 {
		out.DeepOversold = defaultDeepOversold
	}
	if out.RSIPeriod <= 0 {
		out.RSIPeriod = defaultRSIPeriod
	}
	if out.RSIExtreme == 0 {
		out.RSIExtreme = defaultRSIExtreme
	}
	if out.DivUpperLimit == 0 {
		out.DivUpperLimit = defaultDivUpperLimit
	}
	if out.DivLowerLimit == 0 {
		out.DivLowerLimit = defaultDivLowerLimit
	}
	return out
}

// Result 单次 (symbol, timeframe) 评估产出的信号快照。每次调用新建，
// 产出后不再修改。
type Result struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	EvalTime  time.Time `json:"eval_time"`

	HasGreenCircle    bool `json:"has_green_circle"`
	HasGoldCircle     bool `json:"has_gold_circle"`
	HasRedCircle      bool `json:"has_red_circle"`
	HasPurpleTriangle bool `json:"has_purple_triangle"`

	WT1Last float64 `json:"wt1_last"`
	WT2Last float64 `json:"wt2_last"`
	RSILast float64 `json:"rsi_last"`

	// Price 由调用方用现价快照装饰，不参与指标计算。
	Price float64 `json:"price,omitempty"`

	// Divergences 是 wt2 上找到的背离事件，仅作结果装饰；四个圆圈信号
	// 保持源指标简化后的“极值+交叉”判定，不以背离为闸门。
	Divergences []indicator.DivergenceEvent `json:"-"`
}

// HasAnySignal reports whether any of the four flags fired.
func (r Result) HasAnySignal() bool {
	return r.HasGreenCircle || r.HasGoldCircle || r.HasRedCircle || r.HasPurpleTriangle
}

// Classify 对一个窗口跑完整的振荡器+背离+信号链。数据不足时返回
// 全 false 的结果而不是报错：批量扫描里单个坏 symbol 不应中断整批。
func Classify(w *market.Window, params Params) Result {
	params = params.withDefaults()
	res := Result{EvalTime: time.Now().UTC()}
	if w != nil {
		res.Symbol = w.Symbol()
		res.Timeframe = w.Interval()
	}

	wt1, wt2, err := indicator.ComputeWaveTrend(w, params.WaveTrend)
	if err != nil {
		if !errors.Is(err, indicator.ErrInsufficientData) {
			logger.Warnf("classify %s %s: wavetrend: %v", res.Symbol, res.Timeframe, err)
		}
		return res
	}
	rsi, err := indicator.ComputeRSI(w, params.RSIPeriod)
	if err != nil {
		if !errors.Is(err, indicator.ErrInsufficientData) {
			logger.Warnf("classify %s %s: rsi: %v", res.Symbol, res.Timeframe, err)
		}
		return res
	}

	res = classifySeries(res, wt1, wt2, rsi, params)
	res.Divergences = findWindowDivergences(w, wt2, params)
	return res
}

// classifySeries 对已算好的序列应用四条信号规则。规则彼此独立，同一根
// K 线可以同时命中多条。
func classifySeries(res Result, wt1, wt2, rsi []float64, params Params) Result {
	wt1Last, ok1 := last(wt1, 0)
	wt1Prev, ok2 := last(wt1, 1)
	wt2Last, ok3 := last(wt2, 0)
	wt2Prev, ok4 := last(wt2, 1)
	rsiLast, ok5 := last(rsi, 0)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return res
	}

	res.WT1Last = wt1Last
	res.WT2Last = wt2Last
	res.RSILast = rsiLast

	crossUp := wt1Prev < wt2Prev && wt1Last > wt2Last
	crossDown := wt1Prev > wt2Prev && wt1Last < wt2Last

	res.HasGreenCircle = wt2Last <= params.Oversold && crossUp
	res.HasGoldCircle = rsiLast < params.RSIExtreme && wt2Last <= params.DeepOversold && crossUp
	res.HasRedCircle = wt2Last >= params.Overbought && crossDown
	res.HasPurpleTriangle = (wt2Last >= params.Overbought || wt2Last <= params.Oversold) && (crossUp || crossDown)
	return res
}

// findWindowDivergences 收集 wt2 上的常规背离（带 OB/OS 门槛），以及
// 可选的不限级别隐藏背离。
func findWindowDivergences(w *market.Window, wt2 []float64, params Params) []indicator.DivergenceEvent {
	highs := w.Highs()
	lows := w.Lows()
	events := indicator.FindDivergences(wt2, highs, lows, indicator.DivergenceLimits{
		Upper:       params.DivUpperLimit,
		Lower:       params.DivLowerLimit,
		ApplyLimits: true,
	})
	if !params.HiddenNoLimits {
		return events
	}
	// 隐藏背离改用不限级别的那一轮，带门槛的那一轮只保留常规背离，
	// 避免同一事件重复出现。
	regular := events[:0]
	for _, ev := range events {
		if ev.Kind == indicator.BullishRegular || ev.Kind == indicator.BearishRegular {
			regular = append(regular, ev)
		}
	}
	events = regular
	for _, ev := range indicator.FindDivergences(wt2, highs, lows, indicator.DivergenceLimits{ApplyLimits: false}) {
		if ev.Kind == indicator.BullishHidden || ev.Kind == indicator.BearishHidden {
			events = append(events, ev)
		}
	}
	return events
}

func last(series []float64, barsAgo int) (float64, bool) {
	idx := len(series) - 1 - barsAgo
	if idx < 0 {
		return 0, false
	}
	return series[idx], true
}
