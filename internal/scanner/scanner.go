package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cipherwatch/internal/coins"
	"cipherwatch/internal/logger"
	"cipherwatch/internal/market"
	"cipherwatch/internal/signal"
	"cipherwatch/internal/store"
	"cipherwatch/internal/trend"
)

const (
	defaultHistoryBars = 150
	defaultConcurrency = 6
	defaultRSIScreen   = 22
	weeklyInterval     = "1w"
	rsiScreenInterval  = "4h"
)

// Config 批量扫描参数。Intervals 是每个 symbol 要评估的全部周期。
type Config struct {
	Intervals    []string
	HistoryBars  int
	Concurrency  int
	RSIScreenMax float64

	Signal signal.Params
	Trend  trend.Config
}

func (c Config) withDefaults() Config {
	out := c
	if len(out.Intervals) == 0 {
		out.Intervals = []string{"15m", "1h", "4h", "1d", "1w"}
	}
	if out.HistoryBars <= 0 {
		out.HistoryBars = defaultHistoryBars
	}
	if out.Concurrency <= 0 {
		out.Concurrency = defaultConcurrency
	}
	if out.RSIScreenMax == 0 {
		out.RSIScreenMax = defaultRSIScreen
	}
	return out
}

// SymbolReport 单个 symbol 的扫描汇总：各周期信号、组合判定与趋势结论。
type SymbolReport struct {
	Symbol  string          `json:"symbol"`
	Price   float64         `json:"price,omitempty"`
	Results []signal.Result `json:"results"`

	// PerfectBuy 周线绿圈；GreatBuy 全部日内周期同时绿圈。
	PerfectBuy  bool `json:"perfect_buy"`
	GreatBuy    bool `json:"great_buy"`
	OversoldRSI bool `json:"oversold_rsi"`

	Uptrend   trend.Verdict `json:"uptrend"`
	Downtrend trend.Verdict `json:"downtrend"`
}

// HasOpportunity reports whether anything in the report is worth surfacing.
func (r SymbolReport) HasOpportunity() bool {
	if r.PerfectBuy || r.GreatBuy || r.OversoldRSI || r.Uptrend.Confirmed || r.Downtrend.Confirmed {
		return true
	}
	for _, res := range r.Results {
		if res.HasAnySignal() {
			return true
		}
	}
	return false
}

// Scanner 把行情源、信号分类器和趋势引擎串成一次性的批量扫描。
type Scanner struct {
	cfg      Config
	source   market.Source
	provider trend.Provider
	symbols  coins.SymbolProvider
	sink     store.SignalStore

	up   *trend.Engine
	down *trend.Engine
}

// New 组装扫描器。provider 通常是包了 source 的 KlineCache，sink 可为
// nil（不落库）。
func New(cfg Config, source market.Source, provider trend.Provider, symbols coins.SymbolProvider, sink store.SignalStore) *Scanner {
	cfg = cfg.withDefaults()
	cfg.Trend.Signal = cfg.Signal
	return &Scanner{
		cfg:      cfg,
		source:   source,
		provider: provider,
		symbols:  symbols,
		sink:     sink,
		up:       trend.NewUptrendEngine(cfg.Trend),
		down:     trend.NewDowntrendEngine(cfg.Trend),
	}
}

// Scan 对全部 symbol 并发执行一轮评估并返回报告（按 symbol 排序）。
// 单个 symbol 失败只记日志，不影响其它 symbol。
func (s *Scanner) Scan(ctx context.Context) (store.Run, []SymbolReport, error) {
	list, err := s.symbols.List(ctx)
	if err != nil {
		return store.Run{}, nil, fmt.Errorf("list symbols: %w", err)
	}

	run := store.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger.Infof("scan %s: %d symbols × %d intervals", run.ID, len(list), len(s.cfg.Intervals))

	var mu sync.Mutex
	reports := make([]SymbolReport, 0, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, symbol := range list {
		symbol := symbol
		g.Go(func() error {
			report, err := s.scanSymbol(gctx, symbol)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warnf("scan %s: symbol %s skipped: %v", run.ID, symbol, err)
				return nil
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return store.Run{}, nil, err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Symbol < reports[j].Symbol })
	for _, r := range reports {
		run.Results = append(run.Results, r.Results...)
		run.Verdicts = append(run.Verdicts, r.Uptrend, r.Downtrend)
	}

	if s.sink != nil {
		if err := s.sink.SaveRun(ctx, run); err != nil {
			logger.Errorf("scan %s: save run: %v", run.ID, err)
		}
	}
	logger.Infof("scan %s: done, %d/%d symbols evaluated", run.ID, len(reports), len(list))
	return run, reports, nil
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) (SymbolReport, error) {
	report := SymbolReport{Symbol: symbol}

	for _, interval := range s.cfg.Intervals {
		w, err := s.provider.Candles(ctx, symbol, interval, s.cfg.HistoryBars)
		if err != nil {
			// 小币种没有周线等长周期历史是常态，跳过该周期即可。
			if errors.Is(err, market.ErrDataUnavailable) {
				logger.Debugf("scan %s %s: %v", symbol, interval, err)
				continue
			}
			return SymbolReport{}, err
		}
		report.Results = append(report.Results, signal.Classify(w, s.cfg.Signal))
	}
	if len(report.Results) == 0 {
		return SymbolReport{}, fmt.Errorf("%w: no interval produced data", market.ErrDataUnavailable)
	}

	report.PerfectBuy, report.GreatBuy = gradeBuy(report.Results)
	report.OversoldRSI = screenRSI(report.Results, s.cfg.RSIScreenMax)

	if price, err := s.source.CurrentPrice(ctx, symbol); err == nil {
		report.Price = price
		for i := range report.Results {
			report.Results[i].Price = price
		}
	} else {
		logger.Debugf("scan %s: price snapshot failed: %v", symbol, err)
	}

	report.Uptrend = s.up.Evaluate(ctx, symbol, s.provider)
	report.Downtrend = s.down.Evaluate(ctx, symbol, s.provider)
	return report, nil
}

// gradeBuy 计算组合买点：perfect 要求周线绿圈，great 要求全部日内周期
// （短于一天的周期）同时绿圈。
func gradeBuy(results []signal.Result) (perfect, great bool) {
	intraday := 0
	intradayGreen := 0
	for _, r := range results {
		if r.Timeframe == weeklyInterval && r.HasGreenCircle {
			perfect = true
		}
		if isIntraday(r.Timeframe) {
			intraday++
			if r.HasGreenCircle {
				intradayGreen++
			}
		}
	}
	great = intraday > 0 && intraday == intradayGreen
	return perfect, great
}

// screenRSI 4h RSI 低于门槛视为超卖候选；没有 4h 结果时不触发。
func screenRSI(results []signal.Result, max float64) bool {
	for _, r := range results {
		if r.Timeframe == rsiScreenInterval && r.RSILast > 0 && r.RSILast <= max {
			return true
		}
	}
	return false
}

func isIntraday(interval string) bool {
	return strings.HasSuffix(interval, "m") || strings.HasSuffix(interval, "h")
}
