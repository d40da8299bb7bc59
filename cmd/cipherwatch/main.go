package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"cipherwatch/internal/analysis/indicator"
	"cipherwatch/internal/coins"
	"cipherwatch/internal/config"
	"cipherwatch/internal/gateway/binance"
	"cipherwatch/internal/logger"
	"cipherwatch/internal/scanner"
	sig "cipherwatch/internal/signal"
	"cipherwatch/internal/store"
	"cipherwatch/internal/transport/http/results"
	"cipherwatch/internal/trend"
)

func main() {
	configPath := flag.String("config", "", "TOML 配置文件路径，留空用默认配置")
	serve := flag.Bool("serve", false, "扫描后常驻并提供结果 API")
	flag.Parse()

	if err := run(*configPath, *serve); err != nil {
		fmt.Fprintln(os.Stderr, "cipherwatch:", err)
		os.Exit(1)
	}
}

func run(configPath string, serve bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := binance.New(binance.Config{
		APIKey:      cfg.Binance.APIKey,
		APISecret:   cfg.Binance.APISecret,
		BaseURL:     cfg.Binance.BaseURL,
		HTTPTimeout: cfg.Binance.HTTPTimeout(),
	})
	if err != nil {
		return fmt.Errorf("binance source: %w", err)
	}
	defer source.Close()

	sink, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer sink.Close()

	var provider coins.SymbolProvider = coins.NewStaticProvider(cfg.Scan.Symbols)
	if cfg.Scan.SymbolsAPIURL != "" {
		provider = coins.NewRefreshingProvider(
			coins.NewHTTPSymbolProvider(cfg.Scan.SymbolsAPIURL),
			time.Duration(cfg.Scan.RefreshSeconds)*time.Second,
			cfg.Scan.Symbols,
		)
	}

	cache := store.NewKlineCache(source, time.Duration(cfg.Scan.CacheSeconds)*time.Second)
	sc := scanner.New(scannerConfig(cfg), source, cache, provider, sink)

	scanRun, reports, err := sc.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	printReports(scanRun.ID, reports)

	stats := source.Stats()
	logger.Infof("source stats: history=%d price=%d failed=%d",
		stats.HistoryCalls, stats.PriceCalls, stats.FailedCalls)

	if !serve && !cfg.Server.Enabled {
		return nil
	}

	engine := results.NewServer(sink)
	logger.Infof("result API listening on %s", cfg.Server.Listen)
	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(cfg.Server.Listen) }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func openStore(cfg config.StoreConfig) (store.SignalStore, error) {
	if cfg.SQLitePath == "" {
		return store.NewMemorySignalStore(cfg.MaxRuns), nil
	}
	s, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open signal store: %w", err)
	}
	return s, nil
}

func scannerConfig(cfg config.Config) scanner.Config {
	return scanner.Config{
		Intervals:    cfg.Scan.Intervals,
		HistoryBars:  cfg.Scan.HistoryBars,
		Concurrency:  cfg.Scan.Concurrency,
		RSIScreenMax: cfg.Scan.RSIScreenMax,
		Signal: sig.Params{
			WaveTrend: indicatorSettings(cfg.Signal),

			Overbought:     cfg.Signal.Overbought,
			Oversold:       cfg.Signal.Oversold,
			DeepOversold:   cfg.Signal.DeepOversold,
			RSIPeriod:      cfg.Signal.RSIPeriod,
			RSIExtreme:     cfg.Signal.RSIGoldMax,
			DivUpperLimit:  cfg.Signal.DivUpperLimit,
			DivLowerLimit:  cfg.Signal.DivLowerLimit,
			HiddenNoLimits: cfg.Signal.HiddenNoLimits,
		},
		Trend: trend.Config{
			BiasTimeframe:     cfg.Trend.BiasTimeframe,
			FastTimeframe:     cfg.Trend.FastTimeframe,
			MomentumTimeframe: cfg.Trend.MomentumTimeframe,
			EMAFast:           cfg.Trend.EMAFast,
			EMASlow:           cfg.Trend.EMASlow,
			RSIPeriod:         cfg.Trend.RSIPeriod,
			RSIMAPeriod:       cfg.Trend.RSIMAPeriod,
			DowntrendRSIMax:   cfg.Trend.DowntrendRSIMax,
			BreakoutLookback:  cfg.Trend.BreakoutLookback,
			BreakoutExclude:   cfg.Trend.BreakoutExclude,
			FetchLimit:        cfg.Trend.FetchLimit,
		},
	}
}

func indicatorSettings(cfg config.SignalConfig) indicator.WaveTrendSettings {
	return indicator.WaveTrendSettings{
		ChannelLen: cfg.ChannelLen,
		AverageLen: cfg.AverageLen,
		MALen:      cfg.MALen,
	}
}

// printReports 把一轮扫描渲染成终端表格，只展示有信号的周期列。
func printReports(runID string, reports []scanner.SymbolReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("scan %s", runID)
	t.AppendHeader(table.Row{"Symbol", "Price", "Signals", "Perfect", "Great", "RSI≤", "Uptrend", "Downtrend"})

	for _, r := range reports {
		t.AppendRow(table.Row{
			r.Symbol,
			formatPrice(r.Price),
			formatSignals(r.Results),
			mark(r.PerfectBuy),
			mark(r.GreatBuy),
			mark(r.OversoldRSI),
			mark(r.Uptrend.Confirmed),
			mark(r.Downtrend.Confirmed),
		})
	}
	t.Render()
}

func formatSignals(results []sig.Result) string {
	out := ""
	for _, res := range results {
		if !res.HasAnySignal() {
			continue
		}
		if out != "" {
			out += " "
		}
		out += res.Timeframe + ":" + signalGlyphs(res)
	}
	if out == "" {
		return "-"
	}
	return out
}

func signalGlyphs(res sig.Result) string {
	s := ""
	if res.HasGreenCircle {
		s += "G"
	}
	if res.HasGoldCircle {
		s += "g"
	}
	if res.HasRedCircle {
		s += "R"
	}
	if res.HasPurpleTriangle {
		s += "P"
	}
	return s
}

func formatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("%.6g", p)
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return ""
}
