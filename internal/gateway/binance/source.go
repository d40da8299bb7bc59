package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	binance "github.com/adshao/go-binance/v2"

	"cipherwatch/internal/logger"
	"cipherwatch/internal/market"
)

const maxHistoryLimit = 1000

// Source 实现了 market.Source，通过 Binance 现货 REST 接口拉取 K 线
// 与最新价。公共端点无需鉴权。
type Source struct {
	cfg    Config
	client *binance.Client

	mu    sync.Mutex
	stats market.SourceStats
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := binance.NewClient(final.APIKey, final.APISecret)
	if final.BaseURL != "" {
		client.BaseURL = final.BaseURL
	}
	client.HTTPClient.Timeout = final.HTTPTimeout
	return &Source{cfg: final, client: client}, nil
}

// FetchHistory 拉取最近 limit 根 K 线并封装成不可变窗口。
func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) (*market.Window, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}

	s.countHistory()
	logger.Debugf("[binance] klines %s %s limit=%d", symbol, interval, limit)
	raw, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		s.countFailure(err)
		return nil, fmt.Errorf("%w: %s %s: %v", market.ErrDataUnavailable, symbol, interval, err)
	}
	if len(raw) == 0 {
		s.countFailure(market.ErrDataUnavailable)
		return nil, fmt.Errorf("%w: %s %s: empty kline response", market.ErrDataUnavailable, symbol, interval)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, k := range raw {
		candles = append(candles, market.Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      parsePrice(k.Open),
			High:      parsePrice(k.High),
			Low:       parsePrice(k.Low),
			Close:     parsePrice(k.Close),
			Volume:    parsePrice(k.Volume),
		})
	}
	w, err := market.NewWindow(symbol, interval, candles)
	if err != nil {
		s.countFailure(err)
		return nil, fmt.Errorf("%w: %v", market.ErrDataUnavailable, err)
	}
	return w, nil
}

// CurrentPrice 返回最新成交价快照。
func (s *Source) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	s.countPrice()
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		s.countFailure(err)
		return 0, fmt.Errorf("%w: price %s: %v", market.ErrDataUnavailable, symbol, err)
	}
	if len(prices) == 0 {
		s.countFailure(market.ErrDataUnavailable)
		return 0, fmt.Errorf("%w: price %s: empty response", market.ErrDataUnavailable, symbol)
	}
	p, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		s.countFailure(err)
		return 0, fmt.Errorf("%w: price %s: %v", market.ErrDataUnavailable, symbol, err)
	}
	return p, nil
}

func (s *Source) Stats() market.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Source) Close() error { return nil }

func (s *Source) countHistory() {
	s.mu.Lock()
	s.stats.HistoryCalls++
	s.mu.Unlock()
}

func (s *Source) countPrice() {
	s.mu.Lock()
	s.stats.PriceCalls++
	s.mu.Unlock()
}

func (s *Source) countFailure(err error) {
	s.mu.Lock()
	s.stats.FailedCalls++
	s.stats.LastError = err.Error()
	s.mu.Unlock()
}

func parsePrice(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
