package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cipherwatch/internal/market"
	"cipherwatch/internal/signal"
)

func sampleRun(id string, symbols ...string) Run {
	run := Run{ID: id, StartedAt: time.Now().UTC()}
	for _, s := range symbols {
		run.Results = append(run.Results, signal.Result{
			Symbol:    s,
			Timeframe: "1h",
			EvalTime:  time.Now().UTC(),
		})
	}
	return run
}

func TestMemoryStoreLatestRun(t *testing.T) {
	s := NewMemorySignalStore(4)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("empty store: want ErrNoRuns, got %v", err)
	}

	if err := s.SaveRun(ctx, sampleRun("run-1", "BTCUSDT")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, sampleRun("run-2", "ETHUSDT")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	latest, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "run-2" {
		t.Fatalf("latest run = %s, want run-2", latest.ID)
	}
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	s := NewMemorySignalStore(4)
	if err := s.SaveRun(context.Background(), Run{}); err == nil {
		t.Fatal("run without an ID must be rejected")
	}
}

// 超过 maxRuns 后最老的轮次被挤出。
func TestMemoryStoreEviction(t *testing.T) {
	s := NewMemorySignalStore(2)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := s.SaveRun(ctx, sampleRun(fmt.Sprintf("run-%d", i), "BTCUSDT")); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	history, err := s.SymbolHistory(ctx, "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("SymbolHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d entries after eviction, want 2", len(history))
	}
}

func TestMemoryStoreSymbolHistory(t *testing.T) {
	s := NewMemorySignalStore(8)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.SaveRun(ctx, sampleRun(fmt.Sprintf("run-%d", i), "BTCUSDT", "ETHUSDT")); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	history, err := s.SymbolHistory(ctx, "BTCUSDT", 3)
	if err != nil {
		t.Fatalf("SymbolHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("limit not honored: got %d", len(history))
	}
	for _, res := range history {
		if res.Symbol != "BTCUSDT" {
			t.Fatalf("foreign symbol in history: %+v", res)
		}
	}
}

// countingSource 记录 FetchHistory 调用次数，用来验证缓存命中。
type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) FetchHistory(_ context.Context, symbol, interval string, limit int) (*market.Window, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	candles := make([]market.Candle, limit)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i)*60_000 + 59_999,
			Open:      100, High: 101, Low: 99, Close: 100, Volume: 1,
		}
	}
	return market.NewWindow(symbol, interval, candles)
}

func (s *countingSource) CurrentPrice(context.Context, string) (float64, error) { return 100, nil }
func (s *countingSource) Stats() market.SourceStats                             { return market.SourceStats{} }
func (s *countingSource) Close() error                                          { return nil }

func TestKlineCacheHit(t *testing.T) {
	src := &countingSource{}
	cache := NewKlineCache(src, time.Minute)
	ctx := context.Background()

	if _, err := cache.Candles(ctx, "BTCUSDT", "1h", 50); err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if _, err := cache.Candles(ctx, "BTCUSDT", "1h", 50); err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("second read must hit the cache, got %d fetches", src.calls)
	}

	// 更长的请求不能用短窗口凑数。
	if _, err := cache.Candles(ctx, "BTCUSDT", "1h", 100); err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("longer request must refetch, got %d fetches", src.calls)
	}

	// 不同 interval 是独立条目。
	if _, err := cache.Candles(ctx, "BTCUSDT", "4h", 50); err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("different interval must fetch, got %d fetches", src.calls)
	}
}

func TestKlineCacheInvalidate(t *testing.T) {
	src := &countingSource{}
	cache := NewKlineCache(src, time.Minute)
	ctx := context.Background()

	if _, err := cache.Candles(ctx, "BTCUSDT", "1h", 50); err != nil {
		t.Fatalf("Candles: %v", err)
	}
	cache.Invalidate("BTCUSDT")
	if _, err := cache.Candles(ctx, "BTCUSDT", "1h", 50); err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("invalidated entry must refetch, got %d fetches", src.calls)
	}
}

func TestKlineCachePropagatesError(t *testing.T) {
	src := &countingSource{err: market.ErrDataUnavailable}
	cache := NewKlineCache(src, time.Minute)
	if _, err := cache.Candles(context.Background(), "BTCUSDT", "1h", 50); !errors.Is(err, market.ErrDataUnavailable) {
		t.Fatalf("want ErrDataUnavailable, got %v", err)
	}
}
