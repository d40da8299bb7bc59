package indicator

import (
	"errors"
	"math"
	"testing"

	"cipherwatch/internal/market"
)

// makeWindow 用收盘价序列造一个窗口，高低点在收盘价上下各一个单位。
func makeWindow(t *testing.T, closes []float64) *market.Window {
	t.Helper()
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i)*60_000 + 59_999,
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	w, err := market.NewWindow("BTCUSDT", "1h", candles)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	return w
}

func wavyCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/4)
	}
	return out
}

func TestComputeWaveTrendInsufficientData(t *testing.T) {
	w := makeWindow(t, wavyCloses(5))
	_, _, err := ComputeWaveTrend(w, WaveTrendSettings{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData, got %v", err)
	}
	if _, _, err := ComputeWaveTrend(nil, WaveTrendSettings{}); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("nil window: want ErrInsufficientData, got %v", err)
	}
}

func TestComputeWaveTrendDeterministic(t *testing.T) {
	w := makeWindow(t, wavyCloses(80))
	a1, a2, err := ComputeWaveTrend(w, WaveTrendSettings{})
	if err != nil {
		t.Fatalf("ComputeWaveTrend: %v", err)
	}
	b1, b2, err := ComputeWaveTrend(w, WaveTrendSettings{})
	if err != nil {
		t.Fatalf("ComputeWaveTrend: %v", err)
	}
	if len(a1) != w.Len() || len(a2) != w.Len() {
		t.Fatalf("series length %d/%d, window %d", len(a1), len(a2), w.Len())
	}
	for i := range a1 {
		if a1[i] != b1[i] || a2[i] != b2[i] {
			t.Fatalf("non-deterministic output at index %d", i)
		}
	}
}

// 完全平坦的价格序列里偏差 d 处处为 0，ci 必须取 0 而不是 NaN。
func TestComputeWaveTrendFlatSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	w := makeWindow(t, closes)
	wt1, wt2, err := ComputeWaveTrend(w, WaveTrendSettings{})
	if err != nil {
		t.Fatalf("ComputeWaveTrend: %v", err)
	}
	for i := range wt1 {
		if math.IsNaN(wt1[i]) || math.IsNaN(wt2[i]) {
			t.Fatalf("NaN at index %d", i)
		}
	}
	if wt1[len(wt1)-1] != 0 {
		t.Fatalf("flat series wt1 last = %v, want 0", wt1[len(wt1)-1])
	}
}

func TestComputeRSI(t *testing.T) {
	w := makeWindow(t, wavyCloses(80))
	rsi, err := ComputeRSI(w, 14)
	if err != nil {
		t.Fatalf("ComputeRSI: %v", err)
	}
	if len(rsi) != w.Len() {
		t.Fatalf("rsi length %d, window %d", len(rsi), w.Len())
	}
	for i := 15; i < len(rsi); i++ {
		if rsi[i] < 0 || rsi[i] > 100 {
			t.Fatalf("rsi[%d] = %v out of [0,100]", i, rsi[i])
		}
	}
}

func TestComputeRSIInsufficientData(t *testing.T) {
	w := makeWindow(t, wavyCloses(14))
	if _, err := ComputeRSI(w, 14); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("want ErrInsufficientData, got %v", err)
	}
}

func TestEMA(t *testing.T) {
	constant := []float64{5, 5, 5, 5, 5, 5}
	out, err := EMA(constant, 3)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	for i, v := range out {
		if v != 5 {
			t.Fatalf("ema of constant series at %d = %v, want 5", i, v)
		}
	}

	// 首值为种子，第二个值按 alpha=2/(span+1) 递推。
	series := []float64{10, 20, 20, 20}
	out, err = EMA(series, 3)
	if err != nil {
		t.Fatalf("EMA: %v", err)
	}
	if out[0] != 10 {
		t.Fatalf("ema seed = %v, want 10", out[0])
	}
	want := 0.5*20 + 0.5*10
	if math.Abs(out[1]-want) > 1e-9 {
		t.Fatalf("ema[1] = %v, want %v", out[1], want)
	}

	if _, err := EMA([]float64{1, 2}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("short input: want ErrInsufficientData, got %v", err)
	}
	if _, err := EMA(series, 0); err == nil {
		t.Fatal("zero span must error")
	}
}
