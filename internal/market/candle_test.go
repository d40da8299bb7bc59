package market

import (
	"math"
	"testing"
)

func validCandles(n int) []Candle {
	out := make([]Candle, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i)*60_000 + 59_999,
			Open:      c,
			High:      c + 2,
			Low:       c - 2,
			Close:     c + 1,
			Volume:    10,
		}
	}
	return out
}

func TestNewWindowValidation(t *testing.T) {
	if _, err := NewWindow("BTCUSDT", "1h", nil); err == nil {
		t.Fatal("empty candle slice must be rejected")
	}

	candles := validCandles(3)
	candles[2].OpenTime = candles[1].OpenTime
	if _, err := NewWindow("BTCUSDT", "1h", candles); err == nil {
		t.Fatal("non-increasing open time must be rejected")
	}

	candles = validCandles(3)
	candles[1].Close = math.NaN()
	if _, err := NewWindow("BTCUSDT", "1h", candles); err == nil {
		t.Fatal("NaN value must be rejected")
	}
}

// 窗口持有副本：外部修改原切片不影响已建窗口。
func TestNewWindowCopies(t *testing.T) {
	candles := validCandles(3)
	w, err := NewWindow("BTCUSDT", "1h", candles)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	candles[0].Close = -1
	if w.Candles()[0].Close == -1 {
		t.Fatal("window must not alias the caller's slice")
	}
}

func TestWindowAccessors(t *testing.T) {
	w, err := NewWindow("BTCUSDT", "1h", validCandles(5))
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	if w.Symbol() != "BTCUSDT" || w.Interval() != "1h" || w.Len() != 5 {
		t.Fatalf("unexpected identity: %s %s %d", w.Symbol(), w.Interval(), w.Len())
	}
	if w.Last().Close != 105 {
		t.Fatalf("Last().Close = %v, want 105", w.Last().Close)
	}

	c, ok := w.At(0)
	if !ok || c.Close != 105 {
		t.Fatalf("At(0) = %+v, %v", c, ok)
	}
	c, ok = w.At(4)
	if !ok || c.Close != 101 {
		t.Fatalf("At(4) = %+v, %v", c, ok)
	}
	if _, ok := w.At(5); ok {
		t.Fatal("At beyond history must report false")
	}
	if _, ok := w.At(-1); ok {
		t.Fatal("negative barsAgo must report false")
	}
}

func TestWindowSeries(t *testing.T) {
	w, err := NewWindow("BTCUSDT", "1h", validCandles(4))
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	closes := w.Closes()
	if len(closes) != 4 || closes[0] != 101 || closes[3] != 104 {
		t.Fatalf("unexpected closes: %v", closes)
	}
	typical := w.TypicalPrices()
	want := (102.0 + 98.0 + 101.0) / 3 // 第一根: high+low+close 平均
	if math.Abs(typical[0]-want) > 1e-9 {
		t.Fatalf("typical[0] = %v, want %v", typical[0], want)
	}
}
