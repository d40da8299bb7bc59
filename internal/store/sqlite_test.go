package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cipherwatch/internal/trend"
)

func openTestDB(t *testing.T) *SQLiteSignalStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "signals.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("empty db: want ErrNoRuns, got %v", err)
	}

	run := sampleRun("run-1", "BTCUSDT", "ETHUSDT")
	run.Results[0].HasGreenCircle = true
	run.Results[0].WT2Last = -60.5
	run.Verdicts = []trend.Verdict{
		{
			Symbol:    "BTCUSDT",
			Direction: "uptrend",
			Confirmed: true,
			Reasons:   []string{"close_above_emas", "fast_ema_above_slow"},
			EvalTime:  time.Now().UTC(),
		},
		{
			Symbol:    "BTCUSDT",
			Direction: "downtrend",
			Reasons:   []string{},
			EvalTime:  time.Now().UTC(),
		},
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got.ID != "run-1" || len(got.Results) != 2 || len(got.Verdicts) != 2 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	for _, res := range got.Results {
		if res.Symbol == "BTCUSDT" {
			if !res.HasGreenCircle || res.WT2Last != -60.5 {
				t.Fatalf("signal fields lost in round trip: %+v", res)
			}
		}
	}
	for _, v := range got.Verdicts {
		if v.Direction == "uptrend" {
			if !v.Confirmed || len(v.Reasons) != 2 || v.Reasons[0] != "close_above_emas" {
				t.Fatalf("verdict fields lost in round trip: %+v", v)
			}
		}
	}
}

func TestSQLiteStoreLatestPicksNewest(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	older := sampleRun("run-old", "BTCUSDT")
	older.StartedAt = time.Now().Add(-time.Hour).UTC()
	newer := sampleRun("run-new", "BTCUSDT")

	if err := s.SaveRun(ctx, older); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, newer); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got.ID != "run-new" {
		t.Fatalf("latest run = %s, want run-new", got.ID)
	}
}

func TestSQLiteStoreSymbolHistory(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := sampleRun("run-"+string(rune('a'+i)), "BTCUSDT", "ETHUSDT")
		for j := range run.Results {
			run.Results[j].EvalTime = time.Now().Add(time.Duration(i) * time.Minute).UTC()
		}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	history, err := s.SymbolHistory(ctx, "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("SymbolHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("limit not honored: got %d", len(history))
	}
	for _, res := range history {
		if res.Symbol != "BTCUSDT" {
			t.Fatalf("foreign symbol in history: %+v", res)
		}
	}
}

func TestSQLiteStoreRejectsEmptyID(t *testing.T) {
	s := openTestDB(t)
	if err := s.SaveRun(context.Background(), Run{}); err == nil {
		t.Fatal("run without an ID must be rejected")
	}
}
