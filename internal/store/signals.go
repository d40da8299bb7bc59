package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"cipherwatch/internal/signal"
	"cipherwatch/internal/trend"
)

// ErrNoRuns 还没有任何扫描记录。
var ErrNoRuns = errors.New("no scan runs recorded")

// Run 一次批量扫描的全部产出，带唯一 run ID。
type Run struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Results   []signal.Result `json:"results"`
	Verdicts  []trend.Verdict `json:"verdicts"`
}

// SignalStore 信号日志：下游的消息/展示协作方从这里读。
type SignalStore interface {
	SaveRun(ctx context.Context, run Run) error
	LatestRun(ctx context.Context) (Run, error)
	SymbolHistory(ctx context.Context, symbol string, limit int) ([]signal.Result, error)
	Close() error
}

// MemorySignalStore 内存实现，保留最近 maxRuns 次扫描。
type MemorySignalStore struct {
	mu      sync.RWMutex
	runs    []Run
	maxRuns int
}

func NewMemorySignalStore(maxRuns int) *MemorySignalStore {
	if maxRuns <= 0 {
		maxRuns = 32
	}
	return &MemorySignalStore{maxRuns: maxRuns}
}

func (s *MemorySignalStore) SaveRun(_ context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	if len(s.runs) > s.maxRuns {
		s.runs = s.runs[len(s.runs)-s.maxRuns:]
	}
	return nil
}

func (s *MemorySignalStore) LatestRun(_ context.Context) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return s.runs[len(s.runs)-1], nil
}

func (s *MemorySignalStore) SymbolHistory(_ context.Context, symbol string, limit int) ([]signal.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]signal.Result, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		for _, res := range s.runs[i].Results {
			if res.Symbol == symbol {
				out = append(out, res)
				if len(out) >= limit {
					break
				}
			}
		}
	}
	return out, nil
}

func (s *MemorySignalStore) Close() error { return nil }
