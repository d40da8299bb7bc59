package market

import (
	"context"
	"errors"
)

// ErrDataUnavailable 表示上游行情源无法给出所请求的序列。
// 批量扫描时单个 symbol 命中该错误只影响它自己。
var ErrDataUnavailable = errors.New("market data unavailable")

// SourceStats 记录数据源运行期的一些指标。
type SourceStats struct {
	HistoryCalls int64
	PriceCalls   int64
	FailedCalls  int64
	LastError    string
}

// Source 统一对接外部行情供应商。
type Source interface {
	// FetchHistory 拉取最近 limit 根 K 线并按时间升序返回。
	// 上游没有数据时返回 ErrDataUnavailable（可 wrap）。
	FetchHistory(ctx context.Context, symbol, interval string, limit int) (*Window, error)
	// CurrentPrice 返回最新成交价快照，仅用于装饰结果，不参与指标计算。
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	// Stats 返回当前运行状态（若 source 不支持则返回零值）。
	Stats() SourceStats
	// Close 释放底层资源。
	Close() error
}
