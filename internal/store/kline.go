package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"cipherwatch/internal/market"
)

// KlineCache 读穿缓存：趋势规则链在一次评估里会对同一 (symbol, interval)
// 反复取窗，缓存把外部拉取压到每个 TTL 周期一次。核心引擎自身不做任何
// 缓存，这里是它的外部协作方。
type KlineCache struct {
	source market.Source
	ttl    time.Duration

	mu   sync.RWMutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	window    *market.Window
	limit     int
	fetchedAt time.Time
}

// NewKlineCache 包装一个行情源。ttl<=0 时默认 1 分钟。
func NewKlineCache(source market.Source, ttl time.Duration) *KlineCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &KlineCache{
		source: source,
		ttl:    ttl,
		data:   make(map[string]cacheEntry),
	}
}

func key(symbol, interval string) string { return symbol + "@" + interval }

// Candles 实现 trend.Provider。缓存命中且长度满足 limit 时不触发外部拉取。
func (c *KlineCache) Candles(ctx context.Context, symbol, interval string, limit int) (*market.Window, error) {
	if symbol == "" || interval == "" {
		return nil, errors.New("symbol/interval 不能为空")
	}
	k := key(symbol, interval)

	c.mu.RLock()
	entry, ok := c.data[k]
	c.mu.RUnlock()
	if ok && entry.limit >= limit && time.Since(entry.fetchedAt) < c.ttl {
		return entry.window, nil
	}

	w, err := c.source.FetchHistory(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.data[k] = cacheEntry{window: w, limit: limit, fetchedAt: time.Now()}
	c.mu.Unlock()
	return w, nil
}

// Invalidate 丢弃某个 symbol 的全部缓存条目。
func (c *KlineCache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if len(k) > len(symbol) && k[:len(symbol)] == symbol && k[len(symbol)] == '@' {
			delete(c.data, k)
		}
	}
}
