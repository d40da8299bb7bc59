package coins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"cipherwatch/internal/logger"
)

// SymbolProvider 提供待扫描的交易对列表。
type SymbolProvider interface {
	List(ctx context.Context) ([]string, error)
	Name() string
}

// NormalizeSymbols 把用户或远端给的币种名收敛成扫描器认的交易对：
// 大写、去空白、缺 USDT 后缀的补上，保序去重。
func NormalizeSymbols(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols configured")
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		if !strings.HasSuffix(sym, "USDT") {
			sym += "USDT"
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil, errors.New("normalization left no usable symbols")
	}
	return out, nil
}

// StaticProvider 静态配置的列表。
type StaticProvider struct{ symbols []string }

func NewStaticProvider(symbols []string) *StaticProvider {
	return &StaticProvider{symbols: symbols}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) List(_ context.Context) ([]string, error) {
	return NormalizeSymbols(p.symbols)
}

// HTTPSymbolProvider 从远端 JSON 端点取列表，兼容裸数组与
// {"symbols": [...]} 两种响应。
type HTTPSymbolProvider struct {
	URL    string
	Client *http.Client
}

func NewHTTPSymbolProvider(url string) *HTTPSymbolProvider {
	return &HTTPSymbolProvider{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *HTTPSymbolProvider) Name() string { return "http" }

func (p *HTTPSymbolProvider) List(ctx context.Context) ([]string, error) {
	if p.URL == "" {
		return nil, errors.New("symbol endpoint URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build symbol request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch symbol list: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("symbol endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read symbol list: %w", err)
	}

	// 先按裸数组解，失败再按对象解。
	var arr []string
	if err := json.Unmarshal(body, &arr); err == nil {
		return NormalizeSymbols(arr)
	}

	var obj struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode symbol list: %w", err)
	}
	return NormalizeSymbols(obj.Symbols)
}

// RefreshingProvider 包装另一个 provider，按 refresh 周期缓存结果，
// 刷新失败时退回 fallback（以及上一次成功的列表）。
type RefreshingProvider struct {
	inner    SymbolProvider
	refresh  time.Duration
	fallback []string

	mu          sync.RWMutex
	symbols     []string
	lastFetched time.Time
	lastErr     error
}

func NewRefreshingProvider(inner SymbolProvider, refresh time.Duration, fallback []string) *RefreshingProvider {
	if refresh <= 0 {
		refresh = time.Hour
	}
	norm, _ := NormalizeSymbols(fallback)
	return &RefreshingProvider{
		inner:    inner,
		refresh:  refresh,
		fallback: norm,
		symbols:  norm,
	}
}

func (p *RefreshingProvider) Name() string { return "refreshing(" + p.inner.Name() + ")" }

func (p *RefreshingProvider) List(ctx context.Context) ([]string, error) {
	_ = p.Refresh(ctx)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.symbols) == 0 {
		return nil, errors.New("no symbols available")
	}
	out := make([]string, len(p.symbols))
	copy(out, p.symbols)
	return out, nil
}

// Refresh 超过周期时向内层 provider 拉取一次，失败只记录不致命。
func (p *RefreshingProvider) Refresh(ctx context.Context) error {
	p.mu.RLock()
	lastFetched := p.lastFetched
	p.mu.RUnlock()
	if !lastFetched.IsZero() && time.Since(lastFetched) < p.refresh {
		return nil
	}

	symbols, err := p.inner.List(ctx)
	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		logger.Warnf("symbol provider %s 刷新失败，沿用现有列表: %v", p.inner.Name(), err)
		return err
	}

	p.mu.Lock()
	p.symbols = mergeAndDedup(symbols, p.fallback)
	p.lastFetched = time.Now()
	p.lastErr = nil
	p.mu.Unlock()

	logger.Infof("symbol provider %s 刷新成功，共 %d 个交易对", p.inner.Name(), len(symbols))
	return nil
}

// StartAutoRefresh 启动后台定时刷新，ctx 取消时退出。
func (p *RefreshingProvider) StartAutoRefresh(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		logger.Warnf("symbol provider 初始刷新失败: %v", err)
	}

	go func() {
		ticker := time.NewTicker(p.refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Refresh(ctx); err != nil {
					logger.Warnf("symbol provider 定时刷新失败: %v", err)
				}
			}
		}
	}()
}

func mergeAndDedup(a, b []string) []string {
	seen := make(map[string]struct{})
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
