package trend

import (
	"context"
	"time"

	"cipherwatch/internal/logger"
	"cipherwatch/internal/market"
)

// Provider 按 (symbol, timeframe) 提供 K 线窗口。每个未被求值的条件都
// 省掉一次外部拉取，这是批量扫描里最大的延迟开销。
type Provider interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) (*market.Window, error)
}

// Rule 一条命名布尔条件，绑定到单个 timeframe。Check 只读窗口，返回
// 条件是否成立。返回 error 视为条件不成立（fail closed）。
type Rule struct {
	Name      string
	Timeframe string
	Limit     int
	Check     func(w *market.Window) (bool, error)
}

// Verdict 一次趋势评估的结论。Reasons 按声明顺序列出通过的规则名。
// 每次评估新建，消费后即弃。
type Verdict struct {
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Confirmed bool      `json:"is_confirmed"`
	Reasons   []string  `json:"reasons"`
	EvalTime  time.Time `json:"eval_time"`
}

// Engine 按声明顺序对规则链做短路 AND 求值。规则集和极性是数据而不是
// 代码：上行与下行引擎共用同一实现，只是喂进来的规则表不同。
type Engine struct {
	direction string
	rules     []Rule
}

// NewEngine 构建一个方向引擎。空规则链的结论恒为 confirmed（空真）。
func NewEngine(direction string, rules []Rule) *Engine {
	return &Engine{direction: direction, rules: rules}
}

func (e *Engine) Direction() string { return e.direction }

// Rules returns the declared rule chain, in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

type fetchedWindow struct {
	w     *market.Window
	limit int
}

// Evaluate 逐条求值，第一条不成立的规则终止整条链，后续 timeframe 的
// 数据不再拉取。同一次评估内相同 timeframe 的窗口会被复用，但缓存的
// 窗口短于当前规则的 Limit 时重新拉取，不拿短窗口凑数。
func (e *Engine) Evaluate(ctx context.Context, symbol string, p Provider) Verdict {
	verdict := Verdict{
		Symbol:    symbol,
		Direction: e.direction,
		Reasons:   make([]string, 0, len(e.rules)),
		EvalTime:  time.Now().UTC(),
	}

	windows := make(map[string]fetchedWindow, 2)
	for _, rule := range e.rules {
		entry, ok := windows[rule.Timeframe]
		if !ok || entry.limit < rule.Limit {
			w, err := p.Candles(ctx, symbol, rule.Timeframe, rule.Limit)
			if err != nil {
				logger.Debugf("trend %s %s: rule %q fetch %s failed: %v",
					e.direction, symbol, rule.Name, rule.Timeframe, err)
				return verdict
			}
			entry = fetchedWindow{w: w, limit: rule.Limit}
			windows[rule.Timeframe] = entry
		}
		pass, err := rule.Check(entry.w)
		if err != nil {
			logger.Debugf("trend %s %s: rule %q: %v", e.direction, symbol, rule.Name, err)
			return verdict
		}
		if !pass {
			return verdict
		}
		verdict.Reasons = append(verdict.Reasons, rule.Name)
	}
	verdict.Confirmed = true
	return verdict
}
