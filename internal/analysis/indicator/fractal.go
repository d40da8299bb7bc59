package indicator

// FractalKind 区分顶分型与底分型。
type FractalKind int

const (
	FractalTop FractalKind = iota
	FractalBottom
)

func (k FractalKind) String() string {
	if k == FractalTop {
		return "top"
	}
	return "bottom"
}

// Fractal 一个已确认的局部极值。Index 指向序列中的中心点（最旧为 0）。
// 确认需要中心点之后再出现两根，所以分型天然滞后两根，最近两根永远
// 不会被标记。
type Fractal struct {
	Index int
	Kind  FractalKind
	Value float64
}

// FindFractals 在序列上扫描 5 点分型。顶分型要求中心点严格大于左右各
// 两个邻点；底分型取镜像条件。同一偏移最多命中一种分型。纯函数，
// 输入相同结果相同。
func FindFractals(series []float64) []Fractal {
	if len(series) < 5 {
		return nil
	}
	out := make([]Fractal, 0, 8)
	for c := 2; c <= len(series)-3; c++ {
		center := series[c]
		if !isFinite(center) {
			continue
		}
		if isTopFractal(series, c) {
			out = append(out, Fractal{Index: c, Kind: FractalTop, Value: center})
			continue
		}
		if isBottomFractal(series, c) {
			out = append(out, Fractal{Index: c, Kind: FractalBottom, Value: center})
		}
	}
	return out
}

func isTopFractal(series []float64, c int) bool {
	center := series[c]
	return series[c-2] < center &&
		series[c-1] < center &&
		center > series[c+1] &&
		center > series[c+2]
}

func isBottomFractal(series []float64, c int) bool {
	center := series[c]
	return series[c-2] > center &&
		series[c-1] > center &&
		center < series[c+1] &&
		center < series[c+2]
}
