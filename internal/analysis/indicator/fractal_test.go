package indicator

import "testing"

func TestFindFractalsTopAndBottom(t *testing.T) {
	series := []float64{0, 1, 5, 1, 0, -1, -5, -1, 0, 1}
	fractals := FindFractals(series)
	if len(fractals) != 2 {
		t.Fatalf("got %d fractals, want 2: %+v", len(fractals), fractals)
	}
	if fractals[0].Kind != FractalTop || fractals[0].Index != 2 || fractals[0].Value != 5 {
		t.Fatalf("unexpected top fractal: %+v", fractals[0])
	}
	if fractals[1].Kind != FractalBottom || fractals[1].Index != 6 || fractals[1].Value != -5 {
		t.Fatalf("unexpected bottom fractal: %+v", fractals[1])
	}
}

// 分型确认需要中心点之后两根，最后两个偏移永远不能成为分型中心。
func TestFindFractalsConfirmationLag(t *testing.T) {
	series := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 100}
	for _, f := range FindFractals(series) {
		if f.Index > len(series)-3 {
			t.Fatalf("fractal at index %d violates the two-bar confirmation lag", f.Index)
		}
	}

	// 把峰值放到倒数第二位：哪怕它是全局最大也不能被确认。
	series = []float64{0, 1, 2, 3, 4, 3, 2, 1, 100, 2}
	for _, f := range FindFractals(series) {
		if f.Index == 8 {
			t.Fatal("unconfirmed peak at len-2 must not be reported")
		}
	}
}

// 比较是严格的：与邻点相等的平台不算分型。
func TestFindFractalsStrictComparison(t *testing.T) {
	series := []float64{0, 5, 5, 5, 0, 1, 2}
	for _, f := range FindFractals(series) {
		if f.Kind == FractalTop {
			t.Fatalf("plateau reported as top fractal: %+v", f)
		}
	}
}

func TestFindFractalsShortSeries(t *testing.T) {
	if got := FindFractals([]float64{1, 2, 3, 2}); got != nil {
		t.Fatalf("series shorter than 5 must yield nil, got %+v", got)
	}
}

// 严格比较保证同一偏移至多是一种分型，且不会被重复上报。
func TestFindFractalsExclusivePerIndex(t *testing.T) {
	series := []float64{3, 7, 2, 9, 1, 8, 0, 6, -2, 5, -4, 4, -1, 3, 2}
	seen := make(map[int]FractalKind)
	for _, f := range FindFractals(series) {
		if kind, dup := seen[f.Index]; dup {
			t.Fatalf("index %d reported twice (%v and %v)", f.Index, kind, f.Kind)
		}
		seen[f.Index] = f.Kind
	}
	if len(seen) == 0 {
		t.Fatal("zigzag series must produce fractals")
	}
}
