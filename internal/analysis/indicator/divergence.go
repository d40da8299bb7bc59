package indicator

import "fmt"

// DivergenceKind 背离类型。regular 为反转信号，hidden 为延续信号。
type DivergenceKind int

const (
	BullishRegular DivergenceKind = iota
	BearishRegular
	BullishHidden
	BearishHidden
)

func (k DivergenceKind) String() string {
	switch k {
	case BullishRegular:
		return "bullish_regular"
	case BearishRegular:
		return "bearish_regular"
	case BullishHidden:
		return "bullish_hidden"
	case BearishHidden:
		return "bearish_hidden"
	default:
		return fmt.Sprintf("divergence(%d)", int(k))
	}
}

// Bullish reports whether the event argues for upside.
func (k DivergenceKind) Bullish() bool {
	return k == BullishRegular || k == BullishHidden
}

// DivergenceEvent 一次已确认的背离。AnchorIndex 指向触发分型的中心点。
type DivergenceEvent struct {
	Kind            DivergenceKind
	AnchorIndex     int
	ReferencePrice  float64
	ReferenceOscVal float64
}

// DivergenceLimits 控制分型参与比较前的振荡值门槛。ApplyLimits 为 false
// 时所有分型都参与（“不限级别”的隐藏背离变体）。
type DivergenceLimits struct {
	Upper       float64
	Lower       float64
	ApplyLimits bool
}

// FindDivergences 在振荡序列上跑分型检测，并把每个合格分型与同类的
// 上一个合格分型比较：
//
//	顶分型: 价格新高 + 振荡走低 -> BearishRegular
//	        价格走低 + 振荡新高 -> BearishHidden
//	底分型: 价格新低 + 振荡走高 -> BullishRegular
//	        价格走高 + 振荡新低 -> BullishHidden
//
// 只与紧邻的前一个同类合格分型比较，不向更早回溯。某类分型不足两个时
// 不产生该类事件。priceHigh/priceLow 必须与 oscillator 等长对齐。
func FindDivergences(oscillator, priceHigh, priceLow []float64, limits DivergenceLimits) []DivergenceEvent {
	n := len(oscillator)
	if n == 0 || len(priceHigh) != n || len(priceLow) != n {
		return nil
	}

	events := make([]DivergenceEvent, 0, 4)
	prevTop := -1
	prevBottom := -1
	for _, f := range FindFractals(oscillator) {
		switch f.Kind {
		case FractalTop:
			if limits.ApplyLimits && f.Value < limits.Upper {
				continue
			}
			if prevTop >= 0 {
				events = append(events, classifyTopPair(oscillator, priceHigh, prevTop, f.Index)...)
			}
			prevTop = f.Index
		case FractalBottom:
			if limits.ApplyLimits && f.Value > limits.Lower {
				continue
			}
			if prevBottom >= 0 {
				events = append(events, classifyBottomPair(oscillator, priceLow, prevBottom, f.Index)...)
			}
			prevBottom = f.Index
		}
	}
	return events
}

func classifyTopPair(osc, priceHigh []float64, prev, cur int) []DivergenceEvent {
	priceRose := priceHigh[cur] > priceHigh[prev]
	priceFell := priceHigh[cur] < priceHigh[prev]
	oscRose := osc[cur] > osc[prev]
	oscFell := osc[cur] < osc[prev]

	switch {
	case priceRose && oscFell:
		return []DivergenceEvent{{
			Kind:            BearishRegular,
			AnchorIndex:     cur,
			ReferencePrice:  priceHigh[cur],
			ReferenceOscVal: osc[cur],
		}}
	case priceFell && oscRose:
		return []DivergenceEvent{{
			Kind:            BearishHidden,
			AnchorIndex:     cur,
			ReferencePrice:  priceHigh[cur],
			ReferenceOscVal: osc[cur],
		}}
	default:
		return nil
	}
}

func classifyBottomPair(osc, priceLow []float64, prev, cur int) []DivergenceEvent {
	priceFell := priceLow[cur] < priceLow[prev]
	priceRose := priceLow[cur] > priceLow[prev]
	oscRose := osc[cur] > osc[prev]
	oscFell := osc[cur] < osc[prev]

	switch {
	case priceFell && oscRose:
		return []DivergenceEvent{{
			Kind:            BullishRegular,
			AnchorIndex:     cur,
			ReferencePrice:  priceLow[cur],
			ReferenceOscVal: osc[cur],
		}}
	case priceRose && oscFell:
		return []DivergenceEvent{{
			Kind:            BullishHidden,
			AnchorIndex:     cur,
			ReferencePrice:  priceLow[cur],
			ReferenceOscVal: osc[cur],
		}}
	default:
		return nil
	}
}
