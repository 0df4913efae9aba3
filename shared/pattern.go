package shared

// PricePattern represents a chart or candlestick pattern detected on a
// record's trailing window. A record may carry zero or more patterns.
type PricePattern int

const (
	DoubleTop PricePattern = iota
	DoubleBottom
	HeadAndShoulders
	InverseHeadAndShoulders
	BullishEngulfing
	BearishEngulfing
	Doji
	MorningStar
	EveningStar
)

// String stringifies the provided price pattern.
func (p PricePattern) String() string {
	switch p {
	case DoubleTop:
		return "double_top"
	case DoubleBottom:
		return "double_bottom"
	case HeadAndShoulders:
		return "head_and_shoulders"
	case InverseHeadAndShoulders:
		return "inverse_head_and_shoulders"
	case BullishEngulfing:
		return "bullish_engulfing"
	case BearishEngulfing:
		return "bearish_engulfing"
	case Doji:
		return "doji"
	case MorningStar:
		return "morning_star"
	case EveningStar:
		return "evening_star"
	default:
		return "unknown"
	}
}

// ParsePricePattern parses a price pattern from its string form.
func ParsePricePattern(str string) (PricePattern, bool) {
	patterns := []PricePattern{DoubleTop, DoubleBottom, HeadAndShoulders,
		InverseHeadAndShoulders, BullishEngulfing, BearishEngulfing, Doji,
		MorningStar, EveningStar}
	for _, p := range patterns {
		if p.String() == str {
			return p, true
		}
	}

	return 0, false
}

// Reversal indicates whether the pattern signals a potential trend reversal.
func (p PricePattern) Reversal() bool {
	switch p {
	case DoubleTop, DoubleBottom, HeadAndShoulders, InverseHeadAndShoulders,
		MorningStar, EveningStar:
		return true
	default:
		return false
	}
}
