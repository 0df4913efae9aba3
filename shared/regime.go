package shared

// MarketRegime classifies the market context a record was observed in. The
// classes are mutually exclusive.
type MarketRegime int

const (
	RegimeNone MarketRegime = iota
	TrendingUp
	TrendingDown
	Ranging
	HighVolatility
	LowVolatility
)

// String stringifies the provided market regime.
func (r MarketRegime) String() string {
	switch r {
	case TrendingUp:
		return "trending_up"
	case TrendingDown:
		return "trending_down"
	case Ranging:
		return "ranging"
	case HighVolatility:
		return "high_volatility"
	case LowVolatility:
		return "low_volatility"
	default:
		return "none"
	}
}

// ParseMarketRegime parses a market regime from its string form. Unknown
// forms map to RegimeNone.
func ParseMarketRegime(str string) MarketRegime {
	switch str {
	case "trending_up":
		return TrendingUp
	case "trending_down":
		return TrendingDown
	case "ranging":
		return Ranging
	case "high_volatility":
		return HighVolatility
	case "low_volatility":
		return LowVolatility
	default:
		return RegimeNone
	}
}
