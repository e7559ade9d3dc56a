package mapview

// Tier is the qualitative bucket a fuel price falls into, used for marker
// colors and list badges.
type Tier string

const (
	TierLow     Tier = "low"
	TierMid     Tier = "mid"
	TierHigh    Tier = "high"
	TierUnknown Tier = "unknown"
)

// TierThresholds holds the price boundaries between tiers in €/liter.
// Prices strictly below Low are "low", strictly above High are "high",
// everything in between (boundaries included) is "mid".
type TierThresholds struct {
	Low  float64
	High float64
}

// DefaultTierThresholds are the stock boundaries; deployments override them
// through configuration.
var DefaultTierThresholds = TierThresholds{Low: 1.65, High: 1.80}

// Tier buckets a price. A nil price is "unknown".
func (t TierThresholds) Tier(price *float64) Tier {
	switch {
	case price == nil:
		return TierUnknown
	case *price < t.Low:
		return TierLow
	case *price > t.High:
		return TierHigh
	default:
		return TierMid
	}
}
