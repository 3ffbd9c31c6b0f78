package quota

// Subscription tiers and their daily character ceilings.
const (
	TierFree       = "free"
	TierStarter    = "starter"
	TierCreator    = "creator"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

var ceilings = map[string]int64{
	TierFree:       700,
	TierStarter:    50_000,
	TierCreator:    200_000,
	TierPro:        1_500_000,
	TierEnterprise: 5_000_000,
}

// Ceiling returns the daily character ceiling for a tier. Unknown tiers
// fall back to the free ceiling rather than failing the request.
func Ceiling(tier string) int64 {
	if c, ok := ceilings[tier]; ok {
		return c
	}
	return ceilings[TierFree]
}
