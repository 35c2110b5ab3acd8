// Package tiering is the subscription tier and feature permission engine.
// It is a pure lookup over static data: no I/O, safe to evaluate on every
// request, and shared by every service that gates behavior on a clinic's plan.
package tiering

// Tier is a rung on the base subscription ladder. The ordering is total:
// a clinic at tier T can use every feature whose required tier is <= T.
// The intelligence add-on is deliberately not a Tier; it is a side flag on
// the subscription that unlocks its own feature set (see Subscription).
type Tier int

const (
	TierCapture Tier = iota
	TierCore
	TierPlus
	TierPro
	TierEnterprise
)

var tierNames = map[Tier]string{
	TierCapture:    "capture",
	TierCore:       "core",
	TierPlus:       "plus",
	TierPro:        "pro",
	TierEnterprise: "enterprise",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTier maps the wire/database representation back to a Tier.
// Unknown strings are rejected rather than defaulted: tier changes come from
// billing and a typo there must not silently grant or revoke access.
func ParseTier(s string) (Tier, bool) {
	for t, name := range tierNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// Tiers returns the base ladder in ascending order.
func Tiers() []Tier {
	return []Tier{TierCapture, TierCore, TierPlus, TierPro, TierEnterprise}
}
