package tiering

// Subscription is a clinic's current plan state. Clinics always have at
// least TierCapture; there is no "no subscription" state.
type Subscription struct {
	Tier         Tier
	Intelligence bool
}

// RequiredTier returns the minimum base tier for a ladder feature.
// ok is false for intelligence add-on features and unknown features; an
// unknown feature here is a programming error, not a runtime condition.
func RequiredTier(f Feature) (Tier, bool) {
	t, ok := requiredTier[f]
	return t, ok
}

// IsIntelligence reports whether a feature belongs to the add-on set.
func IsIntelligence(f Feature) bool {
	_, ok := intelligenceFeatures[f]
	return ok
}

// CanAccess answers "can this clinic use feature f right now?".
// Intelligence features depend only on the add-on flag; everything else is
// a tier comparison on the base ladder. Unknown features are denied.
func CanAccess(sub Subscription, f Feature) bool {
	if IsIntelligence(f) {
		return sub.Intelligence
	}
	t, ok := requiredTier[f]
	if !ok {
		return false
	}
	return sub.Tier >= t
}

// CanAccessTier reports whether the subscription's base tier is at least t.
// The intelligence add-on never satisfies a base-tier requirement.
func CanAccessTier(sub Subscription, t Tier) bool {
	return sub.Tier >= t
}

// Enabled returns every feature the subscription can use, in the stable
// order of Features(). This feeds the config endpoint the UI gates on.
func Enabled(sub Subscription) []Feature {
	var out []Feature
	for _, f := range allFeatures {
		if CanAccess(sub, f) {
			out = append(out, f)
		}
	}
	return out
}
