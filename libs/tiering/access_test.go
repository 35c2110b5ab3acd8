package tiering

import "testing"

// Every feature must be either a ladder feature with exactly one required
// tier or an intelligence add-on feature, never both, never neither.
func TestFeatureMapIsTotal(t *testing.T) {
	for _, f := range Features() {
		_, ladder := RequiredTier(f)
		addon := IsIntelligence(f)
		if ladder == addon {
			t.Fatalf("feature %s: ladder=%v addon=%v", f, ladder, addon)
		}
	}
	if len(Features()) != len(requiredTier)+len(intelligenceFeatures) {
		t.Fatalf("feature list out of sync with tier maps")
	}
}

// Access granted at tier T must remain granted at every higher tier with
// the same add-on flag.
func TestAccessMonotonicity(t *testing.T) {
	for _, addon := range []bool{false, true} {
		for _, f := range Features() {
			granted := false
			for _, tier := range Tiers() {
				sub := Subscription{Tier: tier, Intelligence: addon}
				if CanAccess(sub, f) {
					granted = true
				} else if granted {
					t.Fatalf("feature %s revoked at tier %s (addon=%v)", f, tier, addon)
				}
			}
		}
	}
}

func TestCanAccessTierLadder(t *testing.T) {
	sub := Subscription{Tier: TierPlus}
	if !CanAccessTier(sub, TierCapture) || !CanAccessTier(sub, TierPlus) {
		t.Fatal("plus clinic should reach capture and plus")
	}
	if CanAccessTier(sub, TierPro) || CanAccessTier(sub, TierEnterprise) {
		t.Fatal("plus clinic should not reach pro or enterprise")
	}
}

func TestWhatsAppAPIRequiresPlus(t *testing.T) {
	core := Subscription{Tier: TierCore}
	if CanAccess(core, FeatureWhatsAppAPI) {
		t.Fatal("core clinic should not have whatsapp_api")
	}
	plus := Subscription{Tier: TierPlus}
	if !CanAccess(plus, FeatureWhatsAppAPI) {
		t.Fatal("plus clinic should have whatsapp_api")
	}
}

func TestIntelligenceIndependentOfTier(t *testing.T) {
	capture := Subscription{Tier: TierCapture, Intelligence: true}
	if !CanAccess(capture, FeatureAIScribe) {
		t.Fatal("capture clinic with add-on should have ai_scribe")
	}
	enterprise := Subscription{Tier: TierEnterprise}
	if CanAccess(enterprise, FeatureAIScribe) {
		t.Fatal("enterprise clinic without add-on should not have ai_scribe")
	}
}

func TestEnabledSubsetGrowsWithTier(t *testing.T) {
	prev := 0
	for _, tier := range Tiers() {
		n := len(Enabled(Subscription{Tier: tier}))
		if n < prev {
			t.Fatalf("enabled set shrank at tier %s", tier)
		}
		prev = n
	}

	base := len(Enabled(Subscription{Tier: TierCore}))
	withAddon := len(Enabled(Subscription{Tier: TierCore, Intelligence: true}))
	if withAddon != base+len(intelligenceFeatures) {
		t.Fatalf("add-on should enable exactly the intelligence set: %d vs %d", withAddon, base)
	}
}

func TestUnknownFeatureDenied(t *testing.T) {
	if CanAccess(Subscription{Tier: TierEnterprise, Intelligence: true}, Feature("telepathy")) {
		t.Fatal("unknown feature must be denied")
	}
}
