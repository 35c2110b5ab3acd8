package tiering

import "testing"

func TestTierOrdering(t *testing.T) {
	ladder := Tiers()
	if len(ladder) != 5 {
		t.Fatalf("expected 5 tiers, got %d", len(ladder))
	}
	for i := 1; i < len(ladder); i++ {
		if ladder[i] <= ladder[i-1] {
			t.Fatalf("ladder not strictly ascending at %s", ladder[i])
		}
	}
}

func TestParseTierRoundTrip(t *testing.T) {
	for _, tier := range Tiers() {
		parsed, ok := ParseTier(tier.String())
		if !ok {
			t.Fatalf("ParseTier(%q) not ok", tier.String())
		}
		if parsed != tier {
			t.Fatalf("ParseTier(%q) = %s", tier.String(), parsed)
		}
	}
}

func TestParseTierRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "intelligence", "platinum", "CORE"} {
		if _, ok := ParseTier(s); ok {
			t.Fatalf("ParseTier(%q) should fail", s)
		}
	}
}
