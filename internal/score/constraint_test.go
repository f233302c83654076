// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"encoding/json"
	"testing"

	"github.com/pdiddy/sourcing-engine/internal/intent"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

func TestConstraintBonusNeutralWithoutConstraints(t *testing.T) {
	got := ConstraintBonus(intent.Constraints{}, types.NormalizedResult{Title: "anything"})
	if got != 0.5 {
		t.Errorf("no constraints = %v, want 0.5", got)
	}
}

func TestConstraintBonusRouteMetadata(t *testing.T) {
	raw, _ := json.Marshal(map[string]interface{}{
		"routes":   []string{"JFK-LAX", "JFK-SFO"},
		"capacity": 10,
	})
	c := intent.Constraints{Origin: "JFK", Destination: "LAX", Passengers: 6}

	vendor := types.NormalizedResult{Title: "SkyBridge Charters", Raw: raw}
	got := ConstraintBonus(c, vendor)
	// All three satisfied at full credit: (1.0 + 0.8 + 0.6) / (1.0 + 0.8 + 0.6)
	if !almostEqual(got, 1.0) {
		t.Errorf("full route match = %v, want 1.0", got)
	}
}

func TestConstraintBonusTextFallback(t *testing.T) {
	c := intent.Constraints{Origin: "JFK", Destination: "LAX"}
	r := types.NormalizedResult{
		Title:       "Charter flights from JFK",
		Description: "Serving LAX and the west coast",
	}

	got := ConstraintBonus(c, r)
	// Text-only matches earn partial credit: (0.6 + 0.5) / (1.0 + 0.8)
	want := (0.6 + 0.5) / 1.8
	if !almostEqual(got, want) {
		t.Errorf("text fallback = %v, want %v", got, want)
	}
}

func TestConstraintBonusUnsatisfiedIsLowNotZeroWeight(t *testing.T) {
	c := intent.Constraints{Origin: "JFK"}
	r := types.NormalizedResult{Title: "Totally unrelated listing"}
	if got := ConstraintBonus(c, r); got != 0 {
		t.Errorf("unsatisfied constraint = %v, want 0", got)
	}
}

func TestConstraintBonusGenericAndFeatures(t *testing.T) {
	c := intent.Constraints{
		Generic:  map[string]string{"color": "celeste", "brand": "bianchi"},
		Features: []string{"carbon frame", "disc brakes"},
	}
	r := types.NormalizedResult{
		Title:       "Bianchi Oltre in Celeste",
		Description: "Full carbon frame with rim brakes",
	}

	got := ConstraintBonus(c, r)
	// color 0.3 + brand 0.3 + features 0.4*(1/2), over 0.3+0.3+0.4
	want := (0.3 + 0.3 + 0.2) / 1.0
	if !almostEqual(got, want) {
		t.Errorf("generic/features = %v, want %v", got, want)
	}
}

func TestConstraintBonusBudgetPartialCredit(t *testing.T) {
	c := intent.Constraints{BudgetSet: true}
	got := ConstraintBonus(c, types.NormalizedResult{Title: "anything"})
	if !almostEqual(got, 0.3/0.5) {
		t.Errorf("budget-only = %v, want 0.6", got)
	}
}

func TestConstraintBonusLocationServiceArea(t *testing.T) {
	raw, _ := json.Marshal(map[string]interface{}{"service_area": "San Diego and Orange County"})
	c := intent.Constraints{Location: "san diego"}

	meta := ConstraintBonus(c, types.NormalizedResult{Title: "Harbor Catering", Raw: raw})
	if !almostEqual(meta, 0.7/0.7) {
		t.Errorf("service area match = %v, want 1.0", meta)
	}

	text := ConstraintBonus(c, types.NormalizedResult{Title: "Catering in San Diego"})
	if !almostEqual(text, 0.4/0.7) {
		t.Errorf("text location match = %v, want %v", text, 0.4/0.7)
	}
}

func TestConstraintBonusNeverExceedsOne(t *testing.T) {
	raw, _ := json.Marshal(map[string]interface{}{
		"routes":       []string{"JFK-LAX"},
		"service_area": "nationwide",
		"capacity":     16,
	})
	c := intent.Constraints{
		Origin:      "JFK",
		Destination: "LAX",
		Passengers:  4,
		Location:    "nationwide",
		BudgetSet:   true,
		Features:    []string{"wifi"},
		Generic:     map[string]string{"condition": "new"},
	}
	r := types.NormalizedResult{
		Title:       "JFK LAX nationwide wifi new charter",
		Description: "wifi equipped, new fleet",
		Raw:         raw,
	}

	if got := ConstraintBonus(c, r); got > 1.0 {
		t.Errorf("bonus = %v, must not exceed 1.0", got)
	}
}
