// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/sourcing-engine/internal/intent"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// constraintMeta is the slice of a raw provider record the constraint scorer
// understands. Vendor directory records carry these fields; marketplace
// records usually decode to the zero value and fall back to text matching.
type constraintMeta struct {
	Routes        []string `json:"routes"`
	ServiceArea   string   `json:"service_area"`
	Category      string   `json:"category"`
	Capacity      int      `json:"capacity"`
	MaxPassengers int      `json:"max_passengers"`
}

// ConstraintBonus scores how well a result satisfies the intent's structured
// constraints, 0 to 1. Constraints are additive bonuses weighted by how
// discriminating they are; they never exclude a result, so a bad extraction
// degrades ranking instead of emptying it. No constraints yields a neutral
// 0.5.
func ConstraintBonus(c intent.Constraints, r types.NormalizedResult) float64 {
	if c.Empty() {
		return 0.5
	}

	var meta constraintMeta
	if len(r.Raw) > 0 {
		// Best effort; a marketplace payload that does not decode stays zero.
		_ = json.Unmarshal(r.Raw, &meta)
	}
	searchable := strings.ToLower(r.Title) + " " + strings.ToLower(r.Description)

	score, totalWeight := 0.0, 0.0

	if c.Origin != "" {
		totalWeight += 1.0
		switch {
		case matchesRoute(meta.Routes, c.Origin):
			score += 1.0
		case strings.Contains(searchable, strings.ToLower(c.Origin)):
			score += 0.6
		}
	}

	if c.Destination != "" {
		totalWeight += 0.8
		switch {
		case matchesRoute(meta.Routes, c.Destination):
			score += 0.8
		case strings.Contains(searchable, strings.ToLower(c.Destination)):
			score += 0.5
		}
	}

	if c.VehicleClass != "" {
		totalWeight += 0.8
		class := strings.ToLower(c.VehicleClass)
		switch {
		case meta.Category != "" && strings.Contains(strings.ToLower(meta.Category), class):
			score += 0.8
		case strings.Contains(searchable, class):
			score += 0.5
		}
	}

	if c.Passengers > 0 {
		totalWeight += 0.6
		capacity := meta.Capacity
		if capacity == 0 {
			capacity = meta.MaxPassengers
		}
		switch {
		case capacity >= c.Passengers:
			score += 0.6
		case strings.Contains(searchable, strconv.Itoa(c.Passengers)) || strings.Contains(searchable, "passenger"):
			score += 0.3
		}
	}

	if c.Location != "" {
		totalWeight += 0.7
		location := strings.ToLower(c.Location)
		switch {
		case strings.Contains(strings.ToLower(meta.ServiceArea), location) && meta.ServiceArea != "":
			score += 0.7
		case strings.Contains(searchable, location):
			score += 0.4
		}
	}

	// Budget fit is scored by the price dimension; partial credit here keeps
	// the weights comparable with the other constraints.
	if c.BudgetSet {
		totalWeight += 0.5
		score += 0.3
	}

	if len(c.Features) > 0 {
		totalWeight += 0.4
		matched := 0
		for _, f := range c.Features {
			if strings.Contains(searchable, strings.ToLower(f)) {
				matched++
			}
		}
		score += 0.4 * float64(matched) / float64(len(c.Features))
	}

	for _, val := range c.Generic {
		if val == "" {
			continue
		}
		totalWeight += 0.3
		if strings.Contains(searchable, strings.ToLower(val)) {
			score += 0.3
		}
	}

	if totalWeight <= 0 {
		return 0.5
	}
	return math.Min(1.0, score/totalWeight)
}

func matchesRoute(routes []string, place string) bool {
	lower := strings.ToLower(place)
	for _, route := range routes {
		if strings.Contains(strings.ToLower(route), lower) {
			return true
		}
	}
	return false
}
