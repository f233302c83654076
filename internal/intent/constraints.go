// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package intent

import (
	"strconv"
	"strings"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// Constraints are the structured requirements derived from an intent that the
// constraint scorer rewards. They are bonuses, never hard filters: extraction
// is frequently noisy or incomplete, and a result failing every constraint
// still ranks, just lower.
type Constraints struct {
	// Origin and Destination describe a required route (travel/charter requests).
	Origin      string
	Destination string

	// VehicleClass is a required vehicle or aircraft class.
	VehicleClass string

	// Passengers is a required capacity; zero means unconstrained.
	Passengers int

	// Location is a required service area.
	Location string

	// BudgetSet records that the intent carried a price bound. The price
	// scorer owns budget fit; the constraint scorer only grants partial credit.
	BudgetSet bool

	// Features are required product features (e.g. "wifi", "carbon frame").
	Features []string

	// Generic holds simple attribute constraints keyed by a known vocabulary
	// (color, material, style, size, brand, condition, cuisine, dietary).
	Generic map[string]string
}

// genericKeys is the attribute vocabulary recognized in intent features.
var genericKeys = []string{"color", "material", "style", "size", "brand", "condition", "cuisine", "dietary"}

// Empty reports whether no constraint was extracted.
func (c Constraints) Empty() bool {
	return c.Origin == "" && c.Destination == "" && c.VehicleClass == "" &&
		c.Passengers == 0 && c.Location == "" && !c.BudgetSet &&
		len(c.Features) == 0 && len(c.Generic) == 0
}

// Extract derives structured constraints from an intent's feature map and
// top-level fields. Unrecognized features become required product features.
func Extract(in types.SearchIntent) Constraints {
	c := Constraints{Generic: map[string]string{}}

	if in.MinPrice != nil || in.MaxPrice != nil {
		c.BudgetSet = true
	}
	if in.Brand != "" {
		c.Generic["brand"] = in.Brand
	}
	if in.Condition != "" && in.Condition != types.ConditionAny {
		c.Generic["condition"] = string(in.Condition)
	}

	for key, value := range in.Features {
		values := value.All()
		if len(values) == 0 {
			continue
		}
		first := strings.TrimSpace(values[0])
		switch strings.ToLower(key) {
		case "origin", "from":
			c.Origin = first
		case "destination", "to":
			c.Destination = first
		case "aircraft_class", "vehicle_class", "vehicle":
			c.VehicleClass = first
		case "passengers", "capacity", "seats":
			if n, err := strconv.Atoi(first); err == nil && n > 0 {
				c.Passengers = n
			}
		case "location", "service_area", "area":
			c.Location = first
		default:
			if isGenericKey(key) {
				c.Generic[strings.ToLower(key)] = first
				continue
			}
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					c.Features = append(c.Features, v)
				}
			}
		}
	}

	if len(c.Generic) == 0 {
		c.Generic = nil
	}
	return c
}

func isGenericKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range genericKeys {
		if lower == k {
			return true
		}
	}
	return false
}
