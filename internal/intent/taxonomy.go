// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package intent

import (
	"regexp"
	"strings"
)

// TaxonomyVersion tags queries with the category vocabulary they were built
// against, for auditability when the taxonomy evolves.
const TaxonomyVersion = "shopping_v2"

var categoryLabels = map[string]string{
	"running_shoes": "running shoes",
	"road_bike":     "road bike",
	"laptop":        "laptop",
	"headphones":    "headphones",
	"office_chair":  "office chair",
}

var categoryPaths = map[string][]string{
	"running_shoes": {"shoes", "running shoes"},
	"road_bike":     {"sporting goods", "cycling", "road bike"},
	"laptop":        {"electronics", "computers", "laptop"},
	"headphones":    {"electronics", "audio", "headphones"},
	"office_chair":  {"furniture", "office", "chair"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeCategory converts free-form category text to its identifier form
// ("Road  Bike!" -> "road_bike").
func NormalizeCategory(category string) string {
	normalized := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(category)), "_")
	return strings.Trim(normalized, "_")
}

// CategoryLabel resolves a category identifier to its human-readable label.
// Unknown categories fall back to the identifier with underscores spaced.
func CategoryLabel(category string) string {
	normalized := NormalizeCategory(category)
	if label, ok := categoryLabels[normalized]; ok {
		return label
	}
	return strings.TrimSpace(strings.ReplaceAll(normalized, "_", " "))
}

// CategoryPath resolves a category identifier to its taxonomy path, root
// first. Unknown categories yield the label split into segments.
func CategoryPath(category string) []string {
	normalized := NormalizeCategory(category)
	if path, ok := categoryPaths[normalized]; ok {
		return path
	}
	label := CategoryLabel(normalized)
	if label == "" {
		return nil
	}
	return strings.Fields(label)
}
