// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fx provides the read-only FX rate table used to express provider
// prices in USD. The table is loaded once per process and is immutable for
// the duration of a search; refresh happens out of band by replacing the
// rates file and restarting.
package fx

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// defaultRates is the built-in reference table (currency -> USD multiplier),
// used when no rates file is configured.
var defaultRates = map[string]float64{
	"USD": 1,
	"EUR": 1.08,
	"GBP": 1.27,
	"CAD": 0.74,
	"AUD": 0.66,
	"JPY": 0.0067,
	"CNY": 0.14,
	"INR": 0.012,
	"MXN": 0.058,
}

// Table is an immutable currency -> USD rate mapping with a load timestamp.
type Table struct {
	rates  map[string]float64
	asOf   time.Time
	maxAge time.Duration
}

// ratesFile is the on-disk YAML representation of a rate table.
type ratesFile struct {
	AsOf  time.Time          `yaml:"as_of"`
	Rates map[string]float64 `yaml:"rates"`
}

// Default returns the built-in reference table. It carries no timestamp and
// is never considered stale.
func Default() *Table {
	return &Table{rates: defaultRates}
}

// Load reads a YAML rates file. Rates already older than maxAge at load time
// are rejected so a search never starts with an outdated table. A maxAge of
// zero defaults to 24h.
func Load(path string, maxAge time.Duration) (*Table, error) {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rates file: %w", err)
	}
	var rf ratesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rates file: %w", err)
	}
	if len(rf.Rates) == 0 {
		return nil, fmt.Errorf("rates file %s contains no rates", path)
	}
	if rf.AsOf.IsZero() {
		return nil, fmt.Errorf("rates file %s has no as_of timestamp", path)
	}
	if time.Since(rf.AsOf) > maxAge {
		return nil, fmt.Errorf("rates file %s is stale: as_of %s exceeds max age %s",
			path, rf.AsOf.Format(time.RFC3339), maxAge)
	}

	rates := make(map[string]float64, len(rf.Rates)+1)
	for code, rate := range rf.Rates {
		norm, ok := NormalizeCode(code)
		if !ok || rate <= 0 {
			continue
		}
		rates[norm] = rate
	}
	rates["USD"] = 1
	return &Table{rates: rates, asOf: rf.AsOf, maxAge: maxAge}, nil
}

// NormalizeCode uppercases and validates a 3-letter ISO currency code.
func NormalizeCode(code string) (string, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if len(trimmed) != 3 {
		return "", false
	}
	for _, r := range trimmed {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return trimmed, true
}

// ToUSD converts amount from the given currency into USD, rounded to cents.
// The second return is false when the currency is unknown, the rate table has
// gone stale since load, or the amount is not a finite number. Callers leave
// the price unset in those cases rather than guessing.
func (t *Table) ToUSD(amount float64, currency string) (float64, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}
	if !t.asOf.IsZero() && time.Since(t.asOf) > t.maxAge {
		return 0, false
	}
	code, ok := NormalizeCode(currency)
	if !ok {
		return 0, false
	}
	rate, ok := t.rates[code]
	if !ok || rate <= 0 {
		return 0, false
	}
	return math.Round(amount*rate*100) / 100, true
}
