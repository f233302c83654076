// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fx

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToUSD(t *testing.T) {
	table := Default()

	tests := []struct {
		name     string
		amount   float64
		currency string
		want     float64
		wantOK   bool
	}{
		{"usd identity", 100, "USD", 100, true},
		{"eur converted", 100, "EUR", 108, true},
		{"lowercase code", 100, "eur", 108, true},
		{"padded code", 100, " GBP ", 127, true},
		{"rounded to cents", 9.99, "JPY", 0.07, true},
		{"unknown currency", 100, "XXX", 0, false},
		{"invalid code", 100, "EURO", 0, false},
		{"empty code", 100, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.ToUSD(tt.amount, tt.currency)
			if ok != tt.wantOK {
				t.Fatalf("ToUSD(%v, %q) ok = %v, want %v", tt.amount, tt.currency, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ToUSD(%v, %q) = %v, want %v", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func writeRates(t *testing.T, asOf time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := fmt.Sprintf("as_of: %s\nrates:\n  EUR: 1.10\n  GBP: 1.25\n", asOf.Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFreshRates(t *testing.T) {
	path := writeRates(t, time.Now().Add(-time.Hour))

	table, err := Load(path, 24*time.Hour)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, ok := table.ToUSD(10, "EUR")
	if !ok || got != 11 {
		t.Errorf("ToUSD(10, EUR) = %v, %v; want 11, true", got, ok)
	}
	// USD is always present even when the file omits it.
	if got, ok := table.ToUSD(5, "USD"); !ok || got != 5 {
		t.Errorf("ToUSD(5, USD) = %v, %v; want 5, true", got, ok)
	}
}

func TestLoadRejectsStaleRates(t *testing.T) {
	path := writeRates(t, time.Now().Add(-48*time.Hour))

	if _, err := Load(path, 24*time.Hour); err == nil {
		t.Fatal("Load() with 48h-old rates should fail")
	}
}

func TestLoadRejectsMissingTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	if err := os.WriteFile(path, []byte("rates:\n  EUR: 1.10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, 24*time.Hour); err == nil {
		t.Fatal("Load() without as_of should fail")
	}
}

func TestToUSDStaleAfterLoad(t *testing.T) {
	// Loaded fresh, but the table ages past max age before conversion.
	path := writeRates(t, time.Now().Add(-59*time.Minute))
	table, err := Load(path, time.Hour)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	table.asOf = time.Now().Add(-2 * time.Hour)

	if _, ok := table.ToUSD(10, "EUR"); ok {
		t.Error("ToUSD with stale table should report not ok")
	}
}
