// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sourcing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pdiddy/sourcing-engine/internal/provider"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// stubProvider round-trips canned results through JSON so Execute and
// Normalize exercise the same record plumbing real providers use.
type stubProvider struct {
	id        string
	native    bool
	results   []types.NormalizedResult
	execErr   error
	delay     time.Duration
	ignoreCtx bool
}

func (s *stubProvider) ID() string                      { return s.id }
func (s *stubProvider) SupportsNativePriceFilter() bool { return s.native }

func (s *stubProvider) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	return types.ProviderQuery{ProviderID: s.id, Query: in.RawInput}
}

func (s *stubProvider) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	if s.delay > 0 {
		if s.ignoreCtx {
			time.Sleep(s.delay)
		} else {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if s.execErr != nil {
		return nil, s.execErr
	}
	records := make([]json.RawMessage, 0, len(s.results))
	for _, r := range s.results {
		rec, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *stubProvider) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var r types.NormalizedResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	switch r.Title {
	case "__skip__":
		return nil, nil
	case "__bad__":
		return nil, errors.New("malformed record")
	}
	r.Source = s.id
	return &r, nil
}

func offer(title, url string, price *float64) types.NormalizedResult {
	return types.NormalizedResult{
		Title:        title,
		URL:          url,
		CanonicalURL: url,
		Price:        price,
		MerchantName: "Test Merchant",
	}
}

func f64(v float64) *float64 { return &v }

func newTestEngine(t *testing.T, providers ...provider.Provider) *Engine {
	t.Helper()
	e, err := New(providers, nil, types.SearchConfig{}, nil)
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	return e
}

func testIntent() types.SearchIntent {
	return types.SearchIntent{
		Category:   "road_bike",
		Keywords:   []string{"road", "bike"},
		Confidence: 0.9,
		RawInput:   "carbon road bike",
	}
}

func TestSearchPartialResults(t *testing.T) {
	healthy := &stubProvider{id: "healthy", results: []types.NormalizedResult{
		offer("Road Bike A", "https://a.example.com/1", f64(100)),
		offer("Road Bike B", "https://a.example.com/2", f64(120)),
	}}
	limited := &stubProvider{id: "limited", execErr: provider.NewFailure(types.StatusRateLimited, "429 with secret token abcdef12345")}

	e := newTestEngine(t, healthy, limited)
	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Errorf("results = %d, want the healthy provider's 2", len(resp.Results))
	}
	if resp.UserMessage != "" {
		t.Errorf("user message = %q, want empty on partial success", resp.UserMessage)
	}

	byID := statusByID(resp.Statuses)
	if byID["healthy"].Status != types.StatusOK || byID["healthy"].ResultCount != 2 {
		t.Errorf("healthy status = %+v", byID["healthy"])
	}
	if byID["limited"].Status != types.StatusRateLimited {
		t.Errorf("limited status = %+v", byID["limited"])
	}
	// Upstream error text never reaches the snapshot.
	if byID["limited"].Message != "Rate limit exceeded" {
		t.Errorf("limited message = %q", byID["limited"].Message)
	}
}

func TestSearchProviderTimeout(t *testing.T) {
	slow := &stubProvider{id: "slow", delay: time.Second, results: []types.NormalizedResult{
		offer("Never seen", "https://slow.example.com/1", nil),
	}}
	fast := &stubProvider{id: "fast", results: []types.NormalizedResult{
		offer("Fast result", "https://fast.example.com/1", f64(50)),
	}}

	e, err := New([]provider.Provider{slow, fast}, nil, types.SearchConfig{
		ProviderTimeout: 30 * time.Millisecond,
		OverallDeadline: 200 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	byID := statusByID(resp.Statuses)
	if byID["slow"].Status != types.StatusTimeout {
		t.Errorf("slow status = %v, want timeout", byID["slow"].Status)
	}
	if byID["fast"].Status != types.StatusOK {
		t.Errorf("fast status = %v, want ok", byID["fast"].Status)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Fast result" {
		t.Errorf("results = %+v, want only the fast provider's", resp.Results)
	}
}

func TestSearchStragglerMissesOverallDeadline(t *testing.T) {
	// Ignores cancellation entirely, so only the overall deadline stops it.
	stuck := &stubProvider{id: "stuck", delay: time.Second, ignoreCtx: true}
	fast := &stubProvider{id: "fast", results: []types.NormalizedResult{
		offer("Fast result", "https://fast.example.com/1", nil),
	}}

	e, err := New([]provider.Provider{stuck, fast}, nil, types.SearchConfig{
		ProviderTimeout: 50 * time.Millisecond,
		OverallDeadline: 150 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	start := time.Now()
	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 800*time.Millisecond {
		t.Errorf("search took %v, must not wait for the straggler", elapsed)
	}

	byID := statusByID(resp.Statuses)
	if byID["stuck"].Status != types.StatusTimeout {
		t.Errorf("stuck status = %v, want timeout", byID["stuck"].Status)
	}
	if len(resp.Results) != 1 {
		t.Errorf("results = %d, want the fast provider's 1", len(resp.Results))
	}
}

func TestSearchSameProviderCollapse(t *testing.T) {
	p := &stubProvider{id: "shop", results: []types.NormalizedResult{
		offer("First listing", "https://shop.example.com/item", f64(100)),
		offer("Other listing", "https://shop.example.com/other", f64(90)),
		offer("Updated listing", "https://shop.example.com/item", f64(95)),
	}}

	e := newTestEngine(t, p)
	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want duplicates collapsed to 2", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.CanonicalURL == "https://shop.example.com/item" && r.Title != "Updated listing" {
			t.Errorf("collapsed title = %q, want the last record to win", r.Title)
		}
	}
}

func TestSearchNoCrossProviderCollapse(t *testing.T) {
	a := &stubProvider{id: "alpha", results: []types.NormalizedResult{
		offer("Same listing via alpha", "https://shared.example.com/item", f64(100)),
	}}
	b := &stubProvider{id: "beta", results: []types.NormalizedResult{
		offer("Same listing via beta", "https://shared.example.com/item", f64(99)),
	}}

	e := newTestEngine(t, a, b)
	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %d, want both providers' offers kept", len(resp.Results))
	}
}

func TestSearchPricePostFilter(t *testing.T) {
	in := testIntent()
	in.MinPrice = f64(100)
	in.MaxPrice = f64(200)

	nonNative := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("In range", "https://web.example.com/1", f64(150)),
		offer("Too cheap", "https://web.example.com/2", f64(20)),
		offer("Unpriced", "https://web.example.com/3", nil),
	}}
	native := &stubProvider{id: "marketplace", native: true, results: []types.NormalizedResult{
		offer("Native filtered upstream", "https://m.example.com/1", f64(500)),
	}}

	e := newTestEngine(t, nonNative, native)
	resp, err := e.Search(context.Background(), in, nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	titles := make(map[string]bool)
	for _, r := range resp.Results {
		titles[r.Title] = true
	}
	if titles["Too cheap"] {
		t.Error("out-of-range result from a non-native provider must be filtered")
	}
	if !titles["Unpriced"] {
		t.Error("unpriced results must survive the price filter")
	}
	if !titles["Native filtered upstream"] {
		t.Error("native-filter providers are trusted, no post-filtering")
	}
	if !titles["In range"] {
		t.Error("in-range result missing")
	}
}

func TestSearchExclusionFilters(t *testing.T) {
	in := testIntent()
	in.ExcludeKeywords = []string{"digital"}
	in.ExcludeMerchants = []string{"BadShop"}

	p := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("Road bike", "https://web.example.com/1", f64(100)),
		offer("Digital download of bike plans", "https://web.example.com/2", f64(5)),
		{
			Title: "Bike from bad shop", URL: "https://web.example.com/3",
			CanonicalURL: "https://web.example.com/3", MerchantName: "BadShop Inc",
		},
	}}

	e := newTestEngine(t, p)
	resp, err := e.Search(context.Background(), in, nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Road bike" {
		t.Errorf("results = %+v, want exclusions applied", resp.Results)
	}
}

func TestSearchOutputCapAndViewMore(t *testing.T) {
	var results []types.NormalizedResult
	for i := 0; i < 8; i++ {
		results = append(results, offer(
			"Bike", "https://web.example.com/"+string(rune('a'+i)), f64(float64(100+i))))
	}
	p := &stubProvider{id: "web", results: results}

	e := newTestEngine(t, p)
	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 5 {
		t.Errorf("results = %d, want capped at 5", len(resp.Results))
	}
	if resp.ViewMoreCount != 3 {
		t.Errorf("view more = %d, want 3", resp.ViewMoreCount)
	}
}

func TestSearchRankingOrder(t *testing.T) {
	p := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("Unrelated gadget", "https://web.example.com/1", nil),
		offer("Carbon road bike frameset", "https://web.example.com/2", f64(150)),
	}}

	in := testIntent()
	in.MinPrice = f64(100)
	in.MaxPrice = f64(200)

	e := newTestEngine(t, p)
	resp, err := e.Search(context.Background(), in, nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Title != "Carbon road bike frameset" {
		t.Errorf("top result = %q, want the relevant priced offer first", resp.Results[0].Title)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].FinalScore > resp.Results[i-1].FinalScore {
			t.Errorf("ranking not descending at %d", i)
		}
	}
	// Re-ranker is off, so the similarity stage contributes exactly zero.
	for _, r := range resp.Results {
		if r.Similarity != (types.SimilarityScores{}) {
			t.Errorf("similarity = %+v, want zero with reranker off", r.Similarity)
		}
		want := 0.60*r.Scores.Combined + 0.15*r.ConstraintBonus
		if diff := r.FinalScore - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("final = %v, want %v", r.FinalScore, want)
		}
	}
}

func TestSearchBadRecordIsolation(t *testing.T) {
	p := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("Good one", "https://web.example.com/1", nil),
		offer("__bad__", "https://web.example.com/2", nil),
		offer("__skip__", "https://web.example.com/3", nil),
		offer("Good two", "https://web.example.com/4", nil),
	}}

	e := newTestEngine(t, p)
	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %d, want bad and skipped records dropped in isolation", len(resp.Results))
	}
}

// Mixed fleet: a native-filter provider returning in-range offers and a
// non-native provider whose out-of-range offers must be post-filtered, with
// the survivors capped to the top 5.
func TestSearchMixedFleetScenario(t *testing.T) {
	in := types.SearchIntent{
		Brand:      "Bianchi",
		MaxPrice:   f64(5000),
		Keywords:   []string{"road", "bike", "carbon"},
		Confidence: 0.9,
		RawInput:   "Bianchi carbon road bike under $5000",
	}

	native := &stubProvider{id: "marketplace", native: true, results: []types.NormalizedResult{
		offer("Bianchi Oltre carbon road bike", "https://m.example.com/1", f64(4800)),
		offer("Bianchi Sprint road bike", "https://m.example.com/2", f64(2900)),
		offer("Bianchi Via Nirone road bike", "https://m.example.com/3", f64(1400)),
	}}
	web := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("Bianchi Specialissima carbon road bike", "https://w.example.com/1", f64(9500)),
		offer("Bianchi Oltre RC road bike", "https://w.example.com/2", f64(12000)),
		offer("Bianchi Impulso road bike", "https://w.example.com/3", f64(2200)),
		offer("Bianchi Aria carbon road bike", "https://w.example.com/4", f64(3800)),
		offer("Bianchi steel classic road bike", "https://w.example.com/5", f64(1800)),
	}}

	e := newTestEngine(t, native, web)
	resp, err := e.Search(context.Background(), in, nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	// 3 native + 3 surviving web offers, capped to 5 with one more to view.
	if len(resp.Results) != 5 {
		t.Errorf("results = %d, want 5", len(resp.Results))
	}
	if resp.ViewMoreCount != 1 {
		t.Errorf("view more = %d, want 1", resp.ViewMoreCount)
	}
	for _, r := range resp.Results {
		if r.Source == "web" && r.Price != nil && *r.Price > 5000 {
			t.Errorf("over-budget web offer %q survived the post-filter", r.Title)
		}
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].FinalScore > resp.Results[i-1].FinalScore {
			t.Errorf("ranking not descending at %d", i)
		}
	}
}

func TestSearchAllProvidersFailed(t *testing.T) {
	tests := []struct {
		name     string
		statuses []types.ProviderStatus
		want     string
	}{
		{
			"all exhausted",
			[]types.ProviderStatus{types.StatusExhausted, types.StatusExhausted},
			"Search providers have exhausted their quota. Please try again later or contact support.",
		},
		{
			"all rate limited",
			[]types.ProviderStatus{types.StatusRateLimited, types.StatusRateLimited},
			"Search is temporarily rate-limited. Please wait a moment and try again.",
		},
		{
			"rate limited wins over generic",
			[]types.ProviderStatus{types.StatusError, types.StatusRateLimited},
			"Search is temporarily rate-limited. Please wait a moment and try again.",
		},
		{
			"generic failure",
			[]types.ProviderStatus{types.StatusError, types.StatusError},
			"Unable to search at this time. Please try again later.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var providers []provider.Provider
			for i, st := range tt.statuses {
				providers = append(providers, &stubProvider{
					id:      "p" + string(rune('0'+i)),
					execErr: provider.NewFailure(st, "upstream failure"),
				})
			}

			e := newTestEngine(t, providers...)
			resp, err := e.Search(context.Background(), testIntent(), nil, 0)
			if err != nil {
				t.Fatalf("all-failed search must not error, got %v", err)
			}
			if len(resp.Results) != 0 {
				t.Errorf("results = %d, want none", len(resp.Results))
			}
			if !resp.AllProvidersFailed() {
				t.Error("AllProvidersFailed must report true")
			}
			if resp.UserMessage != tt.want {
				t.Errorf("user message = %q, want %q", resp.UserMessage, tt.want)
			}
			if len(resp.Statuses) != len(tt.statuses) {
				t.Errorf("statuses = %d, want full diagnostics", len(resp.Statuses))
			}
		})
	}
}

func TestSearchLowConfidenceFlag(t *testing.T) {
	p := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("Something", "https://web.example.com/1", nil),
	}}
	e := newTestEngine(t, p)

	in := testIntent()
	in.Confidence = 0.3
	resp, err := e.Search(context.Background(), in, nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !resp.LowConfidence {
		t.Error("low confidence intent must flag the response")
	}
	if len(resp.Results) == 0 {
		t.Error("low confidence must not suppress results")
	}
}

func TestSearchProviderSelection(t *testing.T) {
	a := &stubProvider{id: "alpha", results: []types.NormalizedResult{
		offer("From alpha", "https://a.example.com/1", nil),
	}}
	b := &stubProvider{id: "beta", results: []types.NormalizedResult{
		offer("From beta", "https://b.example.com/1", nil),
	}}
	e := newTestEngine(t, a, b)

	resp, err := e.Search(context.Background(), testIntent(), []string{"beta"}, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Source != "beta" {
		t.Errorf("results = %+v, want beta only", resp.Results)
	}
	if len(resp.Statuses) != 1 {
		t.Errorf("statuses = %d, want only the selected provider", len(resp.Statuses))
	}

	if _, err := e.Search(context.Background(), testIntent(), []string{"gamma"}, 0); err == nil {
		t.Error("unknown provider selection must be a configuration error")
	}
}

func TestSearchRecordsQueries(t *testing.T) {
	p := &stubProvider{id: "web", results: []types.NormalizedResult{
		offer("Something", "https://web.example.com/1", nil),
	}}
	e := newTestEngine(t, p)

	resp, err := e.Search(context.Background(), testIntent(), nil, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	q, ok := resp.Queries["web"]
	if !ok {
		t.Fatal("response must retain the provider query for auditing")
	}
	if q.Query != "carbon road bike" {
		t.Errorf("audited query = %q", q.Query)
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	if _, err := New(nil, nil, types.SearchConfig{}, nil); err == nil {
		t.Error("no providers must be a configuration error")
	}

	p := &stubProvider{id: "web"}
	_, err := New([]provider.Provider{p}, nil, types.SearchConfig{
		ProviderTimeout: 10 * time.Second,
		OverallDeadline: 5 * time.Second,
	}, nil)
	if err == nil {
		t.Error("provider timeout above the overall deadline must be rejected")
	}
}

func statusByID(statuses []types.ProviderStatusSnapshot) map[string]types.ProviderStatusSnapshot {
	out := make(map[string]types.ProviderStatusSnapshot, len(statuses))
	for _, s := range statuses {
		out[s.ProviderID] = s
	}
	return out
}
