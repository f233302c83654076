// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/sourcing-engine/internal/embed"
	"github.com/pdiddy/sourcing-engine/internal/fx"
	"github.com/pdiddy/sourcing-engine/internal/intent"
	"github.com/pdiddy/sourcing-engine/internal/provider"
	"github.com/pdiddy/sourcing-engine/internal/rerank"
	"github.com/pdiddy/sourcing-engine/internal/sourcing"
	"github.com/pdiddy/sourcing-engine/internal/store"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [request]",
	Short: "Source ranked purchase offers for a request",
	Long: `Search fans a purchase request out to every configured provider, normalizes
the offers that come back, scores them, and prints the ranked top results.
Provider failures degrade the result set; they never fail the search.

The request is parsed for keywords and price bounds ("under $500"); structured
flags override whatever parsing found.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	raw := strings.TrimSpace(strings.Join(args, " "))
	if q, _ := cmd.Flags().GetString("query"); q != "" {
		raw = q
	}
	if raw == "" {
		return fmt.Errorf("request required: pass it as arguments or --query")
	}

	in, err := intentFromFlags(cmd, raw)
	if err != nil {
		return err
	}

	cfg := pipelineConfig()
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	providerIDs := splitList(mustString(cmd, "providers"))
	deadline, _ := cmd.Flags().GetDuration("deadline")

	resp, err := engine.Search(context.Background(), in, providerIDs, deadline)
	if err != nil {
		return err
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := sourcing.WriteResponseFile(savePath, resp); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved response to", savePath)
	}

	if persist, _ := cmd.Flags().GetBool("store"); persist {
		if err := persistResponse(cfg.Store, resp); err != nil {
			return err
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(resp, jsonOutput)
}

// intentFromFlags builds the search intent: fallback parsing of the raw
// request, overridden by any structured flag the caller set.
func intentFromFlags(cmd *cobra.Command, raw string) (types.SearchIntent, error) {
	in := intent.Fallback(raw)

	if category := mustString(cmd, "category"); category != "" {
		in.Category = intent.NormalizeCategory(category)
		in.CategoryPath = intent.CategoryPath(in.Category)
	}
	if brand := mustString(cmd, "brand"); brand != "" {
		in.Brand = brand
	}
	if model := mustString(cmd, "model"); model != "" {
		in.Model = model
	}
	if name := mustString(cmd, "product-name"); name != "" {
		in.ProductName = name
	}
	if cmd.Flags().Changed("min-price") {
		v, _ := cmd.Flags().GetFloat64("min-price")
		in.MinPrice = &v
	}
	if cmd.Flags().Changed("max-price") {
		v, _ := cmd.Flags().GetFloat64("max-price")
		in.MaxPrice = &v
	}
	if cond := mustString(cmd, "condition"); cond != "" {
		in.Condition = types.Condition(cond)
	}
	if strict, _ := cmd.Flags().GetBool("strict-price"); strict {
		in.Flexibility = types.PriceStrict
	}
	if excl := splitList(mustString(cmd, "exclude")); len(excl) > 0 {
		in.ExcludeKeywords = append(in.ExcludeKeywords, excl...)
	}
	if excl := splitList(mustString(cmd, "exclude-merchants")); len(excl) > 0 {
		in.ExcludeMerchants = append(in.ExcludeMerchants, excl...)
	}

	if err := in.Normalize(); err != nil {
		return types.SearchIntent{}, err
	}
	return in, nil
}

// buildEngine wires the pipeline from configuration: FX rates, the optional
// embedder, providers, and the re-ranker.
func buildEngine(cfg types.PipelineConfig) (*sourcing.Engine, error) {
	rates := fx.Default()
	if cfg.FX.RatesFile != "" {
		loaded, err := fx.Load(cfg.FX.RatesFile, cfg.FX.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("loading FX rates: %w", err)
		}
		rates = loaded
	}

	var embedder embed.Embedder
	if cfg.Embedding.Host != "" {
		e, err := embed.NewOpenAI(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("building embedder: %w", err)
		}
		embedder = e
	}

	providers, err := provider.BuildAll(cfg, rates, embedder)
	if err != nil {
		return nil, err
	}

	reranker := rerank.New(cfg.Rerank, embedder)
	return sourcing.New(providers, reranker, cfg.Search, redactorFromSecrets())
}

func persistResponse(cfg types.StoreConfig, resp *types.SearchResponse) error {
	s, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	id := uuid.NewString()
	if err := s.Save(context.Background(), id, resp); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Stored search", id)
	return nil
}

func formatSearchOutput(resp *types.SearchResponse, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.LowConfidence {
		fmt.Fprintln(os.Stderr, "Note: request parsing was low confidence; results are keyword-matched.")
	}
	if resp.UserMessage != "" {
		fmt.Println(resp.UserMessage)
	}

	if len(resp.Results) > 0 {
		fmt.Fprintf(os.Stdout, "%-4s  %-45s  %-10s  %-20s  %-7s  %s\n",
			"Rank", "Title", "Price", "Merchant", "Score", "Source")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 105))
		for i, r := range resp.Results {
			title := r.Title
			if len(title) > 45 {
				title = title[:42] + "..."
			}
			merchant := r.MerchantName
			if len(merchant) > 20 {
				merchant = merchant[:17] + "..."
			}
			price := "-"
			if r.Price != nil {
				price = fmt.Sprintf("$%.2f", *r.Price)
			}
			fmt.Fprintf(os.Stdout, "%-4d  %-45s  %-10s  %-20s  %-7.3f  %s\n",
				i+1, title, price, merchant, r.FinalScore, r.Source)
		}
		if resp.ViewMoreCount > 0 {
			fmt.Fprintf(os.Stdout, "\n... and %d more\n", resp.ViewMoreCount)
		}
	} else if resp.UserMessage == "" {
		fmt.Println("No offers found.")
	}

	fmt.Fprintln(os.Stdout)
	for _, s := range resp.Statuses {
		line := fmt.Sprintf("%s: %s (%d results, %dms)", s.ProviderID, s.Status, s.ResultCount, s.LatencyMS)
		if s.Message != "" {
			line += " - " + s.Message
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	searchCmd.Flags().String("query", "", "free-text purchase request (alternative to positional args)")
	searchCmd.Flags().String("category", "", "category hint (e.g. road_bike, concert_tickets)")
	searchCmd.Flags().String("brand", "", "brand filter")
	searchCmd.Flags().String("model", "", "model filter")
	searchCmd.Flags().String("product-name", "", "specific product name")
	searchCmd.Flags().Float64("min-price", 0, "minimum price in USD")
	searchCmd.Flags().Float64("max-price", 0, "maximum price in USD")
	searchCmd.Flags().Bool("strict-price", false, "exclude offers outside the price range")
	searchCmd.Flags().String("condition", "", "condition: new, used, refurbished, any")
	searchCmd.Flags().String("exclude", "", "exclusion keywords (comma-separated)")
	searchCmd.Flags().String("exclude-merchants", "", "merchants to exclude (comma-separated)")
	searchCmd.Flags().String("providers", "", "restrict to these provider IDs (comma-separated)")
	searchCmd.Flags().Duration("deadline", 0, "overall search deadline (0 = configured default)")
	searchCmd.Flags().Bool("json", false, "output the full response as JSON")
	searchCmd.Flags().String("save", "", "save the response to a YAML file")
	searchCmd.Flags().Bool("store", false, "persist the response to the search history database")

	rootCmd.AddCommand(searchCmd)
}
