// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sourcing-engine/internal/embed"
	"github.com/pdiddy/sourcing-engine/internal/vendordir"
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Manage the local vendor directory (add, search, count)",
	Long: `Vendors manages the local SQLite vendor directory the vendor_directory
provider searches. With an embedding host configured, vendors are indexed by
embedding similarity; otherwise searches fall back to keyword matching.`,
}

// --- add subcommand ---

var vendorsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add or update a vendor",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVendorsAdd,
}

func runVendorsAdd(cmd *cobra.Command, args []string) error {
	dir, err := openVendorDirectory()
	if err != nil {
		return err
	}
	defer dir.Close()

	capacity, _ := cmd.Flags().GetInt("capacity")
	v := vendordir.Vendor{
		Name:        strings.Join(args, " "),
		Description: mustString(cmd, "description"),
		Tagline:     mustString(cmd, "tagline"),
		Website:     mustString(cmd, "website"),
		Email:       mustString(cmd, "email"),
		Phone:       mustString(cmd, "phone"),
		ImageURL:    mustString(cmd, "image-url"),
		Category:    mustString(cmd, "category"),
		ServiceArea: mustString(cmd, "service-area"),
		Routes:      splitList(mustString(cmd, "routes")),
		Capacity:    capacity,
	}

	if err := dir.Upsert(context.Background(), v); err != nil {
		return err
	}
	fmt.Println("Saved vendor:", v.Name)
	return nil
}

// --- search subcommand ---

var vendorsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the vendor directory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVendorsSearch,
}

func runVendorsSearch(cmd *cobra.Command, args []string) error {
	dir, err := openVendorDirectory()
	if err != nil {
		return err
	}
	defer dir.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	matches, err := dir.Search(context.Background(), strings.Join(args, " "), "", limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	if len(matches) == 0 {
		fmt.Println("No vendors found.")
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-15s  %.2f\n", i+1, m.Name, m.Category, m.Similarity)
	}
	return nil
}

// --- count subcommand ---

var vendorsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of vendors in the directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := openVendorDirectory()
		if err != nil {
			return err
		}
		defer dir.Close()

		n, err := dir.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func openVendorDirectory() (*vendordir.Directory, error) {
	cfg := pipelineConfig()
	if cfg.Providers.VendorDBPath == "" {
		return nil, fmt.Errorf("providers.vendor_db_path is not configured")
	}

	var embedder embed.Embedder
	if cfg.Embedding.Host != "" {
		e, err := embed.NewOpenAI(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("building embedder: %w", err)
		}
		embedder = e
	}
	return vendordir.Open(cfg.Providers.VendorDBPath, embedder)
}

func init() {
	vendorsAddCmd.Flags().String("description", "", "vendor description")
	vendorsAddCmd.Flags().String("tagline", "", "short tagline")
	vendorsAddCmd.Flags().String("website", "", "vendor website URL")
	vendorsAddCmd.Flags().String("email", "", "contact email")
	vendorsAddCmd.Flags().String("phone", "", "contact phone")
	vendorsAddCmd.Flags().String("image-url", "", "logo or image URL")
	vendorsAddCmd.Flags().String("category", "", "vendor category")
	vendorsAddCmd.Flags().String("service-area", "", "geographic service area")
	vendorsAddCmd.Flags().String("routes", "", "served routes (comma-separated, e.g. JFK-LAX)")
	vendorsAddCmd.Flags().Int("capacity", 0, "passenger or party capacity")

	vendorsSearchCmd.Flags().Int("limit", 15, "maximum matches")
	vendorsSearchCmd.Flags().Bool("json", false, "output matches as JSON")

	vendorsCmd.AddCommand(vendorsAddCmd)
	vendorsCmd.AddCommand(vendorsSearchCmd)
	vendorsCmd.AddCommand(vendorsCountCmd)

	rootCmd.AddCommand(vendorsCmd)
}
