// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sourcing-engine/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect persisted searches (list, show)",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(pipelineConfig().Store)
		if err != nil {
			return err
		}
		defer s.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		recent, err := s.Recent(context.Background(), limit)
		if err != nil {
			return err
		}
		if len(recent) == 0 {
			fmt.Println("No searches stored.")
			return nil
		}

		fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-7s  %s\n", "ID", "Request", "Results", "When")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
		for _, sm := range recent {
			request := sm.RawInput
			if len(request) > 40 {
				request = request[:37] + "..."
			}
			when := sm.GeneratedAt.Format("2006-01-02 15:04")
			if sm.AllFailed {
				when += "  (all providers failed)"
			}
			fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-7d  %s\n", sm.ID, request, sm.ResultCount, when)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [search-id]",
	Short: "Print one persisted search response as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(pipelineConfig().Store)
		if err != nil {
			return err
		}
		defer s.Close()

		resp, err := s.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum searches to list")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	rootCmd.AddCommand(historyCmd)
}
