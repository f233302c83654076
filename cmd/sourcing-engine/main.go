// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sourcing-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sourcing-engine/internal/secrets"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, the secret value for key otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the sourcing-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "sourcing-engine",
	Short: "Multi-provider purchase-offer sourcing",
	Long: `sourcing-engine turns a purchase request into a ranked list of offers. It
fans the request out to marketplace APIs, web search, event inventory, and a
local vendor directory, normalizes what comes back, and ranks it through a
three-stage scoring pipeline.

Each surface is a subcommand: search runs the pipeline, vendors manages the
local vendor directory, and history inspects persisted searches.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
		logrus.SetOutput(os.Stderr)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sourcing-engine.yaml or ~/.config/sourcing-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sourcing-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sourcing-engine"))
		}
	}

	viper.SetEnvPrefix("SOURCING_ENGINE")
	viper.AutomaticEnv()

	viper.SetDefault("search.timeout", "10s")
	viper.SetDefault("search.user_agent", "sourcing-engine/"+version)
	viper.SetDefault("search.provider_timeout", "7s")
	viper.SetDefault("search.overall_deadline", "11s")
	viper.SetDefault("search.max_results", 20)
	viper.SetDefault("search.output_cap", 5)
	viper.SetDefault("search.cache_ttl", "5m")
	viper.SetDefault("search.rate_per_second", 2.0)
	viper.SetDefault("fx.max_age", "24h")
	viper.SetDefault("store.db_path", "sourcing/history.db")
	viper.SetDefault("providers.vendor_db_path", "sourcing/vendors.db")
	viper.SetDefault("rerank.enabled", false)
	viper.SetDefault("rerank.modes", 8)
	viper.SetDefault("rerank.blend_factor", 0.7)
	viper.SetDefault("embedding.model", "nomic-embed-text")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the pipeline configuration from the config file,
// environment, and loaded secrets. Secrets fill any credential the config
// leaves empty.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viperDuration("search.timeout", 10*time.Second),
				UserAgent: viper.GetString("search.user_agent"),
			},
			ProviderTimeout: viperDuration("search.provider_timeout", 7*time.Second),
			OverallDeadline: viperDuration("search.overall_deadline", 11*time.Second),
			MaxResults:      viper.GetInt("search.max_results"),
			OutputCap:       viper.GetInt("search.output_cap"),
			CacheTTL:        viperDuration("search.cache_ttl", 5*time.Minute),
			RatePerSecond:   viper.GetFloat64("search.rate_per_second"),
			PoolSize:        viper.GetInt("search.pool_size"),
		},
		Rerank: types.RerankConfig{
			Enabled:     viper.GetBool("rerank.enabled"),
			Modes:       viper.GetInt("rerank.modes"),
			BlendFactor: viper.GetFloat64("rerank.blend_factor"),
		},
		Embedding: types.EmbeddingConfig{
			Host:  secretDefault("embedding-host", viper.GetString("embedding.host")),
			Model: viper.GetString("embedding.model"),
		},
		FX: types.FXConfig{
			RatesFile: viper.GetString("fx.rates_file"),
			MaxAge:    viperDuration("fx.max_age", 24*time.Hour),
		},
		Providers: types.ProviderConfig{
			RainforestAPIKey:   secretDefault("rainforest-api-key", viper.GetString("providers.rainforest_api_key")),
			EbayClientID:       secretDefault("ebay-client-id", viper.GetString("providers.ebay_client_id")),
			EbayClientSecret:   secretDefault("ebay-client-secret", viper.GetString("providers.ebay_client_secret")),
			EbayMarketplace:    viper.GetString("providers.ebay_marketplace"),
			GoogleCSEKey:       secretDefault("google-cse-key", viper.GetString("providers.google_cse_key")),
			GoogleCSECX:        secretDefault("google-cse-cx", viper.GetString("providers.google_cse_cx")),
			TicketmasterAPIKey: secretDefault("ticketmaster-api-key", viper.GetString("providers.ticketmaster_api_key")),
			VendorDBPath:       viper.GetString("providers.vendor_db_path"),
			UseMock:            viper.GetString("providers.use_mock"),
		},
		Store: types.StoreConfig{
			DBPath: viper.GetString("store.db_path"),
		},
	}
	return cfg
}

func viperDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// redactorFromSecrets builds a redactor over every loaded secret value.
func redactorFromSecrets() *secrets.Redactor {
	values := make([]string, 0, len(loadedSecrets))
	for _, v := range loadedSecrets {
		values = append(values, v)
	}
	return secrets.NewRedactor(values...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
