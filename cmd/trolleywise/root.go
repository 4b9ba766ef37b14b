package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/trolleywise/backend/config"
	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/embedding"
	"github.com/trolleywise/backend/internal/infrastructure/cache"
	"github.com/trolleywise/backend/internal/infrastructure/tesco"
	"github.com/trolleywise/backend/internal/infrastructure/websearch"
	"github.com/trolleywise/backend/internal/usecase"
)

var (
	cfg    *config.Config
	logger zerolog.Logger

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "trolleywise",
	Short: "Resolve loyalty-card product names against the retailer catalog",
	Long: `TrolleyWise resolves free-text supermarket receipt lines to canonical
catalog products with a confidence score, enriches matched barcodes with
Open Food Facts data, and consolidates raw category strings into a
canonical set.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newResolver wires the full resolution stack from configuration.
// Referrer chaining is disabled whenever the batch runs concurrently.
func newResolver(concurrent bool) *usecase.Resolver {
	ranker := embedding.NewLazyEngine(embedding.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	}, logger)

	searcher := tesco.NewClient(tesco.Config{
		APIKey:      cfg.Tesco.APIKey,
		Endpoint:    cfg.Tesco.Endpoint,
		Timeout:     cfg.Tesco.Timeout,
		MaxRetries:  cfg.Tesco.MaxRetries,
		MinDelay:    cfg.Tesco.MinDelay,
		MaxDelay:    cfg.Tesco.MaxDelay,
		ChainingOff: concurrent,
	}, logger)

	fallback := websearch.NewClient(websearch.Config{
		Timeout: cfg.Tesco.Timeout,
	}, ranker, logger)

	var repo domain.CacheRepository = cache.NewMemoryCache()

	return usecase.NewResolver(searcher, fallback, ranker, repo, usecase.ResolverConfig{
		CandidateCount:      cfg.Matching.CandidateCount,
		EscalationThreshold: cfg.Matching.EscalationThreshold,
		CacheTTL:            cfg.Matching.CacheTTL,
	}, logger)
}
