package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trolleywise/backend/internal/infrastructure/store"
	"github.com/trolleywise/backend/internal/usecase"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve every product name in the input file",
	Long: `Reads the (UID, product name) input table, resolves each row against
the retailer catalog with web-search fallback, and appends results to the
checkpoint output. Rows already present in the output are skipped, so an
interrupted run resumes where it stopped.`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queries, err := store.LoadQueries(cfg.Files.Input)
	if err != nil {
		return err
	}
	logger.Info().Int("rows", len(queries)).Str("input", cfg.Files.Input).Msg("loaded input")

	concurrent := cfg.Batch.Workers > 1
	resolver := newResolver(concurrent)
	writer := store.NewCSVWriter(cfg.Files.Results, usecase.ResultColumns, logger)

	runner := usecase.NewBatchRunner(resolver, writer, usecase.BatchConfig{
		Workers:      cfg.Batch.Workers,
		ShowProgress: cfg.Batch.ShowProgress,
	}, logger)

	results, err := runner.Run(ctx, queries)
	if err != nil {
		logger.Error().Err(err).Int("completed", len(results)).Msg("batch stopped early")
		return err
	}

	matched := 0
	for _, result := range results {
		if result.Candidate != nil {
			matched++
		}
	}
	logger.Info().Int("resolved", len(results)).Int("matched", matched).
		Str("output", cfg.Files.Results).Msg("batch complete")
	return nil
}
