package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/infrastructure/store"
	"github.com/trolleywise/backend/internal/usecase"
)

var categorisedColumns = []string{
	"uid", "product_name", "category_1", "category_2", "category_3",
	"characteristics", "flavours",
}

var invalidColumns = []string{"uid", "product_name", "error"}

var categoriseCmd = &cobra.Command{
	Use:   "categorise",
	Short: "Assign taxonomy labels to product names via the tuned model",
	Long: `Sends each input product name to the configured chat model and writes
validated labels to the categorised output. Responses that fail JSON
parsing or allow-list validation land in the invalid-rows output instead
of stopping the run.`,
	RunE: runCategorise,
}

func init() {
	rootCmd.AddCommand(categoriseCmd)
}

func runCategorise(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queries, err := store.LoadQueries(cfg.Files.Input)
	if err != nil {
		return err
	}

	validWriter := store.NewCSVWriter(cfg.Files.Categorised, categorisedColumns, logger)
	invalidWriter := store.NewCSVWriter(cfg.Files.InvalidCategories, invalidColumns, logger)

	processed, err := validWriter.ProcessedUIDs()
	if err != nil {
		return err
	}
	rejected, err := invalidWriter.ProcessedUIDs()
	if err != nil {
		return err
	}

	pending := queries[:0:0]
	for _, query := range queries {
		if !processed[query.UID] && !rejected[query.UID] {
			pending = append(pending, query)
		}
	}
	logger.Info().Int("rows", len(pending)).Msg("starting categorisation")
	if len(pending) == 0 {
		return nil
	}

	categoriser := usecase.NewCategoriser(
		openai.NewClient(cfg.Embedding.APIKey),
		usecase.CategoriserConfig{
			Model:           cfg.Categoriser.Model,
			SystemPrompt:    cfg.Categoriser.SystemPrompt,
			Categories1:     cfg.Categoriser.Categories1,
			Categories2:     cfg.Categoriser.Categories2,
			Categories3:     cfg.Categoriser.Categories3,
			Characteristics: cfg.Categoriser.Characteristics,
			Flavours:        cfg.Categoriser.Flavours,
		}, logger)

	var bar *progressbar.ProgressBar
	if cfg.Batch.ShowProgress {
		bar = progressbar.Default(int64(len(pending)), "categorising")
	}

	valid, invalid := 0, 0
	for _, query := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := categoriser.Categorise(ctx, query.Name)
		switch {
		case err == nil:
			row := []string{
				query.UID, query.Name,
				result.Category1, result.Category2, result.Category3,
				strings.Join(result.Characteristics, "|"),
				strings.Join(result.Flavours, "|"),
			}
			if err := validWriter.Append([][]string{row}); err != nil {
				return err
			}
			valid++
		case errors.Is(err, domain.ErrInvalidCategorisation):
			row := []string{query.UID, query.Name, err.Error()}
			if err := invalidWriter.Append([][]string{row}); err != nil {
				return err
			}
			invalid++
		default:
			return err
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	logger.Info().Int("valid", valid).Int("invalid", invalid).Msg("categorisation complete")
	return nil
}
