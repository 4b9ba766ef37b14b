package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/infrastructure/openfoodfacts"
	"github.com/trolleywise/backend/internal/infrastructure/store"
)

// foodFactsColumns is the enrichment output schema, keyed by UID+barcode
var foodFactsColumns = []string{
	"uid", "barcode", "status", "additives_n", "additives_tags", "allergens",
	"brands", "categories", "ecoscore_grade", "ingredients_n",
	"ingredients_text", "labels", "labels_hierarchy", "nutrition_grade",
	"nova_group", "nutriments", "packaging_tags", "recycling_tags",
	"stores_tags",
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich matched barcodes with Open Food Facts data",
	Long: `Reads the resolution output, probes Open Food Facts for every matched
barcode, and appends the nutrition fields to the enrichment checkpoint.
Rows already enriched are skipped on rerun. Calls stay inside the
configured per-minute budget.`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := store.LoadBarcodes(cfg.Files.Results)
	if err != nil {
		return err
	}

	writer := store.NewCSVWriter(cfg.Files.FoodFacts, foodFactsColumns, logger)
	processed, err := writer.ProcessedUIDs()
	if err != nil {
		return err
	}

	pending := rows[:0:0]
	for _, row := range rows {
		if !processed[row.UID] {
			pending = append(pending, row)
		}
	}
	logger.Info().Int("barcodes", len(pending)).Int("skipped", len(rows)-len(pending)).
		Msg("starting enrichment")
	if len(pending) == 0 {
		return nil
	}

	client := openfoodfacts.NewClient(openfoodfacts.Config{
		BaseURL:    cfg.OpenFoodFacts.BaseURL,
		UserAgent:  cfg.OpenFoodFacts.UserAgent,
		Timeout:    cfg.OpenFoodFacts.Timeout,
		MaxRetries: cfg.OpenFoodFacts.MaxRetries,
		RatePerMin: cfg.OpenFoodFacts.RatePerMin,
	}, logger)

	var bar *progressbar.ProgressBar
	if cfg.Batch.ShowProgress {
		bar = progressbar.Default(int64(len(pending)), "enriching")
	}

	found := 0
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		facts, err := client.Lookup(ctx, row.Barcode)
		if err != nil {
			return err
		}
		if facts.Status == domain.FoodFactsFound {
			found++
		}

		if err := writer.Append([][]string{foodFactsRow(row.UID, facts)}); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	logger.Info().Int("found", found).Int("probed", len(pending)).
		Str("output", cfg.Files.FoodFacts).Msg("enrichment complete")
	return nil
}

func foodFactsRow(uid string, facts *domain.FoodFacts) []string {
	nutriments := ""
	if len(facts.Nutriments) > 0 {
		if data, err := json.Marshal(facts.Nutriments); err == nil {
			nutriments = string(data)
		}
	}

	return []string{
		uid,
		facts.Barcode,
		facts.Status,
		intOrEmpty(facts.AdditivesN),
		strings.Join(facts.AdditivesTags, "|"),
		strOrEmpty(facts.Allergens),
		strOrEmpty(facts.Brands),
		strOrEmpty(facts.Categories),
		strOrEmpty(facts.EcoscoreGrade),
		intOrEmpty(facts.IngredientsN),
		strOrEmpty(facts.IngredientsText),
		strOrEmpty(facts.Labels),
		strings.Join(facts.LabelsHierarchy, "|"),
		strOrEmpty(facts.NutritionGrade),
		intOrEmpty(facts.NovaGroup),
		nutriments,
		strings.Join(facts.PackagingTags, "|"),
		strings.Join(facts.RecyclingTags, "|"),
		strings.Join(facts.StoresTags, "|"),
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
