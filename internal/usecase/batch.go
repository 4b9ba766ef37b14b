package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/trolleywise/backend/internal/domain"
)

// ResultColumns is the fixed output schema for resolution checkpoint files.
// The UID leads so reruns can read processed rows back from column one.
var ResultColumns = []string{
	"uid", "product_name", "matched_name", "barcode", "brand",
	"category_1", "category_2", "category_3", "category_4",
	"rating", "match_score",
}

// BatchConfig holds configuration for the batch runner
type BatchConfig struct {
	// Workers above 1 enables the bounded pool. Referrer chaining must be
	// disabled on the primary client when running concurrently.
	Workers      int
	ShowProgress bool
}

// BatchRunner resolves a list of queries, checkpointing each result as it
// lands and skipping rows a previous run already wrote.
type BatchRunner struct {
	resolver *Resolver
	writer   domain.ResultWriter
	workers  int
	progress bool
	logger   zerolog.Logger

	mu sync.Mutex
}

// NewBatchRunner creates a batch runner. The writer may be nil for callers
// that only want the in-memory results.
func NewBatchRunner(resolver *Resolver, writer domain.ResultWriter, config BatchConfig, logger zerolog.Logger) *BatchRunner {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	return &BatchRunner{
		resolver: resolver,
		writer:   writer,
		workers:  workers,
		progress: config.ShowProgress,
		logger:   logger.With().Str("component", "batch").Logger(),
	}
}

// Run resolves every query, returning results in input order. Already
// processed UIDs are skipped and omitted from the returned slice.
// Cancellation is checked between queries; results resolved before the
// cancellation are returned alongside the context error.
func (b *BatchRunner) Run(ctx context.Context, queries []domain.ProductQuery) ([]domain.MatchResult, error) {
	processed, err := b.processedUIDs()
	if err != nil {
		return nil, err
	}

	pending := make([]domain.ProductQuery, 0, len(queries))
	for _, query := range queries {
		if processed[query.UID] {
			b.logger.Debug().Str("uid", query.UID).Msg("skipping already processed row")
			continue
		}
		pending = append(pending, query)
	}

	if len(pending) == 0 {
		return nil, nil
	}

	bar := b.newProgressBar(len(pending))

	if b.workers == 1 {
		return b.runSequential(ctx, pending, bar)
	}
	return b.runConcurrent(ctx, pending, bar)
}

func (b *BatchRunner) runSequential(
	ctx context.Context,
	queries []domain.ProductQuery,
	bar *progressbar.ProgressBar,
) ([]domain.MatchResult, error) {
	results := make([]domain.MatchResult, 0, len(queries))

	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := b.resolveOne(ctx, query)
		if err != nil {
			return results, err
		}

		results = append(results, *result)
		b.advance(bar)
	}

	return results, nil
}

func (b *BatchRunner) runConcurrent(
	ctx context.Context,
	queries []domain.ProductQuery,
	bar *progressbar.ProgressBar,
) ([]domain.MatchResult, error) {
	type slot struct {
		result *domain.MatchResult
		err    error
	}

	slots := make([]slot, len(queries))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					slots[i].err = err
					continue
				}
				slots[i].result, slots[i].err = b.resolveOne(ctx, queries[i])
				if slots[i].err == nil {
					b.advance(bar)
				}
			}
		}()
	}

	for i := range queries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Reassemble in input order, surfacing the first failure.
	results := make([]domain.MatchResult, 0, len(queries))
	for _, s := range slots {
		if s.err != nil {
			return results, s.err
		}
		results = append(results, *s.result)
	}
	return results, nil
}

// resolveOne resolves a single query and checkpoints the row immediately,
// so a later crash or cancellation loses no completed work.
func (b *BatchRunner) resolveOne(ctx context.Context, query domain.ProductQuery) (*domain.MatchResult, error) {
	result, err := b.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", query.Name, err)
	}

	if b.writer != nil {
		b.mu.Lock()
		err = b.writer.Append([][]string{ResultRow(result)})
		b.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("checkpoint %q: %w", query.UID, err)
		}
	}

	return result, nil
}

func (b *BatchRunner) processedUIDs() (map[string]bool, error) {
	if b.writer == nil {
		return map[string]bool{}, nil
	}
	return b.writer.ProcessedUIDs()
}

func (b *BatchRunner) newProgressBar(total int) *progressbar.ProgressBar {
	if !b.progress {
		return nil
	}
	return progressbar.Default(int64(total), "resolving")
}

func (b *BatchRunner) advance(bar *progressbar.ProgressBar) {
	if bar == nil {
		return
	}
	_ = bar.Add(1)
}

// ResultRow flattens a MatchResult into the ResultColumns schema.
// Non-match rows keep their place with empty enrichment fields.
func ResultRow(result *domain.MatchResult) []string {
	row := []string{
		result.Query.UID,
		result.Query.Name,
		"", "", "", "", "", "", "", "",
		strconv.FormatFloat(result.Score, 'f', 1, 64),
	}

	if result.Candidate == nil {
		return row
	}

	row[2] = result.Candidate.MatchedName
	row[3] = stringOrEmpty(result.Candidate.Barcode)
	row[4] = stringOrEmpty(result.Candidate.Brand)
	row[5] = stringOrEmpty(result.Candidate.Category1)
	row[6] = stringOrEmpty(result.Candidate.Category2)
	row[7] = stringOrEmpty(result.Candidate.Category3)
	row[8] = stringOrEmpty(result.Candidate.Category4)
	if result.Candidate.Rating != nil {
		row[9] = strconv.FormatFloat(*result.Candidate.Rating, 'f', -1, 64)
	}
	return row
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
