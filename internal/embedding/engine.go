// Package embedding provides sentence-embedding similarity ranking over an
// OpenAI-compatible embeddings endpoint.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/trolleywise/backend/internal/domain"
)

// Config holds embedding engine configuration.
type Config struct {
	APIKey  string
	BaseURL string // e.g. "https://api.openai.com/v1" or a local server
	Model   string // e.g. "text-embedding-3-small"
}

// Engine ranks candidate strings against a target by cosine similarity of
// their dense embeddings. One engine is shared process-wide; it is safe for
// concurrent use once constructed.
type Engine struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewEngine creates a new similarity engine.
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &Engine{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.With().Str("component", "embedding").Logger(),
	}, nil
}

// BestMatch embeds the target and every candidate in a single request and
// returns the index of the most similar candidate with its cosine
// similarity in [0,1]. Candidates must be non-empty; callers guard the
// empty case before invoking.
func (e *Engine) BestMatch(ctx context.Context, target string, candidates []string) (int, float64, error) {
	if target == "" || len(candidates) == 0 {
		return 0, 0, domain.ErrInvalidRequest
	}

	input := make([]string, 0, len(candidates)+1)
	input = append(input, target)
	input = append(input, candidates...)

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: input,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(input) {
		return 0, 0, fmt.Errorf("%w: got %d vectors for %d inputs",
			domain.ErrEmbeddingFailed, len(resp.Data), len(input))
	}

	targetVec := resp.Data[0].Embedding

	bestIndex := 0
	bestScore := math.Inf(-1)
	for i, data := range resp.Data[1:] {
		score := cosineSimilarity(targetVec, data.Embedding)
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	e.logger.Debug().
		Str("target", target).
		Int("candidates", len(candidates)).
		Int("best_index", bestIndex).
		Float64("best_score", bestScore).
		Msg("ranked candidates")

	return bestIndex, bestScore, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero-magnitude vectors yield 0 rather than NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LazyEngine defers engine construction until the first ranking call and
// guarantees it happens exactly once, however many goroutines race on it.
// It satisfies domain.SimilarityRanker so components can be handed the
// lazy handle directly.
type LazyEngine struct {
	once   sync.Once
	cfg    Config
	logger zerolog.Logger
	engine *Engine
	err    error
}

// NewLazyEngine wraps the config for single-initialization on first use.
func NewLazyEngine(cfg Config, logger zerolog.Logger) *LazyEngine {
	return &LazyEngine{cfg: cfg, logger: logger}
}

// BestMatch initializes the underlying engine on first call, then delegates.
func (l *LazyEngine) BestMatch(ctx context.Context, target string, candidates []string) (int, float64, error) {
	l.once.Do(func() {
		l.engine, l.err = NewEngine(l.cfg, l.logger)
	})
	if l.err != nil {
		return 0, 0, l.err
	}
	return l.engine.BestMatch(ctx, target, candidates)
}
