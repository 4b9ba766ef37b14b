package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/normalize"
)

// ResolverConfig holds configuration for the match resolution engine
type ResolverConfig struct {
	CandidateCount      int
	EscalationThreshold float64
	CacheTTL            time.Duration
}

// Resolver turns one free-text product name into a scored catalog match.
// Per query: primary catalog search, exact-normalized-title short circuit,
// embedding ranking, and escalation to the web-search fallback when the
// primary score falls below the threshold.
type Resolver struct {
	searcher            domain.CatalogSearcher
	fallback            domain.FallbackSearcher
	ranker              domain.SimilarityRanker
	cache               domain.CacheRepository
	candidateCount      int
	escalationThreshold float64
	cacheTTL            time.Duration
	logger              zerolog.Logger
}

// NewResolver creates a resolution engine with dependencies. The cache may
// be nil, in which case every query hits the remote sources.
func NewResolver(
	searcher domain.CatalogSearcher,
	fallback domain.FallbackSearcher,
	ranker domain.SimilarityRanker,
	cache domain.CacheRepository,
	config ResolverConfig,
	logger zerolog.Logger,
) *Resolver {
	count := config.CandidateCount
	if count <= 0 {
		count = 100
	}

	threshold := config.EscalationThreshold
	if threshold <= 0 {
		threshold = 95.0
	}

	ttl := config.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &Resolver{
		searcher:            searcher,
		fallback:            fallback,
		ranker:              ranker,
		cache:               cache,
		candidateCount:      count,
		escalationThreshold: threshold,
		cacheTTL:            ttl,
		logger:              logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve runs the full resolution state machine for one query.
// A primary search that fails even after retries is a no-match result,
// not an error; only context cancellation and embedding faults escape.
func (r *Resolver) Resolve(ctx context.Context, query domain.ProductQuery) (*domain.MatchResult, error) {
	if query.Name == "" {
		return nil, domain.ErrInvalidRequest
	}

	cacheKey := normalize.Clean(query.Name)

	if cached := r.getCached(ctx, cacheKey); cached != nil {
		cached.Query = query
		return cached, nil
	}

	candidates, err := r.searcher.Search(ctx, query.Name, r.candidateCount)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		r.logger.Warn().Err(err).Str("query", query.Name).
			Msg("primary search failed, recording no match")
		result := domain.NoMatch(query)
		return &result, nil
	}

	result, err := r.rankPrimary(ctx, query, candidates)
	if err != nil {
		return nil, err
	}

	if result.Score < r.escalationThreshold {
		if err := r.escalate(ctx, result); err != nil {
			return nil, err
		}
	}

	r.setCached(ctx, cacheKey, result)
	return result, nil
}

// rankPrimary scores the primary candidate list. An exact normalized-title
// match is terminal at 100.0 with no embedding call; an empty list yields
// a zero-score result that escalation will pick up.
func (r *Resolver) rankPrimary(
	ctx context.Context,
	query domain.ProductQuery,
	candidates []domain.CandidateRecord,
) (*domain.MatchResult, error) {
	if len(candidates) == 0 {
		result := domain.NoMatch(query)
		return &result, nil
	}

	target := normalize.Clean(query.Name)
	titles := make([]string, len(candidates))
	for i, candidate := range candidates {
		titles[i] = normalize.Clean(candidate.MatchedName)
		if titles[i] == target {
			match := candidates[i]
			return &domain.MatchResult{
				Query:     query,
				Candidate: &match,
				Score:     100.0,
				Origin:    domain.OriginPrimary,
			}, nil
		}
	}

	index, similarity, err := r.ranker.BestMatch(ctx, target, titles)
	if err != nil {
		return nil, err
	}

	match := candidates[index]
	return &domain.MatchResult{
		Query:     query,
		Candidate: &match,
		Score:     roundScore(similarity * 100),
		Origin:    domain.OriginPrimary,
	}, nil
}

// escalate consults the fallback and adopts its candidate only when it
// both outscores the primary match and carries a rating. The final score
// never drops below the primary score.
func (r *Resolver) escalate(ctx context.Context, result *domain.MatchResult) error {
	candidate, score, err := r.fallback.SearchFallback(ctx, result.Query.Name)
	if err != nil {
		return err
	}

	if candidate == nil {
		return nil
	}

	if score > result.Score && candidate.Rating != nil {
		result.Candidate = candidate
		result.Score = score
		result.Origin = domain.OriginFallback
		r.logger.Debug().Str("query", result.Query.Name).Float64("score", score).
			Msg("adopted fallback match")
	}

	return nil
}

func (r *Resolver) getCached(ctx context.Context, key string) *domain.MatchResult {
	if r.cache == nil {
		return nil
	}
	cached, err := r.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	return cached
}

// setCached stores only results that carry a candidate. No-match results
// stay uncached so a transient outage does not pin a miss for the TTL.
func (r *Resolver) setCached(ctx context.Context, key string, result *domain.MatchResult) {
	if r.cache == nil || result.Candidate == nil {
		return
	}
	if err := r.cache.Set(ctx, key, result, r.cacheTTL); err != nil {
		r.logger.Warn().Err(err).Msg("failed to cache resolution")
	}
}

// roundScore rounds a 0-100 score to one decimal place
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
