package domain

import (
	"context"
	"time"
)

// CatalogSearcher defines the interface for the primary retailer product search
type CatalogSearcher interface {
	Search(ctx context.Context, query string, count int) ([]CandidateRecord, error)
}

// FallbackSearcher defines the interface for the best-effort web-search fallback.
// A nil record with a zero score means the fallback found nothing usable;
// that is a valid outcome, not an error.
type FallbackSearcher interface {
	SearchFallback(ctx context.Context, query string) (*CandidateRecord, float64, error)
}

// SimilarityRanker defines the interface for embedding-based candidate ranking
type SimilarityRanker interface {
	// BestMatch returns the index of the candidate most similar to target
	// and its cosine similarity in [0,1]. Candidates must be non-empty.
	BestMatch(ctx context.Context, target string, candidates []string) (int, float64, error)
}

// CacheRepository defines the interface for caching resolved matches
type CacheRepository interface {
	Get(ctx context.Context, key string) (*MatchResult, error)
	Set(ctx context.Context, key string, result *MatchResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// FoodFactsClient defines the interface for barcode nutrition enrichment
type FoodFactsClient interface {
	Lookup(ctx context.Context, barcode string) (*FoodFacts, error)
}

// ResultWriter defines the interface for checkpointed tabular persistence
type ResultWriter interface {
	Append(rows [][]string) error
	ProcessedUIDs() (map[string]bool, error)
}
