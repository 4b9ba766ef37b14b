// Package websearch implements the best-effort fallback: a branded web
// search filtered to retailer product pages, with the landing page's
// embedded structured data recovered as the candidate.
package websearch

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/infrastructure/tesco"
	"github.com/trolleywise/backend/internal/normalize"
	"github.com/trolleywise/backend/internal/retry"
)

const (
	defaultSearchURL  = "https://html.duckduckgo.com/html/"
	productURLPattern = "www.tesco.com/groceries/en-GB/products/"
	brandPrefix       = "Tesco "
)

// Config holds fallback client construction parameters.
type Config struct {
	SearchURL     string        // defaults to the DDG HTML endpoint
	Timeout       time.Duration // per-attempt HTTP timeout
	SearchRetries int           // attempts for the web search itself
	FetchRetries  int           // attempts for the product-page fetch
}

// Client performs the fallback search. Every failure mode degrades to a
// nil candidate with score 0.0; this source never propagates transport
// errors to the resolution engine.
type Client struct {
	httpClient   *http.Client
	searchURL    string
	searchPolicy retry.Policy
	fetchPolicy  retry.Policy
	ranker       domain.SimilarityRanker
	logger       zerolog.Logger
}

// NewClient creates a new fallback search client.
func NewClient(cfg Config, ranker domain.SimilarityRanker, logger zerolog.Logger) *Client {
	searchURL := cfg.SearchURL
	if searchURL == "" {
		searchURL = defaultSearchURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	searchRetries := cfg.SearchRetries
	if searchRetries <= 0 {
		searchRetries = 3
	}
	fetchRetries := cfg.FetchRetries
	if fetchRetries <= 0 {
		fetchRetries = 5
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		searchURL:    searchURL,
		searchPolicy: retry.Policy{MaxAttempts: searchRetries, Base: time.Second},
		fetchPolicy:  retry.Policy{MaxAttempts: fetchRetries, Base: time.Second, Jitter: true},
		ranker:       ranker,
		logger:       logger.With().Str("component", "websearch").Logger(),
	}
}

// SearchFallback prefixes the query with the retailer brand, searches the
// web, keeps only retailer product-detail URLs, picks the best title by
// exact match then embedding similarity, and recovers the candidate from
// the landing page. A nil candidate with score 0.0 covers every no-result
// and failure path.
func (c *Client) SearchFallback(ctx context.Context, query string) (*domain.CandidateRecord, float64, error) {
	branded := brandPrefix + query

	hits, err := c.searchWeb(ctx, branded)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		c.logger.Warn().Err(err).Str("query", branded).Msg("web search failed")
		return nil, 0, nil
	}

	var titles []string
	var urls []string
	for _, hit := range hits {
		if !containsProductURL(hit.URL) {
			continue
		}
		titles = append(titles, hit.Title)
		urls = append(urls, hit.URL)
	}
	if len(titles) == 0 {
		return nil, 0, nil
	}

	cleanedTarget := normalize.Clean(branded)
	cleanedTitles := make([]string, len(titles))
	for i, title := range titles {
		cleanedTitles[i] = normalize.Clean(title)
	}

	// Exact title match wins outright; otherwise rank by embedding.
	selected := -1
	score := 0.0
	for i, cleaned := range cleanedTitles {
		if cleaned == cleanedTarget {
			selected = i
			score = 100.0
			break
		}
	}
	if selected < 0 {
		index, similarity, rankErr := c.ranker.BestMatch(ctx, cleanedTarget, cleanedTitles)
		if rankErr != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			c.logger.Warn().Err(rankErr).Str("query", branded).Msg("fallback ranking failed")
			return nil, 0, nil
		}
		selected = index
		score = roundScore(similarity * 100)
	}

	candidate, err := c.fetchProduct(ctx, urls[selected])
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		c.logger.Warn().Err(err).Str("url", urls[selected]).Msg("product page fetch failed")
		return nil, 0, nil
	}

	c.logger.Debug().Str("query", branded).Float64("score", score).
		Str("matched", candidate.MatchedName).Msg("fallback hit")
	return candidate, score, nil
}

// searchWeb issues the HTML search and parses the organic results.
func (c *Client) searchWeb(ctx context.Context, query string) ([]webResult, error) {
	var hits []webResult
	err := c.searchPolicy.Do(ctx, func() error {
		reqURL := fmt.Sprintf("%s?q=%s", c.searchURL, url.QueryEscape(query))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", tesco.RandomUserAgent())
		req.Header.Set("Accept-Language", tesco.RandomAcceptLanguage())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		hits, err = parseSearchResults(body)
		return err
	})
	return hits, err
}

// fetchProduct downloads a product-detail page and extracts the embedded
// candidate record, retrying transient failures.
func (c *Client) fetchProduct(ctx context.Context, pageURL string) (*domain.CandidateRecord, error) {
	var candidate *domain.CandidateRecord
	err := c.fetchPolicy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", tesco.RandomUserAgent())
		req.Header.Set("Accept-Language", tesco.RandomAcceptLanguage())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		candidate, err = parseProductPage(body)
		return err
	})
	return candidate, err
}

func containsProductURL(u string) bool {
	return strings.Contains(u, productURLPattern)
}

// roundScore keeps one decimal place, matching how scores are reported.
func roundScore(s float64) float64 {
	return math.Round(s*10) / 10
}
