// Package tesco implements the primary catalog search against the Tesco
// shopping-experience GraphQL endpoint.
package tesco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/retry"
)

const (
	defaultEndpoint = "https://api.tesco.com/shoppingexperience"
	originURL       = "https://www.tesco.com"
	searchReferrer  = originURL + "/groceries/en-GB/search?query="
)

const searchQuery = `
query Search($query: String!, $page: Int = 1, $count: Int = 2, $sortBy: String) {
  search(query: $query, page: $page, count: $count, sortBy: $sortBy) {
    pageInformation: info {
      totalCount: total
      pageNo: page
      count
      __typename
    }
    results {
      node {
        ... on ProductInterface {
          gtin
          title
          brandName
          superDepartmentName
          departmentName
          aisleName
          shelfName
          reviews {
            stats {
              overallRating
            }
          }
        }
      }
    }
  }
}
`

// Config holds client construction parameters.
type Config struct {
	APIKey      string
	Endpoint    string        // defaults to the production endpoint
	Timeout     time.Duration // per-attempt HTTP timeout
	MaxRetries  int           // attempts per search before ErrSearchFailed
	MinDelay    time.Duration // human-scale delay bounds between calls
	MaxDelay    time.Duration
	ChainingOff bool // disable referrer chaining (required for concurrent use)
}

// Client queries the retailer search endpoint. Consecutive calls rotate
// browser headers, insert a human-scale delay, and set the Referer from the
// previous query in the batch unless chaining is disabled.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	policy     retry.Policy
	minDelay   time.Duration
	maxDelay   time.Duration
	chaining   bool
	logger     zerolog.Logger

	mu        sync.Mutex
	prevQuery string
}

// NewClient creates a new search client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		policy:     retry.Policy{MaxAttempts: retries, Base: time.Second, Jitter: true},
		minDelay:   cfg.MinDelay,
		maxDelay:   cfg.MaxDelay,
		chaining:   !cfg.ChainingOff,
		logger:     logger.With().Str("component", "tesco").Logger(),
	}
}

// Search sends the free-text query and returns up to count ranked
// candidates. Transient failures are retried with exponential backoff;
// exhausting the attempts surfaces domain.ErrSearchFailed. An empty result
// list is a valid outcome, not an error.
func (c *Client) Search(ctx context.Context, query string, count int) ([]domain.CandidateRecord, error) {
	if query == "" {
		return nil, domain.ErrInvalidRequest
	}

	c.humanDelay(ctx)
	referrer := c.takeReferrer(query)

	body, err := json.Marshal([]map[string]any{{
		"operationName": "Search",
		"variables": map[string]any{
			"query":  query,
			"page":   1,
			"count":  count,
			"sortBy": "relevance",
		},
		"extensions": map[string]any{"mfeName": "unknown"},
		"query":      searchQuery,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var candidates []domain.CandidateRecord
	err = c.policy.Do(ctx, func() error {
		records, attemptErr := c.attempt(ctx, body, referrer)
		if attemptErr != nil {
			c.logger.Warn().Err(attemptErr).Str("query", query).Msg("search attempt failed")
			return attemptErr
		}
		candidates = records
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	c.logger.Debug().Str("query", query).Int("candidates", len(candidates)).Msg("search complete")
	return candidates, nil
}

// attempt performs one HTTP round trip. An unparseable response counts as a
// transient transport failure so the retry policy covers it too.
func (c *Client) attempt(ctx context.Context, body []byte, referrer string) ([]domain.CandidateRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Referer", referrer)
	req.Header.Set("Origin", originURL)
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", RandomAcceptLanguage())
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("empty response batch")
	}

	results := parsed[0].Data.Search.Results
	candidates := make([]domain.CandidateRecord, 0, len(results))
	for _, entry := range results {
		candidates = append(candidates, entry.Node.toCandidate())
	}
	return candidates, nil
}

// takeReferrer returns the Referer for this call and records the query for
// the next one. The first call in a batch, or a client with chaining
// disabled, uses the retailer origin.
func (c *Client) takeReferrer(query string) string {
	if !c.chaining {
		return originURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	referrer := originURL
	if c.prevQuery != "" {
		referrer = searchReferrer + url.QueryEscape(c.prevQuery)
	}
	c.prevQuery = query
	return referrer
}

// humanDelay sleeps a random interval inside the configured bounds to mimic
// natural browsing pace. Zero bounds skip the delay entirely.
func (c *Client) humanDelay(ctx context.Context) {
	if c.maxDelay <= 0 || c.maxDelay < c.minDelay {
		return
	}

	span := c.maxDelay - c.minDelay
	delay := c.minDelay
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
