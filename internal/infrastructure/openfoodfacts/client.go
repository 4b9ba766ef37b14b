// Package openfoodfacts enriches matched barcodes with nutrition and
// ingredient metadata from the Open Food Facts product API.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/retry"
)

const defaultBaseURL = "https://world.openfoodfacts.org"

// requestedFields is the fixed catalog of fields retained from the API.
var requestedFields = []string{
	"additives_n", "additives_tags", "allergens", "brands", "categories",
	"ecoscore_grade", "ingredients_n", "ingredients_text", "labels",
	"labels_hierarchy", "nutrition_grades", "nova_group", "nutriments",
	"packaging_recycling_tags", "packaging_tags", "stores_tags",
}

// Config holds client construction parameters.
type Config struct {
	BaseURL    string
	UserAgent  string // OFF requires an identifying user agent
	Timeout    time.Duration
	MaxRetries int
	RatePerMin int // request budget, defaults to 100/minute
}

// Client queries the Open Food Facts product endpoint. Requests are
// throttled to the configured per-minute budget.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	policy      retry.Policy
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewClient creates a new Open Food Facts client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "TrolleyWise/1.0"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	perMin := cfg.RatePerMin
	if perMin <= 0 {
		perMin = 100
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 5)

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		userAgent:   userAgent,
		policy:      retry.Policy{MaxAttempts: retries, Base: time.Second, Jitter: true},
		rateLimiter: limiter,
		logger:      logger.With().Str("component", "openfoodfacts").Logger(),
	}
}

// Lookup fetches the retained field catalog for one barcode. Failure modes
// are folded into the record's Status field: an unknown barcode reports "No
// Data in Website" and exhausted retries report "API Call Unsuccessful".
// Only context cancellation surfaces as an error.
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.FoodFacts, error) {
	if barcode == "" {
		return nil, domain.ErrInvalidRequest
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json?fields=%s",
		c.baseURL, url.PathEscape(barcode), strings.Join(requestedFields, ","))

	record := &domain.FoodFacts{Barcode: barcode, Status: domain.FoodFactsCallFail}
	err := c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			record.Status = domain.FoodFactsNoData
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		parsed, err := parseProduct(barcode, body)
		if err != nil {
			return err
		}
		record = parsed
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn().Err(err).Str("barcode", barcode).Msg("lookup failed")
		return record, nil
	}

	return record, nil
}

// productResponse is the OFF API v2 envelope.
type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		AdditivesN      *int           `json:"additives_n"`
		AdditivesTags   []string       `json:"additives_tags"`
		Allergens       *string        `json:"allergens"`
		Brands          *string        `json:"brands"`
		Categories      *string        `json:"categories"`
		EcoscoreGrade   *string        `json:"ecoscore_grade"`
		IngredientsN    *int           `json:"ingredients_n"`
		IngredientsText *string        `json:"ingredients_text"`
		Labels          *string        `json:"labels"`
		LabelsHierarchy []string       `json:"labels_hierarchy"`
		NutritionGrades *string        `json:"nutrition_grades"`
		NovaGroup       *int           `json:"nova_group"`
		Nutriments      map[string]any `json:"nutriments"`
		PackagingRecyclingTags []string `json:"packaging_recycling_tags"`
		PackagingTags   []string       `json:"packaging_tags"`
		StoresTags      []string       `json:"stores_tags"`
	} `json:"product"`
}

func parseProduct(barcode string, body []byte) (*domain.FoodFacts, error) {
	var parsed productResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if parsed.Status != 1 {
		return &domain.FoodFacts{Barcode: barcode, Status: domain.FoodFactsNoData}, nil
	}

	p := parsed.Product
	record := &domain.FoodFacts{
		Barcode:         barcode,
		Status:          domain.FoodFactsFound,
		AdditivesN:      p.AdditivesN,
		AdditivesTags:   p.AdditivesTags,
		Allergens:       p.Allergens,
		Brands:          p.Brands,
		Categories:      p.Categories,
		EcoscoreGrade:   p.EcoscoreGrade,
		IngredientsN:    p.IngredientsN,
		IngredientsText: p.IngredientsText,
		Labels:          p.Labels,
		LabelsHierarchy: p.LabelsHierarchy,
		NutritionGrade:  p.NutritionGrades,
		NovaGroup:       p.NovaGroup,
		PackagingTags:   p.PackagingTags,
		RecyclingTags:   p.PackagingRecyclingTags,
		StoresTags:      p.StoresTags,
	}

	// Nutriment entries mix numeric values with unit strings; only the
	// numeric ones are retained.
	if len(p.Nutriments) > 0 {
		record.Nutriments = make(map[string]float64)
		for key, value := range p.Nutriments {
			if f, ok := value.(float64); ok {
				record.Nutriments[key] = f
			}
		}
	}

	return record, nil
}
