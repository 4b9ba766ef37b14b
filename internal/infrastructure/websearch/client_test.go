package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trolleywise/backend/internal/domain"
)

// stubRanker returns a fixed index and score, recording whether it was called.
type stubRanker struct {
	index  int
	score  float64
	err    error
	called int32
}

func (s *stubRanker) BestMatch(ctx context.Context, target string, candidates []string) (int, float64, error) {
	atomic.AddInt32(&s.called, 1)
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.index, s.score, nil
}

const productPageHTML = `<!DOCTYPE html><html><head>
<script type="application/discover+json">{
  "mfe-orchestrator": {"props": {"apolloCache": {
    "RootQuery": {},
    "ProductType:812345": {
      "title": "Tesco Garden Peas 560G",
      "gtin": "5051790123456",
      "brandName": "Tesco",
      "superDepartmentName": "Frozen Food",
      "departmentName": "Frozen Vegetables",
      "aisleName": "Peas, Sweetcorn & Beans",
      "shelfName": "Frozen Peas",
      "reviews({\"count\":10,\"offset\":0})": {"stats": {"overallRating": 4.2}}
    }
  }}}
}</script></head><body></body></html>`

// resultsPage builds a DDG-style results page with the given (title, href) pairs.
func resultsPage(links [][2]string) string {
	page := "<html><body>"
	for _, link := range links {
		page += fmt.Sprintf(`<a class="result__a" href=%q>%s</a>`, link[1], link[0])
	}
	return page + "</body></html>"
}

// newFallbackFixture wires a single test server that serves both the search
// endpoint and the product pages it links to.
func newFallbackFixture(t *testing.T, ranker domain.SimilarityRanker) (*Client, *httptest.Server, *atomic.Int32) {
	t.Helper()

	var fetches atomic.Int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		productURL := server.URL + "/product?path=www.tesco.com/groceries/en-GB/products/812345"
		_, _ = w.Write([]byte(resultsPage([][2]string{
			{"Tesco Garden Peas 560G - Tesco Groceries", productURL},
			{"Garden peas recipe ideas", "https://example.com/recipes"},
		})))
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(productPageHTML))
	})

	client := NewClient(Config{
		SearchURL:    server.URL + "/html/",
		FetchRetries: 5,
	}, ranker, zerolog.Nop())
	client.searchPolicy.Base = time.Millisecond
	client.fetchPolicy.Base = time.Millisecond
	client.fetchPolicy.Jitter = false
	return client, server, &fetches
}

func TestSearchFallbackExactMatch(t *testing.T) {
	ranker := &stubRanker{}
	client, _, _ := newFallbackFixture(t, ranker)

	// "Tesco " prefix + query normalizes to the result title minus the
	// site suffix, so force the embedding path off by matching exactly.
	candidate, score, err := client.SearchFallback(context.Background(), "Garden Peas 560G - Tesco Groceries")
	require.NoError(t, err)
	require.NotNil(t, candidate)

	assert.Equal(t, 100.0, score)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ranker.called), "exact match must skip embedding")
	assert.Equal(t, "Tesco Garden Peas 560G", candidate.MatchedName)
	require.NotNil(t, candidate.Rating)
	assert.Equal(t, 4.2, *candidate.Rating)
	require.NotNil(t, candidate.Barcode)
	assert.Equal(t, "5051790123456", *candidate.Barcode)
}

func TestSearchFallbackEmbeddingPath(t *testing.T) {
	ranker := &stubRanker{index: 0, score: 0.873}
	client, _, _ := newFallbackFixture(t, ranker)

	candidate, score, err := client.SearchFallback(context.Background(), "garden peas")
	require.NoError(t, err)
	require.NotNil(t, candidate)

	assert.Equal(t, 87.3, score)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ranker.called))
	require.NotNil(t, candidate.Category4)
	assert.Equal(t, "Frozen Peas", *candidate.Category4)
}

func TestSearchFallbackNoProductURLs(t *testing.T) {
	ranker := &stubRanker{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultsPage([][2]string{
			{"Garden peas recipes", "https://example.com/recipes"},
			{"Pea growing guide", "https://example.org/peas"},
		})))
	}))
	defer server.Close()

	client := NewClient(Config{SearchURL: server.URL + "/"}, ranker, zerolog.Nop())

	candidate, score, err := client.SearchFallback(context.Background(), "garden peas")
	require.NoError(t, err)
	assert.Nil(t, candidate)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ranker.called))
}

func TestSearchFallbackSearchFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{SearchURL: server.URL + "/", SearchRetries: 2}, &stubRanker{}, zerolog.Nop())
	client.searchPolicy.Base = time.Millisecond

	candidate, score, err := client.SearchFallback(context.Background(), "anything")
	require.NoError(t, err, "fallback is best-effort and must not propagate transport errors")
	assert.Nil(t, candidate)
	assert.Equal(t, 0.0, score)
}

func TestSearchFallbackFetchRetriesThenDegrades(t *testing.T) {
	var fetches atomic.Int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		productURL := server.URL + "/product?path=www.tesco.com/groceries/en-GB/products/1"
		_, _ = w.Write([]byte(resultsPage([][2]string{{"Tesco Thing", productURL}})))
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	client := NewClient(Config{
		SearchURL:    server.URL + "/html/",
		FetchRetries: 5,
	}, &stubRanker{score: 0.5}, zerolog.Nop())
	client.fetchPolicy.Base = time.Millisecond
	client.fetchPolicy.Jitter = false

	candidate, score, err := client.SearchFallback(context.Background(), "thing")
	require.NoError(t, err)
	assert.Nil(t, candidate)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, int32(5), fetches.Load(), "fetch is retried up to its bound")
}

func TestSearchFallbackMissingDiscoverBlockDegrades(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		productURL := server.URL + "/product?path=www.tesco.com/groceries/en-GB/products/2"
		_, _ = w.Write([]byte(resultsPage([][2]string{{"Tesco Thing", productURL}})))
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>out of stock</body></html>"))
	})

	client := NewClient(Config{SearchURL: server.URL + "/html/", FetchRetries: 2}, &stubRanker{score: 0.5}, zerolog.Nop())
	client.fetchPolicy.Base = time.Millisecond
	client.fetchPolicy.Jitter = false

	candidate, score, err := client.SearchFallback(context.Background(), "thing")
	require.NoError(t, err)
	assert.Nil(t, candidate)
	assert.Equal(t, 0.0, score)
}

func TestParseSearchResultsRedirectLinks(t *testing.T) {
	target := "https://www.tesco.com/groceries/en-GB/products/299894426"
	page := resultsPage([][2]string{
		{"Tesco Beans", "//duckduckgo.com/l/?uddg=" + url.QueryEscape(target) + "&rut=abc"},
	})

	hits, err := parseSearchResults([]byte(page))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, target, hits[0].URL)
	assert.Equal(t, "Tesco Beans", hits[0].Title)
}

func TestParseProductPageRatingAbsent(t *testing.T) {
	page := `<html><head><script type="application/discover+json">{
	  "mfe-orchestrator": {"props": {"apolloCache": {
	    "ProductType:1": {"title": "Tesco Thing 100G", "gtin": "123"}
	  }}}
	}</script></head></html>`

	candidate, err := parseProductPage([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Tesco Thing 100G", candidate.MatchedName)
	assert.Nil(t, candidate.Rating)
	assert.Nil(t, candidate.Brand)
}
