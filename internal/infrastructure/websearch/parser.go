package websearch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/trolleywise/backend/internal/domain"
)

// webResult is one organic search hit: the page title shown on the results
// page and the destination URL.
type webResult struct {
	Title string
	URL   string
}

// parseSearchResults walks the DuckDuckGo HTML results page and collects
// the organic result links. DDG wraps destinations in a redirect URL whose
// uddg parameter carries the real target; both forms are handled.
func parseSearchResults(body []byte) ([]webResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []webResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href := attrValue(n, "href")
			if target := resolveRedirect(href); target != "" {
				results = append(results, webResult{
					Title: strings.TrimSpace(textContent(n)),
					URL:   target,
				})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return results, nil
}

// resolveRedirect unwraps DDG's /l/?uddg=<encoded> redirect links; direct
// links pass through unchanged.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		if decoded, err := url.QueryUnescape(uddg); err == nil {
			return decoded
		}
		return ""
	}

	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attrValue(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}

// discoverPayload mirrors the structured-data block embedded on retailer
// product pages. Only the apollo cache is of interest; the product entry
// sits under a "ProductType:<id>" key.
type discoverPayload struct {
	MfeOrchestrator struct {
		Props struct {
			ApolloCache map[string]json.RawMessage `json:"apolloCache"`
		} `json:"props"`
	} `json:"mfe-orchestrator"`
}

type productPageNode struct {
	Title               *string `json:"title"`
	GTIN                *string `json:"gtin"`
	BrandName           *string `json:"brandName"`
	SuperDepartmentName *string `json:"superDepartmentName"`
	DepartmentName      *string `json:"departmentName"`
	AisleName           *string `json:"aisleName"`
	ShelfName           *string `json:"shelfName"`
}

// parseProductPage extracts the candidate record from the typed script tag
// on a product-detail page.
func parseProductPage(body []byte) (*domain.CandidateRecord, error) {
	payload, err := findDiscoverScript(body)
	if err != nil {
		return nil, err
	}

	var data discoverPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decode discover payload: %w", err)
	}

	for key, raw := range data.MfeOrchestrator.Props.ApolloCache {
		if !strings.HasPrefix(key, "ProductType:") {
			continue
		}

		var node productPageNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("decode product entry: %w", err)
		}

		record := &domain.CandidateRecord{
			Barcode:   node.GTIN,
			Brand:     node.BrandName,
			Category1: node.SuperDepartmentName,
			Category2: node.DepartmentName,
			Category3: node.AisleName,
			Category4: node.ShelfName,
			Rating:    extractPageRating(raw),
		}
		if node.Title != nil {
			record.MatchedName = *node.Title
		}
		return record, nil
	}

	return nil, fmt.Errorf("no product entry in discover payload")
}

// extractPageRating digs the overall rating out of the parameterised
// reviews key, e.g. `reviews({"count":10,"offset":0})`. The exact argument
// list varies, so any key with the reviews( prefix is accepted. A missing
// link anywhere along the path yields nil.
func extractPageRating(raw json.RawMessage) *float64 {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	for key, value := range fields {
		if !strings.HasPrefix(key, "reviews(") {
			continue
		}

		var reviews struct {
			Stats *struct {
				OverallRating *float64 `json:"overallRating"`
			} `json:"stats"`
		}
		if err := json.Unmarshal(value, &reviews); err != nil || reviews.Stats == nil {
			return nil
		}
		return reviews.Stats.OverallRating
	}

	return nil
}

// findDiscoverScript locates the application/discover+json script tag and
// returns its raw contents.
func findDiscoverScript(body []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse product page: %w", err)
	}

	var payload []byte
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if payload != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" &&
			attrValue(n, "type") == "application/discover+json" {
			if n.FirstChild != nil {
				payload = []byte(n.FirstChild.Data)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if payload == nil {
		return nil, fmt.Errorf("no discover script tag on page")
	}
	return payload, nil
}
