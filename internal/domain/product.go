package domain

// Origin identifies which source ultimately supplied an adopted match.
type Origin string

const (
	// OriginPrimary means the retailer search API supplied the match.
	OriginPrimary Origin = "primary"

	// OriginFallback means the web-search scrape supplied the match.
	OriginFallback Origin = "fallback"

	// OriginNone means no source produced a usable candidate.
	OriginNone Origin = "none"
)

// ProductQuery is one free-text product name to resolve. The UID is a
// caller-supplied identifier used to correlate results back to source rows.
type ProductQuery struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// CandidateRecord is one catalog entry returned by a search source.
// It is an immutable projection of the remote system's current state;
// fields the source did not populate stay nil rather than failing.
type CandidateRecord struct {
	MatchedName string   `json:"matchedName"`
	Barcode     *string  `json:"barcode,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Category1   *string  `json:"category1,omitempty"`
	Category2   *string  `json:"category2,omitempty"`
	Category3   *string  `json:"category3,omitempty"`
	Category4   *string  `json:"category4,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// MatchResult is the resolution engine's output for one ProductQuery.
// Invariant: Candidate == nil implies Score == 0.0.
// Invariant: Score never decreases across escalation stages.
type MatchResult struct {
	Query     ProductQuery     `json:"query"`
	Candidate *CandidateRecord `json:"candidate,omitempty"`
	Score     float64          `json:"matchScore"`
	Origin    Origin           `json:"origin"`
}

// Clone returns a deep copy, duplicating every pointer field so the
// copy shares no memory with the original.
func (c *CandidateRecord) Clone() *CandidateRecord {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Barcode = clonePtr(c.Barcode)
	clone.Brand = clonePtr(c.Brand)
	clone.Category1 = clonePtr(c.Category1)
	clone.Category2 = clonePtr(c.Category2)
	clone.Category3 = clonePtr(c.Category3)
	clone.Category4 = clonePtr(c.Category4)
	clone.Rating = clonePtr(c.Rating)
	return &clone
}

// Clone returns a deep copy including the candidate record.
func (r MatchResult) Clone() MatchResult {
	clone := r
	clone.Candidate = r.Candidate.Clone()
	return clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NoMatch builds the fixed-shape result for a query no source could resolve.
func NoMatch(query ProductQuery) MatchResult {
	return MatchResult{Query: query, Score: 0.0, Origin: OriginNone}
}

// CategoryCluster maps one or more raw category strings to a single
// canonical label. Clusters grow only by user-confirmed merges.
type CategoryCluster struct {
	Canonical string   `json:"canonical"`
	Members   []string `json:"members"`
}
