package usecase

import (
	"fmt"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog"

	"github.com/trolleywise/backend/internal/domain"
	"github.com/trolleywise/backend/internal/normalize"
)

// MappingPersister stores the category mapping between sessions
type MappingPersister interface {
	Load() (map[string]string, error)
	Save(map[string]string) error
}

// MergeProposal is one candidate merge awaiting an operator decision.
// When Cluster is non-empty the unmapped Category would join an existing
// cluster; otherwise Other is a second unmapped category and accepting
// creates a new cluster.
type MergeProposal struct {
	Category   string
	Other      string
	Cluster    string
	Suggestion string
	Similarity float64
}

// Consolidator folds the long tail of raw category strings into a small
// canonical set through operator-confirmed merges. Matching against an
// existing cluster is always preferred over pairing two unmapped strings,
// so clusters grow before new ones appear.
type Consolidator struct {
	threshold float64
	persister MappingPersister
	logger    zerolog.Logger

	categories []string
	mappings   map[string]string
	skipped    map[string]bool
}

// NewConsolidator creates a consolidation engine over the given raw
// category strings. Duplicates are collapsed; input order is preserved.
func NewConsolidator(categories []string, persister MappingPersister, threshold float64, logger zerolog.Logger) *Consolidator {
	if threshold <= 0 {
		threshold = 0.6
	}

	seen := make(map[string]bool, len(categories))
	unique := make([]string, 0, len(categories))
	for _, category := range categories {
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		unique = append(unique, category)
	}

	return &Consolidator{
		threshold:  threshold,
		persister:  persister,
		logger:     logger.With().Str("component", "consolidator").Logger(),
		categories: unique,
		mappings:   make(map[string]string),
		skipped:    make(map[string]bool),
	}
}

// Restore reloads a previous session's mapping so consolidation resumes
// exactly where it left off.
func (c *Consolidator) Restore() error {
	if c.persister == nil {
		return nil
	}
	mappings, err := c.persister.Load()
	if err != nil {
		return fmt.Errorf("restore mappings: %w", err)
	}
	c.mappings = mappings
	return nil
}

// Mapping returns the current original-to-canonical mapping
func (c *Consolidator) Mapping() map[string]string {
	out := make(map[string]string, len(c.mappings))
	for k, v := range c.mappings {
		out[k] = v
	}
	return out
}

// Clusters returns the current canonical clusters with sorted membership
// implied by mapping insertion; member order follows the input category
// order.
func (c *Consolidator) Clusters() []domain.CategoryCluster {
	byCanonical := make(map[string][]string)
	var order []string
	for _, category := range c.categories {
		canonical, ok := c.mappings[category]
		if !ok {
			continue
		}
		if _, exists := byCanonical[canonical]; !exists {
			order = append(order, canonical)
		}
		byCanonical[canonical] = append(byCanonical[canonical], category)
	}

	clusters := make([]domain.CategoryCluster, 0, len(order))
	for _, canonical := range order {
		clusters = append(clusters, domain.CategoryCluster{
			Canonical: canonical,
			Members:   byCanonical[canonical],
		})
	}
	return clusters
}

// NextProposal finds the best merge candidate above the threshold, or
// reports false when consolidation is finished. Cluster joins beat fresh
// pairs regardless of score; fresh pairs must share at least one word.
func (c *Consolidator) NextProposal() (*MergeProposal, bool) {
	unmapped := c.unmapped()

	if proposal := c.bestClusterJoin(unmapped); proposal != nil {
		return proposal, true
	}
	if proposal := c.bestFreshPair(unmapped); proposal != nil {
		return proposal, true
	}
	return nil, false
}

// Accept merges the proposal under its suggested canonical label
func (c *Consolidator) Accept(proposal *MergeProposal) error {
	return c.apply(proposal, proposal.Suggestion)
}

// Rename merges the proposal under an operator-chosen label
func (c *Consolidator) Rename(proposal *MergeProposal, canonical string) error {
	if canonical == "" {
		return domain.ErrInvalidRequest
	}
	return c.apply(proposal, canonical)
}

// Skip rejects the proposal; the pair is never proposed again this session
func (c *Consolidator) Skip(proposal *MergeProposal) {
	c.skipped[pairKey(proposal.Category, proposal.other())] = true
}

func (c *Consolidator) apply(proposal *MergeProposal, canonical string) error {
	c.mappings[proposal.Category] = canonical

	if proposal.Cluster != "" {
		// Relabel the whole cluster so every member follows a rename.
		for original, label := range c.mappings {
			if label == proposal.Cluster {
				c.mappings[original] = canonical
			}
		}
	} else {
		c.mappings[proposal.Other] = canonical
	}

	if c.persister != nil {
		if err := c.persister.Save(c.mappings); err != nil {
			return fmt.Errorf("persist mappings: %w", err)
		}
	}

	c.logger.Info().Str("canonical", canonical).Str("category", proposal.Category).
		Msg("merged category")
	return nil
}

func (c *Consolidator) unmapped() []string {
	var out []string
	for _, category := range c.categories {
		if _, ok := c.mappings[category]; !ok {
			out = append(out, category)
		}
	}
	return out
}

// bestClusterJoin scans unmapped categories against every existing cluster,
// comparing with the canonical label and each member, and returns the
// highest-scoring join above the threshold.
func (c *Consolidator) bestClusterJoin(unmapped []string) *MergeProposal {
	var best *MergeProposal

	for _, category := range unmapped {
		for _, cluster := range c.Clusters() {
			if c.skipped[pairKey(category, cluster.Canonical)] {
				continue
			}

			score := similarity(category, cluster.Canonical)
			for _, member := range cluster.Members {
				if memberScore := similarity(category, member); memberScore > score {
					score = memberScore
				}
			}

			if score <= c.threshold {
				continue
			}
			if best == nil || score > best.Similarity {
				best = &MergeProposal{
					Category:   category,
					Cluster:    cluster.Canonical,
					Suggestion: cluster.Canonical,
					Similarity: score,
				}
			}
		}
	}

	return best
}

// bestFreshPair scans unmapped pairs for the highest similarity above the
// threshold. Pairs with no common word are rejected outright so spurious
// edit-distance hits between unrelated short strings never surface.
func (c *Consolidator) bestFreshPair(unmapped []string) *MergeProposal {
	var best *MergeProposal

	for i := 0; i < len(unmapped); i++ {
		for j := i + 1; j < len(unmapped); j++ {
			a, b := unmapped[i], unmapped[j]
			if c.skipped[pairKey(a, b)] {
				continue
			}

			common := normalize.CommonWords(a, b)
			if common == "" {
				continue
			}

			score := similarity(a, b)
			if score <= c.threshold {
				continue
			}
			if best == nil || score > best.Similarity {
				best = &MergeProposal{
					Category:   a,
					Other:      b,
					Suggestion: normalize.TitleFirstWord(common),
					Similarity: score,
				}
			}
		}
	}

	return best
}

func (p *MergeProposal) other() string {
	if p.Cluster != "" {
		return p.Cluster
	}
	return p.Other
}

// similarity is the edit-distance ratio of the two strings under strict
// normalization, so punctuation variants of the same category score 1.0.
func similarity(a, b string) float64 {
	score, err := edlib.StringsSimilarity(normalize.CleanStrict(a), normalize.CleanStrict(b), edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(score)
}

// pairKey is order-independent so a skip covers both orientations
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
