package usecase

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trolleywise/backend/internal/domain"
)

type memoryPersister struct {
	saved    map[string]string
	saves    int
	restored map[string]string
}

func (p *memoryPersister) Load() (map[string]string, error) {
	if p.restored == nil {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(p.restored))
	for k, v := range p.restored {
		out[k] = v
	}
	return out, nil
}

func (p *memoryPersister) Save(mappings map[string]string) error {
	p.saved = make(map[string]string, len(mappings))
	for k, v := range mappings {
		p.saved[k] = v
	}
	p.saves++
	return nil
}

func newTestConsolidator(categories []string, persister MappingPersister) *Consolidator {
	return NewConsolidator(categories, persister, 0.6, zerolog.Nop())
}

func TestConsolidator_ProposesMostSimilarPairFirst(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits", "Fresh Fruit Veg", "Bakery"}, nil)

	proposal, ok := c.NextProposal()
	require.True(t, ok)

	assert.Equal(t, "Fresh Fruit", proposal.Category)
	assert.Equal(t, "Fresh Fruits", proposal.Other)
	assert.Empty(t, proposal.Cluster)
	assert.Equal(t, "Fresh", proposal.Suggestion)
	assert.Greater(t, proposal.Similarity, 0.6)
}

func TestConsolidator_PrefersClusterJoinOverFreshPair(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits", "Fresh Fruit Veg"}, nil)

	first, ok := c.NextProposal()
	require.True(t, ok)
	require.NoError(t, c.Accept(first))

	second, ok := c.NextProposal()
	require.True(t, ok)
	assert.Equal(t, "Fresh Fruit Veg", second.Category)
	assert.Equal(t, "Fresh", second.Cluster)
	assert.Equal(t, "Fresh", second.Suggestion)

	require.NoError(t, c.Accept(second))

	mapping := c.Mapping()
	assert.Equal(t, "Fresh", mapping["Fresh Fruit"])
	assert.Equal(t, "Fresh", mapping["Fresh Fruits"])
	assert.Equal(t, "Fresh", mapping["Fresh Fruit Veg"])

	_, ok = c.NextProposal()
	assert.False(t, ok, "no pair left above the threshold")
}

func TestConsolidator_ClusterJoinBeatsHigherScoringFreshPair(t *testing.T) {
	// The fresh orange-juice pair scores higher than the snacks cluster
	// join, but the cluster join must still come first.
	persister := &memoryPersister{restored: map[string]string{
		"Snacks & Treats": "Snacks",
		"Snacks Aisle":    "Snacks",
	}}
	c := newTestConsolidator([]string{
		"Snacks & Treats", "Snacks Aisle", "Snacks & Treat",
		"Fresh Orange Juice", "Fresh Orange Juices",
	}, persister)
	require.NoError(t, c.Restore())

	proposal, ok := c.NextProposal()
	require.True(t, ok)
	assert.Equal(t, "Snacks & Treat", proposal.Category)
	assert.Equal(t, "Snacks", proposal.Cluster)
}

func TestConsolidator_PunctuationVariantsScoreAsIdentical(t *testing.T) {
	// "F&F" and "F and F" are the same category under strict
	// normalization and must be proposed at full similarity.
	c := newTestConsolidator([]string{"F&F", "F and F"}, nil)

	proposal, ok := c.NextProposal()
	require.True(t, ok)
	assert.Equal(t, "F&F", proposal.Category)
	assert.Equal(t, "F and F", proposal.Other)
	assert.InDelta(t, 1.0, proposal.Similarity, 0.001)
}

func TestConsolidator_FreshPairsRequireCommonWord(t *testing.T) {
	// High edit-distance similarity but no shared word token.
	c := newTestConsolidator([]string{"Snacking", "Snacksing"}, nil)

	_, ok := c.NextProposal()
	assert.False(t, ok)
}

func TestConsolidator_DissimilarPairsNotProposed(t *testing.T) {
	c := newTestConsolidator([]string{"Bakery", "Household Cleaning", "Pet Food"}, nil)

	_, ok := c.NextProposal()
	assert.False(t, ok)
}

func TestConsolidator_RenameUsesOperatorLabel(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits"}, nil)

	proposal, ok := c.NextProposal()
	require.True(t, ok)
	require.NoError(t, c.Rename(proposal, "Fruit & Veg"))

	mapping := c.Mapping()
	assert.Equal(t, "Fruit & Veg", mapping["Fresh Fruit"])
	assert.Equal(t, "Fruit & Veg", mapping["Fresh Fruits"])
}

func TestConsolidator_RenameRejectsEmptyLabel(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits"}, nil)

	proposal, ok := c.NextProposal()
	require.True(t, ok)
	assert.ErrorIs(t, c.Rename(proposal, ""), domain.ErrInvalidRequest)
}

func TestConsolidator_RenamingClusterJoinRelabelsMembers(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits", "Fresh Fruit Veg"}, nil)

	first, _ := c.NextProposal()
	require.NoError(t, c.Accept(first))

	join, ok := c.NextProposal()
	require.True(t, ok)
	require.NotEmpty(t, join.Cluster)
	require.NoError(t, c.Rename(join, "Fruit"))

	mapping := c.Mapping()
	assert.Equal(t, "Fruit", mapping["Fresh Fruit"])
	assert.Equal(t, "Fruit", mapping["Fresh Fruits"])
	assert.Equal(t, "Fruit", mapping["Fresh Fruit Veg"])
}

func TestConsolidator_SkipSuppressesPair(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits"}, nil)

	proposal, ok := c.NextProposal()
	require.True(t, ok)
	c.Skip(proposal)

	_, ok = c.NextProposal()
	assert.False(t, ok)
	assert.Empty(t, c.Mapping())
}

func TestConsolidator_PersistsAfterEveryDecision(t *testing.T) {
	persister := &memoryPersister{}
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits", "Fresh Fruit Veg"}, persister)

	first, _ := c.NextProposal()
	require.NoError(t, c.Accept(first))
	assert.Equal(t, 1, persister.saves)
	assert.Len(t, persister.saved, 2)

	second, _ := c.NextProposal()
	require.NoError(t, c.Accept(second))
	assert.Equal(t, 2, persister.saves)
	assert.Len(t, persister.saved, 3)
}

func TestConsolidator_RestoreResumesSession(t *testing.T) {
	persister := &memoryPersister{restored: map[string]string{
		"Fresh Fruit":  "Fresh",
		"Fresh Fruits": "Fresh",
	}}
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits", "Fresh Fruit Veg"}, persister)
	require.NoError(t, c.Restore())

	proposal, ok := c.NextProposal()
	require.True(t, ok)
	assert.Equal(t, "Fresh Fruit Veg", proposal.Category)
	assert.Equal(t, "Fresh", proposal.Cluster)
}

func TestConsolidator_Clusters(t *testing.T) {
	c := newTestConsolidator([]string{"Fresh Fruit", "Fresh Fruits", "Bakery"}, nil)

	proposal, _ := c.NextProposal()
	require.NoError(t, c.Accept(proposal))

	clusters := c.Clusters()
	require.Len(t, clusters, 1)
	assert.Equal(t, "Fresh", clusters[0].Canonical)
	assert.ElementsMatch(t, []string{"Fresh Fruit", "Fresh Fruits"}, clusters[0].Members)
}
