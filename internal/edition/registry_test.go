package edition

import (
	"sync"
	"testing"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TotalCards(t *testing.T) {
	r := Default()

	tests := []struct {
		edition domain.Edition
		want    int
	}{
		{domain.EditionClassic, 529},
		{domain.EditionWitcher, 529},
		{domain.EditionGOT, 531},
		{domain.EditionLOTR, 342},
		{domain.Edition("unknown-edition"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.edition), func(t *testing.T) {
			assert.Equal(t, tt.want, r.TotalCards(tt.edition))
		})
	}
}

func TestRegistry_TotalCardsIsSumOfCategories(t *testing.T) {
	r := Default()
	for _, e := range r.Editions() {
		sum := 0
		m, ok := r.Lookup(e)
		require.True(t, ok)
		for _, c := range domain.Categories {
			sum += m.Factions[c].Total
		}
		assert.Equal(t, sum, r.TotalCards(e), e)
	}
}

func TestRegistry_CategoryLabel(t *testing.T) {
	r := Default()

	assert.Equal(t, "Northern Realms (123)", r.CategoryLabel(domain.EditionWitcher, domain.CategoryFaction1))
	assert.Equal(t, "Sons of Essos (82)", r.CategoryLabel(domain.EditionGOT, domain.CategoryFaction5))
	assert.Equal(t, "Neutral (19)", r.CategoryLabel(domain.EditionLOTR, domain.CategoryNeutral))

	assert.Equal(t, "N/A (0)", r.CategoryLabel(domain.EditionLOTR, domain.CategoryFaction4))
	assert.Equal(t, "N/A (0)", r.CategoryLabel(domain.EditionLOTR, domain.CategoryFaction5))
	assert.Equal(t, "N/A (0)", r.CategoryLabel("gwent2", domain.CategoryNeutral))
	assert.Equal(t, "N/A (0)", r.CategoryLabel(domain.EditionGOT, "faction9"))
}

func TestRegistry_EditionsInDisplayOrder(t *testing.T) {
	assert.Equal(t, []domain.Edition{
		domain.EditionWitcher,
		domain.EditionClassic,
		domain.EditionGOT,
		domain.EditionLOTR,
	}, Default().Editions())
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r := Default()
	m, ok := r.Lookup(domain.EditionGOT)
	require.True(t, ok)

	m.Factions[domain.CategoryNeutral] = Faction{Name: "Tampered", Total: 1000}

	assert.Equal(t, 531, r.TotalCards(domain.EditionGOT))
}

func TestRegistry_Summary(t *testing.T) {
	r := Default()

	s, ok := r.Summary(domain.EditionLOTR)
	require.True(t, ok)
	assert.Equal(t, "Lord of the Rings", s.DisplayName)
	assert.Equal(t, 342, s.TotalCards)
	assert.Equal(t, 35, s.Challenges)
	assert.Equal(t, "N/A (0)", s.Categories["faction4"])
	assert.Len(t, s.Columns, 8+len(domain.Categories))
	assert.Contains(t, s.Columns, domain.Column{Field: "total_cards_unlocked", Label: "Total Cards (342)"})
	assert.Contains(t, s.Columns, domain.Column{Field: "faction3_cards_unlocked", Label: "Servants of Evil (103)"})

	_, ok = r.Summary("unknown")
	assert.False(t, ok)
}

func TestNew_RejectsBadMetadata(t *testing.T) {
	_, err := New(Metadata{Edition: "chess"})
	assert.ErrorIs(t, err, domain.ErrUnknownEdition)

	_, err = New(Metadata{
		Edition:  domain.EditionGOT,
		Factions: map[domain.Category]Faction{"faction6": {Name: "Extra", Total: 1}},
	})
	assert.Error(t, err)

	_, err = New(Metadata{
		Edition:  domain.EditionGOT,
		Factions: map[domain.Category]Faction{domain.CategoryNeutral: {Name: "Neutral", Total: -1}},
	})
	assert.Error(t, err)
}

func TestFromConfig_OverridesOneEdition(t *testing.T) {
	r, err := FromConfig([]config.EditionConfig{
		{
			Key: "lotr",
			Factions: map[string]config.FactionConfig{
				"neutral":  {Name: "Neutral", Total: 20},
				"faction4": {Name: "Rohan", Total: 50},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 70, r.TotalCards(domain.EditionLOTR))
	assert.Equal(t, "Rohan (50)", r.CategoryLabel(domain.EditionLOTR, domain.CategoryFaction4))
	assert.Equal(t, "N/A (0)", r.CategoryLabel(domain.EditionLOTR, domain.CategoryFaction1))
	assert.Equal(t, "Lord of the Rings", mustSummary(t, r, domain.EditionLOTR).DisplayName)
	assert.Equal(t, 35, r.Challenges(domain.EditionLOTR))

	// Editions that were not configured keep the built-in data
	assert.Equal(t, 531, r.TotalCards(domain.EditionGOT))
}

func TestFromConfig_UnknownEdition(t *testing.T) {
	_, err := FromConfig([]config.EditionConfig{{Key: "chess"}})
	assert.ErrorIs(t, err, domain.ErrUnknownEdition)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := Default()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, e := range domain.Editions {
				_ = r.TotalCards(e)
				_ = r.CategoryLabel(e, domain.CategoryFaction4)
				_, _ = r.Summary(e)
			}
		}()
	}
	wg.Wait()
}

func mustSummary(t *testing.T, r *Registry, e domain.Edition) domain.EditionSummary {
	t.Helper()
	s, ok := r.Summary(e)
	require.True(t, ok)
	return s
}
