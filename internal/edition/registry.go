// Package edition holds the per-edition card metadata used to label
// leaderboard columns and compute card totals.
package edition

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
)

// unknownLabel is returned for any edition/category pair with no metadata
const unknownLabel = "N/A (0)"

// defaultChallenges is the challenge count every edition ships with
const defaultChallenges = 35

// Faction is a card category's display name and card total
type Faction struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

// Metadata describes one edition. A category missing from Factions does
// not exist in that edition.
type Metadata struct {
	Edition     domain.Edition
	DisplayName string
	Challenges  int
	Factions    map[domain.Category]Faction
}

// TotalCards sums every category total
func (m *Metadata) TotalCards() int {
	total := 0
	for _, f := range m.Factions {
		total += f.Total
	}
	return total
}

// Registry is an immutable edition lookup. It is never mutated after
// construction, so one instance is shared by every consumer without locks.
type Registry struct {
	entries map[domain.Edition]Metadata
}

// New builds a registry from the given entries
func New(entries ...Metadata) (*Registry, error) {
	r := &Registry{entries: make(map[domain.Edition]Metadata, len(entries))}
	for _, m := range entries {
		if err := validate(m); err != nil {
			return nil, err
		}
		m.Factions = maps.Clone(m.Factions)
		r.entries[m.Edition] = m
	}
	return r, nil
}

func validate(m Metadata) error {
	if !m.Edition.Known() {
		return fmt.Errorf("edition %q: %w", m.Edition, domain.ErrUnknownEdition)
	}
	for c, f := range m.Factions {
		if !slices.Contains(domain.Categories, c) {
			return fmt.Errorf("edition %q: unknown category %q", m.Edition, c)
		}
		if f.Total < 0 {
			return fmt.Errorf("edition %q: category %q has negative total %d", m.Edition, c, f.Total)
		}
	}
	return nil
}

// Default returns the registry of built-in editions
func Default() *Registry {
	r, err := New(defaultMetadata()...)
	if err != nil {
		panic(err)
	}
	return r
}

// FromConfig overlays configured editions onto the built-in ones
func FromConfig(cfgs []config.EditionConfig) (*Registry, error) {
	entries := make(map[domain.Edition]Metadata)
	for _, m := range defaultMetadata() {
		entries[m.Edition] = m
	}

	for _, c := range cfgs {
		e, ok := domain.ParseEdition(c.Key)
		if !ok {
			return nil, fmt.Errorf("configuring edition %q: %w", c.Key, domain.ErrUnknownEdition)
		}
		m := Metadata{
			Edition:     e,
			DisplayName: c.DisplayName,
			Challenges:  c.Challenges,
			Factions:    make(map[domain.Category]Faction, len(c.Factions)),
		}
		if m.DisplayName == "" {
			m.DisplayName = entries[e].DisplayName
		}
		if m.Challenges == 0 {
			m.Challenges = defaultChallenges
		}
		for key, f := range c.Factions {
			m.Factions[domain.Category(key)] = Faction{Name: f.Name, Total: f.Total}
		}
		entries[e] = m
	}

	return New(slices.Collect(maps.Values(entries))...)
}

// Lookup returns the metadata of an edition
func (r *Registry) Lookup(e domain.Edition) (Metadata, bool) {
	m, ok := r.entries[e]
	if !ok {
		return Metadata{}, false
	}
	m.Factions = maps.Clone(m.Factions)
	return m, true
}

// Editions returns the configured editions in display order
func (r *Registry) Editions() []domain.Edition {
	out := make([]domain.Edition, 0, len(r.entries))
	for _, e := range domain.Editions {
		if _, ok := r.entries[e]; ok {
			out = append(out, e)
		}
	}
	return out
}

// TotalCards returns the number of cards in an edition, or 0 when the
// edition is unknown.
func (r *Registry) TotalCards(e domain.Edition) int {
	m, ok := r.entries[e]
	if !ok {
		return 0
	}
	return m.TotalCards()
}

// CategoryLabel returns "{name} ({total})" for a category, or "N/A (0)"
// when the edition is unknown or does not have the category.
func (r *Registry) CategoryLabel(e domain.Edition, c domain.Category) string {
	m, ok := r.entries[e]
	if !ok {
		return unknownLabel
	}
	f, ok := m.Factions[c]
	if !ok {
		return unknownLabel
	}
	return f.Name + " (" + strconv.Itoa(f.Total) + ")"
}

// Challenges returns the edition's challenge count, or 0 when unknown
func (r *Registry) Challenges(e domain.Edition) int {
	return r.entries[e].Challenges
}

// Columns returns the leaderboard columns for an edition in display order
func (r *Registry) Columns(e domain.Edition) []domain.Column {
	cols := []domain.Column{
		{Field: "username", Label: "Username"},
		{Field: "wins", Label: "Wins"},
		{Field: "draws", Label: "Draws"},
		{Field: "losses", Label: "Losses"},
		{Field: "win_percentage", Label: "Win %"},
		{Field: "highest_scored_round", Label: "Highest Score"},
		{Field: "challenges_completed", Label: "Challenges (" + strconv.Itoa(r.Challenges(e)) + ")"},
		{Field: "total_cards_unlocked", Label: "Total Cards (" + strconv.Itoa(r.TotalCards(e)) + ")"},
	}
	for _, c := range domain.Categories {
		cols = append(cols, domain.Column{Field: c.Field(), Label: r.CategoryLabel(e, c)})
	}
	return cols
}

// Summary projects an edition for consumers. ok is false for unknown editions.
func (r *Registry) Summary(e domain.Edition) (domain.EditionSummary, bool) {
	m, ok := r.entries[e]
	if !ok {
		return domain.EditionSummary{}, false
	}
	labels := make(map[string]string, len(domain.Categories))
	for _, c := range domain.Categories {
		labels[string(c)] = r.CategoryLabel(e, c)
	}
	return domain.EditionSummary{
		Edition:     e,
		DisplayName: m.DisplayName,
		TotalCards:  m.TotalCards(),
		Challenges:  m.Challenges,
		Categories:  labels,
		Columns:     r.Columns(e),
	}, true
}
