package domain

import (
	"cmp"
	"slices"
	"strings"
)

// SortField names a record attribute rankings can be ordered by
type SortField string

const (
	SortWins                SortField = "wins"
	SortDraws               SortField = "draws"
	SortLosses              SortField = "losses"
	SortWinPercentage       SortField = "win_percentage"
	SortHighestScoredRound  SortField = "highest_scored_round"
	SortChallengesCompleted SortField = "challenges_completed"
	SortTotalCardsUnlocked  SortField = "total_cards_unlocked"
	SortUsername            SortField = "username"
	SortUpdatedAt           SortField = "updated_at"
	SortID                  SortField = "id"
)

// Valid reports whether the field can be sorted on
func (f SortField) Valid() bool {
	switch f {
	case SortWins, SortDraws, SortLosses, SortWinPercentage, SortHighestScoredRound,
		SortChallengesCompleted, SortTotalCardsUnlocked, SortUsername, SortUpdatedAt, SortID:
		return true
	}
	return false
}

// SortKey is one step of a ranking tie-break chain
type SortKey struct {
	Field      SortField
	Descending bool
}

func (k SortKey) String() string {
	if k.Descending {
		return string(k.Field) + ":desc"
	}
	return string(k.Field) + ":asc"
}

// Ordering is a tie-break chain applied left to right
type Ordering []SortKey

// WinPercentageOrdering is the default ranking chain
var WinPercentageOrdering = Ordering{
	{Field: SortWins, Descending: true},
	{Field: SortWinPercentage, Descending: true},
	{Field: SortHighestScoredRound, Descending: true},
	{Field: SortUsername},
}

// ChallengesOrdering breaks ties on challenges completed instead of win percentage
var ChallengesOrdering = Ordering{
	{Field: SortWins, Descending: true},
	{Field: SortChallengesCompleted, Descending: true},
	{Field: SortHighestScoredRound, Descending: true},
	{Field: SortUsername},
}

// ParseOrdering parses keys written as "field:desc", "field asc" or "field"
// (ascending).
func ParseOrdering(specs []string) (Ordering, error) {
	ordering := make(Ordering, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		parts := strings.Fields(strings.ReplaceAll(spec, ":", " "))
		if len(parts) == 0 || len(parts) > 2 {
			return nil, &ValidationError{Field: "sort", Reason: "malformed sort key \"" + spec + "\""}
		}
		name, dir := parts[0], ""
		if len(parts) == 2 {
			dir = parts[1]
		}
		key := SortKey{Field: SortField(strings.ToLower(name))}
		if !key.Field.Valid() {
			return nil, &ValidationError{Field: "sort", Reason: "cannot sort by \"" + name + "\""}
		}
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			key.Descending = true
		default:
			return nil, &ValidationError{Field: "sort", Reason: "unknown sort direction \"" + dir + "\""}
		}
		ordering = append(ordering, key)
	}
	return ordering, nil
}

// Total returns the ordering extended so that no two distinct records
// compare equal: username ascending, then id ascending.
func (o Ordering) Total() Ordering {
	total := slices.Clone(o)
	if !total.has(SortUsername) {
		total = append(total, SortKey{Field: SortUsername})
	}
	if !total.has(SortID) {
		total = append(total, SortKey{Field: SortID})
	}
	return total
}

func (o Ordering) has(f SortField) bool {
	return slices.ContainsFunc(o, func(k SortKey) bool { return k.Field == f })
}

// Strings renders the ordering as "field:dir" specs
func (o Ordering) Strings() []string {
	out := make([]string, len(o))
	for i, k := range o {
		out[i] = k.String()
	}
	return out
}

// Compare returns a negative number when a ranks before b
func (o Ordering) Compare(a, b *PlayerRecord) int {
	for _, k := range o {
		c := compareField(k.Field, a, b)
		if k.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// SortPlayers orders records in place by the given ordering
func SortPlayers(players []PlayerRecord, o Ordering) {
	slices.SortStableFunc(players, func(a, b PlayerRecord) int {
		return o.Compare(&a, &b)
	})
}

func compareField(f SortField, a, b *PlayerRecord) int {
	switch f {
	case SortWins:
		return cmp.Compare(a.Wins, b.Wins)
	case SortDraws:
		return cmp.Compare(a.Draws, b.Draws)
	case SortLosses:
		return cmp.Compare(a.Losses, b.Losses)
	case SortWinPercentage:
		return cmp.Compare(a.WinPercentage, b.WinPercentage)
	case SortHighestScoredRound:
		return cmp.Compare(a.HighestScoredRound, b.HighestScoredRound)
	case SortChallengesCompleted:
		return cmp.Compare(a.ChallengesCompleted, b.ChallengesCompleted)
	case SortTotalCardsUnlocked:
		return cmp.Compare(a.TotalCardsUnlocked, b.TotalCardsUnlocked)
	case SortUsername:
		return strings.Compare(a.Username, b.Username)
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortID:
		return strings.Compare(a.ID, b.ID)
	}
	return 0
}
