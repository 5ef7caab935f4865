package domain

import (
	"strings"
	"time"
)

// PlayerRecord is one row of the leaderboard: a player's standing in a single edition
type PlayerRecord struct {
	ID                    string    `json:"id"`
	Game                  Edition   `json:"game"`
	Username              string    `json:"username"`
	Wins                  int64     `json:"wins"`
	Draws                 int64     `json:"draws"`
	Losses                int64     `json:"losses"`
	WinPercentage         float64   `json:"win_percentage"`
	HighestScoredRound    int64     `json:"highest_scored_round"`
	ChallengesCompleted   int64     `json:"challenges_completed"`
	TotalCardsUnlocked    int64     `json:"total_cards_unlocked"`
	NeutralCardsUnlocked  int64     `json:"neutral_cards_unlocked"`
	SpecialCardsUnlocked  int64     `json:"special_cards_unlocked"`
	Faction1CardsUnlocked int64     `json:"faction1_cards_unlocked"`
	Faction2CardsUnlocked int64     `json:"faction2_cards_unlocked"`
	Faction3CardsUnlocked int64     `json:"faction3_cards_unlocked"`
	Faction4CardsUnlocked int64     `json:"faction4_cards_unlocked"`
	Faction5CardsUnlocked int64     `json:"faction5_cards_unlocked"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Unlocked returns the unlock counter for a card category
func (p *PlayerRecord) Unlocked(c Category) int64 {
	switch c {
	case CategoryNeutral:
		return p.NeutralCardsUnlocked
	case CategorySpecial:
		return p.SpecialCardsUnlocked
	case CategoryFaction1:
		return p.Faction1CardsUnlocked
	case CategoryFaction2:
		return p.Faction2CardsUnlocked
	case CategoryFaction3:
		return p.Faction3CardsUnlocked
	case CategoryFaction4:
		return p.Faction4CardsUnlocked
	case CategoryFaction5:
		return p.Faction5CardsUnlocked
	}
	return 0
}

// PlayerInput is a full or partial player record submitted for a write.
// Nil numeric fields were omitted by the caller.
type PlayerInput struct {
	ID                    string   `json:"id,omitempty"`
	Game                  string   `json:"game"`
	Username              string   `json:"username"`
	Wins                  *int64   `json:"wins,omitempty"`
	Draws                 *int64   `json:"draws,omitempty"`
	Losses                *int64   `json:"losses,omitempty"`
	WinPercentage         *float64 `json:"win_percentage,omitempty"`
	HighestScoredRound    *int64   `json:"highest_scored_round,omitempty"`
	ChallengesCompleted   *int64   `json:"challenges_completed,omitempty"`
	TotalCardsUnlocked    *int64   `json:"total_cards_unlocked,omitempty"`
	NeutralCardsUnlocked  *int64   `json:"neutral_cards_unlocked,omitempty"`
	SpecialCardsUnlocked  *int64   `json:"special_cards_unlocked,omitempty"`
	Faction1CardsUnlocked *int64   `json:"faction1_cards_unlocked,omitempty"`
	Faction2CardsUnlocked *int64   `json:"faction2_cards_unlocked,omitempty"`
	Faction3CardsUnlocked *int64   `json:"faction3_cards_unlocked,omitempty"`
	Faction4CardsUnlocked *int64   `json:"faction4_cards_unlocked,omitempty"`
	Faction5CardsUnlocked *int64   `json:"faction5_cards_unlocked,omitempty"`
}

// Validate checks the fields every write requires
func (in *PlayerInput) Validate() error {
	if strings.TrimSpace(in.Game) == "" {
		return &ValidationError{Field: "game"}
	}
	if strings.TrimSpace(in.Username) == "" {
		return &ValidationError{Field: "username"}
	}
	if _, ok := ParseEdition(in.Game); !ok {
		return &ValidationError{Field: "game", Reason: "game \"" + in.Game + "\" is not a supported edition"}
	}
	if in.WinPercentage != nil && *in.WinPercentage < 0 {
		return negativeField("win_percentage")
	}
	for _, c := range []struct {
		field string
		value *int64
	}{
		{"wins", in.Wins},
		{"draws", in.Draws},
		{"losses", in.Losses},
		{"highest_scored_round", in.HighestScoredRound},
		{"challenges_completed", in.ChallengesCompleted},
		{"total_cards_unlocked", in.TotalCardsUnlocked},
		{CategoryNeutral.Field(), in.NeutralCardsUnlocked},
		{CategorySpecial.Field(), in.SpecialCardsUnlocked},
		{CategoryFaction1.Field(), in.Faction1CardsUnlocked},
		{CategoryFaction2.Field(), in.Faction2CardsUnlocked},
		{CategoryFaction3.Field(), in.Faction3CardsUnlocked},
		{CategoryFaction4.Field(), in.Faction4CardsUnlocked},
		{CategoryFaction5.Field(), in.Faction5CardsUnlocked},
	} {
		if c.value != nil && *c.value < 0 {
			return negativeField(c.field)
		}
	}
	return nil
}

func negativeField(field string) error {
	return &ValidationError{Field: field, Reason: field + " must not be negative"}
}

// ToRecord converts the input into a full record under the given id.
// Every omitted numeric field becomes zero; nothing is merged with a stored row.
func (in *PlayerInput) ToRecord(id string) PlayerRecord {
	game, _ := ParseEdition(in.Game)
	return PlayerRecord{
		ID:                    id,
		Game:                  game,
		Username:              in.Username,
		Wins:                  valueOrZero(in.Wins),
		Draws:                 valueOrZero(in.Draws),
		Losses:                valueOrZero(in.Losses),
		WinPercentage:         valueOrZero(in.WinPercentage),
		HighestScoredRound:    valueOrZero(in.HighestScoredRound),
		ChallengesCompleted:   valueOrZero(in.ChallengesCompleted),
		TotalCardsUnlocked:    valueOrZero(in.TotalCardsUnlocked),
		NeutralCardsUnlocked:  valueOrZero(in.NeutralCardsUnlocked),
		SpecialCardsUnlocked:  valueOrZero(in.SpecialCardsUnlocked),
		Faction1CardsUnlocked: valueOrZero(in.Faction1CardsUnlocked),
		Faction2CardsUnlocked: valueOrZero(in.Faction2CardsUnlocked),
		Faction3CardsUnlocked: valueOrZero(in.Faction3CardsUnlocked),
		Faction4CardsUnlocked: valueOrZero(in.Faction4CardsUnlocked),
		Faction5CardsUnlocked: valueOrZero(in.Faction5CardsUnlocked),
	}
}

func valueOrZero[T int64 | float64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}

// ChangeAction names the write that produced a ChangeEvent
type ChangeAction string

const (
	ChangeActionUpserted ChangeAction = "upserted"
	ChangeActionUpdated  ChangeAction = "updated"
	ChangeActionDeleted  ChangeAction = "deleted"
)

// ChangeEvent announces that an edition's rankings changed
type ChangeEvent struct {
	Edition  Edition      `json:"edition"`
	PlayerID string       `json:"player_id"`
	Action   ChangeAction `json:"action"`
	At       time.Time    `json:"at"`
}
