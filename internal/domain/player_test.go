package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		in        PlayerInput
		wantField string
	}{
		{name: "valid", in: PlayerInput{Game: "got", Username: "Alice"}},
		{name: "edition is case insensitive", in: PlayerInput{Game: " LOTR ", Username: "Alice"}},
		{name: "missing game", in: PlayerInput{Username: "Alice"}, wantField: "game"},
		{name: "blank username", in: PlayerInput{Game: "got", Username: "   "}, wantField: "username"},
		{name: "game checked before username", in: PlayerInput{}, wantField: "game"},
		{name: "unknown edition", in: PlayerInput{Game: "hearthstone", Username: "Alice"}, wantField: "game"},
		{name: "zero counters", in: PlayerInput{Game: "got", Username: "Alice", Wins: int64Ptr(0), WinPercentage: float64Ptr(0)}},
		{name: "negative wins", in: PlayerInput{Game: "got", Username: "Alice", Wins: int64Ptr(-1)}, wantField: "wins"},
		{name: "negative win percentage", in: PlayerInput{Game: "got", Username: "Alice", WinPercentage: float64Ptr(-0.5)}, wantField: "win_percentage"},
		{name: "negative faction count", in: PlayerInput{Game: "lotr", Username: "Alice", Faction3CardsUnlocked: int64Ptr(-4)}, wantField: "faction3_cards_unlocked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "username is required", (&ValidationError{Field: "username"}).Error())
	assert.Equal(t, "bad", (&ValidationError{Field: "x", Reason: "bad"}).Error())
}

func TestPlayerInput_ToRecordZeroesOmittedNumbers(t *testing.T) {
	wins := int64(5)
	pct := 62.5
	in := PlayerInput{Game: "GOT", Username: "Alice", Wins: &wins, WinPercentage: &pct}

	p := in.ToRecord("id-1")

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, EditionGOT, p.Game)
	assert.Equal(t, int64(5), p.Wins)
	assert.Equal(t, 62.5, p.WinPercentage)
	assert.Zero(t, p.Draws)
	assert.Zero(t, p.Losses)
	assert.Zero(t, p.HighestScoredRound)
	assert.Zero(t, p.ChallengesCompleted)
	assert.Zero(t, p.TotalCardsUnlocked)
	for _, c := range Categories {
		assert.Zero(t, p.Unlocked(c), c)
	}
}

func TestStoreUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := StoreUnavailable("querying players", cause)

	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFoundError(err))
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{ID: "abc"})
	assert.Equal(t, `player "abc" not found`, err.Error())
	assert.True(t, IsNotFoundError(err))
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }
