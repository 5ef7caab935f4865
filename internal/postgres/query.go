package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gwent-leaderboard/internal/domain"
)

const insertColumns = `id, game, username, wins, draws, losses, win_percentage,
	highest_scored_round, challenges_completed, total_cards_unlocked,
	neutral_cards_unlocked, special_cards_unlocked,
	faction1_cards_unlocked, faction2_cards_unlocked, faction3_cards_unlocked,
	faction4_cards_unlocked, faction5_cards_unlocked, updated_at`

const selectColumns = insertColumns

// sortColumns whitelists the columns an ordering may reference. Text keys
// use the C collation so ties break byte-wise, independent of the server
// locale.
var sortColumns = map[domain.SortField]string{
	domain.SortWins:                "wins",
	domain.SortDraws:               "draws",
	domain.SortLosses:              "losses",
	domain.SortWinPercentage:       "win_percentage",
	domain.SortHighestScoredRound:  "highest_scored_round",
	domain.SortChallengesCompleted: "challenges_completed",
	domain.SortTotalCardsUnlocked:  "total_cards_unlocked",
	domain.SortUsername:            `username COLLATE "C"`,
	domain.SortUpdatedAt:           "updated_at",
	domain.SortID:                  `id COLLATE "C"`,
}

type rowScanner interface {
	Scan(dest ...any) error
}

// buildRankQuery renders the filtered, ordered SELECT for a player query
func buildRankQuery(q domain.PlayerQuery) (string, []any, error) {
	var sb strings.Builder
	args := []any{string(q.Game)}

	sb.WriteString("SELECT ")
	sb.WriteString(selectColumns)
	sb.WriteString(" FROM gwent_leaderboard WHERE game = $1")

	if q.HasCutoff() {
		args = append(args, q.Since)
		sb.WriteString(" AND updated_at >= $" + strconv.Itoa(len(args)))
	}

	if len(q.Ordering) > 0 {
		terms := make([]string, 0, len(q.Ordering))
		for _, k := range q.Ordering {
			col, ok := sortColumns[k.Field]
			if !ok {
				return "", nil, fmt.Errorf("building rank query: %w", &domain.ValidationError{Field: "sort", Reason: "cannot sort by \"" + string(k.Field) + "\""})
			}
			dir := "ASC"
			if k.Descending {
				dir = "DESC"
			}
			terms = append(terms, col+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	return sb.String(), args, nil
}

func scanPlayer(row rowScanner) (domain.PlayerRecord, error) {
	var p domain.PlayerRecord
	err := row.Scan(
		&p.ID,
		&p.Game,
		&p.Username,
		&p.Wins,
		&p.Draws,
		&p.Losses,
		&p.WinPercentage,
		&p.HighestScoredRound,
		&p.ChallengesCompleted,
		&p.TotalCardsUnlocked,
		&p.NeutralCardsUnlocked,
		&p.SpecialCardsUnlocked,
		&p.Faction1CardsUnlocked,
		&p.Faction2CardsUnlocked,
		&p.Faction3CardsUnlocked,
		&p.Faction4CardsUnlocked,
		&p.Faction5CardsUnlocked,
		&p.UpdatedAt,
	)
	return p, err
}

// recordArgs lists the write parameters in insertColumns order, without updated_at
func recordArgs(p domain.PlayerRecord) []any {
	return []any{
		p.ID,
		string(p.Game),
		p.Username,
		p.Wins,
		p.Draws,
		p.Losses,
		p.WinPercentage,
		p.HighestScoredRound,
		p.ChallengesCompleted,
		p.TotalCardsUnlocked,
		p.NeutralCardsUnlocked,
		p.SpecialCardsUnlocked,
		p.Faction1CardsUnlocked,
		p.Faction2CardsUnlocked,
		p.Faction3CardsUnlocked,
		p.Faction4CardsUnlocked,
		p.Faction5CardsUnlocked,
	}
}
