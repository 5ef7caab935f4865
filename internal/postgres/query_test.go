package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/gwent-leaderboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRankQuery_AllTime(t *testing.T) {
	query, args, err := buildRankQuery(domain.PlayerQuery{
		Game:     domain.EditionGOT,
		Ordering: domain.WinPercentageOrdering.Total(),
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"got"}, args)
	assert.Contains(t, query, "FROM gwent_leaderboard WHERE game = $1 ORDER BY")
	assert.NotContains(t, query, "updated_at >=")
	assert.True(t, strings.HasSuffix(query,
		`ORDER BY wins DESC, win_percentage DESC, highest_scored_round DESC, username COLLATE "C" ASC, id COLLATE "C" ASC`),
		query)
}

func TestBuildRankQuery_WithCutoff(t *testing.T) {
	since := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	query, args, err := buildRankQuery(domain.PlayerQuery{
		Game:     domain.EditionLOTR,
		Since:    since,
		Ordering: domain.ChallengesOrdering,
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"lotr", since}, args)
	assert.Contains(t, query, "WHERE game = $1 AND updated_at >= $2 ORDER BY wins DESC, challenges_completed DESC")
}

func TestBuildRankQuery_RejectsUnknownField(t *testing.T) {
	_, _, err := buildRankQuery(domain.PlayerQuery{
		Game:     domain.EditionGOT,
		Ordering: domain.Ordering{{Field: "wins; DROP TABLE gwent_leaderboard"}},
	})
	assert.True(t, domain.IsValidationError(err))
}

func TestSortColumnsCoverEveryField(t *testing.T) {
	for _, f := range []domain.SortField{
		domain.SortWins, domain.SortDraws, domain.SortLosses, domain.SortWinPercentage,
		domain.SortHighestScoredRound, domain.SortChallengesCompleted, domain.SortTotalCardsUnlocked,
		domain.SortUsername, domain.SortUpdatedAt, domain.SortID,
	} {
		assert.Contains(t, sortColumns, f)
	}
}

func TestRecordArgsMatchInsertColumns(t *testing.T) {
	columns := strings.Split(insertColumns, ",")
	// updated_at is stamped by the database
	assert.Len(t, recordArgs(domain.PlayerRecord{}), len(columns)-1)
}
