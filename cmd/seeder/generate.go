package main

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/edition"
)

// generator produces player writes with stats bounded by edition metadata
type generator struct {
	faker     *gofakeit.Faker
	registry  *edition.Registry
	editions  []domain.Edition
	clientIDs bool
	pool      []domain.PlayerInput
}

func newGenerator(seed int64, only string) (*generator, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	registry := edition.Default()
	editions := registry.Editions()
	if only != "" {
		e, ok := domain.ParseEdition(only)
		if !ok {
			return nil, fmt.Errorf("edition %q: %w", only, domain.ErrUnknownEdition)
		}
		editions = []domain.Edition{e}
	}

	return &generator{
		faker:    gofakeit.New(uint64(seed)),
		registry: registry,
		editions: editions,
	}, nil
}

// NewPlayer creates a player. Unless client ids are on, the id is left
// empty for the server to assign and the player only becomes eligible for
// updates once Track records that id.
func (g *generator) NewPlayer() domain.PlayerInput {
	e := g.editions[g.faker.Number(0, len(g.editions)-1)]
	in := domain.PlayerInput{
		Game:     string(e),
		Username: g.faker.Username(),
	}
	if g.clientIDs {
		in.ID = g.faker.UUID()
	}
	g.fillStats(&in, e)
	if in.ID != "" {
		g.pool = append(g.pool, in)
	}
	return in
}

// Track records the id the server assigned to a created player
func (g *generator) Track(in domain.PlayerInput, id string) {
	if in.ID != "" || id == "" {
		return
	}
	in.ID = id
	g.pool = append(g.pool, in)
}

// UpdatePlayer rerolls the stats of a player created earlier. The first
// twenty players are picked most of the time so the top of the board moves.
// With no known ids it creates a player instead.
func (g *generator) UpdatePlayer() domain.PlayerInput {
	if len(g.pool) == 0 {
		return g.NewPlayer()
	}

	idx := g.faker.Number(0, len(g.pool)-1)
	if top := min(20, len(g.pool)); g.faker.Number(1, 100) <= 70 {
		idx = g.faker.Number(0, top-1)
	}

	in := g.pool[idx]
	e, _ := domain.ParseEdition(in.Game)
	g.fillStats(&in, e)
	g.pool[idx] = in
	return in
}

func (g *generator) fillStats(in *domain.PlayerInput, e domain.Edition) {
	wins := int64(g.faker.Number(0, 500))
	draws := int64(g.faker.Number(0, 50))
	losses := int64(g.faker.Number(0, 500))

	var pct float64
	if played := wins + draws + losses; played > 0 {
		pct = math.Round(float64(wins)/float64(played)*10000) / 100
	}

	in.Wins = &wins
	in.Draws = &draws
	in.Losses = &losses
	in.WinPercentage = &pct
	in.HighestScoredRound = ptr(int64(g.faker.Number(0, 320)))
	in.ChallengesCompleted = ptr(int64(g.faker.Number(0, g.registry.Challenges(e))))

	meta, _ := g.registry.Lookup(e)
	var total int64
	unlocked := make(map[domain.Category]*int64, len(domain.Categories))
	for _, c := range domain.Categories {
		n := int64(0)
		if f, ok := meta.Factions[c]; ok && f.Total > 0 {
			n = int64(g.faker.Number(0, f.Total))
		}
		total += n
		unlocked[c] = ptr(n)
	}

	in.TotalCardsUnlocked = &total
	in.NeutralCardsUnlocked = unlocked[domain.CategoryNeutral]
	in.SpecialCardsUnlocked = unlocked[domain.CategorySpecial]
	in.Faction1CardsUnlocked = unlocked[domain.CategoryFaction1]
	in.Faction2CardsUnlocked = unlocked[domain.CategoryFaction2]
	in.Faction3CardsUnlocked = unlocked[domain.CategoryFaction3]
	in.Faction4CardsUnlocked = unlocked[domain.CategoryFaction4]
	in.Faction5CardsUnlocked = unlocked[domain.CategoryFaction5]
}

func ptr[T any](v T) *T {
	return &v
}
