package edition

import "github.com/gwent-leaderboard/internal/domain"

func witcherFactions() map[domain.Category]Faction {
	return map[domain.Category]Faction{
		domain.CategoryNeutral:  {Name: "Neutral", Total: 26},
		domain.CategorySpecial:  {Name: "Special", Total: 18},
		domain.CategoryFaction1: {Name: "Northern Realms", Total: 123},
		domain.CategoryFaction2: {Name: "Nilfgaard", Total: 85},
		domain.CategoryFaction3: {Name: "Scoia'tael", Total: 82},
		domain.CategoryFaction4: {Name: "Monsters", Total: 110},
		domain.CategoryFaction5: {Name: "Skellige", Total: 85},
	}
}

// defaultMetadata is the built-in card data. Classic and Witcher share the
// same card pool; Lord of the Rings only has three factions.
func defaultMetadata() []Metadata {
	return []Metadata{
		{
			Edition:     domain.EditionClassic,
			DisplayName: "Classic",
			Challenges:  defaultChallenges,
			Factions:    witcherFactions(),
		},
		{
			Edition:     domain.EditionWitcher,
			DisplayName: "Witcher",
			Challenges:  defaultChallenges,
			Factions:    witcherFactions(),
		},
		{
			Edition:     domain.EditionGOT,
			DisplayName: "Game of Thrones",
			Challenges:  defaultChallenges,
			Factions: map[domain.Category]Faction{
				domain.CategoryNeutral:  {Name: "Neutral", Total: 46},
				domain.CategorySpecial:  {Name: "Special", Total: 18},
				domain.CategoryFaction1: {Name: "House Targaryen", Total: 90},
				domain.CategoryFaction2: {Name: "Black Loyalists", Total: 118},
				domain.CategoryFaction3: {Name: "Green Loyalists", Total: 96},
				domain.CategoryFaction4: {Name: "Beyond the Wall", Total: 81},
				domain.CategoryFaction5: {Name: "Sons of Essos", Total: 82},
			},
		},
		{
			Edition:     domain.EditionLOTR,
			DisplayName: "Lord of the Rings",
			Challenges:  defaultChallenges,
			Factions: map[domain.Category]Faction{
				domain.CategoryNeutral:  {Name: "Neutral", Total: 19},
				domain.CategorySpecial:  {Name: "Special", Total: 16},
				domain.CategoryFaction1: {Name: "Kingdoms of Men", Total: 104},
				domain.CategoryFaction2: {Name: "Dwarves & Elves", Total: 100},
				domain.CategoryFaction3: {Name: "Servants of Evil", Total: 103},
			},
		},
	}
}
