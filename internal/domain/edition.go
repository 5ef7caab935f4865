package domain

import "strings"

// Edition identifies a ruleset/card-set variant of the game
type Edition string

const (
	EditionClassic Edition = "classic"
	EditionWitcher Edition = "witcher"
	EditionGOT     Edition = "got"
	EditionLOTR    Edition = "lotr"
)

// Editions lists every supported edition in display order
var Editions = []Edition{EditionWitcher, EditionClassic, EditionGOT, EditionLOTR}

// ParseEdition maps a caller-supplied key onto a supported edition
func ParseEdition(s string) (Edition, bool) {
	e := Edition(strings.ToLower(strings.TrimSpace(s)))
	return e, e.Known()
}

// Known reports whether e is one of the supported editions
func (e Edition) Known() bool {
	switch e {
	case EditionClassic, EditionWitcher, EditionGOT, EditionLOTR:
		return true
	}
	return false
}

// Category is one of the card-unlock buckets tracked per player
type Category string

const (
	CategoryNeutral  Category = "neutral"
	CategorySpecial  Category = "special"
	CategoryFaction1 Category = "faction1"
	CategoryFaction2 Category = "faction2"
	CategoryFaction3 Category = "faction3"
	CategoryFaction4 Category = "faction4"
	CategoryFaction5 Category = "faction5"
)

// Categories lists the card categories in column order
var Categories = []Category{
	CategoryNeutral,
	CategorySpecial,
	CategoryFaction1,
	CategoryFaction2,
	CategoryFaction3,
	CategoryFaction4,
	CategoryFaction5,
}

// Field returns the record field holding the category's unlock counter
func (c Category) Field() string {
	return string(c) + "_cards_unlocked"
}
