package catalog

import (
	"image/color"
	"strings"
)

// Rarity is an entity's catalog-declared rarity tier. The game draws each
// inventory icon with a border tinted by rarity, which the scanner uses as a
// cross-check on detections.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// rarityBorders maps each tier to the in-game slot border tint.
var rarityBorders = map[Rarity]color.RGBA{
	RarityCommon:    {R: 157, G: 157, B: 157, A: 255},
	RarityUncommon:  {R: 76, G: 175, B: 80, A: 255},
	RarityRare:      {R: 33, G: 150, B: 243, A: 255},
	RarityEpic:      {R: 156, G: 39, B: 176, A: 255},
	RarityLegendary: {R: 255, G: 152, B: 0, A: 255},
}

// ParseRarity normalizes a rarity string from catalog data. Unknown values
// fall back to common rather than failing the whole catalog load.
func ParseRarity(s string) Rarity {
	switch Rarity(strings.ToLower(strings.TrimSpace(s))) {
	case RarityUncommon:
		return RarityUncommon
	case RarityRare:
		return RarityRare
	case RarityEpic:
		return RarityEpic
	case RarityLegendary:
		return RarityLegendary
	default:
		return RarityCommon
	}
}

// Valid reports whether the rarity is one of the known tiers.
func (r Rarity) Valid() bool {
	_, ok := rarityBorders[r]
	return ok
}

// BorderColor returns the expected icon border tint for this rarity.
func (r Rarity) BorderColor() color.RGBA {
	if c, ok := rarityBorders[r]; ok {
		return c
	}
	return rarityBorders[RarityCommon]
}

// Rank orders rarities from common (0) to legendary (4).
func (r Rarity) Rank() int {
	switch r {
	case RarityUncommon:
		return 1
	case RarityRare:
		return 2
	case RarityEpic:
		return 3
	case RarityLegendary:
		return 4
	default:
		return 0
	}
}
