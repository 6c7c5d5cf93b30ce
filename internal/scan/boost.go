package scan

import (
	"encoding/json"
	"fmt"
	"os"
)

// contextBoost nudges confidence up for entities that are usually picked up
// together in a build. Each detection is boosted at most once, toward 1
// rather than past it.
func (s *Session) contextBoost(dets []Detection) []Detection {
	if s.cfg.ContextBoost <= 0 || len(dets) < 2 {
		return dets
	}
	present := make(map[string]bool, len(dets))
	for _, d := range dets {
		present[d.Entity.ID] = true
	}
	for i := range dets {
		for _, partner := range s.cooccur[dets[i].Entity.ID] {
			if partner != dets[i].Entity.ID && present[partner] {
				dets[i].Confidence += (1 - dets[i].Confidence) * s.cfg.ContextBoost
				break
			}
		}
	}
	return dets
}

// LoadCooccurrence reads a co-occurrence table from a JSON file mapping
// entity id to the ids it commonly appears with.
func LoadCooccurrence(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading co-occurrence table: %w", err)
	}
	var table map[string][]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parsing co-occurrence table %s: %w", path, err)
	}
	return table, nil
}

// defaultCooccurrence covers the common build archetypes: every entity in a
// group vouches for every other member.
func defaultCooccurrence() map[string][]string {
	groups := [][]string{
		{"dragonfire", "firestaff", "flamewalker", "spicy_meatball"},
		{"hero_sword", "power_gloves", "big_bonk", "anvil"},
		{"speed_boi", "tactical_glasses", "joes_dagger"},
		{"lightning_orb", "energy_core", "overpowered_lamp"},
		{"bloody_cleaver", "soul_harvester"},
		{"ice_cube", "za_warudo"},
	}
	table := make(map[string][]string)
	for _, group := range groups {
		for _, id := range group {
			for _, partner := range group {
				if partner != id {
					table[id] = append(table[id], partner)
				}
			}
		}
	}
	return table
}
