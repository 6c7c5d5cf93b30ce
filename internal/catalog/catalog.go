// Package catalog holds the static game catalog consumed by the scanner:
// items, weapons and tomes with their rarity tiers and icon references.
// Catalog data is read-only input; the scanner never mutates it.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Kind distinguishes the catalog categories the scanner can detect.
type Kind string

const (
	KindItem   Kind = "item"
	KindWeapon Kind = "weapon"
	KindTome   Kind = "tome"
)

// Entity is one catalogued game object. Immutable once loaded.
type Entity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   Kind   `json:"kind,omitempty"`
	Rarity Rarity `json:"rarity"`
	Tier   int    `json:"tier,omitempty"`
	Icon   string `json:"image,omitempty"` // asset path relative to the template directory
}

// Provider exposes the static entity list to the scanner. Implementations
// must be safe for concurrent reads.
type Provider interface {
	Entities() []Entity
	Get(id string) (Entity, bool)
}

// Catalog is the standard Provider, loaded from the data files the companion
// app ships (one JSON file per kind, each wrapping a list under its plural
// key, e.g. {"items": [...]}).
type Catalog struct {
	entities []Entity
	byID     map[string]int
	byNorm   map[string]int
}

// New builds a catalog from an entity list. Later duplicates of an ID win,
// mirroring how the data files are merged.
func New(entities []Entity) *Catalog {
	c := &Catalog{
		byID:   make(map[string]int),
		byNorm: make(map[string]int),
	}
	for _, e := range entities {
		c.add(e)
	}
	c.sort()
	return c
}

func (c *Catalog) add(e Entity) {
	if e.ID == "" {
		e.ID = IDFromName(e.Name)
	}
	if e.ID == "" {
		return
	}
	if !e.Rarity.Valid() {
		e.Rarity = ParseRarity(string(e.Rarity))
	}
	if i, ok := c.byID[e.ID]; ok {
		c.entities[i] = e
		return
	}
	c.byID[e.ID] = len(c.entities)
	c.entities = append(c.entities, e)
}

func (c *Catalog) sort() {
	sort.Slice(c.entities, func(i, j int) bool {
		return strings.ToLower(c.entities[i].Name) < strings.ToLower(c.entities[j].Name)
	})
	c.byID = make(map[string]int, len(c.entities))
	c.byNorm = make(map[string]int, len(c.entities))
	for i, e := range c.entities {
		c.byID[e.ID] = i
		c.byNorm[NormalizeName(e.Name)] = i
	}
}

// Entities returns all entities sorted by display name. The returned slice
// must not be modified.
func (c *Catalog) Entities() []Entity {
	return c.entities
}

// Get returns an entity by its stable ID.
func (c *Catalog) Get(id string) (Entity, bool) {
	if i, ok := c.byID[id]; ok {
		return c.entities[i], true
	}
	return Entity{}, false
}

// FindByName looks an entity up by display name, tolerating case, punctuation
// and spacing differences. Falls back through: exact ID → normalized name.
func (c *Catalog) FindByName(name string) (Entity, bool) {
	if e, ok := c.Get(strings.TrimSpace(name)); ok {
		return e, true
	}
	if i, ok := c.byNorm[NormalizeName(name)]; ok {
		return c.entities[i], true
	}
	return Entity{}, false
}

// Len returns the number of catalogued entities.
func (c *Catalog) Len() int {
	return len(c.entities)
}

// kindFiles maps each catalog kind to its data file and wrapper key.
var kindFiles = []struct {
	kind Kind
	file string
	key  string
}{
	{KindItem, "items.json", "items"},
	{KindWeapon, "weapons.json", "weapons"},
	{KindTome, "tomes.json", "tomes"},
}

// LoadDir loads all catalog data files found under dir. Missing files are
// skipped; a malformed file fails the load.
func LoadDir(dir string) (*Catalog, error) {
	var all []Entity
	for _, kf := range kindFiles {
		path := filepath.Join(dir, kf.file)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("cannot read catalog file %s: %w", path, err)
		}
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("cannot parse catalog file %s: %w", path, err)
		}
		raw, ok := wrapper[kf.key]
		if !ok {
			continue
		}
		var entities []Entity
		if err := json.Unmarshal(raw, &entities); err != nil {
			return nil, fmt.Errorf("cannot parse %s list in %s: %w", kf.key, path, err)
		}
		for i := range entities {
			entities[i].Kind = kf.kind
		}
		all = append(all, entities...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no catalog entities found under %s", dir)
	}
	return New(all), nil
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a display name and strips punctuation so that
// near-identical spellings compare equal.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = nonAlnumRe.ReplaceAllString(n, "")
	return spaceRe.ReplaceAllString(n, " ")
}

// IDFromName derives a stable snake_case ID from a display name, matching the
// convention the catalog data files use.
func IDFromName(name string) string {
	n := NormalizeName(name)
	return strings.ReplaceAll(n, " ", "_")
}
