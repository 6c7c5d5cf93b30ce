package template

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	// Icon assets ship as PNG with WebP twins; JPEG appears in user-supplied
	// training crops.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/pkg/colorutil"
)

// Store holds all loaded templates, indexed by entity and by dominant-color
// bucket. A priority subset is decoded synchronously before the first scan;
// the rest decode lazily on first use (or in bulk via LoadAll). Reads are
// concurrent-safe; loading takes the write lock.
type Store struct {
	mu        sync.RWMutex
	provider  catalog.Provider
	dir       string
	templates map[string]*Template
	pending   map[string]struct{}
	byBucket  map[colorutil.Bucket][]string
	weak      map[string]bool
	corpus    *Corpus
}

// NewStore creates a store over the given catalog with icon assets rooted at
// dir. Nothing is decoded yet.
func NewStore(provider catalog.Provider, dir string) *Store {
	s := &Store{
		provider:  provider,
		dir:       dir,
		templates: make(map[string]*Template),
		pending:   make(map[string]struct{}),
		byBucket:  make(map[colorutil.Bucket][]string),
		weak:      make(map[string]bool),
	}
	for _, e := range provider.Entities() {
		s.pending[e.ID] = struct{}{}
	}
	return s
}

// SetCorpus attaches a training corpus whose crops extend the canonical
// variants. Attaching is additive; previously computed match results stay
// valid.
func (s *Store) SetCorpus(c *Corpus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = c
}

// LoadPriority synchronously decodes the named entities. Entities without an
// icon file are skipped; a present-but-undecodable icon is reported, since it
// means the asset bundle is broken.
func (s *Store) LoadPriority(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, ok := s.templates[id]; ok {
			loaded++
			continue
		}
		t, err := s.loadLocked(id)
		if err != nil {
			return loaded, fmt.Errorf("load priority template %s: %w", id, err)
		}
		if t != nil {
			loaded++
		}
	}
	return loaded, nil
}

// LoadAll decodes every remaining pending template. Missing or undecodable
// icons are counted as failed and will not be retried.
func (s *Store) LoadAll() (loaded, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t, err := s.loadLocked(id)
		if err != nil || t == nil {
			failed++
			continue
		}
		loaded++
	}
	return loaded, failed
}

// Get returns the template for an entity, decoding it lazily on first use.
// Returns nil when the entity has no usable icon.
func (s *Store) Get(entityID string) *Template {
	s.mu.RLock()
	t, ok := s.templates[entityID]
	_, isPending := s.pending[entityID]
	s.mu.RUnlock()
	if ok {
		return t
	}
	if !isPending {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.templates[entityID]; ok {
		return t
	}
	t, _ = s.loadLocked(entityID)
	return t
}

// loadLocked decodes one entity's icon and indexes the result. The caller
// must hold the write lock. A missing icon removes the entity from pending
// and returns (nil, nil); a corrupt icon also removes it but reports why.
func (s *Store) loadLocked(entityID string) (*Template, error) {
	delete(s.pending, entityID)

	e, ok := s.provider.Get(entityID)
	if !ok {
		return nil, nil
	}
	path := s.iconPath(e)
	if path == "" {
		return nil, nil
	}
	img, err := loadIcon(path)
	if err != nil {
		return nil, err
	}
	t := newTemplate(entityID, img, ProvenanceDefault)
	s.templates[entityID] = t
	s.byBucket[t.Bucket] = append(s.byBucket[t.Bucket], entityID)
	return t, nil
}

// iconPath resolves an entity's icon file, preferring the catalog-declared
// asset path, then the conventional images/<kind>s/<id>.{png,webp} layout.
func (s *Store) iconPath(e catalog.Entity) string {
	if e.Icon != "" {
		p := filepath.Join(s.dir, e.Icon)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, ext := range []string{".png", ".webp"} {
		p := filepath.Join(s.dir, "images", string(e.Kind)+"s", e.ID+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadIcon(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open icon: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode icon %s: %w", path, err)
	}
	return img, nil
}

// CandidatesByColor returns the catalog entities whose templates fall in the
// given color bucket or one of its neighbors. A cold store (nothing decoded
// yet) narrows nothing and returns the full catalog.
func (s *Store) CandidatesByColor(bucket colorutil.Bucket) []catalog.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.templates) == 0 {
		return s.provider.Entities()
	}

	seen := make(map[string]bool)
	var ids []string
	for _, b := range bucket.Neighbors() {
		for _, id := range s.byBucket[b] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	entities := make([]catalog.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.provider.Get(id); ok {
			entities = append(entities, e)
		}
	}
	return entities
}

// TrainingVariants returns corpus-derived variants for an entity, or nil when
// no corpus is attached.
func (s *Store) TrainingVariants(entityID string) []Variant {
	s.mu.RLock()
	corpus := s.corpus
	s.mu.RUnlock()
	if corpus == nil {
		return nil
	}
	return corpus.VariantsFor(entityID)
}

// MarkWeak flags an entity's templates as historically poor performers.
// Strategies tuned for precision skip weak templates entirely.
func (s *Store) MarkWeak(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weak[entityID] = true
}

// IsWeak reports whether an entity's templates are flagged as weak.
func (s *Store) IsWeak(entityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weak[entityID]
}

// Loaded returns the number of decoded templates.
func (s *Store) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Pending returns the number of entities not yet decoded.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}
