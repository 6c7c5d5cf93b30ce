package template

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sample is one labeled training crop: a small region of a real screenshot
// tied to a catalog entity. The pixels are embedded as base64 PNG so the
// corpus stays a single portable JSON file.
type Sample struct {
	ID        string     `json:"id"`
	EntityID  string     `json:"entity_id"`
	ImageData string     `json:"image"`
	Size      int        `json:"size"`
	Source    Provenance `json:"source"`
	Timestamp time.Time  `json:"timestamp"`
}

// Corpus holds the persisted training samples that extend the canonical
// templates. Adding samples is additive: existing variants and any match
// results computed from them stay valid.
type Corpus struct {
	mu       sync.RWMutex
	Samples  []Sample `json:"samples"`
	FilePath string   `json:"-"`

	nextID  int
	decoded map[string][]Variant
}

// NewCorpus creates an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		Samples: make([]Sample, 0),
		nextID:  1,
		decoded: make(map[string][]Variant),
	}
}

// LoadCorpus loads a corpus from a JSON file. A missing file yields an empty
// corpus bound to that path.
func LoadCorpus(path string) (*Corpus, error) {
	c := NewCorpus()
	c.FilePath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read training corpus: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse training corpus: %w", err)
	}

	for _, s := range c.Samples {
		var id int
		if _, err := fmt.Sscanf(s.ID, "tc-%d", &id); err == nil {
			if id >= c.nextID {
				c.nextID = id + 1
			}
		}
	}

	return c, nil
}

// Save persists the corpus to its file path.
func (c *Corpus) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.FilePath == "" {
		return fmt.Errorf("no file path set")
	}

	dir := filepath.Dir(c.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize training corpus: %w", err)
	}

	if err := os.WriteFile(c.FilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write training corpus: %w", err)
	}

	return nil
}

// SetFilePath sets the file path for persistence.
func (c *Corpus) SetFilePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FilePath = path
}

// AddSample encodes a crop and appends it as a new sample. The crop should be
// square; it is stored at its native size and resampled at match time.
func (c *Corpus) AddSample(entityID string, crop image.Image, source Provenance) (*Sample, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, fmt.Errorf("failed to encode sample: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sample := Sample{
		ID:        fmt.Sprintf("tc-%04d", c.nextID),
		EntityID:  entityID,
		ImageData: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Size:      crop.Bounds().Dx(),
		Source:    source,
		Timestamp: time.Now(),
	}
	c.nextID++
	c.Samples = append(c.Samples, sample)
	delete(c.decoded, entityID)

	return &sample, nil
}

// VariantsFor decodes and returns all variants for an entity. Decoded
// variants are cached; the cache entry is rebuilt after new samples arrive.
func (c *Corpus) VariantsFor(entityID string) []Variant {
	c.mu.RLock()
	if vs, ok := c.decoded[entityID]; ok {
		c.mu.RUnlock()
		return vs
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if vs, ok := c.decoded[entityID]; ok {
		return vs
	}

	var variants []Variant
	for _, s := range c.Samples {
		if s.EntityID != entityID {
			continue
		}
		img, err := s.decode()
		if err != nil {
			continue
		}
		size := s.Size
		if size <= 0 {
			size = img.Bounds().Dx()
		}
		variants = append(variants, makeVariant(img, size, s.Source))
	}
	c.decoded[entityID] = variants
	return variants
}

func (s *Sample) decode() (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(s.ImageData)
	if err != nil {
		return nil, fmt.Errorf("corrupt sample %s: %w", s.ID, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("corrupt sample %s: %w", s.ID, err)
	}
	return img, nil
}

// Promote raises every sample of an entity whose provenance weighs less than
// the target level. Returns the number of samples re-tagged. Used by the
// feedback loop when a user confirms or corrects a detection.
func (c *Corpus) Promote(entityID string, to Provenance) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for i := range c.Samples {
		if c.Samples[i].EntityID != entityID {
			continue
		}
		if c.Samples[i].Source.Weight() < to.Weight() {
			c.Samples[i].Source = to
			n++
		}
	}
	if n > 0 {
		delete(c.decoded, entityID)
	}
	return n
}

// Count returns the total number of samples.
func (c *Corpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Samples)
}

// CountFor returns the number of samples for one entity.
func (c *Corpus) CountFor(entityID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, s := range c.Samples {
		if s.EntityID == entityID {
			n++
		}
	}
	return n
}
