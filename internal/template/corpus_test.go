package template

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpusAddSample(t *testing.T) {
	t.Parallel()

	c := NewCorpus()
	crop := testIcon(color.RGBA{R: 200, G: 40, B: 40, A: 255})

	s1, err := c.AddSample("dragonfire", crop, ProvenanceGroundTruth)
	require.NoError(t, err)
	s2, err := c.AddSample("dragonfire", crop, ProvenanceUnreviewed)
	require.NoError(t, err)
	s3, err := c.AddSample("ice_cube", crop, ProvenanceUnreviewed)
	require.NoError(t, err)

	assert.Equal(t, "tc-0001", s1.ID)
	assert.Equal(t, "tc-0002", s2.ID)
	assert.Equal(t, "tc-0003", s3.ID)
	assert.Equal(t, 64, s1.Size)
	assert.False(t, s1.Timestamp.IsZero())

	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 2, c.CountFor("dragonfire"))
	assert.Equal(t, 1, c.CountFor("ice_cube"))
	assert.Equal(t, 0, c.CountFor("unknown"))
}

func TestCorpusVariantsFor(t *testing.T) {
	t.Parallel()

	c := NewCorpus()
	crop := testIcon(color.RGBA{R: 40, G: 200, B: 40, A: 255})

	_, err := c.AddSample("dragonfire", crop, ProvenanceVerified)
	require.NoError(t, err)

	vs := c.VariantsFor("dragonfire")
	require.Len(t, vs, 1)
	assert.Equal(t, 64, vs[0].Size, "samples keep their native size")
	assert.Equal(t, ProvenanceVerified, vs[0].Provenance)

	// The decoded cache is rebuilt when new samples land.
	_, err = c.AddSample("dragonfire", crop, ProvenanceUnreviewed)
	require.NoError(t, err)
	assert.Len(t, c.VariantsFor("dragonfire"), 2)

	assert.Empty(t, c.VariantsFor("unknown"))
}

func TestCorpusPromote(t *testing.T) {
	t.Parallel()

	c := NewCorpus()
	crop := testIcon(color.RGBA{R: 200, G: 40, B: 40, A: 255})
	for _, p := range []Provenance{ProvenanceUnreviewed, ProvenanceUnreviewed, ProvenanceGroundTruth} {
		_, err := c.AddSample("dragonfire", crop, p)
		require.NoError(t, err)
	}
	_, err := c.AddSample("ice_cube", crop, ProvenanceUnreviewed)
	require.NoError(t, err)

	// Only samples below the target level move; ground truth is never
	// demoted, and other entities are untouched.
	assert.Equal(t, 2, c.Promote("dragonfire", ProvenanceVerified))
	assert.Equal(t, 0, c.Promote("dragonfire", ProvenanceVerified), "promotion is idempotent")

	for _, s := range c.Samples[:3] {
		assert.NotEqual(t, ProvenanceUnreviewed, s.Source)
	}
	assert.Equal(t, ProvenanceGroundTruth, c.Samples[2].Source)
	assert.Equal(t, ProvenanceUnreviewed, c.Samples[3].Source)
}

func TestCorpusSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus", "training.json")
	c := NewCorpus()
	c.SetFilePath(path)

	crop := testIcon(color.RGBA{R: 200, G: 40, B: 40, A: 255})
	_, err := c.AddSample("dragonfire", crop, ProvenanceGroundTruth)
	require.NoError(t, err)
	_, err = c.AddSample("hero_sword", crop, ProvenanceUnreviewed)
	require.NoError(t, err)
	require.NoError(t, c.Save())

	loaded, err := LoadCorpus(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, "tc-0001", loaded.Samples[0].ID)
	assert.Equal(t, ProvenanceGroundTruth, loaded.Samples[0].Source)

	// ID allocation continues past the persisted samples.
	s, err := loaded.AddSample("ice_cube", crop, ProvenanceUnreviewed)
	require.NoError(t, err)
	assert.Equal(t, "tc-0003", s.ID)

	// Round-tripped samples still decode into usable variants.
	vs := loaded.VariantsFor("dragonfire")
	require.Len(t, vs, 1)
	assert.Equal(t, 64, vs[0].Size)
}

func TestLoadCorpusMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nope.json")
	c, err := LoadCorpus(path)
	require.NoError(t, err)
	assert.Zero(t, c.Count())
	assert.Equal(t, path, c.FilePath, "missing file still binds the path for later saves")
}

func TestLoadCorpusCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := LoadCorpus(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training corpus")
}

func TestCorpusSaveWithoutPath(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewCorpus().Save())
}
