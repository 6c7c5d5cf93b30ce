package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextBoostLiftsPartners(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	dets := []Detection{
		det("ice_cube", 0.6, 100, 400, 48, 48),
		det("za_warudo", 0.8, 164, 400, 48, 48),
	}

	boosted := s.contextBoost(dets)
	require.Len(t, boosted, 2)
	assert.InDelta(t, 0.6+(1-0.6)*0.05, boosted[0].Confidence, 1e-9)
	assert.InDelta(t, 0.8+(1-0.8)*0.05, boosted[1].Confidence, 1e-9)
}

func TestContextBoostAppliesOnce(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	// dragonfire has two partners present; it still gets a single nudge.
	dets := []Detection{
		det("dragonfire", 0.5, 0, 0, 48, 48),
		det("firestaff", 0.5, 64, 0, 48, 48),
		det("flamewalker", 0.5, 128, 0, 48, 48),
	}

	boosted := s.contextBoost(dets)
	for _, d := range boosted {
		assert.InDelta(t, 0.5+(1-0.5)*0.05, d.Confidence, 1e-9)
	}
}

func TestContextBoostIgnoresStrangers(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	dets := []Detection{
		det("dragonfire", 0.6, 0, 0, 48, 48),
		det("joes_dagger", 0.7, 64, 0, 48, 48),
	}

	boosted := s.contextBoost(dets)
	assert.InDelta(t, 0.6, boosted[0].Confidence, 1e-9)
	assert.InDelta(t, 0.7, boosted[1].Confidence, 1e-9)
}

func TestContextBoostDisabled(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)
	s.cfg.ContextBoost = 0

	dets := []Detection{
		det("ice_cube", 0.6, 0, 0, 48, 48),
		det("za_warudo", 0.8, 64, 0, 48, 48),
	}

	boosted := s.contextBoost(dets)
	assert.InDelta(t, 0.6, boosted[0].Confidence, 1e-9)
	assert.InDelta(t, 0.8, boosted[1].Confidence, 1e-9)
}

func TestContextBoostNeedsCompany(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	dets := []Detection{det("ice_cube", 0.6, 0, 0, 48, 48)}
	boosted := s.contextBoost(dets)
	assert.InDelta(t, 0.6, boosted[0].Confidence, 1e-9)
}

func TestSetCooccurrence(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	s.SetCooccurrence(map[string][]string{
		"alpha": {"beta"},
		"beta":  {"alpha"},
	})

	dets := []Detection{
		det("alpha", 0.5, 0, 0, 48, 48),
		det("beta", 0.5, 64, 0, 48, 48),
	}
	boosted := s.contextBoost(dets)
	assert.InDelta(t, 0.5+(1-0.5)*0.05, boosted[0].Confidence, 1e-9)

	// A nil table is ignored rather than wiping the current one.
	s.SetCooccurrence(nil)
	again := s.contextBoost([]Detection{
		det("alpha", 0.5, 0, 0, 48, 48),
		det("beta", 0.5, 64, 0, 48, 48),
	})
	assert.InDelta(t, 0.5+(1-0.5)*0.05, again[0].Confidence, 1e-9)
}

func TestLoadCooccurrence(t *testing.T) {
	t.Parallel()

	t.Run("valid table", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "cooccur.json")
		require.NoError(t, os.WriteFile(path,
			[]byte(`{"dragonfire":["firestaff"],"firestaff":["dragonfire"]}`), 0o644))

		table, err := LoadCooccurrence(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"firestaff"}, table["dragonfire"])
		assert.Equal(t, []string{"dragonfire"}, table["firestaff"])
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadCooccurrence(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading co-occurrence table")
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0o644))

		_, err := LoadCooccurrence(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing co-occurrence table")
	})
}

func TestDefaultCooccurrenceSymmetric(t *testing.T) {
	t.Parallel()

	table := defaultCooccurrence()
	require.NotEmpty(t, table)

	for id, partners := range table {
		require.NotEmpty(t, partners, "entity %s has no partners", id)
		for _, partner := range partners {
			assert.NotEqual(t, id, partner, "entity %s lists itself", id)
			assert.Containsf(t, table[partner], id,
				"%s lists %s but not vice versa", id, partner)
		}
	}
}
