package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bonk-scanner/internal/match"
)

func TestSelectStrategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		width  int
		height int
		want   []Strategy
	}{
		{name: "full hd", width: 1920, height: 1080, want: []Strategy{StrategyBalanced, StrategyAggressive}},
		{name: "above full hd", width: 3840, height: 2160, want: []Strategy{StrategyBalanced, StrategyAggressive}},
		{name: "hd", width: 1280, height: 720, want: []Strategy{StrategyBalanced, StrategyConservative}},
		{name: "between tiers", width: 1600, height: 900, want: []Strategy{StrategyBalanced, StrategyConservative}},
		{name: "low res", width: 640, height: 480, want: []Strategy{StrategyLowRes, StrategyConservative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SelectStrategies(tt.width, tt.height))
		})
	}
}

func TestStrategyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "aggressive", StrategyAggressive.String())
	assert.Equal(t, "balanced", StrategyBalanced.String())
	assert.Equal(t, "conservative", StrategyConservative.String())
	assert.Equal(t, "lowres", StrategyLowRes.String())
	assert.Equal(t, "strategy(9)", Strategy(9).String())
}

func TestStrategyConfig(t *testing.T) {
	t.Parallel()

	aggr := StrategyAggressive.Config()
	assert.InDelta(t, 1.0, aggr.Weight, 1e-9)
	assert.InDelta(t, 0.35, aggr.Threshold, 1e-9)
	assert.False(t, aggr.SkipWeak)
	assert.Equal(t, match.AlgoNCC, aggr.Algorithm)

	bal := StrategyBalanced.Config()
	assert.InDelta(t, 1.0, bal.Weight, 1e-9)
	assert.InDelta(t, 0.45, bal.Threshold, 1e-9)
	assert.True(t, bal.SkipWeak)
	assert.Equal(t, match.AlgoNCC, bal.Algorithm)

	cons := StrategyConservative.Config()
	assert.InDelta(t, 0.9, cons.Weight, 1e-9)
	assert.InDelta(t, 0.55, cons.Threshold, 1e-9)
	assert.True(t, cons.SkipWeak)
	assert.Equal(t, match.AlgoSSIM, cons.Algorithm)

	low := StrategyLowRes.Config()
	assert.InDelta(t, 0.85, low.Weight, 1e-9)
	assert.InDelta(t, 0.40, low.Threshold, 1e-9)
	assert.False(t, low.SkipWeak)
	assert.Equal(t, match.AlgoNCC, low.Algorithm)

	// The aggressive floor must stay the loosest and the conservative the
	// strictest, or the tier ordering stops meaning anything.
	assert.Less(t, aggr.Threshold, bal.Threshold)
	assert.Less(t, bal.Threshold, cons.Threshold)
}
