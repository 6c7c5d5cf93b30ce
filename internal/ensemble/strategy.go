// Package ensemble is the alternate recognition entry point: instead of one
// matcher configuration, several weighted strategies score each cell and
// their results are merged. It shares the template store and matcher with
// the main pipeline but keeps no cache and no run lock.
package ensemble

import (
	"fmt"

	"bonk-scanner/internal/match"
)

// Strategy names one matcher configuration the combiner can run. The set is
// closed: every strategy carries its configuration record via Config.
type Strategy int

const (
	// StrategyAggressive trades precision for recall with a low floor.
	StrategyAggressive Strategy = iota
	// StrategyBalanced is the default first pass.
	StrategyBalanced
	// StrategyConservative accepts only strong structural matches.
	StrategyConservative
	// StrategyLowRes is tuned for sub-720p frames where icons pixelate.
	StrategyLowRes
)

func (s Strategy) String() string {
	switch s {
	case StrategyAggressive:
		return "aggressive"
	case StrategyBalanced:
		return "balanced"
	case StrategyConservative:
		return "conservative"
	case StrategyLowRes:
		return "lowres"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Config is the tuning record associated with one strategy.
type Config struct {
	Weight    float64         // scales the strategy's confidence in the merge
	Threshold float64         // per-strategy confidence floor
	SkipWeak  bool            // skip templates flagged as historically weak
	Algorithm match.Algorithm // similarity algorithm the strategy runs
}

// Config returns the strategy's tuning record.
func (s Strategy) Config() Config {
	switch s {
	case StrategyAggressive:
		return Config{Weight: 1.0, Threshold: 0.35, SkipWeak: false, Algorithm: match.AlgoNCC}
	case StrategyConservative:
		return Config{Weight: 0.9, Threshold: 0.55, SkipWeak: true, Algorithm: match.AlgoSSIM}
	case StrategyLowRes:
		return Config{Weight: 0.85, Threshold: 0.40, SkipWeak: false, Algorithm: match.AlgoNCC}
	default:
		return Config{Weight: 1.0, Threshold: 0.45, SkipWeak: true, Algorithm: match.AlgoNCC}
	}
}

// allStrategies lists every member of the closed set, in enum order.
var allStrategies = []Strategy{
	StrategyAggressive, StrategyBalanced, StrategyConservative, StrategyLowRes,
}

// SelectStrategies maps a frame's resolution tier to the ordered strategy
// list the combiner should run for it.
func SelectStrategies(width, height int) []Strategy {
	switch {
	case height >= 1080:
		return []Strategy{StrategyBalanced, StrategyAggressive}
	case height >= 720:
		return []Strategy{StrategyBalanced, StrategyConservative}
	default:
		return []Strategy{StrategyLowRes, StrategyConservative}
	}
}
