// Package metrics instruments pipeline runs: per-run records with phase
// timings, a bounded in-memory run history with aggregate statistics for the
// dashboard, and the uncertain-detection bookkeeping behind the active-
// learning feedback loop.
package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// RunRecord accumulates everything measured during one pipeline invocation.
// It is owned by the running goroutine until handed to FinishRun and must not
// be touched afterwards.
type RunRecord struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`

	CacheHit       bool    `json:"cache_hit"`
	GridAccepted   bool    `json:"grid_accepted"`
	GridConfidence float64 `json:"grid_confidence"`
	Method         string  `json:"method"`

	Phases map[string]time.Duration `json:"phases"`

	RawDetections      int `json:"raw_detections"`
	VerifiedDetections int `json:"verified_detections"`
	RarityAccepted     int `json:"rarity_accepted"`
	RarityRejected     int `json:"rarity_rejected"`
	FinalDetections    int `json:"final_detections"`
	UncertainCount     int `json:"uncertain_count"`
}

// Phase times one pipeline phase: call it at phase start and invoke the
// returned func at phase end.
func (r *RunRecord) Phase(name string) func() {
	start := time.Now()
	return func() {
		r.Phases[name] += time.Since(start)
	}
}

// Collector owns the process-wide run history. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	history    []RunRecord
	uncertain  []Uncertain
	maxHistory int
	prom       *Prometheus
}

const defaultMaxHistory = 200

// NewCollector creates a collector keeping at most maxHistory finished runs
// (0 selects the default). Prometheus export is optional; see SetPrometheus.
func NewCollector(maxHistory int) *Collector {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Collector{maxHistory: maxHistory}
}

// SetPrometheus attaches a Prometheus exporter that every finished run is
// mirrored into.
func (c *Collector) SetPrometheus(p *Prometheus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prom = p
}

// StartRun opens a record for a new pipeline invocation.
func (c *Collector) StartRun(width, height int) *RunRecord {
	return &RunRecord{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Width:     width,
		Height:    height,
		Phases:    make(map[string]time.Duration),
	}
}

// FinishRun finalizes a record, stores it in the bounded history, and stashes
// the run's uncertain detections for the learning API.
func (c *Collector) FinishRun(r *RunRecord, uncertain []Uncertain) {
	r.Duration = time.Since(r.StartedAt)
	r.UncertainCount = len(uncertain)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, *r)
	if len(c.history) > c.maxHistory {
		c.history = c.history[len(c.history)-c.maxHistory:]
	}
	c.uncertain = append([]Uncertain(nil), uncertain...)

	if c.prom != nil {
		c.prom.observeRun(r)
	}
}

// Runs returns up to limit finished runs, newest first.
func (c *Collector) Runs(limit int) []RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]RunRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// LastUncertain returns the uncertain detections of the most recent run.
func (c *Collector) LastUncertain() []Uncertain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Uncertain(nil), c.uncertain...)
}

// Summary aggregates the run history for the dashboard.
type Summary struct {
	Runs             int     `json:"runs"`
	MeanDurationMs   float64 `json:"mean_duration_ms"`
	MeanDetections   float64 `json:"mean_detections"`
	GridSuccessRate  float64 `json:"grid_success_rate"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	RarityPassRate   float64 `json:"rarity_pass_rate"`
	UncertainPerRun  float64 `json:"uncertain_per_run"`
	LastRunStartedAt string  `json:"last_run_started_at,omitempty"`
}

// Summarize computes aggregate statistics over the stored history.
func (c *Collector) Summarize() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.history)
	if n == 0 {
		return Summary{}
	}

	durations := make([]float64, n)
	finals := make([]float64, n)
	uncertains := make([]float64, n)
	gridOK, cacheHits := 0, 0
	rarityAccepted, rarityTotal := 0, 0
	for i, r := range c.history {
		durations[i] = float64(r.Duration.Milliseconds())
		finals[i] = float64(r.FinalDetections)
		uncertains[i] = float64(r.UncertainCount)
		if r.GridAccepted {
			gridOK++
		}
		if r.CacheHit {
			cacheHits++
		}
		rarityAccepted += r.RarityAccepted
		rarityTotal += r.RarityAccepted + r.RarityRejected
	}

	s := Summary{
		Runs:             n,
		MeanDurationMs:   stat.Mean(durations, nil),
		MeanDetections:   stat.Mean(finals, nil),
		GridSuccessRate:  float64(gridOK) / float64(n),
		CacheHitRate:     float64(cacheHits) / float64(n),
		UncertainPerRun:  stat.Mean(uncertains, nil),
		LastRunStartedAt: c.history[n-1].StartedAt.Format(time.RFC3339),
	}
	if rarityTotal > 0 {
		s.RarityPassRate = float64(rarityAccepted) / float64(rarityTotal)
	}
	return s
}
