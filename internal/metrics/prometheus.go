package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports run statistics on a private registry so the scanner's
// metrics never collide with anything else registered in the process.
type Prometheus struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	detectionsTotal *prometheus.CounterVec
	rarityChecks    *prometheus.CounterVec
	runDuration     prometheus.Histogram
	phaseDuration   *prometheus.HistogramVec
}

// NewPrometheus creates the exporter and registers all collectors.
func NewPrometheus() (*Prometheus, error) {
	p := &Prometheus{registry: prometheus.NewRegistry()}
	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("registering scanner metrics: %w", err)
	}
	return p, nil
}

func (p *Prometheus) initMetrics() error {
	p.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_runs_total",
		Help: "Pipeline runs by detection method and cache outcome.",
	}, []string{"method", "cache_hit"})

	p.detectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_detections_total",
		Help: "Final detections by detection method.",
	}, []string{"method"})

	p.rarityChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_rarity_checks_total",
		Help: "Rarity border validations by outcome.",
	}, []string{"outcome"})

	p.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_run_duration_seconds",
		Help:    "End-to-end pipeline run duration.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	p.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scanner_phase_duration_seconds",
		Help:    "Pipeline phase duration.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"phase"})

	collectors := []prometheus.Collector{
		p.runsTotal, p.detectionsTotal, p.rarityChecks,
		p.runDuration, p.phaseDuration,
	}
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the private registry for the /metrics handler.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) observeRun(r *RunRecord) {
	p.runsTotal.WithLabelValues(r.Method, strconv.FormatBool(r.CacheHit)).Inc()
	p.detectionsTotal.WithLabelValues(r.Method).Add(float64(r.FinalDetections))
	p.rarityChecks.WithLabelValues("accepted").Add(float64(r.RarityAccepted))
	p.rarityChecks.WithLabelValues("rejected").Add(float64(r.RarityRejected))
	p.runDuration.Observe(r.Duration.Seconds())
	for phase, d := range r.Phases {
		p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	}
}
