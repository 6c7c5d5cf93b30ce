package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/conf"
	"bonk-scanner/internal/grid"
	"bonk-scanner/internal/match"
	"bonk-scanner/internal/metrics"
	"bonk-scanner/internal/ocr"
	"bonk-scanner/internal/screenshot"
	"bonk-scanner/internal/template"
	"bonk-scanner/pkg/geometry"
)

// Session owns everything one scanning pipeline needs: the template store,
// matcher, result cache, metrics collector, and the run lock. Constructing a
// second Session gives a fully independent pipeline with no shared state.
type Session struct {
	store     *template.Store
	provider  catalog.Provider
	cfg       conf.ScanSettings
	log       *slog.Logger
	matcher   *match.Matcher
	collector *metrics.Collector
	counter   ocr.Counter
	cooccur   map[string][]string

	// results maps frame hash to the finished detection list. Entries are
	// written once and never expire within the session.
	results *gocache.Cache

	// mu is the process-wide run lock. Scan refuses concurrent entry
	// instead of queuing, so TryLock is the only acquisition used.
	mu sync.Mutex
}

// New builds a session around a template store and catalog provider. The
// logger may be nil, in which case slog.Default is used.
func New(store *template.Store, provider catalog.Provider, cfg conf.ScanSettings, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	algo, err := match.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		log.Warn("unknown match algorithm, using ncc", "algorithm", cfg.Algorithm)
		algo = match.AlgoNCC
	}
	return &Session{
		store:    store,
		provider: provider,
		cfg:      cfg,
		log:      log,
		matcher: match.New(store, match.Config{
			Algorithm:     algo,
			VarianceFloor: cfg.VarianceFloor,
		}),
		collector: metrics.NewCollector(0),
		cooccur:   defaultCooccurrence(),
		results:   gocache.New(gocache.NoExpiration, 0),
	}
}

// SetCounter attaches the OCR engine used for stack-count badges. Without
// one the count-detection phase is skipped.
func (s *Session) SetCounter(c ocr.Counter) {
	s.counter = c
}

// SetCooccurrence replaces the built-in co-occurrence table.
func (s *Session) SetCooccurrence(table map[string][]string) {
	if table != nil {
		s.cooccur = table
	}
}

// Collector exposes the session's run metrics for the dashboard API.
func (s *Session) Collector() *metrics.Collector {
	return s.collector
}

// Matcher exposes the session's configured matcher, shared with the
// ensemble path.
func (s *Session) Matcher() *match.Matcher {
	return s.matcher
}

// Scan runs the full pipeline over one screenshot and returns detections
// sorted by descending confidence. Only one run may be in flight per
// session: a concurrent call logs a warning and returns an empty list
// immediately without waiting. A decode failure is the only fatal error;
// the run lock is released on every exit path.
func (s *Session) Scan(ctx context.Context, req Request) ([]Detection, error) {
	if !s.mu.TryLock() {
		s.log.Warn("scan already in flight, returning empty result")
		return []Detection{}, nil
	}
	defer s.mu.Unlock()

	report := func(pct int, phase string) {
		if req.Progress != nil {
			req.Progress(pct, phase)
		}
	}

	report(0, "decoding screenshot")
	frame, err := screenshot.Decode(req.ImageData)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}

	run := s.collector.StartRun(frame.Width, frame.Height)

	report(5, "checking cache")
	key := frame.Hash()
	if hit, ok := s.results.Get(key); ok {
		dets := hit.([]Detection)
		run.CacheHit = true
		run.Method = "cache"
		run.FinalDetections = len(dets)
		s.collector.FinishRun(run, nil)
		s.log.Debug("cache hit", "hash", key[:12], "detections", len(dets))
		report(100, "complete")
		return append([]Detection(nil), dets...), nil
	}

	report(15, "loading templates")
	stop := run.Phase("templates")
	loaded, failed := s.store.LoadAll()
	stop()
	if failed > 0 {
		s.log.Warn("some templates failed to load", "loaded", loaded, "failed", failed)
	}

	threshold := s.threshold(frame.Height)
	band := s.hotbarBand(frame)

	report(40, "detecting item grid")
	stop = run.Phase("grid")
	params, gridErr := grid.Detect(frame, band, grid.Config{
		MinCell: s.cfg.MinCell,
		MaxCell: s.cfg.MaxCell,
	})
	stop()

	var detections []Detection
	stop = run.Phase("matching")
	if gridErr == nil && params.Accepted(s.cfg.GridFloor, s.cfg.MinColumns) {
		run.GridAccepted = true
		run.GridConfidence = params.Confidence
		run.Method = string(MethodTemplateMatch)
		report(60, "matching grid cells")
		detections = s.matchGrid(ctx, frame, params, threshold, req.Parallel)
	} else {
		if gridErr != nil {
			s.log.Debug("grid detection failed, falling back", "reason", gridErr)
		} else {
			s.log.Debug("grid rejected, falling back",
				"confidence", params.Confidence, "columns", params.Columns)
		}
		run.Method = string(MethodSlidingWindow)
		report(60, "scanning hotbar band")
		detections = s.slidingWindow(ctx, frame, band, threshold, req.Parallel)
	}
	stop()

	report(70, "scanning equipment region")
	stop = run.Phase("equipment")
	detections = append(detections, s.equipmentScan(ctx, frame, threshold, req.Parallel)...)
	stop()
	run.RawDetections = len(detections)

	report(80, "removing duplicates")
	detections = Suppress(detections, s.cfg.NMSOverlap)

	stop = run.Phase("verify")
	before := len(detections)
	detections = s.verifyLattice(detections)
	stop()
	run.VerifiedDetections = len(detections)
	if dropped := before - len(detections); dropped > 0 {
		s.log.Debug("lattice verification dropped detections",
			"before", before, "after", len(detections))
	}

	report(90, "validating detections")
	detections = s.contextBoost(detections)

	stop = run.Phase("rarity")
	detections, accepted, rejected := s.validateRarity(frame, detections)
	stop()
	run.RarityAccepted, run.RarityRejected = accepted, rejected

	report(95, "reading stack counts")
	if s.counter != nil {
		stop = run.Phase("count")
		s.detectCounts(ctx, frame, detections)
		stop()
	}

	sort.SliceStable(detections, func(a, b int) bool {
		return detections[a].Confidence > detections[b].Confidence
	})

	s.results.Set(key, append([]Detection(nil), detections...), gocache.NoExpiration)
	run.FinalDetections = len(detections)

	uncertain := findUncertain(detections, metrics.Band{
		Low:  s.cfg.UncertainLow,
		High: s.cfg.UncertainHigh,
	})
	s.collector.FinishRun(run, uncertain)
	if metrics.ShouldPromptForLearning(len(uncertain), len(detections)) {
		s.log.Info("run produced enough uncertain detections to prompt for review",
			"uncertain", len(uncertain), "total", len(detections))
	}

	report(100, "complete")
	return detections, nil
}

// threshold picks the match-confidence floor for the frame's resolution.
// Higher resolutions render icons with more detail, so a stricter floor
// holds without losing recall.
func (s *Session) threshold(height int) float64 {
	switch {
	case height >= 1080:
		return s.cfg.Threshold1080
	case height >= 720:
		return s.cfg.Threshold720
	default:
		return s.cfg.ThresholdLow
	}
}

// hotbarBand is the bottom slice of the frame where the item hotbar renders.
func (s *Session) hotbarBand(f *screenshot.Frame) geometry.ROI {
	h := int(float64(f.Height) * s.cfg.BandFraction)
	if h < 1 {
		h = f.Height
	}
	return geometry.ROI{X: 0, Y: f.Height - h, Width: f.Width, Height: h, Label: "hotbar"}
}

// equipmentRegion is the top-left block holding the equipped weapon and
// accessory slots.
func (s *Session) equipmentRegion(f *screenshot.Frame) geometry.ROI {
	w := int(float64(f.Width) * s.cfg.EquipWidth)
	h := int(float64(f.Height) * s.cfg.EquipHeight)
	return geometry.ROI{X: 0, Y: 0, Width: w, Height: h, Label: "equipment"}
}
