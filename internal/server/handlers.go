package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"

	"bonk-scanner/internal/metrics"
	"bonk-scanner/internal/scan"
	"bonk-scanner/internal/template"
	"bonk-scanner/internal/version"
)

type scanRequest struct {
	Image    string `json:"image"`
	Parallel bool   `json:"parallel"`
}

type scanResponse struct {
	Detections []scan.Detection `json:"detections"`
	Count      int              `json:"count"`
}

func (c *Controller) handleScan(ctx echo.Context) error {
	var req scanRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Image == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing image data")
	}

	dets, err := c.session.Scan(ctx.Request().Context(), scan.Request{
		ImageData: req.Image,
		Parallel:  req.Parallel,
	})
	if err != nil {
		c.log.Error("scan failed", "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return ctx.JSON(http.StatusOK, scanResponse{Detections: dets, Count: len(dets)})
}

func (c *Controller) handleSummary(ctx echo.Context) error {
	if cached, ok := c.summary.Get("summary"); ok {
		return ctx.JSON(http.StatusOK, cached)
	}
	sum := c.session.Collector().Summarize()
	c.summary.Set("summary", sum, gocache.DefaultExpiration)
	return ctx.JSON(http.StatusOK, sum)
}

func (c *Controller) handleRuns(ctx echo.Context) error {
	limit := 20
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	runs := c.session.Collector().Runs(limit)
	return ctx.JSON(http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

func (c *Controller) handleUncertain(ctx echo.Context) error {
	uncertain := c.session.Collector().LastUncertain()

	total := 0
	if last := c.session.Collector().Runs(1); len(last) > 0 {
		total = last[0].FinalDetections
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"uncertain":     uncertain,
		"should_prompt": metrics.ShouldPromptForLearning(len(uncertain), total),
	})
}

// handleCorrections applies user verdicts from the review prompt: confirmed
// detections promote their training samples to verified, misdetections mark
// the wrongly matched template weak and promote the actual entity's samples
// to corrected.
func (c *Controller) handleCorrections(ctx echo.Context) error {
	var corrections []metrics.Correction
	if err := ctx.Bind(&corrections); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	applied := 0
	for _, cor := range corrections {
		if cor.EntityID == "" {
			continue
		}
		switch {
		case cor.Confirmed:
			if c.corpus != nil {
				applied += c.corpus.Promote(cor.EntityID, template.ProvenanceVerified)
			}
		default:
			c.store.MarkWeak(cor.EntityID)
			if c.corpus != nil && cor.ActualID != "" {
				applied += c.corpus.Promote(cor.ActualID, template.ProvenanceCorrected)
			}
		}
	}
	if c.corpus != nil && applied > 0 {
		if err := c.corpus.Save(); err != nil {
			c.log.Error("saving training corpus", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "corrections applied but not persisted")
		}
	}
	c.log.Info("corrections applied", "received", len(corrections), "samples_retagged", applied)
	return ctx.JSON(http.StatusOK, map[string]any{"applied": applied})
}

func (c *Controller) handleHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           version.Version,
		"templates_loaded":  c.store.Loaded(),
		"templates_pending": c.store.Pending(),
	})
}
