// Package server exposes the scanning pipeline over HTTP: a scan endpoint
// for the companion app, metrics read APIs for the dashboard, and the
// active-learning feedback endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bonk-scanner/internal/metrics"
	"bonk-scanner/internal/scan"
	"bonk-scanner/internal/template"
)

// summaryTTL bounds how stale the dashboard summary may get; recomputing it
// on every poll would walk the whole run history each time.
const summaryTTL = 30 * time.Second

// Controller wires the scanning session into the HTTP API.
type Controller struct {
	echo    *echo.Echo
	session *scan.Session
	store   *template.Store
	corpus  *template.Corpus
	prom    *metrics.Prometheus
	log     *slog.Logger
	summary *gocache.Cache
}

// New builds the controller and registers all routes. The corpus and
// prometheus exporter may be nil; the corresponding endpoints degrade
// gracefully.
func New(session *scan.Session, store *template.Store, corpus *template.Corpus, prom *metrics.Prometheus, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		echo:    e,
		session: session,
		store:   store,
		corpus:  corpus,
		prom:    prom,
		log:     log,
		summary: gocache.New(summaryTTL, time.Minute),
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	api := c.echo.Group("/api/v1")
	api.POST("/scan", c.handleScan)
	api.GET("/metrics/summary", c.handleSummary)
	api.GET("/metrics/runs", c.handleRuns)
	api.GET("/learning/uncertain", c.handleUncertain)
	api.POST("/learning/corrections", c.handleCorrections)
	api.GET("/health", c.handleHealth)

	if c.prom != nil {
		c.echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(c.prom.Registry(), promhttp.HandlerOpts{})))
	}
}

// Echo exposes the underlying router, used by tests to drive requests
// without a listening socket.
func (c *Controller) Echo() *echo.Echo {
	return c.echo
}

// Start blocks serving HTTP on addr until Shutdown is called.
func (c *Controller) Start(addr string) error {
	c.log.Info("http server listening", "addr", addr)
	return c.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.echo.Shutdown(ctx)
}
