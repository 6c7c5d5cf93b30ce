package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/conf"
	"bonk-scanner/internal/metrics"
	"bonk-scanner/internal/scan"
	"bonk-scanner/internal/template"
	"bonk-scanner/internal/version"
)

type fixture struct {
	ctrl    *Controller
	session *scan.Session
	store   *template.Store
	corpus  *template.Corpus
	dir     string
}

func newTestController(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	writeIcon(t, dir, "images/items/dragonfire.png", solidIcon(color.RGBA{R: 230, G: 60, B: 60, A: 255}))
	writeIcon(t, dir, "images/items/ice_cube.png", solidIcon(color.RGBA{R: 100, G: 180, B: 240, A: 255}))
	writeIcon(t, dir, "images/weapons/hero_sword.png", solidIcon(color.RGBA{R: 200, G: 200, B: 80, A: 255}))

	cat := catalog.New([]catalog.Entity{
		{ID: "dragonfire", Name: "Dragonfire", Kind: catalog.KindItem, Rarity: catalog.RarityRare, Icon: "images/items/dragonfire.png"},
		{ID: "ice_cube", Name: "Ice Cube", Kind: catalog.KindItem, Rarity: catalog.RarityCommon, Icon: "images/items/ice_cube.png"},
		{ID: "hero_sword", Name: "Hero Sword", Kind: catalog.KindWeapon, Rarity: catalog.RarityEpic, Icon: "images/weapons/hero_sword.png"},
	})
	store := template.NewStore(cat, dir)
	loaded, failed := store.LoadAll()
	require.Equal(t, 3, loaded)
	require.Zero(t, failed)

	corpus, err := template.LoadCorpus(filepath.Join(dir, "training", "templates.json"))
	require.NoError(t, err)
	store.SetCorpus(corpus)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := scan.New(store, cat, conf.Defaults().Scan, log)
	return &fixture{
		ctrl:    New(sess, store, corpus, nil, log),
		session: sess,
		store:   store,
		corpus:  corpus,
		dir:     dir,
	}
}

func solidIcon(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writeIcon(t *testing.T, dir, rel string, img image.Image) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// doJSON drives one request through the router without a listening socket.
func doJSON(ctrl *Controller, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ctrl.Echo().ServeHTTP(rec, req)
	return rec
}

// blankFrame is a featureless 640x480 screenshot: decodes fine, matches
// nothing.
func blankFrame(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	bg := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealthReportsStoreState(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	rec := doJSON(fx.ctrl, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Loaded  int    `json:"templates_loaded"`
		Pending int    `json:"templates_pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, version.Version, body.Version)
	assert.Equal(t, 3, body.Loaded)
	assert.Zero(t, body.Pending)
}

func TestScanEndpoint(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	payload, err := json.Marshal(scanRequest{Image: blankFrame(t)})
	require.NoError(t, err)

	rec := doJSON(fx.ctrl, http.MethodPost, "/api/v1/scan", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Detections)

	runs := fx.session.Collector().Runs(1)
	require.Len(t, runs, 1)
	assert.Equal(t, 640, runs[0].Width)
	assert.Equal(t, 480, runs[0].Height)
}

func TestScanEndpointRejectsBadRequests(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	cases := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"missing image", `{}`, http.StatusBadRequest, "missing image data"},
		{"truncated json", `{"image": 12`, http.StatusBadRequest, "invalid request body"},
		{"wrong field type", `{"image": 123}`, http.StatusBadRequest, "invalid request body"},
		{"undecodable image", `{"image": "@@@ not an image @@@"}`, http.StatusUnprocessableEntity, "decoding screenshot"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(fx.ctrl, http.MethodPost, "/api/v1/scan", tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantMsg)
		})
	}
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	rec := doJSON(fx.ctrl, http.MethodGet, "/api/v1/metrics/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var empty struct {
		Runs  []metrics.RunRecord `json:"runs"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Runs)

	coll := fx.session.Collector()
	for i := 0; i < 3; i++ {
		coll.FinishRun(coll.StartRun(640+i, 480), nil)
	}

	rec = doJSON(fx.ctrl, http.MethodGet, "/api/v1/metrics/runs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Runs  []metrics.RunRecord `json:"runs"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Runs, 2)
	assert.Equal(t, 642, page.Runs[0].Width, "newest run first")
	assert.Equal(t, 641, page.Runs[1].Width)
}

func TestRunsEndpointRejectsBadLimit(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	for _, limit := range []string{"abc", "0", "-3", "1.5"} {
		t.Run(limit, func(t *testing.T) {
			rec := doJSON(fx.ctrl, http.MethodGet, "/api/v1/metrics/runs?limit="+limit, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "limit must be a positive integer")
		})
	}
}

func TestSummaryEndpointCaches(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	first := doJSON(fx.ctrl, http.MethodGet, "/api/v1/metrics/summary", "")
	require.Equal(t, http.StatusOK, first.Code)

	var sum metrics.Summary
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &sum))
	assert.Zero(t, sum.Runs)

	// A run finishing between polls must not show up until the TTL expires.
	coll := fx.session.Collector()
	coll.FinishRun(coll.StartRun(640, 480), nil)

	second := doJSON(fx.ctrl, http.MethodGet, "/api/v1/metrics/summary", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestUncertainEndpoint(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	rec := doJSON(fx.ctrl, http.MethodGet, "/api/v1/learning/uncertain", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var idle struct {
		Uncertain    []metrics.Uncertain `json:"uncertain"`
		ShouldPrompt bool                `json:"should_prompt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idle))
	assert.Empty(t, idle.Uncertain)
	assert.False(t, idle.ShouldPrompt)

	coll := fx.session.Collector()
	r := coll.StartRun(640, 480)
	r.FinalDetections = 4
	coll.FinishRun(r, []metrics.Uncertain{
		{EntityID: "ice_cube", Name: "Ice Cube", Confidence: 0.55},
		{EntityID: "dragonfire", Name: "Dragonfire", Confidence: 0.61},
	})

	rec = doJSON(fx.ctrl, http.MethodGet, "/api/v1/learning/uncertain", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var busy struct {
		Uncertain    []metrics.Uncertain `json:"uncertain"`
		ShouldPrompt bool                `json:"should_prompt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &busy))
	require.Len(t, busy.Uncertain, 2)
	assert.Equal(t, "ice_cube", busy.Uncertain[0].EntityID)
	assert.True(t, busy.ShouldPrompt, "two uncertain out of four detections should prompt")
}

func TestCorrectionsPromoteConfirmed(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	crop := solidIcon(color.RGBA{R: 230, G: 60, B: 60, A: 255})
	for i := 0; i < 2; i++ {
		_, err := fx.corpus.AddSample("dragonfire", crop, template.ProvenanceUnreviewed)
		require.NoError(t, err)
	}

	rec := doJSON(fx.ctrl, http.MethodPost, "/api/v1/learning/corrections",
		`[{"entity_id": "dragonfire", "confirmed": true}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Applied int `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Applied)

	// The promotion must survive a reload from disk.
	reloaded, err := template.LoadCorpus(filepath.Join(fx.dir, "training", "templates.json"))
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.CountFor("dragonfire"))
	for _, s := range reloaded.Samples {
		assert.Equal(t, template.ProvenanceVerified, s.Source)
	}

	// Re-confirming retags nothing.
	rec = doJSON(fx.ctrl, http.MethodPost, "/api/v1/learning/corrections",
		`[{"entity_id": "dragonfire", "confirmed": true}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Applied)
}

func TestCorrectionsMarkMisdetections(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	_, err := fx.corpus.AddSample("ice_cube", solidIcon(color.RGBA{R: 100, G: 180, B: 240, A: 255}), template.ProvenanceUnreviewed)
	require.NoError(t, err)

	rec := doJSON(fx.ctrl, http.MethodPost, "/api/v1/learning/corrections",
		`[{"entity_id": "hero_sword", "confirmed": false, "actual_id": "ice_cube"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Applied int `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Applied, "the actual entity's sample moves to corrected")

	assert.True(t, fx.store.IsWeak("hero_sword"))
	assert.False(t, fx.store.IsWeak("ice_cube"))
}

func TestCorrectionsValidation(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	cases := []struct {
		name        string
		body        string
		wantCode    int
		wantApplied int
	}{
		{"not an array", `{"entity_id": "dragonfire"}`, http.StatusBadRequest, 0},
		{"empty ids skipped", `[{"confirmed": true}, {"entity_id": "", "confirmed": false}]`, http.StatusOK, 0},
		{"unknown entity", `[{"entity_id": "phantom", "confirmed": true}]`, http.StatusOK, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(fx.ctrl, http.MethodPost, "/api/v1/learning/corrections", tc.body)
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode != http.StatusOK {
				return
			}
			var resp struct {
				Applied int `json:"applied"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantApplied, resp.Applied)
		})
	}
}

func TestCorrectionsWithoutCorpus(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)
	ctrl := New(fx.session, fx.store, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := doJSON(ctrl, http.MethodPost, "/api/v1/learning/corrections",
		`[{"entity_id": "dragonfire", "confirmed": true}, {"entity_id": "ice_cube", "confirmed": false}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Applied int `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Applied)
	assert.True(t, fx.store.IsWeak("ice_cube"), "weak-marking works even without a corpus")
}

func TestMetricsEndpointExposition(t *testing.T) {
	t.Parallel()
	fx := newTestController(t)

	// Without an exporter the route is not registered at all.
	rec := doJSON(fx.ctrl, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	prom, err := metrics.NewPrometheus()
	require.NoError(t, err)
	coll := fx.session.Collector()
	coll.SetPrometheus(prom)
	r := coll.StartRun(640, 480)
	r.Method = "template_match"
	r.FinalDetections = 2
	coll.FinishRun(r, nil)

	ctrl := New(fx.session, fx.store, fx.corpus, prom, nil)
	rec = doJSON(ctrl, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scanner_runs_total")
	assert.Contains(t, rec.Body.String(), "scanner_detections_total")
	assert.Contains(t, rec.Body.String(), "scanner_run_duration_seconds")
}
