package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoblogy/seo-audit/audit"
	"github.com/seoblogy/seo-audit/config"
	"github.com/seoblogy/seo-audit/metrics"
	"github.com/seoblogy/seo-audit/semantic"
	"github.com/seoblogy/seo-audit/stats"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Server.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sem := semantic.NewEngine(semantic.Options{
		Stopwords:  cfg.Audit.Stopwords,
		TagWeights: cfg.Semantic.TagWeights,
	})
	auditor := audit.New(cfg, sem, logger)

	storage, err := stats.NewStorage(cfg.Server.DataDir)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return New(cfg, auditor, storage, metrics.New(), logger)
}

func newPageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func getAudit(t *testing.T, s *Server, endpoint, pageURL string) *httptest.ResponseRecorder {
	t.Helper()
	return doGet(t, s, endpoint+"?url="+url.QueryEscape(pageURL))
}

const testPage = `<html><head><title>Coffee Brewing Basics</title></head>
<body><h1>Coffee Brewing</h1><p>Brewing good coffee starts with fresh beans
and the right water temperature for the coffee style.</p></body></html>`

func TestIndexLiveness(t *testing.T) {
	s := newTestServer(t, nil)

	w := doGet(t, s, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := doGet(t, s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestAuditSuccess(t *testing.T) {
	page := newPageServer(t, testPage)
	s := newTestServer(t, nil)

	w := getAudit(t, s, "/audit", page.URL)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "Coffee Brewing Basics", envelope.Data["Title"])
	assert.Equal(t, float64(200), envelope.Data["Status"])

	// Field order survives the HTTP round trip.
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `"URL"`), strings.Index(body, `"Title"`))
	assert.Less(t, strings.Index(body, `"Title"`), strings.Index(body, `"Word Count"`))
}

func TestAuditTextReport(t *testing.T) {
	page := newPageServer(t, testPage)
	s := newTestServer(t, nil)

	w := getAudit(t, s, "/audit-report", page.URL)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.True(t, strings.HasPrefix(w.Body.String(), "SEO Audit Report"))
	assert.Contains(t, w.Body.String(), "Title: Coffee Brewing Basics")
}

func TestAuditTextReportErrorsArePlainText(t *testing.T) {
	s := newTestServer(t, nil)

	w := getAudit(t, s, "/audit-report", "ftp://example.com/file")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Error:"))
	assert.NotContains(t, w.Body.String(), `"success"`)
}

func TestAuditRejectsInvalidURLs(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		url  string
	}{
		{"missing", ""},
		{"no scheme", "example.com/page"},
		{"bad scheme", "ftp://example.com/file"},
		{"no host", "https:///path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getAudit(t, s, "/audit", tt.url)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestAuditUpstreamErrorIs400(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer page.Close()

	s := newTestServer(t, nil)
	w := getAudit(t, s, "/audit", page.URL)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "404")
}

func TestAuditTimeoutIs504(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer page.Close()

	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Fetch.Timeout = config.DurationFrom(100 * time.Millisecond)
	})
	w := getAudit(t, s, "/audit", page.URL)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "timed out")
}

func TestStatisticsReflectAudits(t *testing.T) {
	page := newPageServer(t, testPage)
	s := newTestServer(t, nil)

	getAudit(t, s, "/audit", page.URL)

	w := doGet(t, s, "/statistics")
	require.Equal(t, http.StatusOK, w.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, float64(1), snap["audits"])
	assert.Equal(t, float64(0), snap["errors"])
}

func TestMetricsEndpoint(t *testing.T) {
	page := newPageServer(t, testPage)
	s := newTestServer(t, nil)

	getAudit(t, s, "/audit", page.URL)

	w := doGet(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `seo_audit_audits_total{outcome="ok"} 1`)
}

func TestRateLimitExceeded(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 0.01
		cfg.Server.Burst = 1
	})

	first := doGet(t, s, "/health")
	assert.Equal(t, http.StatusOK, first.Code)

	second := doGet(t, s, "/health")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/audit", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
