// Package server wires the HTTP surface of the audit service: the gin
// router, the audit endpoints, and the telemetry endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seoblogy/seo-audit/audit"
	"github.com/seoblogy/seo-audit/config"
	"github.com/seoblogy/seo-audit/fetch"
	"github.com/seoblogy/seo-audit/metrics"
	"github.com/seoblogy/seo-audit/middleware"
	"github.com/seoblogy/seo-audit/report"
	"github.com/seoblogy/seo-audit/stats"
)

// Server is the HTTP front of the service.
type Server struct {
	cfg     *config.Config
	auditor *audit.Auditor
	storage *stats.Storage
	metrics *metrics.Metrics
	log     *slog.Logger

	engine *gin.Engine
	http   *http.Server
}

// New builds the router with its middleware chain and routes.
func New(cfg *config.Config, auditor *audit.Auditor, storage *stats.Storage, m *metrics.Metrics, log *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		auditor: auditor,
		storage: storage,
		metrics: m,
		log:     log,
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.Burst)

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(limiter.RateLimit())
	r.Use(middleware.CORS())
	r.Use(middleware.Visitors(storage))

	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/audit", s.handleAudit)
	r.GET("/audit-report", s.handleAuditText)
	r.GET("/statistics", s.handleStatistics)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	s.engine = r
	s.http = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.String(http.StatusOK, "seo-audit is running")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleAudit(c *gin.Context) {
	rep, status, errMsg := s.runAudit(c)
	if rep == nil {
		c.JSON(status, gin.H{"success": false, "error": errMsg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rep})
}

// handleAuditText serves the plain-text rendering; errors come back as
// plain text too, matching the endpoint's content type.
func (s *Server) handleAuditText(c *gin.Context) {
	rep, status, errMsg := s.runAudit(c)
	if rep == nil {
		c.String(status, "Error: %s", errMsg)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(rep.Text()))
}

// runAudit validates the url query parameter, runs the audit, and records
// telemetry. On failure the report is nil and the status and message
// describe the error.
func (s *Server) runAudit(c *gin.Context) (rep *report.Report, status int, errMsg string) {
	pageURL, err := validateURL(c.Query("url"))
	if err != nil {
		return nil, http.StatusBadRequest, err.Error()
	}

	start := time.Now()
	rep, err = s.auditor.Audit(c.Request.Context(), pageURL)
	elapsed := time.Since(start)

	outcome := outcomeFor(err)
	s.storage.RecordAudit(pageURL, elapsed, outcome)
	s.metrics.Audits.WithLabelValues(string(outcome)).Inc()
	s.metrics.FetchDuration.Observe(elapsed.Seconds())

	if err != nil {
		st, msg := statusFor(err)
		s.log.Warn("audit failed", "url", pageURL, "status", st, "error", err)
		return nil, st, msg
	}
	return rep, 0, ""
}

func statusFor(err error) (int, string) {
	var statusErr *fetch.StatusError
	var analysisErr *audit.AnalysisError
	switch {
	case errors.Is(err, fetch.ErrTimeout):
		return http.StatusGatewayTimeout, "fetching the page timed out"
	case errors.As(err, &analysisErr):
		return http.StatusInternalServerError, "analyzing the page failed"
	case errors.As(err, &statusErr):
		return http.StatusBadRequest, fmt.Sprintf("page responded with status %d", statusErr.StatusCode)
	default:
		return http.StatusBadRequest, "failed to fetch the page: " + err.Error()
	}
}

func outcomeFor(err error) stats.Outcome {
	switch {
	case err == nil:
		return stats.OutcomeOK
	case errors.Is(err, fetch.ErrTimeout):
		return stats.OutcomeTimeout
	default:
		return stats.OutcomeError
	}
}

func (s *Server) handleStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, s.storage.Snapshot())
}

// validateURL normalizes and checks the target URL: absolute, http or
// https, with a host.
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("url must use http or https")
	}
	if u.Host == "" {
		return "", errors.New("url must include a host")
	}
	return u.String(), nil
}
