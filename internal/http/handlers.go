package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nudgify/internal/ingest"
	applog "nudgify/internal/log"
	"nudgify/internal/middleware/trace"
	"nudgify/internal/services"
	"nudgify/internal/sheets"
)

// handleHealth performs basic liveness check
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports readiness and the state of optional dependencies.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	stats := s.reports.Stats()
	sheetsState := "not_configured"
	if s.analyzer.SheetsEnabled() {
		sheetsState = "ok"
	}

	NewJSONResponse().JSON(map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"checks": map[string]any{
			"categories": len(s.analyzer.Categorizer().Table()),
			"sheets":     sheetsState,
			"cache": map[string]any{
				"entries": stats.Size,
				"hits":    stats.Hits,
				"misses":  stats.Misses,
			},
			"rate_limiter": map[string]any{
				"active_clients": s.rateLimiter.ActiveClients(),
			},
		},
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	cacheStats := s.reports.Stats()

	w.WriteHeader(http.StatusOK)

	// Write metrics in Prometheus-like format
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_ms", "gauge", "Average response time in milliseconds", traceMetrics.AverageResponseTime.Milliseconds())
	metric("report_cache_hits_total", "counter", "Total report cache hits", cacheStats.Hits)
	metric("report_cache_misses_total", "counter", "Total report cache misses", cacheStats.Misses)
	metric("report_cache_entries", "gauge", "Current report cache entries", cacheStats.Size)
	metric("rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Total requests blocked", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

type categoriesResponse struct {
	Categories []string          `json:"categories"`
	Merchants  map[string]string `json:"merchants"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	c := s.analyzer.Categorizer()
	NewJSONResponse().
		Header("Cache-Control", "public, max-age=300").
		JSON(categoriesResponse{Categories: c.Categories(), Merchants: c.Table()}).
		Write(w)
}

func (s *Server) handleAnalyzeCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	data, formBudget, err := readCSVUpload(r, s.opts.MaxUploadBytes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.fail(w, r, badRequestf("missing CSV data"))
		return
	}

	raw := r.URL.Query().Get("budget")
	if strings.TrimSpace(raw) == "" {
		raw = formBudget
	}
	budget, err := services.ParseBudget(raw, s.opts.DefaultBudget)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := reportKey(services.ModeCSV, s.analyzer.Today(), budget, data)
	s.serveReport(w, r, key, func(ctx context.Context) (services.Report, error) {
		return s.analyzer.AnalyzeCSV(ctx, bytes.NewReader(data), budget)
	})
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	p, budget, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	text := p.Get("text")
	lines, err := p.Strings("lines")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := reportKey(services.ModeText, s.analyzer.Today(), budget, []byte(text), []byte(strings.Join(lines, "\n")))
	s.serveReport(w, r, key, func(ctx context.Context) (services.Report, error) {
		if len(lines) > 0 {
			return s.analyzer.AnalyzeLines(ctx, lines, budget)
		}
		return s.analyzer.AnalyzeText(ctx, text, budget)
	})
}

func (s *Server) handleAnalyzeRows(w http.ResponseWriter, r *http.Request) {
	p, budget, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	rows, err := p.Rows("rows")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// map keys marshal in sorted order, so equal rows give equal keys
	canonical, err := json.Marshal(rows)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := reportKey(services.ModeRows, s.analyzer.Today(), budget, canonical)
	s.serveReport(w, r, key, func(ctx context.Context) (services.Report, error) {
		return s.analyzer.AnalyzeRows(ctx, rows, budget)
	})
}

// handleAnalyzeSheet is never cached: the sheet may change between calls.
func (s *Server) handleAnalyzeSheet(w http.ResponseWriter, r *http.Request) {
	if !s.analyzer.SheetsEnabled() {
		s.fail(w, r, sheets.ErrNotConfigured)
		return
	}
	p, budget, ok := s.parseBody(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()
	report, err := s.analyzer.AnalyzeSheet(ctx, p.Get("spreadsheet_id"), p.Get("range"), budget)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeReport(w, report, false)
}

// parseBody reads a JSON or form body and its budget field. It writes the
// error response itself and returns false on failure.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, decimal.Decimal, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, err)
		return nil, decimal.Zero, false
	}

	raw := p.Get("budget")
	if raw == "" {
		raw = r.URL.Query().Get("budget")
	}
	budget, err := services.ParseBudget(raw, s.opts.DefaultBudget)
	if err != nil {
		s.fail(w, r, err)
		return nil, decimal.Zero, false
	}
	return p, budget, true
}

// serveReport answers from the report cache, running load once for all
// concurrent requests with the same key. The load outlives a cancelled
// caller so waiting requests still get the report.
func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) (services.Report, error)) {
	report, hit, err := s.reports.GetOrLoad(key, func() (services.Report, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), analyzeTimeout)
		defer cancel()
		return load(ctx)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Report served",
		applog.FieldReportID, report.ID,
		applog.FieldCacheHit, hit)
	s.writeReport(w, report, hit)
}

func (s *Server) writeReport(w http.ResponseWriter, report services.Report, hit bool) {
	cacheState := "MISS"
	if hit {
		cacheState = "HIT"
	}
	NewJSONResponse().
		Header("X-Cache", cacheState).
		Header("X-Report-ID", report.ID).
		JSON(report).
		Write(w)
}

// fail maps err to a status code and writes a JSON error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooLarge *http.MaxBytesError
		csvErr   *csv.ParseError
		resp     *JSONResponseBuilder
	)
	switch {
	case ingest.IsMissingColumn(err):
		resp = UnprocessableEntityError(err.Error())
	case errors.Is(err, services.ErrNegativeBudget), errors.Is(err, services.ErrInvalidBudget):
		resp = BadRequestError(err.Error())
	case errors.Is(err, errBadRequest):
		resp = BadRequestError(strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "))
	case errors.As(err, &csvErr):
		resp = BadRequestError(err.Error())
	case errors.As(err, &tooLarge):
		resp = ErrorResponse(http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, sheets.ErrMissingSpreadsheet), errors.Is(err, sheets.ErrInvalidRange):
		resp = BadRequestError(err.Error())
	case errors.Is(err, sheets.ErrNotConfigured):
		resp = ServiceUnavailableError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		resp = ErrorResponse(http.StatusGatewayTimeout, "analysis timed out")
	case errors.Is(err, services.ErrSheetRead):
		resp = ErrorResponse(http.StatusBadGateway, err.Error())
	default:
		resp = InternalServerError("internal error")
	}

	logger := applog.FromContext(r.Context())
	if resp.StatusCode() >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	}
	s.respond(w, r, resp)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, resp *JSONResponseBuilder) {
	resp.RequestID(trace.GetRequestID(r.Context())).Write(w)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	s.respond(w, r, TooManyRequestsError("rate limit exceeded, please try again later"))
}
