package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nudgify/internal/categorize"
	applog "nudgify/internal/log"
	"nudgify/internal/nudge"
	"nudgify/internal/services"
	"nudgify/internal/sheets/memory"
)

const sampleCSV = "Merchant,Amount,Date\n" +
	"Swiggy,250,2025-07-15\n" +
	"Zomato,300,2025-07-14\n" +
	"Uber,120,2025-07-13\n"

func newTestServer(t *testing.T, opts Options, analyzerOpts ...services.Option) *Server {
	t.Helper()
	analyzerOpts = append([]services.Option{services.WithClock(func() time.Time {
		return time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)
	})}, analyzerOpts...)
	analyzer := services.NewAnalyzer(categorize.Default(), nudge.Default(nudge.DefaultThresholds()), analyzerOpts...)

	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{
			Level:     slog.LevelError,
			Component: applog.ComponentHTTP,
			Handler:   slog.NewTextHandler(io.Discard, nil),
		})
	}
	if opts.DefaultBudget.IsZero() {
		opts.DefaultBudget = decimal.NewFromInt(15000)
	}
	srv := NewServer(analyzer, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) services.Report {
	t.Helper()
	var r services.Report
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode report: %v (body %q)", err, w.Body.String())
	}
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (body %q)", err, w.Body.String())
	}
	return body
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("GET /health = %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	w = do(srv, http.MethodGet, "/ready", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"sheets":"not_configured"`) {
		t.Errorf("GET /ready = %d %s", w.Code, w.Body.String())
	}
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	srv := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-ID", "client-abc")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := decodeError(t, w).RequestID; got != "client-abc" {
		t.Errorf("request_id = %q, want client-abc", got)
	}
}

func TestServer_Categories(t *testing.T) {
	srv := newTestServer(t, Options{})
	w := do(srv, http.MethodGet, "/api/categories", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body categoriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Categories) == 0 || body.Merchants["Swiggy"] != "Food" {
		t.Errorf("unexpected categories %+v", body)
	}
}

func TestServer_AnalyzeCSV(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(srv, http.MethodPost, "/api/analyze/csv?budget=1340", "text/csv", strings.NewReader(sampleCSV))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", w.Header().Get("X-Cache"))
	}
	first := decodeReport(t, w)
	if first.Mode != services.ModeCSV || len(first.Transactions) != 3 {
		t.Fatalf("unexpected report %+v", first)
	}
	if !first.Summary.Total.Equal(decimal.NewFromInt(670)) || first.Summary.BudgetUsed != 50 {
		t.Errorf("total = %s, used = %v", first.Summary.Total, first.Summary.BudgetUsed)
	}

	w = do(srv, http.MethodPost, "/api/analyze/csv?budget=1340", "text/csv", strings.NewReader(sampleCSV))
	if w.Header().Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", w.Header().Get("X-Cache"))
	}
	if second := decodeReport(t, w); second.ID != first.ID {
		t.Errorf("cached report id = %q, want %q", second.ID, first.ID)
	}

	// a different budget is a different report
	w = do(srv, http.MethodPost, "/api/analyze/csv?budget=2000", "text/csv", strings.NewReader(sampleCSV))
	if w.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q for new budget, want MISS", w.Header().Get("X-Cache"))
	}
}

func TestServer_AnalyzeCSVMultipart(t *testing.T) {
	srv := newTestServer(t, Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "statement.csv")
	fw.Write([]byte(sampleCSV))
	mw.WriteField("budget", "670")
	mw.Close()

	w := do(srv, http.MethodPost, "/api/analyze/csv", mw.FormDataContentType(), &buf)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if r := decodeReport(t, w); r.Summary.BudgetUsed != 100 {
		t.Errorf("budget used = %v, want 100", r.Summary.BudgetUsed)
	}
}

func TestServer_AnalyzeText(t *testing.T) {
	srv := newTestServer(t, Options{})

	t.Run("json text", func(t *testing.T) {
		body := `{"text": "Rs 450 spent at Zomato\nPaid Rs. 1,200 to Uber", "budget": 10000}`
		w := do(srv, http.MethodPost, "/api/analyze/text", "application/json", strings.NewReader(body))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", w.Code, w.Body.String())
		}
		r := decodeReport(t, w)
		if r.Mode != services.ModeText || len(r.Transactions) != 2 {
			t.Fatalf("unexpected report %+v", r)
		}
		if !r.Summary.Total.Equal(decimal.NewFromInt(1650)) {
			t.Errorf("total = %s, want 1650", r.Summary.Total)
		}
	})

	t.Run("form lines", func(t *testing.T) {
		body := "lines=Rs+100+at+Swiggy&lines=Rs+200+at+Swiggy&budget=3000"
		w := do(srv, http.MethodPost, "/api/analyze/text", "application/x-www-form-urlencoded", strings.NewReader(body))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", w.Code, w.Body.String())
		}
		if r := decodeReport(t, w); len(r.Transactions) != 2 || r.Summary.BudgetUsed != 10 {
			t.Errorf("unexpected report %+v", r.Summary)
		}
	})
}

func TestServer_AnalyzeRows(t *testing.T) {
	srv := newTestServer(t, Options{})
	body := `{"budget": "5000", "rows": [
		{"Merchant": "Amazon", "Amount": 1000, "Type": "Debit"},
		{"Merchant": "Employer", "Amount": "25000", "Type": "Credit"}
	]}`
	w := do(srv, http.MethodPost, "/api/analyze/rows", "application/json", strings.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	r := decodeReport(t, w)
	if r.Mode != services.ModeRows || len(r.Transactions) != 2 {
		t.Fatalf("unexpected report %+v", r)
	}
	if !r.Summary.ByType.Credit.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("credit = %s", r.Summary.ByType.Credit)
	}
}

func TestServer_AnalyzeErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		wantStatus  int
		wantError   string
	}{
		{"missing merchant column", "/api/analyze/csv", "text/csv", "Amount,Date\n10,2025-07-15\n", http.StatusUnprocessableEntity, "Merchant"},
		{"empty csv", "/api/analyze/csv", "text/csv", "  \n", http.StatusBadRequest, "missing CSV data"},
		{"invalid budget", "/api/analyze/csv?budget=lots", "text/csv", sampleCSV, http.StatusBadRequest, "invalid budget"},
		{"negative budget", "/api/analyze/text", "application/json", `{"text": "Rs 5 at Uber", "budget": -5}`, http.StatusBadRequest, "negative"},
		{"malformed json", "/api/analyze/text", "application/json", `{"text": `, http.StatusBadRequest, "invalid JSON body"},
		{"rows not objects", "/api/analyze/rows", "application/json", `{"rows": [1, 2]}`, http.StatusBadRequest, "must be an object"},
		{"rows missing merchant", "/api/analyze/rows", "application/json", `{"rows": [{"Amount": 5}]}`, http.StatusUnprocessableEntity, "Merchant"},
		{"sheet not configured", "/api/analyze/sheet", "application/json", `{}`, http.StatusServiceUnavailable, "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, tt.path, tt.contentType, strings.NewReader(tt.body))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			body := decodeError(t, w)
			if !strings.Contains(body.Error, tt.wantError) {
				t.Errorf("error = %q, want it to contain %q", body.Error, tt.wantError)
			}
			if body.RequestID == "" {
				t.Error("error body missing request_id")
			}
		})
	}
}

func TestServer_AnalyzeSheet(t *testing.T) {
	store := memory.New("sheet-1", "Transactions!A:C")
	store.Put("sheet-1", "Transactions!A:C", [][]any{
		{"Merchant", "Amount", "Type"},
		{"Flipkart", 2500.0, "Debit"},
	})
	srv := newTestServer(t, Options{}, services.WithSheets(store))

	for i := 0; i < 2; i++ {
		w := do(srv, http.MethodPost, "/api/analyze/sheet", "application/json", strings.NewReader(`{"budget": 15000}`))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", w.Code, w.Body.String())
		}
		if w.Header().Get("X-Cache") != "MISS" {
			t.Errorf("sheet reports must not be cached, X-Cache = %q", w.Header().Get("X-Cache"))
		}
		if r := decodeReport(t, w); r.Mode != services.ModeSheet || len(r.Transactions) != 1 {
			t.Errorf("unexpected report %+v", r)
		}
	}

	w := do(srv, http.MethodPost, "/api/analyze/sheet", "application/json", strings.NewReader(`{"spreadsheet_id": "other"}`))
	if w.Code != http.StatusBadGateway {
		t.Errorf("unknown sheet status = %d, want 502", w.Code)
	}
}

func TestServer_AnalyzeSheetClientErrors(t *testing.T) {
	srv := newTestServer(t, Options{}, services.WithSheets(memory.New("", "Transactions!A:C")))

	w := do(srv, http.MethodPost, "/api/analyze/sheet", "application/json", strings.NewReader(`{"budget": 100}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing spreadsheet id status = %d, want 400", w.Code)
	}
	if msg := decodeError(t, w).Error; !strings.Contains(msg, "missing spreadsheet id") {
		t.Errorf("error message = %q", msg)
	}
}

func TestServer_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 32})
	w := do(srv, http.MethodPost, "/api/analyze/csv", "text/csv", strings.NewReader(sampleCSV))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		w := do(srv, http.MethodPost, "/api/analyze/text", "application/json", strings.NewReader(`{"text": "Rs 10 at Uber"}`))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := do(srv, http.MethodPost, "/api/analyze/text", "application/json", strings.NewReader(`{"text": "Rs 10 at Uber"}`))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// reads are not rate limited
	if w := do(srv, http.MethodGet, "/api/categories", "", nil); w.Code != http.StatusOK {
		t.Errorf("categories status = %d", w.Code)
	}
}

func TestServer_RoutingErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(srv, http.MethodGet, "/api/analyze/csv", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET analyze status = %d, want 405", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("405 Content-Type = %q", w.Header().Get("Content-Type"))
	}

	w = do(srv, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || decodeError(t, w).Error != "not found" {
		t.Errorf("404 = %d %s", w.Code, w.Body.String())
	}

	w = do(srv, http.MethodGet, "/api/../../etc/passwd", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal status = %d, want 400", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, Options{})
	do(srv, http.MethodPost, "/api/analyze/text", "application/json", strings.NewReader(`{"text": "Rs 10 at Uber"}`))
	do(srv, http.MethodGet, "/nope", "", nil)

	w := do(srv, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"http_requests_total 2",
		"http_client_errors_total 1",
		"report_cache_misses_total 1",
		"# TYPE uptime_seconds gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q\n%s", want, body)
		}
	}
}
