package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"text": "Rs 450 at Zomato", "budget": 15000.50, "lines": ["a", " b ", 3], "flag": true}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := parser.Get("text"); got != "Rs 450 at Zomato" {
		t.Errorf("Get(text) = %q", got)
	}
	if got := parser.Get("budget"); got != "15000.50" {
		t.Errorf("Get(budget) = %q, want the number verbatim", got)
	}
	if got := parser.Get("flag"); got != "true" {
		t.Errorf("Get(flag) = %q", got)
	}
	if got := parser.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q", got)
	}

	lines, err := parser.Strings("lines")
	if err != nil {
		t.Fatalf("Strings() error = %v", err)
	}
	if strings.Join(lines, "|") != "a|b|3" {
		t.Errorf("Strings(lines) = %q", lines)
	}
	if _, err := parser.Strings("text"); !errors.Is(err, errBadRequest) {
		t.Errorf("Strings on a scalar should be a bad request, got %v", err)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("text=hello%01+world&lines=one&lines=two&budget=900"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("text"); got != "hello world" {
		t.Errorf("Get(text) = %q, control characters should be stripped", got)
	}
	lines, _ := parser.Strings("lines")
	if len(lines) != 2 || lines[1] != "two" {
		t.Errorf("Strings(lines) = %v", lines)
	}
	if _, err := parser.Rows("rows"); !errors.Is(err, errBadRequest) {
		t.Errorf("rows from a form body should be a bad request, got %v", err)
	}
}

func TestRequestBodyParser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"text": `},
		{"top-level array", `[1, 2]`},
		{"bad form escape", `text=%zz`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := NewRequestBodyParser(req).Parse()
			if !errors.Is(err, errBadRequest) {
				t.Errorf("Parse() error = %v, want bad request", err)
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.Get("text") != "" {
		t.Error("empty body should yield empty values")
	}
}

func TestRequestBodyParser_Rows(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"objects", `{"rows": [{"Merchant": "Zomato", "Amount": 450}, {"Merchant": "Uber", "Amount": "120.50"}]}`, 2, false},
		{"absent", `{}`, 0, false},
		{"not an array", `{"rows": "x"}`, 0, true},
		{"element not an object", `{"rows": [1]}`, 0, true},
		{"nested cell", `{"rows": [{"Merchant": {"name": "x"}}]}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			if err := parser.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			rows, err := parser.Rows("rows")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Rows() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(rows) != tt.want {
				t.Errorf("got %d rows, want %d", len(rows), tt.want)
			}
			if tt.want == 2 && (rows[0]["Amount"] != "450" || rows[1]["Amount"] != "120.50") {
				t.Errorf("amounts = %q, %q", rows[0]["Amount"], rows[1]["Amount"])
			}
		})
	}
}

func TestReadCSVUpload(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("Merchant\nZomato\n"))
		req.Header.Set("Content-Type", "text/csv")
		data, budget, err := readCSVUpload(req, 1<<20)
		if err != nil || string(data) != "Merchant\nZomato\n" || budget != "" {
			t.Errorf("got %q, %q, %v", data, budget, err)
		}
	})

	t.Run("multipart file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "statement.csv")
		fw.Write([]byte("Merchant,Amount\nSwiggy,10\n"))
		mw.WriteField("budget", "5000")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		data, budget, err := readCSVUpload(req, 1<<20)
		if err != nil {
			t.Fatalf("readCSVUpload: %v", err)
		}
		if !strings.HasPrefix(string(data), "Merchant,Amount") || budget != "5000" {
			t.Errorf("got %q, %q", data, budget)
		}
	})

	t.Run("multipart without file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("budget", "5000")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if _, _, err := readCSVUpload(req, 1<<20); !errors.Is(err, errBadRequest) {
			t.Errorf("expected bad request, got %v", err)
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\tx", "line1\nline2\tx"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
