package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}), &buf
}

func TestLogger_ComponentAppearsOnce(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *Logger)
		want string
	}{
		{
			name: "info",
			log:  func(l *Logger) { l.WithComponent(ComponentAnalyzer).Info("hello") },
			want: "component=analyzer",
		},
		{
			name: "component replaced",
			log:  func(l *Logger) { l.WithComponent(ComponentHTTP).WithComponent(ComponentTrace).Warn("hello") },
			want: "component=trace",
		},
		{
			name: "analysis record",
			log: func(l *Logger) {
				NewStructuredLogger(l.WithComponent(ComponentAnalyzer)).
					LogAnalysis(context.Background(), "r1", "csv", 3, 0, 1, "670")
			},
			want: "component=analyzer",
		},
		{
			name: "error record uses its component",
			log: func(l *Logger) {
				NewStructuredLogger(l.WithComponent(ComponentAnalyzer)).
					LogError(context.Background(), "failed", errors.New("boom"), ComponentWorker, OpParse, NewFields())
			},
			want: "component=worker",
		},
		{
			name: "request end",
			log: func(l *Logger) {
				r := httptest.NewRequest("GET", "/health", nil)
				NewStructuredLogger(l.WithComponent(ComponentTrace)).
					LogHTTPEnd(context.Background(), r, 404, 3, "10.0.0.1")
			},
			want: "component=trace",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(ComponentApp)
			tt.log(l)
			out := buf.String()
			if n := strings.Count(out, "component="); n != 1 {
				t.Errorf("component attribute appears %d times in %q", n, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestLogger_LogHTTPEndLevel(t *testing.T) {
	l, buf := newBufferLogger(ComponentTrace)
	r := httptest.NewRequest("POST", "/api/analyze/csv", nil)
	NewStructuredLogger(l).LogHTTPEnd(context.Background(), r, 500, 12, "")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("5xx should log at error level: %q", buf.String())
	}
}

func TestLogger_Slog(t *testing.T) {
	l, buf := newBufferLogger(ComponentSheets)
	l.Slog().Info("ready")
	if n := strings.Count(buf.String(), "component=sheets"); n != 1 {
		t.Errorf("component attribute appears %d times in %q", n, buf.String())
	}

	bare, buf := newBufferLogger("")
	bare.Info("ready")
	if strings.Contains(buf.String(), "component=") {
		t.Errorf("empty component should not be logged: %q", buf.String())
	}
}

func TestContext(t *testing.T) {
	l, _ := newBufferLogger(ComponentHTTP)
	ctx := NewContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Errorf("FromContext returned %p, want %p", got, l)
	}
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Errorf("fallback logger = %+v", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
