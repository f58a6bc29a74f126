package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nudgify/internal/aggregate"
	"nudgify/internal/categorize"
	"nudgify/internal/core"
	"nudgify/internal/ingest"
	applog "nudgify/internal/log"
	"nudgify/internal/nudge"
	"nudgify/internal/sheets"
)

// Mode names the input format of one run.
type Mode string

const (
	ModeCSV   Mode = "csv"
	ModeText  Mode = "text"
	ModeRows  Mode = "rows"
	ModeSheet Mode = "sheet"
)

var (
	ErrNegativeBudget = errors.New("budget must not be negative")
	ErrInvalidBudget  = errors.New("invalid budget")
	// ErrSheetRead wraps failures reading the spreadsheet source.
	ErrSheetRead = errors.New("read sheet")
)

// Report is the complete outcome of one analysis run.
type Report struct {
	ID           string             `json:"id"`
	Mode         Mode               `json:"mode"`
	Transactions []core.Transaction `json:"transactions"`
	Dropped      int                `json:"dropped"`
	HasAmount    bool               `json:"has_amount"`
	Summary      core.Summary       `json:"summary"`
	Nudges       []core.Nudge       `json:"nudges"`
}

// Analyzer runs parse, categorize, aggregate and nudge for one input. It
// holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	categorizer *categorize.Categorizer
	engine      *nudge.Engine
	sheets      sheets.TableReader
	now         func() time.Time
	logger      *applog.StructuredLogger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClock sets the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithSheets enables AnalyzeSheet.
func WithSheets(r sheets.TableReader) Option {
	return func(a *Analyzer) { a.sheets = r }
}

// WithLogger sets the logger used for per-run records.
func WithLogger(l *applog.Logger) Option {
	return func(a *Analyzer) { a.logger = applog.NewStructuredLogger(l) }
}

func NewAnalyzer(c *categorize.Categorizer, e *nudge.Engine, opts ...Option) *Analyzer {
	a := &Analyzer{
		categorizer: c,
		engine:      e,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = applog.NewStructuredLogger(applog.New(applog.Config{
			Component: applog.ComponentAnalyzer,
			Handler:   slog.Default().Handler(),
		}))
	}
	return a
}

// Categorizer exposes the category table in use.
func (a *Analyzer) Categorizer() *categorize.Categorizer {
	return a.categorizer
}

// Today is the date runs treat as "today".
func (a *Analyzer) Today() core.Date {
	return core.Today(a.now)
}

// SheetsEnabled reports whether AnalyzeSheet has a source to read from.
func (a *Analyzer) SheetsEnabled() bool {
	return a.sheets != nil
}

// AnalyzeTable runs tabular rows through the pipeline. A missing Merchant
// column is the only fatal input error.
func (a *Analyzer) AnalyzeTable(ctx context.Context, t ingest.Table, budget decimal.Decimal) (Report, error) {
	return a.analyzeTable(ctx, ModeRows, t, budget)
}

// AnalyzeCSV reads a CSV document with a header row and analyzes it.
func (a *Analyzer) AnalyzeCSV(ctx context.Context, r io.Reader, budget decimal.Decimal) (Report, error) {
	if err := ValidateBudget(budget); err != nil {
		return Report{}, err
	}
	t, err := ingest.ReadCSV(r)
	if err != nil {
		return Report{}, fmt.Errorf("parse csv: %w", err)
	}
	return a.analyzeTable(ctx, ModeCSV, t, budget)
}

// AnalyzeText analyzes freeform message text, one transaction per line.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string, budget decimal.Decimal) (Report, error) {
	if err := ValidateBudget(budget); err != nil {
		return Report{}, err
	}
	res := ingest.NewParser(a.now).ParseText(text)
	return a.finish(ctx, ModeText, res, budget), nil
}

// AnalyzeLines analyzes pre-split message lines.
func (a *Analyzer) AnalyzeLines(ctx context.Context, lines []string, budget decimal.Decimal) (Report, error) {
	if err := ValidateBudget(budget); err != nil {
		return Report{}, err
	}
	res := ingest.NewParser(a.now).ParseLines(lines)
	return a.finish(ctx, ModeText, res, budget), nil
}

// AnalyzeRows analyzes JSON-style rows keyed by column name.
func (a *Analyzer) AnalyzeRows(ctx context.Context, rows []ingest.Row, budget decimal.Decimal) (Report, error) {
	return a.analyzeTable(ctx, ModeRows, ingest.TableFromRows(rows), budget)
}

// AnalyzeSheet reads a spreadsheet range and analyzes it. It returns
// sheets.ErrNotConfigured when no source was supplied.
func (a *Analyzer) AnalyzeSheet(ctx context.Context, spreadsheetID, rng string, budget decimal.Decimal) (Report, error) {
	if a.sheets == nil {
		return Report{}, sheets.ErrNotConfigured
	}
	if err := ValidateBudget(budget); err != nil {
		return Report{}, err
	}
	t, err := a.sheets.ReadTable(ctx, spreadsheetID, rng)
	switch {
	case errors.Is(err, sheets.ErrMissingSpreadsheet), errors.Is(err, sheets.ErrInvalidRange):
		return Report{}, err
	case err != nil:
		return Report{}, fmt.Errorf("%w: %w", ErrSheetRead, err)
	}
	return a.analyzeTable(ctx, ModeSheet, t, budget)
}

func (a *Analyzer) analyzeTable(ctx context.Context, mode Mode, t ingest.Table, budget decimal.Decimal) (Report, error) {
	if err := ValidateBudget(budget); err != nil {
		return Report{}, err
	}
	res, err := ingest.NewParser(a.now).ParseTable(t)
	if err != nil {
		a.logger.LogError(ctx, "Analysis rejected", err, applog.ComponentAnalyzer, applog.OpParse, applog.NewFields())
		return Report{}, err
	}
	return a.finish(ctx, mode, res, budget), nil
}

func (a *Analyzer) finish(ctx context.Context, mode Mode, res ingest.Result, budget decimal.Decimal) Report {
	txns := a.categorizer.Apply(res.Transactions)
	today := core.Today(a.now)
	summary := aggregate.Summarize(txns, budget, today)
	nudges := a.engine.Evaluate(nudge.Input{Summary: summary, Transactions: txns, Budget: budget})

	r := Report{
		ID:           uuid.NewString(),
		Mode:         mode,
		Transactions: txns,
		Dropped:      res.Dropped,
		HasAmount:    res.HasAmount,
		Summary:      summary,
		Nudges:       nudges,
	}
	a.logger.LogAnalysis(ctx, r.ID, string(mode), len(txns), res.Dropped, len(nudges), summary.Total.String())
	return r
}

// ValidateBudget rejects negative budgets.
func ValidateBudget(b decimal.Decimal) error {
	if b.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}

// ParseBudget parses a budget field, falling back to def when s is blank.
// Currency markers and thousands separators are accepted.
func ParseBudget(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		return decimal.Zero, ErrNegativeBudget
	}
	b, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidBudget, s)
	}
	return b, nil
}
