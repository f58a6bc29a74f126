package worker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"nudgify/internal/amqp"
	"nudgify/internal/ingest"
	applog "nudgify/internal/log"
	"nudgify/internal/services"
)

// Analyzer is the subset of services.Analyzer the worker drives.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string, budget decimal.Decimal) (services.Report, error)
	AnalyzeLines(ctx context.Context, lines []string, budget decimal.Decimal) (services.Report, error)
	AnalyzeCSV(ctx context.Context, r io.Reader, budget decimal.Decimal) (services.Report, error)
	AnalyzeRows(ctx context.Context, rows []ingest.Row, budget decimal.Decimal) (services.Report, error)
	AnalyzeSheet(ctx context.Context, spreadsheetID, rng string, budget decimal.Decimal) (services.Report, error)
}

var _ Analyzer = (*services.Analyzer)(nil)

// ResultPublisher delivers analysis results.
type ResultPublisher interface {
	PublishAnalyzeResult(ctx context.Context, replyTo string, res *amqp.AnalyzeResult) error
}

// AnalysisWorker answers analyze requests taken from the queue.
type AnalysisWorker struct {
	analyzer      Analyzer
	publisher     ResultPublisher
	defaultBudget decimal.Decimal
	logger        *applog.Logger
}

func NewAnalysisWorker(analyzer Analyzer, publisher ResultPublisher, defaultBudget decimal.Decimal, logger *applog.Logger) *AnalysisWorker {
	return &AnalysisWorker{
		analyzer:      analyzer,
		publisher:     publisher,
		defaultBudget: defaultBudget,
		logger:        logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleAnalyzeRequest runs one request and publishes its result. Input
// problems become error results; only a failed publish is returned, so the
// delivery is requeued.
func (w *AnalysisWorker) HandleAnalyzeRequest(ctx context.Context, req *amqp.AnalyzeRequest) error {
	w.logger.InfoContext(ctx, "Processing analyze request",
		applog.FieldMessageID, req.ID,
		applog.FieldMode, req.Mode)

	var res *amqp.AnalyzeResult
	report, err := w.analyze(ctx, req)
	if err == nil {
		res, err = amqp.NewAnalyzeResult(req.ID, report)
	}
	if err != nil {
		w.logger.WarnContext(ctx, "Analyze request failed",
			applog.FieldMessageID, req.ID,
			applog.FieldMode, req.Mode,
			applog.FieldError, err)
		res = amqp.NewErrorResult(req.ID, err)
	}

	if err := w.publisher.PublishAnalyzeResult(ctx, req.ReplyTo, res); err != nil {
		return fmt.Errorf("publish result %s: %w", req.ID, err)
	}
	return nil
}

func (w *AnalysisWorker) analyze(ctx context.Context, req *amqp.AnalyzeRequest) (services.Report, error) {
	budget, err := services.ParseBudget(req.Budget, w.defaultBudget)
	if err != nil {
		return services.Report{}, err
	}

	switch req.Mode {
	case amqp.ModeText:
		if len(req.Lines) > 0 {
			return w.analyzer.AnalyzeLines(ctx, req.Lines, budget)
		}
		return w.analyzer.AnalyzeText(ctx, req.Text, budget)
	case amqp.ModeCSV:
		return w.analyzer.AnalyzeCSV(ctx, strings.NewReader(req.CSV), budget)
	case amqp.ModeRows:
		rows := make([]ingest.Row, len(req.Rows))
		for i, r := range req.Rows {
			rows[i] = ingest.Row(r)
		}
		return w.analyzer.AnalyzeRows(ctx, rows, budget)
	case amqp.ModeSheet:
		return w.analyzer.AnalyzeSheet(ctx, req.SpreadsheetID, req.Range, budget)
	default:
		return services.Report{}, fmt.Errorf("%w: %q", amqp.ErrUnknownMode, req.Mode)
	}
}
