// Command nudgify-cli analyzes a bank statement CSV or a file of transaction
// messages and prints a spending summary with nudges.
//
//	nudgify-cli [-budget N] [-text] [-json] [-queue] [file]
//
// Input is read from file, or from stdin when file is omitted or "-". With
// -queue the input is published to the analysis queue for nudgify-worker
// instead of being analyzed locally.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"nudgify/internal/amqp"
	"nudgify/internal/categorize"
	"nudgify/internal/cli"
	"nudgify/internal/config"
	"nudgify/internal/ingest"
	applog "nudgify/internal/log"
	"nudgify/internal/nudge"
	"nudgify/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := &app{
		cfg:       cfg,
		now:       time.Now,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		dialQueue: dialAMQP,
	}
	os.Exit(a.run(context.Background(), os.Args[1:]))
}

func dialAMQP(cfg *config.Config) (requestPublisher, error) {
	c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultsKey)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// requestPublisher is the part of amqp.Client used by -queue.
type requestPublisher interface {
	PublishAnalyzeRequest(ctx context.Context, req *amqp.AnalyzeRequest) error
	Close() error
}

type app struct {
	cfg       *config.Config
	now       func() time.Time
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	dialQueue func(*config.Config) (requestPublisher, error)
}

// run executes one invocation and returns the process exit code: 0 on
// success, 1 on input errors, 2 on usage errors.
func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("nudgify-cli", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var (
		budgetFlag = fs.String("budget", "", "Monthly budget (default NUDGE_DEFAULT_BUDGET).")
		textMode   = fs.Bool("text", false, "Treat input as transaction messages, one per line.")
		jsonOut    = fs.Bool("json", false, "Print the full report as JSON.")
		queue      = fs.Bool("queue", false, "Publish the input to the analysis queue (needs AMQP_URL).")
	)
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "usage: nudgify-cli [-budget N] [-text] [-json] [-queue] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	budget, err := services.ParseBudget(*budgetFlag, a.cfg.DefaultBudget)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return 2
	}
	if *queue && (a.cfg.AMQPURL == "" || a.dialQueue == nil) {
		fmt.Fprintln(a.stderr, "error: -queue requires AMQP_URL")
		return 2
	}

	in, closeInput, err := a.openInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return 1
	}
	defer closeInput()

	if *queue {
		return a.publish(ctx, in, *textMode, budget)
	}

	analyzer := services.NewAnalyzer(
		categorize.Default(),
		nudge.Default(a.cfg.Thresholds()),
		services.WithClock(a.now),
		services.WithLogger(a.logger()),
	)

	var report services.Report
	if *textMode {
		data, rerr := io.ReadAll(in)
		if rerr != nil {
			fmt.Fprintf(a.stderr, "error: read input: %v\n", rerr)
			return 1
		}
		report, err = analyzer.AnalyzeText(ctx, string(data), budget)
	} else {
		report, err = analyzer.AnalyzeCSV(ctx, in, budget)
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		if ingest.IsMissingColumn(err) {
			fmt.Fprintln(a.stderr, "hint: the CSV needs a Merchant column; use -text for message lines")
		}
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(a.stderr, "error: encode report: %v\n", err)
			return 1
		}
		return 0
	}
	renderReport(a.stdout, report)
	return 0
}

// publish queues the whole input as one analyze request and prints its id.
func (a *app) publish(ctx context.Context, in io.Reader, textMode bool, budget decimal.Decimal) int {
	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: read input: %v\n", err)
		return 1
	}

	req := amqp.NewAnalyzeRequest(amqp.ModeCSV)
	if textMode {
		req.Mode = amqp.ModeText
		req.Text = string(data)
	} else {
		req.CSV = string(data)
	}
	req.Budget = budget.String()

	pub, err := a.dialQueue(a.cfg)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: connect to queue: %v\n", err)
		return 1
	}
	defer func() { _ = pub.Close() }()

	if err := pub.PublishAnalyzeRequest(ctx, req); err != nil {
		fmt.Fprintf(a.stderr, "error: publish: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "queued %s request %s\n", req.Mode, req.ID)
	return 0
}

func (a *app) openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return a.stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// logger reports warnings and errors on stderr so stdout stays clean for the
// report.
func (a *app) logger() *applog.Logger {
	level := applog.ParseLevel(a.cfg.LogLevel)
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentCLI,
		Handler:   applog.NewHandler(a.stderr, level, a.cfg.LogFormat),
	})
}
