package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"nudgify/internal/core"
	"nudgify/internal/services"
)

var severityColor = map[core.Severity]*color.Color{
	core.SeveritySuccess: color.New(color.FgGreen),
	core.SeverityInfo:    color.New(color.FgCyan),
	core.SeverityWarning: color.New(color.FgYellow),
	core.SeverityError:   color.New(color.FgRed, color.Bold),
}

var heading = color.New(color.Bold, color.Underline)

// renderReport prints a terminal summary of r.
func renderReport(w io.Writer, r services.Report) {
	s := r.Summary

	heading.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  Transactions  %d", s.Count)
	if r.Dropped > 0 {
		fmt.Fprintf(w, " (%d rows dropped)", r.Dropped)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total spent   %s\n", core.FormatMoney(s.Total))
	if s.HasData {
		fmt.Fprintf(w, "  Average       %s\n", core.FormatMoney(s.Mean))
	}
	if s.BudgetKnown {
		fmt.Fprintf(w, "  Budget        %s (%s%% used)\n", core.FormatMoney(s.Budget), strconv.FormatFloat(s.BudgetUsed, 'f', 1, 64))
	} else {
		fmt.Fprintln(w, "  Budget        not set")
	}
	fmt.Fprintf(w, "  Today         %s\n", core.FormatMoney(s.TodayTotal))

	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "By category")
		for _, c := range s.ByCategory {
			fmt.Fprintf(w, "  %-14s %s\n", c.Name, core.FormatMoney(c.Amount))
		}
	}

	if len(s.TopMerchants) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Top merchants")
		for _, m := range s.TopMerchants {
			fmt.Fprintf(w, "  %-14s %d\n", m.Merchant, m.Count)
		}
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Nudges")
	for _, n := range r.Nudges {
		c, ok := severityColor[n.Severity]
		if !ok {
			c = color.New(color.Reset)
		}
		c.Fprintf(w, "  [%s] ", n.Severity)
		fmt.Fprintln(w, n.Text)
	}
}
