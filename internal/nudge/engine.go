// Package nudge evaluates an ordered list of declarative rules against one
// spending snapshot and returns the advisory messages they produce.
//
// The engine is stateless: every Evaluate call works on its own Input and
// every matching rule contributes its messages, in declaration order.
package nudge

import (
	"github.com/shopspring/decimal"

	"nudgify/internal/core"
)

// Names of the messages the engine emits on its own.
const (
	RuleNoData   = "no-data"
	RuleAllClear = "all-clear"
)

// Input is the snapshot a rule sees.
type Input struct {
	Summary      core.Summary
	Transactions []core.Transaction
	Budget       decimal.Decimal
}

// Rule turns an Input into zero or more nudges. A CountsOnly rule reads
// occurrence counts and no amounts, so it still runs when no transaction
// carries a valid amount.
type Rule struct {
	Name       string
	Eval       func(Input) []core.Nudge
	CountsOnly bool
}

// When builds a rule that emits a single message whenever pred holds.
func When(name string, sev core.Severity, pred func(Input) bool, msg func(Input) string) Rule {
	return Rule{
		Name: name,
		Eval: func(in Input) []core.Nudge {
			if !pred(in) {
				return nil
			}
			return []core.Nudge{{Rule: name, Severity: sev, Text: msg(in)}}
		},
	}
}

// Each builds a rule that emits one message per item returned by items.
func Each[T any](name string, items func(Input) []T, sev func(T) core.Severity, msg func(T) string) Rule {
	return Rule{
		Name: name,
		Eval: func(in Input) []core.Nudge {
			var out []core.Nudge
			for _, it := range items(in) {
				out = append(out, core.Nudge{Rule: name, Severity: sev(it), Text: msg(it)})
			}
			return out
		},
	}
}

// Engine walks its rules in order. It is safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over rules, kept in the given order.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: append([]Rule(nil), rules...)}
}

// Default returns an engine running DefaultRules(th).
func Default(th Thresholds) *Engine {
	return NewEngine(DefaultRules(th)...)
}

// Rules lists the rule names in evaluation order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Evaluate runs every rule against in. With no valid amounts it returns an
// informational "no data" nudge followed by whatever the CountsOnly rules
// emit; when amounts exist but nothing fires it returns a single success
// nudge.
func (e *Engine) Evaluate(in Input) []core.Nudge {
	if !in.Summary.HasData {
		out := []core.Nudge{{
			Rule:     RuleNoData,
			Severity: core.SeverityInfo,
			Text:     "No transactions with an amount yet. Upload a CSV with Merchant and Amount columns or paste a few messages to get started.",
		}}
		if in.Summary.Count == 0 {
			return out
		}
		for _, r := range e.rules {
			if r.CountsOnly {
				out = append(out, r.Eval(in)...)
			}
		}
		return out
	}

	var out []core.Nudge
	for _, r := range e.rules {
		out = append(out, r.Eval(in)...)
	}
	if len(out) == 0 {
		out = append(out, core.Nudge{
			Rule:     RuleAllClear,
			Severity: core.SeveritySuccess,
			Text:     "You're either broke or super responsible. No nudges today!",
		})
	}
	return out
}
