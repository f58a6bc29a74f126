package ingest

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"nudgify/internal/core"
)

// Freeform grammar, one transaction per line:
//
//	amount   := [marker] number         marker := "Rs." | "Rs" | "INR" | "₹"
//	number   := digits ("," digits)* ["." digits]
//	merchant := ("at" | "for" | "on" | "from") space+ [A-Za-z&]+
//
// A marked amount wins over a bare number appearing earlier in the line, so
// "On 01-01 Rs 450 spent" yields 450 and not 01.
var (
	reMarkedAmount = regexp.MustCompile(`(?i)(?:\b(?:rs\.?|inr)|₹)\s*(\d+(?:,\d+)*(?:\.\d+)?)`)
	reBareAmount   = regexp.MustCompile(`\d+(?:,\d+)*(?:\.\d+)?`)
	reMerchant     = regexp.MustCompile(`(?i)\b(?:at|for|on|from)\s+([A-Za-z&]+)`)
)

// ParseText splits text into lines and parses each non-empty one.
func (p *Parser) ParseText(text string) Result {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return p.ParseLines(lines)
}

// ParseLines produces one record per non-empty line, in input order. Lines
// without an amount are kept with a null amount.
func (p *Parser) ParseLines(lines []string) Result {
	res := Result{
		Transactions: make([]core.Transaction, 0, len(lines)),
		HasAmount:    true,
	}
	today := core.Today(p.now)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		res.Transactions = append(res.Transactions, core.Transaction{
			Merchant:   extractMerchant(line),
			Amount:     extractAmount(line),
			Type:       core.InferTxType(line),
			Date:       today,
			RawMessage: line,
		})
	}
	return res
}

func extractAmount(line string) decimal.NullDecimal {
	var num string
	if m := reMarkedAmount.FindStringSubmatch(line); m != nil {
		num = m[1]
	} else if m := reBareAmount.FindString(line); m != "" {
		num = m
	}
	if num == "" {
		return decimal.NullDecimal{}
	}
	amt, err := core.ParseAmount(num)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amt)
}

func extractMerchant(line string) string {
	m := reMerchant.FindStringSubmatch(line)
	if m == nil {
		return core.UnknownMerchant
	}
	if name := core.Normalize(m[1]); name != "" {
		return name
	}
	return core.UnknownMerchant
}
