package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"

	"nudgify/internal/core"
	"nudgify/internal/services"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// reportKey identifies one analysis. Runs are deterministic for a given
// input, budget and day, so equal keys may share a report.
func reportKey(mode services.Mode, today core.Date, budget decimal.Decimal, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(today.String()))
	h.Write([]byte{0})
	h.Write([]byte(budget.String()))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write(p)
	}
	return string(mode) + ":" + hex.EncodeToString(h.Sum(nil))
}
