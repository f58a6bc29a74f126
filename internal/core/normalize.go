package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize trims s, collapses inner whitespace and title-cases every word.
// It is applied to column names, merchants and category labels at every
// ingestion boundary so lookups never depend on input casing.
func Normalize(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Title(language.Und).String(strings.Join(fields, " "))
}
