// Package ingest turns raw transaction feeds into core.Transaction records.
//
// Two input modes exist: tabular rows (CSV files, spreadsheet ranges, JSON
// rows) and freeform message lines such as bank SMS alerts. Both produce the
// same Result shape.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nudgify/internal/core"
)

// Normalized column names.
const (
	ColMerchant = "Merchant"
	ColAmount   = "Amount"
	ColCategory = "Category"
	ColDate     = "Date"
	ColType     = "Type"
)

// Row is one tabular record keyed by raw column name.
type Row map[string]string

// Table is a header plus its records. Columns may be listed even when there
// are no rows, so a header-only file is still checked for Merchant.
type Table struct {
	Columns []string
	Rows    []Row
}

// TableFromRows builds a Table whose columns are the union of the row keys.
func TableFromRows(rows []Row) Table {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return Table{Columns: cols, Rows: rows}
}

// Result is the parser output for one invocation.
type Result struct {
	Transactions []core.Transaction
	// Dropped counts tabular rows excluded because their amount failed coercion.
	Dropped int
	// HasAmount is false when the source carries no Amount column at all.
	HasAmount bool
	// HasCategory is true when the source supplied its own Category column.
	HasCategory bool
}

// MissingColumnError reports a required column absent from tabular input.
type MissingColumnError struct {
	Column string
	Found  []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Found) == 0 {
		return fmt.Sprintf("missing required column %q: the file has no columns", e.Column)
	}
	return fmt.Sprintf("missing required column %q (found: %s)", e.Column, strings.Join(e.Found, ", "))
}

// IsMissingColumn reports whether err is (or wraps) a MissingColumnError.
func IsMissingColumn(err error) bool {
	var mc *MissingColumnError
	return errors.As(err, &mc)
}

// Parser holds the clock used to stamp records without a date.
type Parser struct {
	now func() time.Time
}

// NewParser returns a parser; a nil clock means time.Now.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// ParseTable converts rows into transactions. The Merchant column is the only
// hard requirement; bad amounts drop their row, bad dates only lose the date.
func (p *Parser) ParseTable(t Table) (Result, error) {
	columns := columnIndex(t.Columns)
	if _, ok := columns[ColMerchant]; !ok {
		return Result{}, &MissingColumnError{Column: ColMerchant, Found: sortedKeys(columns)}
	}
	_, hasAmount := columns[ColAmount]
	_, hasCategory := columns[ColCategory]
	_, hasDate := columns[ColDate]
	_, hasType := columns[ColType]

	res := Result{
		Transactions: make([]core.Transaction, 0, len(t.Rows)),
		HasAmount:    hasAmount,
		HasCategory:  hasCategory,
	}
	today := core.Today(p.now)

	for _, raw := range t.Rows {
		row := normalizeRow(raw, t.Columns)

		tx := core.Transaction{
			Merchant: core.Normalize(row[ColMerchant]),
			Type:     core.Unknown,
			Date:     today,
		}
		if tx.Merchant == "" {
			tx.Merchant = core.UnknownMerchant
		}

		if hasAmount {
			amt, err := core.ParseAmount(row[ColAmount])
			if err != nil {
				res.Dropped++
				continue
			}
			tx.Amount = decimal.NewNullDecimal(amt)
		}
		if hasCategory {
			tx.Category = core.Normalize(row[ColCategory])
		}
		if hasType {
			tx.Type = core.ParseTxType(row[ColType])
		}
		if hasDate {
			d, err := core.ParseDate(row[ColDate])
			if err != nil {
				d = core.Date{}
			}
			tx.Date = d
		}

		res.Transactions = append(res.Transactions, tx)
	}

	return res, nil
}

// ReadCSV reads a header row followed by records. Short records are padded,
// long ones truncated to the header width. Blank records are skipped.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv record: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, makeRow(header, rec))
	}
	return t, nil
}

// FromValues adapts a spreadsheet value matrix whose first row is the header.
func FromValues(values [][]any) Table {
	if len(values) == 0 {
		return Table{}
	}
	header := toStrings(values[0])
	t := Table{Columns: header, Rows: make([]Row, 0, len(values)-1)}
	for _, v := range values[1:] {
		rec := toStrings(v)
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, makeRow(header, rec))
	}
	return t
}

func makeRow(header, rec []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			continue
		}
		row[h] = safeGet(rec, i)
	}
	return row
}

// normalizeRow keys raw by normalized column name. When several headers
// normalize to the same name the first one in columns wins; keys absent from
// columns come after, in sorted order.
func normalizeRow(raw Row, columns []string) Row {
	row := make(Row, len(raw))
	add := func(k string) {
		n := core.Normalize(k)
		if _, taken := row[n]; taken {
			return
		}
		if v, ok := raw[k]; ok {
			row[n] = strings.TrimSpace(v)
		}
	}
	for _, c := range columns {
		add(c)
	}
	rest := make([]string, 0, len(raw))
	for k := range raw {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}
	return row
}

// columnIndex normalizes the column names for lookup.
func columnIndex(columns []string) map[string]struct{} {
	cols := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if n := core.Normalize(c); n != "" {
			cols[n] = struct{}{}
		}
	}
	return cols
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch val := v.(type) {
		case nil:
		case float64:
			// Sheets returns numbers as float64; avoid exponent notation.
			out[i] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
