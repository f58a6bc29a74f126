package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Debit    TxType = "Debit"
	Credit   TxType = "Credit"
	Reversal TxType = "Reversal"
	Unknown  TxType = "Unknown"

	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"

	// UnknownMerchant is used when no counterparty can be extracted.
	UnknownMerchant = "Unknown"
	// FallbackCategory is the bucket for merchants missing from the category table.
	FallbackCategory = "Others"

	dateLayout = "2006-01-02"
)

type (
	TxType   string
	Severity string

	Date struct {
		time.Time
	}

	Transaction struct {
		Merchant   string              `json:"merchant"`
		Amount     decimal.NullDecimal `json:"amount"`
		Category   string              `json:"category"`
		Type       TxType              `json:"type"`
		Date       Date                `json:"date"`
		RawMessage string              `json:"raw_message,omitempty"`
	}

	// Nudge is a single advisory message produced by a rule.
	Nudge struct {
		Rule     string   `json:"rule"`
		Severity Severity `json:"severity"`
		Text     string   `json:"text"`
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrEmptyMerchant  = errors.New("empty merchant")
	ErrNegativeAmount = errors.New("negative amount")
)

// ParseTxType maps a Type column cell to a TxType. Short ledger codes are
// matched exactly before falling back to InferTxType.
func ParseTxType(s string) TxType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "dr", "withdrawal":
		return Debit
	case "credit", "cr", "deposit":
		return Credit
	case "reversal", "refund":
		return Reversal
	}
	return InferTxType(s)
}

// InferTxType looks for direction keywords anywhere in a message line.
// Checks run in a fixed order and the first hit wins.
func InferTxType(s string) TxType {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "debited"), strings.Contains(l, "spent"):
		return Debit
	case strings.Contains(l, "credited"):
		return Credit
	case strings.Contains(l, "declined"), strings.Contains(l, "reversed"):
		return Reversal
	}
	return Unknown
}

// HasAmount reports whether the transaction takes part in amount aggregation.
func (t Transaction) HasAmount() bool {
	return t.Amount.Valid
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if t.Amount.Valid && t.Amount.Decimal.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the calendar date of now().
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return DateOf(now())
}

// IsEmpty returns true if the date is unknown.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	if d.IsZero() || o.IsZero() {
		return false
	}
	y1, m1, d1 := d.Date()
	y2, m2, d2 := o.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) == "null" {
			*d = Date{}
			return nil
		}
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var dateLayouts = []string{
	dateLayout,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts the layouts bank exports commonly use. Day-first is
// preferred over month-first for ambiguous numeric dates.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}
