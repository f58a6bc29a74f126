package sheets

import (
	"context"
	"errors"

	"nudgify/internal/ingest"
)

var (
	// ErrNotConfigured is returned when no spreadsheet source is available.
	ErrNotConfigured = errors.New("spreadsheet source not configured")

	// ErrMissingSpreadsheet is returned when neither the caller nor the
	// reader's defaults name a spreadsheet.
	ErrMissingSpreadsheet = errors.New("missing spreadsheet id")

	// ErrInvalidRange is returned for a range that is not usable A1 notation.
	ErrInvalidRange = errors.New("invalid sheet range")
)

// Ports for outbound adapters.
type (
	// TableReader loads a range of a spreadsheet as a header plus rows.
	// Empty spreadsheetID or rng fall back to the reader's defaults.
	TableReader interface {
		ReadTable(ctx context.Context, spreadsheetID, rng string) (ingest.Table, error)
	}
)
