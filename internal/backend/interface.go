// Package backend builds the spreadsheet source behind the sheet analysis
// mode from configuration.
package backend

import (
	"context"

	"nudgify/internal/sheets"
)

// Factory creates spreadsheet sources based on configuration
type Factory interface {
	// CreateSource returns the configured reader, or nil for SourceNone.
	CreateSource(ctx context.Context, config Config) (sheets.TableReader, error)
}

// Config holds configuration for source creation
type Config struct {
	Type SourceType

	// Google Sheets specific
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	// Shared defaults for ReadTable
	SpreadsheetID string
	Range         string

	// Memory source specific
	DataDirectory string
}

// SourceType represents the type of spreadsheet source
type SourceType string

const (
	SourceNone   SourceType = "none"
	SourceGoogle SourceType = "google"
	SourceMemory SourceType = "memory"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case SourceNone, SourceGoogle, SourceMemory:
		return true
	default:
		return false
	}
}
