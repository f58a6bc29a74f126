//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ReadTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsJSON == "" && credsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}
	rng := os.Getenv("GOOGLE_SHEET_RANGE")
	if rng == "" {
		rng = "Transactions!A:E"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Options{
		CredentialsJSON: credsJSON,
		CredentialsFile: credsFile,
		SpreadsheetID:   spreadsheetID,
		Range:           rng,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	table, err := client.ReadTable(ctx, "", "")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	t.Logf("Read %d columns and %d rows", len(table.Columns), len(table.Rows))
}
