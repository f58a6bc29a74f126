package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"nudgify/internal/ingest"
	ports "nudgify/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

// Ensure interface conformance
var _ ports.TableReader = (*Client)(nil)

// Options selects credentials and the default range to read. Service
// account credentials take precedence over an OAuth user token.
type Options struct {
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string

	SpreadsheetID string
	Range         string
}

// New creates a Sheets client authenticated with a service account or, when
// only OAuthTokenFile is set, with a stored user token. JSON credentials win
// over a credentials file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func New(ctx context.Context, opts Options) (*Client, error) {
	var (
		svc *gsheet.Service
		err error
	)
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" && opts.OAuthTokenFile != "" {
		svc, err = newOAuthSheetsService(ctx, opts)
	} else {
		svc, err = newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.Range), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID, rng string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		rng:           strings.TrimSpace(rng),
	}
}

// newSheetsService initializes a read-only Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials", "component", "sheets")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "component", "sheets", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully", "component", "sheets")
	return service, nil
}

func newOAuthSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	ts, err := oauthTokenSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Using OAuth user token", "component", "sheets", "path", opts.OAuthTokenFile)

	service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadTable reads rng from spreadsheetID with unformatted values so numeric
// cells arrive as numbers rather than locale-formatted strings.
func (c *Client) ReadTable(ctx context.Context, spreadsheetID, rng string) (ingest.Table, error) {
	if c.svc == nil {
		return ingest.Table{}, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		spreadsheetID = c.spreadsheetID
	}
	if spreadsheetID == "" {
		return ingest.Table{}, ports.ErrMissingSpreadsheet
	}
	if strings.TrimSpace(rng) == "" {
		rng = c.rng
	}
	rng, err := normalizeRange(rng)
	if err != nil {
		return ingest.Table{}, err
	}

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return ingest.Table{}, fmt.Errorf("read range %s: %w", rng, err)
	}

	slog.DebugContext(ctx, "Sheet range read",
		"component", "sheets",
		"spreadsheet_id", spreadsheetID,
		"range", rng,
		"rows", len(resp.Values))

	return ingest.FromValues(resp.Values), nil
}
