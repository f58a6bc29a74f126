package backend

import (
	"context"
	"fmt"
	"log/slog"

	"nudgify/internal/sheets"
	gsheet "nudgify/internal/sheets/google"
	"nudgify/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new source factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (sheets.TableReader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SourceGoogle:
		return f.createGoogleSource(ctx, config)
	case SourceMemory:
		return f.createMemorySource(config)
	case SourceNone:
		f.logger.Info("Sheets source disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported sheets source: %s", config.Type)
	}
}

func (f *DefaultFactory) createGoogleSource(ctx context.Context, config Config) (sheets.TableReader, error) {
	client, err := gsheet.New(ctx, gsheet.Options{
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		OAuthClientJSON: config.GoogleOAuthClientJSON,
		OAuthClientFile: config.GoogleOAuthClientFile,
		OAuthTokenFile:  config.GoogleOAuthTokenFile,
		SpreadsheetID:   config.SpreadsheetID,
		Range:           config.Range,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets source",
		"spreadsheet_id", config.SpreadsheetID,
		"range", config.Range)
	return client, nil
}

func (f *DefaultFactory) createMemorySource(config Config) (sheets.TableReader, error) {
	store := memory.New(config.SpreadsheetID, config.Range)
	n, err := store.LoadDir(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory source: %w", err)
	}

	f.logger.Info("Initialized memory sheets source",
		"data_directory", config.DataDirectory,
		"spreadsheets", n)
	return store, nil
}
