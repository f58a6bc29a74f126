package backend

import (
	"fmt"
	"strings"

	"nudgify/internal/config"
)

// FromAppConfig converts the application config to a source config. An
// unset SHEETS_SOURCE selects Google when credentials exist and none
// otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := SourceType(appConfig.SheetsSource)
	if sourceType == "" {
		sourceType = SourceNone
		if appConfig.SheetsConfigured() {
			sourceType = SourceGoogle
		}
	}
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid sheets source in config: %s (valid: %s)", appConfig.SheetsSource, validSourceTypes())
	}

	return Config{
		Type: sourceType,

		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,

		SpreadsheetID: appConfig.GoogleSpreadsheetID,
		Range:         appConfig.GoogleSheetRange,

		DataDirectory: appConfig.SheetsDataDir,
	}, nil
}

// Validate validates the source configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid sheets source: %s (valid: %s)", c.Type, validSourceTypes())
	}

	switch c.Type {
	case SourceGoogle:
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasOAuth := c.GoogleOAuthTokenFile != "" && (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "")
		if !hasServiceAccount && !hasOAuth {
			return fmt.Errorf("google source requires service account credentials or an OAuth client and token file")
		}
		if c.Range == "" {
			return fmt.Errorf("google source requires a default sheet range")
		}

	case SourceMemory:
		if c.DataDirectory == "" {
			return fmt.Errorf("memory source requires a data directory")
		}
	}

	return nil
}

// GetSourceTypes returns all valid source types
func GetSourceTypes() []SourceType {
	return []SourceType{SourceNone, SourceGoogle, SourceMemory}
}

func validSourceTypes() string {
	types := GetSourceTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
