package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
	gsheet "google.golang.org/api/sheets/v4"
)

const testClientJSON = `{"installed": {
	"client_id": "client-id.apps.googleusercontent.com",
	"client_secret": "secret",
	"auth_uri": "https://accounts.google.com/o/oauth2/auth",
	"token_uri": "https://oauth2.googleapis.com/token",
	"redirect_uris": ["http://localhost"]
}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig(testClientJSON, "")
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "client-id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != gsheet.SpreadsheetsReadonlyScope {
		t.Errorf("Scopes = %v, want read-only sheets scope", cfg.Scopes)
	}

	file := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(file, []byte(testClientJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OAuthConfig("", file); err != nil {
		t.Errorf("OAuthConfig from file: %v", err)
	}

	if _, err := OAuthConfig("", ""); err == nil {
		t.Error("expected error without client credentials")
	}
	if _, err := OAuthConfig("{not json", ""); err == nil {
		t.Error("expected error for malformed client JSON")
	}
}

func TestSaveLoadToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.RefreshToken != "refresh" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("LoadToken = %+v", got)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(empty); err == nil {
		t.Error("expected error for a token file without tokens")
	}
	if _, err := LoadToken(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for a missing token file")
	}
}

func TestNew_OAuthToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{RefreshToken: "refresh"}); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), Options{
		OAuthClientJSON: testClientJSON,
		OAuthTokenFile:  path,
		SpreadsheetID:   "sheet-1",
		Range:           "Transactions!A:E",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.spreadsheetID != "sheet-1" {
		t.Errorf("spreadsheetID = %q", c.spreadsheetID)
	}

	if _, err := New(context.Background(), Options{OAuthTokenFile: path}); err == nil {
		t.Error("expected error without OAuth client credentials")
	}
}
