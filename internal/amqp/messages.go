package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request modes accepted on the analysis queue.
const (
	ModeText  = "text"
	ModeCSV   = "csv"
	ModeRows  = "rows"
	ModeSheet = "sheet"
)

var ErrUnknownMode = errors.New("unknown analysis mode")

// AnalyzeRequest asks the worker to analyze one input. Only the field
// matching Mode is read.
type AnalyzeRequest struct {
	ID            string              `json:"id"`
	Mode          string              `json:"mode"`
	Text          string              `json:"text,omitempty"`
	Lines         []string            `json:"lines,omitempty"`
	CSV           string              `json:"csv,omitempty"`
	Rows          []map[string]string `json:"rows,omitempty"`
	SpreadsheetID string              `json:"spreadsheet_id,omitempty"`
	Range         string              `json:"range,omitempty"`
	Budget        string              `json:"budget,omitempty"`
	ReplyTo       string              `json:"reply_to,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// NewAnalyzeRequest creates a request with a fresh id.
func NewAnalyzeRequest(mode string) *AnalyzeRequest {
	return &AnalyzeRequest{
		ID:        uuid.NewString(),
		Mode:      mode,
		Timestamp: time.Now(),
	}
}

// Validate checks the id and mode.
func (r *AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("missing request id")
	}
	switch r.Mode {
	case ModeText, ModeCSV, ModeRows, ModeSheet:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, r.Mode)
	}
}

// ToJSON converts the message to JSON bytes
func (r *AnalyzeRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// AnalyzeRequestFromJSON decodes a request body.
func AnalyzeRequestFromJSON(data []byte) (*AnalyzeRequest, error) {
	var req AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// AnalyzeResult carries either the encoded report or an error message.
type AnalyzeResult struct {
	ID        string          `json:"id"`
	Report    json.RawMessage `json:"report,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewAnalyzeResult encodes report as the successful outcome of request id.
func NewAnalyzeResult(id string, report any) (*AnalyzeResult, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return &AnalyzeResult{ID: id, Report: body, Timestamp: time.Now()}, nil
}

// NewErrorResult reports a failed request.
func NewErrorResult(id string, err error) *AnalyzeResult {
	return &AnalyzeResult{ID: id, Error: err.Error(), Timestamp: time.Now()}
}

// Failed reports whether the result carries an error.
func (r *AnalyzeResult) Failed() bool {
	return r.Error != ""
}

func (r *AnalyzeResult) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// AnalyzeResultFromJSON decodes a result body.
func AnalyzeResultFromJSON(data []byte) (*AnalyzeResult, error) {
	var res AnalyzeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
