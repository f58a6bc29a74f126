// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Analyze endpoints accept either JSON bodies or form-encoded fields, and the
// parser hides the difference from handlers.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"nudgify/internal/ingest"
)

// errBadRequest marks client input errors that map to 400.
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data. JSON numbers are
// kept as json.Number so amounts are not rounded through float64.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = badRequestf("invalid JSON body: %v", err)
			return p.err
		}
		return nil
	}
	if trimmed[0] == '[' {
		p.err = badRequestf("JSON body must be an object")
		return p.err
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = badRequestf("invalid form body: %v", p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Strings returns a list value: a JSON array of scalars or a repeated form
// field.
func (p *RequestBodyParser) Strings(key string) ([]string, error) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return nil, nil
		}
		items, ok := val.([]any)
		if !ok {
			return nil, badRequestf("%q must be an array", key)
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, sanitizeInput(stringValue(it)))
		}
		return out, nil
	}
	if p.formData != nil {
		out := make([]string, 0, len(p.formData[key]))
		for _, v := range p.formData[key] {
			out = append(out, sanitizeInput(v))
		}
		return out, nil
	}
	return nil, nil
}

// Rows returns a JSON array of objects as tabular rows. Scalar cell values
// are converted to strings; nested values are rejected.
func (p *RequestBodyParser) Rows(key string) ([]ingest.Row, error) {
	if p.jsonData == nil {
		return nil, badRequestf("%q requires a JSON body", key)
	}
	val, ok := p.jsonData[key]
	if !ok || val == nil {
		return nil, nil
	}
	items, ok := val.([]any)
	if !ok {
		return nil, badRequestf("%q must be an array of objects", key)
	}

	rows := make([]ingest.Row, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, badRequestf("%s[%d] must be an object", key, i)
		}
		row := make(ingest.Row, len(obj))
		for col, cell := range obj {
			switch cell.(type) {
			case map[string]any, []any:
				return nil, badRequestf("%s[%d].%s must be a scalar", key, i, col)
			}
			row[col] = sanitizeInput(stringValue(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// stringValue converts a decoded JSON or form value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// readCSVUpload returns the CSV document from a multipart "file" field or
// from the raw request body. For multipart requests the second value is the
// "budget" form field, if any.
func readCSVUpload(r *http.Request, maxMemory int64) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", err
			}
			return nil, "", badRequestf("invalid multipart body: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, "", badRequestf("missing \"file\" field")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		return data, r.FormValue("budget"), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}
