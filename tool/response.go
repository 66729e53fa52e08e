package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Result is the outcome of one successful invocation.
type Result struct {
	Tool       string         `json:"tool"`
	RequestID  string         `json:"request_id,omitempty"`
	URL        string         `json:"url"`
	Format     ResponseFormat `json:"format"`
	StatusCode int            `json:"status_code"`
	DurationMS int64          `json:"duration_ms"`

	// Value is the decoded body for FormatJSON tools. Numbers are json.Number.
	Value any `json:"value,omitempty"`
	// Text is the upstream body exactly as received, for every format.
	Text string `json:"text"`
}

// Payload returns Value for JSON tools and Text otherwise.
func (r Result) Payload() any {
	if r.Format == FormatJSON {
		return r.Value
	}
	return r.Text
}

// Object returns Value as a JSON object when the upstream returned one.
func (r Result) Object() (map[string]any, bool) {
	if r.Format != FormatJSON {
		return nil, false
	}
	obj, ok := r.Value.(map[string]any)
	return obj, ok
}

func decodeBody(format ResponseFormat, body []byte) (any, error) {
	if format != FormatJSON {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return nil, newToolError(ToolErrorCodeDecodeFailure, fmt.Sprintf("tool: decode upstream JSON: %v", err), err)
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, newToolError(ToolErrorCodeDecodeFailure, "tool: decode upstream JSON: trailing data after value", err)
	}
	return value, nil
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
