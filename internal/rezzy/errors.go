package rezzy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/rezzydesk/internal/internaltypes"
)

// ErrInvalidResponse marks a 2xx body that does not have the promised shape.
var ErrInvalidResponse = errors.New("invalid response from server")

// APIError is a non-2xx answer from the Rezzy API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rezzy: %s (status=%d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return internaltypes.ErrNotFound
	}
	return nil
}

// decodeError picks the human message out of an error body: detail first, then message,
// then a generic text naming the status.
func decodeError(status int, body []byte) *APIError {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = flatten(payload.Detail)
		if msg == "" {
			msg = flatten(payload.Message)
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed: %s", strings.ToLower(http.StatusText(status)))
	}
	return &APIError{Status: status, Message: msg}
}

type fieldIssue struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

func flatten(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var issues []fieldIssue
	if err := json.Unmarshal(raw, &issues); err == nil {
		parts := make([]string, 0, len(issues))
		for _, is := range issues {
			if is.Msg == "" {
				continue
			}
			if n := len(is.Loc); n > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", is.Loc[n-1], is.Msg))
				continue
			}
			parts = append(parts, is.Msg)
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return strings.TrimSpace(string(raw))
}
