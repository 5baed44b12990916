package iugu

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMissingAPIKey = errors.New("iugu: API key is required")
	ErrNotFound      = errors.New("iugu: resource not found")
	ErrCircuitOpen   = errors.New("iugu: circuit breaker is open")
	ErrRequestFailed = errors.New("iugu: request failed")
	ErrInvalidBody   = errors.New("iugu: malformed response body")
)

// APIError is a structured rejection returned by the gateway, such as an
// invalid plan identifier or a failed payload validation. Receiving one means
// the remote call completed and the gateway declined it; callers must not
// mutate local state in response.
type APIError struct {
	StatusCode int
	Fields     map[string][]string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("iugu: gateway rejected request (%d): %s", e.StatusCode, e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
		}
		return fmt.Sprintf("iugu: gateway rejected request (%d): %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("iugu: gateway rejected request (%d)", e.StatusCode)
}

// IsAPIError reports whether err is a gateway rejection rather than a
// transport failure.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// errorsPayload mirrors Iugu's error envelope. The "errors" value is either a
// plain string or an object mapping field names to messages.
type errorsPayload struct {
	Errors json.RawMessage `json:"errors"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var payload errorsPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Errors) == 0 {
		return apiErr
	}

	var fields map[string][]string
	if err := json.Unmarshal(payload.Errors, &fields); err == nil {
		apiErr.Fields = fields
		return apiErr
	}

	var message string
	if err := json.Unmarshal(payload.Errors, &message); err == nil {
		apiErr.Message = message
	}

	return apiErr
}
