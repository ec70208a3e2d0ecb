package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// GenericMessage is shown whenever the backend gives no usable explanation.
const GenericMessage = "An unexpected error occurred."

var (
	// ErrSessionExpired marks a 401 response.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden marks a 403 response.
	ErrForbidden = errors.New("permission denied")
	// ErrTransport marks a request that never produced a response.
	ErrTransport = errors.New("transport failure")
)

// Error is the single error shape returned for failed backend calls. Its text is
// exactly the message extracted from the backend's error envelope, without the HTTP
// status. Only 401, 403 and transport failures can be told apart, through errors.Is
// with the sentinels above.
type Error struct {
	Message string

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

type errorEnvelope struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// normalize turns a non-2xx response body into an *Error. It never fails: bodies
// that are not JSON, or JSON without a usable message, fall back to GenericMessage.
func normalize(status int, body []byte) *Error {
	out := &Error{Message: extractMessage(body)}
	switch status {
	case http.StatusUnauthorized:
		out.kind = ErrSessionExpired
	case http.StatusForbidden:
		out.kind = ErrForbidden
	}
	return out
}

func transportError(cause error) *Error {
	return &Error{Message: GenericMessage, kind: ErrTransport, cause: cause}
}

func extractMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return GenericMessage
	}
	if msg := stringField(env.Message); msg != "" {
		return msg
	}
	if msg := stringField(env.Error); msg != "" {
		return msg
	}
	return GenericMessage
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
