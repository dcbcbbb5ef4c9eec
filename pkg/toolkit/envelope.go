package toolkit

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a failure envelope for logging and tests. Every
// kind shares the same wire shape.
type ErrorKind string

const (
	// KindNone marks a success envelope.
	KindNone ErrorKind = ""
	// KindNotFound marks a dispatch to an unregistered tool name.
	KindNotFound ErrorKind = "not_found"
	// KindHandlerError marks a handler that returned a non-nil error.
	KindHandlerError ErrorKind = "handler_error"
	// KindHandlerPanic marks a handler that panicked and was recovered.
	KindHandlerPanic ErrorKind = "handler_panic"
)

// Envelope is the uniform result of every dispatch. Exactly one of
// Result and Err is meaningful: a success envelope carries only Result,
// a failure envelope only Err. AvailableTools is populated solely for
// unknown-tool failures.
type Envelope struct {
	Result         string
	Err            string
	AvailableTools []string
	Kind           ErrorKind
}

// Success wraps a handler's string result.
func Success(result string) Envelope {
	return Envelope{Result: result}
}

// Failure wraps an error message with its kind.
func Failure(kind ErrorKind, message string) Envelope {
	return Envelope{Err: message, Kind: kind}
}

// NotFound builds the failure envelope for an unregistered tool name,
// carrying the registry's current listing.
func NotFound(name string, available []string) Envelope {
	if available == nil {
		available = []string{}
	}
	return Envelope{
		Err:            fmt.Sprintf("Tool '%s' not found", name),
		AvailableTools: available,
		Kind:           KindNotFound,
	}
}

// OK reports whether the envelope is a success.
func (e Envelope) OK() bool {
	return e.Kind == KindNone
}

// MarshalJSON emits the envelope's wire shape: {"result": ...} on
// success, {"error": ...} on failure, with "available_tools" added only
// for unknown-tool failures. The two shapes never mix.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.OK() {
		return json.Marshal(struct {
			Result string `json:"result"`
		}{e.Result})
	}
	if e.Kind == KindNotFound {
		available := e.AvailableTools
		if available == nil {
			available = []string{}
		}
		return json.Marshal(struct {
			Error          string   `json:"error"`
			AvailableTools []string `json:"available_tools"`
		}{e.Err, available})
	}
	return json.Marshal(struct {
		Error string `json:"error"`
	}{e.Err})
}

// String returns the envelope's wire shape as compact JSON.
func (e Envelope) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}
