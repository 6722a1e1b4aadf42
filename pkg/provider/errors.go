package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error from resolution, from the transport or from
// reading a response matches exactly one of them with errors.Is. The one
// exception is a request body that fails to encode, which cannot happen for
// the body types defined here.
var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidConfig     = errors.New("invalid config")
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyChoices      = errors.New("no choices in response")
	ErrEmptyContent      = errors.New("no content in response")
)

// ConfigError reports a resolution failure.
type ConfigError struct {
	Kind     error  // ErrUnknownProvider, ErrMissingCredential or ErrInvalidConfig
	Key      string // configuration key at fault
	Value    string // offending value, empty when the key is absent
	Provider string // active provider, empty when not yet known
	Hint     string // remediation for the user
	Err      error  // underlying cause, may be nil
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Provider != "" {
		b.WriteString(" for ")
		b.WriteString(e.Provider)
	}
	if e.Key != "" {
		b.WriteString(": ")
		b.WriteString(e.Key)
		if e.Value != "" {
			fmt.Fprintf(&b, "=%q", e.Value)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Hint != "" {
		b.WriteString("; ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CompletionError reports a failure while talking to the provider or while
// reading its answer.
type CompletionError struct {
	Kind       error // ErrTransport, ErrMalformedResponse, ErrEmptyChoices or ErrEmptyContent
	Provider   string
	Endpoint   string
	StatusCode int // HTTP status for non-2xx answers, 0 otherwise
	Err        error
}

func (e *CompletionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Kind == ErrTransport && e.Endpoint != "" {
		msg += " (POST " + e.Endpoint + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompletionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
