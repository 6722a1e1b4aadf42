package provider

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Message is one conversation turn. The dispatcher relays messages in order
// and never inspects them. Content is plain text only: structured content
// such as Anthropic content-block arrays or OpenAI image parts cannot be
// expressed.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// baseRequest holds the fields shared by every provider request body.
type baseRequest struct {
	Temperature float64 `json:"temperature"`
	Model       string  `json:"model"`
}

// dialect is the per-provider wire format: constants, request builder and
// response parser.
type dialect interface {
	credentialKey() string
	defaultModel() string
	endpoint() string
	headers(apiKey string) []Header

	// buildBody returns the JSON-serializable request body.
	buildBody(base baseRequest, system string, msgs []Message, maxTokens int) any

	// parse extracts the completion text from a response body. Failures
	// are *CompletionError values; the dispatcher fills in the provider
	// and endpoint.
	parse(body []byte) (string, error)
}

// mustCompileSchema compiles a JSON Schema literal. It panics on a bad
// literal, like regexp.MustCompile.
func mustCompileSchema(name, src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("provider: invalid schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("provider: invalid schema %s: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("provider: compiling schema %s: %v", name, err))
	}
	return sch
}

// checkShape verifies that body is JSON matching sch.
func checkShape(sch *jsonschema.Schema, body []byte) error {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &CompletionError{Kind: ErrMalformedResponse, Err: err}
	}
	if err := sch.Validate(v); err != nil {
		return &CompletionError{Kind: ErrMalformedResponse, Err: err}
	}
	return nil
}
