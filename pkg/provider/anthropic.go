package provider

import (
	"encoding/json"

	"github.com/jdgilhuly/aicomplete/pkg/config"
)

const (
	defaultAnthropicURL     = "https://api.anthropic.com/v1/messages"
	defaultAnthropicVersion = "2023-06-01"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
)

// anthropicRequest is the Anthropic Messages API request body. The system
// instruction is a top-level field, never part of the message list.
type anthropicRequest struct {
	baseRequest
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// anthropicResponse is the part of the Messages API response we read.
type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Text string `json:"text"`
}

var anthropicResponseSchema = mustCompileSchema("anthropic-response.json", `{
	"type": "object",
	"required": ["content"],
	"properties": {
		"content": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["text"],
				"properties": {
					"text": {"type": "string"}
				}
			}
		}
	}
}`)

type anthropicDialect struct{}

func (anthropicDialect) credentialKey() string { return config.KeyAnthropicAPIKey }
func (anthropicDialect) defaultModel() string  { return defaultAnthropicModel }
func (anthropicDialect) endpoint() string      { return defaultAnthropicURL }

func (anthropicDialect) headers(apiKey string) []Header {
	return []Header{
		{Name: "x-api-key", Value: apiKey},
		{Name: "Content-Type", Value: "application/json"},
		{Name: "anthropic-version", Value: defaultAnthropicVersion},
	}
}

func (anthropicDialect) buildBody(base baseRequest, system string, msgs []Message, maxTokens int) any {
	if msgs == nil {
		msgs = []Message{}
	}
	return anthropicRequest{
		baseRequest: base,
		System:      system,
		Messages:    msgs,
		MaxTokens:   maxTokens,
	}
}

func (anthropicDialect) parse(body []byte) (string, error) {
	if err := checkShape(anthropicResponseSchema, body); err != nil {
		return "", err
	}

	var ar anthropicResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", &CompletionError{Kind: ErrMalformedResponse, Err: err}
	}

	if len(ar.Content) == 0 || ar.Content[0].Text == "" {
		return "", &CompletionError{Kind: ErrEmptyContent}
	}
	return ar.Content[0].Text, nil
}
