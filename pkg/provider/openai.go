package provider

import (
	"encoding/json"

	"github.com/jdgilhuly/aicomplete/pkg/config"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
)

// openaiRequest is the OpenAI Chat Completions API request body.
type openaiRequest struct {
	baseRequest
	Messages            []Message `json:"messages"`
	MaxCompletionTokens int       `json:"max_completion_tokens"`
}

// openaiResponse is the part of the Chat Completions response we read.
type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message struct {
		Content *string `json:"content"`
	} `json:"message"`
}

var openaiResponseSchema = mustCompileSchema("openai-response.json", `{
	"type": "object",
	"required": ["choices"],
	"properties": {
		"choices": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["message"],
				"properties": {
					"message": {
						"type": "object",
						"properties": {
							"content": {"type": ["string", "null"]}
						}
					}
				}
			}
		}
	}
}`)

type openaiDialect struct{}

func (openaiDialect) credentialKey() string { return config.KeyOpenAIAPIKey }
func (openaiDialect) defaultModel() string  { return defaultOpenAIModel }
func (openaiDialect) endpoint() string      { return defaultOpenAIURL }

func (openaiDialect) headers(apiKey string) []Header {
	return []Header{
		{Name: "Authorization", Value: "Bearer " + apiKey},
		{Name: "Content-Type", Value: "application/json"},
	}
}

func (openaiDialect) buildBody(base baseRequest, system string, msgs []Message, maxTokens int) any {
	return openaiRequest{
		baseRequest:         base,
		Messages:            withSystemMessage(system, msgs),
		MaxCompletionTokens: maxTokens,
	}
}

// withSystemMessage returns a new slice with the system instruction as the
// first message followed by msgs. msgs itself is left untouched.
func withSystemMessage(system string, msgs []Message) []Message {
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, Message{Role: "system", Content: system})
	return append(out, msgs...)
}

func (openaiDialect) parse(body []byte) (string, error) {
	if err := checkShape(openaiResponseSchema, body); err != nil {
		return "", err
	}

	var or openaiResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return "", &CompletionError{Kind: ErrMalformedResponse, Err: err}
	}

	if len(or.Choices) == 0 {
		return "", &CompletionError{Kind: ErrEmptyChoices}
	}
	content := or.Choices[0].Message.Content
	if content == nil || *content == "" {
		return "", &CompletionError{Kind: ErrEmptyContent}
	}
	return *content, nil
}
