package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport sends a JSON body and returns the response body.
type Transport interface {
	// PostJSON POSTs body to url with headers attached. A non-2xx status is
	// an error (*StatusError).
	PostJSON(ctx context.Context, url string, headers []Header, body []byte) ([]byte, error)
}

// StatusError is returned for non-2xx HTTP answers.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// apiErrorResponse is the error envelope shared by OpenAI and Anthropic.
type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) { t.client = c }
}

// HTTPTransport implements Transport over net/http. It sets no timeout of
// its own: requests run until they finish or ctx is done.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport backed by a fresh http.Client.
func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{client: &http.Client{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PostJSON implements Transport.
func (t *HTTPTransport) PostJSON(ctx context.Context, url string, headers []Header, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	for _, h := range headers {
		httpReq.Header.Set(h.Name, h.Value)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending HTTP request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, &StatusError{StatusCode: httpResp.StatusCode, Message: apiErr.Error.Message}
		}
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}
