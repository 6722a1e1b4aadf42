package completetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jdgilhuly/aicomplete/pkg/provider"
)

// Reply is one scripted answer: text on success, or an error.
type Reply struct {
	Text string
	Err  error
}

// Call records one Complete invocation.
type Call struct {
	Messages []provider.Message
	System   string
}

// MockCompleter returns pre-configured replies in sequence. It is safe for
// concurrent use.
type MockCompleter struct {
	mu      sync.Mutex
	replies []Reply
	idx     int
	calls   []Call
}

var _ provider.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a MockCompleter that returns the given replies in
// order. Once all replies are consumed, subsequent calls return an error.
func NewMockCompleter(replies ...Reply) *MockCompleter {
	return &MockCompleter{replies: replies}
}

// Complete returns the next reply and records the call.
func (m *MockCompleter) Complete(_ context.Context, messages []provider.Message, system string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{
		Messages: append([]provider.Message(nil), messages...),
		System:   system,
	})

	if m.idx >= len(m.replies) {
		return "", fmt.Errorf("mock completer: no more replies (consumed %d/%d)", m.idx, len(m.replies))
	}
	r := m.replies[m.idx]
	m.idx++
	return r.Text, r.Err
}

// Calls returns every recorded call.
func (m *MockCompleter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// EchoCompleter answers with the content of the last user message.
type EchoCompleter struct{}

// Complete implements provider.Completer.
func (EchoCompleter) Complete(_ context.Context, messages []provider.Message, _ string) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content, nil
		}
	}
	return "", provider.ErrEmptyContent
}

// Request records one PostJSON invocation.
type Request struct {
	URL     string
	Headers []provider.Header
	Body    []byte
}

// Transport is a provider.Transport that answers with fixed bodies in
// sequence and records every request.
type Transport struct {
	mu       sync.Mutex
	bodies   []string
	err      error
	requests []Request
}

var _ provider.Transport = (*Transport)(nil)

// NewTransport returns a Transport replying with bodies in order; the last
// body is repeated once the others are used up.
func NewTransport(bodies ...string) *Transport {
	return &Transport{bodies: bodies}
}

// NewFailingTransport returns a Transport whose every call fails with err.
func NewFailingTransport(err error) *Transport {
	return &Transport{err: err}
}

// PostJSON implements provider.Transport.
func (t *Transport) PostJSON(_ context.Context, url string, headers []provider.Header, body []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.requests)
	t.requests = append(t.requests, Request{
		URL:     url,
		Headers: append([]provider.Header(nil), headers...),
		Body:    append([]byte(nil), body...),
	})

	if t.err != nil {
		return nil, t.err
	}
	if len(t.bodies) == 0 {
		return nil, fmt.Errorf("completetest: no response configured")
	}
	if n >= len(t.bodies) {
		n = len(t.bodies) - 1
	}
	return []byte(t.bodies[n]), nil
}

// Requests returns every recorded request.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}
