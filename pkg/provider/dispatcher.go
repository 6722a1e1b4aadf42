package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jdgilhuly/aicomplete/pkg/config"
)

// Completer turns a conversation into generated text.
type Completer interface {
	// Complete sends messages with the given system instruction to the
	// configured provider and returns the first piece of generated text.
	Complete(ctx context.Context, messages []Message, system string) (string, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport sets the transport used for the HTTP exchange.
func WithTransport(t Transport) Option {
	return func(d *Dispatcher) { d.transport = t }
}

// Dispatcher implements Completer. It resolves the provider from
// configuration on every call and keeps no per-call state, so one
// Dispatcher may serve concurrent callers.
type Dispatcher struct {
	resolver  *Resolver
	transport Transport
}

var _ Completer = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher reading configuration from cfg.
func NewDispatcher(cfg config.Lookup, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:  NewResolver(cfg),
		transport: NewHTTPTransport(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolver returns the resolver the dispatcher uses.
func (d *Dispatcher) Resolver() *Resolver { return d.resolver }

// Complete implements Completer. It makes exactly one transport call, and
// none at all when resolution fails.
func (d *Dispatcher) Complete(ctx context.Context, messages []Message, system string) (string, error) {
	rc, err := d.resolver.Resolve()
	if err != nil {
		return "", err
	}
	dl := rc.Provider.dialect()

	base := baseRequest{Temperature: 0.0, Model: rc.Model}
	body, err := json.Marshal(dl.buildBody(base, system, messages, rc.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("building request body: %w", err)
	}

	respBody, err := d.transport.PostJSON(ctx, rc.Endpoint, rc.Headers, body)
	if err != nil {
		ce := &CompletionError{
			Kind:     ErrTransport,
			Provider: rc.Provider.String(),
			Endpoint: rc.Endpoint,
			Err:      err,
		}
		var se *StatusError
		if errors.As(err, &se) {
			ce.StatusCode = se.StatusCode
		}
		return "", ce
	}

	text, err := dl.parse(respBody)
	if err != nil {
		var ce *CompletionError
		if errors.As(err, &ce) {
			ce.Provider = rc.Provider.String()
			ce.Endpoint = rc.Endpoint
		}
		return "", err
	}
	return text, nil
}
