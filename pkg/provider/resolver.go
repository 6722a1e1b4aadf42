package provider

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jdgilhuly/aicomplete/pkg/config"
)

const defaultMaxTokens = 4096

// Header is a single HTTP header. Header lists keep their order.
type Header struct {
	Name  string
	Value string
}

// Redacted returns h with credential values masked, for display.
func (h Header) Redacted() Header {
	switch h.Name {
	case "Authorization", "x-api-key":
		return Header{Name: h.Name, Value: mask(h.Value)}
	}
	return h
}

func mask(s string) string {
	const visible = 4
	if len(s) <= visible*2 {
		return "****"
	}
	return s[:visible] + "****" + s[len(s)-visible:]
}

// Resolved is the full request configuration for one completion.
type Resolved struct {
	Provider  Kind
	Model     string
	Endpoint  string
	Headers   []Header
	MaxTokens int
}

// Resolver derives provider settings from a configuration source. It holds
// no state of its own, so every call re-reads the configuration.
type Resolver struct {
	Config config.Lookup
}

// NewResolver returns a Resolver reading from cfg.
func NewResolver(cfg config.Lookup) *Resolver {
	return &Resolver{Config: cfg}
}

func (r *Resolver) get(key string) (string, bool) {
	return config.Get(r.Config, key)
}

// Detect returns the configured provider. An unset selector falls back to
// OpenAI; a set but unrecognized one, including the empty string, is an
// error.
func (r *Resolver) Detect() (Kind, error) {
	v, ok := config.Raw(r.Config, config.KeyProvider)
	if !ok {
		return OpenAI, nil
	}
	k, ok := ParseKind(v)
	if !ok {
		return 0, &ConfigError{
			Kind:  ErrUnknownProvider,
			Key:   config.KeyProvider,
			Value: v,
			Hint:  fmt.Sprintf("set %s to %q or %q", config.KeyProvider, OpenAI, Anthropic),
		}
	}
	return k, nil
}

// APIKey returns the secret for k.
func (r *Resolver) APIKey(k Kind) (string, error) {
	key := k.dialect().credentialKey()
	v, ok := r.get(key)
	if !ok {
		return "", &ConfigError{
			Kind:     ErrMissingCredential,
			Key:      key,
			Provider: k.String(),
			Hint:     fmt.Sprintf("set the environment variable (%s=...) before usage to enable AI meta-commands", key),
		}
	}
	return v, nil
}

// Model returns the model override, or the provider default.
func (r *Resolver) Model(k Kind) string {
	if v, ok := r.get(config.KeyModel); ok {
		return v
	}
	return k.dialect().defaultModel()
}

// Endpoint returns the completions URL for k.
func (r *Resolver) Endpoint(k Kind) string {
	return k.dialect().endpoint()
}

// Headers returns the authentication and content headers for k.
func (r *Resolver) Headers(k Kind) ([]Header, error) {
	key, err := r.APIKey(k)
	if err != nil {
		return nil, err
	}
	return k.dialect().headers(key), nil
}

// MaxTokens returns the token budget. It does not depend on the provider.
func (r *Resolver) MaxTokens() (int, error) {
	v, ok := r.get(config.KeyMaxTokens)
	if !ok {
		return defaultMaxTokens, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, &ConfigError{
			Kind:  ErrInvalidConfig,
			Key:   config.KeyMaxTokens,
			Value: v,
			Hint:  "expected a positive integer",
			Err:   err,
		}
	}
	if n <= 0 {
		return 0, &ConfigError{
			Kind:  ErrInvalidConfig,
			Key:   config.KeyMaxTokens,
			Value: v,
			Hint:  "expected a positive integer",
		}
	}
	return int(n), nil
}

// Resolve runs every resolution step. Either all fields are set or an
// error is returned.
func (r *Resolver) Resolve() (*Resolved, error) {
	k, err := r.Detect()
	if err != nil {
		return nil, err
	}
	headers, err := r.Headers(k)
	if err != nil {
		return nil, err
	}
	maxTokens, err := r.MaxTokens()
	if err != nil {
		return nil, err
	}
	return &Resolved{
		Provider:  k,
		Model:     r.Model(k),
		Endpoint:  r.Endpoint(k),
		Headers:   headers,
		MaxTokens: maxTokens,
	}, nil
}

// Validate reports every resolution problem at once rather than stopping
// at the first.
func (r *Resolver) Validate() error {
	var errs []error
	k, err := r.Detect()
	if err != nil {
		errs = append(errs, err)
	} else if _, err := r.APIKey(k); err != nil {
		errs = append(errs, err)
	}
	if _, err := r.MaxTokens(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
