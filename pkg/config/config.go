package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Configuration keys read by the provider resolver. They double as
// environment variable names.
const (
	KeyProvider        = "PSQLX_AI_PROVIDER"
	KeyModel           = "PSQLX_AI_MODEL"
	KeyMaxTokens       = "PSQLX_AI_MAX_TOKENS"
	KeyOpenAIAPIKey    = "OPENAI_API_KEY"
	KeyAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// Keys lists every key the resolver may read, in a stable order.
var Keys = []string{
	KeyProvider,
	KeyModel,
	KeyMaxTokens,
	KeyOpenAIAPIKey,
	KeyAnthropicAPIKey,
}

// Lookup is a string-keyed configuration source.
type Lookup interface {
	// Lookup returns the value stored under key and whether it was present.
	Lookup(key string) (string, bool)
}

// LookupFunc adapts an ordinary function to the Lookup interface.
type LookupFunc func(key string) (string, bool)

// Lookup calls f(key).
func (f LookupFunc) Lookup(key string) (string, bool) { return f(key) }

// Env reads from the process environment.
var Env Lookup = LookupFunc(os.LookupEnv)

// Map is a static Lookup, mostly useful in tests.
type Map map[string]string

// Lookup returns m[key].
func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Get reads key from l. An empty value counts as unset; use Raw where
// present-but-empty must be told apart from absent.
func Get(l Lookup, key string) (string, bool) {
	if l == nil {
		return "", false
	}
	v, ok := l.Lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Raw reads key from l as stored, keeping empty values. A nil l has no keys.
func Raw(l Lookup, key string) (string, bool) {
	if l == nil {
		return "", false
	}
	return l.Lookup(key)
}

// Chain consults each source in order and returns the first non-empty hit.
// When no source has a non-empty value but some source holds the key with
// an empty value, the key is reported present and empty.
type Chain []Lookup

// Lookup implements Lookup.
func (c Chain) Lookup(key string) (string, bool) {
	present := false
	for _, l := range c {
		v, ok := Raw(l, key)
		if ok && v != "" {
			return v, true
		}
		present = present || ok
	}
	return "", present
}

// LoadFile reads a YAML file of top-level KEY: value pairs. Scalar values of
// any type are kept in their textual form; nested values are rejected.
func LoadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	m := make(Map, len(raw))
	var errs []error
	for k, v := range raw {
		switch v.(type) {
		case nil:
			continue
		case map[string]interface{}, []interface{}:
			errs = append(errs, fmt.Errorf("key %s: expected a scalar value", k))
			continue
		}
		m[k] = fmt.Sprint(v)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return m, nil
}

// LoadFileOrEmpty loads the config file at path. A missing file yields an
// empty Map; other errors (e.g. parse failures) are still returned.
func LoadFileOrEmpty(path string) (Map, error) {
	if path == "" {
		return Map{}, nil
	}
	m, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Map{}, nil
		}
		return nil, err
	}
	return m, nil
}

// Unknown returns the keys of m that the resolver never reads, sorted.
func (m Map) Unknown() []string {
	known := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		known[k] = true
	}
	var out []string
	for k := range m {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
