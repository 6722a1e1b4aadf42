package provider

import (
	"fmt"
	"strings"
)

// Kind identifies one of the supported LLM vendors.
type Kind int

const (
	OpenAI Kind = iota
	Anthropic
)

// Kinds lists every supported provider.
var Kinds = []Kind{OpenAI, Anthropic}

// String returns the lowercase provider identifier (e.g. "openai").
func (k Kind) String() string {
	switch k {
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind matches s case-insensitively against the provider identifiers.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, true
		}
	}
	return 0, false
}

// dialect returns the request builder and response parser for k.
func (k Kind) dialect() dialect {
	switch k {
	case OpenAI:
		return openaiDialect{}
	case Anthropic:
		return anthropicDialect{}
	}
	panic(fmt.Sprintf("provider: no dialect for %s", k))
}
