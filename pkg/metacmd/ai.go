package metacmd

import (
	"context"
	"errors"
	"sync"

	"github.com/jdgilhuly/aicomplete/pkg/provider"
)

// DefaultHistory is how many messages a Session keeps.
const DefaultHistory = 20

// ErrEmptyInput is returned when an AI command gets no question.
var ErrEmptyInput = errors.New("no input given")

// Session holds the in-memory conversation of one interactive session.
// Only the most recent messages are kept. It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	history []provider.Message
	max     int
}

// NewSession returns a Session that keeps at most max messages. A max below
// one uses DefaultHistory.
func NewSession(max int) *Session {
	if max < 1 {
		max = DefaultHistory
	}
	return &Session{max: max}
}

// Messages returns a copy of the history.
func (s *Session) Messages() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Message(nil), s.history...)
}

// Append adds msgs and drops the oldest messages beyond the limit.
func (s *Session) Append(msgs ...provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
	if over := len(s.history) - s.max; over > 0 {
		s.history = append([]provider.Message(nil), s.history[over:]...)
	}
}

// Reset clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Len returns the number of stored messages.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// AICommand asks the completer a question. With a Session attached, prior
// turns are sent along and the exchange is recorded on success.
type AICommand struct {
	name      string
	completer provider.Completer
	system    string
	session   *Session
}

// NewAICommand returns an AICommand named name. session may be nil.
func NewAICommand(name string, c provider.Completer, system string, session *Session) *AICommand {
	return &AICommand{name: name, completer: c, system: system, session: session}
}

// Name implements MetaCommand.
func (c *AICommand) Name() string { return c.name }

// Execute implements MetaCommand.
func (c *AICommand) Execute(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", ErrEmptyInput
	}
	question := provider.Message{Role: "user", Content: args}

	var msgs []provider.Message
	if c.session != nil {
		msgs = c.session.Messages()
	}
	msgs = append(msgs, question)

	reply, err := c.completer.Complete(ctx, msgs, c.system)
	if err != nil {
		return "", err
	}

	if c.session != nil {
		c.session.Append(question, provider.Message{Role: "assistant", Content: reply})
	}
	return reply, nil
}

// resetCommand clears a Session.
type resetCommand struct {
	name    string
	session *Session
}

func (c resetCommand) Name() string { return c.name }

func (c resetCommand) Execute(context.Context, string) (string, error) {
	c.session.Reset()
	return "Conversation cleared.", nil
}

// AIPlugin bundles the AI meta-commands.
type AIPlugin struct {
	commands []MetaCommand
}

var _ Plugin = (*AIPlugin)(nil)

// NewAIPlugin returns a plugin providing \ai (conversational, backed by
// session) and \ai-reset.
func NewAIPlugin(c provider.Completer, system string, session *Session) *AIPlugin {
	if session == nil {
		session = NewSession(DefaultHistory)
	}
	return &AIPlugin{commands: []MetaCommand{
		NewAICommand("ai", c, system, session),
		resetCommand{name: "ai-reset", session: session},
	}}
}

// Name implements Plugin.
func (p *AIPlugin) Name() string { return "ai" }

// Version implements Plugin.
func (p *AIPlugin) Version() string { return "0.1.0" }

// MetaCommands implements Plugin.
func (p *AIPlugin) MetaCommands() []MetaCommand { return p.commands }
