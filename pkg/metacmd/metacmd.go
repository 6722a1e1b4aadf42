// Package metacmd implements backslash meta-commands (\ai, \ai-reset, ...)
// and the registry that routes an input line to the right command.
package metacmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for unregistered names.
var ErrUnknownCommand = errors.New("unknown meta-command")

// MetaCommand is a single named command.
type MetaCommand interface {
	Name() string
	// Execute runs the command with everything after its name as args and
	// returns the text to show the user.
	Execute(ctx context.Context, args string) (string, error)
}

// Plugin groups related meta-commands under a name and version.
type Plugin interface {
	Name() string
	Version() string
	MetaCommands() []MetaCommand
}

// Registry maps command names to commands. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]MetaCommand
	plugins  []Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]MetaCommand)}
}

// Register adds every command of p. Nothing is registered if any name is
// already taken.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmds := p.MetaCommands()
	for _, c := range cmds {
		if _, ok := r.commands[c.Name()]; ok {
			return fmt.Errorf("plugin %s: meta-command %q already registered", p.Name(), c.Name())
		}
	}
	for _, c := range cmds {
		r.commands[c.Name()] = c
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Commands returns the registered command names, sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Plugin(nil), r.plugins...)
}

// Parse splits a line such as `\ai how big is my table` into the command
// name and its arguments. The leading backslash is optional.
func Parse(line string) (name, args string) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, `\`)
	name, args, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(args)
}

// Dispatch parses line and runs the matching command.
func (r *Registry) Dispatch(ctx context.Context, line string) (string, error) {
	name, args := Parse(line)
	if name == "" {
		return "", fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}

	r.mu.RLock()
	c, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return c.Execute(ctx, args)
}
