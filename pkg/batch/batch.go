// Package batch runs many independent completions from a YAML file with
// bounded concurrency and a per-item timeout.
package batch

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jdgilhuly/aicomplete/pkg/provider"
	"gopkg.in/yaml.v3"
)

// File is a batch of completion items.
type File struct {
	Name   string `yaml:"name"`
	System string `yaml:"system"`
	Items  []Item `yaml:"items"`
}

// Item is one completion request. Input, when set, is sent as a final user
// message after Messages.
type Item struct {
	Name     string             `yaml:"name"`
	System   string             `yaml:"system"`
	Input    string             `yaml:"input"`
	Messages []provider.Message `yaml:"messages"`
	Timeout  time.Duration      `yaml:"timeout"`
}

// Conversation returns the messages to send for the item.
func (it Item) Conversation() []provider.Message {
	msgs := make([]provider.Message, 0, len(it.Messages)+1)
	msgs = append(msgs, it.Messages...)
	if it.Input != "" {
		msgs = append(msgs, provider.Message{Role: "user", Content: it.Input})
	}
	return msgs
}

// Load reads a batch File from a YAML file. The file-level system
// instruction is applied to items that don't set their own.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}

	f.applyDefaults()
	return &f, nil
}

// Validate checks that every item is named and has something to send.
func (f *File) Validate() error {
	if len(f.Items) == 0 {
		return fmt.Errorf("batch %q must have at least one item", f.Name)
	}
	var errs []error
	seen := make(map[string]bool, len(f.Items))
	for i, it := range f.Items {
		switch {
		case it.Name == "":
			errs = append(errs, fmt.Errorf("item %d has no name", i))
		case seen[it.Name]:
			errs = append(errs, fmt.Errorf("item %d: duplicate name %q", i, it.Name))
		}
		seen[it.Name] = true
		if it.Input == "" && len(it.Messages) == 0 {
			errs = append(errs, fmt.Errorf("item %q: input or messages is required", it.Name))
		}
		if it.Timeout < 0 {
			errs = append(errs, fmt.Errorf("item %q: timeout must not be negative", it.Name))
		}
	}
	return errors.Join(errs...)
}

func (f *File) applyDefaults() {
	for i := range f.Items {
		if f.Items[i].System == "" {
			f.Items[i].System = f.System
		}
	}
}
