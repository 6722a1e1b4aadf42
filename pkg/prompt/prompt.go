package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultName is the name of the built-in instruction.
const DefaultName = "default"

const defaultSystem = `You are an assistant embedded in the psql command-line client.
Answer questions about PostgreSQL and SQL precisely and concisely.
When the user asks for a query, reply with a single runnable SQL statement
followed by a one-sentence explanation. Do not use markdown.`

// Instruction is a system instruction template loaded from YAML.
type Instruction struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	System      string            `yaml:"system"`
	Variables   []string          `yaml:"variables"`
	Metadata    map[string]string `yaml:"metadata"`
}

// Default returns the built-in instruction used when none is configured.
func Default() *Instruction {
	return &Instruction{
		Name:        DefaultName,
		Description: "PostgreSQL assistant for psql users",
		System:      defaultSystem,
	}
}

// Load reads a single Instruction from a YAML file at path.
func Load(path string) (*Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file %s: %w", path, err)
	}

	var p Instruction
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}

	return &p, nil
}

// LoadDir loads all .yaml and .yml files from dir, sorted by name.
func LoadDir(dir string) ([]*Instruction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading prompt directory %s: %w", dir, err)
	}

	var prompts []*Instruction
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		p, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}

	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts, nil
}

// Find returns the instruction called name. The built-in default is found
// even when no loaded instruction uses that name.
func Find(prompts []*Instruction, name string) (*Instruction, error) {
	for _, p := range prompts {
		if p.Name == name {
			return p, nil
		}
	}
	if name == DefaultName {
		return Default(), nil
	}
	return nil, fmt.Errorf("prompt %q not found", name)
}

// Validate checks that the Instruction has the minimum required fields.
func (p *Instruction) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if strings.TrimSpace(p.System) == "" {
		return fmt.Errorf("prompt %q must have a system instruction", p.Name)
	}
	return nil
}

// Render applies Go text/template rendering to the system instruction.
// Every declared variable must be supplied, and the template may not
// reference undeclared ones.
func (p *Instruction) Render(vars map[string]interface{}) (string, error) {
	for _, v := range p.Variables {
		if _, ok := vars[v]; !ok {
			return "", fmt.Errorf("rendering prompt %q: missing variable %q", p.Name, v)
		}
	}

	out, err := renderTemplate(p.Name+".system", p.System, vars)
	if err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", p.Name, err)
	}
	return out, nil
}

// renderTemplate parses and executes a Go text/template with "missingkey=error"
// so that undefined variables produce an error instead of empty strings.
func renderTemplate(name, text string, vars map[string]interface{}) (string, error) {
	if text == "" {
		return "", nil
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
