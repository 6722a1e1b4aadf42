package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestLoadFile(t *testing.T) {
	yaml := `
PSQLX_AI_PROVIDER: anthropic
PSQLX_AI_MODEL: claude-3-5-sonnet-latest
PSQLX_AI_MAX_TOKENS: 2048
ANTHROPIC_API_KEY: sk-ant-test
`
	path := writeTemp(t, yaml)
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	tests := map[string]string{
		KeyProvider:        "anthropic",
		KeyModel:           "claude-3-5-sonnet-latest",
		KeyMaxTokens:       "2048",
		KeyAnthropicAPIKey: "sk-ant-test",
	}
	for key, want := range tests {
		if got, ok := m.Lookup(key); !ok || got != want {
			t.Errorf("Lookup(%s) = %q, %v; want %q, true", key, got, ok, want)
		}
	}
	if _, ok := m.Lookup(KeyOpenAIAPIKey); ok {
		t.Errorf("Lookup(%s) present, want absent", KeyOpenAIAPIKey)
	}
}

func TestLoadFile_FileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("LoadFile() expected error for missing file, got nil")
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile() expected error for invalid YAML, got nil")
	}
}

func TestLoadFile_NestedValue(t *testing.T) {
	path := writeTemp(t, "PSQLX_AI_MODEL:\n  name: gpt-4o\n")
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile() expected error for nested value, got nil")
	}
	if !strings.Contains(err.Error(), "PSQLX_AI_MODEL") {
		t.Errorf("error = %q, want it to name the key", err)
	}
}

func TestLoadFileOrEmpty_FileMissing(t *testing.T) {
	m, err := LoadFileOrEmpty("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadFileOrEmpty() error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("len(m) = %d, want 0", len(m))
	}
}

func TestLoadFileOrEmpty_EmptyPath(t *testing.T) {
	m, err := LoadFileOrEmpty("")
	if err != nil {
		t.Fatalf("LoadFileOrEmpty() error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("len(m) = %d, want 0", len(m))
	}
}

func TestLoadFileOrEmpty_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{bad yaml")
	_, err := LoadFileOrEmpty(path)
	if err == nil {
		t.Fatal("LoadFileOrEmpty() expected error for invalid YAML, got nil")
	}
}

func TestMapUnknown(t *testing.T) {
	m := Map{KeyModel: "x", "ZETA": "1", "ALPHA": "2"}
	got := m.Unknown()
	if len(got) != 2 || got[0] != "ALPHA" || got[1] != "ZETA" {
		t.Errorf("Unknown() = %v, want [ALPHA ZETA]", got)
	}
}

func TestGet_EmptyIsUnset(t *testing.T) {
	m := Map{KeyModel: ""}
	if _, ok := Get(m, KeyModel); ok {
		t.Error("Get() ok = true for empty value, want false")
	}
	if _, ok := Get(nil, KeyModel); ok {
		t.Error("Get(nil) ok = true, want false")
	}
}

func TestChain(t *testing.T) {
	first := Map{KeyModel: "", KeyProvider: "anthropic"}
	second := Map{KeyModel: "gpt-4o", KeyProvider: "openai"}
	c := Chain{first, second}

	if got, _ := c.Lookup(KeyProvider); got != "anthropic" {
		t.Errorf("Lookup(provider) = %q, want %q", got, "anthropic")
	}
	// Empty values fall through to later sources.
	if got, _ := c.Lookup(KeyModel); got != "gpt-4o" {
		t.Errorf("Lookup(model) = %q, want %q", got, "gpt-4o")
	}
	if _, ok := c.Lookup(KeyMaxTokens); ok {
		t.Error("Lookup(max tokens) ok = true, want false")
	}
}

func TestChain_EmptyOnlyIsPresent(t *testing.T) {
	c := Chain{Map{}, Map{KeyProvider: ""}}
	v, ok := c.Lookup(KeyProvider)
	if !ok || v != "" {
		t.Errorf("Lookup(provider) = %q, %v; want \"\", true", v, ok)
	}
	if _, ok := Get(c, KeyProvider); ok {
		t.Error("Get() ok = true for empty chained value, want false")
	}
}

func TestRaw_KeepsEmpty(t *testing.T) {
	if v, ok := Raw(Map{KeyProvider: ""}, KeyProvider); !ok || v != "" {
		t.Errorf("Raw() = %q, %v; want \"\", true", v, ok)
	}
	if _, ok := Raw(nil, KeyProvider); ok {
		t.Error("Raw(nil) ok = true, want false")
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("AICOMPLETE_TEST_ENV_KEY", "value")
	if got, ok := Env.Lookup("AICOMPLETE_TEST_ENV_KEY"); !ok || got != "value" {
		t.Errorf("Env.Lookup() = %q, %v; want %q, true", got, ok, "value")
	}
}

func TestViper_Env(t *testing.T) {
	t.Setenv(KeyModel, "gpt-4o")
	v := viper.New()
	v.AutomaticEnv()

	l := Viper(v)
	if got, ok := l.Lookup(KeyModel); !ok || got != "gpt-4o" {
		t.Errorf("Lookup(%s) = %q, %v; want %q, true", KeyModel, got, ok, "gpt-4o")
	}
	if _, ok := l.Lookup("AICOMPLETE_DEFINITELY_UNSET"); ok {
		t.Error("Lookup(unset) ok = true, want false")
	}
}

func TestViper_EmptyEnvIsPresent(t *testing.T) {
	t.Setenv(KeyProvider, "")
	v := viper.New()
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	got, ok := Viper(v).Lookup(KeyProvider)
	if !ok || got != "" {
		t.Errorf("Lookup(%s) = %q, %v; want \"\", true", KeyProvider, got, ok)
	}
}

func TestViper_FlagOverridesEnvOnlyWhenChanged(t *testing.T) {
	t.Setenv(KeyProvider, "openai")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("provider", "anthropic", "")
	v := viper.New()
	v.AutomaticEnv()
	if err := v.BindPFlag(KeyProvider, fs.Lookup("provider")); err != nil {
		t.Fatalf("BindPFlag() error: %v", err)
	}

	l := Viper(v)
	if got, _ := l.Lookup(KeyProvider); got != "openai" {
		t.Errorf("unchanged flag: Lookup = %q, want %q", got, "openai")
	}

	if err := fs.Parse([]string{"--provider=Anthropic"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got, _ := l.Lookup(KeyProvider); got != "Anthropic" {
		t.Errorf("changed flag: Lookup = %q, want %q", got, "Anthropic")
	}
}

// writeTemp writes content to a temp YAML file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
