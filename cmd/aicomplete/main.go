package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/jdgilhuly/aicomplete/pkg/config"
	"github.com/jdgilhuly/aicomplete/pkg/observability"
	"github.com/jdgilhuly/aicomplete/pkg/prompt"
	"github.com/jdgilhuly/aicomplete/pkg/provider"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := run(a, nil); err != nil {
		os.Exit(1)
	}
}

// run executes the command line args (os.Args when nil) and always flushes
// traces afterwards, whether or not the command failed.
func run(a *app, args []string) error {
	root := newRootCmd(a)
	if args != nil {
		root.SetArgs(args)
	}
	err := root.Execute()
	if serr := a.shutdown(context.Background()); serr != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", serr)
		return errors.Join(err, serr)
	}
	return err
}

// app carries the I/O streams and the state built by the root command
// before any subcommand runs.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// transport replaces the HTTP transport when set.
	transport provider.Transport
	// tp, when set before setup, is used instead of --otlp-endpoint.
	tp *sdktrace.TracerProvider

	v       *viper.Viper
	file    config.Map
	lookup  config.Lookup
	timeout time.Duration
}

func newRootCmd(a *app) *cobra.Command {
	a.v = viper.New()
	a.v.AutomaticEnv()
	a.v.AllowEmptyEnv(true)

	root := &cobra.Command{
		Use:   "aicomplete",
		Short: "Text completion through OpenAI or Anthropic",
		Long: `Send conversations to a hosted language model and print the answer.

The provider is chosen by PSQLX_AI_PROVIDER (openai or anthropic, default
openai) and authenticated with OPENAI_API_KEY or ANTHROPIC_API_KEY.
PSQLX_AI_MODEL and PSQLX_AI_MAX_TOKENS override the defaults. Flags beat
environment variables, which beat the --config file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.String("provider", "", "Provider: openai or anthropic (overrides "+config.KeyProvider+")")
	pf.String("model", "", "Model name (overrides "+config.KeyModel+")")
	pf.String("max-tokens", "", "Token cap per answer (overrides "+config.KeyMaxTokens+")")
	pf.StringP("config", "c", "", "Path to a YAML file of configuration keys")
	pf.Duration("timeout", 60*time.Second, "Deadline for each completion (0 = none)")
	pf.String("otlp-endpoint", "", "Export traces over OTLP/HTTP to host:port")
	pf.String("prompts-dir", "prompts", "Directory of system instruction files")

	for key, flag := range map[string]string{
		config.KeyProvider:  "provider",
		config.KeyModel:     "model",
		config.KeyMaxTokens: "max-tokens",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newPromptsCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newResolveCmd(a),
		newValidateCmd(a),
	)
	return root
}

// setup builds the configuration chain and, when requested, tracing.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	file, err := config.LoadFileOrEmpty(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.file = file
	a.lookup = config.Chain{config.Viper(a.v), file}

	a.timeout, _ = cmd.Flags().GetDuration("timeout")

	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	if endpoint != "" && a.tp == nil {
		tp, err := observability.Setup(cmd.Context(), endpoint)
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		a.tp = tp
	}
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.tp == nil {
		return nil
	}
	tp := a.tp
	a.tp = nil
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("flushing traces: %w", err)
	}
	return nil
}

// dispatcher returns a Dispatcher over the configured lookup chain.
func (a *app) dispatcher() *provider.Dispatcher {
	var t provider.Transport = provider.NewHTTPTransport()
	if a.transport != nil {
		t = a.transport
	}
	if a.tp != nil {
		t = provider.NewTracingTransport(t, a.tp)
	}
	return provider.NewDispatcher(a.lookup, provider.WithTransport(t))
}

// completer returns the dispatcher with the --timeout deadline applied to
// every call.
func (a *app) completer() provider.Completer {
	return deadlineCompleter{next: a.dispatcher(), timeout: a.timeout}
}

type deadlineCompleter struct {
	next    provider.Completer
	timeout time.Duration
}

func (d deadlineCompleter) Complete(ctx context.Context, messages []provider.Message, system string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.next.Complete(ctx, messages, system)
}

// loadPrompts reads the prompt directory. A missing directory yields no
// prompts, leaving only the built-in default.
func loadPrompts(cmd *cobra.Command) ([]*prompt.Instruction, error) {
	dir, _ := cmd.Flags().GetString("prompts-dir")
	if dir == "" {
		return nil, nil
	}
	prompts, err := prompt.LoadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return prompts, err
}

// systemInstruction renders the instruction selected by --prompt with the
// --var values.
func systemInstruction(cmd *cobra.Command) (string, error) {
	prompts, err := loadPrompts(cmd)
	if err != nil {
		return "", err
	}
	name, _ := cmd.Flags().GetString("prompt")
	p, err := prompt.Find(prompts, name)
	if err != nil {
		return "", err
	}
	vars, _ := cmd.Flags().GetStringToString("var")
	data := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		data[k] = v
	}
	return p.Render(data)
}

func addPromptFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("prompt", "p", prompt.DefaultName, "System instruction to use")
	cmd.Flags().StringToString("var", nil, "Template variable for the instruction (key=value)")
}
