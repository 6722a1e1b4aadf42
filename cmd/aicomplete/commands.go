package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jdgilhuly/aicomplete/pkg/batch"
	"github.com/jdgilhuly/aicomplete/pkg/config"
	"github.com/jdgilhuly/aicomplete/pkg/metacmd"
	"github.com/jdgilhuly/aicomplete/pkg/prompt"
	"github.com/jdgilhuly/aicomplete/pkg/provider"
	"github.com/jdgilhuly/aicomplete/pkg/server"
	"github.com/jdgilhuly/aicomplete/pkg/ui"
	"github.com/spf13/cobra"
)

// --- ask command ---

func newAskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a single question",
		Long: `Send one question to the configured provider and print the answer
on standard output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := systemInstruction(cmd)
			if err != nil {
				return err
			}

			sp := ui.NewSpinner(a.stderr, "Thinking...")
			sp.Start()
			text, err := metacmd.NewAICommand("ai", a.completer(), system, nil).
				Execute(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				sp.Fail("completion failed")
				return err
			}
			sp.Stop()

			fmt.Fprintln(a.stdout, text)
			return nil
		},
	}
	addPromptFlags(cmd)
	return cmd
}

// --- chat command ---

func newChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start a conversational session. Plain lines are sent to the model
with the earlier turns of the session as context.

Meta-commands:
  \ai <question>   ask (same as a plain line)
  \ai-reset        forget the conversation
  \?               list meta-commands
  \q               quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := systemInstruction(cmd)
			if err != nil {
				return err
			}
			history, _ := cmd.Flags().GetInt("history")

			registry := metacmd.NewRegistry()
			if err := registry.Register(metacmd.NewAIPlugin(a.completer(), system, metacmd.NewSession(history))); err != nil {
				return err
			}
			return runChat(cmd.Context(), a, registry)
		},
	}
	addPromptFlags(cmd)
	cmd.Flags().Int("history", metacmd.DefaultHistory, "Messages of context kept in the session")
	return cmd
}

func runChat(ctx context.Context, a *app, registry *metacmd.Registry) error {
	fmt.Fprintln(a.stderr)
	ui.Cyan.Fprintln(a.stderr, "  aicomplete chat")
	ui.Dim.Fprintf(a.stderr, "  Type \\? for meta-commands, \\q to quit.\n\n")

	scanner := bufio.NewScanner(a.stdin)
	for {
		ui.Green.Fprint(a.stderr, "  you → ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case `\q`, "exit", "quit":
			return nil
		case `\?`:
			ui.Dim.Fprintf(a.stderr, "  %s\n\n", `\`+strings.Join(registry.Commands(), `  \`))
			continue
		}
		if !strings.HasPrefix(line, `\`) {
			line = `\ai ` + line
		}

		sp := ui.NewSpinner(a.stderr, "Thinking...")
		sp.Start()
		reply, err := registry.Dispatch(ctx, line)
		sp.Stop()

		if err != nil {
			ui.Red.Fprintf(a.stderr, "  Error: %v\n\n", err)
			continue
		}
		ui.Cyan.Fprint(a.stderr, "  ai → ")
		fmt.Fprintf(a.stdout, "%s\n\n", reply)
	}
	return scanner.Err()
}

// --- prompts command ---

func newPromptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List available system instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := loadPrompts(cmd)
			if err != nil {
				return err
			}
			if !hasPrompt(prompts, prompt.DefaultName) {
				prompts = append([]*prompt.Instruction{prompt.Default()}, prompts...)
			}

			for _, p := range prompts {
				desc := p.Description
				if desc == "" {
					desc = "(no description)"
				}
				fmt.Fprintf(a.stdout, "  %-20s %s\n", p.Name, desc)
			}
			return nil
		},
	}
}

func hasPrompt(prompts []*prompt.Instruction, name string) bool {
	for _, p := range prompts {
		if p.Name == name {
			return true
		}
	}
	return false
}

// --- batch command ---

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Run a file of independent completions",
		Long: `Run every item of a batch file against the configured provider with
bounded concurrency. Each item gets its own --timeout deadline. Results are
written as JSON to --output or standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := batch.Load(args[0])
			if err != nil {
				return err
			}
			if err := f.Validate(); err != nil {
				return fmt.Errorf("invalid batch file: %w", err)
			}

			concurrency, _ := cmd.Flags().GetInt("concurrency")
			r := batch.New(batch.Config{Concurrency: concurrency, Timeout: a.timeout})
			result := r.Run(cmd.Context(), f, a.dispatcher(), func(index, total int, name string, elapsed time.Duration, err error) {
				if err != nil {
					ui.Red.Fprintf(a.stderr, "  [%d/%d] ✗ %s: %v\n", index+1, total, name, err)
					return
				}
				ui.Green.Fprintf(a.stderr, "  [%d/%d] ✓ %s (%s)\n", index+1, total, name, elapsed.Round(time.Millisecond))
			})

			data, err := result.JSON()
			if err != nil {
				return fmt.Errorf("encoding results: %w", err)
			}
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				fmt.Fprintln(a.stdout, string(data))
			} else if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			if n := result.Failed(); n > 0 {
				return fmt.Errorf("%d of %d items failed", n, len(result.Items))
			}
			return nil
		},
	}
	cmd.Flags().IntP("concurrency", "j", 4, "Max concurrent completions")
	cmd.Flags().StringP("output", "o", "", "Write results JSON to this file")
	return cmd
}

// --- serve command ---

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve completions over HTTP",
		Long: `Start an HTTP server exposing:

  POST /v1/complete   {"system": "...", "messages": [...]} -> {"text": "..."}
  GET  /v1/provider   the active provider, model, endpoint and token cap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := systemInstruction(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")

			d := a.dispatcher()
			srv := server.New(deadlineCompleter{next: d, timeout: a.timeout}, d.Resolver(),
				server.WithAddress(addr),
				server.WithDefaultSystem(system),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ui.Dim.Fprintf(a.stderr, "  listening on %s\n", srv.Addr())
			return srv.Start(ctx)
		},
	}
	addPromptFlags(cmd)
	cmd.Flags().String("addr", ":8080", "Listen address")
	return cmd
}

// --- resolve command ---

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Show the request configuration that would be used",
		Long: `Resolve the provider, model, endpoint, headers and token cap from the
current configuration. Credentials are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := provider.NewResolver(a.lookup).Resolve()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "provider:   %s\n", rc.Provider)
			fmt.Fprintf(a.stdout, "model:      %s\n", rc.Model)
			fmt.Fprintf(a.stdout, "endpoint:   %s\n", rc.Endpoint)
			fmt.Fprintf(a.stdout, "max_tokens: %d\n", rc.MaxTokens)
			fmt.Fprintln(a.stdout, "headers:")
			for _, h := range rc.Headers {
				h = h.Redacted()
				fmt.Fprintf(a.stdout, "  %s: %s\n", h.Name, h.Value)
			}
			return nil
		},
	}
}

// --- validate command ---

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and prompt files",
		Long: `Report every configuration problem at once: unknown provider, missing
credential, bad token cap, unrecognized keys in the --config file and
invalid system instruction files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			if err := provider.NewResolver(a.lookup).Validate(); err != nil {
				errs = append(errs, err)
			}
			if unknown := a.file.Unknown(); len(unknown) > 0 {
				errs = append(errs, fmt.Errorf("unknown config keys: %s (known: %s)",
					strings.Join(unknown, ", "), strings.Join(config.Keys, ", ")))
			}

			prompts, err := loadPrompts(cmd)
			if err != nil {
				errs = append(errs, err)
			}
			for _, p := range prompts {
				if err := p.Validate(); err != nil {
					errs = append(errs, err)
				}
			}

			if err := errors.Join(errs...); err != nil {
				return fmt.Errorf("validation failed:\n%w", err)
			}
			fmt.Fprintln(a.stdout, "Configuration is valid.")
			return nil
		},
	}
}
