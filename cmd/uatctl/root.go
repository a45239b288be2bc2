package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/uatops/uat-router/internal/api/dto"
	"github.com/uatops/uat-router/internal/auth"
	"github.com/uatops/uat-router/internal/completion"
	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/domain"
	"github.com/uatops/uat-router/internal/identity"
	"github.com/uatops/uat-router/internal/normalize"
	"github.com/uatops/uat-router/internal/prompt"
	"github.com/uatops/uat-router/internal/service"
	"github.com/uatops/uat-router/internal/tracker"
)

// ServiceFactory builds the routing pipeline for commands that need the tracker or model.
type ServiceFactory func(ctx context.Context, logger *zap.Logger) (*service.RoutingService, error)

// options carries injectable dependencies.
type options struct {
	newService ServiceFactory
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

type globalFlags struct {
	output  string
	project string
	verbose bool
}

type parseOutput struct {
	Tier domain.ParseTier `json:"tier" yaml:"tier"`

	domain.RoutingResult `yaml:",inline"`
}

func defaultOptions() options {
	return options{
		newService: newServiceFromEnv,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

func newRootCmd(opts options) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "uatctl",
		Short:         "uatctl - route UAT work items from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			switch flags.output {
			case "json", "yaml":
				return nil
			}
			return fmt.Errorf("unsupported output %q (want json or yaml)", flags.output)
		},
	}
	root.SetIn(opts.stdin)
	root.SetOut(opts.stdout)
	root.SetErr(opts.stderr)
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "json", "Output format: json or yaml")
	root.PersistentFlags().StringVarP(&flags.project, "project", "p", "", "Tracker project (defaults to AZURE_DEVOPS_PROJECT)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log pipeline steps to stderr")

	root.AddCommand(
		routeCmd(opts, flags),
		batchCmd(opts, flags),
		parseCmd(opts, flags),
		promptCmd(opts, flags),
		ticketCmd(opts, flags),
		hashKeyCmd(opts),
	)

	return root
}

func routeCmd(opts options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "route <id>",
		Short: "Route a single work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			outcome, err := svc.Route(cmd.Context(), service.RouteInput{ID: args[0], Project: flags.project})
			if err != nil {
				return err
			}
			return render(opts.stdout, flags.output, dto.NewRoutingResponse(outcome))
		},
	}
}

func batchCmd(opts options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <id>...",
		Short: "Route several work items without comments or identity lookup",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			items, err := svc.RouteBatch(cmd.Context(), service.BatchInput{IDs: args, Project: flags.project})
			if err != nil {
				return err
			}
			return render(opts.stdout, flags.output, dto.NewBatchResponse(items))
		},
	}
}

func parseCmd(opts options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Normalize a saved completion without calling any service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(opts.stdin, args)
			if err != nil {
				return err
			}
			result := normalize.Parse(raw)
			return render(opts.stdout, flags.output, parseOutput{Tier: result.Tier, RoutingResult: result})
		},
	}
}

func promptCmd(opts options, flags *globalFlags) *cobra.Command {
	var simplified bool
	cmd := &cobra.Command{
		Use:   "prompt <id>",
		Short: "Print the prompt a work item would be routed with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			text, err := svc.Prompt(cmd.Context(), service.RouteInput{ID: args[0], Project: flags.project}, simplified)
			if err != nil {
				return err
			}
			_, err = io.WriteString(opts.stdout, text)
			return err
		},
	}
	cmd.Flags().BoolVar(&simplified, "simplified", false, "Use the six-field simplified prompt")
	return cmd
}

func ticketCmd(opts options, flags *globalFlags) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "ticket <id>",
		Short: "Show a work item's key triage fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			ticket, err := svc.Ticket(cmd.Context(), service.RouteInput{ID: args[0], Project: flags.project})
			if err != nil {
				return err
			}
			if full {
				return render(opts.stdout, flags.output, ticket)
			}
			return render(opts.stdout, flags.output, ticket.KeyFields())
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Show every extracted field")
	return cmd
}

func hashKeyCmd(opts options) *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Hash a function key for AUTH_FUNCTION_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			hash, err := auth.HashFunctionKey(args[0], cost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(opts.stdout, hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 uses the default)")
	return cmd
}

func buildService(ctx context.Context, opts options, flags *globalFlags) (*service.RoutingService, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := zap.NewNop()
	if flags.verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = dev
	}
	return opts.newService(ctx, logger)
}

func newServiceFromEnv(ctx context.Context, logger *zap.Logger) (*service.RoutingService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tickets, err := tracker.NewClient(ctx, cfg.Tracker, logger)
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.NewBuilder(cfg.Prompt.TemplatePath)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{}
	deps := service.RoutingDependencies{
		Tickets:        tickets,
		Prompts:        prompts,
		Completions:    completion.NewClient(cfg.Completion, httpClient, logger),
		Logger:         logger,
		DefaultProject: cfg.Tracker.DefaultProject,
		BatchWindow:    cfg.Batch.Window(),
	}
	if cfg.Identity.Enabled() {
		deps.Identities = identity.NewResolver(cfg.Identity, httpClient, logger)
	}
	return service.NewRoutingService(deps), nil
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read completion: %w", err)
	}
	return string(b), nil
}

func render(w io.Writer, format string, v any) error {
	if strings.EqualFold(format, "yaml") {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
