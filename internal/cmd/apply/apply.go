// Package apply provides the apply sub-command, the main entry point for
// converging a stack onto a cluster.
package apply

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/konverge-dev/konverge/internal/cli"
	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/reconcile"
	"github.com/konverge-dev/konverge/internal/report"
	"github.com/konverge-dev/konverge/internal/runtime"
	"github.com/konverge-dev/konverge/internal/ui"
)

// New creates the apply sub-command for the CLI.
func New() *cobra.Command {
	applyCommand := &cobra.Command{
		Use:   "apply [environment]",
		Short: "Converge the cluster toward the stack file",
		Long: `Apply renders the stack into Kubernetes resources and converges the cluster
toward them in dependency order. Resources that already match the desired
state are left untouched, generated credentials are kept across runs, and a
failing component blocks only its own dependents.`,
		Example: `
# Apply the default stack file (./konverge.yaml)
konverge apply

# Apply for the production environment with an explicit stack file
konverge apply prod -f ./path/to/konverge.yaml

# Apply with a custom group ID for volume ownership
konverge apply prod --fs-group 1000970000
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("at most one environment may be given, received %d arguments: %v", len(args), args)
			}
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("failed to get output format: %w", err)
			}

			if !slices.Contains(cli.OutputFormats, outputFormat) {
				return fmt.Errorf("invalid output format: '%s', must be one of: %s", outputFormat, strings.Join(cli.OutputFormats, ", "))
			}

			return nil
		},
		RunE: runApply,
	}

	applyCommand.Flags().String("output", cli.OutputFormatTable, "Output format: table, json, yaml")
	applyCommand.Flags().Int64("fs-group", 0, "Pod fsGroup for volume ownership (0 leaves it to the platform)")
	applyCommand.Flags().Bool("show-credentials", false, "Print credentials generated during this run")

	return applyCommand
}

func runApply(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger(cmd)

	environment := ""
	if len(args) == 1 {
		environment = args[0]
	}

	rt := runtime.FromRuntime(cmd.Context())
	if rt == nil {
		return fmt.Errorf("runtime not initialized")
	}
	// Stack loading resolves environment-specific parameters, so the
	// environment has to be set before the first load.
	rt.SetEnvironment(environment)

	s, err := rt.Stack()
	if err != nil {
		return fmt.Errorf("failed to load stack: %w", err)
	}

	logger.Debug("stack loaded", "stack", s.Name, "env", environment, "components", len(s.Components))

	client, err := cli.GetK8sClient(cmd.Context())
	if err != nil {
		return err
	}
	exec, err := cli.GetExec(cmd.Context())
	if err != nil {
		return err
	}

	fsGroup, _ := cmd.Flags().GetInt64("fs-group")
	opts := reconcile.Options{
		Environment: environment,
		Timeout:     rt.Timeout(),
	}
	if fsGroup > 0 {
		opts.FSGroup = &fsGroup
	}

	reconciler := reconcile.New(s, client, exec, opts, logger)

	var rep *report.Report
	var runErr error
	err = spinner.New().
		Title(fmt.Sprintf("Converging stack '%s'...", s.Name)).
		Context(cmd.Context()).
		ActionWithErr(func(ctx context.Context) error {
			rep, runErr = reconciler.Run(ctx)
			return nil
		}).
		Run()
	if err != nil {
		return fmt.Errorf("apply aborted: %w", err)
	}
	if rep == nil {
		return fmt.Errorf("apply failed: %w", runErr)
	}

	showCredentials, _ := cmd.Flags().GetBool("show-credentials")
	outputFormat, _ := cmd.Flags().GetString("output")
	if err := printReport(rep, outputFormat, showCredentials); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("apply did not finish: %w", runErr)
	}
	if rep.Failed() {
		return fmt.Errorf("apply finished with failures: %s", rep.Summary())
	}

	logger.Info("stack converged", "stack", s.Name, "overall", string(rep.Overall), "duration", rep.Duration)
	return nil
}

func printReport(rep *report.Report, outputFormat string, showCredentials bool) error {
	if !showCredentials {
		redactCredentials(rep)
	}

	switch outputFormat {
	case cli.OutputFormatJSON:
		out, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize json: %w", err)
		}
		colorized, err := cli.ColorizeJSONWithChroma(out)
		if err != nil {
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(colorized)
		return nil

	case cli.OutputFormatYAML:
		out, err := yaml.Marshal(rep)
		if err != nil {
			return fmt.Errorf("failed to serialize yaml: %w", err)
		}
		colorized, err := cli.ColorizeYAMLWithChroma(out)
		if err != nil {
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(colorized)
		return nil

	case cli.OutputFormatTable:
		printTable(rep, showCredentials)
		return nil

	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func printTable(rep *report.Report, showCredentials bool) {
	fmt.Printf("Run %s: %s (%s)\n\n", rep.RunID, rep.Overall, rep.Duration)

	ui.NewTable().
		SetColumns(cli.GetReportTableColumns()).
		SetRows(cli.ReportToRows(rep)).
		Print()

	if len(rep.Endpoints) > 0 {
		fmt.Println("\nEndpoints:")
		for _, endpoint := range rep.Endpoints {
			fmt.Printf("  %s: %s\n", endpoint.Component, endpoint.URL)
		}
	}

	if showCredentials {
		for _, secret := range rep.Secrets {
			if !secret.Created || len(secret.Values) == 0 {
				continue
			}
			fmt.Printf("\nGenerated credentials for %s (shown once, store them now):\n", secret.Resource)
			for _, field := range secret.Fields {
				fmt.Printf("  %s: %s\n", field, secret.Values[field])
			}
		}
	}
}

// redactCredentials strips generated values from the report so they are only
// ever printed when explicitly requested.
func redactCredentials(rep *report.Report) {
	for i := range rep.Secrets {
		rep.Secrets[i].Values = nil
	}
}
