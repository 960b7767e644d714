// Package status provides the status sub-command, which reports the observed
// cluster state of a stack's components.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/konverge-dev/konverge/internal/cli"
	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/runtime"
	"github.com/konverge-dev/konverge/internal/stack"
	"github.com/konverge-dev/konverge/internal/ui"
)

// componentStatus is the observed state of one component, shaped for output.
type componentStatus struct {
	Component   string `json:"component" yaml:"component"`
	Ready       string `json:"ready" yaml:"ready"`
	Pods        string `json:"pods" yaml:"pods"`
	Age         string `json:"age,omitempty" yaml:"age,omitempty"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// New creates the status sub-command for the CLI.
func New() *cobra.Command {
	statusCommand := &cobra.Command{
		Use:   "status [environment]",
		Short: "Show the observed state of the stack's components",
		Long: `Status lists every component declared in the stack file together with its
pod readiness in the cluster. Components declared but not yet applied show
up with zero pods, and components still running under the stack's labels but
no longer declared in the file are listed as undeclared.`,
		Example: `
# Status of the default stack file
konverge status

# Status for the production environment, as JSON
konverge status prod --output json
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
		RunE: runStatus,
	}

	statusCommand.Flags().String("output", cli.OutputFormatTable, "Output format: table, json, yaml")

	return statusCommand
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger(cmd)

	environment := ""
	if len(args) == 1 {
		environment = args[0]
	}

	rt := runtime.FromRuntime(cmd.Context())
	if rt == nil {
		return fmt.Errorf("runtime not initialized")
	}
	rt.SetEnvironment(environment)

	s, err := rt.Stack()
	if err != nil {
		return fmt.Errorf("failed to load stack: %w", err)
	}

	client, err := cli.GetK8sClient(cmd.Context())
	if err != nil {
		return err
	}

	statuses, err := collectStatuses(cmd.Context(), client, s, environment)
	if err != nil {
		return err
	}

	logger.Debug("collected status", "stack", s.Name, "components", len(statuses))

	outputFormat, _ := cmd.Flags().GetString("output")
	switch outputFormat {
	case cli.OutputFormatJSON:
		out, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize json: %w", err)
		}
		colorized, err := cli.ColorizeJSONWithChroma(out)
		if err != nil {
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(colorized)

	case cli.OutputFormatYAML:
		out, err := yaml.Marshal(statuses)
		if err != nil {
			return fmt.Errorf("failed to serialize yaml: %w", err)
		}
		colorized, err := cli.ColorizeYAMLWithChroma(out)
		if err != nil {
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(colorized)

	default:
		rows := make([]ui.Row, 0, len(statuses))
		for _, st := range statuses {
			rows = append(rows, ui.Row{
				"component":   st.Component,
				"ready":       st.Ready,
				"pods":        st.Pods,
				"age":         st.Age,
				"environment": st.Environment,
			})
		}
		ui.NewTable().
			SetColumns(cli.GetStatusTableColumns()).
			SetRows(rows).
			Print()
	}

	return nil
}

// collectStatuses walks the declared components in name order and asks the
// cluster about each one, so drift in either direction is visible.
func collectStatuses(ctx context.Context, client *k8s.Client, s *stack.Stack, environment string) ([]componentStatus, error) {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	slices.Sort(names)

	statuses := make([]componentStatus, 0, len(names))
	for _, name := range names {
		total, ready, summary, err := client.GetPodStatus(ctx, s.Name, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get status for component '%s': %w", name, err)
		}

		st := componentStatus{
			Component:   name,
			Pods:        summary,
			Environment: environment,
		}
		switch {
		case total == 0:
			st.Ready = "absent"
		case ready == total:
			st.Ready = "ready"
		default:
			st.Ready = "waiting"
		}

		if age := oldestPodAge(ctx, client, s.Name, name, environment); age != "" {
			st.Age = age
		}

		statuses = append(statuses, st)
	}

	// Pods can outlive the stack file: a component renamed or removed from
	// the file keeps running until the next teardown. Surface those too.
	available, err := client.GetAvailableComponents(ctx, s.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster components: %w", err)
	}
	for _, name := range available {
		if _, declared := s.Components[name]; declared {
			continue
		}
		total, ready, summary, err := client.GetPodStatus(ctx, s.Name, name)
		if err != nil || total == 0 {
			continue
		}
		st := componentStatus{
			Component:   name,
			Pods:        summary,
			Environment: environment,
			Ready:       "undeclared",
		}
		if ready < total {
			st.Ready = "undeclared (waiting)"
		}
		if age := oldestPodAge(ctx, client, s.Name, name, environment); age != "" {
			st.Age = age
		}
		statuses = append(statuses, st)
	}

	return statuses, nil
}

// oldestPodAge returns a human-readable age of the longest-running pod, or ""
// when no pod has started.
func oldestPodAge(ctx context.Context, client *k8s.Client, stackName, component, environment string) string {
	pods, err := client.GetRunningPods(ctx, stackName, component, environment)
	if err != nil || len(pods) == 0 {
		return ""
	}

	var oldest time.Time
	for _, pod := range pods {
		if pod.StartedAt.IsZero() {
			continue
		}
		if oldest.IsZero() || pod.StartedAt.Before(oldest) {
			oldest = pod.StartedAt
		}
	}
	if oldest.IsZero() {
		return ""
	}
	return humanize.Time(oldest)
}
