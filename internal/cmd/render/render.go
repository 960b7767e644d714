// Package render provides the render sub-command, which prints the resources
// a stack would produce without touching the cluster.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/konverge-dev/konverge/internal/cli"
	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/render"
	"github.com/konverge-dev/konverge/internal/runtime"
	"github.com/konverge-dev/konverge/internal/stack"
)

// New creates the render sub-command for the CLI.
func New() *cobra.Command {
	renderCommand := &cobra.Command{
		Use:   "render [environment]",
		Short: "Render the stack to Kubernetes manifests without applying them",
		Long: `Render produces the exact resources apply would submit, as a multi-document
YAML stream on stdout. Useful for inspection, diffing, and piping into other
tools.`,
		Example: `
# Render the default stack file
konverge render

# Render a single component for the production environment
konverge render prod --component nextcloud

# Pipe into kubectl
konverge render prod | kubectl diff -f -
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("at most one environment may be given, received %d arguments: %v", len(args), args)
			}
			return nil
		},
		RunE: runRender,
	}

	renderCommand.Flags().String("component", "", "Render only the named component")
	renderCommand.Flags().Int64("fs-group", 0, "Pod fsGroup for volume ownership (0 leaves it to the platform)")

	return renderCommand
}

func runRender(cmd *cobra.Command, args []string) error {
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

	opts := render.Options{
		Namespace:   rt.Namespace(),
		Environment: environment,
	}
	fsGroup, _ := cmd.Flags().GetInt64("fs-group")
	if fsGroup > 0 {
		opts.FSGroup = &fsGroup
	}

	component, _ := cmd.Flags().GetString("component")
	var rendered map[string][]k8s.Resource
	if component != "" {
		if _, ok := s.Components[component]; !ok {
			return fmt.Errorf("component '%s' not found in stack '%s' (available: %s)",
				component, s.Name, strings.Join(componentNames(s), ", "))
		}
		resources, err := render.Component(s, component, opts)
		if err != nil {
			return err
		}
		rendered = map[string][]k8s.Resource{component: resources}
	} else {
		rendered, err = render.Stack(s, opts)
		if err != nil {
			return err
		}
	}

	out, err := marshalStream(rendered)
	if err != nil {
		return err
	}

	logger.Debug("rendered stack", "stack", s.Name, "components", len(rendered))

	colorized, err := cli.ColorizeYAMLWithChroma(out)
	if err != nil {
		fmt.Print(string(out))
		return nil
	}
	fmt.Print(colorized)
	return nil
}

// marshalStream serializes rendered resources as one YAML stream, components
// in name order so output is stable across runs.
func marshalStream(rendered map[string][]k8s.Resource) ([]byte, error) {
	names := make([]string, 0, len(rendered))
	for name := range rendered {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	first := true
	for _, name := range names {
		for _, resource := range rendered[name] {
			doc, err := yaml.Marshal(resource.Object)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize %s: %w", resource.Ref, err)
			}
			if !first {
				sb.WriteString("---\n")
			}
			first = false
			sb.Write(doc)
		}
	}
	return []byte(sb.String()), nil
}

func componentNames(s *stack.Stack) []string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
