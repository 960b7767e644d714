// Package validate provides the validate sub-command for checking a stack
// file without touching the cluster.
package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/runtime"
	"github.com/konverge-dev/konverge/internal/stack"
)

// New creates the validate sub-command for the CLI.
func New() *cobra.Command {
	validateCommand := &cobra.Command{
		Use:   "validate [environment]",
		Short: "Validate a stack file",
		Long: `Validate loads the stack file, checks it against the schema, resolves
parameters for the given environment, and verifies the dependency graph has
no cycles or unknown references. The cluster is never contacted.`,
		Example: `
# Validate the default stack file (./konverge.yaml)
konverge validate

# Validate for the production environment with an explicit stack file
konverge validate production -f ./path/to/konverge.yaml
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("at most one environment may be given, received %d arguments: %v", len(args), args)
			}
			return nil
		},
		RunE: runValidate,
	}

	return validateCommand
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	waves, err := stack.Waves(s)
	if err != nil {
		return fmt.Errorf("invalid dependency graph: %w", err)
	}

	logger.Info("Stack found", "stack", s.Name, "components", len(s.Components), "waves", len(waves))
	logger.Info("Stack validated successfully")

	return nil
}
