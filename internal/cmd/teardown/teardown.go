// Package teardown provides the teardown sub-command for removing a stack
// from the cluster.
package teardown

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"github.com/konverge-dev/konverge/internal/cli"
	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/runtime"
)

// New creates the teardown sub-command for the CLI.
func New() *cobra.Command {
	teardownCommand := &cobra.Command{
		Use:     "teardown [environment]",
		Aliases: []string{"delete", "remove"},
		Short:   "Remove the stack's resources from the cluster",
		Long: `Teardown deletes every resource the stack owns, identified by the
managed-by label. Resources created by hand in the same namespace are never
touched. Persistent volume claims and generated secrets can be kept so a
later apply picks up the same data and credentials.`,
		Example: `
# Remove the stack but keep data and credentials
konverge teardown --keep-data --keep-secrets

# Remove everything without asking
konverge teardown prod --force

# Preview what would be deleted
konverge teardown --dry-run
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("at most one environment may be given, received %d arguments: %v", len(args), args)
			}
			return nil
		},
		RunE: runTeardown,
	}

	teardownCommand.Flags().Bool("force", false, "Skip the confirmation prompt")
	teardownCommand.Flags().Bool("keep-data", false, "Keep persistent volume claims")
	teardownCommand.Flags().Bool("keep-secrets", false, "Keep generated secrets")
	teardownCommand.Flags().Bool("dry-run", false, "List what would be deleted without deleting anything")

	return teardownCommand
}

func runTeardown(cmd *cobra.Command, args []string) error {
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

	force, _ := cmd.Flags().GetBool("force")
	keepData, _ := cmd.Flags().GetBool("keep-data")
	keepSecrets, _ := cmd.Flags().GetBool("keep-secrets")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if !force && !dryRun {
		description := fmt.Sprintf("This will remove all resources of stack '%s' from namespace '%s'.", s.Name, rt.Namespace())
		if !keepData {
			description += " Persistent data will be deleted."
		}
		if !keepSecrets {
			description += " Generated credentials will be deleted."
		}

		var confirmed bool
		confirmForm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Tear down stack '%s'?", s.Name)).
					Description(description).
					Affirmative("Yes, tear it down").
					Negative("No, cancel").
					Value(&confirmed),
			),
		)

		if err := confirmForm.Run(); err != nil {
			logger.Debugf("failed to get confirmation: %v", err)
			return fmt.Errorf("failed to get confirmation")
		}

		if !confirmed {
			logger.Infof("Teardown of stack '%s' cancelled by user", s.Name)
			return nil
		}
	}

	client, err := cli.GetK8sClient(cmd.Context())
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Tearing down stack '%s'...", s.Name)
	if dryRun {
		title = fmt.Sprintf("Collecting resources of stack '%s'...", s.Name)
	}

	var deleted []k8s.ResourceRef
	err = spinner.New().
		Title(title).
		Context(cmd.Context()).
		ActionWithErr(func(ctx context.Context) error {
			deleted, err = client.Teardown(ctx, s.Name, k8s.TeardownOptions{
				KeepData:    keepData,
				KeepSecrets: keepSecrets,
				DryRun:      dryRun,
			})
			return err
		}).
		Run()
	if err != nil {
		// Partial deletions are reported before the error so the operator
		// knows what is already gone.
		for _, ref := range deleted {
			logger.Infof("Deleted %s", ref)
		}
		return fmt.Errorf("failed to tear down stack '%s': %w", s.Name, err)
	}

	if len(deleted) == 0 {
		logger.Infof("Nothing to delete for stack '%s' in namespace '%s'", s.Name, rt.Namespace())
		return nil
	}

	if dryRun {
		for _, ref := range deleted {
			logger.Infof("Would delete %s", ref)
		}
		logger.Infof("Dry run: %d resources of stack '%s' would be deleted", len(deleted), s.Name)
		return nil
	}

	for _, ref := range deleted {
		logger.Infof("Deleted %s", ref)
	}
	logger.Infof("Stack '%s' torn down, %d resources deleted", s.Name, len(deleted))

	return nil
}
