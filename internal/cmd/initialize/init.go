// Package initialize provides the init sub-command, an interactive scaffold
// for a new stack file.
package initialize

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/stack"
	"github.com/konverge-dev/konverge/internal/stack/schema"
	"github.com/konverge-dev/konverge/internal/ui"
	"github.com/konverge-dev/konverge/internal/util"
)

var namePattern = regexp.MustCompile(stack.ComponentNamePattern)

// stackConfig holds the collected configuration data.
type stackConfig struct {
	Name         string
	Environments []stack.Environment
	Components   map[string]stack.Component
	OutputPath   string
	DryRun       bool
}

// New creates the init sub-command for the CLI.
func New() *cobra.Command {
	initCommand := &cobra.Command{
		Use:     "init",
		Aliases: []string{"initialize"},
		Short:   "Scaffold a new stack file interactively",
		Long:    `Init walks through stack name, environments, and components, and writes a valid stack file.`,
		Example: `
# Scaffold a new stack
konverge init

# Scaffold into an explicit file
konverge init --output my-stack.yaml

# Preview the generated stack file without saving it
konverge init --dry-run
`,
		RunE: runInit,
	}

	initCommand.Flags().StringP("output", "o", stack.DefaultStackPath, "The output file path.")
	initCommand.Flags().BoolP("dry-run", "d", false, "Preview the generated stack file without saving it")

	return initCommand
}

func runInit(cmd *cobra.Command, _ []string) error {
	logger := logging.GetLogger(cmd)
	logger.Info("Starting stack initialization", "cmd", "init")

	outputPath, _ := cmd.Flags().GetString("output")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	config := &stackConfig{
		OutputPath: outputPath,
		Components: make(map[string]stack.Component),
		DryRun:     dryRun,
	}

	progress := ui.NewProgressTracker()

	if err := collectStackName(config, progress); err != nil {
		return fmt.Errorf("failed to collect stack name: %w", err)
	}

	if err := collectEnvironments(config, progress); err != nil {
		return fmt.Errorf("failed to collect environments: %w", err)
	}

	if err := collectComponents(config, progress); err != nil {
		return fmt.Errorf("failed to collect components: %w", err)
	}

	if err := showSummaryAndSave(config, progress); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	logger.Info("Stack initialization completed",
		"stack", config.Name,
		"environments", len(config.Environments),
		"components", len(config.Components),
		"output", config.OutputPath,
		"dryRun", config.DryRun)

	return nil
}

func validateName(name, what string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name cannot be empty", what)
	}
	if len(name) > stack.MaxStackNameLength {
		return fmt.Errorf("%s name must be at most %d characters", what, stack.MaxStackNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%s name must be lowercase letters, numbers, and dashes", what)
	}
	return nil
}

func collectStackName(config *stackConfig, progress *ui.ProgressTracker) error {
	form := ui.CreateInputForm(
		progress.GetCurrentStep(),
		"my-stack",
		"What is the name of your stack? Use lowercase letters, numbers, and dashes only.",
		func(s string) error { return validateName(s, "stack") },
		&config.Name,
	)

	err := ui.CollectWithForm(form, "failed to get stack name from user")
	if err == nil {
		progress.NextStep()
	}
	return err
}

func collectEnvironments(config *stackConfig, progress *ui.ProgressTracker) error {
	continueAdding := true

	for continueAdding {
		var envName string
		var addAnother bool

		envNameGroup := ui.CreateInputGroup(
			progress.GetCurrentStep(),
			"dev",
			"Enter the name of an environment (e.g., dev, staging, prod)",
			func(s string) error {
				if err := validateName(s, "environment"); err != nil {
					return err
				}
				for _, env := range config.Environments {
					if env.Name == s {
						return fmt.Errorf("environment '%s' already exists", s)
					}
				}
				return nil
			},
			&envName,
		)

		continueGroup := ui.CreateConfirmGroup(
			"Add another environment?",
			"",
			"Yes, add another",
			"No, I'm done",
			&addAnother,
		)

		envForm := huh.NewForm(envNameGroup, continueGroup)
		if err := ui.CollectWithForm(envForm, "failed to get environment name"); err != nil {
			return err
		}

		if envName != "" {
			config.Environments = append(config.Environments, stack.Environment{Name: envName})
		}

		continueAdding = addAnother
	}

	progress.NextStep()
	return nil
}

func collectComponents(config *stackConfig, progress *ui.ProgressTracker) error {
	continueAdding := true

	for continueAdding {
		var componentName string
		var addAnother bool

		nameGroup := ui.CreateInputGroup(
			progress.GetCurrentStep(),
			"web",
			"Enter the name of the component (e.g., web, db, cache)",
			func(s string) error {
				if err := validateName(s, "component"); err != nil {
					return err
				}
				if _, exists := config.Components[s]; exists {
					return fmt.Errorf("component '%s' already exists", s)
				}
				return nil
			},
			&componentName,
		)

		continueGroup := ui.CreateConfirmGroup(
			"Add another component?",
			"",
			"Yes, add another",
			"No, I'm done",
			&addAnother,
		)

		compForm := huh.NewForm(nameGroup, continueGroup)
		if err := ui.CollectWithForm(compForm, "failed to get component name"); err != nil {
			return err
		}

		if componentName != "" {
			component, err := collectComponentDetails(componentName, config)
			if err != nil {
				return fmt.Errorf("failed to collect details for component %s: %w", componentName, err)
			}
			config.Components[componentName] = component
		}

		continueAdding = addAnother

		if !addAnother && len(config.Components) == 0 {
			fmt.Println("\nA stack needs at least one component.")
			continueAdding = true
		}
	}

	progress.NextStep()
	return nil
}

func collectComponentDetails(componentName string, config *stackConfig) (stack.Component, error) {
	component := stack.Component{}

	var kindChoice string
	kindForm := ui.CreateSelectForm(
		fmt.Sprintf("Kind for %s", componentName),
		"What kind of component is this?",
		[]huh.Option[string]{
			huh.NewOption("App - stateless application (web frontends, APIs)", string(stack.ComponentKindApp)),
			huh.NewOption("Database - relational or document store", string(stack.ComponentKindDatabase)),
			huh.NewOption("Cache - in-memory store", string(stack.ComponentKindCache)),
			huh.NewOption("Object store - S3-compatible storage", string(stack.ComponentKindObjectStore)),
		},
		&kindChoice,
	)
	if err := ui.CollectWithForm(kindForm, "failed to get component kind"); err != nil {
		return component, err
	}
	component.Kind = stack.ComponentKind(kindChoice)

	var image string
	imageForm := ui.CreateInputForm(
		fmt.Sprintf("Image for %s", componentName),
		"nginx:latest",
		"Container image for this component",
		func(s string) error {
			return util.ValidateNonEmpty(s, "image")
		},
		&image,
	)
	if err := ui.CollectWithForm(imageForm, "failed to get component image"); err != nil {
		return component, err
	}
	component.Image = image

	if err := collectComponentPort(&component, componentName); err != nil {
		return component, err
	}

	if component.Kind.Stateful() {
		if err := collectComponentStorage(&component, componentName); err != nil {
			return component, err
		}
	}

	if err := collectComponentDependencies(&component, componentName, config); err != nil {
		return component, err
	}

	if component.Kind == stack.ComponentKindApp {
		if err := collectComponentRoute(&component, componentName); err != nil {
			return component, err
		}
	}

	return component, nil
}

func collectComponentPort(component *stack.Component, componentName string) error {
	var addPort bool
	portForm := ui.CreateConfirmForm(
		fmt.Sprintf("Add port for %s?", componentName),
		"Does this component serve traffic on a port?",
		"Yes",
		"No",
		&addPort,
	)
	if err := ui.CollectWithForm(portForm, "failed to get port preference"); err != nil {
		return err
	}

	if !addPort {
		return nil
	}

	var portStr string
	portInputForm := ui.CreateInputForm(
		fmt.Sprintf("Port for %s", componentName),
		"8080",
		"Port number, between 1 and 65535",
		util.ValidatePort,
		&portStr,
	)
	if err := ui.CollectWithForm(portInputForm, "failed to get port number"); err != nil {
		return err
	}

	port, _ := strconv.Atoi(portStr)
	component.Port = port
	return nil
}

func collectComponentStorage(component *stack.Component, componentName string) error {
	var size, mountPath string
	storageForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Storage size for %s", componentName)).
				Placeholder("1Gi").
				Description("Persistent volume size (e.g., 1Gi, 10Gi)").
				Validate(func(s string) error { return util.ValidateResourceString(s, "Storage") }).
				Value(&size),

			huh.NewInput().
				Title(fmt.Sprintf("Mount path for %s", componentName)).
				Placeholder("/var/lib/data").
				Description("Where the volume is mounted in the container").
				Value(&mountPath),
		),
	)
	if err := ui.CollectWithForm(storageForm, "failed to get storage config"); err != nil {
		return err
	}

	if size != "" && mountPath != "" {
		component.Storage = &stack.Storage{Size: size, MountPath: mountPath}
	}
	return nil
}

func collectComponentDependencies(component *stack.Component, componentName string, config *stackConfig) error {
	existing := make([]string, 0, len(config.Components))
	for name := range config.Components {
		existing = append(existing, name)
	}
	slices.Sort(existing)

	if len(existing) == 0 {
		return nil
	}

	options := make([]huh.Option[string], len(existing))
	for i, name := range existing {
		options[i] = huh.NewOption(name, name)
	}

	var selected []string
	depForm := ui.CreateMultiSelectForm(
		fmt.Sprintf("Dependencies for %s", componentName),
		"Select the components that must be ready before this one starts",
		options,
		&selected,
	)
	if err := ui.CollectWithForm(depForm, "failed to get dependencies"); err != nil {
		return err
	}

	component.DependsOn = selected
	return nil
}

func collectComponentRoute(component *stack.Component, componentName string) error {
	var addRoute bool
	routeForm := ui.CreateConfirmForm(
		fmt.Sprintf("Expose %s externally?", componentName),
		"Would you like to expose this component via HTTP/HTTPS?",
		"Yes",
		"No",
		&addRoute,
	)
	if err := ui.CollectWithForm(routeForm, "failed to get route preference"); err != nil {
		return err
	}

	if !addRoute {
		return nil
	}

	var host string
	var tls bool
	routeConfigForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Host for %s", componentName)).
				Placeholder("app.example.com").
				Description("Hostname for external access").
				Value(&host),

			huh.NewConfirm().
				Title(fmt.Sprintf("Enable TLS for %s?", componentName)).
				Description("Terminate HTTPS at the edge").
				Affirmative("Yes").
				Negative("No").
				Value(&tls),
		),
	)
	if err := ui.CollectWithForm(routeConfigForm, "failed to get route config"); err != nil {
		return err
	}

	if host != "" {
		component.Route = &stack.Route{Host: host, TLS: tls}
	}
	return nil
}

func showSummaryAndSave(config *stackConfig, progress *ui.ProgressTracker) error {
	var summary strings.Builder

	summary.WriteString("Configuration Summary:\n\n")
	summary.WriteString(fmt.Sprintf("Stack: %s\n", config.Name))
	summary.WriteString(fmt.Sprintf("Output: %s\n\n", config.OutputPath))

	summary.WriteString("Environments:\n")
	if len(config.Environments) == 0 {
		summary.WriteString("  (none)\n")
	} else {
		for _, env := range config.Environments {
			summary.WriteString(fmt.Sprintf("  - %s\n", env.Name))
		}
	}
	summary.WriteString("\n")

	summary.WriteString("Components:\n")
	names := make([]string, 0, len(config.Components))
	for name := range config.Components {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		comp := config.Components[name]
		deps := strings.Join(comp.DependsOn, ", ")
		if deps == "" {
			deps = "none"
		}
		summary.WriteString(fmt.Sprintf("  - %s (%s), depends on: %s\n", name, comp.Kind, deps))
	}
	summary.WriteString("\n")

	summary.WriteString("Next steps:\n")
	summary.WriteString("  1. Review: cat " + config.OutputPath + "\n")
	summary.WriteString("  2. Validate: konverge validate\n")
	summary.WriteString("  3. Apply: konverge apply\n")

	summaryForm := ui.CreateNoteForm(progress.GetCurrentStep(), summary.String())
	if err := ui.CollectWithForm(summaryForm, "failed to show summary"); err != nil {
		return err
	}

	version, err := schema.GetLatestStackVersion()
	if err != nil {
		return fmt.Errorf("failed to get stack schema version: %w", err)
	}

	s := &stack.Stack{
		ApiVersion:   version,
		Name:         config.Name,
		Environments: config.Environments,
		Components:   config.Components,
	}

	if config.DryRun {
		out, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal stack for preview: %w", err)
		}
		fmt.Println("=== DRY RUN MODE - PREVIEW OF GENERATED STACK FILE ===")
		fmt.Print(string(out))
		fmt.Println("=== END PREVIEW ===")
		return nil
	}

	if err := stack.Save(s, config.OutputPath); err != nil {
		return fmt.Errorf("failed to save stack to %s: %w", config.OutputPath, err)
	}

	return nil
}
