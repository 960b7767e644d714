// Copyright 2025 The Konverge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd provides the commands for the Konverge application.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/konverge-dev/konverge/internal/cli"
	"github.com/konverge-dev/konverge/internal/cmd/apply"
	"github.com/konverge-dev/konverge/internal/cmd/initialize"
	rendercmd "github.com/konverge-dev/konverge/internal/cmd/render"
	"github.com/konverge-dev/konverge/internal/cmd/status"
	"github.com/konverge-dev/konverge/internal/cmd/teardown"
	"github.com/konverge-dev/konverge/internal/cmd/validate"
	"github.com/konverge-dev/konverge/internal/logging"
	"github.com/konverge-dev/konverge/internal/runtime"
	"github.com/konverge-dev/konverge/internal/stack"
)

// NewRootCommand creates a new root command for the Konverge application. The
// root command is the main entry point for the application.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "konverge",
		Short: "Konverge reconciles declarative stacks onto Kubernetes clusters",
		Long: `Konverge reads a declarative stack file and converges a Kubernetes cluster
toward it: rendering resources, applying only what changed, waiting for
readiness in dependency order, and running post-deploy configuration steps.
Running the same stack twice performs zero mutations the second time.`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			noColor, _ := cmd.Flags().GetBool("no-color")
			quiet, _ := cmd.Flags().GetBool("quiet")

			// color.NoColor honors NO_COLOR and non-terminal output.
			noColor = noColor || color.NoColor

			// When quiet is set, SilenceErrors prevents showing usage when a
			// subcommand returns an error.
			cmd.SilenceErrors = quiet
			cmd.SilenceUsage = true

			if envLevel := os.Getenv(stack.LogLevelEnvVar); envLevel != "" && !cmd.Flags().Changed("log-level") {
				logLevel = envLevel
			}
			if os.Getenv(runtime.DebugEnvVar) != "" {
				logLevel = "debug"
			}

			if err := logging.SetupCharmLogger(cmd, logLevel, noColor, quiet); err != nil {
				return err
			}

			return setupRuntime(cmd)
		},
	}

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Set the logging level (debug|info|warn|error|fatal)")
	rootCmd.PersistentFlags().Bool("no-color", false, "If specified, output won't contain any color.")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Quiet or silent mode. Do not show logs or error messages.")
	rootCmd.PersistentFlags().StringP("file", "f", stack.DefaultStackPath, "Path to the stack file")
	rootCmd.PersistentFlags().StringP("namespace", "n", "", "Kubernetes namespace to operate in")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to the kubeconfig file")
	rootCmd.PersistentFlags().Duration("timeout", runtime.DefaultTimeout, "Deadline for one run")

	return rootCmd
}

// setupRuntime builds the per-invocation runtime from the persistent flags
// and stores it in the command context.
func setupRuntime(cmd *cobra.Command) error {
	stackPath, _ := cmd.Flags().GetString("file")
	namespace, _ := cmd.Flags().GetString("namespace")
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if !runtime.ValidateTimeout(timeout) {
		return fmt.Errorf("timeout %s is out of bounds, must be between %s and %s",
			timeout, runtime.TimeoutMin, runtime.TimeoutMax)
	}

	if namespace == "" {
		namespace = os.Getenv(runtime.NamespaceEnvVar)
	}
	if kubeconfig == "" {
		kubeconfig = os.Getenv(runtime.KubeConfigEnvVar)
	}

	rt := runtime.New(
		runtime.WithStackPath(stackPath),
		runtime.WithNamespace(namespace),
		runtime.WithKubeconfig(kubeconfig),
		runtime.WithTimeout(timeout),
		runtime.WithLogger(runtime.NewLoggerAdapter(logging.GetLogger(cmd))),
	)

	cmd.SetContext(runtime.WithRuntime(cmd.Context(), rt))
	return nil
}

// Execute is the main entry point for the Konverge application.
func Execute() {
	rootCmd := NewRootCommand()
	rootCmd.AddCommand(
		apply.New(),
		rendercmd.New(),
		status.New(),
		teardown.New(),
		validate.New(),
		initialize.New(),
	)

	ctx := context.Background()

	if err := fang.Execute(ctx, rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			os.Exit(cli.ExitTimedOut)
		}

		os.Exit(cli.ExitError)
	}
}
