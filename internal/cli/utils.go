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

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/report"
	"github.com/konverge-dev/konverge/internal/runtime"
	"github.com/konverge-dev/konverge/internal/ui"
)

// ReportToRows converts a run report into table rows.
func ReportToRows(rep *report.Report) []ui.Row {
	rows := make([]ui.Row, 0, len(rep.Components))
	for _, c := range rep.Components {
		rows = append(rows, ui.Row{
			"component": c.Name,
			"outcome":   string(c.Outcome),
			"resources": summarizeResources(c.Resources),
			"steps":     summarizeSteps(c.Steps),
			"message":   c.Message,
		})
	}
	return rows
}

func summarizeResources(resources []report.ResourceReport) string {
	if len(resources) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, r := range resources {
		counts[r.Action]++
	}
	parts := make([]string, 0, 3)
	for _, action := range []string{"created", "updated", "unchanged"} {
		if counts[action] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[action], action))
		}
	}
	return strings.Join(parts, ", ")
}

func summarizeSteps(steps []report.StepReport) string {
	if len(steps) == 0 {
		return ""
	}
	succeeded := 0
	for _, s := range steps {
		if s.Status == "succeeded" {
			succeeded++
		}
	}
	return fmt.Sprintf("%d/%d", succeeded, len(steps))
}

// GetReportTableColumns returns the column configuration for run reports
func GetReportTableColumns() []ui.Column {
	return []ui.Column{
		{
			Title:    "COMPONENT",
			Key:      "component",
			MinWidth: 10,
			MaxWidth: 24,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorBrightWhite))
			},
			Condition: true,
		},
		{
			Title:    "OUTCOME",
			Key:      "outcome",
			MinWidth: 9,
			MaxWidth: 12,
			StyleFunc: func(value string) lipgloss.Style {
				return ui.GetStatusStyle(value)
			},
			Condition: true,
		},
		{
			Title:    "RESOURCES",
			Key:      "resources",
			MinWidth: 12,
			MaxWidth: 32,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorBrightCyan))
			},
			Condition: true,
		},
		{
			Title:    "STEPS",
			Key:      "steps",
			MinWidth: 5,
			MaxWidth: 8,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorGray))
			},
			Condition: true,
		},
		{
			Title:    "MESSAGE",
			Key:      "message",
			MinWidth: 10,
			MaxWidth: 48,
			Truncate: true,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorGray))
			},
			Condition: true,
		},
	}
}

// GetStatusTableColumns returns the column configuration for the status command
func GetStatusTableColumns() []ui.Column {
	return []ui.Column{
		{
			Title:    "COMPONENT",
			Key:      "component",
			MinWidth: 10,
			MaxWidth: 24,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorBrightWhite))
			},
			Condition: true,
		},
		{
			Title:    "READY",
			Key:      "ready",
			MinWidth: 6,
			MaxWidth: 10,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorGreen))
			},
			Condition: true,
		},
		{
			Title:    "PODS",
			Key:      "pods",
			MinWidth: 4,
			MaxWidth: 8,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorBrightCyan))
			},
			Condition: true,
		},
		{
			Title:    "AGE",
			Key:      "age",
			MinWidth: 6,
			MaxWidth: 16,
			StyleFunc: func(value string) lipgloss.Style {
				return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorGray))
			},
			Condition: true,
		},
		{
			Title:    "ENV",
			Key:      "environment",
			MinWidth: 6,
			MaxWidth: 12,
			StyleFunc: func(value string) lipgloss.Style {
				return ui.GetEnvironmentStyle(value)
			},
			Condition: true,
		},
	}
}

// colorize applies syntax highlighting for the given lexer name using chroma
func colorize(data []byte, lexerName string) (string, error) {
	if !ui.IsTerminal() {
		return string(data), nil
	}

	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, string(data))
	if err != nil {
		return "", fmt.Errorf("failed to tokenize %s: %w", lexerName, err)
	}

	var result strings.Builder
	err = formatter.Format(&result, style, iterator)
	if err != nil {
		return "", fmt.Errorf("failed to format %s: %w", lexerName, err)
	}

	return result.String(), nil
}

// ColorizeJSONWithChroma applies syntax highlighting to JSON using chroma
func ColorizeJSONWithChroma(data []byte) (string, error) {
	return colorize(data, "json")
}

// ColorizeYAMLWithChroma applies syntax highlighting to YAML using chroma
func ColorizeYAMLWithChroma(data []byte) (string, error) {
	return colorize(data, "yaml")
}

// GetK8sClient builds a cluster client from the runtime carried in the
// context: the memoized clientset scoped to the configured namespace.
func GetK8sClient(ctx context.Context) (*k8s.Client, error) {
	rt := runtime.FromRuntime(ctx)
	if rt == nil {
		return nil, fmt.Errorf("runtime not initialized")
	}

	clientset, err := rt.Kubernetes()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kubernetes client: %w", err)
	}

	return k8s.NewClient(clientset, rt.Namespace()), nil
}

// GetExec initializes the exec transport from the runtime context.
func GetExec(ctx context.Context) (*k8s.Exec, error) {
	client, err := GetK8sClient(ctx)
	if err != nil {
		return nil, err
	}

	rt := runtime.FromRuntime(ctx)
	config, err := rt.RESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get rest config: %w", err)
	}

	return k8s.NewExec(client, config), nil
}
