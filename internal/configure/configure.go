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

// Package configure runs post-deploy configuration steps inside the ready
// containers of a component.
//
// Steps run strictly in declaration order. A failing step marked fatal stops
// the sequence and fails the component; a failing non-fatal step is recorded
// as a warning and the sequence continues. Steps after a fatal failure are
// reported as skipped, never silently dropped.
package configure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/stack"
)

// StepStatus tracks one configuration step through its lifecycle.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// StepResult records the outcome of one configuration step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Fatal    bool
	Duration time.Duration
	Output   string
	Err      error
}

// ConfigStepError reports a fatal configuration step failure. The component
// it belongs to fails; other components are unaffected.
type ConfigStepError struct {
	Component string
	Step      string
	Cause     error
}

func (e *ConfigStepError) Error() string {
	return fmt.Sprintf("configuration step %q of component %q failed: %v", e.Step, e.Component, e.Cause)
}

func (e *ConfigStepError) Unwrap() error {
	return e.Cause
}

// Runner executes the configuration steps of components.
type Runner struct {
	exec        *k8s.Exec
	stackName   string
	environment string
	logger      *log.Logger
}

// NewRunner creates a runner for one stack and environment.
func NewRunner(exec *k8s.Exec, stackName, environment string, logger *log.Logger) *Runner {
	return &Runner{
		exec:        exec,
		stackName:   stackName,
		environment: environment,
		logger:      logger,
	}
}

// Run executes all configuration steps of the component. It returns the
// per-step results and, if a fatal step failed, a ConfigStepError. Non-fatal
// failures never produce an error; they are visible in the results only.
func (r *Runner) Run(ctx context.Context, component string, comp stack.Component) ([]StepResult, error) {
	results := make([]StepResult, len(comp.Configure))
	for i, step := range comp.Configure {
		results[i] = StepResult{Name: step.Name, Status: StatusPending, Fatal: step.Fatal}
	}

	var fatalErr error

	for i, step := range comp.Configure {
		if fatalErr != nil {
			results[i].Status = StatusSkipped
			continue
		}

		r.logger.Debug("running configuration step", "component", component, "step", step.Name)

		started := time.Now()
		output, err := r.runStep(ctx, component, step)
		results[i].Duration = time.Since(started)
		results[i].Output = output

		if err != nil {
			results[i].Status = StatusFailed
			results[i].Err = err
			if step.Fatal {
				fatalErr = &ConfigStepError{Component: component, Step: step.Name, Cause: err}
				r.logger.Error("fatal configuration step failed", "component", component, "step", step.Name, "err", err)
			} else {
				r.logger.Warn("configuration step failed, continuing", "component", component, "step", step.Name, "err", err)
			}
			continue
		}

		results[i].Status = StatusSucceeded
		r.logger.Debug("configuration step succeeded", "component", component, "step", step.Name)
	}

	return results, fatalErr
}

// runStep executes one step with its own timeout.
func (r *Runner) runStep(ctx context.Context, component string, step stack.ConfigStep) (string, error) {
	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(stack.DefaultStepTimeoutSeconds) * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, err := r.exec.RunInComponent(stepCtx, r.stackName, component, r.environment, step.Container, step.Command)
	if err != nil {
		if stepCtx.Err() == context.DeadlineExceeded {
			return stdout, fmt.Errorf("step timed out after %s", timeout)
		}
		if msg := strings.TrimSpace(stderr); msg != "" {
			return stdout, fmt.Errorf("%w: %s", err, msg)
		}
		return stdout, err
	}
	return stdout, nil
}
