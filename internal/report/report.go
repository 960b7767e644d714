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

// Package report assembles the outcome of one reconciliation run into a
// structure the CLI can print as a table, JSON, or YAML.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Outcome is the final state of one component after a run.
type Outcome string

const (
	// OutcomeApplied means at least one resource was created or updated and
	// the component converged.
	OutcomeApplied Outcome = "applied"

	// OutcomeUnchanged means the desired state already held; nothing was
	// mutated.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeFailed means applying, waiting, or a fatal configuration step
	// failed.
	OutcomeFailed Outcome = "failed"

	// OutcomeBlocked means the component was never attempted because a
	// dependency failed.
	OutcomeBlocked Outcome = "blocked"
)

// Overall is the aggregate result of the run.
type Overall string

const (
	OverallSucceeded    Overall = "succeeded"
	OverallWithWarnings Overall = "succeeded-with-warnings"
	OverallFailed       Overall = "failed"
)

// ResourceReport records what happened to one resource.
type ResourceReport struct {
	Resource string `json:"resource" yaml:"resource"`
	Action   string `json:"action" yaml:"action"`
}

// StepReport records one configuration step.
type StepReport struct {
	Name     string `json:"name" yaml:"name"`
	Status   string `json:"status" yaml:"status"`
	Fatal    bool   `json:"fatal" yaml:"fatal"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SecretReport records one generated secret. Values is populated only for
// secrets created by this run; it is the single place a fresh credential is
// ever surfaced.
type SecretReport struct {
	Name     string            `json:"name" yaml:"name"`
	Resource string            `json:"resource" yaml:"resource"`
	Created  bool              `json:"created" yaml:"created"`
	Fields   []string          `json:"fields,omitempty" yaml:"fields,omitempty"`
	Values   map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
}

// EndpointReport records the resolved URL of one routed component.
type EndpointReport struct {
	Component string `json:"component" yaml:"component"`
	URL       string `json:"url" yaml:"url"`
}

// ComponentReport records the full outcome of one component.
type ComponentReport struct {
	Name      string           `json:"name" yaml:"name"`
	Outcome   Outcome          `json:"outcome" yaml:"outcome"`
	Message   string           `json:"message,omitempty" yaml:"message,omitempty"`
	BlockedOn []string         `json:"blockedOn,omitempty" yaml:"blockedOn,omitempty"`
	Resources []ResourceReport `json:"resources,omitempty" yaml:"resources,omitempty"`
	Steps     []StepReport     `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Warnings reports whether the component succeeded with non-fatal step
// failures.
func (c ComponentReport) Warnings() bool {
	if c.Outcome == OutcomeFailed || c.Outcome == OutcomeBlocked {
		return false
	}
	for _, step := range c.Steps {
		if step.Status == "failed" {
			return true
		}
	}
	return false
}

// Report is the result of one reconciliation run.
type Report struct {
	RunID       string            `json:"runId" yaml:"runId"`
	Stack       string            `json:"stack" yaml:"stack"`
	Environment string            `json:"environment,omitempty" yaml:"environment,omitempty"`
	Namespace   string            `json:"namespace" yaml:"namespace"`
	StartedAt   time.Time         `json:"startedAt" yaml:"startedAt"`
	Duration    string            `json:"duration" yaml:"duration"`
	Overall     Overall           `json:"overall" yaml:"overall"`
	Components  []ComponentReport `json:"components" yaml:"components"`
	Endpoints   []EndpointReport  `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	Secrets     []SecretReport    `json:"secrets,omitempty" yaml:"secrets,omitempty"`

	started time.Time
}

// New starts a report for one run.
func New(stack, environment, namespace string) *Report {
	now := time.Now()
	return &Report{
		RunID:       uuid.NewString(),
		Stack:       stack,
		Environment: environment,
		Namespace:   namespace,
		StartedAt:   now,
		started:     now,
	}
}

// AddComponent records one component outcome.
func (r *Report) AddComponent(c ComponentReport) {
	r.Components = append(r.Components, c)
}

// AddSecret records one secret outcome.
func (r *Report) AddSecret(s SecretReport) {
	r.Secrets = append(r.Secrets, s)
}

// AddEndpoint records the URL of one routed component.
func (r *Report) AddEndpoint(e EndpointReport) {
	r.Endpoints = append(r.Endpoints, e)
}

// Finalize computes the overall outcome and duration, and orders components
// by name for stable output.
func (r *Report) Finalize() {
	r.Duration = time.Since(r.started).Round(time.Millisecond).String()

	sort.Slice(r.Components, func(i, j int) bool {
		return r.Components[i].Name < r.Components[j].Name
	})
	sort.Slice(r.Secrets, func(i, j int) bool {
		return r.Secrets[i].Name < r.Secrets[j].Name
	})
	sort.Slice(r.Endpoints, func(i, j int) bool {
		return r.Endpoints[i].Component < r.Endpoints[j].Component
	})

	r.Overall = OverallSucceeded
	for _, c := range r.Components {
		switch {
		case c.Outcome == OutcomeFailed || c.Outcome == OutcomeBlocked:
			r.Overall = OverallFailed
			return
		case c.Warnings():
			r.Overall = OverallWithWarnings
		}
	}
}

// Failed reports whether the run failed overall.
func (r *Report) Failed() bool {
	return r.Overall == OverallFailed
}

// Summary returns a one-line description of the run outcome.
func (r *Report) Summary() string {
	counts := map[Outcome]int{}
	for _, c := range r.Components {
		counts[c.Outcome]++
	}
	return fmt.Sprintf("%d applied, %d unchanged, %d failed, %d blocked",
		counts[OutcomeApplied], counts[OutcomeUnchanged], counts[OutcomeFailed], counts[OutcomeBlocked])
}
