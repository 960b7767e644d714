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

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeOverall(t *testing.T) {
	tests := []struct {
		name       string
		components []ComponentReport
		expected   Overall
	}{
		{
			name: "all converged",
			components: []ComponentReport{
				{Name: "web", Outcome: OutcomeApplied},
				{Name: "db", Outcome: OutcomeUnchanged},
			},
			expected: OverallSucceeded,
		},
		{
			name: "non-fatal step failure downgrades to warnings",
			components: []ComponentReport{
				{Name: "db", Outcome: OutcomeUnchanged},
				{
					Name:    "web",
					Outcome: OutcomeApplied,
					Steps: []StepReport{
						{Name: "install", Status: "succeeded"},
						{Name: "tune", Status: "failed"},
					},
				},
			},
			expected: OverallWithWarnings,
		},
		{
			name: "any failed component fails the run",
			components: []ComponentReport{
				{Name: "web", Outcome: OutcomeApplied},
				{Name: "db", Outcome: OutcomeFailed, Message: "timed out"},
			},
			expected: OverallFailed,
		},
		{
			name: "blocked components fail the run",
			components: []ComponentReport{
				{Name: "db", Outcome: OutcomeFailed},
				{Name: "web", Outcome: OutcomeBlocked, BlockedOn: []string{"db"}},
			},
			expected: OverallFailed,
		},
		{
			name:       "empty stack succeeds",
			components: nil,
			expected:   OverallSucceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("shop", "dev", "demo")
			for _, c := range tt.components {
				r.AddComponent(c)
			}
			r.Finalize()
			assert.Equal(t, tt.expected, r.Overall)
			assert.Equal(t, tt.expected == OverallFailed, r.Failed())
		})
	}
}

func TestFinalizeSortsByName(t *testing.T) {
	r := New("shop", "dev", "demo")
	r.AddComponent(ComponentReport{Name: "web", Outcome: OutcomeApplied})
	r.AddComponent(ComponentReport{Name: "db", Outcome: OutcomeApplied})
	r.AddComponent(ComponentReport{Name: "redis", Outcome: OutcomeApplied})
	r.AddSecret(SecretReport{Name: "web-credentials"})
	r.AddSecret(SecretReport{Name: "db-credentials"})
	r.AddEndpoint(EndpointReport{Component: "web", URL: "https://shop.example.com"})
	r.AddEndpoint(EndpointReport{Component: "admin", URL: "https://admin.shop.example.com"})
	r.Finalize()

	names := make([]string, 0, len(r.Components))
	for _, c := range r.Components {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"db", "redis", "web"}, names)

	assert.Equal(t, "db-credentials", r.Secrets[0].Name)
	assert.Equal(t, "web-credentials", r.Secrets[1].Name)
	assert.Equal(t, "admin", r.Endpoints[0].Component)
	assert.Equal(t, "web", r.Endpoints[1].Component)
	assert.NotEmpty(t, r.Duration)
}

func TestNewAssignsRunID(t *testing.T) {
	first := New("shop", "dev", "demo")
	second := New("shop", "dev", "demo")
	require.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.False(t, first.StartedAt.IsZero())
}

func TestComponentWarnings(t *testing.T) {
	tests := []struct {
		name      string
		component ComponentReport
		expected  bool
	}{
		{
			name:      "no steps",
			component: ComponentReport{Outcome: OutcomeApplied},
			expected:  false,
		},
		{
			name: "all steps succeeded",
			component: ComponentReport{
				Outcome: OutcomeApplied,
				Steps:   []StepReport{{Name: "install", Status: "succeeded"}},
			},
			expected: false,
		},
		{
			name: "non-fatal failure on a converged component",
			component: ComponentReport{
				Outcome: OutcomeApplied,
				Steps:   []StepReport{{Name: "tune", Status: "failed"}},
			},
			expected: true,
		},
		{
			name: "failed component reports failure, not warnings",
			component: ComponentReport{
				Outcome: OutcomeFailed,
				Steps:   []StepReport{{Name: "install", Status: "failed", Fatal: true}},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.component.Warnings())
		})
	}
}

func TestSummary(t *testing.T) {
	r := New("shop", "dev", "demo")
	r.AddComponent(ComponentReport{Name: "web", Outcome: OutcomeApplied})
	r.AddComponent(ComponentReport{Name: "db", Outcome: OutcomeUnchanged})
	r.AddComponent(ComponentReport{Name: "redis", Outcome: OutcomeFailed})
	r.AddComponent(ComponentReport{Name: "minio", Outcome: OutcomeBlocked})
	r.Finalize()

	assert.Equal(t, "1 applied, 1 unchanged, 1 failed, 1 blocked", r.Summary())
}
