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

package k8s

import (
	"fmt"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/selection"
)

// SelectorBuilder helps build Kubernetes label selectors for Konverge resources
type SelectorBuilder struct {
	selector labels.Selector
}

// NewSelectorBuilder creates a new selector builder
func NewSelectorBuilder() *SelectorBuilder {
	return &SelectorBuilder{
		selector: labels.NewSelector(),
	}
}

// WithStack adds a stack label requirement to the selector
func (sb *SelectorBuilder) WithStack(stack string) (*SelectorBuilder, error) {
	if stack == "" {
		return sb, nil
	}

	req, err := labels.NewRequirement(StackLabel, selection.Equals, []string{stack})
	if err != nil {
		return nil, fmt.Errorf("failed to create stack label requirement: %w", err)
	}
	sb.selector = sb.selector.Add(*req)
	return sb, nil
}

// WithComponent adds a component label requirement to the selector
func (sb *SelectorBuilder) WithComponent(component string) (*SelectorBuilder, error) {
	if component == "" {
		return sb, nil
	}

	req, err := labels.NewRequirement(ComponentLabel, selection.Equals, []string{component})
	if err != nil {
		return nil, fmt.Errorf("failed to create component label requirement: %w", err)
	}
	sb.selector = sb.selector.Add(*req)
	return sb, nil
}

// WithEnvironment adds an environment label requirement to the selector
func (sb *SelectorBuilder) WithEnvironment(environment string) (*SelectorBuilder, error) {
	if environment == "" {
		return sb, nil
	}

	req, err := labels.NewRequirement(EnvironmentLabel, selection.Equals, []string{environment})
	if err != nil {
		return nil, fmt.Errorf("failed to create environment label requirement: %w", err)
	}
	sb.selector = sb.selector.Add(*req)
	return sb, nil
}

// WithManagedBy restricts the selector to resources owned by Konverge
func (sb *SelectorBuilder) WithManagedBy() (*SelectorBuilder, error) {
	req, err := labels.NewRequirement(ManagedByLabel, selection.Equals, []string{ManagedByValue})
	if err != nil {
		return nil, fmt.Errorf("failed to create managed-by label requirement: %w", err)
	}
	sb.selector = sb.selector.Add(*req)
	return sb, nil
}

// Build returns the final label selector string
func (sb *SelectorBuilder) Build() string {
	return sb.selector.String()
}

// BuildSelector is a convenience function to build a selector with multiple criteria
func BuildSelector(stack, component, environment string) (string, error) {
	builder := NewSelectorBuilder()

	var err error
	builder, err = builder.WithStack(stack)
	if err != nil {
		return "", err
	}

	builder, err = builder.WithComponent(component)
	if err != nil {
		return "", err
	}

	builder, err = builder.WithEnvironment(environment)
	if err != nil {
		return "", err
	}

	return builder.Build(), nil
}

// BuildStackSelector builds a selector for a specific stack
func BuildStackSelector(stack string) (string, error) {
	return BuildSelector(stack, "", "")
}

// BuildComponentSelector builds a selector for a specific stack and component
func BuildComponentSelector(stack, component string) (string, error) {
	return BuildSelector(stack, component, "")
}

// BuildManagedSelector builds a selector covering every resource Konverge owns
// in a stack. Used by teardown so hand-created resources are never deleted.
func BuildManagedSelector(stack string) (string, error) {
	builder, err := NewSelectorBuilder().WithStack(stack)
	if err != nil {
		return "", err
	}
	builder, err = builder.WithManagedBy()
	if err != nil {
		return "", err
	}
	return builder.Build(), nil
}
