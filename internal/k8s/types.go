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

// Package k8s provides the cluster-facing operations: applying rendered
// resources, waiting for readiness, executing commands in pods, and managing
// generated secrets.
package k8s

import (
	"fmt"
	"time"
)

// Label constants for Konverge resources
const (
	StackLabel       = "konverge.dev/stack"
	ComponentLabel   = "konverge.dev/component"
	EnvironmentLabel = "konverge.dev/environment"
	ManagedByLabel   = "konverge.dev/managed-by"

	// ManagedByValue marks every resource Konverge owns. Teardown deletes
	// only resources carrying this label.
	ManagedByValue = "konverge"
)

// SpecHashAnnotation records the hash of the rendered desired state on each
// applied resource. Apply skips the update call when the hash is unchanged.
const SpecHashAnnotation = "konverge.dev/spec-hash"

// ResourceRef identifies one cluster resource by kind, namespace, and name.
type ResourceRef struct {
	Kind      string
	Namespace string
	Name      string
}

func (r ResourceRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.Name)
}

// ResourceName returns the cluster name of a component's resources.
// Format: STACK_NAME-COMPONENT_NAME
func ResourceName(stackName, component string) string {
	return stackName + "-" + component
}

// SecretName returns the cluster name of a generated secret.
// Format: STACK_NAME-SECRET_NAME
func SecretName(stackName, secret string) string {
	return stackName + "-" + secret
}

// Labels returns the full label set stamped on every resource of a component.
func Labels(stackName, component, environment string) map[string]string {
	l := map[string]string{
		StackLabel:     stackName,
		ManagedByLabel: ManagedByValue,
	}
	if component != "" {
		l[ComponentLabel] = component
	}
	if environment != "" {
		l[EnvironmentLabel] = environment
	}
	return l
}

// SelectorLabels returns the immutable subset of labels used for workload
// selectors. Environment is excluded so redeploying a stack into a different
// environment does not orphan existing pods behind a changed selector.
func SelectorLabels(stackName, component string) map[string]string {
	return map[string]string{
		StackLabel:     stackName,
		ComponentLabel: component,
	}
}

// PodInfo contains information about a pod
type PodInfo struct {
	Name       string
	Namespace  string
	Containers []string
	Status     string
	StartedAt  time.Time
}

