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
	"context"
	"fmt"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GetAvailableComponents lists the components that have running pods under the
// stack's labels. The result may disagree with the stack file in either
// direction: a declared component with no pods is absent here, and pods left
// behind by a component removed from the stack file still show up.
func (c *Client) GetAvailableComponents(ctx context.Context, stackName string) ([]string, error) {
	selector, err := BuildStackSelector(stackName)
	if err != nil {
		return nil, fmt.Errorf("failed to build stack selector: %w", err)
	}

	pods, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
		FieldSelector: "status.phase=Running",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	componentSet := make(map[string]bool)
	for _, pod := range pods.Items {
		if componentName, exists := pod.Labels[ComponentLabel]; exists {
			componentSet[componentName] = true
		}
	}

	components := make([]string, 0, len(componentSet))
	for component := range componentSet {
		components = append(components, component)
	}
	sort.Strings(components)

	return components, nil
}
