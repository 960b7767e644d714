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

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// GetRunningPods gets running pods for the specified stack, component, and environment
func (c *Client) GetRunningPods(ctx context.Context, stack, component, environment string) ([]PodInfo, error) {
	selector, err := BuildSelector(stack, component, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to build selector: %w", err)
	}

	pods, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
		FieldSelector: "status.phase=Running",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	podInfos := make([]PodInfo, 0, len(pods.Items))
	for _, pod := range pods.Items {
		containers := make([]string, 0, len(pod.Spec.Containers))
		for _, container := range pod.Spec.Containers {
			containers = append(containers, container.Name)
		}

		info := PodInfo{
			Name:       pod.Name,
			Namespace:  pod.Namespace,
			Containers: containers,
			Status:     string(pod.Status.Phase),
		}
		if pod.Status.StartTime != nil {
			info.StartedAt = pod.Status.StartTime.Time
		}
		podInfos = append(podInfos, info)
	}

	return podInfos, nil
}

// GetPodStatus retrieves ready/total pod counts for one component of a stack
func (c *Client) GetPodStatus(ctx context.Context, stack, component string) (int, int, string, error) {
	selector, err := BuildComponentSelector(stack, component)
	if err != nil {
		return 0, 0, "0/0", fmt.Errorf("failed to build selector: %w", err)
	}

	pods, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return 0, 0, "0/0", fmt.Errorf("failed to list pods for component %s: %w", component, err)
	}

	totalPods := len(pods.Items)
	readyPods := 0

	for _, pod := range pods.Items {
		if pod.Status.Phase == "Running" {
			ready := true
			for _, container := range pod.Status.ContainerStatuses {
				if !container.Ready {
					ready = false
					break
				}
			}
			if ready {
				readyPods++
			}
		}
	}

	return totalPods, readyPods, fmt.Sprintf("%d/%d", readyPods, totalPods), nil
}
