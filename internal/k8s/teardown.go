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

// TeardownOptions controls what a teardown removes.
type TeardownOptions struct {
	// KeepData leaves persistent volume claims in place so a later apply
	// finds the data again.
	KeepData bool

	// KeepSecrets leaves generated secrets in place. Combined with KeepData
	// this makes teardown fully reversible.
	KeepSecrets bool

	// DryRun lists what would be deleted without deleting anything.
	DryRun bool
}

// Teardown deletes every resource Konverge owns for the stack, identified by
// the managed-by label. Resources created by hand in the same namespace are
// never touched. Returns the references of everything deleted, or with
// DryRun set, everything that would have been.
func (c *Client) Teardown(ctx context.Context, stackName string, opts TeardownOptions) ([]ResourceRef, error) {
	selector, err := BuildManagedSelector(stackName)
	if err != nil {
		return nil, fmt.Errorf("failed to build selector: %w", err)
	}

	listOpts := metav1.ListOptions{LabelSelector: selector}
	var deleted []ResourceRef

	cs := c.clientset

	deployments, err := cs.AppsV1().Deployments(c.namespace).List(ctx, listOpts)
	if err != nil {
		return deleted, fmt.Errorf("failed to list deployments: %w", err)
	}
	for _, item := range deployments.Items {
		if !opts.DryRun {
			if err := cs.AppsV1().Deployments(c.namespace).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil {
				return deleted, fmt.Errorf("failed to delete deployment %s: %w", item.Name, err)
			}
		}
		deleted = append(deleted, ResourceRef{Kind: "Deployment", Namespace: c.namespace, Name: item.Name})
	}

	statefulSets, err := cs.AppsV1().StatefulSets(c.namespace).List(ctx, listOpts)
	if err != nil {
		return deleted, fmt.Errorf("failed to list stateful sets: %w", err)
	}
	for _, item := range statefulSets.Items {
		if !opts.DryRun {
			if err := cs.AppsV1().StatefulSets(c.namespace).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil {
				return deleted, fmt.Errorf("failed to delete stateful set %s: %w", item.Name, err)
			}
		}
		deleted = append(deleted, ResourceRef{Kind: "StatefulSet", Namespace: c.namespace, Name: item.Name})
	}

	ingresses, err := cs.NetworkingV1().Ingresses(c.namespace).List(ctx, listOpts)
	if err != nil {
		return deleted, fmt.Errorf("failed to list ingresses: %w", err)
	}
	for _, item := range ingresses.Items {
		if !opts.DryRun {
			if err := cs.NetworkingV1().Ingresses(c.namespace).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil {
				return deleted, fmt.Errorf("failed to delete ingress %s: %w", item.Name, err)
			}
		}
		deleted = append(deleted, ResourceRef{Kind: "Ingress", Namespace: c.namespace, Name: item.Name})
	}

	services, err := cs.CoreV1().Services(c.namespace).List(ctx, listOpts)
	if err != nil {
		return deleted, fmt.Errorf("failed to list services: %w", err)
	}
	for _, item := range services.Items {
		if !opts.DryRun {
			if err := cs.CoreV1().Services(c.namespace).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil {
				return deleted, fmt.Errorf("failed to delete service %s: %w", item.Name, err)
			}
		}
		deleted = append(deleted, ResourceRef{Kind: "Service", Namespace: c.namespace, Name: item.Name})
	}

	if !opts.KeepSecrets {
		secrets, err := cs.CoreV1().Secrets(c.namespace).List(ctx, listOpts)
		if err != nil {
			return deleted, fmt.Errorf("failed to list secrets: %w", err)
		}
		for _, item := range secrets.Items {
			if !opts.DryRun {
				if err := cs.CoreV1().Secrets(c.namespace).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil {
					return deleted, fmt.Errorf("failed to delete secret %s: %w", item.Name, err)
				}
			}
			deleted = append(deleted, ResourceRef{Kind: "Secret", Namespace: c.namespace, Name: item.Name})
		}
	}

	if !opts.KeepData {
		claims, err := cs.CoreV1().PersistentVolumeClaims(c.namespace).List(ctx, listOpts)
		if err != nil {
			return deleted, fmt.Errorf("failed to list persistent volume claims: %w", err)
		}
		for _, item := range claims.Items {
			if !opts.DryRun {
				if err := cs.CoreV1().PersistentVolumeClaims(c.namespace).Delete(ctx, item.Name, metav1.DeleteOptions{}); err != nil {
					return deleted, fmt.Errorf("failed to delete persistent volume claim %s: %w", item.Name, err)
				}
			}
			deleted = append(deleted, ResourceRef{Kind: "PersistentVolumeClaim", Namespace: c.namespace, Name: item.Name})
		}
	}

	return deleted, nil
}
