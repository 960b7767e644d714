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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"
)

// Resource pairs one typed desired object with the reference it is tracked by.
type Resource struct {
	Ref    ResourceRef
	Object any
}

// Action describes what Apply did to one resource.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// ApplyResult records the outcome of applying one resource.
type ApplyResult struct {
	Ref    ResourceRef
	Action Action
}

// kindWeight orders resources within a component so dependencies of the
// workload exist before the workload itself.
var kindWeight = map[string]int{
	"PersistentVolumeClaim": 0,
	"Service":               1,
	"Deployment":            2,
	"StatefulSet":           2,
	"Ingress":               3,
}

// Applier creates or updates rendered resources in the cluster. Applying the
// same desired state twice performs zero mutations the second time: a spec
// hash annotation on each resource is compared before any update call.
type Applier struct {
	client    *Client
	namespace string
}

// NewApplier creates an applier bound to one namespace.
func NewApplier(client *Client) *Applier {
	return &Applier{
		client:    client,
		namespace: client.Namespace(),
	}
}

// ApplyAll applies resources in dependency order: claims, then services, then
// workloads, then ingresses. It stops at the first failure so a component is
// never left with a workload pointing at resources that failed to apply.
func (a *Applier) ApplyAll(ctx context.Context, resources []Resource) ([]ApplyResult, error) {
	ordered := make([]Resource, len(resources))
	copy(ordered, resources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return kindWeight[ordered[i].Ref.Kind] < kindWeight[ordered[j].Ref.Kind]
	})

	results := make([]ApplyResult, 0, len(ordered))
	for _, resource := range ordered {
		action, err := a.Apply(ctx, resource)
		if err != nil {
			return results, err
		}
		results = append(results, ApplyResult{Ref: resource.Ref, Action: action})
	}
	return results, nil
}

// Apply creates the resource if absent, updates it if its desired state
// changed, and does nothing if the recorded spec hash matches.
func (a *Applier) Apply(ctx context.Context, resource Resource) (Action, error) {
	cs := a.client.Clientset()

	switch obj := resource.Object.(type) {
	case *appsv1.Deployment:
		return applyResource(ctx, cs.AppsV1().Deployments(a.namespace), obj, resource.Ref, nil)
	case *appsv1.StatefulSet:
		return applyResource(ctx, cs.AppsV1().StatefulSets(a.namespace), obj, resource.Ref, nil)
	case *corev1.Service:
		return applyResource(ctx, cs.CoreV1().Services(a.namespace), obj, resource.Ref, mergeService)
	case *corev1.PersistentVolumeClaim:
		return applyResource(ctx, cs.CoreV1().PersistentVolumeClaims(a.namespace), obj, resource.Ref, mergeClaim)
	case *networkingv1.Ingress:
		return applyResource(ctx, cs.NetworkingV1().Ingresses(a.namespace), obj, resource.Ref, nil)
	default:
		return "", &ApplyError{
			Resource: resource.Ref,
			Cause:    fmt.Errorf("unsupported resource type %T", resource.Object),
		}
	}
}

// resourceClient is the subset of a typed client-go resource interface the
// applier needs. Every typed clientset interface satisfies it.
type resourceClient[T metav1.Object] interface {
	Get(ctx context.Context, name string, opts metav1.GetOptions) (T, error)
	Create(ctx context.Context, obj T, opts metav1.CreateOptions) (T, error)
	Update(ctx context.Context, obj T, opts metav1.UpdateOptions) (T, error)
}

func applyResource[T metav1.Object](ctx context.Context, c resourceClient[T], desired T, ref ResourceRef, merge func(current, desired T)) (Action, error) {
	hash, err := SpecHash(desired)
	if err != nil {
		return "", &ApplyError{Resource: ref, Cause: err}
	}
	annotations := desired.GetAnnotations()
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations[SpecHashAnnotation] = hash
	desired.SetAnnotations(annotations)

	existing, err := c.Get(ctx, desired.GetName(), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		err = retry.OnError(retry.DefaultBackoff, isTransient, func() error {
			_, createErr := c.Create(ctx, desired, metav1.CreateOptions{})
			return createErr
		})
		if err != nil {
			return "", &ApplyError{Resource: ref, Cause: err}
		}
		return ActionCreated, nil
	}
	if err != nil {
		return "", &ApplyError{Resource: ref, Cause: err}
	}

	if existing.GetAnnotations()[SpecHashAnnotation] == hash {
		return ActionUnchanged, nil
	}

	err = retry.OnError(retry.DefaultBackoff, retriableUpdate, func() error {
		current, getErr := c.Get(ctx, desired.GetName(), metav1.GetOptions{})
		if getErr != nil {
			return getErr
		}
		desired.SetResourceVersion(current.GetResourceVersion())
		if merge != nil {
			merge(current, desired)
		}
		_, updateErr := c.Update(ctx, desired, metav1.UpdateOptions{})
		return updateErr
	})
	if err != nil {
		return "", &ApplyError{Resource: ref, Cause: err}
	}
	return ActionUpdated, nil
}

// mergeService carries the cluster-assigned networking identity over from the
// live object, since those fields are immutable once set.
func mergeService(current, desired *corev1.Service) {
	desired.Spec.ClusterIP = current.Spec.ClusterIP
	desired.Spec.ClusterIPs = current.Spec.ClusterIPs
}

// mergeClaim keeps the live claim's spec except for the requested size, the
// only mutable field. Storage class and access modes cannot change after
// binding.
func mergeClaim(current, desired *corev1.PersistentVolumeClaim) {
	requested := desired.Spec.Resources.Requests
	desired.Spec = current.Spec
	if size, ok := requested[corev1.ResourceStorage]; ok {
		if desired.Spec.Resources.Requests == nil {
			desired.Spec.Resources.Requests = corev1.ResourceList{}
		}
		desired.Spec.Resources.Requests[corev1.ResourceStorage] = size
	}
}

// SpecHash returns the hex-encoded SHA-256 of the desired object's JSON
// serialization, computed before the hash annotation itself is attached.
func SpecHash(obj any) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to serialize object for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// isTransient reports whether the error is a momentary server-side condition
// worth retrying.
func isTransient(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err)
}

func retriableUpdate(err error) bool {
	return apierrors.IsConflict(err) || isTransient(err)
}
