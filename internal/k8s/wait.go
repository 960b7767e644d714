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
	"net"
	"net/http"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Policy controls the poll loop of a readiness wait: linear backoff starting
// at Interval, growing by Increment per poll, capped at Cap. Deadline bounds
// the whole wait; zero means the caller's context is the only bound.
type Policy struct {
	Interval  time.Duration
	Increment time.Duration
	Cap       time.Duration
	Deadline  time.Duration
}

// DefaultPolicy polls every 2s, backing off by 1s per attempt up to 15s.
var DefaultPolicy = Policy{
	Interval:  2 * time.Second,
	Increment: 1 * time.Second,
	Cap:       15 * time.Second,
	Deadline:  5 * time.Minute,
}

// Probe checks one readiness condition. It returns done once the condition
// holds, and a human-readable observation for the report either way. A
// non-nil error aborts the wait; transient lookup failures should be
// reported through observed instead.
type Probe func(ctx context.Context) (done bool, observed string, err error)

// Waiter polls readiness conditions until they hold or the deadline passes.
type Waiter struct {
	client *Client
	policy Policy
}

// NewWaiter creates a waiter with the given poll policy.
func NewWaiter(client *Client, policy Policy) *Waiter {
	return &Waiter{client: client, policy: policy}
}

// Await polls the probe under the policy. On deadline it returns a
// TimeoutError carrying the last observation, so the report can say what the
// resource looked like when time ran out.
func (w *Waiter) Await(ctx context.Context, ref ResourceRef, probe Probe) error {
	if w.policy.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.policy.Deadline)
		defer cancel()
	}

	delay := w.policy.Interval
	lastObserved := "not yet observed"

	for {
		done, observed, err := probe(ctx)
		if err != nil {
			return err
		}
		if observed != "" {
			lastObserved = observed
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return &TimeoutError{Resource: ref, LastObserved: lastObserved}
		case <-time.After(delay):
		}

		delay += w.policy.Increment
		if w.policy.Cap > 0 && delay > w.policy.Cap {
			delay = w.policy.Cap
		}
	}
}

// DeploymentReady reports whether the deployment's current generation has
// rolled out with all replicas ready.
func (w *Waiter) DeploymentReady(name string) Probe {
	return func(ctx context.Context) (bool, string, error) {
		dep, err := w.client.Clientset().AppsV1().Deployments(w.client.Namespace()).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, fmt.Sprintf("lookup failed: %v", err), nil
		}

		want := int32(1)
		if dep.Spec.Replicas != nil {
			want = *dep.Spec.Replicas
		}
		observed := fmt.Sprintf("%d/%d replicas ready", dep.Status.ReadyReplicas, want)

		if dep.Status.ObservedGeneration < dep.Generation {
			return false, observed + " (rollout pending)", nil
		}
		done := dep.Status.UpdatedReplicas == want && dep.Status.ReadyReplicas == want
		return done, observed, nil
	}
}

// StatefulSetReady reports whether the stateful set's current generation has
// rolled out with all replicas ready.
func (w *Waiter) StatefulSetReady(name string) Probe {
	return func(ctx context.Context) (bool, string, error) {
		sts, err := w.client.Clientset().AppsV1().StatefulSets(w.client.Namespace()).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, fmt.Sprintf("lookup failed: %v", err), nil
		}

		want := int32(1)
		if sts.Spec.Replicas != nil {
			want = *sts.Spec.Replicas
		}
		observed := fmt.Sprintf("%d/%d replicas ready", sts.Status.ReadyReplicas, want)

		if sts.Status.ObservedGeneration < sts.Generation {
			return false, observed + " (rollout pending)", nil
		}
		done := sts.Status.UpdatedReplicas == want && sts.Status.ReadyReplicas == want
		return done, observed, nil
	}
}

// TCPReachable reports whether a TCP connection to addr succeeds.
func TCPReachable(addr string) Probe {
	return func(ctx context.Context) (bool, string, error) {
		dialer := net.Dialer{}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, fmt.Sprintf("dial %s: %v", addr, err), nil
		}
		conn.Close()
		return true, fmt.Sprintf("%s reachable", addr), nil
	}
}

// HTTPOk reports whether a GET of url returns a 2xx or 3xx status. Used to
// probe routes after the workload itself reports ready.
func HTTPOk(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (bool, string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, "", fmt.Errorf("failed to build probe request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return false, fmt.Sprintf("GET %s: %v", url, err), nil
		}
		resp.Body.Close()

		observed := fmt.Sprintf("GET %s: %s", url, resp.Status)
		return resp.StatusCode >= 200 && resp.StatusCode < 400, observed, nil
	}
}
