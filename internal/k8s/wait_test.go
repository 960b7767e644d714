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
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/utils/ptr"
)

// fastPolicy keeps wait tests in the millisecond range.
var fastPolicy = Policy{
	Interval:  time.Millisecond,
	Increment: time.Millisecond,
	Cap:       5 * time.Millisecond,
	Deadline:  50 * time.Millisecond,
}

func newTestWaiter(clientset *fake.Clientset) *Waiter {
	return NewWaiter(NewClient(clientset, "demo"), fastPolicy)
}

func TestAwait(t *testing.T) {
	ref := ResourceRef{Kind: "Deployment", Namespace: "demo", Name: "shop-web"}

	t.Run("immediate success", func(t *testing.T) {
		w := newTestWaiter(fake.NewSimpleClientset())
		err := w.Await(context.Background(), ref, func(ctx context.Context) (bool, string, error) {
			return true, "ready", nil
		})
		assert.NoError(t, err)
	})

	t.Run("success after a few polls", func(t *testing.T) {
		w := newTestWaiter(fake.NewSimpleClientset())
		polls := 0
		err := w.Await(context.Background(), ref, func(ctx context.Context) (bool, string, error) {
			polls++
			return polls >= 3, fmt.Sprintf("poll %d", polls), nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, polls)
	})

	t.Run("deadline yields a timeout carrying the last observation", func(t *testing.T) {
		w := newTestWaiter(fake.NewSimpleClientset())
		err := w.Await(context.Background(), ref, func(ctx context.Context) (bool, string, error) {
			return false, "0/1 replicas ready", nil
		})
		require.Error(t, err)

		var timeoutErr *TimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		assert.Equal(t, ref, timeoutErr.Resource)
		assert.Equal(t, "0/1 replicas ready", timeoutErr.LastObserved)
		assert.ErrorContains(t, err, "timed out waiting for Deployment/shop-web")
	})

	t.Run("probe error aborts the wait", func(t *testing.T) {
		w := newTestWaiter(fake.NewSimpleClientset())
		probeErr := errors.New("bad probe input")
		err := w.Await(context.Background(), ref, func(ctx context.Context) (bool, string, error) {
			return false, "", probeErr
		})
		assert.ErrorIs(t, err, probeErr)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		w := NewWaiter(NewClient(fake.NewSimpleClientset(), "demo"), Policy{
			Interval: time.Millisecond,
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := w.Await(ctx, ref, func(ctx context.Context) (bool, string, error) {
			return false, "waiting", nil
		})
		var timeoutErr *TimeoutError
		assert.True(t, errors.As(err, &timeoutErr))
	})
}

func deploymentWithStatus(ready, updated int32, generation, observed int64) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:       "shop-web",
			Namespace:  "demo",
			Generation: generation,
		},
		Spec: appsv1.DeploymentSpec{Replicas: ptr.To(int32(2))},
		Status: appsv1.DeploymentStatus{
			ReadyReplicas:      ready,
			UpdatedReplicas:    updated,
			ObservedGeneration: observed,
		},
	}
}

func TestDeploymentReady(t *testing.T) {
	tests := []struct {
		name     string
		dep      *appsv1.Deployment
		done     bool
		observed string
	}{
		{
			name:     "all replicas ready",
			dep:      deploymentWithStatus(2, 2, 1, 1),
			done:     true,
			observed: "2/2 replicas ready",
		},
		{
			name:     "replicas still starting",
			dep:      deploymentWithStatus(1, 2, 1, 1),
			done:     false,
			observed: "1/2 replicas ready",
		},
		{
			name:     "controller has not observed the new generation",
			dep:      deploymentWithStatus(2, 2, 2, 1),
			done:     false,
			observed: "2/2 replicas ready (rollout pending)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWaiter(fake.NewSimpleClientset(tt.dep))
			done, observed, err := w.DeploymentReady("shop-web")(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.done, done)
			assert.Equal(t, tt.observed, observed)
		})
	}

	t.Run("missing deployment is a transient observation", func(t *testing.T) {
		w := newTestWaiter(fake.NewSimpleClientset())
		done, observed, err := w.DeploymentReady("shop-web")(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.Contains(t, observed, "lookup failed")
	})
}

func TestStatefulSetReady(t *testing.T) {
	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "shop-db", Namespace: "demo", Generation: 1},
		Spec:       appsv1.StatefulSetSpec{Replicas: ptr.To(int32(1))},
		Status: appsv1.StatefulSetStatus{
			ReadyReplicas:      1,
			UpdatedReplicas:    1,
			ObservedGeneration: 1,
		},
	}

	w := newTestWaiter(fake.NewSimpleClientset(sts))
	done, observed, err := w.StatefulSetReady("shop-db")(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "1/1 replicas ready", observed)
}

func TestTCPReachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			conn.Close()
		}
	}()

	t.Run("open port", func(t *testing.T) {
		done, observed, err := TCPReachable(listener.Addr().String())(context.Background())
		require.NoError(t, err)
		assert.True(t, done)
		assert.Contains(t, observed, "reachable")
	})

	t.Run("closed port", func(t *testing.T) {
		closed, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := closed.Addr().String()
		closed.Close()

		done, observed, err := TCPReachable(addr)(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.Contains(t, observed, "dial")
	})
}

func TestHTTPOk(t *testing.T) {
	statusCode := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
	}))
	defer server.Close()

	tests := []struct {
		name   string
		status int
		done   bool
	}{
		{name: "200 is ready", status: http.StatusOK, done: true},
		{name: "302 is ready", status: http.StatusFound, done: true},
		{name: "503 is not ready", status: http.StatusServiceUnavailable, done: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode = tt.status
			done, observed, err := HTTPOk(server.Client(), server.URL+"/healthz")(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.done, done)
			assert.Contains(t, observed, "GET "+server.URL+"/healthz")
		})
	}

	t.Run("unreachable server is an observation, not an error", func(t *testing.T) {
		done, observed, err := HTTPOk(nil, "http://127.0.0.1:1/healthz")(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.Contains(t, observed, "GET http://127.0.0.1:1/healthz")
	})
}
