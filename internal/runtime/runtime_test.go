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

package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"
)

func TestRuntimeWithDependencyInjection(t *testing.T) {
	t.Run("should use injected kubernetes factory", func(t *testing.T) {
		clientset := fake.NewSimpleClientset()

		rt := New(
			WithKubernetesFactory(func(r *Runtime) (KubernetesClient, error) {
				return clientset, nil
			}),
		)

		client, err := rt.Kubernetes()
		require.NoError(t, err)
		assert.Equal(t, clientset, client)
	})

	t.Run("should use default configuration values", func(t *testing.T) {
		rt := New()

		assert.Equal(t, DefaultTimeout, rt.timeout)
		assert.Equal(t, DefaultNamespace, rt.Namespace())
	})

	t.Run("should override configuration with options", func(t *testing.T) {
		customTimeout := 5 * time.Minute

		rt := New(
			WithTimeout(customTimeout),
			WithNamespace("test-namespace"),
			WithStackPath("my-stack.yaml"),
			WithEnvironment("prod"),
		)

		assert.Equal(t, customTimeout, rt.Timeout())
		assert.Equal(t, "test-namespace", rt.Namespace())
		assert.Equal(t, "my-stack.yaml", rt.StackPath())
		assert.Equal(t, "prod", rt.Environment())
	})

	t.Run("should memoize clients", func(t *testing.T) {
		callCount := 0
		clientset := fake.NewSimpleClientset()

		rt := New(
			WithKubernetesFactory(func(r *Runtime) (KubernetesClient, error) {
				callCount++
				return clientset, nil
			}),
		)

		client1, err1 := rt.Kubernetes()
		client2, err2 := rt.Kubernetes()

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, client1, client2)
		assert.Equal(t, 1, callCount, "Factory should be called only once due to memoization")
	})

	t.Run("should handle factory errors", func(t *testing.T) {
		expectedError := errors.New("kubernetes factory error")

		rt := New(
			WithKubernetesFactory(func(r *Runtime) (KubernetesClient, error) {
				return nil, expectedError
			}),
		)

		client, err := rt.Kubernetes()

		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "failed to create kubernetes client")
	})
}

func TestConfigurationValidation(t *testing.T) {
	t.Run("should validate timeout bounds", func(t *testing.T) {
		tests := []struct {
			name     string
			timeout  time.Duration
			expected bool
		}{
			{"valid timeout", 5 * time.Minute, true},
			{"minimum timeout", TimeoutMin, true},
			{"maximum timeout", TimeoutMax, true},
			{"too short", 10 * time.Second, false},
			{"too long", 120 * time.Minute, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := ValidateTimeout(tt.timeout)
				assert.Equal(t, tt.expected, result)
			})
		}
	})
}

func TestRuntimeProvider(t *testing.T) {
	t.Run("should implement RuntimeProvider interface", func(t *testing.T) {
		rt := New()

		var provider RuntimeProvider = rt
		assert.NotNil(t, provider)
		assert.NoError(t, provider.Close())
	})

	t.Run("should handle context operations", func(t *testing.T) {
		rt := New()
		ctx := context.Background()

		ctxWithRuntime := WithRuntime(ctx, rt)
		retrieved := FromRuntime(ctxWithRuntime)

		assert.Equal(t, rt, retrieved)
	})

	t.Run("should return nil for context without runtime", func(t *testing.T) {
		assert.Nil(t, FromRuntime(context.Background()))
	})
}

func TestSetEnvironment(t *testing.T) {
	t.Run("should discard memoized stack on environment switch", func(t *testing.T) {
		rt := New(WithEnvironment("dev"))
		rt.stack = nil // nothing loaded yet

		rt.SetEnvironment("prod")
		assert.Equal(t, "prod", rt.Environment())
		assert.Nil(t, rt.stack)
	})
}
