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
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/konverge-dev/konverge/internal/stack"
)

// RuntimeProvider defines the interface for runtime dependency management.
// This interface enables better testability by allowing mock implementations
// and provides a clear contract for runtime services.
type RuntimeProvider interface {
	// Kubernetes returns a configured Kubernetes clientset
	Kubernetes() (KubernetesClient, error)

	// RESTConfig returns the raw cluster config, needed by the exec transport
	RESTConfig() (*rest.Config, error)

	// Stack loads and returns the parsed stack for the configured environment
	Stack() (*stack.Stack, error)

	// Close performs cleanup of resources held by the runtime
	Close() error
}

// KubernetesClient defines the interface for Kubernetes operations.
// This abstraction enables testing with mock Kubernetes clients.
type KubernetesClient interface {
	kubernetes.Interface
}

// StackLoader defines the interface for stack loading operations.
// This enables testing with mock stack loaders and different loading strategies.
type StackLoader interface {
	// Load reads and parses a stack file for the given environment
	Load(path string, envName string) (*stack.Stack, error)
}

// LoggerProvider defines the interface for logging operations.
// This enables structured logging with different implementations and levels.
type LoggerProvider interface {
	// Debug logs a debug-level message
	Debug(msg string, keyvals ...interface{})

	// Info logs an info-level message
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning-level message
	Warn(msg string, keyvals ...interface{})

	// Error logs an error-level message
	Error(msg string, keyvals ...interface{})

	// Fatal logs a fatal-level message and exits
	Fatal(msg string, keyvals ...interface{})

	// With returns a new logger with the given key-value pairs
	With(keyvals ...interface{}) LoggerProvider
}
