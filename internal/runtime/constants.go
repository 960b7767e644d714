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

import "time"

// Runtime Defaults
const (
	// DefaultTimeout is the default deadline for one reconciliation run
	DefaultTimeout = 10 * time.Minute

	// DefaultNamespace is used when no namespace is specified
	DefaultNamespace = "default"
)

// Timeout bounds
const (
	// TimeoutMin is the minimum allowed run deadline
	TimeoutMin = 30 * time.Second

	// TimeoutMax is the maximum allowed run deadline
	TimeoutMax = 60 * time.Minute
)

// Environment Variables
const (
	// KubeConfigEnvVar is the environment variable for kubeconfig path
	KubeConfigEnvVar = "KUBECONFIG"

	// NamespaceEnvVar is the environment variable for default namespace
	NamespaceEnvVar = "KNV_NAMESPACE"

	// DebugEnvVar is the environment variable for enabling debug mode
	DebugEnvVar = "KNV_DEBUG"
)

// ValidateTimeout ensures timeout is within acceptable bounds.
func ValidateTimeout(timeout time.Duration) bool {
	return timeout >= TimeoutMin && timeout <= TimeoutMax
}
