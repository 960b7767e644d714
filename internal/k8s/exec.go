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
	"bytes"
	"context"
	"fmt"
	"net/url"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// ExecutorFactory creates the streaming executor for one exec request.
// Swappable so tests can run commands without a live API server.
type ExecutorFactory func(config *rest.Config, method string, u *url.URL) (remotecommand.Executor, error)

// Exec runs commands inside running containers over the exec subresource.
// Commands run without a TTY; stdout and stderr are captured separately.
type Exec struct {
	client      *Client
	config      *rest.Config
	newExecutor ExecutorFactory
}

// NewExec creates an exec transport for the given client and REST config.
func NewExec(client *Client, config *rest.Config) *Exec {
	return &Exec{
		client:      client,
		config:      config,
		newExecutor: remotecommand.NewSPDYExecutor,
	}
}

// WithExecutorFactory overrides how streaming executors are built. Used in tests.
func (e *Exec) WithExecutorFactory(factory ExecutorFactory) *Exec {
	e.newExecutor = factory
	return e
}

// Run executes the command in the named pod and container, returning captured
// stdout and stderr. A non-zero exit status surfaces as an error from the
// stream, with stderr still populated for diagnostics.
func (e *Exec) Run(ctx context.Context, podName, container string, command []string) (string, string, error) {
	req := e.client.Clientset().CoreV1().RESTClient().Post().
		Resource("pods").
		Name(podName).
		Namespace(e.client.Namespace()).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdin:     false,
			Stdout:    true,
			Stderr:    true,
			TTY:       false,
		}, scheme.ParameterCodec)

	exec, err := e.newExecutor(e.config, "POST", req.URL())
	if err != nil {
		return "", "", fmt.Errorf("failed to create executor: %w", err)
	}

	var stdout, stderr bytes.Buffer
	err = exec.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
		Tty:    false,
	})
	return stdout.String(), stderr.String(), err
}

// ExecReady returns a probe that succeeds once a trivial command runs in the
// component's container. A pod can be network-ready before its runtime
// accepts exec sessions, so configuration waits on this separately.
func (e *Exec) ExecReady(stack, component, environment, container string) Probe {
	return func(ctx context.Context) (bool, string, error) {
		_, stderr, err := e.RunInComponent(ctx, stack, component, environment, container, []string{"true"})
		if err != nil {
			observed := "exec not accepted yet"
			if stderr != "" {
				observed = stderr
			}
			return false, observed, nil
		}
		return true, "exec ready", nil
	}
}

// RunInComponent executes the command in the first running pod of a
// component. Pods of a component are equivalent, so first is fine.
func (e *Exec) RunInComponent(ctx context.Context, stack, component, environment, container string, command []string) (string, string, error) {
	pods, err := e.client.GetRunningPods(ctx, stack, component, environment)
	if err != nil {
		return "", "", fmt.Errorf("failed to get running pods: %w", err)
	}
	if len(pods) == 0 {
		return "", "", fmt.Errorf("no running pods found for component %q", component)
	}

	pod := pods[0]
	if container == "" {
		container = component
		if len(pod.Containers) == 1 {
			container = pod.Containers[0]
		}
	}

	return e.Run(ctx, pod.Name, container, command)
}
