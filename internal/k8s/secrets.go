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
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/konverge-dev/konverge/internal/stack"
)

// passwordCharset deliberately excludes characters that tend to break shell
// quoting and connection strings.
const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PasswordLength is the length of every generated credential field.
const PasswordLength = 24

// SecretRecord describes one generated secret after EnsureSecret. Values is
// populated only when the secret was created by this run; existing
// credentials are never read back into memory.
type SecretRecord struct {
	Name    string
	Ref     ResourceRef
	Created bool
	Fields  []string
	Values  map[string]string
}

// EnsureSecret reads or creates the secret for one binding. A secret that
// already exists is left untouched, whatever its content, so credentials
// stay stable across runs. A create racing with another writer yields to the
// winner and reports the secret as pre-existing.
func (c *Client) EnsureSecret(ctx context.Context, stackName, environment string, binding stack.SecretBinding) (*SecretRecord, error) {
	name := SecretName(stackName, binding.Name)
	ref := ResourceRef{Kind: "Secret", Namespace: c.namespace, Name: name}
	secrets := c.clientset.CoreV1().Secrets(c.namespace)

	existing, err := secrets.Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return &SecretRecord{
			Name:    binding.Name,
			Ref:     ref,
			Created: false,
			Fields:  fieldNames(existing.Data),
		}, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, &ApplyError{Resource: ref, Cause: err}
	}

	values := make(map[string]string, len(binding.Fields))
	data := make(map[string][]byte, len(binding.Fields))
	for _, field := range binding.Fields {
		value, genErr := GeneratePassword(PasswordLength)
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate credential %s/%s: %w", binding.Name, field, genErr)
		}
		values[field] = value
		data[field] = []byte(value)
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.namespace,
			Labels:    Labels(stackName, "", environment),
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}

	created, err := secrets.Create(ctx, secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		winner, getErr := secrets.Get(ctx, name, metav1.GetOptions{})
		if getErr != nil {
			return nil, &ApplyError{Resource: ref, Cause: getErr}
		}
		return &SecretRecord{
			Name:    binding.Name,
			Ref:     ref,
			Created: false,
			Fields:  fieldNames(winner.Data),
		}, nil
	}
	if err != nil {
		return nil, &ApplyError{Resource: ref, Cause: err}
	}

	return &SecretRecord{
		Name:    binding.Name,
		Ref:     ref,
		Created: true,
		Fields:  fieldNames(created.Data),
		Values:  values,
	}, nil
}

// GeneratePassword returns a random alphanumeric string of the given length
// using crypto/rand.
func GeneratePassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}

func fieldNames(data map[string][]byte) []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
