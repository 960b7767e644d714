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

// Package render turns stack components into typed Kubernetes resources.
//
// Each resource kind is produced from an embedded Go template rendered with
// Sprig functions and decoded strictly into its client-go type. Rendering is
// deterministic for a given stack: maps are emitted in sorted key order, so
// the same component always produces byte-identical YAML and therefore the
// same spec hash.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
	"github.com/distribution/reference"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"sigs.k8s.io/yaml"

	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/stack"
)

//go:embed templates
var templateFS embed.FS

var templates = template.Must(
	template.New("resources").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/*.gotmpl"),
)

// Options carries the run-scoped inputs that are not part of the stack file.
type Options struct {
	Namespace   string
	Environment string
	// FSGroup, when non-nil, is set on the pod security context of every
	// workload. Left nil on platforms that assign group IDs themselves.
	FSGroup *int64
}

// EnvVar is a literal environment variable of a container.
type EnvVar struct {
	Name  string
	Value string
}

// SecretEnvVar is an environment variable sourced from a generated secret.
type SecretEnvVar struct {
	Name   string
	Secret string
	Key    string
}

// Input is the data contract shared by all embedded templates.
type Input struct {
	Name           string
	Namespace      string
	Component      string
	Comp           stack.Component
	Labels         map[string]string
	SelectorLabels map[string]string
	FSGroup        int64
	Image          string
	Env            []EnvVar
	SecretEnv      []SecretEnvVar
}

// Component renders all resources of one component of the stack, in apply
// order: workload first, then service, claim, and ingress.
func Component(s *stack.Stack, name string, opts Options) ([]k8s.Resource, error) {
	comp, ok := s.Components[name]
	if !ok {
		return nil, fmt.Errorf("component %q is not defined in stack %q", name, s.Name)
	}

	in, err := buildInput(s, name, comp, opts)
	if err != nil {
		return nil, err
	}

	var resources []k8s.Resource

	if comp.Kind.Stateful() {
		sts := &appsv1.StatefulSet{}
		if err := renderOne("statefulset.yaml.gotmpl", in, sts); err != nil {
			return nil, err
		}
		resources = append(resources, k8s.Resource{
			Ref:    k8s.ResourceRef{Kind: "StatefulSet", Namespace: in.Namespace, Name: in.Name},
			Object: sts,
		})
	} else {
		dep := &appsv1.Deployment{}
		if err := renderOne("deployment.yaml.gotmpl", in, dep); err != nil {
			return nil, err
		}
		resources = append(resources, k8s.Resource{
			Ref:    k8s.ResourceRef{Kind: "Deployment", Namespace: in.Namespace, Name: in.Name},
			Object: dep,
		})

		// Stateless workloads mount a standalone claim; stateful ones get
		// theirs from volumeClaimTemplates.
		if comp.Storage != nil {
			pvc := &corev1.PersistentVolumeClaim{}
			if err := renderOne("pvc.yaml.gotmpl", in, pvc); err != nil {
				return nil, err
			}
			resources = append(resources, k8s.Resource{
				Ref:    k8s.ResourceRef{Kind: "PersistentVolumeClaim", Namespace: in.Namespace, Name: in.Name + "-data"},
				Object: pvc,
			})
		}
	}

	if comp.Port > 0 {
		svc := &corev1.Service{}
		if err := renderOne("service.yaml.gotmpl", in, svc); err != nil {
			return nil, err
		}
		resources = append(resources, k8s.Resource{
			Ref:    k8s.ResourceRef{Kind: "Service", Namespace: in.Namespace, Name: in.Name},
			Object: svc,
		})
	}

	if comp.Route != nil {
		ing := &networkingv1.Ingress{}
		if err := renderOne("ingress.yaml.gotmpl", in, ing); err != nil {
			return nil, err
		}
		resources = append(resources, k8s.Resource{
			Ref:    k8s.ResourceRef{Kind: "Ingress", Namespace: in.Namespace, Name: in.Name},
			Object: ing,
		})
	}

	return resources, nil
}

// Stack renders every component of the stack, keyed by component name.
func Stack(s *stack.Stack, opts Options) (map[string][]k8s.Resource, error) {
	rendered := make(map[string][]k8s.Resource, len(s.Components))
	for name := range s.Components {
		resources, err := Component(s, name, opts)
		if err != nil {
			return nil, err
		}
		rendered[name] = resources
	}
	return rendered, nil
}

func buildInput(s *stack.Stack, name string, comp stack.Component, opts Options) (Input, error) {
	image, err := normalizeImage(comp.Image)
	if err != nil {
		return Input{}, &stack.TemplateError{
			Template: fmt.Sprintf("component %s image", name),
			Cause:    err,
		}
	}

	// The readiness probe falls back to the component's main port when the
	// health block does not pin one.
	if comp.Health.Port == 0 {
		comp.Health.Port = comp.Port
	}

	in := Input{
		Name:           k8s.ResourceName(s.Name, name),
		Namespace:      opts.Namespace,
		Component:      name,
		Comp:           comp,
		Labels:         k8s.Labels(s.Name, name, opts.Environment),
		SelectorLabels: k8s.SelectorLabels(s.Name, name),
		Image:          image,
		Env:            literalEnv(comp.Env),
		SecretEnv:      secretEnv(s.Name, comp.Secrets),
	}
	if opts.FSGroup != nil {
		in.FSGroup = *opts.FSGroup
	}
	return in, nil
}

// normalizeImage canonicalizes a container image reference, pinning the
// default "latest" tag explicitly so rendered output never depends on
// registry-side defaults. It handles registry ports and digest references.
func normalizeImage(imageRef string) (string, error) {
	parsed, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", imageRef, err)
	}
	return reference.FamiliarString(reference.TagNameOnly(parsed)), nil
}

func literalEnv(env map[string]string) []EnvVar {
	if len(env) == 0 {
		return nil
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]EnvVar, 0, len(names))
	for _, name := range names {
		vars = append(vars, EnvVar{Name: name, Value: env[name]})
	}
	return vars
}

func secretEnv(stackName string, bindings []stack.SecretBinding) []SecretEnvVar {
	var vars []SecretEnvVar
	for _, binding := range bindings {
		names := make([]string, 0, len(binding.EnvMap))
		for name := range binding.EnvMap {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			vars = append(vars, SecretEnvVar{
				Name:   name,
				Secret: k8s.SecretName(stackName, binding.Name),
				Key:    binding.EnvMap[name],
			})
		}
	}
	return vars
}

func renderOne(name string, in Input, out any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, in); err != nil {
		return &stack.TemplateError{Template: name, Cause: err}
	}
	if err := yaml.UnmarshalStrict(buf.Bytes(), out); err != nil {
		return &stack.TemplateError{
			Template: name,
			Cause:    fmt.Errorf("rendered output is not a valid resource: %w", err),
		}
	}
	return nil
}
