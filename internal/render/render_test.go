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

package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/utils/ptr"

	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/stack"
)

func testStack() *stack.Stack {
	return &stack.Stack{
		ApiVersion: "v1-alpha.1",
		Name:       "shop",
		Components: map[string]stack.Component{
			"web": {
				Kind:     stack.ComponentKindApp,
				Image:    "nginx:1.27",
				Replicas: 2,
				Port:     8080,
				Env: map[string]string{
					"ZED_VAR":   "last",
					"ALPHA_VAR": "first",
				},
				Secrets: []stack.SecretBinding{
					{
						Name:   "web-credentials",
						Fields: []string{"password"},
						EnvMap: map[string]string{"WEB_PASSWORD": "password"},
					},
				},
				Health: stack.Health{Style: stack.HealthStyleHTTP, Path: "/healthz", Port: 8080},
				Route:  &stack.Route{Host: "shop.example.com", TLS: true},
			},
			"db": {
				Kind:     stack.ComponentKindDatabase,
				Image:    "mariadb:11.4",
				Replicas: 1,
				Port:     3306,
				Storage: &stack.Storage{
					Size:      "5Gi",
					MountPath: "/var/lib/mysql",
				},
				Health: stack.Health{Style: stack.HealthStyleTCP, Port: 3306},
			},
			"uploader": {
				Kind:     stack.ComponentKindApp,
				Image:    "uploader:v2",
				Replicas: 1,
				Storage: &stack.Storage{
					Size:         "1Gi",
					StorageClass: "fast",
					MountPath:    "/uploads",
				},
				Health: stack.Health{Style: stack.HealthStyleRollout},
			},
		},
	}
}

func testOptions() Options {
	return Options{Namespace: "demo", Environment: "dev"}
}

func findResource(t *testing.T, resources []k8s.Resource, kind string) k8s.Resource {
	t.Helper()
	for _, r := range resources {
		if r.Ref.Kind == kind {
			return r
		}
	}
	t.Fatalf("no %s in rendered resources", kind)
	return k8s.Resource{}
}

func TestComponentApp(t *testing.T) {
	resources, err := Component(testStack(), "web", testOptions())
	require.NoError(t, err)
	require.Len(t, resources, 3)

	dep, ok := findResource(t, resources, "Deployment").Object.(*appsv1.Deployment)
	require.True(t, ok)

	assert.Equal(t, "shop-web", dep.Name)
	assert.Equal(t, "demo", dep.Namespace)
	assert.Equal(t, int32(2), *dep.Spec.Replicas)
	assert.Equal(t, k8s.Labels("shop", "web", "dev"), dep.Labels)
	assert.Equal(t, k8s.SelectorLabels("shop", "web"), dep.Spec.Selector.MatchLabels)
	assert.Equal(t, k8s.Labels("shop", "web", "dev"), dep.Spec.Template.Labels)

	require.Len(t, dep.Spec.Template.Spec.Containers, 1)
	container := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "web", container.Name)
	assert.Equal(t, "nginx:1.27", container.Image)
	require.Len(t, container.Ports, 1)
	assert.Equal(t, int32(8080), container.Ports[0].ContainerPort)
	assert.Equal(t, "main", container.Ports[0].Name)

	t.Run("env is emitted in sorted order with secrets last", func(t *testing.T) {
		require.Len(t, container.Env, 3)
		assert.Equal(t, "ALPHA_VAR", container.Env[0].Name)
		assert.Equal(t, "first", container.Env[0].Value)
		assert.Equal(t, "ZED_VAR", container.Env[1].Name)

		secretVar := container.Env[2]
		assert.Equal(t, "WEB_PASSWORD", secretVar.Name)
		require.NotNil(t, secretVar.ValueFrom)
		require.NotNil(t, secretVar.ValueFrom.SecretKeyRef)
		assert.Equal(t, "shop-web-credentials", secretVar.ValueFrom.SecretKeyRef.Name)
		assert.Equal(t, "password", secretVar.ValueFrom.SecretKeyRef.Key)
	})

	t.Run("http readiness probe", func(t *testing.T) {
		probe := container.ReadinessProbe
		require.NotNil(t, probe)
		require.NotNil(t, probe.HTTPGet)
		assert.Equal(t, "/healthz", probe.HTTPGet.Path)
		assert.Equal(t, 8080, probe.HTTPGet.Port.IntValue())
	})

	t.Run("service exposes the main port", func(t *testing.T) {
		svc, ok := findResource(t, resources, "Service").Object.(*corev1.Service)
		require.True(t, ok)
		assert.Equal(t, "shop-web", svc.Name)
		assert.Equal(t, k8s.SelectorLabels("shop", "web"), svc.Spec.Selector)
		require.Len(t, svc.Spec.Ports, 1)
		assert.Equal(t, "main", svc.Spec.Ports[0].Name)
		assert.Equal(t, int32(8080), svc.Spec.Ports[0].Port)
		assert.Equal(t, 8080, svc.Spec.Ports[0].TargetPort.IntValue())
	})

	t.Run("ingress carries edge termination and tls", func(t *testing.T) {
		ing, ok := findResource(t, resources, "Ingress").Object.(*networkingv1.Ingress)
		require.True(t, ok)
		assert.Equal(t, "edge", ing.Annotations["route.openshift.io/termination"])
		require.Len(t, ing.Spec.TLS, 1)
		assert.Equal(t, []string{"shop.example.com"}, ing.Spec.TLS[0].Hosts)
		require.Len(t, ing.Spec.Rules, 1)
		assert.Equal(t, "shop.example.com", ing.Spec.Rules[0].Host)
		paths := ing.Spec.Rules[0].HTTP.Paths
		require.Len(t, paths, 1)
		assert.Equal(t, "shop-web", paths[0].Backend.Service.Name)
		assert.Equal(t, int32(8080), paths[0].Backend.Service.Port.Number)
	})
}

func TestComponentStateful(t *testing.T) {
	resources, err := Component(testStack(), "db", testOptions())
	require.NoError(t, err)
	require.Len(t, resources, 2, "statefulset and service, claim comes from the template")

	sts, ok := findResource(t, resources, "StatefulSet").Object.(*appsv1.StatefulSet)
	require.True(t, ok)

	assert.Equal(t, "shop-db", sts.Name)
	assert.Equal(t, "shop-db", sts.Spec.ServiceName)
	assert.Equal(t, int32(1), *sts.Spec.Replicas)

	container := sts.Spec.Template.Spec.Containers[0]
	require.NotNil(t, container.ReadinessProbe)
	require.NotNil(t, container.ReadinessProbe.TCPSocket)
	assert.Equal(t, 3306, container.ReadinessProbe.TCPSocket.Port.IntValue())

	require.Len(t, container.VolumeMounts, 1)
	assert.Equal(t, "data", container.VolumeMounts[0].Name)
	assert.Equal(t, "/var/lib/mysql", container.VolumeMounts[0].MountPath)

	require.Len(t, sts.Spec.VolumeClaimTemplates, 1)
	claim := sts.Spec.VolumeClaimTemplates[0]
	assert.Equal(t, "data", claim.Name)
	assert.Equal(t, "5Gi", claim.Spec.Resources.Requests.Storage().String())
	assert.Equal(t, []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}, claim.Spec.AccessModes)
}

func TestComponentStatelessStorage(t *testing.T) {
	resources, err := Component(testStack(), "uploader", testOptions())
	require.NoError(t, err)
	require.Len(t, resources, 2, "deployment and standalone claim, no port means no service")

	pvcRes := findResource(t, resources, "PersistentVolumeClaim")
	assert.Equal(t, "shop-uploader-data", pvcRes.Ref.Name)

	pvc, ok := pvcRes.Object.(*corev1.PersistentVolumeClaim)
	require.True(t, ok)
	assert.Equal(t, "1Gi", pvc.Spec.Resources.Requests.Storage().String())
	require.NotNil(t, pvc.Spec.StorageClassName)
	assert.Equal(t, "fast", *pvc.Spec.StorageClassName)

	dep, ok := findResource(t, resources, "Deployment").Object.(*appsv1.Deployment)
	require.True(t, ok)
	require.Len(t, dep.Spec.Template.Spec.Volumes, 1)
	assert.Equal(t, "shop-uploader-data", dep.Spec.Template.Spec.Volumes[0].PersistentVolumeClaim.ClaimName)
}

func TestComponentFSGroup(t *testing.T) {
	opts := testOptions()

	t.Run("unset by default", func(t *testing.T) {
		resources, err := Component(testStack(), "web", opts)
		require.NoError(t, err)
		dep := findResource(t, resources, "Deployment").Object.(*appsv1.Deployment)
		assert.Nil(t, dep.Spec.Template.Spec.SecurityContext.FSGroup)
	})

	t.Run("applied when configured", func(t *testing.T) {
		opts.FSGroup = ptr.To(int64(1000680000))
		resources, err := Component(testStack(), "web", opts)
		require.NoError(t, err)
		dep := findResource(t, resources, "Deployment").Object.(*appsv1.Deployment)
		require.NotNil(t, dep.Spec.Template.Spec.SecurityContext.FSGroup)
		assert.Equal(t, int64(1000680000), *dep.Spec.Template.Spec.SecurityContext.FSGroup)
	})
}

func TestComponentImageNormalization(t *testing.T) {
	s := testStack()

	t.Run("bare image gets an explicit latest tag", func(t *testing.T) {
		comp := s.Components["web"]
		comp.Image = "nginx"
		s.Components["web"] = comp

		resources, err := Component(s, "web", testOptions())
		require.NoError(t, err)
		dep := findResource(t, resources, "Deployment").Object.(*appsv1.Deployment)
		assert.Equal(t, "nginx:latest", dep.Spec.Template.Spec.Containers[0].Image)
	})

	t.Run("invalid image reference fails with a template error", func(t *testing.T) {
		comp := s.Components["web"]
		comp.Image = "registry.example.com/UPPER/Case:tag"
		s.Components["web"] = comp

		_, err := Component(s, "web", testOptions())
		require.Error(t, err)
		var tmplErr *stack.TemplateError
		assert.True(t, errors.As(err, &tmplErr))
	})
}

func TestComponentUnknown(t *testing.T) {
	_, err := Component(testStack(), "ghost", testOptions())
	assert.ErrorContains(t, err, `component "ghost" is not defined`)
}

func TestStackRendersEveryComponent(t *testing.T) {
	rendered, err := Stack(testStack(), testOptions())
	require.NoError(t, err)
	require.Len(t, rendered, 3)
	assert.Contains(t, rendered, "web")
	assert.Contains(t, rendered, "db")
	assert.Contains(t, rendered, "uploader")

	_, err = Stack(&stack.Stack{
		Name: "bad",
		Components: map[string]stack.Component{
			"x": {Kind: stack.ComponentKindApp, Image: "!!!not-an-image"},
		},
	}, testOptions())
	assert.Error(t, err)
}
