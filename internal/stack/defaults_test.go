package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/maps"
)

func TestFillStackDefaults(t *testing.T) {
	s := &Stack{
		Name: "test",
		Components: map[string]Component{
			"web": {
				Kind:  ComponentKindApp,
				Image: "nginx:1.27",
				Port:  8080,
				Configure: []ConfigStep{
					{Name: "first", Command: []string{"true"}},
					{Name: "second", Command: []string{"true"}, TimeoutSeconds: 600},
				},
			},
			"db": {
				Kind:  ComponentKindDatabase,
				Image: "mariadb:11.4",
				Port:  3306,
				Secrets: []SecretBinding{
					{Name: "db-credentials"},
				},
			},
			"store": {
				Kind:     ComponentKindObjectStore,
				Image:    "minio:latest",
				Port:     9000,
				Replicas: 3,
				Health:   Health{Style: HealthStyleHTTP, Port: 9090},
				Secrets: []SecretBinding{
					{
						Name:   "store-credentials",
						Fields: []string{"access-key"},
						EnvMap: map[string]string{
							"MINIO_ROOT_PASSWORD": "secret-key",
							"MINIO_ROOT_USER":     "access-key",
						},
					},
				},
			},
		},
	}

	FillStackDefaults(s)

	assert.ElementsMatch(t, []string{"web", "db", "store"}, maps.Keys(s.Components))

	t.Run("replicas default to one, explicit values kept", func(t *testing.T) {
		assert.Equal(t, DefaultReplicas, s.Components["web"].Replicas)
		assert.Equal(t, DefaultReplicas, s.Components["db"].Replicas)
		assert.Equal(t, 3, s.Components["store"].Replicas)
	})

	t.Run("health style follows component kind", func(t *testing.T) {
		assert.Equal(t, HealthStyleRollout, s.Components["web"].Health.Style)
		assert.Equal(t, HealthStyleTCP, s.Components["db"].Health.Style)
		assert.Equal(t, HealthStyleHTTP, s.Components["store"].Health.Style, "explicit style kept")
	})

	t.Run("health port falls back to component port", func(t *testing.T) {
		assert.Equal(t, 8080, s.Components["web"].Health.Port)
		assert.Equal(t, 3306, s.Components["db"].Health.Port)
		assert.Equal(t, 9090, s.Components["store"].Health.Port, "explicit port kept")
	})

	t.Run("http health path defaults to root", func(t *testing.T) {
		assert.Equal(t, "/", s.Components["store"].Health.Path)
		assert.Empty(t, s.Components["db"].Health.Path, "tcp health needs no path")
	})

	t.Run("bare secret binding gets a password field", func(t *testing.T) {
		assert.Equal(t, []string{"password"}, s.Components["db"].Secrets[0].Fields)
	})

	t.Run("env map fields are appended without duplicates", func(t *testing.T) {
		fields := s.Components["store"].Secrets[0].Fields
		assert.ElementsMatch(t, []string{"access-key", "secret-key"}, fields)
	})

	t.Run("step timeout defaults, explicit values kept", func(t *testing.T) {
		steps := s.Components["web"].Configure
		assert.Equal(t, DefaultStepTimeoutSeconds, steps[0].TimeoutSeconds)
		assert.Equal(t, 600, steps[1].TimeoutSeconds)
	})
}

func TestFillStackDefaultsIdempotent(t *testing.T) {
	s := &Stack{
		Name: "test",
		Components: map[string]Component{
			"db": {
				Kind:    ComponentKindDatabase,
				Image:   "mariadb:11.4",
				Port:    3306,
				Secrets: []SecretBinding{{Name: "db-credentials"}},
			},
		},
	}

	FillStackDefaults(s)
	first := s.Components["db"]
	FillStackDefaults(s)
	assert.Equal(t, first, s.Components["db"])
}
