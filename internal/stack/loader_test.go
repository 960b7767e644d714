package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeEnvName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple name unchanged",
			input:    "production",
			expected: "production",
		},
		{
			name:     "wildcard suffix removed",
			input:    "review/*",
			expected: "review",
		},
		{
			name:     "forward slash removed",
			input:    "feature/branch",
			expected: "featurebranch",
		},
		{
			name:     "backslash removed",
			input:    "windows\\path",
			expected: "windowspath",
		},
		{
			name:     "asterisk removed",
			input:    "stage*",
			expected: "stage",
		},
		{
			name:     "question mark removed",
			input:    "test?env",
			expected: "testenv",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeEnvName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveEnvironment(t *testing.T) {
	environments := []Environment{
		{Name: "dev"},
		{Name: "prod"},
	}

	t.Run("no environments and no name yields default", func(t *testing.T) {
		env, err := ResolveEnvironment(nil, "")
		require.NoError(t, err)
		assert.Equal(t, "default", env.Name)
	})

	t.Run("single environment selected implicitly", func(t *testing.T) {
		env, err := ResolveEnvironment([]Environment{{Name: "dev"}}, "")
		require.NoError(t, err)
		assert.Equal(t, "dev", env.Name)
	})

	t.Run("multiple environments require a name", func(t *testing.T) {
		_, err := ResolveEnvironment(environments, "")
		assert.ErrorContains(t, err, "multiple environments found but none specified")
	})

	t.Run("named environment is found", func(t *testing.T) {
		env, err := ResolveEnvironment(environments, "prod")
		require.NoError(t, err)
		assert.Equal(t, "prod", env.Name)
	})

	t.Run("unknown environment is rejected", func(t *testing.T) {
		_, err := ResolveEnvironment(environments, "staging")
		assert.ErrorContains(t, err, `environment "staging" not found`)
	})
}

func TestResolveParamsFileWithSanitization(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, os.Chdir(oldWd))
	}()
	require.NoError(t, os.Chdir(tmpDir))

	tests := []struct {
		name             string
		envName          string
		setupFiles       []string
		expectedPath     string
		expectedExplicit bool
	}{
		{
			name:             "environment-specific file preferred",
			envName:          "prod",
			setupFiles:       []string{".params.prod", ".params"},
			expectedPath:     ".params.prod",
			expectedExplicit: false,
		},
		{
			name:             "wildcard environment name finds sanitized file",
			envName:          "review/*",
			setupFiles:       []string{".params.review"},
			expectedPath:     ".params.review",
			expectedExplicit: false,
		},
		{
			name:             "config dir fallback",
			envName:          "dev",
			setupFiles:       []string{filepath.Join(".konverge", ".params.dev")},
			expectedPath:     filepath.Join(".konverge", ".params.dev"),
			expectedExplicit: false,
		},
		{
			name:             "fallback to default params file",
			envName:          "staging",
			setupFiles:       []string{".params"},
			expectedPath:     ".params",
			expectedExplicit: false,
		},
		{
			name:             "no files found",
			envName:          "staging",
			setupFiles:       []string{},
			expectedPath:     "",
			expectedExplicit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, file := range []string{".params", ".params.prod", ".params.review", ".params.dev"} {
				os.Remove(file)
			}
			os.RemoveAll(".konverge")

			for _, file := range tt.setupFiles {
				dir := filepath.Dir(file)
				if dir != "." && dir != "" {
					require.NoError(t, os.MkdirAll(dir, 0755))
				}
				require.NoError(t, os.WriteFile(file, []byte("TEST_VAR=test"), 0644))
			}

			env := &Environment{Name: tt.envName}

			path, explicit, err := resolveParamsFile(env)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPath, path)
			assert.Equal(t, tt.expectedExplicit, explicit)
		})
	}
}

func TestResolveParamsFileExplicit(t *testing.T) {
	tmpDir := t.TempDir()

	explicitFile := filepath.Join(tmpDir, "custom.params")
	require.NoError(t, os.WriteFile(explicitFile, []byte("HOST=example.com"), 0644))

	env := &Environment{Name: "review/*", ParamsFile: explicitFile}

	path, explicit, err := resolveParamsFile(env)
	require.NoError(t, err)
	assert.Equal(t, explicitFile, path)
	assert.True(t, explicit)

	t.Run("missing explicit file is an error", func(t *testing.T) {
		env := &Environment{Name: "dev", ParamsFile: filepath.Join(tmpDir, "missing.params")}
		_, explicit, err := resolveParamsFile(env)
		assert.True(t, explicit)
		assert.ErrorContains(t, err, "does not exist")
	})
}

const validStackYAML = `
apiVersion: v1-alpha.1
name: shop
parameters:
  SHOP_HOST: shop.local
environments:
  - name: dev
  - name: prod
    variables:
      SHOP_HOST: shop.example.com
components:
  db:
    kind: database
    image: mariadb:11.4
    port: 3306
    storage:
      size: 5Gi
      mountPath: /var/lib/mysql
    secrets:
      - name: db-credentials
        envMap:
          MARIADB_PASSWORD: password
  web:
    kind: app
    image: nginx:1.27
    port: 8080
    dependsOn: [db]
    health:
      style: http
      path: /healthz
    route:
      host: ${SHOP_HOST}
      tls: true
    configure:
      - name: warm-cache
        command: ["sh", "-c", "true"]
`

func TestParse(t *testing.T) {
	t.Run("parses a valid stack end to end", func(t *testing.T) {
		s, err := Parse([]byte(validStackYAML), "dev")
		require.NoError(t, err)

		assert.Equal(t, "shop", s.Name)
		require.Len(t, s.Components, 2)

		web := s.Components["web"]
		assert.Equal(t, ComponentKindApp, web.Kind)
		assert.Equal(t, []string{"db"}, web.DependsOn)
		require.NotNil(t, web.Route)
		assert.Equal(t, "shop.local", web.Route.Host, "stack parameter default should be substituted")
		assert.True(t, web.Route.TLS)

		// Defaults are applied during parsing.
		assert.Equal(t, DefaultReplicas, web.Replicas)
		assert.Equal(t, DefaultStepTimeoutSeconds, web.Configure[0].TimeoutSeconds)

		db := s.Components["db"]
		assert.Equal(t, HealthStyleTCP, db.Health.Style)
		require.Len(t, db.Secrets, 1)
		assert.Contains(t, db.Secrets[0].Fields, "password", "envMap fields should be implicitly generated")
	})

	t.Run("environment variables override parameter defaults", func(t *testing.T) {
		s, err := Parse([]byte(validStackYAML), "prod")
		require.NoError(t, err)
		assert.Equal(t, "shop.example.com", s.Components["web"].Route.Host)
	})

	t.Run("missing apiVersion is rejected", func(t *testing.T) {
		_, err := Parse([]byte("name: shop\ncomponents: {}\n"), "")
		assert.ErrorContains(t, err, "apiVersion")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		data := `
apiVersion: v1-alpha.1
name: shop
components:
  web:
    kind: app
    image: nginx:1.27
    bogus: field
`
		_, err := Parse([]byte(data), "")
		assert.Error(t, err)
	})

	t.Run("unknown dependency is rejected", func(t *testing.T) {
		data := `
apiVersion: v1-alpha.1
name: shop
components:
  web:
    kind: app
    image: nginx:1.27
    dependsOn: [ghost]
`
		_, err := Parse([]byte(data), "")
		assert.ErrorContains(t, err, `depends on unknown component "ghost"`)
	})
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "konverge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validStackYAML), 0644))

	s, err := Load(path, "dev")
	require.NoError(t, err)
	assert.Equal(t, "shop", s.Name)

	_, err = Load(filepath.Join(tmpDir, "missing.yaml"), "")
	assert.ErrorContains(t, err, "failed to read stack file")
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	s := &Stack{
		ApiVersion: "v1-alpha.1",
		Name:       "shop",
		Components: map[string]Component{
			"web": {Kind: ComponentKindApp, Image: "nginx:1.27"},
		},
	}

	require.NoError(t, Save(s, path))

	loaded, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "shop", loaded.Name)

	t.Run("invalid stack is never written", func(t *testing.T) {
		bad := &Stack{ApiVersion: "v1-alpha.1", Name: "Has Spaces", Components: map[string]Component{
			"web": {Kind: ComponentKindApp, Image: "nginx:1.27"},
		}}
		badPath := filepath.Join(tmpDir, "bad.yaml")
		require.Error(t, Save(bad, badPath))
		_, err := os.Stat(badPath)
		assert.True(t, os.IsNotExist(err))
	})
}
