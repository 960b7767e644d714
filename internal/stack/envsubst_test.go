package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteParameters(t *testing.T) {
	data := []byte("host: ${HOST}\nreplicas: ${REPLICAS}\n")

	t.Run("stack defaults are the lowest precedence", func(t *testing.T) {
		result, err := SubstituteParameters(data,
			map[string]string{"HOST": "default.local", "REPLICAS": "1"},
			&Environment{Name: "dev"},
		)
		require.NoError(t, err)
		assert.Equal(t, "host: default.local\nreplicas: 1\n", string(result))
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		result, err := SubstituteParameters(data,
			map[string]string{"HOST": "default.local", "REPLICAS": "1"},
			&Environment{Name: "prod", Variables: map[string]string{"HOST": "prod.example.com"}},
		)
		require.NoError(t, err)
		assert.Equal(t, "host: prod.example.com\nreplicas: 1\n", string(result))
	})

	t.Run("params file overrides environment definition", func(t *testing.T) {
		paramsFile := filepath.Join(t.TempDir(), ".params")
		require.NoError(t, os.WriteFile(paramsFile, []byte("HOST=file.example.com\n"), 0644))

		result, err := SubstituteParameters(data,
			map[string]string{"REPLICAS": "1"},
			&Environment{
				Name:       "prod",
				ParamsFile: paramsFile,
				Variables:  map[string]string{"HOST": "prod.example.com"},
			},
		)
		require.NoError(t, err)
		assert.Equal(t, "host: file.example.com\nreplicas: 1\n", string(result))
	})

	t.Run("prefixed os variables have the highest precedence", func(t *testing.T) {
		t.Setenv(ParamVarPrefix+"HOST", "os.example.com")

		result, err := SubstituteParameters(data,
			map[string]string{"HOST": "default.local", "REPLICAS": "1"},
			&Environment{Name: "prod", Variables: map[string]string{"HOST": "prod.example.com"}},
		)
		require.NoError(t, err)
		assert.Equal(t, "host: os.example.com\nreplicas: 1\n", string(result))
	})

	t.Run("unprefixed os variables are ignored", func(t *testing.T) {
		t.Setenv("HOST", "leaked.example.com")

		result, err := SubstituteParameters(data,
			map[string]string{"HOST": "default.local", "REPLICAS": "1"},
			&Environment{Name: "dev"},
		)
		require.NoError(t, err)
		assert.Equal(t, "host: default.local\nreplicas: 1\n", string(result))
	})

	t.Run("missing explicit params file is an error", func(t *testing.T) {
		_, err := SubstituteParameters(data, nil, &Environment{
			Name:       "dev",
			ParamsFile: filepath.Join(t.TempDir(), "missing.params"),
		})
		assert.ErrorContains(t, err, "failed to read")
	})
}
