package stack

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/fluxcd/pkg/envsubst"
	"github.com/joho/godotenv"
)

// parseParamsFile parses a dotenv-style parameters file.
//
// If explicitlySet is true, a missing file is an error. Otherwise a missing
// file is treated as an empty parameter set.
func parseParamsFile(path string, explicitlySet bool) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if explicitlySet {
			return nil, fmt.Errorf("failed to read %s file: %w", path, err)
		}
		return nil, nil
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s file: %w", path, err)
	}

	return vars, nil
}

func parseOSVariables() (map[string]string, error) {
	env := os.Environ()
	buf := bytes.NewBufferString(strings.Join(env, "\n"))
	buf.WriteString("\n")

	vars, err := godotenv.Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OS environment variables: %w", err)
	}

	return vars, nil
}

// filterParamVariables keeps only variables carrying the KNV_VAR_ prefix and
// strips the prefix from the returned keys.
func filterParamVariables(vars map[string]string) map[string]string {
	params := make(map[string]string)
	for key, value := range vars {
		if strings.HasPrefix(key, ParamVarPrefix) {
			params[strings.TrimPrefix(key, ParamVarPrefix)] = value
		}
	}
	return params
}

// SubstituteParameters substitutes ${param} references in the stack data.
// Parameter precedence, lowest to highest:
//  1. Stack-level parameter defaults
//  2. Variables from the environment definition
//  3. Variables from the params file
//  4. KNV_VAR_-prefixed OS environment variables
func SubstituteParameters(data []byte, defaults map[string]string, env *Environment) ([]byte, error) {
	variables := make(map[string]string)

	if err := mergo.Merge(&variables, defaults); err != nil {
		return nil, fmt.Errorf("failed to merge stack parameter defaults: %w", err)
	}

	if err := mergo.Merge(&variables, env.Variables, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge environment definition variables: %w", err)
	}

	fileVars, err := parseParamsFile(env.ParamsFile, env.ParamsFile != "")
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&variables, fileVars, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge params file variables: %w", err)
	}

	osVars, err := parseOSVariables()
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&variables, filterParamVariables(osVars), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge OS environment variables: %w", err)
	}

	content, err := envsubst.Eval(string(data), func(s string) (string, bool) {
		v, ok := variables[s]
		return v, ok
	})
	if err != nil {
		return nil, &TemplateError{Template: "stack parameters", Cause: err}
	}

	return []byte(content), nil
}
