package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-viper/mapstructure/v2"

	"sigs.k8s.io/yaml"
)

// sanitizeEnvName removes path separators and wildcards from environment
// names so they cannot interfere with params-file path construction.
func sanitizeEnvName(name string) string {
	sanitized := strings.TrimSuffix(name, "/*")

	sanitized = strings.ReplaceAll(sanitized, "/", "")
	sanitized = strings.ReplaceAll(sanitized, "\\", "")
	sanitized = strings.ReplaceAll(sanitized, "*", "")
	sanitized = strings.ReplaceAll(sanitized, "?", "")

	return sanitized
}

// ResolveEnvironment returns the environment by name, or the default if name
// is empty. Returns an error if not found or if multiple environments are
// defined but none specified.
func ResolveEnvironment(environments []Environment, desiredEnvironment string) (*Environment, error) {
	formatEnvNames := func(envs []Environment) string {
		names := make([]string, len(envs))
		for i, env := range envs {
			names[i] = fmt.Sprintf("%q", env.Name)
		}
		return strings.Join(names, ", ")
	}

	if len(environments) == 0 && desiredEnvironment == "" {
		return &Environment{Name: "default"}, nil
	}

	if len(environments) == 1 && desiredEnvironment == "" {
		return &environments[0], nil
	}

	if len(environments) > 1 && desiredEnvironment == "" {
		return nil, fmt.Errorf(
			"multiple environments found but none specified: %s",
			formatEnvNames(environments),
		)
	}

	for i, env := range environments {
		if env.Name == desiredEnvironment {
			return &environments[i], nil
		}
	}

	return nil, fmt.Errorf(
		"environment %q not found, available environments: %s",
		desiredEnvironment,
		formatEnvNames(environments),
	)
}

// resolveParamsFile determines which params file to use for the given
// environment. Returns the path, whether it was explicitly set, and an
// error if explicitly set but missing.
func resolveParamsFile(env *Environment) (string, bool, error) {
	if env.ParamsFile != "" {
		if fileExists(env.ParamsFile) {
			return env.ParamsFile, true, nil
		}
		return "", true, fmt.Errorf("explicit paramsFile %q does not exist", env.ParamsFile)
	}

	sanitizedName := sanitizeEnvName(env.Name)

	candidates := []string{
		fmt.Sprintf("%s.%s", DefaultParamsFile, sanitizedName),
		filepath.Join(KonvergeConfigDir, fmt.Sprintf("%s.%s", DefaultParamsFile, sanitizedName)),
		DefaultParamsFile,
		filepath.Join(KonvergeConfigDir, DefaultParamsFile),
	}
	for _, path := range candidates {
		if fileExists(path) {
			return path, false, nil
		}
	}
	return "", false, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads and parses the stack file at the given path, resolves the
// environment (using the provided envName or default resolution rules),
// substitutes parameters according to precedence (stack defaults <
// environment definition < params file < OS environment), validates the
// result against the embedded schema, and returns the parsed Stack.
func Load(path string, envName string) (*Stack, error) {
	if path == "" {
		path = DefaultStackPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}

	return Parse(data, envName)
}

// Parse parses raw stack file bytes. Split out of Load so callers can feed
// in-memory documents (tests, stdin).
func Parse(data []byte, envName string) (*Stack, error) {
	var stackObj map[string]any
	if err := yaml.Unmarshal(data, &stackObj); err != nil {
		return nil, fmt.Errorf("failed to parse stack YAML: %w", err)
	}

	version, err := ValidateAPIVersion(stackObj)
	if err != nil {
		return nil, err
	}

	var tmp struct {
		Environments []Environment     `json:"environments"`
		Parameters   map[string]string `json:"parameters"`
	}
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("failed to parse stack YAML: %w", err)
	}

	env, err := ResolveEnvironment(tmp.Environments, envName)
	if err != nil {
		return nil, fmt.Errorf("failed to select environment: %w", err)
	}

	log.Debugf("Selected environment: %s", env.Name)

	paramsFilePath, explicitlySet, err := resolveParamsFile(env)
	if err != nil {
		return nil, err
	}
	if paramsFilePath != "" {
		if explicitlySet {
			log.Debugf("Using explicitly set params file: %s", paramsFilePath)
		} else {
			log.Debugf("Using resolved params file: %s", paramsFilePath)
		}
	}

	env.ParamsFile = paramsFilePath

	substituted, err := SubstituteParameters(data, tmp.Parameters, env)
	if err != nil {
		return nil, err
	}

	var substitutedObj map[string]any
	if err := yaml.Unmarshal(substituted, &substitutedObj); err != nil {
		return nil, fmt.Errorf("failed to parse substituted stack YAML: %w", err)
	}

	if err := ValidateStack(substitutedObj, version); err != nil {
		return nil, err
	}

	finalStack, err := decodeStack(substitutedObj)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stack: %w", err)
	}

	FillStackDefaults(finalStack)

	if err := ValidateGraph(finalStack); err != nil {
		return nil, err
	}

	return finalStack, nil
}

// Save writes the stack to the given path as YAML, validating it against the
// schema first so scaffolding can never produce a file Load would reject.
func Save(s *Stack, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal stack: %w", err)
	}

	var stackObj map[string]any
	if err := yaml.Unmarshal(data, &stackObj); err != nil {
		return fmt.Errorf("failed to round-trip stack YAML: %w", err)
	}
	version, err := ValidateAPIVersion(stackObj)
	if err != nil {
		return err
	}
	if err := ValidateStack(stackObj, version); err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stack file: %w", err)
	}
	return nil
}

// decodeStack converts the generic stack object into the typed Stack using
// mapstructure, which tolerates the numeric and slice shapes YAML produces.
func decodeStack(obj map[string]any) (*Stack, error) {
	var s Stack
	config := &mapstructure.DecoderConfig{
		Result:  &s,
		TagName: "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, err
	}
	return &s, nil
}
