package stack

import (
	"bytes"
	"fmt"
	"slices"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/konverge-dev/konverge/internal/stack/schema"
)

// ValidateStack validates the stack object against the embedded JSON schema
// for the given version. This is a strict validation: unknown fields are
// not allowed.
func ValidateStack(stackObj map[string]any, version string) error {
	schemaBytes, err := schema.GetStackSchema(version)
	if err != nil {
		return fmt.Errorf("failed to get stack schema version %q: %w", version, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()

	schemaID := version + "/stack.json"
	jsonSchema, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return fmt.Errorf("invalid stack schema JSON for version %q: %w", version, err)
	}

	if err := compiler.AddResource(schemaID, jsonSchema); err != nil {
		return fmt.Errorf("failed to load stack schema version %q: %w", version, err)
	}

	compiled, err := compiler.Compile(schemaID)
	if err != nil {
		return fmt.Errorf("failed to compile stack schema version %q: %w", version, err)
	}

	if err := compiled.Validate(stackObj); err != nil {
		return fmt.Errorf("stack validation failed for schema version %q: %w", version, err)
	}
	return nil
}

// ValidateAPIVersion checks the stack's apiVersion field for presence, type,
// and validity. Returns the apiVersion string if valid.
func ValidateAPIVersion(stackObj map[string]any) (string, error) {
	validVersions, err := schema.GetValidStackVersions()
	if err != nil {
		return "", fmt.Errorf("failed to get valid stack versions: %w", err)
	}

	apiVersionVal, ok := stackObj["apiVersion"]
	if !ok {
		return "", fmt.Errorf("stack file is missing 'apiVersion' field")
	}

	apiVersionStr, ok := apiVersionVal.(string)
	if !ok || apiVersionStr == "" {
		return "", fmt.Errorf("'apiVersion' field must be a non-empty string")
	}

	if !slices.Contains(validVersions, apiVersionStr) {
		return "", fmt.Errorf("unsupported stack schema version: %s (valid: %v)", apiVersionStr, validVersions)
	}

	return apiVersionStr, nil
}
