// Package stack provides parsing, validation, and graph utilities for
// stack files.
package stack

// File and Path Constants
const (
	// DefaultStackPath is the default path for the stack file
	DefaultStackPath = "konverge.yaml"

	// DefaultParamsFile is the default parameters file name
	DefaultParamsFile = ".params"

	// KonvergeConfigDir is the default directory for konverge-specific files
	KonvergeConfigDir = ".konverge"
)

// Environment Variables
const (
	// ParamVarPrefix is the prefix for konverge parameter variables taken
	// from the OS environment
	ParamVarPrefix = "KNV_VAR_"

	// LogLevelEnvVar is the environment variable for log level override
	LogLevelEnvVar = "KNV_LOG_LEVEL"
)

// Validation Constants
const (
	// MaxComponentNameLength is the maximum allowed length for component names
	MaxComponentNameLength = 63

	// MaxStackNameLength is the maximum allowed length for stack names
	MaxStackNameLength = 63

	// ComponentNamePattern is the regex pattern for valid component names
	ComponentNamePattern = "^[a-z0-9]([a-z0-9-]*[a-z0-9])?$"
)

// Defaults applied when a stack file leaves a field empty.
const (
	// DefaultReplicas is the replica count when none is specified
	DefaultReplicas = 1

	// DefaultStepTimeoutSeconds bounds a single configuration step
	DefaultStepTimeoutSeconds = 120
)
