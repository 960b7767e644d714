package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateNonEmpty ensures a string is not empty or whitespace-only
func ValidateNonEmpty(value string, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty or contain only whitespace", fieldName)
	}
	return nil
}

// ValidatePort ensures a string is a valid TCP port number
func ValidatePort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("port '%s' is invalid: must be a number", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d is invalid: must be between 1 and 65535", port)
	}
	return nil
}

// ValidateResourceString performs basic validation for CPU/memory/storage strings
func ValidateResourceString(value, fieldName string) error {
	if value == "" {
		return nil
	}
	switch fieldName {
	case "CPU":
		v := strings.TrimSpace(value)
		// Allow millicores like 500m (Kubernetes convention)
		if strings.HasSuffix(v, "m") {
			num := strings.TrimSuffix(v, "m")
			if num == "" {
				return fmt.Errorf("CPU '%s' is invalid: missing number before 'm' (e.g., 500m)", value)
			}
			n, err := strconv.Atoi(num)
			if err != nil || n < 0 {
				return fmt.Errorf("CPU '%s' is invalid: 'm' suffix requires a non-negative integer (e.g., 500m)", value)
			}
			return nil
		}
		// Otherwise require a valid (non-negative) number like 1, 2.5
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("CPU '%s' is invalid: must be a number (e.g., 500m, 1, 2.5)", value)
		}
		return nil
	case "Memory", "Storage":
		if !strings.HasSuffix(value, "Ki") && !strings.HasSuffix(value, "Mi") &&
			!strings.HasSuffix(value, "Gi") && !strings.HasSuffix(value, "Ti") {
			return fmt.Errorf("%s '%s' is invalid: must include unit (e.g., 512Mi, 1Gi)", fieldName, value)
		}
	}
	return nil
}
