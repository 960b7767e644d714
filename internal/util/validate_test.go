package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNonEmpty(t *testing.T) {
	assert.NoError(t, ValidateNonEmpty("nginx:1.27", "Image"))
	assert.ErrorContains(t, ValidateNonEmpty("", "Image"), "Image cannot be empty")
	assert.ErrorContains(t, ValidateNonEmpty("   ", "Image"), "Image cannot be empty")
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "common port", input: "8080", wantErr: false},
		{name: "lowest port", input: "1", wantErr: false},
		{name: "highest port", input: "65535", wantErr: false},
		{name: "trimmed whitespace", input: " 443 ", wantErr: false},
		{name: "zero", input: "0", wantErr: true},
		{name: "too large", input: "65536", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not a number", input: "http", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePort(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateResourceString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		field   string
		wantErr bool
	}{
		{name: "empty is allowed", value: "", field: "CPU", wantErr: false},
		{name: "millicores", value: "500m", field: "CPU", wantErr: false},
		{name: "whole cores", value: "2", field: "CPU", wantErr: false},
		{name: "fractional cores", value: "1.5", field: "CPU", wantErr: false},
		{name: "bare m suffix", value: "m", field: "CPU", wantErr: true},
		{name: "negative cores", value: "-1", field: "CPU", wantErr: true},
		{name: "nonsense cpu", value: "fast", field: "CPU", wantErr: true},
		{name: "memory with unit", value: "512Mi", field: "Memory", wantErr: false},
		{name: "memory without unit", value: "512", field: "Memory", wantErr: true},
		{name: "storage with unit", value: "10Gi", field: "Storage", wantErr: false},
		{name: "storage with decimal unit", value: "10G", field: "Storage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResourceString(tt.value, tt.field)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
