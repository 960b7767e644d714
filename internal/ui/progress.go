// Package ui provides UI components for interactive flows
package ui

import "fmt"

// ProgressTracker helps track steps during interactive flows
type ProgressTracker struct {
	currentStep int
	steps       []string
}

// NewProgressTracker creates a tracker over the stack scaffolding steps
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		steps: []string{
			"Stack Name",
			"Environments",
			"Components",
			"Summary",
		},
	}
}

// NextStep increments the current step
func (pt *ProgressTracker) NextStep() { pt.currentStep++ }

// GetCurrentStep returns the current step
func (pt *ProgressTracker) GetCurrentStep() string {
	if pt.currentStep >= len(pt.steps) {
		return "Complete"
	}
	return fmt.Sprintf("Step %d/%d: %s", pt.currentStep+1, len(pt.steps), pt.steps[pt.currentStep])
}
