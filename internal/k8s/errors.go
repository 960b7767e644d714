package k8s

import "fmt"

// ApplyError reports that a resource could not be created or updated after
// retries were exhausted. The resource's component fails; resources already
// applied for it are left in place.
type ApplyError struct {
	Resource ResourceRef
	Cause    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply %s: %v", e.Resource, e.Cause)
}

func (e *ApplyError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports that a resource did not become ready before its
// deadline. LastObserved carries the most recent state seen by the poll
// loop, for the report.
type TimeoutError struct {
	Resource     ResourceRef
	LastObserved string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s to become ready (last observed: %s)", e.Resource, e.LastObserved)
}
