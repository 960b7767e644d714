package stack

import "fmt"

// TemplateError reports bad input to rendering or parameter substitution:
// a missing parameter, an unresolved placeholder, or a template that does
// not parse. It is never retried; the stack file has to be fixed.
type TemplateError struct {
	Template string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %v", e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }
