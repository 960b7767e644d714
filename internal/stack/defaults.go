package stack

import (
	"github.com/spf13/cast"
)

// componentDefaults holds the untyped default values applied to components.
// Kept as a single table so the schema documentation and the filler cannot
// drift apart silently.
var componentDefaults = map[string]any{
	"replicas":            DefaultReplicas,
	"step.timeoutSeconds": DefaultStepTimeoutSeconds,
	"health.httpPath":     "/",
	"secret.field":        "password",
}

// defaultHealthStyles maps a component kind to the readiness predicate used
// when the stack file does not pick one. Databases, caches, and object
// stores answer on a raw port long before any HTTP surface exists, so they
// default to a TCP probe; apps default to rollout status.
var defaultHealthStyles = map[ComponentKind]HealthStyle{
	ComponentKindApp:         HealthStyleRollout,
	ComponentKindDatabase:    HealthStyleTCP,
	ComponentKindCache:       HealthStyleTCP,
	ComponentKindObjectStore: HealthStyleTCP,
}

// FillStackDefaults fills zero-valued fields of the stack with their
// defaults. Mutates the stack in place.
func FillStackDefaults(s *Stack) {
	for name, component := range s.Components {
		if component.Replicas == 0 {
			component.Replicas = cast.ToInt(componentDefaults["replicas"])
		}

		if component.Health.Style == "" {
			component.Health.Style = defaultHealthStyles[component.Kind]
		}
		if component.Health.Port == 0 {
			component.Health.Port = component.Port
		}
		if component.Health.Style == HealthStyleHTTP && component.Health.Path == "" {
			component.Health.Path = cast.ToString(componentDefaults["health.httpPath"])
		}

		for i := range component.Secrets {
			if len(component.Secrets[i].Fields) == 0 && len(component.Secrets[i].EnvMap) == 0 {
				component.Secrets[i].Fields = []string{cast.ToString(componentDefaults["secret.field"])}
			}
			// Fields referenced from the env map are implicitly generated
			for _, field := range component.Secrets[i].EnvMap {
				if !containsString(component.Secrets[i].Fields, field) {
					component.Secrets[i].Fields = append(component.Secrets[i].Fields, field)
				}
			}
		}

		for i := range component.Configure {
			if component.Configure[i].TimeoutSeconds == 0 {
				component.Configure[i].TimeoutSeconds = cast.ToInt(componentDefaults["step.timeoutSeconds"])
			}
		}

		s.Components[name] = component
	}
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
