package stack

// Stack defines the desired state of one deployment: a named set of
// components plus the environments it can be converged into.
type Stack struct {
	ApiVersion   string               `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Name         string               `json:"name" yaml:"name"`
	Environments []Environment        `json:"environments,omitempty" yaml:"environments,omitempty"`
	Parameters   map[string]string    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Components   map[string]Component `json:"components" yaml:"components"`
}

// Environment defines a target environment for the stack.
type Environment struct {
	Name       string            `json:"name" yaml:"name"`
	ParamsFile string            `json:"paramsFile,omitempty" yaml:"paramsFile,omitempty"`
	Variables  map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Component defines one deployable unit of the stack.
type Component struct {
	Kind      ComponentKind     `json:"kind" yaml:"kind"`
	Image     string            `json:"image" yaml:"image"`
	Replicas  int               `json:"replicas,omitempty" yaml:"replicas,omitempty"`
	Port      int               `json:"port,omitempty" yaml:"port,omitempty"`
	DependsOn []string          `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Resources Resources         `json:"resources,omitempty" yaml:"resources,omitempty"`
	Storage   *Storage          `json:"storage,omitempty" yaml:"storage,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Secrets   []SecretBinding   `json:"secrets,omitempty" yaml:"secrets,omitempty"`
	Health    Health            `json:"health,omitempty" yaml:"health,omitempty"`
	Route     *Route            `json:"route,omitempty" yaml:"route,omitempty"`
	Configure []ConfigStep      `json:"configure,omitempty" yaml:"configure,omitempty"`
}

// Resources defines resource requests and limits for a component.
type Resources struct {
	CPU    string `json:"cpu,omitempty" yaml:"cpu,omitempty"`
	Memory string `json:"memory,omitempty" yaml:"memory,omitempty"`
}

// Storage defines the persistent volume claim requested by a component.
type Storage struct {
	Size         string `json:"size" yaml:"size"`
	StorageClass string `json:"storageClass,omitempty" yaml:"storageClass,omitempty"`
	MountPath    string `json:"mountPath" yaml:"mountPath"`
}

// SecretBinding binds fields of a logical secret to environment variables
// of the component's container. The secret is generated once and reused on
// every subsequent run.
type SecretBinding struct {
	Name   string            `json:"name" yaml:"name"`
	Fields []string          `json:"fields,omitempty" yaml:"fields,omitempty"`
	EnvMap map[string]string `json:"envMap,omitempty" yaml:"envMap,omitempty"` // env var -> secret field
}

// Health defines how readiness of the component is established.
type Health struct {
	Style HealthStyle `json:"style,omitempty" yaml:"style,omitempty"`
	Path  string      `json:"path,omitempty" yaml:"path,omitempty"`
	Port  int         `json:"port,omitempty" yaml:"port,omitempty"`
}

// Route exposes a component through an ingress with edge TLS termination.
type Route struct {
	Host string `json:"host" yaml:"host"`
	TLS  bool   `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// ConfigStep is one post-deploy configuration command executed inside a
// running container of the component. Fatal controls whether its failure
// aborts the remaining sequence or is merely recorded as a warning.
type ConfigStep struct {
	Name           string   `json:"name" yaml:"name"`
	Command        []string `json:"command" yaml:"command"`
	Container      string   `json:"container,omitempty" yaml:"container,omitempty"`
	Fatal          bool     `json:"fatal,omitempty" yaml:"fatal,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

// ComponentKind specifies the kind of the component.
type ComponentKind string

const (
	ComponentKindApp         ComponentKind = "app"
	ComponentKindDatabase    ComponentKind = "database"
	ComponentKindCache       ComponentKind = "cache"
	ComponentKindObjectStore ComponentKind = "object-store"
)

// Stateful reports whether components of this kind keep local state and
// therefore deploy as StatefulSets.
func (k ComponentKind) Stateful() bool {
	switch k {
	case ComponentKindDatabase, ComponentKindCache, ComponentKindObjectStore:
		return true
	default:
		return false
	}
}

// HealthStyle selects the readiness predicate used for a component.
type HealthStyle string

const (
	HealthStyleRollout HealthStyle = "rollout"
	HealthStyleTCP     HealthStyle = "tcp"
	HealthStyleHTTP    HealthStyle = "http"
)
