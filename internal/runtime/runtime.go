package runtime

import (
	"fmt"
	"sync"
	"time"

	"context"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/konverge-dev/konverge/internal/stack"
)

// runtimeKey is a private context key for storing the Runtime in context
type runtimeKey struct{}

// Runtime holds per-invocation state and lazily initialized clients/resources.
// It implements the RuntimeProvider interface for dependency injection.
type Runtime struct {
	namespace   string
	kubeconfig  string
	stackPath   string
	environment string

	timeout time.Duration

	logger     LoggerProvider
	k8s        KubernetesClient
	restConfig *rest.Config
	stack      *stack.Stack
	mu         sync.Mutex

	// Factory functions for creating clients (enables testing)
	k8sFactory        func(*Runtime) (KubernetesClient, error)
	restConfigFactory func(*Runtime) (*rest.Config, error)
}

// Option defines a functional option for configuring Runtime.
type Option func(*Runtime)

// WithNamespace sets the Kubernetes namespace.
func WithNamespace(namespace string) Option {
	return func(r *Runtime) {
		r.namespace = namespace
	}
}

// WithKubeconfig sets the kubeconfig file path.
func WithKubeconfig(kubeconfig string) Option {
	return func(r *Runtime) {
		r.kubeconfig = kubeconfig
	}
}

// WithStackPath sets the stack file path.
func WithStackPath(stackPath string) Option {
	return func(r *Runtime) {
		r.stackPath = stackPath
	}
}

// WithEnvironment sets the target environment name.
func WithEnvironment(environment string) Option {
	return func(r *Runtime) {
		r.environment = environment
	}
}

// WithTimeout sets the deadline for one reconciliation run.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runtime) {
		r.timeout = timeout
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger LoggerProvider) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithKubernetesFactory sets a custom Kubernetes client factory for testing.
func WithKubernetesFactory(factory func(*Runtime) (KubernetesClient, error)) Option {
	return func(r *Runtime) {
		r.k8sFactory = factory
	}
}

// WithRESTConfigFactory sets a custom REST config factory for testing.
func WithRESTConfigFactory(factory func(*Runtime) (*rest.Config, error)) Option {
	return func(r *Runtime) {
		r.restConfigFactory = factory
	}
}

// defaultRESTConfigFactory resolves cluster credentials: in-cluster config
// first, then the explicit kubeconfig path, then the default loading rules.
func defaultRESTConfigFactory(r *Runtime) (*rest.Config, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		if r.kubeconfig != "" {
			cfg, err = clientcmd.BuildConfigFromFlags("", r.kubeconfig)
		} else {
			loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
			overrides := &clientcmd.ConfigOverrides{}
			cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config: %w (provide --kubeconfig or ensure KUBECONFIG/~/.kube/config is set)", err)
		}
	}
	return cfg, nil
}

// defaultKubernetesFactory creates a default Kubernetes clientset.
func defaultKubernetesFactory(r *Runtime) (KubernetesClient, error) {
	cfg, err := r.RESTConfig()
	if err != nil {
		return nil, err
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}
	return cs, nil
}

// New constructs a Runtime with functional options.
func New(options ...Option) *Runtime {
	r := &Runtime{
		timeout:           DefaultTimeout,
		k8sFactory:        defaultKubernetesFactory,
		restConfigFactory: defaultRESTConfigFactory,
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// WithRuntime returns a new context carrying the provided runtime.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// FromRuntime extracts a Runtime from the command context, or nil if absent.
func FromRuntime(ctx context.Context) *Runtime {
	if v := ctx.Value(runtimeKey{}); v != nil {
		if rt, ok := v.(*Runtime); ok {
			return rt
		}
	}
	return nil
}

// Kubernetes returns a memoized Kubernetes clientset configured for this runtime.
func (r *Runtime) Kubernetes() (KubernetesClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.k8s != nil {
		return r.k8s, nil
	}

	cs, err := r.k8sFactory(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	r.k8s = cs
	return r.k8s, nil
}

// RESTConfig returns a memoized Kubernetes REST config for this runtime.
// The exec transport needs the raw config, not just the clientset.
func (r *Runtime) RESTConfig() (*rest.Config, error) {
	if r.restConfig != nil {
		return r.restConfig, nil
	}

	cfg, err := r.restConfigFactory(r)
	if err != nil {
		return nil, err
	}
	r.restConfig = cfg
	return r.restConfig, nil
}

// Stack loads and memoizes the stack for the configured path and environment.
func (r *Runtime) Stack() (*stack.Stack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stack != nil {
		return r.stack, nil
	}
	if r.stackPath == "" {
		return nil, fmt.Errorf("stack path must be set")
	}
	s, err := stack.Load(r.stackPath, r.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}
	r.stack = s
	return s, nil
}

// Close performs cleanup of resources held by the runtime.
// It's safe to call multiple times.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.k8s = nil
	r.restConfig = nil
	r.stack = nil

	return nil
}

// Timeout returns the configured deadline for one reconciliation run.
func (r *Runtime) Timeout() time.Duration { return r.timeout }

// Namespace returns the configured namespace, or "default" if none is set.
func (r *Runtime) Namespace() string {
	if r.namespace != "" {
		return r.namespace
	}
	return DefaultNamespace
}

// Environment returns the configured target environment name.
func (r *Runtime) Environment() string { return r.environment }

// SetEnvironment switches the target environment. Commands take the
// environment as a positional argument, after the runtime has been built from
// the persistent flags. Any memoized stack is discarded so the next Stack()
// call resolves parameters for the new environment.
func (r *Runtime) SetEnvironment(environment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.environment = environment
	r.stack = nil
}

// StackPath returns the configured stack file path.
func (r *Runtime) StackPath() string { return r.stackPath }
