// Copyright 2025 The Konverge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reconcile drives one run: secrets first, then components in
// dependency order, waves of independent components in parallel.
//
// Failure of one component never aborts the run. Components that do not
// depend on the failed one proceed; transitive dependents are marked blocked
// and never attempted. The run report records every component either way.
package reconcile

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/konverge-dev/konverge/internal/configure"
	"github.com/konverge-dev/konverge/internal/k8s"
	"github.com/konverge-dev/konverge/internal/render"
	"github.com/konverge-dev/konverge/internal/report"
	"github.com/konverge-dev/konverge/internal/stack"
)

// Options configures one reconciliation run.
type Options struct {
	Environment string
	FSGroup     *int64

	// Timeout bounds the whole run. Zero means no run deadline beyond the
	// caller's context.
	Timeout time.Duration

	// WaitPolicy controls per-component readiness polling.
	WaitPolicy k8s.Policy
}

// Reconciler converges one stack onto a cluster.
type Reconciler struct {
	stack   *stack.Stack
	client  *k8s.Client
	applier *k8s.Applier
	waiter  *k8s.Waiter
	exec    *k8s.Exec
	steps   *configure.Runner
	opts    Options
	logger  *log.Logger
}

// New creates a reconciler for one stack.
func New(s *stack.Stack, client *k8s.Client, exec *k8s.Exec, opts Options, logger *log.Logger) *Reconciler {
	if opts.WaitPolicy == (k8s.Policy{}) {
		opts.WaitPolicy = k8s.DefaultPolicy
	}
	return &Reconciler{
		stack:   s,
		client:  client,
		applier: k8s.NewApplier(client),
		waiter:  k8s.NewWaiter(client, opts.WaitPolicy),
		exec:    exec,
		steps:   configure.NewRunner(exec, s.Name, opts.Environment, logger),
		opts:    opts,
		logger:  logger,
	}
}

// Run executes one reconciliation and returns the report. The returned error
// is non-nil only for run-level failures (an unloadable graph, a canceled
// context); per-component failures are reported, not returned.
func (r *Reconciler) Run(ctx context.Context) (*report.Report, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	rep := report.New(r.stack.Name, r.opts.Environment, r.client.Namespace())

	waves, err := stack.Waves(r.stack)
	if err != nil {
		return nil, fmt.Errorf("failed to order components: %w", err)
	}

	failedSecrets := r.ensureSecrets(ctx, rep)

	var mu sync.Mutex
	outcomes := make(map[string]report.Outcome, len(r.stack.Components))

	for _, wave := range waves {
		g, waveCtx := errgroup.WithContext(ctx)

		for _, name := range wave {
			comp := r.stack.Components[name]

			mu.Lock()
			blockedOn := failedDependencies(comp.DependsOn, outcomes)
			mu.Unlock()

			if len(blockedOn) > 0 {
				mu.Lock()
				outcomes[name] = report.OutcomeBlocked
				rep.AddComponent(report.ComponentReport{
					Name:      name,
					Outcome:   report.OutcomeBlocked,
					Message:   fmt.Sprintf("not attempted: dependency %s did not converge", blockedOn[0]),
					BlockedOn: blockedOn,
				})
				mu.Unlock()
				r.logger.Warn("component blocked", "component", name, "blockedOn", blockedOn)
				continue
			}

			g.Go(func() error {
				cr := r.reconcileComponent(waveCtx, name, comp, failedSecrets)
				mu.Lock()
				outcomes[name] = cr.Outcome
				rep.AddComponent(cr)
				mu.Unlock()
				// Component failures are isolated; never fail the group.
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			r.markUnfinished(rep, outcomes)
			r.recordEndpoints(rep, outcomes)
			rep.Finalize()
			return rep, ctx.Err()
		}
	}

	r.recordEndpoints(rep, outcomes)
	rep.Finalize()
	return rep, nil
}

// recordEndpoints resolves the URL of every routed component that converged,
// so the report tells the operator where the stack is reachable.
func (r *Reconciler) recordEndpoints(rep *report.Report, outcomes map[string]report.Outcome) {
	for _, name := range sortedComponents(r.stack) {
		comp := r.stack.Components[name]
		if comp.Route == nil {
			continue
		}
		switch outcomes[name] {
		case report.OutcomeApplied, report.OutcomeUnchanged:
			rep.AddEndpoint(report.EndpointReport{Component: name, URL: routeURL(comp.Route)})
		}
	}
}

// ensureSecrets creates or reads every distinct secret of the stack before
// any component is applied, so workloads never reference a secret that does
// not exist yet. Returns the bindings that could not be ensured.
func (r *Reconciler) ensureSecrets(ctx context.Context, rep *report.Report) map[string]error {
	failed := make(map[string]error)

	for _, binding := range mergedBindings(r.stack) {
		record, err := r.client.EnsureSecret(ctx, r.stack.Name, r.opts.Environment, binding)
		if err != nil {
			failed[binding.Name] = err
			r.logger.Error("failed to ensure secret", "secret", binding.Name, "err", err)
			continue
		}

		rep.AddSecret(report.SecretReport{
			Name:     record.Name,
			Resource: record.Ref.String(),
			Created:  record.Created,
			Fields:   record.Fields,
			Values:   record.Values,
		})
		if record.Created {
			r.logger.Info("generated credentials", "secret", binding.Name)
		} else {
			r.logger.Debug("secret already exists, keeping credentials", "secret", binding.Name)
		}
	}
	return failed
}

// mergedBindings collapses the stack's secret bindings to one per logical
// secret. Components may bind the same secret with different field subsets,
// so the fields are unioned; the generated secret has to satisfy every
// reference, not just the first component's.
func mergedBindings(s *stack.Stack) []stack.SecretBinding {
	merged := make(map[string]*stack.SecretBinding)
	var order []string

	for _, name := range sortedComponents(s) {
		for _, binding := range s.Components[name].Secrets {
			existing, ok := merged[binding.Name]
			if !ok {
				merged[binding.Name] = &stack.SecretBinding{
					Name:   binding.Name,
					Fields: slices.Clone(binding.Fields),
				}
				order = append(order, binding.Name)
				continue
			}
			for _, field := range binding.Fields {
				if !slices.Contains(existing.Fields, field) {
					existing.Fields = append(existing.Fields, field)
				}
			}
		}
	}

	bindings := make([]stack.SecretBinding, 0, len(order))
	for _, name := range order {
		sort.Strings(merged[name].Fields)
		bindings = append(bindings, *merged[name])
	}
	return bindings
}

// reconcileComponent runs the full lifecycle of one component: render,
// apply, wait, configure.
func (r *Reconciler) reconcileComponent(ctx context.Context, name string, comp stack.Component, failedSecrets map[string]error) report.ComponentReport {
	cr := report.ComponentReport{Name: name}
	logger := r.logger.With("component", name)

	for _, binding := range comp.Secrets {
		if err := failedSecrets[binding.Name]; err != nil {
			cr.Outcome = report.OutcomeFailed
			cr.Message = fmt.Sprintf("secret %s unavailable: %v", binding.Name, err)
			return cr
		}
	}

	resources, err := render.Component(r.stack, name, render.Options{
		Namespace:   r.client.Namespace(),
		Environment: r.opts.Environment,
		FSGroup:     r.opts.FSGroup,
	})
	if err != nil {
		logger.Error("failed to render component", "err", err)
		cr.Outcome = report.OutcomeFailed
		cr.Message = err.Error()
		return cr
	}

	applied, err := r.applier.ApplyAll(ctx, resources)
	for _, result := range applied {
		cr.Resources = append(cr.Resources, report.ResourceReport{
			Resource: result.Ref.String(),
			Action:   string(result.Action),
		})
	}
	if err != nil {
		logger.Error("failed to apply component", "err", err)
		cr.Outcome = report.OutcomeFailed
		cr.Message = err.Error()
		return cr
	}

	if err := r.waitReady(ctx, name, comp); err != nil {
		logger.Error("component did not become ready", "err", err)
		cr.Outcome = report.OutcomeFailed
		cr.Message = err.Error()
		return cr
	}

	if len(comp.Configure) > 0 {
		// A rolled-out pod is not necessarily accepting exec sessions yet.
		podRef := k8s.ResourceRef{Kind: "Pod", Namespace: r.client.Namespace(), Name: k8s.ResourceName(r.stack.Name, name)}
		if err := r.waiter.Await(ctx, podRef, r.exec.ExecReady(r.stack.Name, name, r.opts.Environment, "")); err != nil {
			logger.Error("component never accepted exec", "err", err)
			cr.Outcome = report.OutcomeFailed
			cr.Message = err.Error()
			return cr
		}

		results, stepErr := r.steps.Run(ctx, name, comp)
		for _, result := range results {
			step := report.StepReport{
				Name:   result.Name,
				Status: string(result.Status),
				Fatal:  result.Fatal,
			}
			if result.Duration > 0 {
				step.Duration = result.Duration.Round(time.Millisecond).String()
			}
			if result.Err != nil {
				step.Error = result.Err.Error()
			}
			cr.Steps = append(cr.Steps, step)
		}
		if stepErr != nil {
			cr.Outcome = report.OutcomeFailed
			cr.Message = stepErr.Error()
			return cr
		}
	}

	cr.Outcome = report.OutcomeApplied
	if unchangedOnly(applied) {
		cr.Outcome = report.OutcomeUnchanged
	}
	logger.Info("component converged", "outcome", string(cr.Outcome))
	return cr
}

// waitReady waits for the component's workload to roll out, then probes the
// route host when the component declares an http or tcp health style.
func (r *Reconciler) waitReady(ctx context.Context, name string, comp stack.Component) error {
	workload := k8s.ResourceName(r.stack.Name, name)

	var ref k8s.ResourceRef
	var probe k8s.Probe
	if comp.Kind.Stateful() {
		ref = k8s.ResourceRef{Kind: "StatefulSet", Namespace: r.client.Namespace(), Name: workload}
		probe = r.waiter.StatefulSetReady(workload)
	} else {
		ref = k8s.ResourceRef{Kind: "Deployment", Namespace: r.client.Namespace(), Name: workload}
		probe = r.waiter.DeploymentReady(workload)
	}
	if err := r.waiter.Await(ctx, ref, probe); err != nil {
		return err
	}

	if comp.Route == nil {
		return nil
	}
	routeRef := k8s.ResourceRef{Kind: "Ingress", Namespace: r.client.Namespace(), Name: workload}

	switch comp.Health.Style {
	case stack.HealthStyleHTTP:
		path := comp.Health.Path
		if path == "" {
			path = "/"
		}
		return r.waiter.Await(ctx, routeRef, k8s.HTTPOk(nil, routeURL(comp.Route)+path))

	case stack.HealthStyleTCP:
		// The health port wins over the route's edge port, so a stack can
		// point the probe at a non-standard listener.
		port := 80
		if comp.Route.TLS {
			port = 443
		}
		if comp.Health.Port > 0 {
			port = comp.Health.Port
		}
		addr := net.JoinHostPort(comp.Route.Host, strconv.Itoa(port))
		return r.waiter.Await(ctx, routeRef, k8s.TCPReachable(addr))
	}
	return nil
}

func routeURL(route *stack.Route) string {
	scheme := "http"
	if route.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, route.Host)
}

// markUnfinished records components the run deadline cut off before they
// were attempted.
func (r *Reconciler) markUnfinished(rep *report.Report, outcomes map[string]report.Outcome) {
	for _, name := range sortedComponents(r.stack) {
		if _, done := outcomes[name]; done {
			continue
		}
		rep.AddComponent(report.ComponentReport{
			Name:    name,
			Outcome: report.OutcomeBlocked,
			Message: "not attempted: run deadline exceeded",
		})
	}
}

func failedDependencies(deps []string, outcomes map[string]report.Outcome) []string {
	var blocked []string
	for _, dep := range deps {
		switch outcomes[dep] {
		case report.OutcomeFailed, report.OutcomeBlocked:
			blocked = append(blocked, dep)
		}
	}
	return blocked
}

func unchangedOnly(results []k8s.ApplyResult) bool {
	for _, result := range results {
		if result.Action != k8s.ActionUnchanged {
			return false
		}
	}
	return len(results) > 0
}

func sortedComponents(s *stack.Stack) []string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
