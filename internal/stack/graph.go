package stack

import (
	"fmt"
	"sort"
)

// ValidateGraph checks that every dependency reference names an existing
// component and that the dependency graph contains no cycles.
func ValidateGraph(s *Stack) error {
	for name, component := range s.Components {
		for _, dep := range component.DependsOn {
			if dep == name {
				return fmt.Errorf("component %q depends on itself", name)
			}
			if _, ok := s.Components[dep]; !ok {
				return fmt.Errorf("component %q depends on unknown component %q", name, dep)
			}
		}
	}

	if _, err := Waves(s); err != nil {
		return err
	}
	return nil
}

// Waves returns the components grouped into dependency waves: every
// component in wave N depends only on components in waves < N. Components
// within one wave are mutually independent and may be reconciled
// concurrently. Names within a wave are sorted for deterministic output.
func Waves(s *Stack) ([][]string, error) {
	indegree := make(map[string]int, len(s.Components))
	for name, component := range s.Components {
		indegree[name] = len(component.DependsOn)
	}

	var waves [][]string
	placed := 0
	for placed < len(s.Components) {
		var wave []string
		for name, deg := range indegree {
			if deg == 0 {
				wave = append(wave, name)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("dependency cycle detected among components: %v", remaining(indegree))
		}
		sort.Strings(wave)

		for _, name := range wave {
			delete(indegree, name)
		}
		for name, component := range s.Components {
			if _, pending := indegree[name]; !pending {
				continue
			}
			for _, dep := range component.DependsOn {
				for _, done := range wave {
					if dep == done {
						indegree[name]--
					}
				}
			}
		}

		placed += len(wave)
		waves = append(waves, wave)
	}

	return waves, nil
}

// Dependents returns the names of every component that transitively depends
// on the given component. Used to block downstream components when a
// prerequisite fails.
func Dependents(s *Stack, name string) []string {
	direct := make(map[string][]string, len(s.Components))
	for compName, component := range s.Components {
		for _, dep := range component.DependsOn {
			direct[dep] = append(direct[dep], compName)
		}
	}

	seen := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, dependent := range direct[n] {
			if !seen[dependent] {
				seen[dependent] = true
				walk(dependent)
			}
		}
	}
	walk(name)

	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

func remaining(indegree map[string]int) []string {
	names := make([]string, 0, len(indegree))
	for name := range indegree {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
