// Package registry holds the ordered set of installable components and drives
// a run over a selection of them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Operation installs (or uninstalls) one component. It must be safe to run
// again after a partial failure.
type Operation func(ctx context.Context) error

// Component is a registered, named operation. Components are created once at
// startup and never mutated.
type Component struct {
	Name        string
	Description string
	Install     Operation
	Uninstall   Operation
	Verify      Operation
}

// Registry is an ordered list of components. The order is the install order.
type Registry struct {
	components []Component
	index      map[string]int
}

// New builds a registry in the given order. Names must be unique and every
// component needs an install operation.
func New(components ...Component) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(components))}
	for _, c := range components {
		if c.Name == "" {
			return nil, errors.New("component without a name")
		}
		if c.Install == nil {
			return nil, fmt.Errorf("component %q has no install operation", c.Name)
		}
		if _, dup := r.index[c.Name]; dup {
			return nil, fmt.Errorf("component %q registered twice", c.Name)
		}
		r.index[c.Name] = len(r.components)
		r.components = append(r.components, c)
	}
	return r, nil
}

// Components returns all components in registry order.
func (r *Registry) Components() []Component {
	out := make([]Component, len(r.components))
	copy(out, r.components)
	return out
}

// Names returns all component names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.components))
	for i, c := range r.components {
		names[i] = c.Name
	}
	return names
}

// Lookup finds a component by name.
func (r *Registry) Lookup(name string) (Component, bool) {
	i, ok := r.index[name]
	if !ok {
		return Component{}, false
	}
	return r.components[i], true
}

// InvalidSelectionError lists requested names the registry does not know.
type InvalidSelectionError struct {
	Unknown []string
	Known   []string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("unknown component(s): %s (available: %s)",
		strings.Join(e.Unknown, ", "), strings.Join(e.Known, ", "))
}

// resolveNames validates names and returns the matching components in
// registry order, without duplicates. Nothing is returned unless every name
// is known.
func (r *Registry) resolveNames(names []string) ([]Component, error) {
	var unknown []string
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := r.index[n]; !ok {
			unknown = append(unknown, n)
			continue
		}
		wanted[n] = true
	}
	if len(unknown) > 0 {
		return nil, &InvalidSelectionError{Unknown: unknown, Known: r.Names()}
	}

	out := make([]Component, 0, len(wanted))
	for _, c := range r.components {
		if wanted[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}
