package node

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownNode is returned when a name is not registered.
var ErrUnknownNode = errors.New("node: unknown node")

// Entry is one row of the static registration table.
type Entry struct {
	Name        string
	DisplayName string
	Node        Node
}

// Registry maps node names to node classes and display names. It is built
// once and never changes afterwards, so reads need no locking.
type Registry struct {
	classes      map[string]Node
	displayNames map[string]string
	order        []string
}

// NewRegistry builds a registry from a static table. Every entry's node
// definition must validate and agree with the entry name.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		classes:      make(map[string]Node, len(entries)),
		displayNames: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("node: name is required")
		}
		if e.Node == nil {
			return nil, fmt.Errorf("node: class is required for %s", e.Name)
		}
		if _, exists := r.classes[e.Name]; exists {
			return nil, fmt.Errorf("node: %s already registered", e.Name)
		}
		def := e.Node.Definition()
		if def.Name != e.Name {
			return nil, fmt.Errorf("node: %s registered under %q", def.Name, e.Name)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		display := e.DisplayName
		if display == "" {
			display = def.DisplayName
		}
		r.classes[e.Name] = e.Node
		r.displayNames[e.Name] = display
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// Resolve returns the node class registered under name.
func (r *Registry) Resolve(name string) (Node, error) {
	n, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownNode, name)
	}
	return n, nil
}

// DisplayName returns the human readable title for name.
func (r *Registry) DisplayName(name string) (string, bool) {
	d, ok := r.displayNames[name]
	return d, ok
}

// ClassMappings returns a copy of the name to node class table.
func (r *Registry) ClassMappings() map[string]Node {
	out := make(map[string]Node, len(r.classes))
	for k, v := range r.classes {
		out[k] = v
	}
	return out
}

// DisplayNameMappings returns a copy of the name to display name table.
func (r *Registry) DisplayNameMappings() map[string]string {
	out := make(map[string]string, len(r.displayNames))
	for k, v := range r.displayNames {
		out[k] = v
	}
	return out
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
