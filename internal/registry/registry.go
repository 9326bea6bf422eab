// Package registry holds the fixed set of chat rooms the server knows about.
// The set is loaded once at startup from configuration; rooms are never
// created or destroyed at runtime.
package registry

import "strings"

// Registry validates room identifiers against the configured catalog.
type Registry struct {
	order []string
	known map[string]struct{}
}

// New builds a Registry from the configured room names. Blank entries are
// skipped and duplicates collapse; the configured order is preserved.
func New(rooms []string) *Registry {
	r := &Registry{
		order: make([]string, 0, len(rooms)),
		known: make(map[string]struct{}, len(rooms)),
	}
	for _, name := range rooms {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.known[name]; ok {
			continue
		}
		r.known[name] = struct{}{}
		r.order = append(r.order, name)
	}
	return r
}

// IsValid reports whether the room identifier belongs to the catalog.
func (r *Registry) IsValid(room string) bool {
	_, ok := r.known[room]
	return ok
}

// List returns the room identifiers in configured order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
