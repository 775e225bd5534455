// Package schema holds the static dataset catalog: every dataset type the
// gateway serves, its typed fields, and its named column scopes. The catalog
// is built once at startup and shared read-only by all requests.
package schema

import (
	"sort"

	"github.com/peskas/gateway/internal/domain"
)

// Registry is the immutable set of dataset descriptors.
type Registry struct {
	datasets map[string]*domain.DatasetDescriptor
}

// NewRegistry finalizes and indexes the given descriptors.
func NewRegistry(descriptors ...*domain.DatasetDescriptor) *Registry {
	m := make(map[string]*domain.DatasetDescriptor, len(descriptors))
	for _, d := range descriptors {
		d.Finalize()
		m[d.Name] = d
	}
	return &Registry{datasets: m}
}

// Default returns the registry with all built-in dataset types.
func Default() *Registry {
	return NewRegistry(Landings())
}

// Dataset returns the descriptor for a dataset type name.
func (r *Registry) Dataset(name string) (*domain.DatasetDescriptor, bool) {
	d, ok := r.datasets[name]
	return d, ok
}

// Names returns all registered dataset type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all descriptors, ordered by name.
func (r *Registry) All() []*domain.DatasetDescriptor {
	out := make([]*domain.DatasetDescriptor, 0, len(r.datasets))
	for _, name := range r.Names() {
		out = append(out, r.datasets[name])
	}
	return out
}
