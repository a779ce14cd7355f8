package bundle

import (
	"sort"

	"github.com/vk/gridlink/internal/failure"
)

// Registry maps bundle ids to descriptors. A Registry belongs to a single
// resolution pass and is not safe for concurrent mutation.
type Registry struct {
	byID  map[string]*Descriptor
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Descriptor)}
}

// Add registers a descriptor. A second descriptor with the same id is
// rejected.
func (r *Registry) Add(d *Descriptor) error {
	if existing, ok := r.byID[d.ID]; ok {
		return failure.New(failure.DuplicateBundleID, d.location(),
			"bundle id already registered from '%s'", existing.Location)
	}
	r.byID[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Len returns the number of registered bundles.
func (r *Registry) Len() int {
	return len(r.byID)
}

// IDs returns all registered ids in lexical order.
func (r *Registry) IDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// Descriptors returns the descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
