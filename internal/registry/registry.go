package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/spec"
)

// Module is the interface that all compiled bundles must implement to be
// registered.
type Module interface {
	// BundleID names the bundle whose processors the module implements.
	BundleID() string
	Register(r *Registry)
}

// Factory builds a processor's specification.
type Factory func() (*spec.Specification, error)

// Registry holds the processor factories of one application instance.
type Registry struct {
	processors map[string]map[string]Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{processors: make(map[string]map[string]Factory)}
}

// RegisterProcessor registers the factory for a processor of a bundle.
// Registering the same processor twice is a programming error and panics.
func (r *Registry) RegisterProcessor(bundleID, name string, factory Factory) {
	byName, ok := r.processors[bundleID]
	if !ok {
		byName = make(map[string]Factory)
		r.processors[bundleID] = byName
	}
	if _, exists := byName[name]; exists {
		panic(fmt.Sprintf("processor '%s' of bundle '%s' already registered", name, bundleID))
	}
	slog.Debug("Registering processor.", "bundle", bundleID, "processor", name)
	byName[name] = factory
}

// Processors returns the registered processor names of a bundle, sorted.
func (r *Registry) Processors(bundleID string) []string {
	names := make([]string, 0, len(r.processors[bundleID]))
	for name := range r.processors[bundleID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bundles returns the ids of bundles with registered processors, sorted.
func (r *Registry) Bundles() []string {
	ids := make([]string, 0, len(r.processors))
	for id := range r.processors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Specification implements spec.Source by invoking the registered factory.
func (r *Registry) Specification(ctx context.Context, bundleID, name string) (*spec.Specification, bool, error) {
	factory, ok := r.processors[bundleID][name]
	if !ok {
		return nil, false, nil
	}

	s, err := factory()
	if err != nil {
		return nil, false, failure.Wrap(failure.InvalidSpecification, bundleID, err,
			"processor '%s' has an invalid specification", name)
	}
	if s.Name != name || s.Kind != spec.KindProcessor {
		return nil, false, failure.New(failure.InvalidSpecification, bundleID,
			"factory for processor '%s' built %s '%s'", name, s.Kind, s.Name)
	}

	ctxlog.FromContext(ctx).Debug("Built processor specification.", "bundle", bundleID, "processor", name)
	return s.InBundle(bundleID), true, nil
}
