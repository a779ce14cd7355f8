package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
)

// ValidateRegistry performs a strict parity check between the processors the
// descriptors list and the ones registered in Go code, in both directions.
// Registered bundles without a loaded descriptor are only logged: compiled
// modules may be installed without their bundle being configured.
func (r *Registry) ValidateRegistry(ctx context.Context, descriptors []*bundle.Descriptor) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	loaded := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		loaded[d.ID] = struct{}{}

		listed := make(map[string]struct{})
		for _, name := range d.Processors() {
			listed[name] = struct{}{}
		}
		registered := make(map[string]struct{})
		for _, name := range r.Processors(d.ID) {
			registered[name] = struct{}{}
		}

		// Check for presence mismatches
		for _, name := range d.Processors() {
			if _, ok := registered[name]; !ok {
				errs = append(errs, fmt.Sprintf("bundle '%s': descriptor lists processor '%s' which is not registered in Go code", d.ID, name))
			}
		}
		for _, name := range r.Processors(d.ID) {
			if _, ok := listed[name]; !ok {
				errs = append(errs, fmt.Sprintf("bundle '%s': Go code registers processor '%s' which is not listed in the descriptor", d.ID, name))
			}
		}
	}

	for _, id := range r.Bundles() {
		if _, ok := loaded[id]; !ok {
			logger.Debug("Compiled bundle has no loaded descriptor.", "bundle", id)
		}
	}

	if len(errs) > 0 {
		return failure.New(failure.RegistryMismatch, "", "registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validation passed.", "bundles", len(descriptors))
	return nil
}
