package bundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
)

// Warning is an advisory finding. It is logged and reported but never stops
// a resolution pass.
type Warning struct {
	BundleID string
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("bundle '%s': %s", w.BundleID, w.Message)
}

// Verify checks every dependency edge in the registry. Self dependencies and
// dependencies on unregistered bundles are fatal and are all reported
// together. A version mismatch between an edge and the registered bundle, or
// between a bundle's required core version and coreVersion, only produces a
// warning. A zero coreVersion disables the core check.
func Verify(ctx context.Context, r *Registry, coreVersion Version) ([]Warning, error) {
	logger := ctxlog.FromContext(ctx)

	var warnings []Warning
	var errs []error
	for _, id := range r.IDs() {
		d, _ := r.Get(id)

		if !coreVersion.IsZero() && !d.RequiredCoreVersion.IsZero() && d.RequiredCoreVersion != coreVersion {
			w := Warning{BundleID: id, Message: fmt.Sprintf(
				"requires core version %s, running %s", d.RequiredCoreVersion, coreVersion)}
			logger.Warn("Bundle built for a different core version.",
				"bundle", id, "required", d.RequiredCoreVersion.String(), "core", coreVersion.String())
			warnings = append(warnings, w)
		}

		for _, dep := range d.dependencies {
			if dep.BundleID == id {
				errs = append(errs, failure.New(failure.SelfDependency, d.location(), "bundle depends on itself"))
				continue
			}

			target, ok := r.Get(dep.BundleID)
			if !ok {
				errs = append(errs, failure.New(failure.MissingDependency, d.location(),
					"required bundle '%s' not found", dep.BundleID))
				continue
			}

			if target.Version != dep.Version {
				w := Warning{BundleID: id, Message: fmt.Sprintf(
					"requires '%s' in version %s but found version %s", dep.BundleID, dep.Version, target.Version)}
				logger.Warn("Dependency version mismatch.",
					"bundle", id, "dependency", dep.BundleID,
					"required", dep.Version.String(), "found", target.Version.String())
				warnings = append(warnings, w)
			}
		}
	}

	if len(errs) > 0 {
		return warnings, errors.Join(errs...)
	}
	logger.Debug("Bundle dependencies verified.", "bundles", r.Len(), "warnings", len(warnings))
	return warnings, nil
}
