// Package text is the gridlink.text bundle.
package text

import (
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/spec"
	"github.com/zclconf/go-cty/cty"
)

// BundleID is the id declared in this bundle's bundle.hcl.
const BundleID = "gridlink.text"

// Module implements the registry.Module interface for this package.
type Module struct{}

// BundleID implements registry.Module.
func (m *Module) BundleID() string {
	return BundleID
}

// Register registers the bundle's processors.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessor(BundleID, "uppercase", Uppercase)
}

// Uppercase converts text to upper case.
func Uppercase() (*spec.Specification, error) {
	b := spec.NewBuilder("uppercase", spec.KindProcessor)
	b.Parameter("input", spec.Exactly(1)).Attribute("text", cty.String)
	b.Output("text", cty.String)
	return b.Build()
}
