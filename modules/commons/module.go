// Package commons is the gridlink.commons bundle: general purpose
// processors every other bundle can build on.
package commons

import (
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/spec"
	"github.com/zclconf/go-cty/cty"
)

// BundleID is the id declared in this bundle's bundle.hcl.
const BundleID = "gridlink.commons"

// Module implements the registry.Module interface for this package.
type Module struct{}

// BundleID implements registry.Module.
func (m *Module) BundleID() string {
	return BundleID
}

// Register registers the bundle's processors.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessor(BundleID, "identity", Identity)
	r.RegisterProcessor(BundleID, "print", Print)
	r.RegisterProcessor(BundleID, "sum", Sum)
	r.RegisterProcessor(BundleID, "join", Join)
}

// Identity passes its input through. The output takes whatever type the
// input has.
func Identity() (*spec.Specification, error) {
	b := spec.NewBuilder("identity", spec.KindProcessor).Describe("Returns its input unchanged.")
	b.Parameter("input", spec.Exactly(1)).
		Attribute("value", cty.DynamicPseudoType).DescribeAttribute("the value to return")
	b.Output("result", cty.DynamicPseudoType, "input.value")
	return b.Build()
}

// Print writes values to the run log. It has no outputs.
func Print() (*spec.Specification, error) {
	b := spec.NewBuilder("print", spec.KindProcessor).Describe("Prints every input value.")
	b.Parameter("input", spec.AtLeast(1)).Attribute("value", cty.DynamicPseudoType)
	return b.Build()
}

// Sum adds numbers.
func Sum() (*spec.Specification, error) {
	b := spec.NewBuilder("sum", spec.KindProcessor).Describe("Adds all terms.")
	b.Parameter("term", spec.AtLeast(1)).Attribute("value", cty.Number)
	b.Output("sum", cty.Number).DescribeOutput("the total")
	return b.Build()
}

// JoinOptions are the tunables of the join processor. The zero value is not
// the default; see DefaultJoinOptions.
type JoinOptions struct {
	Separator string `cty:"separator"`
	Trim      bool   `cty:"trim"`
}

// DefaultJoinOptions are used when a declaration omits the options block.
var DefaultJoinOptions = JoinOptions{Separator: ","}

// Join concatenates text parts.
func Join() (*spec.Specification, error) {
	b := spec.NewBuilder("join", spec.KindProcessor).Describe("Joins text parts with a separator.")
	b.Parameter("part", spec.AtLeast(1)).Attribute("text", cty.String)
	if err := registry.DefaultAttributes(b.Parameter("options", spec.Exactly(1)), DefaultJoinOptions); err != nil {
		return nil, err
	}
	b.Output("text", cty.String)
	return b.Build()
}
