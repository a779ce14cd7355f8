// Package declaration holds configured instances of specifications and links
// them against their templates.
//
// A Declaration is built from a configuration document with the parameters
// and attributes exactly as written. Link matches them against the
// Specification, reorders them into specification order, synthesizes
// defaults and registers pipeline wiring. A Configuration links a whole set
// of declarations, resolves references between them and orders them.
package declaration

import (
	"fmt"

	"github.com/vk/gridlink/internal/pipeline"
	"github.com/vk/gridlink/internal/spec"
	"github.com/zclconf/go-cty/cty"
)

// Declaration is a configured instance of a specification.
type Declaration struct {
	Name     string
	SpecName string
	// Parameters are in configuration order until Link reorders them into
	// specification order.
	Parameters []*Parameter
	// Outputs mirror the specification's outputs once linked.
	Outputs []*Output

	spec   *spec.Specification
	graph  *pipeline.Graph
	linked bool
}

// New creates an unlinked declaration of the named specification.
func New(name, specName string, params ...*Parameter) *Declaration {
	return &Declaration{Name: name, SpecName: specName, Parameters: params}
}

// AddParameter appends a parameter occurrence.
func (d *Declaration) AddParameter(p *Parameter) {
	d.Parameters = append(d.Parameters, p)
}

// Spec returns the linked specification, or nil.
func (d *Declaration) Spec() *spec.Specification {
	return d.spec
}

// Linked reports whether Link has been called.
func (d *Declaration) Linked() bool {
	return d.linked
}

// Output looks up an output by name.
func (d *Declaration) Output(name string) (*Output, bool) {
	for _, o := range d.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Occurrences returns all parameter occurrences with the given name.
func (d *Declaration) Occurrences(name string) []*Parameter {
	var out []*Parameter
	for _, p := range d.Parameters {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

func (d *Declaration) location() string {
	return fmt.Sprintf("declaration '%s'", d.Name)
}

// Parameter is one occurrence of a parameter group.
type Parameter struct {
	Name       string
	Attributes []*Attribute

	spec        *spec.Parameter
	synthesized bool
}

// NewParameter creates a parameter occurrence.
func NewParameter(name string, attrs ...*Attribute) *Parameter {
	return &Parameter{Name: name, Attributes: attrs}
}

// Spec returns the linked specification parameter, or nil.
func (p *Parameter) Spec() *spec.Parameter {
	return p.spec
}

// Synthesized reports whether the occurrence was created from defaults.
func (p *Parameter) Synthesized() bool {
	return p.synthesized
}

// Attribute looks up an attribute by name.
func (p *Parameter) Attribute(name string) (*Attribute, bool) {
	for _, a := range p.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Reference addresses an output of another declaration. An empty Output
// means the declaration's only output.
type Reference struct {
	Declaration string
	Output      string
}

func (r Reference) String() string {
	if r.Output == "" {
		return "decl." + r.Declaration
	}
	return "decl." + r.Declaration + "." + r.Output
}

// Attribute holds either an immediate value or a reference, never both.
type Attribute struct {
	Name string

	value     *cty.Value
	ref       *Reference
	source    *Output
	spec      *spec.Attribute
	defaulted bool
	node      pipeline.AttrID
	graph     *pipeline.Graph
}

// Immediate creates an attribute with a literal value.
func Immediate(name string, v cty.Value) *Attribute {
	return &Attribute{Name: name, value: &v}
}

// Ref creates an attribute reading another declaration's output.
func Ref(name string, ref Reference) *Attribute {
	return &Attribute{Name: name, ref: &ref}
}

// Value returns the immediate value. After linking it is converted to the
// attribute's declared type.
func (a *Attribute) Value() (cty.Value, bool) {
	if a.value == nil {
		return cty.NilVal, false
	}
	return *a.value, true
}

// Reference returns the referenced output address.
func (a *Attribute) Reference() (Reference, bool) {
	if a.ref == nil {
		return Reference{}, false
	}
	return *a.ref, true
}

// Source returns the output a reference resolved to, or nil.
func (a *Attribute) Source() *Output {
	return a.source
}

// Spec returns the linked specification attribute, or nil.
func (a *Attribute) Spec() *spec.Attribute {
	return a.spec
}

// Defaulted reports whether the attribute was synthesized from a default.
func (a *Attribute) Defaulted() bool {
	return a.defaulted
}

// Type returns the attribute's current type: the declared type, narrowed by
// whatever reached it through the pipeline.
func (a *Attribute) Type() cty.Type {
	if a.graph == nil {
		return cty.DynamicPseudoType
	}
	return a.graph.AttributeType(a.node)
}

// Output is a declaration's result slot.
type Output struct {
	Name string

	spec  *spec.Output
	decl  *Declaration
	node  pipeline.OutputID
	graph *pipeline.Graph
}

// Spec returns the specification output.
func (o *Output) Spec() *spec.Output {
	return o.spec
}

// Declaration returns the owning declaration.
func (o *Output) Declaration() *Declaration {
	return o.decl
}

// Type returns the frozen type, or the declared type if nothing narrowed it.
func (o *Output) Type() cty.Type {
	return o.graph.OutputType(o.node)
}

// Frozen reports whether pipeline inference fixed the type.
func (o *Output) Frozen() bool {
	return o.graph.IsFrozen(o.node)
}

// Subscribers returns how many attributes still wait for this output to
// freeze.
func (o *Output) Subscribers() int {
	return len(o.graph.Subscribers(o.node))
}

func (o *Output) location() string {
	return fmt.Sprintf("declaration '%s', output '%s'", o.decl.Name, o.Name)
}
