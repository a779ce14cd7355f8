package spec

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Kind tells composite blocks from leaf processors.
type Kind int

const (
	KindProcessor Kind = iota
	KindBlock
)

func (k Kind) String() string {
	if k == KindBlock {
		return "block"
	}
	return "processor"
}

// Unbounded is the Max of a multiplicity without upper limit.
const Unbounded = -1

// Multiplicity is the allowed number of occurrences of a parameter.
type Multiplicity struct {
	Min int
	Max int
}

// Exactly returns the multiplicity [n,n].
func Exactly(n int) Multiplicity { return Multiplicity{Min: n, Max: n} }

// Optional returns the multiplicity [0,1].
func Optional() Multiplicity { return Multiplicity{Min: 0, Max: 1} }

// AtLeast returns the multiplicity [n,*].
func AtLeast(n int) Multiplicity { return Multiplicity{Min: n, Max: Unbounded} }

// Contains reports whether n occurrences are allowed.
func (m Multiplicity) Contains(n int) bool {
	return n >= m.Min && (m.Max == Unbounded || n <= m.Max)
}

func (m Multiplicity) empty() bool {
	if m.Min < 0 {
		return true
	}
	if m.Max == Unbounded {
		return false
	}
	return m.Max < 1 || m.Max < m.Min
}

func (m Multiplicity) String() string {
	if m.Max == Unbounded {
		return fmt.Sprintf("[%d,*]", m.Min)
	}
	return fmt.Sprintf("[%d,%d]", m.Min, m.Max)
}

// Attribute is a typed value slot of a parameter.
type Attribute struct {
	Name        string
	Type        cty.Type
	Description string
	// Default is nil when the attribute must be supplied.
	Default *cty.Value

	pipelineOutputs []string
}

// HasDefault reports whether the attribute can be omitted.
func (a *Attribute) HasDefault() bool {
	return a.Default != nil
}

// PipelineOutputs names the outputs this attribute is a pipeline source of.
func (a *Attribute) PipelineOutputs() []string {
	return a.pipelineOutputs
}

// Parameter is a named, possibly repeated group of attributes.
type Parameter struct {
	Name         string
	Description  string
	Multiplicity Multiplicity
	Attributes   []*Attribute
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

// AllDefaulted reports whether every attribute has a default value.
func (p *Parameter) AllDefaulted() bool {
	for _, a := range p.Attributes {
		if !a.HasDefault() {
			return false
		}
	}
	return true
}

// AttributeRef addresses an attribute of a parameter, written "param.attr".
type AttributeRef struct {
	Parameter string
	Attribute string
}

// ParseAttributeRef parses "param.attr".
func ParseAttributeRef(s string) (AttributeRef, error) {
	param, attr, ok := strings.Cut(s, ".")
	if !ok || param == "" || attr == "" || strings.Contains(attr, ".") {
		return AttributeRef{}, fmt.Errorf("attribute reference %q must have the form parameter.attribute", s)
	}
	return AttributeRef{Parameter: param, Attribute: attr}, nil
}

func (r AttributeRef) String() string {
	return r.Parameter + "." + r.Attribute
}

// Output is a named, typed result slot.
type Output struct {
	Name        string
	Type        cty.Type
	Description string
	// PipelineSources lists the attributes whose supplied value determines
	// the output's type.
	PipelineSources []AttributeRef
}

// IsPipeline reports whether the output's type is inferred.
func (o *Output) IsPipeline() bool {
	return len(o.PipelineSources) > 0
}

// Specification is the immutable contract of a block or processor.
type Specification struct {
	Name        string
	Kind        Kind
	Description string
	// Bundle is the id of the contributing bundle. Sources set it before
	// handing the specification out.
	Bundle     string
	Parameters []*Parameter
	Outputs    []*Output
}

// QualifiedName is "<bundle>.<name>", or the bare name outside a bundle.
func (s *Specification) QualifiedName() string {
	if s.Bundle == "" {
		return s.Name
	}
	return s.Bundle + "." + s.Name
}

// Parameter looks up a parameter by name.
func (s *Specification) Parameter(name string) (*Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Output looks up an output by name.
func (s *Specification) Output(name string) (*Output, bool) {
	for _, o := range s.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// InBundle returns a copy of s owned by bundleID. Parameters and outputs
// are shared.
func (s *Specification) InBundle(bundleID string) *Specification {
	c := *s
	c.Bundle = bundleID
	return &c
}
