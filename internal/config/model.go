package config

import "github.com/zclconf/go-cty/cty"

// Model is the unified, format-agnostic representation of a configuration.
type Model struct {
	// Declarations are in document order; files are read in lexical order.
	Declarations []*Declaration
}

// Declaration is one `declare` block.
type Declaration struct {
	Spec       string
	Name       string
	Parameters []*Parameter
	// Range is the source position, e.g. "main.hcl:3,1-28".
	Range string
}

// Parameter is one occurrence of a parameter block.
type Parameter struct {
	Name       string
	Attributes []*Attribute
	Range      string
}

// Attribute is either a literal Value or a Reference.
type Attribute struct {
	Name      string
	Value     *cty.Value
	Reference *Reference
	Range     string
}

// Reference is `decl.<Declaration>` or `decl.<Declaration>.<Output>`.
type Reference struct {
	Declaration string
	Output      string
}

// Len returns the number of declarations.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Declarations)
}
