package spec

import (
	"errors"
	"fmt"

	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// Builder assembles a Specification. Problems are collected and reported
// together by Build.
type Builder struct {
	spec    *Specification
	sources map[*Output][]string
}

// NewBuilder starts a specification of the given kind.
func NewBuilder(name string, kind Kind) *Builder {
	return &Builder{
		spec:    &Specification{Name: name, Kind: kind},
		sources: make(map[*Output][]string),
	}
}

// Describe sets the human readable description.
func (b *Builder) Describe(description string) *Builder {
	b.spec.Description = description
	return b
}

// Parameter appends a parameter and returns a builder for its attributes.
func (b *Builder) Parameter(name string, m Multiplicity) *ParameterBuilder {
	p := &Parameter{Name: name, Multiplicity: m}
	b.spec.Parameters = append(b.spec.Parameters, p)
	return &ParameterBuilder{p: p}
}

// Output appends an output. pipelineSources are "param.attr" references.
func (b *Builder) Output(name string, t cty.Type, pipelineSources ...string) *Builder {
	o := &Output{Name: name, Type: t}
	b.spec.Outputs = append(b.spec.Outputs, o)
	b.sources[o] = pipelineSources
	return b
}

// DescribeOutput sets the description of the most recently added output.
func (b *Builder) DescribeOutput(description string) *Builder {
	if n := len(b.spec.Outputs); n > 0 {
		b.spec.Outputs[n-1].Description = description
	}
	return b
}

// ParameterBuilder adds attributes to a parameter.
type ParameterBuilder struct {
	p *Parameter
}

// Describe sets the parameter description.
func (pb *ParameterBuilder) Describe(description string) *ParameterBuilder {
	pb.p.Description = description
	return pb
}

// Attribute appends a required attribute.
func (pb *ParameterBuilder) Attribute(name string, t cty.Type) *ParameterBuilder {
	pb.p.Attributes = append(pb.p.Attributes, &Attribute{Name: name, Type: t})
	return pb
}

// AttributeWithDefault appends an attribute that may be omitted.
func (pb *ParameterBuilder) AttributeWithDefault(name string, t cty.Type, def cty.Value) *ParameterBuilder {
	pb.p.Attributes = append(pb.p.Attributes, &Attribute{Name: name, Type: t, Default: &def})
	return pb
}

// DescribeAttribute sets the description of the most recently added
// attribute.
func (pb *ParameterBuilder) DescribeAttribute(description string) *ParameterBuilder {
	if n := len(pb.p.Attributes); n > 0 {
		pb.p.Attributes[n-1].Description = description
	}
	return pb
}

// Build validates the specification and returns it.
func (b *Builder) Build() (*Specification, error) {
	s := b.spec
	loc := fmt.Sprintf("specification '%s'", s.Name)
	var errs []error

	if s.Name == "" {
		errs = append(errs, failure.New(failure.InvalidSpecification, loc, "specification name must not be empty"))
	}

	seenParams := make(map[string]struct{})
	for _, p := range s.Parameters {
		if _, dup := seenParams[p.Name]; dup {
			errs = append(errs, failure.New(failure.DuplicateParameterName, loc, "duplicate parameter '%s'", p.Name))
		}
		seenParams[p.Name] = struct{}{}

		if p.Multiplicity.empty() {
			errs = append(errs, failure.New(failure.EmptyParameterInterval, loc,
				"parameter '%s' has empty multiplicity %s", p.Name, p.Multiplicity))
		}

		seenAttrs := make(map[string]struct{})
		for _, a := range p.Attributes {
			if _, dup := seenAttrs[a.Name]; dup {
				errs = append(errs, failure.New(failure.DuplicateAttributeName, loc,
					"duplicate attribute '%s' in parameter '%s'", a.Name, p.Name))
			}
			seenAttrs[a.Name] = struct{}{}

			if a.Type == cty.NilType {
				a.Type = cty.DynamicPseudoType
			}
			if a.Default != nil {
				converted, err := typesys.ConvertValue(*a.Default, a.Type)
				if err != nil {
					errs = append(errs, failure.Wrap(failure.IllegalDefaultValue, loc, err,
						"default of attribute '%s.%s' is not a %s", p.Name, a.Name, typesys.Name(a.Type)))
					continue
				}
				a.Default = &converted
			}
		}
	}

	seenOutputs := make(map[string]struct{})
	for _, o := range s.Outputs {
		if _, dup := seenOutputs[o.Name]; dup {
			errs = append(errs, failure.New(failure.DuplicateOutputName, loc, "duplicate output '%s'", o.Name))
		}
		seenOutputs[o.Name] = struct{}{}
		if o.Type == cty.NilType {
			o.Type = cty.DynamicPseudoType
		}
		errs = append(errs, b.linkPipelineSources(loc, o)...)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func (b *Builder) linkPipelineSources(loc string, o *Output) []error {
	var errs []error
	for _, raw := range b.sources[o] {
		ref, err := ParseAttributeRef(raw)
		if err != nil {
			errs = append(errs, failure.Wrap(failure.UnknownPipelineSource, loc, err, "output '%s'", o.Name))
			continue
		}
		p, ok := b.spec.Parameter(ref.Parameter)
		if !ok {
			errs = append(errs, failure.New(failure.UnknownPipelineSource, loc,
				"output '%s' pipelines unknown parameter '%s'", o.Name, ref.Parameter))
			continue
		}
		a, ok := p.Attribute(ref.Attribute)
		if !ok {
			errs = append(errs, failure.New(failure.UnknownPipelineSource, loc,
				"output '%s' pipelines unknown attribute '%s'", o.Name, ref))
			continue
		}
		if a.HasDefault() {
			errs = append(errs, failure.New(failure.PipelineAttributeHasDefault, loc,
				"pipeline attribute '%s' of output '%s' must not have a default value", ref, o.Name))
		}
		if !a.Type.Equals(o.Type) {
			errs = append(errs, failure.New(failure.IncompatiblePipelineTypes, loc,
				"pipeline attribute '%s' has type %s which does not match output '%s' of type %s",
				ref, typesys.Name(a.Type), o.Name, typesys.Name(o.Type)))
		}
		o.PipelineSources = append(o.PipelineSources, ref)
		a.pipelineOutputs = append(a.pipelineOutputs, o.Name)
	}
	return errs
}
