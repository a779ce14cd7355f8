package declaration

import (
	"context"
	"fmt"

	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/pipeline"
	"github.com/vk/gridlink/internal/spec"
	"github.com/vk/gridlink/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// Link matches d against s and registers d's pipeline wiring in g.
//
// Parameters are grouped by name and checked against their multiplicity;
// attributes are matched by name, defaulted where possible and put into
// specification order. A parameter group that is missing entirely while
// every one of its attributes has a default gets one synthesized
// occurrence. Immediate values are converted to the declared attribute type
// and fed into the pipeline graph.
//
// Link may only be called once per declaration, successful or not.
func (d *Declaration) Link(ctx context.Context, g *pipeline.Graph, s *spec.Specification) error {
	if d.linked {
		panic(fmt.Sprintf("declaration '%s' may only be linked once", d.Name))
	}
	d.linked = true
	d.spec = s
	d.graph = g

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Linking declaration.", "declaration", d.Name, "specification", s.QualifiedName())

	outputs := make(map[string]*Output, len(s.Outputs))
	d.Outputs = make([]*Output, 0, len(s.Outputs))
	for _, so := range s.Outputs {
		o := &Output{Name: so.Name, spec: so, decl: d, graph: g}
		o.node = g.AddOutput(o.location(), so.Type)
		outputs[so.Name] = o
		d.Outputs = append(d.Outputs, o)
	}

	for _, p := range d.Parameters {
		if _, ok := s.Parameter(p.Name); !ok {
			return failure.New(failure.UnsupportedParameter, d.location(),
				"parameter '%s' is not supported by '%s'", p.Name, s.QualifiedName())
		}
	}

	canonical := make([]*Parameter, 0, len(d.Parameters))
	for _, sp := range s.Parameters {
		group := d.Occurrences(sp.Name)
		if len(group) == 0 && sp.Multiplicity.Min > 0 && len(sp.Attributes) > 0 && sp.AllDefaulted() {
			group = []*Parameter{{Name: sp.Name, synthesized: true}}
		}

		if n := len(group); n < sp.Multiplicity.Min {
			return failure.New(failure.ParameterOccursNotOftenEnough, d.location(),
				"too few occurrences of parameter '%s' in '%s': got %d, allowed %s",
				sp.Name, s.QualifiedName(), n, sp.Multiplicity)
		} else if !sp.Multiplicity.Contains(n) {
			return failure.New(failure.ParameterOccursTooOften, d.location(),
				"too many occurrences of parameter '%s' in '%s': got %d, allowed %s",
				sp.Name, s.QualifiedName(), n, sp.Multiplicity)
		}

		for _, p := range group {
			if err := d.linkParameter(p, sp, outputs); err != nil {
				return err
			}
			canonical = append(canonical, p)
		}
	}
	d.Parameters = canonical

	logger.Debug("Declaration linked.", "declaration", d.Name, "parameters", len(canonical), "outputs", len(d.Outputs))
	return nil
}

func (d *Declaration) linkParameter(p *Parameter, sp *spec.Parameter, outputs map[string]*Output) error {
	p.spec = sp
	loc := fmt.Sprintf("%s, parameter '%s'", d.location(), p.Name)

	known := make(map[string]*Attribute, len(p.Attributes))
	for _, a := range p.Attributes {
		if _, dup := known[a.Name]; dup {
			return failure.New(failure.DuplicateAttributeName, loc, "attribute '%s' given twice", a.Name)
		}
		known[a.Name] = a
	}

	linked := make([]*Attribute, 0, len(sp.Attributes))
	for _, sa := range sp.Attributes {
		a, ok := known[sa.Name]
		switch {
		case ok:
			delete(known, sa.Name)
		case sa.HasDefault():
			a = Immediate(sa.Name, *sa.Default)
			a.defaulted = true
		default:
			return failure.New(failure.MissingAttribute, loc, "missing required attribute '%s'", sa.Name)
		}

		if err := d.linkAttribute(loc, a, sa, outputs); err != nil {
			return err
		}
		linked = append(linked, a)
	}

	for _, a := range p.Attributes {
		if _, left := known[a.Name]; left {
			return failure.New(failure.UnsupportedAttribute, loc, "attribute '%s' is not supported", a.Name)
		}
	}

	p.Attributes = linked
	return nil
}

func (d *Declaration) linkAttribute(paramLoc string, a *Attribute, sa *spec.Attribute, outputs map[string]*Output) error {
	loc := fmt.Sprintf("%s, attribute '%s'", paramLoc, a.Name)
	a.spec = sa
	a.graph = d.graph

	if a.value != nil && a.ref != nil {
		panic(loc + ": attribute holds both a value and a reference")
	}

	var fed cty.Type
	if a.value != nil {
		converted, err := typesys.ConvertValue(*a.value, sa.Type)
		if err != nil {
			return failure.Wrap(failure.IllegalImmediateValue, loc, err,
				"value of type %s is not a valid %s", typesys.Name(a.value.Type()), typesys.Name(sa.Type))
		}
		a.value = &converted
		fed = converted.Type()
	}

	a.node = d.graph.AddAttribute(loc, sa.Type)
	for _, name := range sa.PipelineOutputs() {
		o := outputs[name]
		if fed != cty.NilType {
			if err := checkPipelineCompatible(loc, fed, o); err != nil {
				return err
			}
		}
		if err := d.graph.Pipe(a.node, o.node); err != nil {
			return err
		}
	}

	if fed != cty.NilType {
		return d.graph.Feed(a.node, fed)
	}
	return nil
}

// checkPipelineCompatible rejects a value whose type contradicts what an
// output already froze to through another source.
func checkPipelineCompatible(loc string, t cty.Type, o *Output) error {
	if !typesys.Mergeable(t, o.Type()) {
		return failure.New(failure.TypeMismatch, loc,
			"%s does not fit output '%s', already inferred as %s",
			typesys.Name(t), o.Name, typesys.Name(o.Type()))
	}
	return nil
}
