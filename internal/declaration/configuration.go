package declaration

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/dag"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/pipeline"
	"github.com/vk/gridlink/internal/spec"
	"github.com/vk/gridlink/internal/typesys"
)

// SpecLookup resolves a specification name as written in a configuration.
type SpecLookup interface {
	Lookup(ctx context.Context, name string) (*spec.Specification, error)
}

// Configuration is a set of uniquely named declarations sharing one pipeline
// graph.
type Configuration struct {
	decls  []*Declaration
	byName map[string]*Declaration
	graph  *pipeline.Graph
	order  []*Declaration
}

// NewConfiguration returns an empty configuration.
func NewConfiguration() *Configuration {
	return &Configuration{
		byName: make(map[string]*Declaration),
		graph:  pipeline.New(),
	}
}

// Add appends a declaration. Names must be unique.
func (c *Configuration) Add(d *Declaration) error {
	if _, dup := c.byName[d.Name]; dup {
		return failure.New(failure.DuplicateDeclarationName, d.location(), "declaration '%s' is defined more than once", d.Name)
	}
	c.byName[d.Name] = d
	c.decls = append(c.decls, d)
	return nil
}

// Declarations returns the declarations in the order they were added.
func (c *Configuration) Declarations() []*Declaration {
	return append([]*Declaration(nil), c.decls...)
}

// Declaration looks up a declaration by name.
func (c *Configuration) Declaration(name string) (*Declaration, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Graph returns the pipeline graph shared by all declarations.
func (c *Configuration) Graph() *pipeline.Graph {
	return c.graph
}

// Order returns the declarations so that every declaration follows the ones
// it references. It is empty until Resolve succeeds.
func (c *Configuration) Order() []*Declaration {
	return append([]*Declaration(nil), c.order...)
}

// Resolve links every declaration against its specification, resolves
// references between declarations, orders them and wires references into
// the pipeline graph in that order. Resolve may be called once.
func (c *Configuration) Resolve(ctx context.Context, lookup SpecLookup) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving configuration.", "declarations", len(c.decls))

	if err := c.link(ctx, lookup); err != nil {
		return err
	}

	refs, g, err := c.collectReferences()
	if err != nil {
		return err
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return failure.Wrap(failure.CyclicDeclarations, "", err, "declarations reference each other")
		}
		return failure.Wrap(failure.Internal, "", err, "failed to order declarations")
	}

	linked := make([]*Declaration, 0, len(order))
	for _, name := range order {
		for _, r := range refs[name] {
			if err := c.wire(r); err != nil {
				return err
			}
		}
		linked = append(linked, c.byName[name])
	}
	c.order = linked

	logger.Debug("Configuration resolved.", "declarations", len(c.order), "pipelineSteps", c.graph.Steps())
	return nil
}

func (c *Configuration) link(ctx context.Context, lookup SpecLookup) error {
	var errs []error
	for _, d := range c.decls {
		s, err := lookup.Lookup(ctx, d.SpecName)
		if err != nil {
			kind, ok := failure.KindOf(err)
			if !ok {
				kind = failure.UnknownSpecification
			}
			errs = append(errs, failure.Wrap(kind, d.location(), err, "cannot resolve '%s'", d.SpecName))
			continue
		}
		if err := d.Link(ctx, c.graph, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type boundRef struct {
	attr *Attribute
	loc  string
	src  *Output
}

// collectReferences resolves every reference to an output and builds the
// declaration dependency graph.
func (c *Configuration) collectReferences() (map[string][]boundRef, *dag.Graph, error) {
	g := dag.New()
	for _, d := range c.decls {
		g.AddNode(d.Name)
	}

	refs := make(map[string][]boundRef)
	var errs []error
	for _, d := range c.decls {
		for _, p := range d.Parameters {
			for _, a := range p.Attributes {
				ref, ok := a.Reference()
				if !ok {
					continue
				}
				loc := fmt.Sprintf("%s, parameter '%s', attribute '%s'", d.location(), p.Name, a.Name)
				src, err := c.resolveReference(d, ref, loc)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if err := g.AddEdge(src.decl.Name, d.Name); err != nil {
					errs = append(errs, failure.Wrap(failure.Internal, loc, err, "failed to record reference"))
					continue
				}
				refs[d.Name] = append(refs[d.Name], boundRef{attr: a, loc: loc, src: src})
			}
		}
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return refs, g, nil
}

func (c *Configuration) resolveReference(d *Declaration, ref Reference, loc string) (*Output, error) {
	target, ok := c.byName[ref.Declaration]
	if !ok {
		return nil, failure.New(failure.UndefinedReference, loc, "%s: no declaration named '%s'", ref, ref.Declaration)
	}
	if target == d {
		return nil, failure.New(failure.CyclicDeclarations, loc, "%s: declaration refers to itself", ref)
	}

	if ref.Output == "" {
		if len(target.Outputs) != 1 {
			return nil, failure.New(failure.UndefinedReference, loc,
				"%s: declaration has %d outputs, name one explicitly", ref, len(target.Outputs))
		}
		return target.Outputs[0], nil
	}
	o, ok := target.Output(ref.Output)
	if !ok {
		return nil, failure.New(failure.UndefinedReference, loc, "%s: declaration has no output '%s'", ref, ref.Output)
	}
	return o, nil
}

func (c *Configuration) wire(r boundRef) error {
	if !typesys.Mergeable(r.attr.Type(), r.src.Type()) {
		return failure.New(failure.TypeMismatch, r.loc, "output '%s' of '%s' has type %s, attribute expects %s",
			r.src.Name, r.src.decl.Name, typesys.Name(r.src.Type()), typesys.Name(r.attr.Type()))
	}
	r.attr.source = r.src
	return c.graph.Listen(r.src.node, r.attr.node)
}
