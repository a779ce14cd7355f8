// Package pipeline infers the types of pipeline outputs.
//
// The Graph is an arena of attribute and output nodes addressed by index.
// Two kinds of edges connect them:
//
//   - Pipe(a, o): attribute a is a pipeline source of output o. Narrowing a
//     narrows o, and narrowing o flows back to a (and so on to every other
//     output a feeds).
//   - Listen(o, a): attribute a reads output o through a reference.
//     Narrowing o narrows a and every output a is a pipeline source of.
//
// An output starts unconstrained and is frozen the first time a concrete
// type reaches it. Freezing takes the output's subscriber list and clears it,
// so every output propagates at most once per narrowing and cyclic wiring
// terminates.
package pipeline

import (
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// AttrID addresses an attribute node.
type AttrID int

// OutputID addresses an output node.
type OutputID int

type attrNode struct {
	label   string
	typ     cty.Type
	frozen  bool
	outputs []OutputID
}

type outputNode struct {
	label       string
	typ         cty.Type
	frozen      bool
	subscribers []AttrID
}

// Graph holds the pipeline state of one configuration. It is not safe for
// concurrent use.
type Graph struct {
	attrs   []attrNode
	outputs []outputNode
	steps   int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddAttribute adds an attribute node with its declared type. The label is
// only used in error messages.
func (g *Graph) AddAttribute(label string, declared cty.Type) AttrID {
	g.attrs = append(g.attrs, attrNode{label: label, typ: declared})
	return AttrID(len(g.attrs) - 1)
}

// AddOutput adds an unfrozen output node with its declared type.
func (g *Graph) AddOutput(label string, declared cty.Type) OutputID {
	g.outputs = append(g.outputs, outputNode{label: label, typ: declared})
	return OutputID(len(g.outputs) - 1)
}

// Pipe registers a as a pipeline source of o. If o is already frozen, a
// receives o's type right away.
func (g *Graph) Pipe(a AttrID, o OutputID) error {
	g.attrs[a].outputs = append(g.attrs[a].outputs, o)
	return g.subscribe(a, o)
}

// Listen registers a as a reader of o. If o is already frozen, a receives
// o's type right away.
func (g *Graph) Listen(o OutputID, a AttrID) error {
	return g.subscribe(a, o)
}

func (g *Graph) subscribe(a AttrID, o OutputID) error {
	out := &g.outputs[o]
	if out.frozen {
		return g.run(item{attr: true, id: int(a), typ: out.typ})
	}
	out.subscribers = append(out.subscribers, a)
	return nil
}

// Feed tells the graph that attribute a received an immediate value of type
// t. Unconstrained types carry no information and are ignored.
func (g *Graph) Feed(a AttrID, t cty.Type) error {
	if t == cty.DynamicPseudoType {
		return nil
	}
	return g.run(item{attr: true, id: int(a), typ: t})
}

// Freeze narrows output o to t and propagates the result.
func (g *Graph) Freeze(o OutputID, t cty.Type) error {
	return g.run(item{id: int(o), typ: t})
}

// OutputType returns the frozen type of o, or its declared type.
func (g *Graph) OutputType(o OutputID) cty.Type {
	return g.outputs[o].typ
}

// IsFrozen reports whether o has been frozen.
func (g *Graph) IsFrozen(o OutputID) bool {
	return g.outputs[o].frozen
}

// AttributeType returns the current type of a.
func (g *Graph) AttributeType(a AttrID) cty.Type {
	return g.attrs[a].typ
}

// Subscribers returns the attributes still waiting for o to freeze.
func (g *Graph) Subscribers(o OutputID) []AttrID {
	return append([]AttrID(nil), g.outputs[o].subscribers...)
}

// Steps returns how many work items were processed so far.
func (g *Graph) Steps() int {
	return g.steps
}

type item struct {
	attr bool
	id   int
	typ  cty.Type
}

func (g *Graph) run(start item) error {
	queue := []item{start}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		g.steps++

		if it.attr {
			a := &g.attrs[it.id]
			if a.frozen && typesys.Assignable(it.typ, a.typ) {
				continue
			}
			merged, err := typesys.Merge(it.typ, a.typ)
			if err != nil {
				return failure.Wrap(failure.Internal, a.label, err, "pipeline type merge failed")
			}
			a.typ = merged
			a.frozen = true
			for _, o := range a.outputs {
				queue = append(queue, item{id: int(o), typ: merged})
			}
			continue
		}

		o := &g.outputs[it.id]
		if o.frozen && typesys.Assignable(it.typ, o.typ) {
			continue
		}
		merged, err := typesys.Merge(it.typ, o.typ)
		if err != nil {
			return failure.Wrap(failure.Internal, o.label, err, "pipeline type merge failed")
		}
		o.typ = merged
		o.frozen = true
		subscribers := o.subscribers
		o.subscribers = nil
		for _, a := range subscribers {
			queue = append(queue, item{attr: true, id: int(a), typ: merged})
		}
	}
	return nil
}
