package declaration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/pipeline"
	"github.com/vk/gridlink/internal/spec"
	"github.com/zclconf/go-cty/cty"
)

type specTable map[string]*spec.Specification

func (st specTable) Lookup(_ context.Context, name string) (*spec.Specification, error) {
	s, ok := st[name]
	if !ok {
		return nil, failure.New(failure.UnknownSpecification, "", "no visible bundle contributes '%s'", name)
	}
	return s, nil
}

func mustBuild(t *testing.T, b *spec.Builder) *spec.Specification {
	t.Helper()
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

// identity passes its single input through: in.value -> out.
func identitySpec(t *testing.T) *spec.Specification {
	b := spec.NewBuilder("identity", spec.KindProcessor)
	b.Parameter("in", spec.Exactly(1)).Attribute("value", cty.DynamicPseudoType)
	b.Output("out", cty.DynamicPseudoType, "in.value")
	return mustBuild(t, b)
}

func printSpec(t *testing.T) *spec.Specification {
	b := spec.NewBuilder("print", spec.KindProcessor)
	b.Parameter("in", spec.AtLeast(1)).Attribute("value", cty.DynamicPseudoType)
	return mustBuild(t, b)
}

func addSpec(t *testing.T) *spec.Specification {
	b := spec.NewBuilder("add", spec.KindProcessor)
	b.Parameter("in", spec.Exactly(1)).AttributeWithDefault("value", cty.Number, cty.StringVal("5"))
	b.Output("sum", cty.Number)
	return mustBuild(t, b)
}

func joinSpec(t *testing.T) *spec.Specification {
	b := spec.NewBuilder("join", spec.KindProcessor)
	b.Parameter("part", spec.Multiplicity{Min: 1, Max: 3}).Attribute("text", cty.String)
	b.Parameter("options", spec.Optional()).
		AttributeWithDefault("separator", cty.String, cty.StringVal(",")).
		Attribute("trim", cty.Bool)
	b.Output("out", cty.String)
	return mustBuild(t, b)
}

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func kindOf(t *testing.T, err error) failure.Kind {
	t.Helper()
	require.Error(t, err)
	kind, ok := failure.KindOf(err)
	require.True(t, ok, "expected a failure.Error, got %v", err)
	return kind
}

func value(n int) *Attribute {
	return Immediate("value", cty.NumberIntVal(int64(n)))
}

func TestLink_SynthesizesDefaults(t *testing.T) {
	// --- Arrange ---
	d := New("a", "add")

	// --- Act ---
	err := d.Link(testContext(), pipeline.New(), addSpec(t))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, d.Parameters, 1)
	p := d.Parameters[0]
	assert.True(t, p.Synthesized())
	require.Len(t, p.Attributes, 1)
	a := p.Attributes[0]
	assert.True(t, a.Defaulted())
	v, ok := a.Value()
	require.True(t, ok)
	assert.True(t, v.Type().Equals(cty.Number))
	assert.True(t, v.Equals(cty.NumberIntVal(5)).True())
}

func TestLink_DefaultsMissingAttributeInGivenOccurrence(t *testing.T) {
	// --- Arrange ---
	d := New("j", "join",
		NewParameter("part", Immediate("text", cty.StringVal("x"))),
		NewParameter("options", Immediate("trim", cty.True)),
	)

	// --- Act ---
	err := d.Link(testContext(), pipeline.New(), joinSpec(t))

	// --- Assert ---
	require.NoError(t, err)
	opts := d.Occurrences("options")
	require.Len(t, opts, 1)
	require.Len(t, opts[0].Attributes, 2)
	assert.Equal(t, "separator", opts[0].Attributes[0].Name, "attributes are reordered into specification order")
	assert.True(t, opts[0].Attributes[0].Defaulted())
	assert.Equal(t, "trim", opts[0].Attributes[1].Name)
	assert.False(t, opts[0].Attributes[1].Defaulted())
}

func TestLink_ReordersParametersIntoSpecificationOrder(t *testing.T) {
	d := New("j", "join",
		NewParameter("options", Immediate("trim", cty.False)),
		NewParameter("part", Immediate("text", cty.StringVal("b"))),
		NewParameter("part", Immediate("text", cty.StringVal("a"))),
	)

	require.NoError(t, d.Link(testContext(), pipeline.New(), joinSpec(t)))

	var names []string
	for _, p := range d.Parameters {
		v, _ := p.Attributes[len(p.Attributes)-1].Value()
		names = append(names, fmt.Sprintf("%s=%s", p.Name, v.GoString()))
	}
	assert.Equal(t, []string{
		`part=cty.StringVal("b")`,
		`part=cty.StringVal("a")`,
		`options=cty.False`,
	}, names)
}

func TestLink_DoesNotSynthesizeParameterWithoutAttributes(t *testing.T) {
	// --- Arrange ---
	b := spec.NewBuilder("marker", spec.KindProcessor)
	b.Parameter("enable", spec.Exactly(1))
	s := mustBuild(t, b)
	d := New("m", "marker")

	// --- Act ---
	err := d.Link(testContext(), pipeline.New(), s)

	// --- Assert ---
	assert.Equal(t, failure.ParameterOccursNotOftenEnough, kindOf(t, err))
	assert.ErrorContains(t, err, "parameter 'enable'")
}

func TestLink_Multiplicity(t *testing.T) {
	s := joinSpec(t)
	part := func() *Parameter { return NewParameter("part", Immediate("text", cty.StringVal("x"))) }

	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d occurrences", n), func(t *testing.T) {
			d := New("j", "join")
			for i := 0; i < n; i++ {
				d.AddParameter(part())
			}

			err := d.Link(testContext(), pipeline.New(), s)

			switch {
			case n < 1:
				assert.Equal(t, failure.ParameterOccursNotOftenEnough, kindOf(t, err))
			case n > 3:
				assert.Equal(t, failure.ParameterOccursTooOften, kindOf(t, err))
			default:
				require.NoError(t, err)
				assert.Len(t, d.Occurrences("part"), n)
			}
		})
	}
}

func TestLink_Errors(t *testing.T) {
	testCases := []struct {
		name string
		decl *Declaration
		want failure.Kind
	}{
		{
			name: "unsupported parameter",
			decl: New("j", "join", NewParameter("part", Immediate("text", cty.StringVal("x"))), NewParameter("bogus")),
			want: failure.UnsupportedParameter,
		},
		{
			name: "unsupported attribute",
			decl: New("j", "join", NewParameter("part", Immediate("text", cty.StringVal("x")), Immediate("color", cty.StringVal("red")))),
			want: failure.UnsupportedAttribute,
		},
		{
			name: "missing attribute",
			decl: New("j", "join", NewParameter("part")),
			want: failure.MissingAttribute,
		},
		{
			name: "missing attribute without default in optional group",
			decl: New("j", "join", NewParameter("part", Immediate("text", cty.StringVal("x"))), NewParameter("options")),
			want: failure.MissingAttribute,
		},
		{
			name: "duplicate attribute",
			decl: New("j", "join", NewParameter("part", Immediate("text", cty.StringVal("x")), Immediate("text", cty.StringVal("y")))),
			want: failure.DuplicateAttributeName,
		},
		{
			name: "immediate not convertible",
			decl: New("j", "join", NewParameter("part", Immediate("text", cty.ListValEmpty(cty.String)))),
			want: failure.IllegalImmediateValue,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.decl.Link(testContext(), pipeline.New(), joinSpec(t))
			assert.Equal(t, tc.want, kindOf(t, err))
			assert.ErrorContains(t, err, "declaration 'j'")
		})
	}
}

func TestLink_ConvertsImmediates(t *testing.T) {
	d := New("j", "join", NewParameter("part", Immediate("text", cty.NumberIntVal(7))))

	require.NoError(t, d.Link(testContext(), pipeline.New(), joinSpec(t)))

	v, ok := d.Parameters[0].Attributes[0].Value()
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.StringVal("7")))
}

func TestLink_PanicsWhenLinkedTwice(t *testing.T) {
	d := New("a", "add")
	g := pipeline.New()
	require.NoError(t, d.Link(testContext(), g, addSpec(t)))

	assert.PanicsWithValue(t, "declaration 'a' may only be linked once", func() {
		_ = d.Link(testContext(), g, addSpec(t))
	})
}

func TestLink_PanicsWhenLinkedTwiceAfterFailure(t *testing.T) {
	d := New("j", "join")
	g := pipeline.New()
	require.Error(t, d.Link(testContext(), g, joinSpec(t)))

	assert.Panics(t, func() { _ = d.Link(testContext(), g, joinSpec(t)) })
}

func TestLink_ImmediateFreezesPipelineOutput(t *testing.T) {
	d := New("a", "identity", NewParameter("in", value(42)))

	require.NoError(t, d.Link(testContext(), pipeline.New(), identitySpec(t)))

	out, ok := d.Output("out")
	require.True(t, ok)
	assert.True(t, out.Frozen())
	assert.True(t, out.Type().Equals(cty.Number))
}

func newConfiguration(t *testing.T, decls ...*Declaration) *Configuration {
	t.Helper()
	c := NewConfiguration()
	for _, d := range decls {
		require.NoError(t, c.Add(d))
	}
	return c
}

func lookup(t *testing.T) specTable {
	return specTable{
		"identity": identitySpec(t),
		"print":    printSpec(t),
		"add":      addSpec(t),
		"join":     joinSpec(t),
	}
}

func TestConfiguration_PropagatesThroughReferences(t *testing.T) {
	// --- Arrange ---
	reader := New("reader", "print", NewParameter("in", Ref("value", Reference{Declaration: "writer"})))
	writer := New("writer", "identity", NewParameter("in", value(42)))
	c := newConfiguration(t, reader, writer)

	// --- Act ---
	err := c.Resolve(testContext(), lookup(t))

	// --- Assert ---
	require.NoError(t, err)
	out, _ := writer.Output("out")
	assert.True(t, out.Type().Equals(cty.Number))
	assert.Equal(t, 0, out.Subscribers())

	a := reader.Parameters[0].Attributes[0]
	assert.Same(t, out, a.Source())
	assert.True(t, a.Type().Equals(cty.Number))

	var order []string
	for _, d := range c.Order() {
		order = append(order, d.Name)
	}
	assert.Equal(t, []string{"writer", "reader"}, order)
}

func TestConfiguration_PropagatesAlongChains(t *testing.T) {
	// Declared in reverse so the reference order differs from the data flow.
	c := newConfiguration(t,
		New("sink", "print", NewParameter("in", Ref("value", Reference{Declaration: "mid", Output: "out"}))),
		New("mid", "identity", NewParameter("in", Ref("value", Reference{Declaration: "src"}))),
		New("src", "identity", NewParameter("in", Immediate("value", cty.StringVal("hello")))),
	)

	require.NoError(t, c.Resolve(testContext(), lookup(t)))

	mid, _ := c.Declaration("mid")
	out, _ := mid.Output("out")
	assert.True(t, out.Frozen())
	assert.True(t, out.Type().Equals(cty.String))

	sink, _ := c.Declaration("sink")
	assert.True(t, sink.Parameters[0].Attributes[0].Type().Equals(cty.String))
}

func TestConfiguration_UnfrozenOutputStaysUnconstrained(t *testing.T) {
	c := newConfiguration(t,
		New("mid", "identity", NewParameter("in", Ref("value", Reference{Declaration: "sum"}))),
		New("sum", "add"),
	)

	require.NoError(t, c.Resolve(testContext(), lookup(t)))

	mid, _ := c.Declaration("mid")
	out, _ := mid.Output("out")
	assert.False(t, out.Frozen())
	assert.Equal(t, cty.DynamicPseudoType, out.Type())

	sum, _ := c.Declaration("sum")
	sumOut, _ := sum.Output("sum")
	assert.False(t, sumOut.Frozen())
	assert.Equal(t, 1, sumOut.Subscribers(), "the reader waits for the output to freeze")
}

func TestConfiguration_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		decls []*Declaration
		want  failure.Kind
	}{
		{
			name:  "unknown specification",
			decls: []*Declaration{New("x", "nope")},
			want:  failure.UnknownSpecification,
		},
		{
			name: "undefined declaration",
			decls: []*Declaration{
				New("p", "print", NewParameter("in", Ref("value", Reference{Declaration: "ghost"}))),
			},
			want: failure.UndefinedReference,
		},
		{
			name: "undefined output",
			decls: []*Declaration{
				New("a", "identity", NewParameter("in", value(1))),
				New("p", "print", NewParameter("in", Ref("value", Reference{Declaration: "a", Output: "nope"}))),
			},
			want: failure.UndefinedReference,
		},
		{
			name: "sole output of a declaration without outputs",
			decls: []*Declaration{
				New("q", "print", NewParameter("in", value(1))),
				New("p", "print", NewParameter("in", Ref("value", Reference{Declaration: "q"}))),
			},
			want: failure.UndefinedReference,
		},
		{
			name: "self reference",
			decls: []*Declaration{
				New("a", "identity", NewParameter("in", Ref("value", Reference{Declaration: "a"}))),
			},
			want: failure.CyclicDeclarations,
		},
		{
			name: "reference cycle",
			decls: []*Declaration{
				New("a", "identity", NewParameter("in", Ref("value", Reference{Declaration: "b"}))),
				New("b", "identity", NewParameter("in", Ref("value", Reference{Declaration: "a"}))),
			},
			want: failure.CyclicDeclarations,
		},
		{
			name: "type mismatch",
			decls: []*Declaration{
				New("a", "identity", NewParameter("in", Immediate("value", cty.ListValEmpty(cty.String)))),
				New("j", "join", NewParameter("part", Ref("text", Reference{Declaration: "a"}))),
			},
			want: failure.TypeMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newConfiguration(t, tc.decls...)
			err := c.Resolve(testContext(), lookup(t))
			assert.True(t, errors.Is(err, tc.want), "expected %s, got %v", tc.want, err)
			assert.Empty(t, c.Order())
		})
	}
}

func TestConfiguration_WiringFailureLeavesNoOrder(t *testing.T) {
	// --- Arrange ---
	c := newConfiguration(t,
		New("a", "identity", NewParameter("in", value(1))),
		New("p", "print", NewParameter("in", Ref("value", Reference{Declaration: "a"}))),
		New("list", "identity", NewParameter("in", Immediate("value", cty.ListValEmpty(cty.String)))),
		New("j", "join", NewParameter("part", Ref("text", Reference{Declaration: "list"}))),
	)

	// --- Act ---
	err := c.Resolve(testContext(), lookup(t))

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.TypeMismatch)
	assert.Empty(t, c.Order(), "no declaration may be exposed after a failed resolution")
}

func TestConfiguration_ConflictingPipelineSources(t *testing.T) {
	b := spec.NewBuilder("first", spec.KindProcessor)
	b.Parameter("in", spec.AtLeast(1)).Attribute("value", cty.DynamicPseudoType)
	b.Output("out", cty.DynamicPseudoType, "in.value")
	first := mustBuild(t, b)

	d := New("f", "first",
		NewParameter("in", value(1)),
		NewParameter("in", Immediate("value", cty.ListValEmpty(cty.String))),
	)
	c := newConfiguration(t, d)

	err := c.Resolve(testContext(), specTable{"first": first})

	assert.Equal(t, failure.TypeMismatch, kindOf(t, err))
}

func TestConfiguration_DuplicateName(t *testing.T) {
	c := NewConfiguration()
	require.NoError(t, c.Add(New("a", "add")))

	err := c.Add(New("a", "print"))

	assert.Equal(t, failure.DuplicateDeclarationName, kindOf(t, err))
	assert.Len(t, c.Declarations(), 1)
}

func TestConfiguration_ReportsEveryLinkError(t *testing.T) {
	c := newConfiguration(t,
		New("x", "nope"),
		New("j", "join"),
	)

	err := c.Resolve(testContext(), lookup(t))

	assert.ErrorIs(t, err, failure.UnknownSpecification)
	assert.ErrorIs(t, err, failure.ParameterOccursNotOftenEnough)
}
