package spec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/zclconf/go-cty/cty"
)

func TestMultiplicity(t *testing.T) {
	assert.True(t, Exactly(1).Contains(1))
	assert.False(t, Exactly(1).Contains(0))
	assert.False(t, Exactly(1).Contains(2))
	assert.True(t, AtLeast(1).Contains(100))
	assert.True(t, Optional().Contains(0))
	assert.Equal(t, "[1,*]", AtLeast(1).String())
	assert.Equal(t, "[0,1]", Optional().String())
}

func TestBuild_PassThroughBlock(t *testing.T) {
	b := NewBuilder("pass", KindBlock).Describe("passes a value through")
	b.Parameter("in", Exactly(1)).Attribute("value", cty.DynamicPseudoType)
	b.Output("out", cty.DynamicPseudoType, "in.value")

	s, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "block", s.Kind.String())
	out, ok := s.Output("out")
	require.True(t, ok)
	assert.True(t, out.IsPipeline())
	assert.Equal(t, []AttributeRef{{Parameter: "in", Attribute: "value"}}, out.PipelineSources)

	in, ok := s.Parameter("in")
	require.True(t, ok)
	value, ok := in.Attribute("value")
	require.True(t, ok)
	assert.Equal(t, []string{"out"}, value.PipelineOutputs())
}

func TestBuild_DefaultIsConverted(t *testing.T) {
	b := NewBuilder("x", KindBlock)
	b.Parameter("in", Exactly(1)).AttributeWithDefault("value", cty.Number, cty.StringVal("5"))

	s, err := b.Build()
	require.NoError(t, err)

	in, _ := s.Parameter("in")
	assert.True(t, in.AllDefaulted())
	value, _ := in.Attribute("value")
	require.True(t, value.HasDefault())
	assert.True(t, value.Default.Type().Equals(cty.Number))
}

func TestBuild_Rejects(t *testing.T) {
	testCases := []struct {
		name  string
		build func(b *Builder)
		kind  failure.Kind
	}{
		{
			name: "duplicate parameter",
			build: func(b *Builder) {
				b.Parameter("p", Exactly(1))
				b.Parameter("p", Exactly(1))
			},
			kind: failure.DuplicateParameterName,
		},
		{
			name: "duplicate attribute",
			build: func(b *Builder) {
				b.Parameter("p", Exactly(1)).Attribute("a", cty.String).Attribute("a", cty.Number)
			},
			kind: failure.DuplicateAttributeName,
		},
		{
			name: "duplicate output",
			build: func(b *Builder) {
				b.Output("o", cty.String).Output("o", cty.String)
			},
			kind: failure.DuplicateOutputName,
		},
		{
			name:  "min above max",
			build: func(b *Builder) { b.Parameter("p", Multiplicity{Min: 2, Max: 1}) },
			kind:  failure.EmptyParameterInterval,
		},
		{
			name:  "max zero",
			build: func(b *Builder) { b.Parameter("p", Multiplicity{Min: 0, Max: 0}) },
			kind:  failure.EmptyParameterInterval,
		},
		{
			name:  "negative min",
			build: func(b *Builder) { b.Parameter("p", Multiplicity{Min: -1, Max: 1}) },
			kind:  failure.EmptyParameterInterval,
		},
		{
			name: "default of wrong type",
			build: func(b *Builder) {
				b.Parameter("p", Exactly(1)).AttributeWithDefault("a", cty.Bool, cty.StringVal("maybe"))
			},
			kind: failure.IllegalDefaultValue,
		},
		{
			name:  "pipeline from unknown parameter",
			build: func(b *Builder) { b.Output("o", cty.DynamicPseudoType, "nope.value") },
			kind:  failure.UnknownPipelineSource,
		},
		{
			name: "pipeline from unknown attribute",
			build: func(b *Builder) {
				b.Parameter("in", Exactly(1)).Attribute("value", cty.String)
				b.Output("o", cty.DynamicPseudoType, "in.other")
			},
			kind: failure.UnknownPipelineSource,
		},
		{
			name:  "malformed pipeline reference",
			build: func(b *Builder) { b.Output("o", cty.DynamicPseudoType, "justone") },
			kind:  failure.UnknownPipelineSource,
		},
		{
			name: "pipeline attribute with default",
			build: func(b *Builder) {
				b.Parameter("in", Exactly(1)).AttributeWithDefault("value", cty.String, cty.StringVal("x"))
				b.Output("o", cty.DynamicPseudoType, "in.value")
			},
			kind: failure.PipelineAttributeHasDefault,
		},
		{
			name: "pipeline types disjoint",
			build: func(b *Builder) {
				b.Parameter("in", Exactly(1)).Attribute("value", cty.String)
				b.Output("o", cty.Number, "in.value")
			},
			kind: failure.IncompatiblePipelineTypes,
		},
		{
			name:  "empty name",
			build: func(b *Builder) {},
			kind:  failure.InvalidSpecification,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name := "s"
			if tc.kind == failure.InvalidSpecification {
				name = ""
			}
			b := NewBuilder(name, KindProcessor)
			tc.build(b)

			s, err := b.Build()
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestBuild_ReportsAllProblems(t *testing.T) {
	b := NewBuilder("s", KindProcessor)
	b.Parameter("p", Multiplicity{Min: 3, Max: 1})
	b.Output("o", cty.String).Output("o", cty.String)

	_, err := b.Build()
	assert.ErrorIs(t, err, failure.EmptyParameterInterval)
	assert.ErrorIs(t, err, failure.DuplicateOutputName)
}

type countingSource struct {
	specs map[string]*Specification
	calls int
}

func (c *countingSource) Specification(_ context.Context, bundleID, name string) (*Specification, bool, error) {
	c.calls++
	s, ok := c.specs[bundleID+"/"+name]
	return s, ok, nil
}

func mustSpec(t *testing.T, name string) *Specification {
	t.Helper()
	b := NewBuilder(name, KindProcessor)
	b.Parameter("input", Exactly(1)).Attribute("value", cty.DynamicPseudoType)
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func descriptor(t *testing.T, id string, templates ...string) *bundle.Descriptor {
	t.Helper()
	d, err := bundle.NewDescriptor(id, bundle.Version{Major: 1})
	require.NoError(t, err)
	for _, tmpl := range templates {
		d.AddSpecification(tmpl)
	}
	return d
}

func TestLoader_Lookup(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	src := &countingSource{specs: map[string]*Specification{
		"gridlink.commons/identity": mustSpec(t, "identity"),
		"gridlink.commons/print":    mustSpec(t, "print"),
		"gridlink.text/print":       mustSpec(t, "print"),
	}}

	visible := []*bundle.Descriptor{
		descriptor(t, "gridlink.commons", "identity", "print"),
		descriptor(t, "gridlink.text", "print", "orphan"),
	}
	loader, err := NewLoader(visible, 0, src)
	require.NoError(t, err)

	t.Run("unqualified unique name", func(t *testing.T) {
		s, err := loader.Lookup(ctx, "identity")
		require.NoError(t, err)
		assert.Equal(t, "gridlink.commons", s.Bundle)
		assert.Equal(t, "gridlink.commons.identity", s.QualifiedName())
	})

	t.Run("second lookup hits the cache", func(t *testing.T) {
		before := src.calls
		_, err := loader.Lookup(ctx, "gridlink.commons.identity")
		require.NoError(t, err)
		assert.Equal(t, before, src.calls)
	})

	t.Run("ambiguous name", func(t *testing.T) {
		_, err := loader.Lookup(ctx, "print")
		assert.ErrorIs(t, err, failure.AmbiguousSpecification)
		assert.ErrorContains(t, err, "gridlink.commons, gridlink.text")
	})

	t.Run("qualified name disambiguates", func(t *testing.T) {
		s, err := loader.Lookup(ctx, "gridlink.text.print")
		require.NoError(t, err)
		assert.Equal(t, "gridlink.text", s.Bundle)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := loader.Lookup(ctx, "nothing")
		assert.ErrorIs(t, err, failure.UnknownSpecification)
	})

	t.Run("qualified name of template the bundle does not list", func(t *testing.T) {
		_, err := loader.Lookup(ctx, "gridlink.text.identity")
		assert.ErrorIs(t, err, failure.UnknownSpecification)
	})

	t.Run("listed template without a source", func(t *testing.T) {
		_, err := loader.Lookup(ctx, "orphan")
		assert.ErrorIs(t, err, failure.UnknownSpecification)
		assert.ErrorContains(t, err, "no source provides it")
	})
}

func TestLoader_AllFollowsLoadOrder(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	src := &countingSource{specs: map[string]*Specification{
		"b/second": mustSpec(t, "second"),
		"a/first":  mustSpec(t, "first"),
	}}
	loader, err := NewLoader([]*bundle.Descriptor{descriptor(t, "b", "second"), descriptor(t, "a", "first")}, 4, src)
	require.NoError(t, err)

	specs, err := loader.All(ctx)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "b.second", specs[0].QualifiedName())
	assert.Equal(t, "a.first", specs[1].QualifiedName())
}

// freshSource builds a new Specification on every call.
type freshSource struct {
	calls int
}

func (f *freshSource) Specification(_ context.Context, _, name string) (*Specification, bool, error) {
	f.calls++
	s, err := NewBuilder(name, KindProcessor).Build()
	return s, err == nil, err
}

func TestLoader_SharesSpecificationsBeyondCacheSize(t *testing.T) {
	// --- Arrange ---
	ctx := ctxlog.Discard(context.Background())
	src := &freshSource{}
	loader, err := NewLoader([]*bundle.Descriptor{descriptor(t, "a", "x", "y", "z")}, 1, src)
	require.NoError(t, err)

	// --- Act ---
	first, err := loader.Lookup(ctx, "x")
	require.NoError(t, err)
	_, err = loader.Lookup(ctx, "y")
	require.NoError(t, err)
	_, err = loader.Lookup(ctx, "a.z")
	require.NoError(t, err)
	again, err := loader.Lookup(ctx, "x")
	require.NoError(t, err)
	all, err := loader.All(ctx)
	require.NoError(t, err)

	// --- Assert ---
	assert.Same(t, first, again)
	require.Len(t, all, 3)
	assert.Same(t, first, all[0])
	assert.Equal(t, 3, src.calls, "every template is built exactly once")
}
