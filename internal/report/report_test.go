package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/declaration"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/report"
	"github.com/vk/gridlink/internal/resolver"
	"github.com/vk/gridlink/internal/spec"
	"github.com/vk/gridlink/internal/testutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type specTable map[string]*spec.Specification

func (s specTable) Lookup(_ context.Context, name string) (*spec.Specification, error) {
	if sp, ok := s[name]; ok {
		return sp, nil
	}
	return nil, failure.New(failure.UnknownSpecification, "", "no '%s'", name)
}

func fixture(t *testing.T) *resolver.Result {
	t.Helper()
	ctx, _ := testutil.LogContext(t)

	core, err := bundle.NewDescriptor("core", bundle.Version{Major: 1, Minor: 2})
	require.NoError(t, err)
	core.AddProcessor("ident")
	core.AddProcessor("greet")

	ib := spec.NewBuilder("ident", spec.KindProcessor)
	ib.Parameter("in", spec.Exactly(1)).Attribute("value", cty.DynamicPseudoType)
	ib.Output("out", cty.DynamicPseudoType, "in.value")
	ident, err := ib.Build()
	require.NoError(t, err)

	gb := spec.NewBuilder("greet", spec.KindProcessor)
	gb.Parameter("opts", spec.Exactly(1)).AttributeWithDefault("sep", cty.String, cty.StringVal(","))
	gb.Output("text", cty.String)
	greet, err := gb.Build()
	require.NoError(t, err)

	specs := specTable{"ident": ident.InBundle("core"), "greet": greet.InBundle("core")}

	cfg := declaration.NewConfiguration()
	require.NoError(t, cfg.Add(declaration.New("a", "ident",
		declaration.NewParameter("in", declaration.Immediate("value", cty.NumberIntVal(42))))))
	require.NoError(t, cfg.Add(declaration.New("b", "ident",
		declaration.NewParameter("in", declaration.Ref("value", declaration.Reference{Declaration: "a", Output: "out"})))))
	require.NoError(t, cfg.Add(declaration.New("g", "greet")))
	require.NoError(t, cfg.Resolve(ctx, specs))

	return &resolver.Result{
		RunID:          "run-1",
		Order:          []string{"core"},
		Visible:        []*bundle.Descriptor{core},
		Warnings:       []bundle.Warning{{BundleID: "core", Message: "requires core version 2.0, running 1.0"}},
		Specifications: []*spec.Specification{specs["ident"], specs["greet"]},
		Configuration:  cfg,
	}
}

func TestWrite_YAML(t *testing.T) {
	// --- Arrange ---
	res := fixture(t)
	var buf bytes.Buffer

	// --- Act ---
	err := report.Write(&buf, res, report.FormatYAML)

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run_id: run-1\n")

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []any{"core"}, got["load_order"])
	assert.Equal(t, []any{"bundle 'core': requires core version 2.0, running 1.0"}, got["warnings"])

	decls := got["declarations"].([]any)
	require.Len(t, decls, 3)

	a := decls[0].(map[string]any)
	attr := a["parameters"].([]any)[0].(map[string]any)["attributes"].([]any)[0].(map[string]any)
	assert.Equal(t, 42, attr["value"])
	assert.Equal(t, "number", a["outputs"].([]any)[0].(map[string]any)["type"])

	b := decls[1].(map[string]any)
	out := b["outputs"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"name": "out", "type": "number", "frozen": true}, out)

	g := decls[2].(map[string]any)
	param := g["parameters"].([]any)[0].(map[string]any)
	assert.Equal(t, true, param["synthesized"])
	sep := param["attributes"].([]any)[0].(map[string]any)
	assert.Equal(t, ",", sep["value"])
	assert.Equal(t, true, sep["defaulted"])
}

func TestWrite_JSON(t *testing.T) {
	// --- Arrange ---
	res := fixture(t)
	var buf bytes.Buffer

	// --- Act ---
	err := report.Write(&buf, res, report.FormatJSON)

	// --- Assert ---
	require.NoError(t, err)

	var got struct {
		Bundles        []report.Bundle `json:"bundles"`
		Specifications []struct {
			Name    string              `json:"name"`
			Outputs []report.SpecOutput `json:"outputs"`
		} `json:"specifications"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	wantBundles := []report.Bundle{{ID: "core", Version: "1.2", Specifications: []string{"ident", "greet"}}}
	if diff := cmp.Diff(wantBundles, got.Bundles); diff != "" {
		t.Errorf("bundles mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, got.Specifications, 2)
	assert.Equal(t, "core.ident", got.Specifications[0].Name)
	assert.Equal(t, []string{"in.value"}, got.Specifications[0].Outputs[0].Pipeline)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	greet := raw["specifications"].([]any)[1].(map[string]any)
	def := greet["parameters"].([]any)[0].(map[string]any)["attributes"].([]any)[0].(map[string]any)["default"]
	assert.Equal(t, ",", def)

	b := raw["declarations"].([]any)[1].(map[string]any)
	ref := b["parameters"].([]any)[0].(map[string]any)["attributes"].([]any)[0].(map[string]any)
	assert.Equal(t, "decl.a.out", ref["reference"])
	assert.Equal(t, "number", ref["type"])
}

func TestWrite_BundlesOnly(t *testing.T) {
	// --- Arrange ---
	res := fixture(t)
	res.Specifications = nil
	res.Configuration = nil
	var buf bytes.Buffer

	// --- Act ---
	err := report.Write(&buf, res, report.FormatYAML)

	// --- Assert ---
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "bundles")
	assert.NotContains(t, got, "specifications")
	assert.NotContains(t, got, "declarations")
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := report.Write(&bytes.Buffer{}, fixture(t), "toml")
	assert.ErrorContains(t, err, `unsupported report format "toml"`)
}
