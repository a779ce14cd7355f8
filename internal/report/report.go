// Package report renders the result of a resolution pass for humans and
// tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/gridlink/internal/declaration"
	"github.com/vk/gridlink/internal/resolver"
	"github.com/vk/gridlink/internal/spec"
	"github.com/vk/gridlink/internal/typesys"
	ctyyaml "github.com/zclconf/go-cty-yaml"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Supported output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Document is the rendered form of a resolver.Result.
type Document struct {
	RunID          string          `yaml:"run_id" json:"run_id"`
	LoadOrder      []string        `yaml:"load_order" json:"load_order"`
	Bundles        []Bundle        `yaml:"bundles" json:"bundles"`
	Warnings       []string        `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Specifications []Specification `yaml:"specifications,omitempty" json:"specifications,omitempty"`
	Declarations   []Declaration   `yaml:"declarations,omitempty" json:"declarations,omitempty"`
}

// Bundle is a visible bundle.
type Bundle struct {
	ID             string   `yaml:"id" json:"id"`
	Version        string   `yaml:"version" json:"version"`
	Location       string   `yaml:"location,omitempty" json:"location,omitempty"`
	Dependencies   []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Specifications []string `yaml:"specifications,omitempty" json:"specifications,omitempty"`
}

type Specification struct {
	Name       string          `yaml:"name" json:"name"`
	Kind       string          `yaml:"kind" json:"kind"`
	Parameters []SpecParameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Outputs    []SpecOutput    `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

type SpecParameter struct {
	Name         string          `yaml:"name" json:"name"`
	Multiplicity string          `yaml:"multiplicity" json:"multiplicity"`
	Attributes   []SpecAttribute `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

type SpecAttribute struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Default *Value `yaml:"default,omitempty" json:"default,omitempty"`
}

type SpecOutput struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`
	Pipeline []string `yaml:"pipeline,omitempty" json:"pipeline,omitempty"`
}

// Declaration is a linked declaration with its canonical parameters.
type Declaration struct {
	Name          string      `yaml:"name" json:"name"`
	Specification string      `yaml:"specification" json:"specification"`
	Parameters    []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Outputs       []Output    `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

type Parameter struct {
	Name        string      `yaml:"name" json:"name"`
	Synthesized bool        `yaml:"synthesized,omitempty" json:"synthesized,omitempty"`
	Attributes  []Attribute `yaml:"attributes" json:"attributes"`
}

type Attribute struct {
	Name      string `yaml:"name" json:"name"`
	Type      string `yaml:"type" json:"type"`
	Value     *Value `yaml:"value,omitempty" json:"value,omitempty"`
	Reference string `yaml:"reference,omitempty" json:"reference,omitempty"`
	Defaulted bool   `yaml:"defaulted,omitempty" json:"defaulted,omitempty"`
}

type Output struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Frozen bool   `yaml:"frozen,omitempty" json:"frozen,omitempty"`
}

// Value renders a cty value natively in either format.
type Value struct {
	v cty.Value
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	raw, err := ctyyaml.Marshal(v.v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value as YAML: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to re-read encoded value: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return ctyjson.Marshal(v.v, v.v.Type())
}

// Build assembles the document for res.
func Build(res *resolver.Result) *Document {
	doc := &Document{RunID: res.RunID, LoadOrder: res.Order}

	for _, d := range res.Visible {
		b := Bundle{
			ID:             d.ID,
			Version:        d.Version.String(),
			Location:       d.Location,
			Specifications: d.Specifications(),
		}
		for _, dep := range d.Dependencies() {
			b.Dependencies = append(b.Dependencies, dep.String())
		}
		doc.Bundles = append(doc.Bundles, b)
	}
	for _, w := range res.Warnings {
		doc.Warnings = append(doc.Warnings, w.String())
	}
	for _, s := range res.Specifications {
		doc.Specifications = append(doc.Specifications, buildSpecification(s))
	}
	if res.Configuration != nil {
		for _, d := range res.Configuration.Order() {
			doc.Declarations = append(doc.Declarations, buildDeclaration(d))
		}
	}
	return doc
}

func buildSpecification(s *spec.Specification) Specification {
	out := Specification{Name: s.QualifiedName(), Kind: s.Kind.String()}
	for _, p := range s.Parameters {
		sp := SpecParameter{Name: p.Name, Multiplicity: p.Multiplicity.String()}
		for _, a := range p.Attributes {
			sa := SpecAttribute{Name: a.Name, Type: typesys.Name(a.Type)}
			if a.HasDefault() {
				sa.Default = &Value{*a.Default}
			}
			sp.Attributes = append(sp.Attributes, sa)
		}
		out.Parameters = append(out.Parameters, sp)
	}
	for _, o := range s.Outputs {
		so := SpecOutput{Name: o.Name, Type: typesys.Name(o.Type)}
		for _, ref := range o.PipelineSources {
			so.Pipeline = append(so.Pipeline, ref.String())
		}
		out.Outputs = append(out.Outputs, so)
	}
	return out
}

func buildDeclaration(d *declaration.Declaration) Declaration {
	out := Declaration{Name: d.Name, Specification: d.Spec().QualifiedName()}
	for _, p := range d.Parameters {
		rp := Parameter{Name: p.Name, Synthesized: p.Synthesized()}
		for _, a := range p.Attributes {
			ra := Attribute{Name: a.Name, Type: typesys.Name(a.Type()), Defaulted: a.Defaulted()}
			if v, ok := a.Value(); ok {
				ra.Value = &Value{v}
			}
			if ref, ok := a.Reference(); ok {
				ra.Reference = ref.String()
			}
			rp.Attributes = append(rp.Attributes, ra)
		}
		out.Parameters = append(out.Parameters, rp)
	}
	for _, o := range d.Outputs {
		out.Outputs = append(out.Outputs, Output{Name: o.Name, Type: typesys.Name(o.Type()), Frozen: o.Frozen()})
	}
	return out
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *resolver.Result, format string) error {
	doc := Build(res)
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}
