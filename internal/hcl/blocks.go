package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/schema"
	"github.com/vk/gridlink/internal/spec"
	"github.com/zclconf/go-cty/cty"
)

// BlockSource provides block specifications from the blocks/ directories of
// a set of bundles. Files are parsed when a template is first asked for.
type BlockSource struct {
	bundles map[string]*BundleContext
}

// NewBlockSource indexes the block files of the given descriptors. Only
// descriptors created by Loader.LoadDescriptor contribute blocks.
func NewBlockSource(visible []*bundle.Descriptor) *BlockSource {
	s := &BlockSource{bundles: make(map[string]*BundleContext, len(visible))}
	for _, d := range visible {
		if bc, ok := d.Context().(*BundleContext); ok {
			s.bundles[d.ID] = bc
		}
	}
	return s
}

// Specification implements spec.Source.
func (s *BlockSource) Specification(ctx context.Context, bundleID, name string) (*spec.Specification, bool, error) {
	bc, ok := s.bundles[bundleID]
	if !ok {
		return nil, false, nil
	}
	path, ok := bc.Blocks[name]
	if !ok {
		return nil, false, nil
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing block specification.", "bundle", bundleID, "block", name, "file", path)

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, false, failure.Wrap(failure.InvalidSpecification, path, diags, "failed to parse block file")
	}
	var root schema.BlockFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, false, failure.Wrap(failure.InvalidSpecification, path, diags, "failed to decode block file")
	}
	if len(root.Blocks) != 1 || root.Blocks[0].Name != name {
		return nil, false, failure.New(failure.InvalidSpecification, path,
			"file must define exactly one block named '%s'", name)
	}

	sp, err := translateBlock(ctx, root.Blocks[0])
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	sp.Bundle = bundleID
	return sp, true, nil
}

func translateBlock(ctx context.Context, blk *schema.Block) (*spec.Specification, error) {
	logger := ctxlog.FromContext(ctx)
	b := spec.NewBuilder(blk.Name, spec.KindBlock).Describe(blk.Description)

	for _, p := range blk.Parameters {
		m := spec.Multiplicity{Min: 0, Max: spec.Unbounded}
		if p.Min != nil {
			m.Min = *p.Min
		}
		if p.Max != nil {
			m.Max = *p.Max
		}
		pb := b.Parameter(p.Name, m).Describe(p.Description)

		for _, a := range p.Attributes {
			t := cty.DynamicPseudoType
			if isExprDefined(ctx, a.Type, a.Name) {
				parsed, err := typeExprToCtyType(ctx, a.Type)
				if err != nil {
					return nil, failure.Wrap(failure.InvalidSpecification, a.Type.Range().String(), err,
						"attribute '%s.%s'", p.Name, a.Name)
				}
				t = parsed
			} else {
				logger.Warn("Block attribute has no type, which disables static type checking. Consider declaring one like 'string', 'number', or 'bool'.",
					"block", blk.Name, "parameter", p.Name, "attribute", a.Name)
			}

			if isExprDefined(ctx, a.Default, a.Name) {
				val, diags := a.Default.Value(nil)
				if diags.HasErrors() {
					return nil, failure.Wrap(failure.IllegalDefaultValue, a.Default.Range().String(), diags,
						"invalid default value for attribute '%s.%s'", p.Name, a.Name)
				}
				if !val.IsNull() {
					pb.AttributeWithDefault(a.Name, t, val).DescribeAttribute(a.Description)
					continue
				}
			}
			pb.Attribute(a.Name, t).DescribeAttribute(a.Description)
		}
	}

	for _, o := range blk.Outputs {
		t := cty.DynamicPseudoType
		if isExprDefined(ctx, o.Type, o.Name) {
			parsed, err := typeExprToCtyType(ctx, o.Type)
			if err != nil {
				return nil, failure.Wrap(failure.InvalidSpecification, o.Type.Range().String(), err, "output '%s'", o.Name)
			}
			t = parsed
		}
		b.Output(o.Name, t, o.Pipeline...).DescribeOutput(o.Description)
	}

	return b.Build()
}
