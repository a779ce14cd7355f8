package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/gridlink/internal/config"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/fsutil"
	"github.com/vk/gridlink/internal/schema"
)

// referenceRoot is the traversal root of declaration references.
const referenceRoot = "decl"

// LoadConfiguration reads every .hcl file below the given paths and
// translates their declare blocks into the format-agnostic model.
func (l *Loader) LoadConfiguration(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL configuration loader started.", "path_count", len(paths))

	files, err := findConfigurationFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	for _, path := range files {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}

		var root schema.ConfigFile
		if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
		}

		for _, decl := range root.Declarations {
			d, err := translateDeclaration(decl)
			if err != nil {
				return nil, err
			}
			model.Declarations = append(model.Declarations, d)
		}
	}

	logger.Debug("HCL configuration loading complete.", "declarations", model.Len())
	return model, nil
}

// findConfigurationFiles expands directories into their .hcl files. Every
// given path must exist.
func findConfigurationFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing configuration path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to walk configuration directory %s: %w", path, err)
		}
		for _, f := range files {
			add(f)
		}
	}
	return all, nil
}

func translateDeclaration(decl *schema.Declare) (*config.Declaration, error) {
	body, ok := decl.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("declaration '%s': unsupported body type %T", decl.Name, decl.Body)
	}

	d := &config.Declaration{
		Spec:  decl.Spec,
		Name:  decl.Name,
		Range: body.SrcRange.String(),
	}
	loc := fmt.Sprintf("declaration '%s'", decl.Name)

	if attrs := sortedAttributes(body); len(attrs) > 0 {
		return nil, failure.New(failure.UnsupportedAttribute, attrs[0].SrcRange.String(),
			"%s: attribute '%s' must be placed inside a parameter block", loc, attrs[0].Name)
	}

	for _, blk := range body.Blocks {
		if len(blk.Labels) > 0 {
			return nil, failure.New(failure.UnsupportedParameter, blk.DefRange().String(),
				"%s: parameter '%s' must not have labels", loc, blk.Type)
		}
		if len(blk.Body.Blocks) > 0 {
			return nil, failure.New(failure.UnsupportedAttribute, blk.Body.Blocks[0].DefRange().String(),
				"%s: parameter '%s' must not contain nested blocks", loc, blk.Type)
		}

		p := &config.Parameter{Name: blk.Type, Range: blk.DefRange().String()}
		for _, attr := range sortedAttributes(blk.Body) {
			a, err := translateAttribute(attr)
			if err != nil {
				return nil, fmt.Errorf("%s, parameter '%s': %w", loc, blk.Type, err)
			}
			p.Attributes = append(p.Attributes, a)
		}
		d.Parameters = append(d.Parameters, p)
	}
	return d, nil
}

// translateAttribute classifies an attribute as a declaration reference or
// a literal value.
func translateAttribute(attr *hclsyntax.Attribute) (*config.Attribute, error) {
	a := &config.Attribute{Name: attr.Name, Range: attr.SrcRange.String()}

	if trav, diags := hcl.AbsTraversalForExpr(attr.Expr); !diags.HasErrors() && trav.RootName() == referenceRoot {
		ref, err := translateReference(trav)
		if err != nil {
			return nil, failure.Wrap(failure.UndefinedReference, attr.Expr.Range().String(), err,
				"attribute '%s' refers to %s", attr.Name, traversalKey(trav))
		}
		a.Reference = ref
		return a, nil
	}

	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, failure.Wrap(failure.IllegalImmediateValue, attr.Expr.Range().String(), diags,
			"attribute '%s' must be a literal value or a %s reference", attr.Name, referenceRoot)
	}
	a.Value = &val
	return a, nil
}

func translateReference(trav hcl.Traversal) (*config.Reference, error) {
	if len(trav) < 2 || len(trav) > 3 {
		return nil, fmt.Errorf("references must have the form %s.<declaration> or %s.<declaration>.<output>", referenceRoot, referenceRoot)
	}

	names := make([]string, 0, 2)
	for _, step := range trav[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return nil, fmt.Errorf("references may only use attribute access, got %T", step)
		}
		names = append(names, attr.Name)
	}

	ref := &config.Reference{Declaration: names[0]}
	if len(names) == 2 {
		ref.Output = names[1]
	}
	return ref, nil
}

// traversalKey renders a traversal the way it was written, e.g. decl.a.out.
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}
