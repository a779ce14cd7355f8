// This file contains the logic for parsing HCL type expressions (e.g., `string`,
// `list(number)`) into their corresponding cty.Type objects.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToCtyType converts an HCL type expression into its cty.Type
// equivalent. `any` maps to cty.DynamicPseudoType and may also be used as a
// collection element type.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return cty.NilType, fmt.Errorf("type constructors (list, map, set, object, tuple) require exactly one argument, got %d", len(v.Args))
		}

		switch v.Name {
		case "object":
			return objectTypeExpr(ctx, v.Args[0])
		case "tuple":
			return tupleTypeExpr(ctx, v.Args[0])
		}

		elementType, err := typeExprToCtyType(ctx, v.Args[0])
		if err != nil {
			return cty.NilType, err
		}
		logger.Debug("Parsed collection element type.", "call", v.Name, "type", elementType.FriendlyName())

		switch v.Name {
		case "list":
			return cty.List(elementType), nil
		case "map":
			return cty.Map(elementType), nil
		case "set":
			return cty.Set(elementType), nil
		default:
			return cty.NilType, fmt.Errorf("unknown type constructor function %q", v.Name)
		}

	case *hclsyntax.ScopeTraversalExpr:
		// Primitive type keywords such as `string` or `number`.
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		switch rootName := v.Traversal.RootName(); rootName {
		case "string":
			return cty.String, nil
		case "number":
			return cty.Number, nil
		case "bool":
			return cty.Bool, nil
		case "any":
			return cty.DynamicPseudoType, nil
		default:
			return cty.NilType, fmt.Errorf("unknown primitive type %q", rootName)
		}

	default:
		return cty.NilType, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

// objectTypeExpr parses the argument of object({ key = type, ... }).
func objectTypeExpr(ctx context.Context, arg hcl.Expression) (cty.Type, error) {
	objExpr, ok := arg.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return cty.NilType, fmt.Errorf("the argument to object() must be an object literal like { key = type, ... }, got %T", arg)
	}

	attrTypes := make(map[string]cty.Type, len(objExpr.Items))
	for _, item := range objExpr.Items {
		key := objectTypeKey(item.KeyExpr)
		if key == "" {
			return cty.NilType, fmt.Errorf("invalid key in object type definition: keys must be simple identifiers or quoted strings")
		}
		if _, dup := attrTypes[key]; dup {
			return cty.NilType, fmt.Errorf("duplicate attribute '%s' in object type definition", key)
		}
		valueType, err := typeExprToCtyType(ctx, item.ValueExpr)
		if err != nil {
			return cty.NilType, fmt.Errorf("in object attribute '%s': %w", key, err)
		}
		attrTypes[key] = valueType
	}

	t := cty.Object(attrTypes)
	ctxlog.FromContext(ctx).Debug("Parsed object type.", "type", t.FriendlyName())
	return t, nil
}

func objectTypeKey(expr hclsyntax.Expression) string {
	keyExpr, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return ""
	}
	switch k := keyExpr.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(k.Traversal) == 1 {
			return k.Traversal.RootName()
		}
	case *hclsyntax.TemplateExpr:
		if len(k.Parts) == 1 {
			if lit, isLit := k.Parts[0].(*hclsyntax.LiteralValueExpr); isLit && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString()
			}
		}
	}
	return ""
}

// tupleTypeExpr parses the argument of tuple([type, ...]).
func tupleTypeExpr(ctx context.Context, arg hcl.Expression) (cty.Type, error) {
	tupExpr, ok := arg.(*hclsyntax.TupleConsExpr)
	if !ok {
		return cty.NilType, fmt.Errorf("the argument to tuple() must be a list like [type, ...], got %T", arg)
	}

	elems := make([]cty.Type, 0, len(tupExpr.Exprs))
	for i, e := range tupExpr.Exprs {
		t, err := typeExprToCtyType(ctx, e)
		if err != nil {
			return cty.NilType, fmt.Errorf("in tuple element %d: %w", i, err)
		}
		elems = append(elems, t)
	}
	return cty.Tuple(elems), nil
}
