// Package typesys implements the two operations the resolution engine needs
// on type descriptors: assignability and merging (intersection).
//
// Types are cty types. cty.DynamicPseudoType ("any") is the unconstrained
// type; it is assignable from everything and merges into whatever it is
// merged with. Structural types are compared element-wise.
package typesys

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Any is the unconstrained type.
var Any = cty.DynamicPseudoType

// Assignable reports whether a value of type from can be used where type to
// is expected without losing the constraint expressed by to. A type is
// assignable from itself and from any narrower type.
func Assignable(to, from cty.Type) bool {
	switch {
	case to == cty.DynamicPseudoType:
		return true
	case from == cty.DynamicPseudoType:
		return false
	case to.IsPrimitiveType() || to.IsCapsuleType():
		return to.Equals(from)
	case to.IsListType() && from.IsListType(),
		to.IsSetType() && from.IsSetType(),
		to.IsMapType() && from.IsMapType():
		return Assignable(to.ElementType(), from.ElementType())
	case to.IsObjectType() && from.IsObjectType():
		toAttrs, fromAttrs := to.AttributeTypes(), from.AttributeTypes()
		if len(toAttrs) != len(fromAttrs) {
			return false
		}
		for name, t := range toAttrs {
			f, ok := fromAttrs[name]
			if !ok || !Assignable(t, f) {
				return false
			}
		}
		return true
	case to.IsTupleType() && from.IsTupleType():
		toElems, fromElems := to.TupleElementTypes(), from.TupleElementTypes()
		if len(toElems) != len(fromElems) {
			return false
		}
		for i := range toElems {
			if !Assignable(toElems[i], fromElems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Merge returns the most general type that satisfies both a and b. It fails
// when the two types are disjoint.
func Merge(a, b cty.Type) (cty.Type, error) {
	switch {
	case a == cty.DynamicPseudoType:
		return b, nil
	case b == cty.DynamicPseudoType:
		return a, nil
	case a.Equals(b):
		return a, nil
	case a.IsListType() && b.IsListType():
		elem, err := Merge(a.ElementType(), b.ElementType())
		if err != nil {
			return cty.NilType, err
		}
		return cty.List(elem), nil
	case a.IsSetType() && b.IsSetType():
		elem, err := Merge(a.ElementType(), b.ElementType())
		if err != nil {
			return cty.NilType, err
		}
		return cty.Set(elem), nil
	case a.IsMapType() && b.IsMapType():
		elem, err := Merge(a.ElementType(), b.ElementType())
		if err != nil {
			return cty.NilType, err
		}
		return cty.Map(elem), nil
	case a.IsObjectType() && b.IsObjectType():
		aAttrs, bAttrs := a.AttributeTypes(), b.AttributeTypes()
		if len(aAttrs) != len(bAttrs) {
			return cty.NilType, disjoint(a, b)
		}
		merged := make(map[string]cty.Type, len(aAttrs))
		for name, at := range aAttrs {
			bt, ok := bAttrs[name]
			if !ok {
				return cty.NilType, disjoint(a, b)
			}
			m, err := Merge(at, bt)
			if err != nil {
				return cty.NilType, fmt.Errorf("attribute %q: %w", name, err)
			}
			merged[name] = m
		}
		return cty.Object(merged), nil
	case a.IsTupleType() && b.IsTupleType():
		aElems, bElems := a.TupleElementTypes(), b.TupleElementTypes()
		if len(aElems) != len(bElems) {
			return cty.NilType, disjoint(a, b)
		}
		merged := make([]cty.Type, len(aElems))
		for i := range aElems {
			m, err := Merge(aElems[i], bElems[i])
			if err != nil {
				return cty.NilType, fmt.Errorf("element %d: %w", i, err)
			}
			merged[i] = m
		}
		return cty.Tuple(merged), nil
	}
	return cty.NilType, disjoint(a, b)
}

// Mergeable reports whether Merge(a, b) would succeed.
func Mergeable(a, b cty.Type) bool {
	_, err := Merge(a, b)
	return err == nil
}

// Concrete reports whether t carries no unconstrained part.
func Concrete(t cty.Type) bool {
	return !t.HasDynamicTypes()
}

// ConvertValue converts v to the type want. Converting to Any returns v
// unchanged.
func ConvertValue(v cty.Value, want cty.Type) (cty.Value, error) {
	if want == cty.DynamicPseudoType {
		return v, nil
	}
	return convert.Convert(v, want)
}

// Name is the user facing name of t.
func Name(t cty.Type) string {
	if t == cty.NilType {
		return "<none>"
	}
	return t.FriendlyName()
}

func disjoint(a, b cty.Type) error {
	return fmt.Errorf("types %s and %s are incompatible", Name(a), Name(b))
}
