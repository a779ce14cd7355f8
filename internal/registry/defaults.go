package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/gridlink/internal/spec"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DefaultAttributes adds one defaulted attribute per cty-tagged field of the
// struct v, in name order. The field values become the defaults.
func DefaultAttributes(pb *spec.ParameterBuilder, v any) error {
	t, err := gocty.ImpliedType(v)
	if err != nil {
		return fmt.Errorf("failed to infer attribute types from %T: %w", v, err)
	}
	if !t.IsObjectType() {
		return fmt.Errorf("defaults must be a struct with cty tags, got %T", v)
	}
	val, err := gocty.ToCtyValue(v, t)
	if err != nil {
		return fmt.Errorf("failed to convert defaults from %T: %w", v, err)
	}

	for _, name := range slices.Sorted(maps.Keys(t.AttributeTypes())) {
		pb.AttributeWithDefault(name, t.AttributeType(name), val.GetAttr(name))
	}
	return nil
}
