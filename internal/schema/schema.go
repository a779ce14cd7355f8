// Package schema holds the gohcl decode targets for gridlink's HCL documents.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Bundle Descriptor Schemas ---

// Dependency is a `dependency` block inside a bundle descriptor.
type Dependency struct {
	BundleID string `hcl:"bundle_id,label"`
	Version  string `hcl:"version"`
}

// Bundle is the `bundle` block of a bundle.hcl file.
type Bundle struct {
	ID           string        `hcl:"id,label"`
	Name         string        `hcl:"name,optional"`
	Provider     string        `hcl:"provider,optional"`
	Description  string        `hcl:"description,optional"`
	Version      string        `hcl:"version"`
	RequiresCore string        `hcl:"requires_core,optional"`
	Processors   []string      `hcl:"processors,optional"`
	Resources    []string      `hcl:"resources,optional"`
	Dependencies []*Dependency `hcl:"dependency,block"`
}

// BundleFile is the top-level structure of a bundle.hcl file.
type BundleFile struct {
	Bundle *Bundle  `hcl:"bundle,block"`
	Remain hcl.Body `hcl:",remain"`
}

// --- Block Specification Schemas ---

// Attribute is an `attribute` block inside a parameter. Type and Default
// are kept as expressions: types are keywords, not values, and defaults are
// converted once the type is known.
type Attribute struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// Parameter is a `parameter` block inside a block specification.
type Parameter struct {
	Name        string       `hcl:"name,label"`
	Description string       `hcl:"description,optional"`
	Min         *int         `hcl:"min,optional"`
	Max         *int         `hcl:"max,optional"`
	Attributes  []*Attribute `hcl:"attribute,block"`
}

// Output is an `output` block inside a block specification.
type Output struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	Pipeline    []string       `hcl:"pipeline,optional"`
}

// Block is a `block` template definition.
type Block struct {
	Name        string       `hcl:"name,label"`
	Description string       `hcl:"description,optional"`
	Parameters  []*Parameter `hcl:"parameter,block"`
	Outputs     []*Output    `hcl:"output,block"`
}

// BlockFile is the top-level structure of a file under a bundle's blocks/
// directory.
type BlockFile struct {
	Blocks []*Block `hcl:"block,block"`
	Remain hcl.Body `hcl:",remain"`
}

// --- Configuration Schemas ---

// Declare is a `declare` block. Its body holds parameter blocks whose names
// depend on the specification, so it is decoded by hand.
type Declare struct {
	Spec string   `hcl:"spec,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// ConfigFile is the top-level structure of a configuration document.
type ConfigFile struct {
	Declarations []*Declare `hcl:"declare,block"`
	Remain       hcl.Body   `hcl:",remain"`
}
