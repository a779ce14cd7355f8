// Package spec holds the templates that declarations are linked against.
//
// A Specification is the contract of a block or processor: ordered
// parameters (each with a multiplicity and typed attributes, optionally
// defaulted) and ordered outputs. An output may name attributes as its
// pipeline sources; such an output takes the type of whatever value is
// eventually supplied to those attributes.
//
// Specifications are created with a Builder, validated once by Build and
// shared read-only afterwards. A Loader resolves template names against the
// bundles visible to a configuration and caches what its sources return.
package spec
