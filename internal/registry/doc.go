// Package registry provides the central "glue" for compiled bundles.
//
// A compiled bundle is a Go Module that registers factories for the
// processor specifications its bundle descriptor lists. The Registry serves
// those factories as a spec.Source and, during startup, is validated against
// the loaded descriptors so that Go code and descriptors stay in sync.
package registry
