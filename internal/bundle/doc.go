// Package bundle models the plugin universe of a resolution pass.
//
// A Descriptor describes one bundle: its identity, version, the platform
// version it was built for, its dependencies and the templates it
// contributes. Descriptors are collected in a Registry, which is then
// verified (Verify), ordered (TopSort) and narrowed to what a root bundle
// actually needs (Registry.Closure).
//
// All functions in this package are pure over the registry content and
// deterministic; none of them perform I/O.
package bundle
