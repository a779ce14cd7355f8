// Package resolver runs one resolution pass: it loads the bundle
// descriptors of the configured collections, registers and verifies them,
// computes the load order and the closure of the root bundle, loads the
// visible specifications and finally links a configuration against them.
//
// A pass owns all of its state. Nothing is shared between two calls.
package resolver
