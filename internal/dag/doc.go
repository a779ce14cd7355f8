// Package dag provides a small directed acyclic graph over string ids. The
// declaration layer uses it to order declarations so that every declaration
// comes after the declarations whose outputs it references, and to report
// reference cycles with the path that forms them.
package dag
