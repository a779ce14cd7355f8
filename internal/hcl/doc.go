// Package hcl reads gridlink's HCL documents: bundle descriptors
// (bundle.hcl), block specifications (blocks/*.hcl) and configuration
// documents (declare blocks). It translates them into the bundle, spec and
// config models.
package hcl
