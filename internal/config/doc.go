// Package config defines the format-agnostic configuration model: the
// declarations a user wrote, with parameters and attributes exactly as they
// appear in the source documents.
//
// The Loader interface is implemented per document format; the HCL
// implementation lives in the hcl package.
package config
