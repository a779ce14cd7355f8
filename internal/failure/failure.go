// Package failure defines the typed errors produced by a resolution pass.
//
// Every stage (bundle loading, verification, sorting, specification
// building, linking, pipeline propagation) reports problems as *Error values
// carrying a Kind. Callers match on the kind with errors.Is against the
// exported Kind constants, or extract it with KindOf.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind int

const (
	Unknown Kind = iota

	// Bundle identity.
	IllegalBundleID
	DuplicateBundleID
	DuplicateDependency
	IllegalVersion
	NoBundlesConfigured
	UnknownBundle

	// Bundle dependencies.
	SelfDependency
	MissingDependency
	CyclicDependency

	// Bundle loading.
	DescriptorNotFound
	InvalidDescriptor

	// Specifications.
	DuplicateParameterName
	DuplicateAttributeName
	DuplicateOutputName
	EmptyParameterInterval
	UnknownPipelineSource
	PipelineAttributeHasDefault
	IncompatiblePipelineTypes
	IllegalDefaultValue
	UnknownSpecification
	AmbiguousSpecification
	InvalidSpecification

	// Linking.
	ParameterOccursNotOftenEnough
	ParameterOccursTooOften
	UnsupportedParameter
	UnsupportedAttribute
	MissingAttribute
	IllegalImmediateValue
	DuplicateDeclarationName
	UndefinedReference
	TypeMismatch
	CyclicDeclarations

	// Registry parity between descriptors and compiled modules.
	RegistryMismatch

	// Internal invariant violations.
	Internal
)

var kindNames = map[Kind]string{
	Unknown:                       "unknown",
	IllegalBundleID:               "illegal bundle id",
	DuplicateBundleID:             "duplicate bundle id",
	DuplicateDependency:           "duplicate dependency",
	IllegalVersion:                "illegal version",
	NoBundlesConfigured:           "no bundles configured",
	UnknownBundle:                 "unknown bundle",
	SelfDependency:                "self dependency",
	MissingDependency:             "missing dependency",
	CyclicDependency:              "cyclic dependency",
	DescriptorNotFound:            "descriptor not found",
	InvalidDescriptor:             "invalid descriptor",
	DuplicateParameterName:        "duplicate parameter name",
	DuplicateAttributeName:        "duplicate attribute name",
	DuplicateOutputName:           "duplicate output name",
	EmptyParameterInterval:        "empty parameter interval",
	UnknownPipelineSource:         "unknown pipeline source",
	PipelineAttributeHasDefault:   "pipeline attribute has default value",
	IncompatiblePipelineTypes:     "incompatible pipeline types",
	IllegalDefaultValue:           "illegal default value",
	UnknownSpecification:          "unknown specification",
	AmbiguousSpecification:        "ambiguous specification",
	InvalidSpecification:          "invalid specification",
	ParameterOccursNotOftenEnough: "parameter occurs not often enough",
	ParameterOccursTooOften:       "parameter occurs too often",
	UnsupportedParameter:          "unsupported parameter",
	UnsupportedAttribute:          "unsupported attribute",
	MissingAttribute:              "missing attribute",
	IllegalImmediateValue:         "illegal immediate value",
	DuplicateDeclarationName:      "duplicate declaration name",
	UndefinedReference:            "undefined reference",
	TypeMismatch:                  "type mismatch",
	CyclicDeclarations:            "cyclic declarations",
	RegistryMismatch:              "registry mismatch",
	Internal:                      "internal error",
}

// String returns the human readable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is a resolution failure with enough context to act on it.
type Error struct {
	Kind Kind
	// Location names the offending element, e.g. a bundle id or
	// "declaration 'a', parameter 'in'".
	Location string
	Msg      string
	Err      error
}

// New creates an Error with a formatted message.
func New(kind Kind, location, format string, args ...any) *Error {
	return &Error{Kind: kind, Location: location, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that wraps an underlying cause.
func Wrap(kind Kind, location string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Location: location, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Location != "" {
		msg = e.Location + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return Unknown, false
}
