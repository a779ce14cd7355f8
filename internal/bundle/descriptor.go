package bundle

import (
	"fmt"
	"regexp"

	"github.com/vk/gridlink/internal/failure"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// ValidID reports whether id is a legal bundle identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Dependency is an edge from a bundle to a bundle it requires.
type Dependency struct {
	BundleID string
	Version  Version
}

func (d Dependency) String() string {
	return d.BundleID + "@" + d.Version.String()
}

// Descriptor describes a single bundle. It is populated once by a descriptor
// provider and treated as read-only afterwards.
type Descriptor struct {
	ID          string
	Name        string
	Provider    string
	Description string
	Version     Version
	// RequiredCoreVersion is the platform version the bundle was built for.
	// The zero value means the bundle does not state one.
	RequiredCoreVersion Version
	// Location is the directory the descriptor was read from.
	Location string

	dependencies   []Dependency
	specifications []string
	processors     []string
	resources      []string

	context    any
	hasContext bool
}

// NewDescriptor creates a descriptor after validating id.
func NewDescriptor(id string, version Version) (*Descriptor, error) {
	if !ValidID(id) {
		return nil, failure.New(failure.IllegalBundleID, "", "illegal bundle id %q", id)
	}
	return &Descriptor{ID: id, Version: version}, nil
}

// AddDependency records a dependency. Depending on the same bundle twice is
// an error.
func (d *Descriptor) AddDependency(dep Dependency) error {
	for _, existing := range d.dependencies {
		if existing.BundleID == dep.BundleID {
			return failure.New(failure.DuplicateDependency, d.location(),
				"duplicate dependency on bundle '%s'", dep.BundleID)
		}
	}
	d.dependencies = append(d.dependencies, dep)
	return nil
}

// Dependencies returns the dependencies in declaration order.
func (d *Descriptor) Dependencies() []Dependency {
	return append([]Dependency(nil), d.dependencies...)
}

// AddSpecification records the name of a contributed template. Repeated
// names are ignored.
func (d *Descriptor) AddSpecification(name string) {
	for _, existing := range d.specifications {
		if existing == name {
			return
		}
	}
	d.specifications = append(d.specifications, name)
}

// Specifications returns the contributed template names.
func (d *Descriptor) Specifications() []string {
	return append([]string(nil), d.specifications...)
}

// AddProcessor records a template implemented by compiled code. Processors
// are also listed by Specifications.
func (d *Descriptor) AddProcessor(name string) {
	for _, existing := range d.processors {
		if existing == name {
			return
		}
	}
	d.processors = append(d.processors, name)
	d.AddSpecification(name)
}

// Processors returns the names of the compiled templates.
func (d *Descriptor) Processors() []string {
	return append([]string(nil), d.processors...)
}

// AddResource records a library or resource location relative to the bundle.
func (d *Descriptor) AddResource(path string) {
	d.resources = append(d.resources, path)
}

// Resources returns the library and resource locations.
func (d *Descriptor) Resources() []string {
	return append([]string(nil), d.resources...)
}

// AttachContext stores the bundle's context object. It may only be called
// once per descriptor.
func (d *Descriptor) AttachContext(c any) {
	if d.hasContext {
		panic(fmt.Sprintf("bundle '%s': context already attached", d.ID))
	}
	d.context = c
	d.hasContext = true
}

// Context returns the attached context object, or nil.
func (d *Descriptor) Context() any {
	return d.context
}

func (d *Descriptor) location() string {
	return "bundle '" + d.ID + "'"
}
