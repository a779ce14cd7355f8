package spec

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
)

// Source provides the specifications of one kind of template, e.g.
// compiled processors or block documents.
type Source interface {
	// Specification returns the template name contributed by bundleID. The
	// boolean is false if this source does not know the template.
	Specification(ctx context.Context, bundleID, name string) (*Specification, bool, error)
}

// DefaultCacheSize is used when NewLoader is given a non-positive size.
const DefaultCacheSize = 256

// Loader resolves template names against the bundles visible to a
// configuration. Every template is built at most once per Loader, so all
// declarations naming it share one Specification.
type Loader struct {
	visible []*bundle.Descriptor
	byID    map[string]*bundle.Descriptor
	sources []Source
	built   map[string]*Specification
	// names caches resolved names; eviction only costs another scan of the
	// visible bundles.
	names *lru.Cache[string, resolvedName]
}

type resolvedName struct {
	bundleID string
	template string
}

// NewLoader creates a loader over the visible bundles, given in load order.
func NewLoader(visible []*bundle.Descriptor, cacheSize int, sources ...Source) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	names, err := lru.New[string, resolvedName](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create name cache: %w", err)
	}

	byID := make(map[string]*bundle.Descriptor, len(visible))
	for _, d := range visible {
		byID[d.ID] = d
	}
	return &Loader{
		visible: visible,
		byID:    byID,
		sources: sources,
		built:   make(map[string]*Specification),
		names:   names,
	}, nil
}

// Lookup resolves name. A qualified name "<bundle id>.<template>" addresses
// the template of that bundle; a bare template name must be contributed by
// exactly one visible bundle.
func (l *Loader) Lookup(ctx context.Context, name string) (*Specification, error) {
	if r, ok := l.names.Get(name); ok {
		return l.load(ctx, r.bundleID, r.template)
	}
	bundleID, tmpl, err := l.resolveName(name)
	if err != nil {
		return nil, err
	}
	l.names.Add(name, resolvedName{bundleID: bundleID, template: tmpl})
	return l.load(ctx, bundleID, tmpl)
}

// All loads every template contributed by the visible bundles, in load
// order.
func (l *Loader) All(ctx context.Context) ([]*Specification, error) {
	var specs []*Specification
	for _, d := range l.visible {
		for _, name := range d.Specifications() {
			s, err := l.load(ctx, d.ID, name)
			if err != nil {
				return nil, err
			}
			specs = append(specs, s)
		}
	}
	return specs, nil
}

func (l *Loader) resolveName(name string) (string, string, error) {
	if i := strings.LastIndex(name, "."); i > 0 {
		bundleID, tmpl := name[:i], name[i+1:]
		if d, ok := l.byID[bundleID]; ok {
			if !contributes(d, tmpl) {
				return "", "", failure.New(failure.UnknownSpecification, "",
					"bundle '%s' does not contribute '%s'", bundleID, tmpl)
			}
			return bundleID, tmpl, nil
		}
	}

	var owners []string
	for _, d := range l.visible {
		if contributes(d, name) {
			owners = append(owners, d.ID)
		}
	}
	switch len(owners) {
	case 0:
		return "", "", failure.New(failure.UnknownSpecification, "",
			"no visible bundle contributes '%s'", name)
	case 1:
		return owners[0], name, nil
	default:
		return "", "", failure.New(failure.AmbiguousSpecification, "",
			"'%s' is contributed by several bundles (%s); qualify it with a bundle id",
			name, strings.Join(owners, ", "))
	}
}

func (l *Loader) load(ctx context.Context, bundleID, name string) (*Specification, error) {
	logger := ctxlog.FromContext(ctx)
	key := bundleID + "." + name
	if s, ok := l.built[key]; ok {
		return s, nil
	}

	for _, src := range l.sources {
		s, found, err := src.Specification(ctx, bundleID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load specification '%s': %w", key, err)
		}
		if !found {
			continue
		}
		if s.Bundle != bundleID {
			s = s.InBundle(bundleID)
		}
		l.built[key] = s
		logger.Debug("Specification loaded.", "specification", key, "kind", s.Kind.String())
		return s, nil
	}

	return nil, failure.New(failure.UnknownSpecification, "",
		"bundle '%s' lists '%s' but no source provides it", bundleID, name)
}

func contributes(d *bundle.Descriptor, name string) bool {
	for _, n := range d.Specifications() {
		if n == name {
			return true
		}
	}
	return false
}
