package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/config"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/declaration"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/fsutil"
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/spec"
	"golang.org/x/sync/errgroup"
)

// Documents reads the on-disk documents of a pass.
type Documents interface {
	LoadDescriptor(ctx context.Context, dir string) (*bundle.Descriptor, error)
	BlockSource(visible []*bundle.Descriptor) spec.Source
	config.Loader
}

// DefaultDescriptorFile marks bundle directories when Options leaves
// DescriptorFile empty.
const DefaultDescriptorFile = "bundle.hcl"

// Options controls a resolution pass.
type Options struct {
	// Bundles are collection directories. Each is either a bundle itself or
	// holds bundles in its immediate sub-directories.
	Bundles []string
	// Root restricts the visible bundles to its closure. Empty means every
	// loaded bundle is visible.
	Root string
	// CoreVersion is compared against the bundles' required core version.
	CoreVersion bundle.Version
	// DescriptorFile is the marker file of a bundle directory.
	DescriptorFile  string
	SpecCacheSize   int
	LoadConcurrency int
	// ConfigPaths are configuration files or directories. None means no
	// configuration is linked.
	ConfigPaths []string
}

// Result is the outcome of a successful pass.
type Result struct {
	RunID string
	// Registry holds every loaded bundle.
	Registry *bundle.Registry
	// Order is the load order of all loaded bundles.
	Order []string
	// Visible are the descriptors of the root's closure, in load order.
	Visible  []*bundle.Descriptor
	Warnings []bundle.Warning
	// Specifications are set by Resolve, in load order.
	Specifications []*spec.Specification
	// Configuration is set by Resolve when configuration paths are given.
	Configuration *declaration.Configuration
}

// Resolver runs resolution passes against a fixed set of compiled bundles.
type Resolver struct {
	docs       Documents
	processors *registry.Registry
}

// New creates a resolver. processors holds the compiled processor
// factories.
func New(docs Documents, processors *registry.Registry) *Resolver {
	return &Resolver{docs: docs, processors: processors}
}

// ResolveBundles loads, registers and verifies the bundles and computes
// their load order and the visible closure.
func (r *Resolver) ResolveBundles(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	return r.resolveBundles(ctx, runID, opts)
}

// Resolve runs a full pass: ResolveBundles, then loading every visible
// specification and linking the configuration, if any.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)

	res, err := r.resolveBundles(ctx, runID, opts)
	if err != nil {
		return nil, err
	}

	loader, err := spec.NewLoader(res.Visible, opts.SpecCacheSize, r.processors, r.docs.BlockSource(res.Visible))
	if err != nil {
		return nil, err
	}
	specs, err := loader.All(ctx)
	if err != nil {
		return nil, err
	}
	res.Specifications = specs
	logger.Debug("Specifications loaded.", "count", len(specs))

	if len(opts.ConfigPaths) == 0 {
		logger.Info("Resolution finished.", "bundles", len(res.Visible), "specifications", len(specs))
		return res, nil
	}

	model, err := r.docs.LoadConfiguration(ctx, opts.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg, err := buildConfiguration(model)
	if err != nil {
		return nil, err
	}
	if err := cfg.Resolve(ctx, loader); err != nil {
		return nil, err
	}
	res.Configuration = cfg

	logger.Info("Resolution finished.",
		"bundles", len(res.Visible),
		"specifications", len(specs),
		"declarations", len(cfg.Declarations()),
		"propagation_steps", cfg.Graph().Steps(),
	)
	return res, nil
}

func (r *Resolver) resolveBundles(ctx context.Context, runID string, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolution pass started.", "collections", len(opts.Bundles), "root", opts.Root)

	dirs, err := findBundles(opts)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, failure.New(failure.NoBundlesConfigured, "", "no bundles found in %v", opts.Bundles)
	}
	logger.Debug("Discovered bundle directories.", "count", len(dirs))

	descriptors, err := r.loadDescriptors(ctx, dirs, opts.LoadConcurrency)
	if err != nil {
		return nil, err
	}

	reg := bundle.NewRegistry()
	for _, d := range descriptors {
		if err := reg.Add(d); err != nil {
			return nil, err
		}
	}

	if err := r.processors.ValidateRegistry(ctx, descriptors); err != nil {
		return nil, err
	}

	warnings, err := bundle.Verify(ctx, reg, opts.CoreVersion)
	if err != nil {
		return nil, err
	}

	order, err := bundle.TopSort(reg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Bundle load order computed.", "order", order)

	visibleIDs := order
	if opts.Root != "" {
		members, err := reg.Closure(opts.Root)
		if err != nil {
			return nil, err
		}
		visibleIDs = bundle.Restrict(order, members)
		logger.Debug("Bundle closure computed.", "root", opts.Root, "members", visibleIDs)
	}

	visible := make([]*bundle.Descriptor, 0, len(visibleIDs))
	for _, id := range visibleIDs {
		d, _ := reg.Get(id)
		visible = append(visible, d)
	}

	return &Result{
		RunID:    runID,
		Registry: reg,
		Order:    order,
		Visible:  visible,
		Warnings: warnings,
	}, nil
}

// findBundles expands every collection into bundle directories, keeping the
// collections' order. A collection that does not exist is an error.
func findBundles(opts Options) ([]string, error) {
	marker := opts.DescriptorFile
	if marker == "" {
		marker = DefaultDescriptorFile
	}

	var dirs []string
	for _, collection := range opts.Bundles {
		if _, err := os.Stat(collection); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, failure.New(failure.DescriptorNotFound, collection, "bundle collection does not exist")
			}
			return nil, fmt.Errorf("error accessing bundle collection %s: %w", collection, err)
		}
		found, err := fsutil.FindBundleDirs(collection, marker)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bundle collection %s: %w", collection, err)
		}
		dirs = append(dirs, found...)
	}
	return dirs, nil
}

// loadDescriptors reads the descriptors concurrently. The result keeps the
// order of dirs so registration stays deterministic.
func (r *Resolver) loadDescriptors(ctx context.Context, dirs []string, limit int) ([]*bundle.Descriptor, error) {
	descriptors := make([]*bundle.Descriptor, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, dir := range dirs {
		g.Go(func() error {
			d, err := r.docs.LoadDescriptor(gctx, dir)
			if err != nil {
				return fmt.Errorf("failed to load bundle at %s: %w", dir, err)
			}
			descriptors[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// buildConfiguration turns the configuration model into unlinked
// declarations.
func buildConfiguration(model *config.Model) (*declaration.Configuration, error) {
	cfg := declaration.NewConfiguration()
	for _, md := range model.Declarations {
		d := declaration.New(md.Name, md.Spec)
		for _, mp := range md.Parameters {
			p := declaration.NewParameter(mp.Name)
			for _, ma := range mp.Attributes {
				switch {
				case ma.Reference != nil:
					p.Attributes = append(p.Attributes, declaration.Ref(ma.Name, declaration.Reference{
						Declaration: ma.Reference.Declaration,
						Output:      ma.Reference.Output,
					}))
				case ma.Value != nil:
					p.Attributes = append(p.Attributes, declaration.Immediate(ma.Name, *ma.Value))
				default:
					return nil, failure.New(failure.IllegalImmediateValue, ma.Range, "attribute '%s' has no value", ma.Name)
				}
			}
			d.AddParameter(p)
		}
		if err := cfg.Add(d); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
