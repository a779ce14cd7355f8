package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/ctxlog"
	"github.com/vk/gridlink/internal/failure"
	"github.com/vk/gridlink/internal/fsutil"
	"github.com/vk/gridlink/internal/schema"
	"github.com/vk/gridlink/internal/spec"
)

const (
	// DescriptorFile is the name of the descriptor inside a bundle directory.
	DescriptorFile = "bundle.hcl"
	// BlocksDir is the bundle sub-directory holding block specifications.
	BlocksDir = "blocks"
)

// Loader reads HCL documents. It is safe for concurrent use; every call
// uses its own parser.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// BundleContext is attached to every descriptor the Loader creates.
type BundleContext struct {
	Dir string
	// Blocks maps block template names to their files.
	Blocks map[string]string
}

// LoadDescriptor reads the bundle.hcl inside dir and discovers the bundle's
// block templates.
func (l *Loader) LoadDescriptor(ctx context.Context, dir string) (*bundle.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(dir, DescriptorFile)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.New(failure.DescriptorNotFound, dir, "no %s found", DescriptorFile)
		}
		return nil, fmt.Errorf("error accessing descriptor %s: %w", path, err)
	}

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, failure.Wrap(failure.InvalidDescriptor, path, diags, "failed to parse descriptor")
	}

	var root schema.BundleFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, failure.Wrap(failure.InvalidDescriptor, path, diags, "failed to decode descriptor")
	}
	if root.Bundle == nil {
		return nil, failure.New(failure.InvalidDescriptor, path, "missing bundle block")
	}

	d, err := translateBundle(root.Bundle, path)
	if err != nil {
		return nil, err
	}
	d.Location = dir

	blocks, err := discoverBlocks(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range slices.Sorted(maps.Keys(blocks)) {
		for _, p := range d.Processors() {
			if p == name {
				return nil, failure.New(failure.InvalidDescriptor, path,
					"block '%s' has the same name as a processor", name)
			}
		}
		d.AddSpecification(name)
	}
	d.AttachContext(&BundleContext{Dir: dir, Blocks: blocks})

	logger.Debug("Loaded bundle descriptor.",
		"bundle", d.ID,
		"version", d.Version.String(),
		"dependencies", len(d.Dependencies()),
		"processors", len(d.Processors()),
		"blocks", len(blocks),
	)
	return d, nil
}

func translateBundle(b *schema.Bundle, path string) (*bundle.Descriptor, error) {
	version, err := bundle.ParseVersion(b.Version)
	if err != nil {
		return nil, failure.Wrap(failure.IllegalVersion, path, err, "bundle version")
	}
	d, err := bundle.NewDescriptor(b.ID, version)
	if err != nil {
		return nil, failure.Wrap(failure.IllegalBundleID, path, err, "bundle id")
	}
	d.Name = b.Name
	d.Provider = b.Provider
	d.Description = b.Description

	if b.RequiresCore != "" {
		core, err := bundle.ParseVersion(b.RequiresCore)
		if err != nil {
			return nil, failure.Wrap(failure.IllegalVersion, path, err, "requires_core")
		}
		d.RequiredCoreVersion = core
	}

	for _, dep := range b.Dependencies {
		v, err := bundle.ParseVersion(dep.Version)
		if err != nil {
			return nil, failure.Wrap(failure.IllegalVersion, path, err, "dependency '%s'", dep.BundleID)
		}
		if err := d.AddDependency(bundle.Dependency{BundleID: dep.BundleID, Version: v}); err != nil {
			return nil, err
		}
	}
	for _, p := range b.Processors {
		d.AddProcessor(p)
	}
	for _, r := range b.Resources {
		d.AddResource(r)
	}
	return d, nil
}

// discoverBlocks maps template names to files below dir/blocks. The file
// stem is the template name; its content is only parsed on lookup.
func discoverBlocks(dir string) (map[string]string, error) {
	blocksDir := filepath.Join(dir, BlocksDir)
	blocks := make(map[string]string)
	if info, err := os.Stat(blocksDir); err != nil || !info.IsDir() {
		return blocks, nil
	}

	files, err := fsutil.FindFilesByExtension(blocksDir, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to list block files in %s: %w", blocksDir, err)
	}
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".hcl")
		if prev, dup := blocks[name]; dup {
			return nil, failure.New(failure.InvalidDescriptor, f, "block '%s' is already defined in %s", name, prev)
		}
		blocks[name] = f
	}
	return blocks, nil
}

// BlockSource returns a specification source for the block templates of the
// given bundles.
func (l *Loader) BlockSource(visible []*bundle.Descriptor) spec.Source {
	return NewBlockSource(visible)
}
