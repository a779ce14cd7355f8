package app

import (
	"errors"
	"fmt"

	"github.com/vk/gridlink/internal/bundle"
	"github.com/vk/gridlink/internal/report"
)

// CoreVersion is the platform version bundles are checked against by
// default.
const CoreVersion = "1.0"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Bundles     []string // bundle collection directories
	Root        string   // root bundle id; empty means all bundles
	CoreVersion string
	ConfigPaths []string // hcl configuration files or directories

	LogFormat       string
	LogLevel        string
	Output          string
	SpecCacheSize   int
	LoadConcurrency int

	coreVersion bundle.Version
}

// NewConfig validates cfg and returns a copy ready for NewApp.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Bundles) == 0 {
		return nil, errors.New("at least one bundle directory is required")
	}

	if cfg.CoreVersion != "" {
		v, err := bundle.ParseVersion(cfg.CoreVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid core version: %w", err)
		}
		cfg.coreVersion = v
	}

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.Output {
	case report.FormatYAML, report.FormatJSON:
	default:
		return nil, fmt.Errorf("invalid output %q: must be 'yaml' or 'json'", cfg.Output)
	}

	if cfg.SpecCacheSize < 0 {
		return nil, errors.New("spec cache size must not be negative")
	}
	if cfg.LoadConcurrency < 0 {
		return nil, errors.New("load concurrency must not be negative")
	}

	return &cfg, nil
}
