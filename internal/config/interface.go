package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// LoadConfiguration reads every configuration document below the given
	// paths and translates them into the format-agnostic model.
	LoadConfiguration(ctx context.Context, paths ...string) (*Model, error)
}
