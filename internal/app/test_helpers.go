package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridlink/internal/hcl"
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/testutil"
	"gopkg.in/yaml.v3"
)

// SetupAppTest creates a new app instance for system testing. It returns
// the buffers receiving the report and the debug log.
func SetupAppTest(t *testing.T, cfg Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "yaml"
	}
	cfg.LogLevel = "debug"
	validated, err := NewConfig(cfg)
	require.NoError(t, err, "invalid test configuration")

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	testApp := NewApp(out, logs, validated, hcl.NewLoader(), modules...)

	t.Cleanup(func() {
		if os.Getenv("GRIDLINK_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}

// HarnessResult holds the outcome of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *App
}

// RunIntegrationTest writes files (relative paths such as
// "modules/x/bundle.hcl" or "config/main.hcl") below a temporary root and
// runs a full resolution with the bundles in modules/ and the configuration
// in config/. Startup panics are returned as errors.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	root := testutil.WriteFiles(t, files)
	cfg := Config{
		Bundles:     []string{filepath.Join(root, "modules")},
		CoreVersion: CoreVersion,
	}
	if configDir := filepath.Join(root, "config"); isDir(configDir) {
		cfg.ConfigPaths = []string{configDir}
	}

	var (
		testApp    *App
		out, logs  *testutil.SafeBuffer
		startupErr error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				startupErr = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		testApp, out, logs = SetupAppTest(t, cfg, modules...)
	}()
	if startupErr != nil {
		return &HarnessResult{Err: startupErr}
	}

	err := testApp.Run(context.Background())
	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       err,
		App:       testApp,
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// SimpleModule registers the given processor factories for one bundle.
type SimpleModule struct {
	ID         string
	Processors map[string]registry.Factory
}

// BundleID implements registry.Module.
func (m *SimpleModule) BundleID() string {
	return m.ID
}

// Register implements registry.Module.
func (m *SimpleModule) Register(r *registry.Registry) {
	for name, factory := range m.Processors {
		r.RegisterProcessor(m.ID, name, factory)
	}
}

// ReportSummary is the part of a YAML report integration tests inspect.
type ReportSummary struct {
	LoadOrder      []string `yaml:"load_order"`
	Warnings       []string `yaml:"warnings"`
	Specifications []struct {
		Name string `yaml:"name"`
		Kind string `yaml:"kind"`
	} `yaml:"specifications"`
	Declarations []ReportDeclaration `yaml:"declarations"`
}

// ReportDeclaration is one linked declaration of a report.
type ReportDeclaration struct {
	Name          string `yaml:"name"`
	Specification string `yaml:"specification"`
	Parameters    []struct {
		Name        string            `yaml:"name"`
		Synthesized bool              `yaml:"synthesized"`
		Attributes  []ReportAttribute `yaml:"attributes"`
	} `yaml:"parameters"`
	Outputs []struct {
		Name   string `yaml:"name"`
		Type   string `yaml:"type"`
		Frozen bool   `yaml:"frozen"`
	} `yaml:"outputs"`
}

// ReportAttribute is one attribute of a canonical parameter.
type ReportAttribute struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Value     any    `yaml:"value"`
	Reference string `yaml:"reference"`
	Defaulted bool   `yaml:"defaulted"`
}

// Report decodes the YAML report of a successful run.
func (r *HarnessResult) Report(t *testing.T) *ReportSummary {
	t.Helper()
	require.NoError(t, r.Err, "the run failed, there is no report")
	var s ReportSummary
	require.NoError(t, yaml.Unmarshal([]byte(r.Output), &s))
	return &s
}

// Declaration returns the named declaration of the report.
func (s *ReportSummary) Declaration(t *testing.T, name string) ReportDeclaration {
	t.Helper()
	for _, d := range s.Declarations {
		if d.Name == name {
			return d
		}
	}
	require.Failf(t, "declaration not in report", "declaration %q", name)
	return ReportDeclaration{}
}

// OutputType returns the type and frozen state of an output.
func (d ReportDeclaration) OutputType(name string) (string, bool) {
	for _, o := range d.Outputs {
		if o.Name == name {
			return o.Type, o.Frozen
		}
	}
	return "", false
}
