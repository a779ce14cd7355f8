package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridlink/internal/app"
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/spec"
	"github.com/vk/gridlink/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// TestHclFeatures_UnifiedLoading validates that processors, blocks and a
// configuration spread over nested directories resolve together.
func TestHclFeatures_UnifiedLoading(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := coreBundle()
	files["modules/math/bundle.hcl"] = testutil.BundleHCL("math", "1.0", []string{"double"}, "core")
	files["config/a.hcl"] = `
		declare "pass" "seed" {
		  input {
		    value = 21
		  }
		}
	`
	files["config/nested/b.hcl"] = `
		declare "math.double" "twice" {
		  input {
		    value = decl.seed.result
		  }
		}
	`
	mathModule := &app.SimpleModule{
		ID: "math",
		Processors: map[string]registry.Factory{
			"double": func() (*spec.Specification, error) {
				b := spec.NewBuilder("double", spec.KindProcessor)
				b.Parameter("input", spec.Exactly(1)).Attribute("value", cty.Number)
				b.Output("value", cty.Number)
				return b.Build()
			},
		},
	}

	// --- Act ---
	result := app.RunIntegrationTest(t, files, mathModule)

	// --- Assert ---
	require.NoError(t, result.Err)
	report := result.Report(t)
	assert.Equal(t, []string{"core", "math"}, report.LoadOrder)

	var specs []string
	for _, s := range report.Specifications {
		specs = append(specs, s.Kind+" "+s.Name)
	}
	assert.Equal(t, []string{"block core.pass", "processor math.double"}, specs)

	twice := report.Declaration(t, "twice")
	assert.Equal(t, "math.double", twice.Specification)
	assert.Equal(t, "number", twice.Parameters[0].Attributes[0].Type)
}
