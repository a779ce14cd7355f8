package integration_tests

import (
	"github.com/vk/gridlink/internal/app"
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/internal/spec"
	"github.com/vk/gridlink/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// echoModule registers a processor "echo" with one required parameter.
func echoModule(bundleID string) *app.SimpleModule {
	return &app.SimpleModule{
		ID: bundleID,
		Processors: map[string]registry.Factory{
			"echo": func() (*spec.Specification, error) {
				b := spec.NewBuilder("echo", spec.KindProcessor)
				b.Parameter("input", spec.Exactly(1)).
					Attribute("text", cty.String).
					AttributeWithDefault("repeat", cty.Number, cty.NumberIntVal(1))
				b.Output("text", cty.String)
				return b.Build()
			},
		},
	}
}

// echoBundle returns the descriptor of a bundle contributing "echo".
func echoBundle(bundleID string) map[string]string {
	return map[string]string{
		"modules/" + bundleID + "/bundle.hcl": testutil.BundleHCL(bundleID, "1.0", []string{"echo"}),
	}
}
