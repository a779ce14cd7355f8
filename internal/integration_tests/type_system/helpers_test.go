package type_system_test

import (
	"github.com/vk/gridlink/internal/testutil"
)

// typedBundle returns a bundle "types" whose block "typed" has a single
// attribute of the given HCL type expression.
func typedBundle(typeExpr string) map[string]string {
	return map[string]string{
		"modules/types/bundle.hcl": testutil.BundleHCL("types", "1.0", nil),
		"modules/types/blocks/typed.hcl": `
			block "typed" {
			  parameter "in" {
			    min = 1
			    max = 1
			    attribute "value" {
			      type = ` + typeExpr + `
			    }
			  }
			}
		`,
	}
}

// typedConfig declares one "typed" block whose value is the given HCL
// expression.
func typedConfig(expr string) string {
	return `
		declare "typed" "subject" {
		  in {
		    value = ` + expr + `
		  }
		}
	`
}
