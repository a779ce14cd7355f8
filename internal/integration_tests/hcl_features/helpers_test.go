package integration_tests

import "github.com/vk/gridlink/internal/testutil"

// passBlock is a block whose output takes the type of its input.
const passBlock = `
	block "pass" {
	  parameter "input" {
	    min = 1
	    max = 1
	    attribute "value" {
	      type = any
	    }
	  }
	  output "result" {
	    type     = any
	    pipeline = ["input.value"]
	  }
	}
`

// coreBundle returns the files of a bundle "core" contributing passBlock.
func coreBundle() map[string]string {
	return map[string]string{
		"modules/core/bundle.hcl":      testutil.BundleHCL("core", "1.0", nil),
		"modules/core/blocks/pass.hcl": passBlock,
	}
}
