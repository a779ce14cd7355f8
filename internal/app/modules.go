package app

import (
	"github.com/vk/gridlink/internal/registry"
	"github.com/vk/gridlink/modules/commons"
	"github.com/vk/gridlink/modules/text"
)

// coreModules is the definitive list of all bundles whose processors are
// compiled into the gridlink binary.
var coreModules = []registry.Module{
	&commons.Module{},
	&text.Module{},
}
