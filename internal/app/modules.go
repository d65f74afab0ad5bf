package app

import (
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/modules/base"
	"github.com/specialistvlad/buildgrid/modules/haskell"
	"github.com/specialistvlad/buildgrid/modules/help"
	"github.com/specialistvlad/buildgrid/modules/notify"
	"github.com/specialistvlad/buildgrid/modules/ocaml"
)

// coreModules is the definitive list of all plugins that are compiled into
// the buildgrid binary.
var coreModules = []registry.Module{
	&base.Module{},
	&help.Module{},
	&haskell.Module{},
	&ocaml.Module{},
	&notify.Module{},
}
