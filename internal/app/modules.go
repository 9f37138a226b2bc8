package app

import (
	"github.com/specialistvlad/rulegraph/internal/rule"
	"github.com/specialistvlad/rulegraph/modules/ejb3"
)

// coreModules is the definitive list of all rule modules that are compiled
// into the engine.
var coreModules = []rule.Module{
	&ejb3.Module{},
}
