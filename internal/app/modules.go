package app

import (
	"github.com/releasegrid/releasegrid/internal/registry"
	"github.com/releasegrid/releasegrid/runners/echo"
	"github.com/releasegrid/releasegrid/runners/sleep"
)

// coreModules are the built-in action runners registered when the caller
// supplies none. Real artifact publishers are external collaborators and
// register through the same interface.
var coreModules = []registry.Module{
	&echo.Module{},
	&sleep.Module{},
}
