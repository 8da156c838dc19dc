package scenes

import (
	"github.com/gonewx/dicefidget/pkg/game"
)

// Scene is a type alias for game.Scene.
// All scene implementations should implement the game.Scene interface.
type Scene = game.Scene

var (
	_ Scene          = (*FidgetScene)(nil)
	_ game.Saveable  = (*FidgetScene)(nil)
	_ game.Resizable = (*FidgetScene)(nil)
)
