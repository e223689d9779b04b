package engine

import (
	"github.com/spaghettifunk/creep/engine/core"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel string
	// Frames per second. Zero runs unlimited.
	FrameLimit float64
	// Headless runs without a window. The loop then ends through Quit or
	// the context passed to Run.
	Headless bool
}

/**
 * @brief The callbacks an application hands to the engine. Input callbacks
 * run from the event bus inside the frame that pumped the window messages.
 */
type Application interface {
	Initialize(e *Engine) error
	OnUpdate(deltaTime float64) error
	OnRender(deltaTime float64) error
	OnResize(width, height uint32)
	OnDestroy() error

	OnKeyDown(key core.KeyCode)
	OnKeyUp(key core.KeyCode)
	OnMouseDown(button core.Button, x, y int32)
	OnMouseUp(button core.Button, x, y int32)
	OnMouseMove(buttons [core.BUTTON_MAX_BUTTONS]bool, x, y int32)
}
