package systems

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/components"
	"github.com/spaghettifunk/creep/engine/ui"
)

const (
	minPhi = 0.1
	maxPhi = math.K_PI - 0.1
)

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/** @brief Free-fly speed in world units per second. */
	MoveSpeed float32
	/** @brief Degrees of rotation per pixel of pointer movement. */
	RotateSensitivity float32
	/** @brief Orbit radius change per pixel of pointer movement. */
	ZoomSensitivity float32
	OrbitRadius     float32
	MinRadius       float32
	MaxRadius       float32
	Mode            ui.CameraMode
}

/**
 * @brief Drives the camera from pointer and keyboard input, either orbiting
 * the origin or flying freely.
 */
type CameraSystem struct {
	config *CameraSystemConfig
	camera *components.Camera
	mode   ui.CameraMode

	lastMouseX int32
	lastMouseY int32
}

func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config.MoveSpeed <= 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MoveSpeed must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if config.MinRadius <= 0 || config.MaxRadius < config.MinRadius {
		err := fmt.Errorf("func NewCameraSystem - invalid orbit radius bounds [%f, %f]", config.MinRadius, config.MaxRadius)
		core.LogError(err.Error())
		return nil, err
	}
	cs := &CameraSystem{
		config: config,
		camera: components.NewCamera(),
		mode:   config.Mode,
	}
	_, theta, phi := cs.camera.Orbit()
	cs.camera.SetOrbit(math.Clamp(config.OrbitRadius, config.MinRadius, config.MaxRadius), theta, phi)
	cs.applyOrbit()
	cs.camera.UpdateViewMatrix()
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	return nil
}

// Camera returns the camera driven by the system.
func (cs *CameraSystem) Camera() *components.Camera {
	return cs.camera
}

func (cs *CameraSystem) Mode() ui.CameraMode {
	return cs.mode
}

// SetMode switches between orbit and free-fly. Free-fly starts from the
// current pose; going back to orbit snaps to the orbit parameters.
func (cs *CameraSystem) SetMode(mode ui.CameraMode) {
	if mode == cs.mode {
		return
	}
	core.LogDebug("camera mode %s -> %s", cs.mode, mode)
	cs.mode = mode
	if mode == ui.CameraModeOrbit {
		cs.applyOrbit()
	}
}

// OnResize resets the lens for the new aspect ratio.
func (cs *CameraSystem) OnResize(width, height uint32) {
	if height == 0 {
		return
	}
	cs.camera.SetLens(0.25*math.K_PI, 0.1, 1000.0)
	cs.camera.SetAspect(float32(width) / float32(height))
	cs.camera.UpdateProjectionMatrix()
}

func (cs *CameraSystem) OnMouseDown(x, y int32) {
	cs.lastMouseX = x
	cs.lastMouseY = y
}

/**
 * @brief Applies a pointer movement. Left drag rotates, right drag zooms the
 * orbit. Nothing happens while the UI owns the pointer, but the last position
 * is still tracked so the next drag does not jump.
 */
func (cs *CameraSystem) OnMouseMove(buttons [core.BUTTON_MAX_BUTTONS]bool, x, y int32, uiCaptured bool) {
	defer func() {
		cs.lastMouseX = x
		cs.lastMouseY = y
	}()
	if uiCaptured {
		return
	}
	mx := float32(x - cs.lastMouseX)
	my := float32(y - cs.lastMouseY)

	if buttons[core.BUTTON_LEFT] {
		dx := math.DegToRad(cs.config.RotateSensitivity * mx)
		dy := math.DegToRad(cs.config.RotateSensitivity * my)
		if cs.mode == ui.CameraModeOrbit {
			r, theta, phi := cs.camera.Orbit()
			cs.camera.SetOrbit(r, theta+dx, math.Clamp(phi+dy, minPhi, maxPhi))
		} else {
			cs.camera.Pitch(dy)
			cs.camera.RotateY(dx)
		}
	} else if buttons[core.BUTTON_RIGHT] && cs.mode == ui.CameraModeOrbit {
		dx := cs.config.ZoomSensitivity * mx
		dy := cs.config.ZoomSensitivity * my
		r, theta, phi := cs.camera.Orbit()
		cs.camera.SetOrbit(math.Clamp(r+dx-dy, cs.config.MinRadius, cs.config.MaxRadius), theta, phi)
	}
}

// Update applies keyboard movement and rebuilds the view matrix once.
func (cs *CameraSystem) Update(deltaTime float32, input *core.Input) {
	if cs.mode == ui.CameraModeFreeFly {
		step := cs.config.MoveSpeed * deltaTime
		if input.IsKeyDown(core.KEY_W) {
			cs.camera.Walk(step)
		}
		if input.IsKeyDown(core.KEY_S) {
			cs.camera.Walk(-step)
		}
		if input.IsKeyDown(core.KEY_A) {
			cs.camera.Strafe(-step)
		}
		if input.IsKeyDown(core.KEY_D) {
			cs.camera.Strafe(step)
		}
	} else {
		cs.applyOrbit()
	}
	cs.camera.UpdateViewMatrix()
}

func (cs *CameraSystem) applyOrbit() {
	pos := cs.camera.OrbitPosition()
	if err := cs.camera.LookAt(pos, math.NewVec3Zero(), math.NewVec3Up()); err != nil {
		core.LogWarn("orbit camera at %v: %s", pos, err)
	}
}
