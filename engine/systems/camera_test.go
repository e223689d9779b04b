package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/ui"
)

func testCameraConfig() *CameraSystemConfig {
	return &CameraSystemConfig{
		MoveSpeed:         10,
		RotateSensitivity: 0.25,
		ZoomSensitivity:   0.05,
		OrbitRadius:       5,
		MinRadius:         0.1,
		MaxRadius:         150,
		Mode:              ui.CameraModeOrbit,
	}
}

func leftButton() (b [core.BUTTON_MAX_BUTTONS]bool) {
	b[core.BUTTON_LEFT] = true
	return
}

func rightButton() (b [core.BUTTON_MAX_BUTTONS]bool) {
	b[core.BUTTON_RIGHT] = true
	return
}

func TestCameraSystemRejectsInvalidConfig(t *testing.T) {
	cfg := testCameraConfig()
	cfg.MoveSpeed = 0
	_, err := NewCameraSystem(cfg)
	assert.Error(t, err)

	cfg = testCameraConfig()
	cfg.MaxRadius = 0.01
	_, err = NewCameraSystem(cfg)
	assert.Error(t, err)
}

func TestCameraSystemStartsOnOrbit(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)

	cam := cs.Camera()
	pos := cam.Position()
	want := cam.OrbitPosition()
	assert.InDelta(t, want.X, pos.X, 1e-4)
	assert.InDelta(t, want.Y, pos.Y, 1e-4)
	assert.InDelta(t, want.Z, pos.Z, 1e-4)
	assert.InDelta(t, 5, pos.Length(), 1e-4)

	// looking at the origin
	toOrigin := pos.MulScalar(-1).Normalize()
	assert.InDelta(t, 1, cam.Forward().Dot(toOrigin), 1e-4)
}

func TestOrbitDragClampsPolarAngle(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)

	cs.OnMouseDown(0, 0)
	cs.OnMouseMove(leftButton(), 0, 100000, false)
	_, _, phi := cs.Camera().Orbit()
	assert.InDelta(t, math.K_PI-0.1, phi, 1e-5)

	cs.OnMouseMove(leftButton(), 0, -100000, false)
	_, _, phi = cs.Camera().Orbit()
	assert.InDelta(t, 0.1, phi, 1e-5)
}

func TestOrbitDragRotatesAzimuth(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)
	_, theta0, _ := cs.Camera().Orbit()

	cs.OnMouseDown(10, 10)
	cs.OnMouseMove(leftButton(), 50, 10, false)
	_, theta, _ := cs.Camera().Orbit()
	assert.InDelta(t, theta0+math.DegToRad(0.25*40), theta, 1e-5)
}

func TestRightDragZoomsWithinBounds(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)

	cs.OnMouseDown(0, 0)
	cs.OnMouseMove(rightButton(), 20, 0, false)
	r, _, _ := cs.Camera().Orbit()
	assert.InDelta(t, 6, r, 1e-5)

	cs.OnMouseMove(rightButton(), 100000, 0, false)
	r, _, _ = cs.Camera().Orbit()
	assert.InDelta(t, 150, r, 1e-5)

	cs.OnMouseMove(rightButton(), -100000, 0, false)
	r, _, _ = cs.Camera().Orbit()
	assert.InDelta(t, 0.1, r, 1e-5)
}

func TestCapturedPointerIsIgnored(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)
	r0, theta0, phi0 := cs.Camera().Orbit()

	cs.OnMouseDown(0, 0)
	cs.OnMouseMove(leftButton(), 300, 300, true)
	r, theta, phi := cs.Camera().Orbit()
	assert.Equal(t, r0, r)
	assert.Equal(t, theta0, theta)
	assert.Equal(t, phi0, phi)

	// the position was tracked, so the next drag is relative to (300,300)
	cs.OnMouseMove(leftButton(), 304, 300, false)
	_, theta, _ = cs.Camera().Orbit()
	assert.InDelta(t, theta0+math.DegToRad(1), theta, 1e-5)
}

func TestFreeFlyStartsFromOrbitPoseAndWalks(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)
	cam := cs.Camera()
	start := cam.Position()
	forward := cam.Forward()

	cs.SetMode(ui.CameraModeFreeFly)
	assert.Equal(t, ui.CameraModeFreeFly, cs.Mode())
	assert.Equal(t, start, cam.Position())

	input := core.NewInput(nil)
	input.ProcessKey(core.KEY_W, true)
	cs.Update(0.5, input)

	moved := cam.Position().Sub(start)
	want := forward.MulScalar(5)
	assert.InDelta(t, want.X, moved.X, 1e-4)
	assert.InDelta(t, want.Y, moved.Y, 1e-4)
	assert.InDelta(t, want.Z, moved.Z, 1e-4)

	input.ProcessKey(core.KEY_W, false)
	input.ProcessKey(core.KEY_D, true)
	before := cam.Position()
	cs.Update(0.1, input)
	assert.InDelta(t, 1, cam.Position().Sub(before).Dot(cam.Right()), 1e-4)
}

func TestOrbitIgnoresMovementKeys(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)
	start := cs.Camera().Position()

	input := core.NewInput(nil)
	input.ProcessKey(core.KEY_W, true)
	cs.Update(1, input)
	assert.InDelta(t, 0, cs.Camera().Position().Sub(start).Length(), 1e-4)
}

func TestResizeResetsLens(t *testing.T) {
	cs, err := NewCameraSystem(testCameraConfig())
	require.NoError(t, err)

	cs.OnResize(1600, 800)
	cam := cs.Camera()
	assert.InDelta(t, 2, cam.Aspect(), 1e-6)
	assert.InDelta(t, 0.1, cam.NearZ(), 1e-6)
	assert.InDelta(t, 1000, cam.FarZ(), 1e-3)
	assert.InDelta(t, math.K_QUARTER_PI, cam.FovY(), 1e-6)
}
