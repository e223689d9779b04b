package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/creep/engine/core"
)

func tap(o Overlay, in *core.Input, key core.KeyCode, state State, info FrameInfo) State {
	in.ProcessKey(key, true)
	state = o.Update(state, in, info)
	in.Update()
	in.ProcessKey(key, false)
	in.Update()
	return state
}

func TestDebugOverlaySelections(t *testing.T) {
	o := NewDebugOverlay()
	in := core.NewInput(nil)
	info := FrameInfo{Models: []string{"crate", "teapot"}}
	state := State{}

	state = tap(o, in, core.KEY_2, state, info)
	assert.Equal(t, 1, state.ModelIndex)
	assert.Contains(t, o.Summary(), "teapot")

	// out of range selections are ignored
	state = tap(o, in, core.KEY_5, state, info)
	assert.Equal(t, 1, state.ModelIndex)

	state = tap(o, in, core.KEY_C, state, info)
	assert.Equal(t, CameraModeFreeFly, state.CameraMode)
	state = tap(o, in, core.KEY_M, state, info)
	assert.True(t, state.MSAA)

	assert.False(t, o.WantCaptureMouse())
	tap(o, in, core.KEY_TAB, state, info)
	assert.True(t, o.WantCaptureMouse())
}

func TestHeldKeyTogglesOnce(t *testing.T) {
	o := NewDebugOverlay()
	in := core.NewInput(nil)
	state := State{}
	in.ProcessKey(core.KEY_M, true)
	for i := 0; i < 5; i++ {
		state = o.Update(state, in, FrameInfo{})
		in.Update()
	}
	assert.True(t, state.MSAA)
}

func TestParseCameraMode(t *testing.T) {
	assert.Equal(t, CameraModeFreeFly, ParseCameraMode("freefly"))
	assert.Equal(t, CameraModeOrbit, ParseCameraMode("orbit"))
	assert.Equal(t, "free-fly", CameraModeFreeFly.String())
}
