package ui

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
)

// FrameInfo is what the overlay displays about the current frame.
type FrameInfo struct {
	FPS            float64
	FrameTimeMS    float64
	Models         []string
	CameraPosition math.Vec3
}

/**
 * @brief The immediate mode UI boundary. Update runs once per frame with the
 * current selection and returns the new one.
 */
type Overlay interface {
	Update(state State, input *core.Input, info FrameInfo) State
	// WantCaptureMouse reports whether the pointer belongs to the UI this
	// frame, in which case camera controls ignore it.
	WantCaptureMouse() bool
	Summary() string
}

var modelKeys = [...]core.KeyCode{
	core.KEY_1, core.KEY_2, core.KEY_3, core.KEY_4, core.KEY_5,
	core.KEY_6, core.KEY_7, core.KEY_8, core.KEY_9,
}

// DebugOverlay is a keyboard driven overlay: 1-9 select a model, C toggles the
// camera mode, M toggles MSAA and Tab hands the pointer to the UI.
type DebugOverlay struct {
	captureMouse bool
	summary      string
}

func NewDebugOverlay() *DebugOverlay {
	return &DebugOverlay{}
}

func pressed(input *core.Input, key core.KeyCode) bool {
	return input.IsKeyDown(key) && input.WasKeyUp(key)
}

func (o *DebugOverlay) Update(state State, input *core.Input, info FrameInfo) State {
	for i, key := range modelKeys {
		if pressed(input, key) && i < len(info.Models) {
			state.ModelIndex = i
		}
	}
	if pressed(input, core.KEY_C) {
		if state.CameraMode == CameraModeOrbit {
			state.CameraMode = CameraModeFreeFly
		} else {
			state.CameraMode = CameraModeOrbit
		}
	}
	if pressed(input, core.KEY_M) {
		state.MSAA = !state.MSAA
	}
	if pressed(input, core.KEY_TAB) {
		o.captureMouse = !o.captureMouse
	}

	model := "none"
	if state.ModelIndex >= 0 && state.ModelIndex < len(info.Models) {
		model = info.Models[state.ModelIndex]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%.0f fps (%.2f ms) | model %s | camera %s", info.FPS, info.FrameTimeMS, model, state.CameraMode)
	fmt.Fprintf(&b, " (%.1f, %.1f, %.1f)", info.CameraPosition.X, info.CameraPosition.Y, info.CameraPosition.Z)
	if state.MSAA {
		b.WriteString(" | msaa")
	}
	if o.captureMouse {
		b.WriteString(" | ui")
	}
	o.summary = b.String()
	return state
}

func (o *DebugOverlay) WantCaptureMouse() bool {
	return o.captureMouse
}

func (o *DebugOverlay) Summary() string {
	return o.summary
}
