package ui

type CameraMode int

const (
	CameraModeOrbit CameraMode = iota
	CameraModeFreeFly
)

func (m CameraMode) String() string {
	if m == CameraModeFreeFly {
		return "free-fly"
	}
	return "orbit"
}

// ParseCameraMode maps the configuration names orbit and freefly to a mode.
func ParseCameraMode(name string) CameraMode {
	if name == "freefly" {
		return CameraModeFreeFly
	}
	return CameraModeOrbit
}

/**
 * @brief The selections made in the UI. It is passed by value from the
 * overlay into the frame update, which may hand back a corrected copy (for
 * example after a model failed to load).
 */
type State struct {
	ModelIndex int
	CameraMode CameraMode
	MSAA       bool
}
