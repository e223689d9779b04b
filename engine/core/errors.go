package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	// GPU device failures. Nothing can be rendered after one of these.
	ErrDeviceFatal = errors.New("graphics device failure")

	// Content failures. The caller rolls back to the previous model.
	ErrEmptyMesh      = errors.New("mesh has no vertices")
	ErrModelNotFound  = errors.New("model not found")
	ErrTextureInvalid = errors.New("texture could not be decoded")

	ErrSlotInFlight    = errors.New("frame resource is still in use by the GPU")
	ErrDegenerateBasis = errors.New("up vector is parallel to the view direction")
)
