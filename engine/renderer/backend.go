package renderer

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/creep/engine/renderer/headless"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
	"github.com/spaghettifunk/creep/engine/renderer/vulkan"
)

type RendererType int

const (
	RendererTypeVulkan RendererType = iota
	RendererTypeHeadless
)

func (t RendererType) String() string {
	switch t {
	case RendererTypeVulkan:
		return "vulkan"
	case RendererTypeHeadless:
		return "headless"
	}
	return "unknown"
}

func ParseRendererType(s string) (RendererType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vulkan":
		return RendererTypeVulkan, nil
	case "headless":
		return RendererTypeHeadless, nil
	}
	return 0, fmt.Errorf("unknown renderer backend %q", s)
}

type BackendConfig struct {
	Type        RendererType
	AppName     string
	Width       uint32
	Height      uint32
	BackBuffers int
	// ImmediatePresent disables vsync when the surface supports it.
	ImmediatePresent bool
	Validation       bool
	// Window is required by the vulkan backend.
	Window vulkan.Window
}

// NewDevice creates the graphics device of the configured backend.
func NewDevice(cfg BackendConfig) (metadata.Device, error) {
	switch cfg.Type {
	case RendererTypeVulkan:
		if cfg.Window == nil {
			return nil, fmt.Errorf("vulkan backend needs a window")
		}
		return vulkan.NewDevice(vulkan.Config{
			AppName:          cfg.AppName,
			Width:            cfg.Width,
			Height:           cfg.Height,
			BackBuffers:      cfg.BackBuffers,
			ImmediatePresent: cfg.ImmediatePresent,
			Validation:       cfg.Validation,
			Window:           cfg.Window,
		})
	case RendererTypeHeadless:
		return headless.New(headless.Options{
			Width:       cfg.Width,
			Height:      cfg.Height,
			BackBuffers: cfg.BackBuffers,
		}), nil
	}
	return nil, fmt.Errorf("unsupported renderer backend %s", cfg.Type)
}
