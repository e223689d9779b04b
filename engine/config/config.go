package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const DefaultFile = "creep.toml"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel string         `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Camera   CameraConfig   `toml:"camera"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// Frame limit in frames per second. Zero disables the limiter.
	FrameLimit float64 `toml:"frame_limit"`
}

type RendererConfig struct {
	// vulkan or headless
	Backend          string `toml:"backend"`
	FrameResources   int    `toml:"frame_resources"`
	BackBuffers      int    `toml:"back_buffers"`
	MSAASamples      int    `toml:"msaa_samples"`
	MSAA             bool   `toml:"msaa"`
	ImmediatePresent bool   `toml:"immediate_present"`
	Validation       bool   `toml:"validation"`
	ShaderDir        string `toml:"shader_dir"`
}

type AssetsConfig struct {
	ModelDir      string `toml:"model_dir"`
	MeshExtension string `toml:"mesh_extension"`
	SkyTexture    string `toml:"sky_texture"`
	Watch         bool   `toml:"watch"`
}

type CameraConfig struct {
	// Free-fly movement in world units per second.
	MoveSpeed float32 `toml:"move_speed"`
	// Degrees of rotation per pixel of pointer movement.
	RotateSensitivity float32 `toml:"rotate_sensitivity"`
	// Orbit radius change per pixel of pointer movement.
	ZoomSensitivity float32 `toml:"zoom_sensitivity"`
	OrbitRadius     float32 `toml:"orbit_radius"`
	MinRadius       float32 `toml:"min_radius"`
	MaxRadius       float32 `toml:"max_radius"`
	Mode            string  `toml:"mode"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Window: WindowConfig{
			Title:      "Creep",
			Width:      1280,
			Height:     720,
			FrameLimit: 0,
		},
		Renderer: RendererConfig{
			Backend:          "vulkan",
			FrameResources:   3,
			BackBuffers:      2,
			MSAASamples:      4,
			MSAA:             true,
			ImmediatePresent: true,
			Validation:       false,
			ShaderDir:        "./shaders/bin",
		},
		Assets: AssetsConfig{
			ModelDir:      "./models",
			MeshExtension: "gltf",
			SkyTexture:    "./texture/cubemap.dds",
			Watch:         true,
		},
		Camera: CameraConfig{
			MoveSpeed:         10,
			RotateSensitivity: 0.25,
			ZoomSensitivity:   0.05,
			OrbitRadius:       5,
			MinRadius:         0.1,
			MaxRadius:         150,
			Mode:              "orbit",
		},
	}
}

// Load reads the TOML file at path on top of the defaults. Unknown keys are
// rejected so typos do not silently fall back to a default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return cfg, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	switch c.Renderer.Backend {
	case "vulkan", "headless":
	default:
		return fmt.Errorf("%w: renderer.backend %q must be vulkan or headless", ErrInvalidConfig, c.Renderer.Backend)
	}
	if c.Renderer.FrameResources < 1 {
		return fmt.Errorf("%w: renderer.frame_resources must be at least 1", ErrInvalidConfig)
	}
	if c.Renderer.BackBuffers < 2 {
		return fmt.Errorf("%w: renderer.back_buffers must be at least 2", ErrInvalidConfig)
	}
	switch c.Renderer.MSAASamples {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("%w: renderer.msaa_samples must be 1, 2, 4 or 8", ErrInvalidConfig)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("%w: window size must be non-zero", ErrInvalidConfig)
	}
	if c.Assets.ModelDir == "" {
		return fmt.Errorf("%w: assets.model_dir is required", ErrInvalidConfig)
	}
	if c.Camera.MinRadius <= 0 || c.Camera.MaxRadius < c.Camera.MinRadius {
		return fmt.Errorf("%w: camera radius bounds are inverted", ErrInvalidConfig)
	}
	switch c.Camera.Mode {
	case "orbit", "freefly":
	default:
		return fmt.Errorf("%w: camera.mode %q must be orbit or freefly", ErrInvalidConfig, c.Camera.Mode)
	}
	return nil
}
