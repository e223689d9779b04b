package viewer

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/creep/engine"
	"github.com/spaghettifunk/creep/engine/assets"
	"github.com/spaghettifunk/creep/engine/config"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
	"github.com/spaghettifunk/creep/engine/systems"
	"github.com/spaghettifunk/creep/engine/ui"
)

// titleInterval is how often the window title shows the overlay summary.
const titleInterval = 500 * time.Millisecond

/**
 * @brief The model viewer application: it owns the graphics device, the
 * renderer and the systems, and drives them from the engine callbacks.
 */
type Viewer struct {
	config *config.Config

	engine   *engine.Engine
	device   metadata.Device
	assets   *assets.AssetManager
	renderer *renderer.Renderer
	systems  *systems.SystemManager
	overlay  ui.Overlay

	state       ui.State
	totalTime   float64
	lastTitle   time.Time
	initialized bool
}

func New(cfg *config.Config) *Viewer {
	return &Viewer{
		config:  cfg,
		overlay: ui.NewDebugOverlay(),
	}
}

// ApplicationConfig derives the engine settings from the configuration.
func (v *Viewer) ApplicationConfig() engine.ApplicationConfig {
	return engine.ApplicationConfig{
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  v.config.Window.Width,
		StartHeight: v.config.Window.Height,
		Name:        v.config.Window.Title,
		LogLevel:    v.config.LogLevel,
		FrameLimit:  v.config.Window.FrameLimit,
		Headless:    v.config.Renderer.Backend == "headless",
	}
}

func (v *Viewer) Initialize(e *engine.Engine) error {
	v.engine = e
	cfg := v.config

	backend, err := renderer.ParseRendererType(cfg.Renderer.Backend)
	if err != nil {
		return err
	}
	width, height := e.GetFramebufferSize()
	deviceConfig := renderer.BackendConfig{
		Type:             backend,
		AppName:          cfg.Window.Title,
		Width:            width,
		Height:           height,
		BackBuffers:      cfg.Renderer.BackBuffers,
		ImmediatePresent: cfg.Renderer.ImmediatePresent,
		Validation:       cfg.Renderer.Validation,
	}
	// leave the interface nil rather than holding a nil *Platform
	if p := e.Platform(); p != nil {
		deviceConfig.Window = p
	}
	v.device, err = renderer.NewDevice(deviceConfig)
	if err != nil {
		return err
	}

	v.renderer, err = renderer.New(v.device, renderer.Config{
		FrameResources: cfg.Renderer.FrameResources,
		MSAASamples:    uint32(cfg.Renderer.MSAASamples),
		ShaderDir:      cfg.Renderer.ShaderDir,
	})
	if err != nil {
		return v.abort(err)
	}

	v.assets, err = assets.NewAssetManager(cfg.Assets.ModelDir, cfg.Assets.MeshExtension)
	if err != nil {
		return v.abort(err)
	}
	if err := v.assets.Initialize(cfg.Assets.Watch); err != nil {
		return v.abort(err)
	}

	v.systems, err = systems.NewSystemManager(cfg, v.renderer, v.assets)
	if err != nil {
		return v.abort(err)
	}

	v.state = ui.State{
		ModelIndex: 0,
		CameraMode: ui.ParseCameraMode(cfg.Camera.Mode),
		MSAA:       cfg.Renderer.MSAA && v.renderer.MSAASupported(),
	}
	// the first model loads before the first frame
	if v.state, err = v.systems.ModelSystem.Sync(v.state); err != nil {
		return v.abort(err)
	}
	if v.state.ModelIndex < 0 {
		core.LogWarn("no model loaded from %s", cfg.Assets.ModelDir)
	}
	v.initialized = true
	core.LogInfo("viewer initialized with %d models, %s backend", len(v.systems.ModelSystem.Models()), backend)
	return nil
}

// abort releases whatever Initialize created before failing.
func (v *Viewer) abort(err error) error {
	if shutdownErr := v.OnDestroy(); shutdownErr != nil {
		core.LogError("cleanup after failed initialization: %s", shutdownErr)
	}
	return err
}

func (v *Viewer) State() ui.State { return v.state }

func (v *Viewer) Systems() *systems.SystemManager { return v.systems }

func (v *Viewer) OnUpdate(deltaTime float64) error {
	if !v.initialized {
		return nil
	}
	cam := v.systems.CameraSystem
	fps, frameMS := v.engine.Metrics().Frame()
	info := ui.FrameInfo{
		FPS:            fps,
		FrameTimeMS:    frameMS,
		Models:         v.systems.ModelSystem.Models(),
		CameraPosition: cam.Camera().Position(),
	}
	v.state = v.overlay.Update(v.state, v.engine.Input(), info)
	if v.state.MSAA && !v.renderer.MSAASupported() {
		v.state.MSAA = false
	}
	cam.SetMode(v.state.CameraMode)
	state, err := v.systems.ModelSystem.Sync(v.state)
	v.state = state
	if err != nil {
		return err
	}
	cam.Update(float32(deltaTime), v.engine.Input())

	if p := v.engine.Platform(); p != nil && time.Since(v.lastTitle) >= titleInterval {
		p.SetTitle(fmt.Sprintf("%s | %s", v.config.Window.Title, v.overlay.Summary()))
		v.lastTitle = time.Now()
	}
	return nil
}

func (v *Viewer) OnRender(deltaTime float64) error {
	if !v.initialized {
		return nil
	}
	v.totalTime += deltaTime
	return v.systems.RendererSystem.DrawFrame(v.state, float32(v.totalTime), float32(deltaTime))
}

func (v *Viewer) OnResize(width, height uint32) {
	if !v.initialized {
		return
	}
	rs := v.systems.RendererSystem
	if width == rs.FramebufferWidth && height == rs.FramebufferHeight {
		return
	}
	rs.OnResize(width, height)
}

func (v *Viewer) OnKeyDown(key core.KeyCode) {
	if key == core.KEY_ESCAPE {
		v.engine.Quit()
	}
}

func (v *Viewer) OnKeyUp(key core.KeyCode) {}

func (v *Viewer) OnMouseDown(button core.Button, x, y int32) {
	if !v.initialized || v.overlay.WantCaptureMouse() {
		return
	}
	v.systems.CameraSystem.OnMouseDown(x, y)
}

func (v *Viewer) OnMouseUp(button core.Button, x, y int32) {}

func (v *Viewer) OnMouseMove(buttons [core.BUTTON_MAX_BUTTONS]bool, x, y int32) {
	if !v.initialized {
		return
	}
	v.systems.CameraSystem.OnMouseMove(buttons, x, y, v.overlay.WantCaptureMouse())
}

// OnDestroy waits for the GPU and releases everything in reverse order of
// creation. It is safe after a partial Initialize.
func (v *Viewer) OnDestroy() error {
	v.initialized = false
	var errs []error
	if v.systems != nil {
		errs = append(errs, v.systems.Shutdown())
		v.systems = nil
	}
	if v.renderer != nil {
		errs = append(errs, v.renderer.Shutdown())
		v.renderer = nil
	}
	if v.assets != nil {
		errs = append(errs, v.assets.Shutdown())
		v.assets = nil
	}
	if v.device != nil {
		errs = append(errs, v.device.Shutdown())
		v.device = nil
	}
	return errors.Join(errs...)
}
