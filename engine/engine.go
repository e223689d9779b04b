package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/platform"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// suspendedPoll is how long a minimized application sleeps between polls of
// the window messages.
const suspendedPoll = 10 * time.Millisecond

type Engine struct {
	currentStage Stage
	config       ApplicationConfig
	app          Application
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	bus          *core.EventBus
	input        *core.Input
	clock        *core.Clock
	metrics      *core.Metrics
	width        uint32
	height       uint32
}

func New(config ApplicationConfig, app Application) (*Engine, error) {
	if app == nil {
		return nil, fmt.Errorf("engine needs an application")
	}
	if config.StartWidth == 0 || config.StartHeight == 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", config.StartWidth, config.StartHeight)
	}
	bus := core.NewEventBus()
	input := core.NewInput(bus)
	e := &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		app:          app,
		bus:          bus,
		input:        input,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        config.StartWidth,
		height:       config.StartHeight,
	}
	if !config.Headless {
		e.platform = platform.New(input, bus)
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	if e.config.LogLevel != "" {
		if err := core.SetLogLevel(e.config.LogLevel); err != nil {
			return err
		}
	}

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_BUTTON_PRESSED, e, e.onButton)
	e.bus.Register(core.EVENT_CODE_BUTTON_RELEASED, e, e.onButton)
	e.bus.Register(core.EVENT_CODE_MOUSE_MOVED, e, e.onMouseMove)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if e.platform != nil {
		if err := e.platform.Startup(e.config.Name,
			e.config.StartPosX,
			e.config.StartPosY,
			e.config.StartWidth,
			e.config.StartHeight); err != nil {
			return err
		}
		// the framebuffer may differ from the window size on high DPI screens
		w, h := e.platform.GetFramebufferSize()
		if w > 0 && h > 0 {
			e.width, e.height = uint32(w), uint32(h)
		}
	}

	if err := e.app.Initialize(e); err != nil {
		return err
	}
	e.app.OnResize(e.width, e.height)
	e.currentStage = EngineStageInitialized
	e.isRunning = true
	return nil
}

/**
 * @brief Runs the frame loop until the window closes, Quit is called or ctx
 * is cancelled.
 *
 * @return The first update or render error. Device failures wrap
 * core.ErrDeviceFatal.
 */
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()

	for e.isRunning {
		select {
		case <-ctx.Done():
			e.isRunning = false
			continue
		default:
		}

		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			time.Sleep(suspendedPoll)
			// drop the time spent minimized
			e.clock.Tick()
			continue
		}

		frameStart := time.Now()
		delta := e.clock.Tick()

		if err := e.app.OnUpdate(delta); err != nil {
			return e.frameError("update", err)
		}
		if err := e.app.OnRender(delta); err != nil {
			return e.frameError("render", err)
		}

		if e.config.FrameLimit > 0 {
			target := time.Duration(float64(time.Second) / e.config.FrameLimit)
			if remaining := target - time.Since(frameStart); remaining > 0 {
				// give the time left back to the OS
				time.Sleep(remaining)
			}
		}
		e.metrics.Update(time.Since(frameStart).Seconds())

		// Input state copying is the last thing in a frame so every
		// transition is visible to exactly one update.
		e.input.Update()
	}
	return nil
}

func (e *Engine) frameError(stage string, err error) error {
	e.isRunning = false
	if errors.Is(err, core.ErrDeviceFatal) {
		core.LogError("graphics device lost during %s: %s", stage, err)
	} else {
		core.LogError("application %s failed: %s", stage, err)
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	var errs []error
	if err := e.app.OnDestroy(); err != nil {
		errs = append(errs, err)
	}
	e.bus.Shutdown()
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Quit ends the loop after the current frame.
func (e *Engine) Quit() {
	e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
}

// Platform is nil when running headless.
func (e *Engine) Platform() *platform.Platform { return e.platform }
func (e *Engine) Input() *core.Input           { return e.input }
func (e *Engine) Bus() *core.EventBus          { return e.bus }
func (e *Engine) Metrics() *core.Metrics       { return e.metrics }
func (e *Engine) Stage() Stage                 { return e.currentStage }

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) IsSuspended() bool {
	return e.isSuspended
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_KEY_PRESSED {
		e.app.OnKeyDown(context.Key)
	} else {
		e.app.OnKeyUp(context.Key)
	}
	return false
}

func (e *Engine) onButton(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_BUTTON_PRESSED {
		e.app.OnMouseDown(context.Button, context.X, context.Y)
	} else {
		e.app.OnMouseUp(context.Button, context.X, context.Y)
	}
	return false
}

func (e *Engine) onMouseMove(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	e.app.OnMouseMove(context.Buttons, context.X, context.Y)
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	width, height := context.Width, context.Height
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
		}
		e.isSuspended = true
		e.app.OnResize(width, height)
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.app.OnResize(width, height)
	return false
}
