package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	engine     *Engine
	quitAfter  int
	updates    int
	renders    int
	renderErr  error
	resizes    [][2]uint32
	keysDown   []core.KeyCode
	mouseDowns []core.Button
	moves      int
	destroyed  bool
}

func (a *fakeApp) Initialize(e *Engine) error {
	a.engine = e
	return nil
}

func (a *fakeApp) OnUpdate(deltaTime float64) error {
	a.updates++
	if a.quitAfter > 0 && a.updates >= a.quitAfter {
		a.engine.Quit()
	}
	return nil
}

func (a *fakeApp) OnRender(deltaTime float64) error {
	a.renders++
	return a.renderErr
}

func (a *fakeApp) OnResize(width, height uint32) {
	a.resizes = append(a.resizes, [2]uint32{width, height})
}

func (a *fakeApp) OnDestroy() error {
	a.destroyed = true
	return nil
}

func (a *fakeApp) OnKeyDown(key core.KeyCode)                 { a.keysDown = append(a.keysDown, key) }
func (a *fakeApp) OnKeyUp(key core.KeyCode)                   {}
func (a *fakeApp) OnMouseDown(button core.Button, x, y int32) { a.mouseDowns = append(a.mouseDowns, button) }
func (a *fakeApp) OnMouseUp(button core.Button, x, y int32)   {}
func (a *fakeApp) OnMouseMove(buttons [core.BUTTON_MAX_BUTTONS]bool, x, y int32) {
	a.moves++
}

func newHeadless(t *testing.T, app *fakeApp) *Engine {
	t.Helper()
	e, err := New(ApplicationConfig{
		Name:        "test",
		StartWidth:  640,
		StartHeight: 480,
		Headless:    true,
	}, app)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e
}

func TestEngineRunsUntilQuit(t *testing.T) {
	app := &fakeApp{quitAfter: 3}
	e := newHeadless(t, app)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, app.updates)
	assert.Equal(t, 3, app.renders)
	assert.Equal(t, [][2]uint32{{640, 480}}, app.resizes)

	require.NoError(t, e.Shutdown())
	assert.True(t, app.destroyed)
	assert.Equal(t, EngineStageShuttingDown, e.Stage())
}

func TestEngineStopsOnCancelledContext(t *testing.T) {
	app := &fakeApp{}
	e := newHeadless(t, app)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, app.updates)
}

func TestEngineReturnsDeviceFailure(t *testing.T) {
	app := &fakeApp{renderErr: fmt.Errorf("submit: %w", core.ErrDeviceFatal)}
	e := newHeadless(t, app)

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeviceFatal))
	assert.Equal(t, 1, app.renders)
}

func TestEngineForwardsInput(t *testing.T) {
	app := &fakeApp{}
	e := newHeadless(t, app)

	e.Input().ProcessKey(core.KEY_A, true)
	e.Input().ProcessButton(core.BUTTON_RIGHT, true)
	e.Input().ProcessMouseMove(10, 20)

	assert.Equal(t, []core.KeyCode{core.KEY_A}, app.keysDown)
	assert.Equal(t, []core.Button{core.BUTTON_RIGHT}, app.mouseDowns)
	assert.Equal(t, 1, app.moves)
}

func TestEngineSuspendsWhileMinimized(t *testing.T) {
	app := &fakeApp{}
	e := newHeadless(t, app)

	e.Bus().Fire(core.EVENT_CODE_RESIZED, nil, core.EventContext{Width: 0, Height: 0})
	assert.True(t, e.IsSuspended())

	e.Bus().Fire(core.EVENT_CODE_RESIZED, nil, core.EventContext{Width: 800, Height: 600})
	assert.False(t, e.IsSuspended())
	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)
	assert.Equal(t, [][2]uint32{{640, 480}, {0, 0}, {800, 600}}, app.resizes)
}

func TestNewRejectsEmptyWindow(t *testing.T) {
	_, err := New(ApplicationConfig{Headless: true}, &fakeApp{})
	assert.Error(t, err)
}
