package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine"
	"github.com/spaghettifunk/creep/engine/config"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/ui"
)

func headlessConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer.Backend = "headless"
	cfg.Assets.ModelDir = t.TempDir()
	cfg.Assets.Watch = false
	cfg.Window.Width = 320
	cfg.Window.Height = 240
	require.NoError(t, cfg.Validate())
	return cfg
}

func startViewer(t *testing.T, cfg *config.Config) (*Viewer, *engine.Engine) {
	t.Helper()
	v := New(cfg)
	appConfig := v.ApplicationConfig()
	assert.True(t, appConfig.Headless)

	e, err := engine.New(appConfig, v)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { _ = e.Shutdown() })
	return v, e
}

func TestViewerWithoutModels(t *testing.T) {
	v, e := startViewer(t, headlessConfig(t))

	assert.Equal(t, -1, v.State().ModelIndex)
	assert.Empty(t, v.Systems().ModelSystem.Models())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
}

func TestViewerEscapeQuits(t *testing.T) {
	_, e := startViewer(t, headlessConfig(t))

	quit := false
	e.Bus().Register(core.EVENT_CODE_APPLICATION_QUIT, t, func(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
		quit = true
		return false
	})
	e.Input().ProcessKey(core.KEY_ESCAPE, true)
	assert.True(t, quit)
}

func TestViewerCameraModeFromConfig(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.Camera.Mode = "freefly"
	v, _ := startViewer(t, cfg)

	assert.Equal(t, ui.CameraModeFreeFly, v.State().CameraMode)
	assert.Equal(t, ui.CameraModeFreeFly, v.Systems().CameraSystem.Mode())
}

func TestViewerDestroyIsIdempotent(t *testing.T) {
	v, _ := startViewer(t, headlessConfig(t))
	require.NoError(t, v.OnDestroy())
	require.NoError(t, v.OnDestroy())
}
