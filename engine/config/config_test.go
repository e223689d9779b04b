package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	assert.Equal(t, 3, Default().Renderer.FrameResources)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[renderer]
backend = "headless"
frame_resources = 2

[assets]
model_dir = "/tmp/models"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "headless", cfg.Renderer.Backend)
	assert.Equal(t, 2, cfg.Renderer.FrameResources)
	assert.Equal(t, "/tmp/models", cfg.Assets.ModelDir)
	// untouched keys keep their defaults
	assert.Equal(t, "gltf", cfg.Assets.MeshExtension)
	assert.Equal(t, 4, cfg.Renderer.MSAASamples)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[renderer]\nframes = 3\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, "[renderer]\nframe_resources = 0\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, Default(), cfg)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	cfg := Default()
	cfg.Camera.Mode = "freefly"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
