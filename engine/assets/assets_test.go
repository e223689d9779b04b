package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

func TestScanListsModelDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "teapot"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "crate"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), nil, 0o644))

	am, err := NewAssetManager(dir, "gltf")
	require.NoError(t, err)
	require.NoError(t, am.Initialize(false))
	defer am.Shutdown()

	assert.Equal(t, []string{"crate", "teapot"}, am.Models())
	assert.Equal(t, uint64(1), am.Version())
	assert.Equal(t, filepath.Join(dir, "crate", "crate.gltf"), am.MeshPath("crate"))
	assert.Equal(t, filepath.Join(dir, "crate", "textures", "crate.dds"), am.TexturePath("crate"))
	assert.Equal(t, filepath.Join(dir, "crate", "crate.mat"), am.MaterialPath("crate"))

	changed, err := am.Rescan()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, uint64(1), am.Version())
}

func TestInitializeFailsWithoutDirectory(t *testing.T) {
	am, err := NewAssetManager(filepath.Join(t.TempDir(), "missing"), "gltf")
	require.NoError(t, err)
	assert.Error(t, am.Initialize(false))
}

func TestLoadAssetReportsMissingFiles(t *testing.T) {
	am, err := NewAssetManager(t.TempDir(), "gltf")
	require.NoError(t, err)

	_, err = am.LoadAsset(am.MeshPath("ghost"), metadata.ResourceTypeMesh, nil)
	assert.ErrorIs(t, err, core.ErrModelNotFound)

	_, err = am.LoadAsset(am.MeshPath("ghost"), metadata.ResourceTypeNone, nil)
	assert.Error(t, err)
}

func TestLoadAssetUsesRegisteredLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	am, err := NewAssetManager(dir, "gltf")
	require.NoError(t, err)
	res, err := am.LoadAsset(path, metadata.ResourceTypeBinary, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, res.Data)
	assert.Equal(t, "blob", res.Name)

	require.NoError(t, am.UnloadAsset(res))
	assert.Nil(t, res.Data)
}

func TestWatchPicksUpNewModels(t *testing.T) {
	dir := t.TempDir()
	am, err := NewAssetManager(dir, "gltf")
	require.NoError(t, err)
	require.NoError(t, am.Initialize(true))
	defer am.Shutdown()
	assert.Empty(t, am.Models())

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sponza"), 0o755))
	require.Eventually(t, func() bool {
		return len(am.Models()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"sponza"}, am.Models())

	require.NoError(t, os.Remove(filepath.Join(dir, "sponza")))
	require.Eventually(t, func() bool {
		return len(am.Models()) == 0
	}, 5*time.Second, 20*time.Millisecond)
}
