package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/creep/engine/assets/loaders"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

// Debounce for bursts of directory events, e.g. a model folder being copied.
const rescanDelay = 200 * time.Millisecond

/**
 * @brief Indexes the model directory and loads assets through the registered
 * loaders.
 *
 * Every immediate subdirectory of the model directory is a model. Its mesh is
 * <dir>/<name>/<name>.<ext>, its texture <dir>/<name>/textures/<name>.dds and
 * its optional material file <dir>/<name>/<name>.mat. When watching, the
 * directory is rescanned on a separate goroutine; readers get snapshots.
 */
type AssetManager struct {
	modelDir string
	meshExt  string

	loaders map[metadata.ResourceType]Loader

	mutex   sync.RWMutex
	models  []string
	version uint64

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewAssetManager(modelDir, meshExt string) (*AssetManager, error) {
	if modelDir == "" {
		return nil, errors.New("asset manager: empty model directory")
	}
	am := &AssetManager{
		modelDir: modelDir,
		meshExt:  meshExt,
		loaders:  make(map[metadata.ResourceType]Loader),
		done:     make(chan struct{}),
	}
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeMesh, &loaders.MeshLoader{})
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})
	return am, nil
}

// Initialize scans the model directory and, if watch is set, keeps watching it.
func (am *AssetManager) Initialize(watch bool) error {
	if _, err := am.Rescan(); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatch.Add(am.modelDir); err != nil {
		fsWatch.Close()
		return err
	}
	am.fsnotify = fsWatch
	am.wg.Add(1)
	go am.start()
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Rescan rebuilds the model list and reports whether it changed.
func (am *AssetManager) Rescan() (bool, error) {
	entries, err := os.ReadDir(am.modelDir)
	if err != nil {
		return false, fmt.Errorf("scanning %s: %w", am.modelDir, err)
	}
	var models []string
	for _, e := range entries {
		if e.IsDir() {
			models = append(models, e.Name())
		}
	}
	slices.Sort(models)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if slices.Equal(models, am.models) {
		return false, nil
	}
	am.models = models
	am.version++
	core.LogInfo("model directory %s: %d models", am.modelDir, len(models))
	return true, nil
}

// Models returns a snapshot of the model names, sorted.
func (am *AssetManager) Models() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return slices.Clone(am.models)
}

// Version increments every time the model list changes.
func (am *AssetManager) Version() uint64 {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.version
}

func (am *AssetManager) MeshPath(model string) string {
	return filepath.Join(am.modelDir, model, model+"."+am.meshExt)
}

func (am *AssetManager) TexturePath(model string) string {
	return filepath.Join(am.modelDir, model, "textures", model+".dds")
}

func (am *AssetManager) MaterialPath(model string) string {
	return filepath.Join(am.modelDir, model, model+".mat")
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for asset type: %d", resourceType)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, core.ErrModelNotFound)
		}
		return nil, err
	}
	return loader.Load(path, resourceType, params)
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %d", res.Type)
	}
	return loader.Unload(res)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	defer am.fsnotify.Close()

	var rescan <-chan time.Time
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			// only entries of the model directory itself matter
			if filepath.Dir(e.Name) != filepath.Clean(am.modelDir) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				rescan = time.After(rescanDelay)
			}

		case <-rescan:
			rescan = nil
			if _, err := am.Rescan(); err != nil {
				core.LogError(err.Error())
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}
