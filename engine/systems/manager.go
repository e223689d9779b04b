package systems

import (
	"runtime"

	"github.com/spaghettifunk/creep/engine/config"
	"github.com/spaghettifunk/creep/engine/renderer"
	"github.com/spaghettifunk/creep/engine/ui"
)

type SystemManager struct {
	JobSystem        *JobSystem
	CameraSystem     *CameraSystem
	GeometrySystem   *GeometrySystem
	TextureSystem    *TextureSystem
	RenderItemSystem *RenderItemSystem
	ModelSystem      *ModelSystem
	RendererSystem   *RendererSystem
}

func NewSystemManager(cfg *config.Config, r *renderer.Renderer, source ModelSource) (*SystemManager, error) {
	js, err := NewJobSystem(max(runtime.NumCPU()/2, 2), 16)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(&CameraSystemConfig{
		MoveSpeed:         cfg.Camera.MoveSpeed,
		RotateSensitivity: cfg.Camera.RotateSensitivity,
		ZoomSensitivity:   cfg.Camera.ZoomSensitivity,
		OrbitRadius:       cfg.Camera.OrbitRadius,
		MinRadius:         cfg.Camera.MinRadius,
		MaxRadius:         cfg.Camera.MaxRadius,
		Mode:              ui.ParseCameraMode(cfg.Camera.Mode),
	})
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	gs, err := NewGeometrySystem(r.Device())
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ts, err := NewTextureSystem(r.Device())
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ris, err := NewRenderItemSystem(r.Ring().Len())
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ms, err := NewModelSystem(ModelSystemConfig{
		SkyTexturePath: cfg.Assets.SkyTexture,
	}, r, source, js, gs, ts, ris)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	rs, err := NewRendererSystem(r, ris, ms, cs)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		JobSystem:        js,
		CameraSystem:     cs,
		GeometrySystem:   gs,
		TextureSystem:    ts,
		RenderItemSystem: ris,
		ModelSystem:      ms,
		RendererSystem:   rs,
	}, nil
}

// Shutdown stops the systems in reverse order of creation.
func (sm *SystemManager) Shutdown() error {
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ModelSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.RenderItemSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.CameraSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
