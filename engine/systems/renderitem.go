package systems

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/frames"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Owns the render items of the current model and keeps the per frame
 * object and material constants in sync with them.
 *
 * Every item and material carries a dirty counter set to the number of frame
 * resources. Each frame writes the constants of dirty entries into the
 * current frame resource and decrements the counter, so after N frames every
 * slot holds the latest data and nothing is rewritten until the next change.
 */
type RenderItemSystem struct {
	numFrames int
	items     []*metadata.RenderItem
	layers    [metadata.RenderLayerCount][]*metadata.RenderItem
}

func NewRenderItemSystem(numFrames int) (*RenderItemSystem, error) {
	if numFrames < 1 {
		err := fmt.Errorf("func NewRenderItemSystem - numFrames must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &RenderItemSystem{numFrames: numFrames}, nil
}

func (rs *RenderItemSystem) Shutdown() error {
	rs.Reset()
	return nil
}

// Add registers item in its layer. The item gets the next object constant
// index and is dirty for every frame resource.
func (rs *RenderItemSystem) Add(item *metadata.RenderItem) error {
	if item.Layer < 0 || item.Layer >= metadata.RenderLayerCount {
		return fmt.Errorf("render item layer %d out of range", item.Layer)
	}
	item.ObjCBIndex = len(rs.items)
	item.NumFramesDirty = rs.numFrames
	rs.items = append(rs.items, item)
	rs.layers[item.Layer] = append(rs.layers[item.Layer], item)
	return nil
}

// Layer returns the items drawn in layer l, in registration order.
func (rs *RenderItemSystem) Layer(l metadata.RenderLayer) []*metadata.RenderItem {
	if l < 0 || l >= metadata.RenderLayerCount {
		return nil
	}
	return rs.layers[l]
}

func (rs *RenderItemSystem) All() []*metadata.RenderItem {
	return rs.items
}

func (rs *RenderItemSystem) Len() int {
	return len(rs.items)
}

// Reset discards the whole registry. The geometry referenced by the items is
// not released; it belongs to whoever uploaded it.
func (rs *RenderItemSystem) Reset() {
	rs.items = nil
	for i := range rs.layers {
		rs.layers[i] = nil
	}
}

// SetFrameCount changes the number of frame resources a change must reach.
// Every item becomes dirty again since the frame resources are new.
func (rs *RenderItemSystem) SetFrameCount(n int) {
	rs.numFrames = max(n, 1)
	for _, it := range rs.items {
		it.NumFramesDirty = rs.numFrames
	}
}

func (rs *RenderItemSystem) FrameCount() int {
	return rs.numFrames
}

func (rs *RenderItemSystem) MarkDirty(item *metadata.RenderItem) {
	item.NumFramesDirty = rs.numFrames
}

func (rs *RenderItemSystem) MarkMaterialDirty(mat *metadata.Material) {
	mat.NumFramesDirty = rs.numFrames
}

// UpdateObjectConstants writes the constants of every dirty item into frame.
func (rs *RenderItemSystem) UpdateObjectConstants(frame *frames.FrameResource) error {
	for _, it := range rs.items {
		if it.NumFramesDirty <= 0 {
			continue
		}
		oc := metadata.ObjectConstants{
			World:        it.World.Transposed(),
			TexTransform: it.TexTransform.Transposed(),
		}
		if it.Mat != nil {
			oc.MaterialIndex = uint32(it.Mat.MatCBIndex)
		}
		if err := frame.ObjectCB.CopyData(it.ObjCBIndex, oc); err != nil {
			return fmt.Errorf("object constants of item %d: %w", it.ObjCBIndex, err)
		}
		it.NumFramesDirty--
	}
	return nil
}

// UpdateMaterialConstants writes the data of every dirty material into frame.
func (rs *RenderItemSystem) UpdateMaterialConstants(frame *frames.FrameResource, materials []*metadata.Material) error {
	for _, mat := range materials {
		if mat.NumFramesDirty <= 0 {
			continue
		}
		md := metadata.MaterialData{
			DiffuseAlbedo:   mat.DiffuseAlbedo,
			FresnelR0:       mat.FresnelR0,
			Roughness:       mat.Roughness,
			MatTransform:    mat.MatTransform.Transposed(),
			DiffuseMapIndex: uint32(mat.DiffuseSrvHeapIndex),
		}
		if err := frame.MaterialBuffer.CopyData(mat.MatCBIndex, md); err != nil {
			return fmt.Errorf("material %q: %w", mat.Name, err)
		}
		mat.NumFramesDirty--
	}
	return nil
}
