package systems

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/frames"
	"github.com/spaghettifunk/creep/engine/renderer/headless"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

func newTestRing(t *testing.T, dev *headless.Device, objects, materials int) *frames.Ring {
	t.Helper()
	return newTestRingOf(t, dev, frames.DefaultFrameResources, objects, materials)
}

func newTestRingOf(t *testing.T, dev *headless.Device, n, objects, materials int) *frames.Ring {
	t.Helper()
	tl, err := frames.NewTimeline(dev)
	require.NoError(t, err)
	ring, err := frames.NewRing(dev, tl, frames.RingConfig{
		Frames:        n,
		PassCount:     1,
		ObjectCount:   objects,
		MaterialCount: materials,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ring.Release()
		tl.Release()
	})
	return ring
}

func readObjectConstants(t *testing.T, fr *frames.FrameResource, index int) metadata.ObjectConstants {
	t.Helper()
	raw := fr.ObjectCB.Resource().(*headless.Buffer).Bytes()
	off := fr.ObjectCB.Offset(index)
	var oc metadata.ObjectConstants
	require.NoError(t, binary.Read(bytes.NewReader(raw[off:]), binary.LittleEndian, &oc))
	return oc
}

func TestAddAssignsIndicesAndLayers(t *testing.T) {
	rs, err := NewRenderItemSystem(3)
	require.NoError(t, err)

	sky := &metadata.RenderItem{Layer: metadata.RenderLayerSky}
	model := &metadata.RenderItem{Layer: metadata.RenderLayerOpaque}
	require.NoError(t, rs.Add(sky))
	require.NoError(t, rs.Add(model))
	assert.Error(t, rs.Add(&metadata.RenderItem{Layer: metadata.RenderLayerCount}))

	assert.Equal(t, 0, sky.ObjCBIndex)
	assert.Equal(t, 1, model.ObjCBIndex)
	assert.Equal(t, 3, sky.NumFramesDirty)
	assert.Equal(t, []*metadata.RenderItem{model}, rs.Layer(metadata.RenderLayerOpaque))
	assert.Equal(t, []*metadata.RenderItem{sky}, rs.Layer(metadata.RenderLayerSky))
	assert.Len(t, rs.All(), 2)

	rs.Reset()
	assert.Zero(t, rs.Len())
	assert.Empty(t, rs.Layer(metadata.RenderLayerSky))
}

func TestDirtyCounterReachesZeroAfterOneWritePerFrame(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("%d frames", n), func(t *testing.T) {
			dev := headless.New(headless.Options{})
			defer dev.Shutdown()
			ring := newTestRingOf(t, dev, n, 1, 1)

			rs, err := NewRenderItemSystem(ring.Len())
			require.NoError(t, err)
			mat := &metadata.Material{Name: "crate", MatCBIndex: 0, MatTransform: math.NewMat4Identity()}
			rs.MarkMaterialDirty(mat)
			item := &metadata.RenderItem{
				World:        math.NewMat4Translation(math.NewVec3(1, 2, 3)),
				TexTransform: math.NewMat4Identity(),
				Mat:          mat,
			}
			require.NoError(t, rs.Add(item))

			for i := 0; i < ring.Len(); i++ {
				fr, err := ring.Advance()
				require.NoError(t, err)
				require.NoError(t, rs.UpdateObjectConstants(fr))
				require.NoError(t, rs.UpdateMaterialConstants(fr, []*metadata.Material{mat}))
				assert.Equal(t, ring.Len()-1-i, item.NumFramesDirty)
				assert.Equal(t, ring.Len()-1-i, mat.NumFramesDirty)

				oc := readObjectConstants(t, fr, item.ObjCBIndex)
				assert.Equal(t, item.World.Transposed(), oc.World)
			}
			assert.Zero(t, item.NumFramesDirty)

			// a clean item is not rewritten
			item.World = math.NewMat4UniformScale(2)
			fr, err := ring.Advance()
			require.NoError(t, err)
			require.NoError(t, rs.UpdateObjectConstants(fr))
			assert.Equal(t, math.NewMat4Translation(math.NewVec3(1, 2, 3)).Transposed(), readObjectConstants(t, fr, 0).World)

			rs.MarkDirty(item)
			require.NoError(t, rs.UpdateObjectConstants(fr))
			assert.Equal(t, item.World.Transposed(), readObjectConstants(t, fr, 0).World)
			assert.Equal(t, ring.Len()-1, item.NumFramesDirty)
		})
	}
}

func TestSetFrameCountDirtiesEverything(t *testing.T) {
	rs, err := NewRenderItemSystem(3)
	require.NoError(t, err)
	item := &metadata.RenderItem{}
	require.NoError(t, rs.Add(item))
	item.NumFramesDirty = 0

	rs.SetFrameCount(2)
	assert.Equal(t, 2, rs.FrameCount())
	assert.Equal(t, 2, item.NumFramesDirty)
}
