package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/components"
	"github.com/spaghettifunk/creep/engine/renderer/headless"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

type layeredItems [metadata.RenderLayerCount][]*metadata.RenderItem

func (l *layeredItems) Layer(layer metadata.RenderLayer) []*metadata.RenderItem {
	return l[layer]
}

func newTestRenderer(t *testing.T, samples uint32) (*Renderer, *headless.Device) {
	t.Helper()
	dev := headless.New(headless.Options{Width: 64, Height: 32, BackBuffers: 2})
	r, err := New(dev, Config{FrameResources: 3, MSAASamples: samples, ShaderDir: "shaders"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Shutdown()
		_ = dev.Shutdown()
	})
	return r, dev
}

func drawFrame(t *testing.T, r *Renderer, items RenderItemSource, msaa bool) {
	t.Helper()
	fr, err := r.BeginFrame()
	require.NoError(t, err)
	cam := components.NewCamera()
	require.NoError(t, r.UpdateMainPassConstants(fr, cam, 0, 0.016))
	require.NoError(t, r.Draw(fr, items, msaa))
}

func ops(cmds []headless.Command) []headless.Op {
	out := make([]headless.Op, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Op)
	}
	return out
}

func countEvents(dev *headless.Device, kind headless.EventKind) int {
	n := 0
	for _, e := range dev.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestDrawWithoutItemsClearsAndPresents(t *testing.T) {
	r, dev := newTestRenderer(t, 1)

	for i := 0; i < 5; i++ {
		drawFrame(t, r, &layeredItems{}, false)
	}
	require.NoError(t, r.Flush())

	assert.Empty(t, dev.Violations())
	assert.Equal(t, 5, countEvents(dev, headless.EventPresent))
	assert.Zero(t, dev.DrawCalls())
	assert.Equal(t, uint64(5), r.FrameNumber())

	last := dev.LastSubmission()
	require.Len(t, last, 1)
	got := ops(last[0])
	require.GreaterOrEqual(t, len(got), 6)
	assert.Equal(t, []headless.Op{
		headless.OpViewport,
		headless.OpScissor,
		headless.OpBarrier,
		headless.OpClearColour,
		headless.OpClearDepth,
		headless.OpSetTargets,
	}, got[:6])
	assert.Equal(t, headless.OpBarrier, got[len(got)-1])

	clear := last[0][3]
	assert.Equal(t, ClearColour, clear.Colour)
}

func TestDrawBackBufferEndsInPresent(t *testing.T) {
	r, dev := newTestRenderer(t, 1)
	drawFrame(t, r, &layeredItems{}, false)

	cmds := dev.LastSubmission()[0]
	final := cmds[len(cmds)-1]
	require.Equal(t, headless.OpBarrier, final.Op)
	require.Len(t, final.Barriers, 1)
	assert.Equal(t, metadata.ResourceStateRenderTarget, final.Barriers[0].Before)
	assert.Equal(t, metadata.ResourceStatePresent, final.Barriers[0].After)
}

func newTestGeometry(t *testing.T, dev metadata.Device) *metadata.MeshGeometry {
	t.Helper()
	vb, err := dev.CreateBuffer(metadata.BufferDesc{Name: "vb", Size: 3 * math.VertexStride, Usage: metadata.BufferUsageVertex})
	require.NoError(t, err)
	ib, err := dev.CreateBuffer(metadata.BufferDesc{Name: "ib", Size: 6, Usage: metadata.BufferUsageIndex})
	require.NoError(t, err)
	return &metadata.MeshGeometry{
		Name:             "tri",
		VertexBuffer:     vb,
		IndexBuffer:      ib,
		VertexByteStride: math.VertexStride,
		IndexFormat:      metadata.IndexFormatUint16,
		DrawArgs:         map[string]metadata.SubmeshGeometry{"tri": {IndexCount: 3}},
	}
}

func TestDrawRecordsViewsInLayerOrder(t *testing.T) {
	r, dev := newTestRenderer(t, 1)
	require.NoError(t, r.RebuildFrameResources(2, 2))

	geo := newTestGeometry(t, dev)
	defer geo.Release()
	items := &layeredItems{}
	items[metadata.RenderLayerSky] = []*metadata.RenderItem{{ObjCBIndex: 0, Geo: geo, IndexCount: 3, Layer: metadata.RenderLayerSky}}
	items[metadata.RenderLayerOpaque] = []*metadata.RenderItem{{ObjCBIndex: 1, Geo: geo, IndexCount: 3}}

	drawFrame(t, r, items, false)
	require.NoError(t, r.Flush())
	assert.Empty(t, dev.Violations())
	assert.Equal(t, 2, dev.DrawCalls())

	var pipelines []string
	var offsets []uint64
	for _, c := range dev.LastSubmission()[0] {
		switch c.Op {
		case headless.OpSetPipeline:
			pipelines = append(pipelines, c.Pipeline)
		case headless.OpObjectConstants:
			offsets = append(offsets, c.Offset)
		}
	}
	assert.Equal(t, []string{"opaque", "sky"}, pipelines)
	elem := r.Ring().Current().ObjectCB.ElementSize()
	assert.Equal(t, []uint64{elem, 0}, offsets)
}

func TestMSAAResolvesIntoBackBuffer(t *testing.T) {
	r, dev := newTestRenderer(t, 4)
	require.True(t, r.MSAASupported())

	bb := dev.CurrentBackBuffer()
	drawFrame(t, r, &layeredItems{}, true)
	require.NoError(t, r.Flush())
	assert.Empty(t, dev.Violations())

	cmds := dev.LastSubmission()[0]
	got := ops(cmds)
	assert.Contains(t, got, headless.OpResolve)

	var resolve headless.Command
	for _, c := range cmds {
		if c.Op == headless.OpResolve {
			resolve = c
		}
	}
	assert.Equal(t, bb.ID(), resolve.Dst.ID())
	assert.Equal(t, uint32(4), resolve.Src.(metadata.Texture).Desc().Samples)

	final := cmds[len(cmds)-1]
	require.Equal(t, headless.OpBarrier, final.Op)
	assert.Equal(t, metadata.ResourceStateResolveDest, final.Barriers[0].Before)
	assert.Equal(t, metadata.ResourceStatePresent, final.Barriers[0].After)
}

func TestMSAAToggleBetweenFrames(t *testing.T) {
	r, dev := newTestRenderer(t, 4)
	for i := 0; i < 6; i++ {
		drawFrame(t, r, &layeredItems{}, i%2 == 0)
	}
	require.NoError(t, r.Flush())
	assert.Empty(t, dev.Violations())
}

func TestMSAAUnsupportedSampleCountFallsBack(t *testing.T) {
	r, dev := newTestRenderer(t, 16)
	assert.False(t, r.MSAASupported())

	drawFrame(t, r, &layeredItems{}, true)
	require.NoError(t, r.Flush())
	assert.Empty(t, dev.Violations())
	assert.NotContains(t, ops(dev.LastSubmission()[0]), headless.OpResolve)
}

func TestBeginFrameWaitsForTheGPU(t *testing.T) {
	r, dev := newTestRenderer(t, 1)

	dev.Stall()
	for i := 0; i < 3; i++ {
		drawFrame(t, r, &layeredItems{}, false)
	}

	done := make(chan struct{})
	go func() {
		_, _ = r.BeginFrame()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("frame resource reused while the GPU still owns it")
	case <-time.After(20 * time.Millisecond):
	}

	dev.Resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BeginFrame did not return after the GPU caught up")
	}
	assert.Empty(t, dev.Violations())
}

func TestExecuteOneShotReleasesTransientResources(t *testing.T) {
	r, dev := newTestRenderer(t, 1)

	var staging metadata.Buffer
	err := r.ExecuteOneShot(func(cmd metadata.CommandList) ([]metadata.GPUResource, error) {
		var err error
		staging, err = dev.CreateBuffer(metadata.BufferDesc{Name: "staging", Size: 16, HostVisible: true})
		if err != nil {
			return nil, err
		}
		dst, err := dev.CreateBuffer(metadata.BufferDesc{Name: "dst", Size: 16})
		if err != nil {
			return nil, err
		}
		cmd.CopyBuffer(dst, staging, 16)
		return []metadata.GPUResource{staging, dst}, nil
	})
	require.NoError(t, err)

	assert.True(t, staging.(*headless.Buffer).Released())
	assert.Equal(t, 0, r.Releases().Len())
	assert.Empty(t, dev.Violations())
}

func TestResizeRecreatesTargets(t *testing.T) {
	r, dev := newTestRenderer(t, 4)
	drawFrame(t, r, &layeredItems{}, true)

	require.NoError(t, r.OnResize(128, 96))
	w, h := dev.Size()
	assert.Equal(t, uint32(128), w)
	assert.Equal(t, uint32(96), h)

	drawFrame(t, r, &layeredItems{}, true)
	drawFrame(t, r, &layeredItems{}, false)
	require.NoError(t, r.Flush())
	assert.Empty(t, dev.Violations())
	assert.Equal(t, uint32(128), r.msaa.RenderTarget().Desc().Width)
}

func TestZeroSizedResizeIsIgnored(t *testing.T) {
	r, dev := newTestRenderer(t, 1)
	require.NoError(t, r.OnResize(0, 0))
	w, h := dev.Size()
	assert.Equal(t, uint32(64), w)
	assert.Equal(t, uint32(32), h)
}

func TestParseRendererType(t *testing.T) {
	rt, err := ParseRendererType("Headless")
	require.NoError(t, err)
	assert.Equal(t, RendererTypeHeadless, rt)

	rt, err = ParseRendererType("")
	require.NoError(t, err)
	assert.Equal(t, RendererTypeVulkan, rt)

	_, err = ParseRendererType("metal")
	assert.Error(t, err)
}
