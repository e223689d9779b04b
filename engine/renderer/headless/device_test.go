package headless

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

func newDevice(t *testing.T) *Device {
	t.Helper()
	d := New(Options{Width: 64, Height: 32, BackBuffers: 2})
	t.Cleanup(func() { _ = d.Shutdown() })
	return d
}

func TestFenceCompletesAfterStallIsLifted(t *testing.T) {
	d := newDevice(t)
	fence, err := d.CreateFence(0)
	require.NoError(t, err)

	d.Stall()
	require.NoError(t, d.Signal(fence, 1))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, uint64(0), fence.CompletedValue())

	done := make(chan struct{})
	go func() {
		_ = fence.Wait(1)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("wait returned while the GPU is stalled")
	case <-time.After(20 * time.Millisecond):
	}

	d.Resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after resume")
	}
	assert.Equal(t, uint64(1), fence.CompletedValue())
}

func TestAllocatorResetWhileInFlightIsAViolation(t *testing.T) {
	d := newDevice(t)
	alloc, err := d.CreateCommandAllocator()
	require.NoError(t, err)
	cmd, err := d.CreateCommandList(alloc)
	require.NoError(t, err)

	d.Stall()
	require.NoError(t, cmd.Reset(alloc))
	require.NoError(t, cmd.Close())
	require.NoError(t, d.ExecuteCommandLists(cmd))

	assert.Error(t, alloc.Reset())
	assert.Len(t, d.Violations(), 1)

	d.Resume()
	require.NoError(t, d.WaitIdle())
	assert.NoError(t, alloc.Reset())
}

func TestBarrierValidation(t *testing.T) {
	d := newDevice(t)
	alloc, _ := d.CreateCommandAllocator()
	cmd, _ := d.CreateCommandList(alloc)
	bb := d.CurrentBackBuffer()

	require.NoError(t, cmd.Reset(alloc))
	cmd.ResourceBarrier(metadata.Barrier{Resource: bb, Before: metadata.ResourceStatePresent, After: metadata.ResourceStateRenderTarget})
	cmd.ClearRenderTarget(bb, [4]float32{0, 0, 0, 1})
	cmd.ResourceBarrier(metadata.Barrier{Resource: bb, Before: metadata.ResourceStateRenderTarget, After: metadata.ResourceStatePresent})
	require.NoError(t, cmd.Close())
	require.NoError(t, d.ExecuteCommandLists(cmd))
	require.NoError(t, d.Present())
	assert.Empty(t, d.Violations())
	assert.Equal(t, 1, d.CurrentBackBufferIndex())

	// wrong source state
	require.NoError(t, cmd.Reset(alloc))
	cmd.ClearRenderTarget(d.CurrentBackBuffer(), [4]float32{})
	require.NoError(t, cmd.Close())
	require.NoError(t, d.ExecuteCommandLists(cmd))
	assert.Len(t, d.Violations(), 1)
}

func TestReleasingReferencedBufferIsAViolation(t *testing.T) {
	d := newDevice(t)
	alloc, _ := d.CreateCommandAllocator()
	cmd, _ := d.CreateCommandList(alloc)
	buf, err := d.CreateBuffer(metadata.BufferDesc{Name: "vb", Size: 64, Usage: metadata.BufferUsageVertex})
	require.NoError(t, err)
	live := d.LiveResources()

	d.Stall()
	require.NoError(t, cmd.Reset(alloc))
	cmd.SetVertexBuffer(buf, 32)
	require.NoError(t, cmd.Close())
	require.NoError(t, d.ExecuteCommandLists(cmd))
	buf.Release()
	assert.Len(t, d.Violations(), 1)
	assert.Equal(t, live-1, d.LiveResources())
	d.Resume()
}

func TestHostVisibleWrites(t *testing.T) {
	d := newDevice(t)
	upload, err := d.CreateBuffer(metadata.BufferDesc{Name: "upload", Size: 8, HostVisible: true})
	require.NoError(t, err)
	require.NoError(t, upload.Write(4, []byte{1, 2, 3, 4}))
	assert.Error(t, upload.Write(6, []byte{1, 2, 3}))

	local, _ := d.CreateBuffer(metadata.BufferDesc{Name: "local", Size: 8})
	assert.Error(t, local.Write(0, []byte{1}))
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, upload.(*Buffer).Bytes())
}

func TestResizeRequiresIdleDevice(t *testing.T) {
	d := newDevice(t)
	old := d.CurrentBackBuffer()
	require.NoError(t, d.Resize(128, 64))
	w, h := d.Size()
	assert.Equal(t, uint32(128), w)
	assert.Equal(t, uint32(64), h)
	assert.NotEqual(t, old.ID(), d.CurrentBackBuffer().ID())
	assert.True(t, old.(*Texture).Released())
}
