package frames

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/headless"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

type fixture struct {
	device   *headless.Device
	timeline *Timeline
	ring     *Ring
	cmd      metadata.CommandList
}

func newFixture(t *testing.T, opts headless.Options, frames int) *fixture {
	t.Helper()
	device := headless.New(opts)
	timeline, err := NewTimeline(device)
	require.NoError(t, err)
	ring, err := NewRing(device, timeline, RingConfig{Frames: frames, PassCount: 1, ObjectCount: 2, MaterialCount: 2})
	require.NoError(t, err)
	cmd, err := device.CreateCommandList(ring.Frames()[0].CmdListAlloc)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = timeline.Flush()
		ring.Release()
		timeline.Release()
		_ = device.Shutdown()
	})
	return &fixture{device: device, timeline: timeline, ring: ring, cmd: cmd}
}

// frame records a minimal frame that transitions the back buffer and back.
func (f *fixture) frame(t *testing.T) *FrameResource {
	t.Helper()
	fr, err := f.ring.Advance()
	require.NoError(t, err)
	require.NoError(t, f.ring.Begin(f.cmd))
	bb := f.device.CurrentBackBuffer()
	f.cmd.ResourceBarrier(metadata.Barrier{Resource: bb, Before: metadata.ResourceStatePresent, After: metadata.ResourceStateRenderTarget})
	f.cmd.ClearRenderTarget(bb, [4]float32{0, 0, 0, 1})
	f.cmd.ResourceBarrier(metadata.Barrier{Resource: bb, Before: metadata.ResourceStateRenderTarget, After: metadata.ResourceStatePresent})
	require.NoError(t, f.ring.Submit(f.cmd))
	return fr
}

func TestAllocatorsResetOnlyAfterTheirFenceCompleted(t *testing.T) {
	f := newFixture(t, headless.Options{BackBuffers: 2, Latency: 2 * time.Millisecond}, 3)
	for i := 0; i < 30; i++ {
		f.frame(t)
	}
	assert.Empty(t, f.device.Violations())
	assert.Equal(t, uint64(30), f.timeline.Current())
	for _, fr := range f.ring.Frames() {
		assert.Equal(t, 10, fr.CmdListAlloc.(*headless.CommandAllocator).Resets())
	}

	// every wait targets the fence of the slot about to be reused
	for _, e := range f.device.Events() {
		if e.Kind == headless.EventWait {
			assert.LessOrEqual(t, e.Value, uint64(30-3+1))
		}
	}
}

func TestSlotFencesAreMonotonic(t *testing.T) {
	f := newFixture(t, headless.Options{}, 3)
	var last uint64
	for i := 0; i < 9; i++ {
		fr := f.frame(t)
		assert.Equal(t, i%3, fr.Index)
		assert.Greater(t, fr.Fence, last)
		last = fr.Fence
	}
}

func TestAdvanceBlocksWhileSlotIsOwnedByGPU(t *testing.T) {
	f := newFixture(t, headless.Options{}, 3)
	f.device.Stall()
	for i := 0; i < 3; i++ {
		f.frame(t)
	}

	advanced := make(chan *FrameResource)
	go func() {
		fr, err := f.ring.Advance()
		assert.NoError(t, err)
		advanced <- fr
	}()
	select {
	case <-advanced:
		t.Fatal("advance reused a slot the GPU still owns")
	case <-time.After(30 * time.Millisecond):
	}

	f.device.Resume()
	select {
	case fr := <-advanced:
		assert.Equal(t, 0, fr.Index)
		assert.GreaterOrEqual(t, f.timeline.Completed(), fr.Fence)
	case <-time.After(time.Second):
		t.Fatal("advance did not return after the GPU caught up")
	}
	assert.Empty(t, f.device.Violations())
}

func TestBeginRefusesSlotInFlight(t *testing.T) {
	f := newFixture(t, headless.Options{}, 2)
	f.device.Stall()
	f.frame(t)
	f.frame(t)

	// the current slot was just submitted and has not completed
	err := f.ring.Begin(f.cmd)
	assert.ErrorIs(t, err, core.ErrSlotInFlight)
	assert.Empty(t, f.device.Violations())
	f.device.Resume()
}

func TestRingRejectsZeroFrames(t *testing.T) {
	device := headless.New(headless.Options{})
	defer device.Shutdown()
	timeline, err := NewTimeline(device)
	require.NoError(t, err)
	_, err = NewRing(device, timeline, RingConfig{Frames: 0})
	assert.Error(t, err)
}

func TestTimelineFlushDrainsQueue(t *testing.T) {
	f := newFixture(t, headless.Options{Latency: time.Millisecond}, 3)
	f.frame(t)
	f.frame(t)
	require.NoError(t, f.timeline.Flush())
	assert.Equal(t, f.timeline.Current(), f.timeline.Completed())
	assert.Equal(t, uint64(3), f.timeline.Current())
}

func TestUploadBufferPadsConstantElements(t *testing.T) {
	device := headless.New(headless.Options{})
	defer device.Shutdown()

	objects, err := NewUploadBuffer[metadata.ObjectConstants](device, "objects", 3, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), objects.ElementSize())
	assert.Equal(t, uint64(768), objects.Resource().Size())

	pass, err := NewUploadBuffer[metadata.PassConstants](device, "pass", 1, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pass.ElementSize()%256)

	materials, err := NewUploadBuffer[metadata.MaterialData](device, "materials", 2, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(binary.Size(metadata.MaterialData{})), materials.ElementSize())

	oc := metadata.DefaultObjectConstants()
	oc.MaterialIndex = 7
	require.NoError(t, objects.CopyData(1, oc))
	data := objects.Resource().(*headless.Buffer).Bytes()
	// world[0][0] of element 1 and the material index after both matrices
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[256:])))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(data[256+128:]))

	assert.Error(t, objects.CopyData(3, oc))
}

func TestReleaseQueueHonoursFences(t *testing.T) {
	q := NewReleaseQueue()
	var released []int
	q.Defer(2, func() { released = append(released, 2) })
	q.Defer(1, func() { released = append(released, 1) })
	q.Defer(5, func() { released = append(released, 5) })

	assert.Equal(t, 0, q.Collect(0))
	assert.Equal(t, 2, q.Collect(2))
	assert.ElementsMatch(t, []int{1, 2}, released)
	assert.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, 0, q.Len())
}
