package headless

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

var ErrInFlight = errors.New("submissions still in flight")

type EventKind int

const (
	EventExecute EventKind = iota
	EventSignal
	EventComplete
	EventReset
	EventWait
	EventPresent
)

func (k EventKind) String() string {
	return [...]string{"execute", "signal", "complete", "reset", "wait", "present"}[k]
}

// Event is one entry of the device timeline log.
type Event struct {
	Kind  EventKind
	Value uint64
}

type Options struct {
	Width       uint32
	Height      uint32
	BackBuffers int
	// Latency delays the retirement of every submission.
	Latency time.Duration
}

// submission captures what a list referenced when it was executed, since the
// list itself may be reset and re-recorded before the GPU retires it.
type submission struct {
	alloc *CommandAllocator
	refs  []*base
}

type work struct {
	lists []submission
	fence *Fence
	value uint64
	done  chan struct{}
}

/**
 * @brief A graphics device without a GPU. Submissions retire on a separate
 * goroutine so fences behave like a real, independent GPU timeline. The device
 * validates the command stream (barrier source states, allocator resets, use of
 * released resources) and records violations instead of crashing.
 */
type Device struct {
	opts Options

	mu          sync.Mutex
	width       uint32
	height      uint32
	backBuffers []*Texture
	depth       *Texture
	current     int
	table       [metadata.TextureTableSize]metadata.Texture
	lastLists   [][]Command

	queue chan work
	wg    sync.WaitGroup

	stallMu   sync.Mutex
	stallCond *sync.Cond
	stalled   bool

	logMu      sync.Mutex
	events     []Event
	violations []string

	live     atomic.Int64
	inFlight atomic.Int32
	draws    atomic.Int64
	shutdown atomic.Bool
}

func New(opts Options) *Device {
	if opts.BackBuffers < 2 {
		opts.BackBuffers = 2
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 720
	}
	d := &Device{
		opts:  opts,
		queue: make(chan work, 256),
	}
	d.stallCond = sync.NewCond(&d.stallMu)
	d.createSwapchain(opts.Width, opts.Height)

	d.wg.Add(1)
	go d.run()
	core.LogDebug("headless device created (%dx%d, %d back buffers)", opts.Width, opts.Height, opts.BackBuffers)
	return d
}

// run is the simulated GPU.
func (d *Device) run() {
	defer d.wg.Done()
	for w := range d.queue {
		d.waitWhileStalled()
		if d.opts.Latency > 0 && len(w.lists) > 0 {
			time.Sleep(d.opts.Latency)
		}
		for _, sub := range w.lists {
			sub.alloc.pending.Add(-1)
			for _, r := range sub.refs {
				r.inFlight.Add(-1)
			}
			d.inFlight.Add(-1)
		}
		if w.fence != nil {
			w.fence.complete(w.value)
			d.log(EventComplete, w.value)
		}
		if w.done != nil {
			close(w.done)
		}
	}
}

func (d *Device) waitWhileStalled() {
	d.stallMu.Lock()
	for d.stalled {
		d.stallCond.Wait()
	}
	d.stallMu.Unlock()
}

// Stall stops the simulated GPU from retiring work until Resume.
func (d *Device) Stall() {
	d.stallMu.Lock()
	d.stalled = true
	d.stallMu.Unlock()
}

func (d *Device) Resume() {
	d.stallMu.Lock()
	d.stalled = false
	d.stallMu.Unlock()
	d.stallCond.Broadcast()
}

func (d *Device) log(kind EventKind, value uint64) {
	d.logMu.Lock()
	d.events = append(d.events, Event{Kind: kind, Value: value})
	d.logMu.Unlock()
}

func (d *Device) violation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	core.LogError("headless: %s", msg)
	d.logMu.Lock()
	d.violations = append(d.violations, msg)
	d.logMu.Unlock()
}

// Events returns a copy of the timeline log.
func (d *Device) Events() []Event {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	return append([]Event(nil), d.events...)
}

// Violations returns every protocol violation observed so far.
func (d *Device) Violations() []string {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	return append([]string(nil), d.violations...)
}

// LiveResources returns the number of created and not yet released resources.
func (d *Device) LiveResources() int {
	return int(d.live.Load())
}

// DrawCalls returns the number of draws executed so far.
func (d *Device) DrawCalls() int {
	return int(d.draws.Load())
}

// LastSubmission returns the commands of the most recent ExecuteCommandLists.
func (d *Device) LastSubmission() [][]Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastLists
}

// TextureTable returns the texture bound at slot.
func (d *Device) TextureTable(slot int) metadata.Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table[slot]
}

func (d *Device) createSwapchain(width, height uint32) {
	d.width, d.height = width, height
	d.backBuffers = make([]*Texture, d.opts.BackBuffers)
	for i := range d.backBuffers {
		d.backBuffers[i] = d.newTexture(metadata.TextureDesc{
			Name:         fmt.Sprintf("back-buffer-%d", i),
			Width:        width,
			Height:       height,
			MipLevels:    1,
			ArrayLayers:  1,
			Format:       metadata.FormatBGRA8Unorm,
			Samples:      1,
			Usage:        metadata.TextureUsageRenderTarget | metadata.TextureUsageTransferDst,
			InitialState: metadata.ResourceStatePresent,
		})
	}
	d.depth = d.newTexture(metadata.TextureDesc{
		Name:         "depth-stencil",
		Width:        width,
		Height:       height,
		MipLevels:    1,
		ArrayLayers:  1,
		Format:       metadata.FormatD24UnormS8,
		Samples:      1,
		Usage:        metadata.TextureUsageDepthStencil,
		InitialState: metadata.ResourceStateDepthWrite,
	})
	d.current = 0
}

func (d *Device) newTexture(desc metadata.TextureDesc) *Texture {
	t := &Texture{desc: desc, state: desc.InitialState}
	t.init(d, desc.Name)
	return t
}

func (d *Device) CreateCommandAllocator() (metadata.CommandAllocator, error) {
	a := &CommandAllocator{}
	a.init(d, "allocator")
	return a, nil
}

func (d *Device) CreateCommandList(alloc metadata.CommandAllocator) (metadata.CommandList, error) {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return nil, fmt.Errorf("allocator %T does not belong to the headless device", alloc)
	}
	return &CommandList{dev: d, alloc: a}, nil
}

func (d *Device) CreateFence(initial uint64) (metadata.Fence, error) {
	return newFence(d, initial), nil
}

func (d *Device) CreateBuffer(desc metadata.BufferDesc) (metadata.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %q: zero size", desc.Name)
	}
	b := &Buffer{desc: desc, data: make([]byte, desc.Size)}
	b.init(d, desc.Name)
	return b, nil
}

func (d *Device) CreateTexture(desc metadata.TextureDesc) (metadata.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q: zero extent", desc.Name)
	}
	if desc.Samples > d.Capabilities().MaxSamples {
		return nil, fmt.Errorf("texture %q: %d samples not supported", desc.Name, desc.Samples)
	}
	return d.newTexture(desc), nil
}

func (d *Device) CreatePipeline(desc metadata.PipelineDesc) (metadata.Pipeline, error) {
	p := &Pipeline{desc: desc}
	p.init(d, desc.Name)
	return p, nil
}

func (d *Device) UpdateTextureTable(slot int, tex metadata.Texture) error {
	if slot < 0 || slot >= metadata.TextureTableSize {
		return fmt.Errorf("texture slot %d out of range", slot)
	}
	if d.inFlight.Load() > 0 {
		d.violation("texture slot %d rebound with submissions in flight", slot)
	}
	d.mu.Lock()
	d.table[slot] = tex
	d.mu.Unlock()
	return nil
}

func (d *Device) ExecuteCommandLists(lists ...metadata.CommandList) error {
	if d.shutdown.Load() {
		return fmt.Errorf("%w: device shut down", core.ErrDeviceFatal)
	}
	w := work{lists: make([]submission, 0, len(lists))}
	submitted := make([][]Command, 0, len(lists))
	for _, list := range lists {
		l, ok := list.(*CommandList)
		if !ok {
			return fmt.Errorf("command list %T does not belong to the headless device", list)
		}
		if l.open {
			return fmt.Errorf("%w: executing a command list that is still recording", core.ErrDeviceFatal)
		}
		d.apply(l)
		sub := submission{alloc: l.alloc, refs: make([]*base, 0, len(l.refs))}
		sub.alloc.pending.Add(1)
		for _, r := range l.refs {
			r.inFlight.Add(1)
			sub.refs = append(sub.refs, r)
		}
		d.inFlight.Add(1)
		w.lists = append(w.lists, sub)
		submitted = append(submitted, l.Commands())
	}
	d.mu.Lock()
	d.lastLists = submitted
	d.mu.Unlock()
	d.log(EventExecute, uint64(len(lists)))
	d.queue <- w
	return nil
}

// apply replays the state affecting commands in submission order and
// validates them against the resource states they expect.
func (d *Device) apply(l *CommandList) {
	expect := func(op Op, r metadata.GPUResource, want metadata.ResourceState) {
		t, ok := r.(*Texture)
		if ok && t.state != want {
			d.violation("%s on %q in state %s, expected %s", op, t.name, t.state, want)
		}
	}
	for _, c := range l.commands {
		switch c.Op {
		case OpBarrier:
			for _, b := range c.Barriers {
				t, ok := b.Resource.(*Texture)
				if !ok {
					continue
				}
				if t.state != b.Before {
					d.violation("barrier on %q from %s but resource is %s", t.name, b.Before, t.state)
				}
				t.state = b.After
			}
		case OpClearColour:
			expect(c.Op, c.Dst, metadata.ResourceStateRenderTarget)
		case OpClearDepth:
			expect(c.Op, c.Dst, metadata.ResourceStateDepthWrite)
		case OpCopyTexture:
			expect(c.Op, c.Dst, metadata.ResourceStateCopyDest)
		case OpResolve:
			expect(c.Op, c.Src, metadata.ResourceStateResolveSource)
			expect(c.Op, c.Dst, metadata.ResourceStateResolveDest)
		case OpCopyBuffer:
			src, sok := c.Src.(*Buffer)
			dst, dok := c.Dst.(*Buffer)
			if sok && dok {
				data := src.Bytes()
				dst.mu.Lock()
				copy(dst.data, data[:min(c.Size, uint64(len(data)))])
				dst.mu.Unlock()
			}
		case OpDraw:
			d.draws.Add(1)
		}
	}
}

func (d *Device) Signal(fence metadata.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return fmt.Errorf("fence %T does not belong to the headless device", fence)
	}
	d.log(EventSignal, value)
	d.queue <- work{fence: f, value: value}
	return nil
}

func (d *Device) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	bb := d.backBuffers[d.current]
	if bb.state != metadata.ResourceStatePresent {
		d.violation("present of %q in state %s", bb.name, bb.state)
	}
	d.log(EventPresent, uint64(d.current))
	d.current = (d.current + 1) % len(d.backBuffers)
	return nil
}

func (d *Device) CurrentBackBuffer() metadata.Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backBuffers[d.current]
}

func (d *Device) CurrentBackBufferIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *Device) BackBufferCount() int {
	return d.opts.BackBuffers
}

func (d *Device) DepthStencil() metadata.Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth
}

func (d *Device) BackBufferFormat() metadata.TextureFormat {
	return metadata.FormatBGRA8Unorm
}

func (d *Device) DepthStencilFormat() metadata.TextureFormat {
	return metadata.FormatD24UnormS8
}

func (d *Device) Resize(width, height uint32) error {
	if n := d.inFlight.Load(); n > 0 {
		return fmt.Errorf("resize: %w (%d)", ErrInFlight, n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, bb := range d.backBuffers {
		bb.Release()
	}
	d.depth.Release()
	d.createSwapchain(width, height)
	return nil
}

func (d *Device) Size() (uint32, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *Device) Capabilities() metadata.DeviceCapabilities {
	return metadata.DeviceCapabilities{MaxSamples: 8, MinUniformAlign: 256}
}

func (d *Device) WaitIdle() error {
	if d.shutdown.Load() {
		return nil
	}
	done := make(chan struct{})
	d.queue <- work{done: done}
	<-done
	return nil
}

func (d *Device) Shutdown() error {
	if d.shutdown.Swap(true) {
		return nil
	}
	d.Resume()
	close(d.queue)
	d.wg.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, bb := range d.backBuffers {
		bb.Release()
	}
	d.depth.Release()
	return nil
}
