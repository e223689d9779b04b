package headless

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

type base struct {
	id       uuid.UUID
	name     string
	dev      *Device
	inFlight atomic.Int32
	released atomic.Bool
}

func (b *base) init(dev *Device, name string) {
	b.id = uuid.New()
	b.name = name
	b.dev = dev
	dev.live.Add(1)
}

func (b *base) ID() uuid.UUID { return b.id }

func (b *base) Name() string { return b.name }

func (b *base) Released() bool { return b.released.Load() }

func (b *base) release() {
	if b.released.Swap(true) {
		return
	}
	if n := b.inFlight.Load(); n > 0 {
		b.dev.violation("%s %q released while %d submissions still read it", b.id, b.name, n)
	}
	b.dev.live.Add(-1)
}

func (b *base) ref() *base { return b }

type referenced interface {
	ref() *base
}

type Buffer struct {
	base
	desc metadata.BufferDesc
	mu   sync.Mutex
	data []byte
}

func (b *Buffer) Size() uint64 { return b.desc.Size }

func (b *Buffer) Release() { b.release() }

func (b *Buffer) Write(offset uint64, data []byte) error {
	if !b.desc.HostVisible {
		return fmt.Errorf("buffer %q is not host visible", b.name)
	}
	if b.Released() {
		return fmt.Errorf("buffer %q written after release", b.name)
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, b.name, b.desc.Size)
	}
	b.mu.Lock()
	copy(b.data[offset:], data)
	b.mu.Unlock()
	return nil
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

type Texture struct {
	base
	desc metadata.TextureDesc
	// state as seen by the executed command stream
	state metadata.ResourceState
}

func (t *Texture) Desc() metadata.TextureDesc { return t.desc }

func (t *Texture) Release() { t.release() }

type Pipeline struct {
	base
	desc metadata.PipelineDesc
}

func (p *Pipeline) Desc() metadata.PipelineDesc { return p.desc }

func (p *Pipeline) Release() { p.release() }

type CommandAllocator struct {
	base
	// lists recorded from this allocator that the GPU has not retired yet
	pending atomic.Int32
	resets  atomic.Int32
}

func (a *CommandAllocator) Release() { a.release() }

func (a *CommandAllocator) Reset() error {
	if n := a.pending.Load(); n > 0 {
		a.dev.violation("allocator %s reset with %d submissions in flight", a.id, n)
		return fmt.Errorf("allocator %s: %d submissions in flight", a.id, n)
	}
	a.resets.Add(1)
	a.dev.log(EventReset, 0)
	return nil
}

// Resets returns how many times the allocator was reset.
func (a *CommandAllocator) Resets() int {
	return int(a.resets.Load())
}

type Fence struct {
	base
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
}

func newFence(dev *Device, initial uint64) *Fence {
	f := &Fence{completed: initial}
	f.init(dev, "fence")
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Fence) Release() { f.release() }

func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *Fence) Wait(value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed < value {
		f.dev.log(EventWait, value)
	}
	for f.completed < value {
		f.cond.Wait()
	}
	return nil
}

func (f *Fence) complete(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}
