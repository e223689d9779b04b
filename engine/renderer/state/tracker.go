package state

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

type entry struct {
	resource metadata.GPUResource
	initial  metadata.ResourceState
	current  metadata.ResourceState
	staged   metadata.ResourceState
}

/**
 * @brief Tracks the state of GPU resources across command recording. States
 * are staged with RecordState and emitted as barriers by UpdateState, one
 * barrier per resource whose staged state differs from its current state.
 * The tracker is owned by the render goroutine and is not safe for concurrent use.
 */
type Tracker struct {
	entries map[uuid.UUID]*entry
	// registration order, so barriers are emitted deterministically
	order []uuid.UUID
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[uuid.UUID]*entry)}
}

// Track starts tracking r in the given state, which is also the state
// RestoreState returns it to. Tracking an already known resource resets it.
func (t *Tracker) Track(r metadata.GPUResource, initial metadata.ResourceState) {
	id := r.ID()
	if _, ok := t.entries[id]; !ok {
		t.order = append(t.order, id)
	}
	t.entries[id] = &entry{resource: r, initial: initial, current: initial, staged: initial}
}

// IsTracked reports whether r is known to the tracker.
func (t *Tracker) IsTracked(r metadata.GPUResource) bool {
	_, ok := t.entries[r.ID()]
	return ok
}

// RecordState stages the state r must be in for the next commands.
func (t *Tracker) RecordState(r metadata.GPUResource, s metadata.ResourceState) error {
	e, ok := t.entries[r.ID()]
	if !ok {
		return fmt.Errorf("resource %s is not tracked", r.ID())
	}
	e.staged = s
	return nil
}

// UpdateState records a barrier for every resource whose staged state differs
// from its current one, then commits the staged states. It returns the
// number of barriers emitted.
func (t *Tracker) UpdateState(cmd metadata.CommandList) int {
	var barriers []metadata.Barrier
	for _, id := range t.order {
		e := t.entries[id]
		if e.staged == e.current {
			continue
		}
		barriers = append(barriers, metadata.Barrier{Resource: e.resource, Before: e.current, After: e.staged})
		e.current = e.staged
	}
	if len(barriers) > 0 {
		cmd.ResourceBarrier(barriers...)
	}
	return len(barriers)
}

// RestoreState stages every resource back to the state it was tracked with
// and emits the barriers. The back buffer is tracked as Present, so this is
// the last call before closing a frame's command list.
func (t *Tracker) RestoreState(cmd metadata.CommandList) int {
	for _, e := range t.entries {
		e.staged = e.initial
	}
	return t.UpdateState(cmd)
}

// State returns the committed state of r.
func (t *Tracker) State(r metadata.GPUResource) (metadata.ResourceState, bool) {
	e, ok := t.entries[r.ID()]
	if !ok {
		return metadata.ResourceStateCommon, false
	}
	return e.current, true
}

// Forget stops tracking r, typically right before it is released.
func (t *Tracker) Forget(r metadata.GPUResource) {
	id := r.ID()
	if _, ok := t.entries[id]; !ok {
		return
	}
	delete(t.entries, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of tracked resources.
func (t *Tracker) Len() int {
	return len(t.entries)
}
