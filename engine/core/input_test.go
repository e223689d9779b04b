package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputFiresOnlyOnChange(t *testing.T) {
	bus := NewEventBus()
	var pressed []KeyCode
	require.True(t, bus.Register(EVENT_CODE_KEY_PRESSED, t, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		pressed = append(pressed, data.Key)
		return true
	}))
	in := NewInput(bus)

	in.ProcessKey(KEY_W, true)
	in.ProcessKey(KEY_W, true)
	assert.Equal(t, []KeyCode{KEY_W}, pressed)
	assert.True(t, in.IsKeyDown(KEY_W))
	assert.False(t, in.WasKeyDown(KEY_W))

	in.Update()
	assert.True(t, in.WasKeyDown(KEY_W))
	in.ProcessKey(KEY_W, false)
	assert.True(t, in.IsKeyUp(KEY_W))
}

func TestMouseMoveCarriesHeldButtons(t *testing.T) {
	bus := NewEventBus()
	var last EventContext
	bus.Register(EVENT_CODE_MOUSE_MOVED, t, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		last = data
		return false
	})
	in := NewInput(bus)
	in.ProcessButton(BUTTON_LEFT, true)
	in.ProcessMouseMove(10, 20)

	assert.Equal(t, int32(10), last.X)
	assert.Equal(t, int32(20), last.Y)
	assert.True(t, last.Buttons[BUTTON_LEFT])
	assert.False(t, last.Buttons[BUTTON_RIGHT])
}

func TestEventBusRegistration(t *testing.T) {
	bus := NewEventBus()
	listener := struct{ name string }{"a"}
	handled := 0
	cb := func(code SystemEventCode, sender interface{}, data EventContext) bool {
		handled++
		return true
	}
	require.True(t, bus.Register(EVENT_CODE_RESIZED, listener, cb))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, listener, cb))

	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{Width: 800, Height: 600}))
	assert.Equal(t, 1, handled)

	require.True(t, bus.Unregister(EVENT_CODE_RESIZED, listener))
	assert.False(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}))
}

func TestSetLogLevel(t *testing.T) {
	assert.NoError(t, SetLogLevel("debug"))
	assert.Error(t, SetLogLevel("chatty"))
	assert.NoError(t, SetLogLevel("info"))
}
