package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The gate tests run the native controller in dry-run mode, which keeps
// the full held-key and gate bookkeeping without touching the OS input
// layer.

func newDryController() *RobotController {
	return NewRobotController(0, true)
}

func TestHeldKeyTracking(t *testing.T) {
	c := newDryController()

	require.True(t, c.KeyDown(KeyForward).Success)
	require.True(t, c.KeyDown(KeySprint).Success)
	assert.Equal(t, []string{"shift", "w"}, c.HeldKeys())

	require.True(t, c.KeyUp(KeyForward).Success)
	assert.Equal(t, []string{"shift"}, c.HeldKeys())

	// Releasing an unheld key is a success, not a failure.
	assert.True(t, c.KeyUp(KeyForward).Success)
}

func TestPauseReleasesHeldKeysAndGatesInput(t *testing.T) {
	c := newDryController()
	require.True(t, c.KeyDown(KeyForward).Success)

	c.Pause()
	assert.Empty(t, c.HeldKeys())
	assert.True(t, c.IsPaused())

	for _, res := range []ActionResult{
		c.PressKey(KeyJump),
		c.KeyDown(KeyForward),
		c.HoldKey(KeyForward, time.Millisecond),
		c.MoveMouse(10, 10),
		c.Click(MouseLeft),
		c.ClickAt(5, 5, MouseLeft),
		c.Scroll(1),
		c.TypeText("hi"),
		c.Drag(Point{}, Point{X: 5, Y: 5}),
	} {
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "paused")
	}
	assert.Empty(t, c.HeldKeys())

	c.Resume()
	assert.True(t, c.PressKey(KeyJump).Success)
}

func TestEmergencyStopBlocksUntilReset(t *testing.T) {
	c := newDryController()
	require.True(t, c.KeyDown(KeyForward).Success)

	c.EmergencyStop()
	assert.Empty(t, c.HeldKeys())
	assert.True(t, c.IsStopped())

	res := c.PressKey(KeyJump)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "emergency stop")

	// Resume alone does not lift an emergency stop.
	c.Resume()
	assert.False(t, c.PressKey(KeyJump).Success)

	c.Reset()
	assert.True(t, c.PressKey(KeyJump).Success)
}

func TestKeyDownVisibleToConcurrentReleaseAll(t *testing.T) {
	// A key going down must be in the held set before the backend call,
	// so a release-all racing the press never strands it. Run the pair
	// repeatedly; the race detector checks the bookkeeping.
	c := newDryController()
	for i := 0; i < 200; i++ {
		done := make(chan struct{})
		go func() {
			c.KeyDown(KeyForward)
			close(done)
		}()
		c.ReleaseAll()
		<-done
		c.KeyUp(KeyForward)
		assert.Empty(t, c.HeldKeys())
	}
}

func TestReleaseAllSafeWhenNothingHeld(t *testing.T) {
	c := newDryController()
	assert.NotPanics(t, func() { c.ReleaseAll() })
	assert.Empty(t, c.HeldKeys())
}

func TestHoldKeyReleasesOnCompletion(t *testing.T) {
	c := newDryController()
	res := c.HoldKey(KeyForward, time.Millisecond)
	assert.True(t, res.Success)
	assert.Empty(t, c.HeldKeys())
}

func TestRobotgoKeyMapping(t *testing.T) {
	assert.Equal(t, "esc", robotgoKey("escape"))
	assert.Equal(t, "w", robotgoKey("w"))
	assert.Equal(t, "space", robotgoKey("space"))
}
