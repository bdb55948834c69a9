// Package main - controller.go
//
// Actuation. The Actuator interface is what the navigator and engine
// drive; RobotController implements it against the desktop client through
// robotgo, and browser.go provides the cloud-play implementation over the
// same gate logic.
//
// Gate invariants, enforced in inputState and shared by both backends:
//   - While paused or emergency-stopped, every input operation is a
//     failed no-op returning a reason, never an error.
//   - Pausing, stopping, and resetting force-release every held key. No
//     key stays down across a pause or stop.
//   - A failed hold still attempts the release, so a key is never left
//     down by an error path.
package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
)

// Game key bindings.
const (
	KeyForward  = "w"
	KeyBackward = "s"
	KeyLeft     = "a"
	KeyRight    = "d"
	KeyJump     = "space"
	KeyInteract = "f"
	KeySkill    = "e"
	KeyBurst    = "q"
	KeySprint   = "shift"
	KeyMap      = "m"
	KeyInventory = "b"
	KeyGadget   = "t"
	KeyEscape   = "escape"
)

// MouseButton selects which button a click uses.
type MouseButton string

const (
	MouseLeft   MouseButton = "left"
	MouseRight  MouseButton = "right"
	MouseCenter MouseButton = "center"
)

// Actuator is the input port every behavior drives. Implementations must
// honor the gate invariants documented in the file header.
type Actuator interface {
	PressKey(key string) ActionResult
	HoldKey(key string, duration time.Duration) ActionResult
	KeyDown(key string) ActionResult
	KeyUp(key string) ActionResult
	ReleaseAll()
	HeldKeys() []string

	MoveMouse(x, y int) ActionResult
	MoveMouseRelative(dx, dy int) ActionResult
	Click(button MouseButton) ActionResult
	ClickAt(x, y int, button MouseButton) ActionResult
	Drag(from, to Point) ActionResult
	Scroll(amount int) ActionResult
	TypeText(text string) ActionResult

	Pause()
	Resume()
	EmergencyStop()
	Reset()
	IsPaused() bool
	IsStopped() bool
}

// inputState carries the held-key set and the pause/stop gates. Both
// actuator backends embed it; the release callback lets the gate force
// keys up through whichever backend owns them.
type inputState struct {
	mu      sync.Mutex
	held    map[string]bool
	paused  bool
	stopped bool

	// releaseKey pushes a raw key-up to the backend. Set by the embedding
	// controller before use.
	releaseKey func(key string)
}

func newInputState(releaseKey func(string)) *inputState {
	return &inputState{
		held:       make(map[string]bool),
		releaseKey: releaseKey,
	}
}

// gate reports whether input may proceed. Callers hold no lock.
func (st *inputState) gate() (ActionResult, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stopped {
		return actionFail("input disabled: emergency stop active"), false
	}
	if st.paused {
		return actionFail("input disabled: paused"), false
	}
	return actionOK(), true
}

func (st *inputState) markHeld(key string) {
	st.mu.Lock()
	st.held[key] = true
	st.mu.Unlock()
}

func (st *inputState) markReleased(key string) {
	st.mu.Lock()
	delete(st.held, key)
	st.mu.Unlock()
}

// releaseAllLocked releases every held key through the backend callback.
// Safe when nothing is held.
func (st *inputState) releaseAll() {
	st.mu.Lock()
	keys := make([]string, 0, len(st.held))
	for k := range st.held {
		keys = append(keys, k)
	}
	st.held = make(map[string]bool)
	st.mu.Unlock()

	for _, k := range keys {
		st.releaseKey(k)
	}
}

// HeldKeys returns a sorted snapshot of currently held keys.
func (st *inputState) HeldKeys() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	keys := make([]string, 0, len(st.held))
	for k := range st.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pause blocks further input and releases every held key.
func (st *inputState) Pause() {
	st.mu.Lock()
	st.paused = true
	st.mu.Unlock()
	st.releaseAll()
	LogInfo("input paused, held keys released")
}

// Resume lifts the pause gate. A standing emergency stop still blocks.
func (st *inputState) Resume() {
	st.mu.Lock()
	st.paused = false
	st.mu.Unlock()
	LogInfo("input resumed")
}

// EmergencyStop blocks all input until Reset and releases held keys.
func (st *inputState) EmergencyStop() {
	st.mu.Lock()
	st.stopped = true
	st.mu.Unlock()
	st.releaseAll()
	LogWarn("emergency stop engaged")
}

// Reset clears both gates and releases anything still held.
func (st *inputState) Reset() {
	st.mu.Lock()
	st.paused = false
	st.stopped = false
	st.mu.Unlock()
	st.releaseAll()
	LogInfo("input gates reset")
}

// IsPaused reports the pause gate.
func (st *inputState) IsPaused() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.paused
}

// IsStopped reports the emergency-stop gate.
func (st *inputState) IsStopped() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stopped
}

// robotgo uses "esc"; everything else in our binding set matches.
var robotgoKeyNames = map[string]string{
	"escape": "esc",
}

func robotgoKey(key string) string {
	if mapped, ok := robotgoKeyNames[key]; ok {
		return mapped
	}
	return key
}

// RobotController drives the desktop client through robotgo. dryRun keeps
// all gate and held-key bookkeeping but skips the hardware calls.
type RobotController struct {
	*inputState
	actionDelay time.Duration
	dryRun      bool
}

// NewRobotController creates the native actuator.
func NewRobotController(actionDelay time.Duration, dryRun bool) *RobotController {
	c := &RobotController{
		actionDelay: actionDelay,
		dryRun:      dryRun,
	}
	c.inputState = newInputState(func(key string) {
		if !c.dryRun {
			_ = robotgo.KeyToggle(robotgoKey(key), "up")
		}
	})
	return c
}

// PressKey taps a key once.
func (c *RobotController) PressKey(key string) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("press %s", key)
	if c.dryRun {
		return actionOK()
	}
	if err := robotgo.KeyTap(robotgoKey(key)); err != nil {
		return actionFail(fmt.Sprintf("key tap %s: %v", key, err))
	}
	time.Sleep(c.actionDelay)
	return actionOK()
}

// HoldKey presses a key, waits, and releases it. The release runs even
// when the press failed.
func (c *RobotController) HoldKey(key string, duration time.Duration) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	down := c.KeyDown(key)
	time.Sleep(duration)
	up := c.KeyUp(key)
	if !down.Success {
		return down
	}
	return up
}

// KeyDown presses and holds a key.
func (c *RobotController) KeyDown(key string) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("key down %s", key)
	// Track before touching the hardware, so a concurrent release-all
	// landing mid-toggle still sees the key.
	c.markHeld(key)
	if !c.dryRun {
		if err := robotgo.KeyToggle(robotgoKey(key)); err != nil {
			c.markReleased(key)
			// The key may be partially registered; make sure it is up.
			_ = robotgo.KeyToggle(robotgoKey(key), "up")
			return actionFail(fmt.Sprintf("key down %s: %v", key, err))
		}
	}
	return actionOK()
}

// KeyUp releases a held key. Releasing a key that is not held succeeds.
func (c *RobotController) KeyUp(key string) ActionResult {
	c.markReleased(key)
	LogDebug("key up %s", key)
	if !c.dryRun {
		if err := robotgo.KeyToggle(robotgoKey(key), "up"); err != nil {
			return actionFail(fmt.Sprintf("key up %s: %v", key, err))
		}
	}
	return actionOK()
}

// ReleaseAll releases every held key regardless of gates. This is the one
// input path that works while paused or stopped.
func (c *RobotController) ReleaseAll() {
	c.releaseAll()
}

// MoveMouse moves the pointer to an absolute screen position.
func (c *RobotController) MoveMouse(x, y int) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	if !c.dryRun {
		robotgo.Move(x, y)
	}
	return actionOK()
}

// MoveMouseRelative moves the pointer by a delta. Camera control uses
// this.
func (c *RobotController) MoveMouseRelative(dx, dy int) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	if !c.dryRun {
		robotgo.MoveRelative(dx, dy)
	}
	return actionOK()
}

// Click clicks at the current pointer position.
func (c *RobotController) Click(button MouseButton) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("click %s", button)
	if !c.dryRun {
		robotgo.Click(string(button))
	}
	time.Sleep(c.actionDelay)
	return actionOK()
}

// ClickAt moves to a position and clicks there.
func (c *RobotController) ClickAt(x, y int, button MouseButton) ActionResult {
	if res := c.MoveMouse(x, y); !res.Success {
		return res
	}
	return c.Click(button)
}

// Drag presses at from, moves to to, and releases.
func (c *RobotController) Drag(from, to Point) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("drag (%d,%d) -> (%d,%d)", from.X, from.Y, to.X, to.Y)
	if c.dryRun {
		return actionOK()
	}
	robotgo.Move(from.X, from.Y)
	if err := robotgo.Toggle("left", "down"); err != nil {
		return actionFail(fmt.Sprintf("drag press: %v", err))
	}
	robotgo.MoveSmooth(to.X, to.Y)
	if err := robotgo.Toggle("left", "up"); err != nil {
		return actionFail(fmt.Sprintf("drag release: %v", err))
	}
	return actionOK()
}

// Scroll scrolls the wheel; positive is up.
func (c *RobotController) Scroll(amount int) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	if !c.dryRun {
		robotgo.Scroll(0, amount)
	}
	return actionOK()
}

// TypeText types a string.
func (c *RobotController) TypeText(text string) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	if !c.dryRun {
		robotgo.TypeStr(text)
	}
	return actionOK()
}
