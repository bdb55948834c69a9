// Package main - engine.go
//
// Guide execution. The engine walks a guide's steps through a dispatch
// table, checking control gates between phases so a pause or stop lands
// at a safe point rather than mid-keystroke.
//
// State machine:
//
//	Idle -> Running <-> Paused
//	Running -> Stopped | Completed | Error
//	any terminal -> Idle via Reset
//
// Per-iteration checkpoint order: stop check, pause block, wait-before,
// dispatch, wait-after, recovery on failure, advance (always), inter-step
// delay. A failed step never halts the run; recovery narrates what it did
// and the cursor moves on. Pausing or stopping forces every held key up
// through the actuator.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EngineState is the run lifecycle state.
type EngineState int

const (
	EngineIdle EngineState = iota
	EngineRunning
	EnginePaused
	EngineStopped
	EngineCompleted
	EngineError
)

func (s EngineState) String() string {
	switch s {
	case EngineRunning:
		return "running"
	case EnginePaused:
		return "paused"
	case EngineStopped:
		return "stopped"
	case EngineCompleted:
		return "completed"
	case EngineError:
		return "error"
	default:
		return "idle"
	}
}

// ProgressFunc receives step-by-step run progress.
type ProgressFunc func(index, total int, step GuideStep, result ActionResult)

// gameReadyTimeout bounds the pre-run wait for a usable game state.
const gameReadyTimeout = 60 * time.Second

// stopJoinTimeout bounds how long Stop waits for the loop to exit.
const stopJoinTimeout = 10 * time.Second

// Engine executes a guide against the navigator and actuator.
type Engine struct {
	guide     *Guide
	navigator *Navigator
	actuator  Actuator
	stepDelay time.Duration

	mu        sync.Mutex
	cond      *sync.Cond
	state     EngineState
	stepIndex int
	errMsg    string
	stopCh    chan struct{}
	doneCh    chan struct{}

	onProgress ProgressFunc

	dispatch map[ActionType]func(GuideStep) ActionResult
}

// NewEngine creates an idle engine for one guide run.
func NewEngine(guide *Guide, navigator *Navigator, actuator Actuator, stepDelay time.Duration) *Engine {
	e := &Engine{
		guide:     guide,
		navigator: navigator,
		actuator:  actuator,
		stepDelay: stepDelay,
		state:     EngineIdle,
	}
	e.cond = sync.NewCond(&e.mu)
	e.dispatch = map[ActionType]func(GuideStep) ActionResult{
		ActionMove:           e.doMove,
		ActionSprint:         e.doSprint,
		ActionSwim:           e.doMove,
		ActionJump:           func(GuideStep) ActionResult { return e.actuator.PressKey(KeyJump) },
		ActionClimb:          e.doClimb,
		ActionGlide:          e.doGlide,
		ActionPlunge:         func(GuideStep) ActionResult { return e.actuator.Click(MouseLeft) },
		ActionInteract:       e.doInteract,
		ActionAttack:         func(GuideStep) ActionResult { return e.actuator.Click(MouseLeft) },
		ActionChargedAttack:  e.doChargedAttack,
		ActionElementalSkill: func(GuideStep) ActionResult { return e.actuator.PressKey(KeySkill) },
		ActionElementalBurst: func(GuideStep) ActionResult { return e.actuator.PressKey(KeyBurst) },
		ActionTeleport:       e.doTeleport,
		ActionOpenMap:        func(GuideStep) ActionResult { return e.navigator.OpenMap() },
		ActionUseGadget:      func(GuideStep) ActionResult { return e.actuator.PressKey(KeyGadget) },
		ActionDialog:         func(GuideStep) ActionResult { return e.navigator.SkipDialog(dialogEndTimeout) },
		ActionWait:           e.doWait,
		ActionKeyPress:       e.doKeyPress,
		ActionMouseClick:     func(s GuideStep) ActionResult { return e.actuator.ClickAt(s.X, s.Y, MouseLeft) },
		ActionCustom:         e.doCustom,
	}
	return e
}

// OnProgress registers the progress callback. Call before Start.
func (e *Engine) OnProgress(fn ProgressFunc) {
	e.mu.Lock()
	e.onProgress = fn
	e.mu.Unlock()
}

// State returns the current lifecycle state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Progress returns the current step cursor and total step count.
func (e *Engine) Progress() (current, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepIndex, len(e.guide.Steps)
}

// ExecutionProgress is a point-in-time snapshot of a run, for status
// displays.
type ExecutionProgress struct {
	StepIndex   int
	TotalSteps  int
	Description string
	State       EngineState
	Err         string
}

// Snapshot returns the current run progress in one consistent read.
func (e *Engine) Snapshot() ExecutionProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := ExecutionProgress{
		StepIndex:  e.stepIndex,
		TotalSteps: len(e.guide.Steps),
		State:      e.state,
		Err:        e.errMsg,
	}
	if e.stepIndex < len(e.guide.Steps) {
		p.Description = e.guide.Steps[e.stepIndex].Label()
	}
	return p
}

// Start begins execution. Only an idle engine with a non-empty guide can
// start.
func (e *Engine) Start() error {
	if len(e.guide.Steps) == 0 {
		LogWarn("start requested with an empty guide, nothing to do")
		return fmt.Errorf("guide has no steps")
	}
	e.mu.Lock()
	if e.state != EngineIdle {
		state := e.state
		e.mu.Unlock()
		LogWarn("start requested while %s", state)
		return fmt.Errorf("cannot start from state %s", state)
	}
	e.state = EngineRunning
	e.stepIndex = 0
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	LogInfo("run starting: %d steps (%s)", len(e.guide.Steps), e.guide.Summary)
	go e.loop()
	return nil
}

// Pause suspends execution at the next checkpoint and releases all held
// keys immediately.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state == EngineRunning {
		e.state = EnginePaused
	}
	e.mu.Unlock()
	e.actuator.Pause()
	e.cond.Broadcast()
}

// Resume continues a paused run.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state == EnginePaused {
		e.state = EngineRunning
	}
	e.mu.Unlock()
	e.actuator.Resume()
	e.cond.Broadcast()
}

// Stop ends the run and waits for the loop goroutine to exit, bounded by
// stopJoinTimeout. Held keys are released immediately.
func (e *Engine) Stop() {
	e.mu.Lock()
	running := e.state == EngineRunning || e.state == EnginePaused
	if running {
		e.state = EngineStopped
		close(e.stopCh)
	}
	done := e.doneCh
	e.mu.Unlock()

	// A paused actuator still must release; Resume is not required first.
	e.actuator.ReleaseAll()
	e.cond.Broadcast()

	if running {
		if done != nil {
			select {
			case <-done:
			case <-time.After(stopJoinTimeout):
				LogWarn("run loop did not exit within %s", stopJoinTimeout)
			}
		}
		LogInfo("run stopped at step %d", e.stepIndexSnapshot())
	}
}

// Reset returns a terminal engine to idle. A running engine must be
// stopped first.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == EngineRunning || e.state == EnginePaused {
		return fmt.Errorf("cannot reset while %s", e.state)
	}
	e.state = EngineIdle
	e.stepIndex = 0
	e.errMsg = ""
	return nil
}

func (e *Engine) stepIndexSnapshot() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepIndex
}

func (e *Engine) setState(s EngineState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.cond.Broadcast()
}

// stopped reports whether the run has been stopped.
func (e *Engine) stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == EngineStopped
}

// pauseCheckpoint blocks while the engine is paused. Returns false when
// the run was stopped while waiting.
func (e *Engine) pauseCheckpoint() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.state == EnginePaused {
		e.cond.Wait()
	}
	return e.state == EngineRunning
}

// sleep waits for d or until the run is stopped, whichever comes first.
// Returns false on stop.
func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return !e.stopped()
	}
	select {
	case <-e.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

// loop is the run goroutine. A panic from a collaborator is the one
// engine-fatal path; everything else is a narrated recovery.
func (e *Engine) loop() {
	defer close(e.doneCh)
	defer func() {
		if r := recover(); r != nil {
			LogError("run loop panic: %v", r)
			e.actuator.ReleaseAll()
			e.mu.Lock()
			e.errMsg = fmt.Sprintf("panic: %v", r)
			e.mu.Unlock()
			e.setState(EngineError)
		}
	}()

	if res := e.navigator.WaitForState(gameReadyTimeout, StateWorld, StateMap); !res.Success {
		LogWarn("game not ready: %s, proceeding anyway", res.Message)
	}

	// A guide that opens with a teleport expects the map; open it up front
	// so the first step does not burn a retry on it.
	if first := e.guide.Steps[0]; first.Action == ActionTeleport &&
		e.navigator.CurrentState() == StateWorld {
		if res := e.navigator.OpenMap(); !res.Success {
			LogWarn("pre-run map open failed: %s", res.Message)
		}
	}

	total := len(e.guide.Steps)
	for {
		e.mu.Lock()
		idx := e.stepIndex
		e.mu.Unlock()
		if idx >= total {
			break
		}
		step := e.guide.Steps[idx]

		if e.stopped() {
			return
		}
		if !e.pauseCheckpoint() {
			return
		}
		if !e.sleep(secondsToDuration(step.WaitBefore)) {
			return
		}

		LogInfo("step %d/%d: %s", idx+1, total, step.Label())
		result := e.runStep(step)
		if !e.sleep(secondsToDuration(step.WaitAfter)) {
			return
		}

		if !result.Success {
			LogWarn("step %d failed: %s", idx+1, result.Message)
			e.recover(step)
		}

		e.notifyProgress(idx, total, step, result)

		// The cursor always advances. A stuck guide is worse than a
		// skipped step; the operator sees the failure in the log.
		e.mu.Lock()
		e.stepIndex++
		e.mu.Unlock()

		if !e.sleep(e.stepDelay) {
			return
		}
	}

	e.actuator.ReleaseAll()
	e.setState(EngineCompleted)
	LogInfo("run completed: %d/%d steps", total, total)
}

func (e *Engine) notifyProgress(idx, total int, step GuideStep, result ActionResult) {
	e.mu.Lock()
	fn := e.onProgress
	e.mu.Unlock()
	if fn != nil {
		fn(idx, total, step, result)
	}
}

// runStep dispatches one step, honoring its repeat count. An action with
// no dedicated handler routes to the generic custom handler.
func (e *Engine) runStep(step GuideStep) ActionResult {
	handler, ok := e.dispatch[step.Action]
	if !ok {
		LogWarn("no handler for action %s, using generic fallback", step.Action)
		handler = e.doCustom
	}

	result := handler(step)
	for i := 0; i < step.Repeat && result.Success; i++ {
		if e.stopped() || !e.pauseCheckpoint() {
			return result
		}
		result = handler(step)
	}
	return result
}

// recover tries to return the game to a runnable state after a failed
// step. Every branch narrates what it did; the step is not retried.
func (e *Engine) recover(step GuideStep) {
	state := e.navigator.CurrentState()
	LogInfo("recovery after %s failure, state %s", step.Action, state)

	switch state {
	case StateDialog:
		if res := e.navigator.SkipDialog(dialogEndTimeout); !res.Success {
			LogWarn("recovery: dialog skip failed: %s", res.Message)
		} else {
			LogInfo("recovery: cleared dialog")
		}
	case StateMap:
		if res := e.navigator.CloseMap(); !res.Success {
			LogWarn("recovery: map close failed: %s", res.Message)
		} else {
			LogInfo("recovery: closed map")
		}
	case StateLoading:
		LogInfo("recovery: loading screen, settling")
		e.sleep(3 * time.Second)
	default:
		// Same fallback as an unmapped step: narrate the scene, then try
		// a plain interact to clear whatever overlay is up.
		if e.navigator.vision != nil {
			e.describeForOperator()
		}
		if res := e.actuator.PressKey(KeyInteract); !res.Success {
			LogWarn("recovery: fallback interact failed: %s", res.Message)
		}
	}
}

// describeForOperator asks the vision assistant what is on screen so the
// log tells the operator where the run went sideways.
func (e *Engine) describeForOperator() {
	frame, res := e.navigator.capture()
	if !res.Success {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	desc, err := e.navigator.vision.DescribeScene(ctx, frame.img)
	if err != nil {
		LogWarn("recovery: scene description failed: %v", err)
		return
	}
	LogInfo("recovery: scene: %s", desc)
}

// Step handlers.

var directionKeys = map[string]string{
	"forward":  KeyForward,
	"backward": KeyBackward,
	"left":     KeyLeft,
	"right":    KeyRight,
}

func (e *Engine) doMove(step GuideStep) ActionResult {
	key, ok := directionKeys[step.Direction]
	if !ok {
		return actionFail(fmt.Sprintf("unknown direction %q", step.Direction))
	}
	return e.actuator.HoldKey(key, secondsToDuration(step.Duration))
}

// doSprint moves with the sprint modifier held. The modifier release runs
// regardless of how the move went.
func (e *Engine) doSprint(step GuideStep) ActionResult {
	key, ok := directionKeys[step.Direction]
	if !ok {
		return actionFail(fmt.Sprintf("unknown direction %q", step.Direction))
	}
	if res := e.actuator.KeyDown(KeySprint); !res.Success {
		return res
	}
	moveRes := e.actuator.HoldKey(key, secondsToDuration(step.Duration))
	upRes := e.actuator.KeyUp(KeySprint)
	if !moveRes.Success {
		return moveRes
	}
	return upRes
}

func (e *Engine) doClimb(step GuideStep) ActionResult {
	return e.actuator.HoldKey(KeyForward, secondsToDuration(step.Duration))
}

// doGlide opens the glider, rides it for the duration, then closes it.
func (e *Engine) doGlide(step GuideStep) ActionResult {
	if res := e.actuator.PressKey(KeyJump); !res.Success {
		return res
	}
	if res := e.actuator.HoldKey(KeyForward, secondsToDuration(step.Duration)); !res.Success {
		return res
	}
	return e.actuator.PressKey(KeyJump)
}

// doChargedAttack holds the attack button by dragging in place.
func (e *Engine) doChargedAttack(GuideStep) ActionResult {
	frame, res := e.navigator.capture()
	if !res.Success {
		return res
	}
	center := frame.screen.Center()
	return e.actuator.Drag(center, center)
}

func (e *Engine) doInteract(step GuideStep) ActionResult {
	target := step.Target
	if target == "" {
		target = "interactable object"
	}
	return e.navigator.ApproachAndInteract(target, 5)
}

func (e *Engine) doTeleport(step GuideStep) ActionResult {
	return e.navigator.TeleportToLocation(step.Target)
}

func (e *Engine) doWait(step GuideStep) ActionResult {
	if !e.sleep(secondsToDuration(step.Duration)) {
		return actionFail("wait interrupted by stop")
	}
	return actionOK()
}

// doKeyPress taps the step's key, or holds it for the duration when the
// step asks for a hold.
func (e *Engine) doKeyPress(step GuideStep) ActionResult {
	if step.HoldKey {
		d := secondsToDuration(step.Duration)
		if d <= 0 {
			d = 500 * time.Millisecond
		}
		return e.actuator.HoldKey(step.Key, d)
	}
	return e.actuator.PressKey(step.Key)
}

// doCustom is the generic handler: press an explicit key when the step
// names one, approach a described target when one is given, otherwise
// narrate the scene and try a plain interact.
func (e *Engine) doCustom(step GuideStep) ActionResult {
	if step.Key != "" {
		return e.actuator.PressKey(step.Key)
	}
	if step.Target != "" {
		return e.navigator.ApproachAndInteract(step.Target, 5)
	}
	LogInfo("custom step: %s", step.Description)
	if e.navigator.vision != nil {
		e.describeForOperator()
	}
	return e.actuator.PressKey(KeyInteract)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
