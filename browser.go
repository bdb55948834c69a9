// Package main - browser.go
//
// Cloud-play backend. BrowserSession owns the chromedp contexts for a
// browser-streamed game session: it captures frames from the page and
// dispatches synthetic KeyboardEvent/MouseEvent input to the game canvas.
// BrowserController wraps the session behind the Actuator interface with
// the same gate semantics as the native controller.
//
// Timeouts: navigation 60s, screenshot 5s, input evaluate 2s. A timed-out
// operation is reported and retried on the next loop iteration rather
// than tearing the session down.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	xdraw "golang.org/x/image/draw"
)

// BrowserSession manages the chromedp browser for a cloud-play game.
type BrowserSession struct {
	url         string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowserSession creates a session pointed at the cloud-play URL.
func NewBrowserSession(url string) *BrowserSession {
	return &BrowserSession{url: url}
}

// Start launches the browser and navigates to the game.
func (b *BrowserSession) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 720),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		LogDebug(format, args...)
	}))

	LogInfo("navigating to %s", b.url)
	navCtx, navCancel := context.WithTimeout(b.ctx, 60*time.Second)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(b.url)); err != nil {
		return fmt.Errorf("navigate %s: %w", b.url, err)
	}
	LogInfo("cloud-play session ready")
	return nil
}

// CanvasReady reports whether the game canvas is present in the page.
func (b *BrowserSession) CanvasReady() bool {
	if b.ctx == nil || b.ctx.Err() != nil {
		return false
	}
	checkCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()

	var exists bool
	err := chromedp.Run(checkCtx,
		chromedp.Evaluate(`document.querySelector('canvas') !== null`, &exists),
	)
	return err == nil && exists
}

// Capture screenshots the page. Implements FrameSource.
func (b *BrowserSession) Capture() (*image.RGBA, error) {
	if b.ctx == nil || b.ctx.Err() != nil {
		return nil, fmt.Errorf("browser context is invalid")
	}

	captureCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(captureCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	xdraw.Copy(rgba, bounds.Min, img, bounds, xdraw.Src, nil)
	return rgba, nil
}

// eval runs a JS snippet against the page with a short timeout.
func (b *BrowserSession) eval(script string) error {
	if b.ctx == nil || b.ctx.Err() != nil {
		return fmt.Errorf("browser context is invalid")
	}
	evalCtx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	return chromedp.Run(evalCtx, chromedp.Evaluate(script, nil))
}

// Close tears the session down.
func (b *BrowserSession) Close() {
	LogInfo("closing browser session")
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// jsKeyFor maps our binding names to KeyboardEvent key/code pairs.
func jsKeyFor(key string) (jsKey, jsCode string) {
	switch key {
	case "space":
		return " ", "Space"
	case "shift":
		return "Shift", "ShiftLeft"
	case "escape":
		return "Escape", "Escape"
	default:
		if len(key) == 1 {
			return key, "Key" + strings.ToUpper(key)
		}
		return key, key
	}
}

// keyEventScript builds a KeyboardEvent dispatch targeting the canvas.
func keyEventScript(eventType, key string) string {
	jsKey, jsCode := jsKeyFor(key)
	return fmt.Sprintf(`(function() {
		const el = document.querySelector('canvas') || document.body;
		el.dispatchEvent(new KeyboardEvent(%q, {
			key: %q, code: %q, bubbles: true, cancelable: true
		}));
	})()`, eventType, jsKey, jsCode)
}

// mouseEventScript builds a MouseEvent dispatch at page coordinates.
func mouseEventScript(eventType string, x, y, button int) string {
	return fmt.Sprintf(`(function() {
		const el = document.querySelector('canvas') || document.body;
		el.dispatchEvent(new MouseEvent(%q, {
			clientX: %d, clientY: %d, button: %d,
			bubbles: true, cancelable: true
		}));
	})()`, eventType, x, y, button)
}

func jsMouseButton(button MouseButton) int {
	switch button {
	case MouseRight:
		return 2
	case MouseCenter:
		return 1
	default:
		return 0
	}
}

// BrowserController drives the cloud-play session behind the Actuator
// interface.
type BrowserController struct {
	*inputState
	session     *BrowserSession
	actionDelay time.Duration

	// Last synthetic pointer position, for Click without coordinates.
	lastX, lastY int
}

// NewBrowserController wraps a started session as an actuator.
func NewBrowserController(session *BrowserSession, actionDelay time.Duration) *BrowserController {
	c := &BrowserController{
		session:     session,
		actionDelay: actionDelay,
	}
	c.inputState = newInputState(func(key string) {
		if err := c.session.eval(keyEventScript("keyup", key)); err != nil {
			LogWarn("forced keyup %s failed: %v", key, err)
		}
	})
	return c
}

// PressKey taps a key by dispatching keydown then keyup.
func (c *BrowserController) PressKey(key string) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("press %s", key)
	if err := c.session.eval(keyEventScript("keydown", key)); err != nil {
		return actionFail(fmt.Sprintf("key tap %s: %v", key, err))
	}
	time.Sleep(30 * time.Millisecond)
	if err := c.session.eval(keyEventScript("keyup", key)); err != nil {
		return actionFail(fmt.Sprintf("key tap %s: %v", key, err))
	}
	time.Sleep(c.actionDelay)
	return actionOK()
}

// HoldKey holds a key for the duration. Release runs even on failure.
func (c *BrowserController) HoldKey(key string, duration time.Duration) ActionResult {
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
func (c *BrowserController) KeyDown(key string) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("key down %s", key)
	// Track before dispatching, so a concurrent release-all landing
	// mid-eval still sees the key.
	c.markHeld(key)
	if err := c.session.eval(keyEventScript("keydown", key)); err != nil {
		c.markReleased(key)
		_ = c.session.eval(keyEventScript("keyup", key))
		return actionFail(fmt.Sprintf("key down %s: %v", key, err))
	}
	return actionOK()
}

// KeyUp releases a held key.
func (c *BrowserController) KeyUp(key string) ActionResult {
	c.markReleased(key)
	LogDebug("key up %s", key)
	if err := c.session.eval(keyEventScript("keyup", key)); err != nil {
		return actionFail(fmt.Sprintf("key up %s: %v", key, err))
	}
	return actionOK()
}

// ReleaseAll releases every held key regardless of gates.
func (c *BrowserController) ReleaseAll() {
	c.releaseAll()
}

// MoveMouse dispatches a mousemove at the position.
func (c *BrowserController) MoveMouse(x, y int) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	if err := c.session.eval(mouseEventScript("mousemove", x, y, 0)); err != nil {
		return actionFail(fmt.Sprintf("mouse move: %v", err))
	}
	c.lastX, c.lastY = x, y
	return actionOK()
}

// MoveMouseRelative moves the synthetic pointer by a delta.
func (c *BrowserController) MoveMouseRelative(dx, dy int) ActionResult {
	return c.MoveMouse(c.lastX+dx, c.lastY+dy)
}

// Click clicks at the last pointer position.
func (c *BrowserController) Click(button MouseButton) ActionResult {
	return c.ClickAt(c.lastX, c.lastY, button)
}

// ClickAt dispatches mousedown, mouseup, click at the position.
func (c *BrowserController) ClickAt(x, y int, button MouseButton) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("click %s at (%d,%d)", button, x, y)
	btn := jsMouseButton(button)
	for _, ev := range []string{"mousedown", "mouseup", "click"} {
		if err := c.session.eval(mouseEventScript(ev, x, y, btn)); err != nil {
			return actionFail(fmt.Sprintf("click: %v", err))
		}
	}
	c.lastX, c.lastY = x, y
	time.Sleep(c.actionDelay)
	return actionOK()
}

// Drag presses at from, moves to to, and releases.
func (c *BrowserController) Drag(from, to Point) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	LogDebug("drag (%d,%d) -> (%d,%d)", from.X, from.Y, to.X, to.Y)
	if err := c.session.eval(mouseEventScript("mousedown", from.X, from.Y, 0)); err != nil {
		return actionFail(fmt.Sprintf("drag press: %v", err))
	}
	steps := 8
	for i := 1; i <= steps; i++ {
		x := from.X + (to.X-from.X)*i/steps
		y := from.Y + (to.Y-from.Y)*i/steps
		if err := c.session.eval(mouseEventScript("mousemove", x, y, 0)); err != nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := c.session.eval(mouseEventScript("mouseup", to.X, to.Y, 0)); err != nil {
		return actionFail(fmt.Sprintf("drag release: %v", err))
	}
	c.lastX, c.lastY = to.X, to.Y
	return actionOK()
}

// Scroll dispatches a wheel event; positive scrolls up.
func (c *BrowserController) Scroll(amount int) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	script := fmt.Sprintf(`(function() {
		const el = document.querySelector('canvas') || document.body;
		el.dispatchEvent(new WheelEvent('wheel', {
			clientX: %d, clientY: %d, deltaY: %d,
			bubbles: true, cancelable: true
		}));
	})()`, c.lastX, c.lastY, -amount*100)
	if err := c.session.eval(script); err != nil {
		return actionFail(fmt.Sprintf("scroll: %v", err))
	}
	return actionOK()
}

// TypeText types a string one key tap at a time.
func (c *BrowserController) TypeText(text string) ActionResult {
	if res, ok := c.gate(); !ok {
		return res
	}
	for _, r := range text {
		if res := c.PressKey(string(r)); !res.Success {
			return res
		}
	}
	return actionOK()
}
