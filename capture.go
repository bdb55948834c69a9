// Package main - capture.go
//
// Frame acquisition. FrameSource is the single contract perception code
// consumes; DisplayCapture implements it for the desktop client, and the
// browser session in browser.go implements it for cloud play.
package main

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// FrameSource produces screen frames for perception.
type FrameSource interface {
	// Capture returns the current frame. The image is owned by the
	// caller and never reused by the source.
	Capture() (*image.RGBA, error)
}

// DisplayCapture grabs frames from a physical display.
type DisplayCapture struct {
	display int
}

// NewDisplayCapture creates a capture source for the given display index.
func NewDisplayCapture(display int) (*DisplayCapture, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	if display < 0 || display >= n {
		return nil, fmt.Errorf("display %d out of range (have %d)", display, n)
	}
	return &DisplayCapture{display: display}, nil
}

// Capture grabs the full display.
func (dc *DisplayCapture) Capture() (*image.RGBA, error) {
	bounds := screenshot.GetDisplayBounds(dc.display)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", dc.display, err)
	}
	return img, nil
}
