// Package main - classifier.go
//
// Per-frame game state classification. Each probe inspects a fixed region
// (calibrated at 1920x1080 and scaled to the live resolution) and the
// first probe that fires wins. The order is significant: a loading screen
// also looks dark enough to trip the pause-menu probe, so loading runs
// first; the minimap variance probe is deliberately last because almost
// any busy frame passes it.
//
// Classification never returns an error. A frame we cannot make sense of
// is StateUnknown and the caller decides what to do about it.
package main

import (
	"image"
	"math"
)

// Probe thresholds, calibrated against 1920x1080 captures.
const (
	loadingMeanMax   = 30.0
	dialogMeanMin    = 20.0
	dialogMeanMax    = 80.0
	mapBlueRatioMin  = 0.15
	pauseMeanMin     = 40.0
	pauseMeanMax     = 70.0
	minimapStddevMin = 30.0

	// Frames smaller than this carry no usable signal.
	minFrameWidth  = 320
	minFrameHeight = 180

	// Pixel sampling stride for full-region statistics.
	probeStride = 2
)

// Calibration-space probe regions.
var (
	dialogRegion  = Bounds{X: 300, Y: 650, W: 1320, H: 150}
	minimapRegion = Bounds{X: 55, Y: 45, W: 210, H: 200}
)

// StateClassifier infers the coarse game state from a single frame.
type StateClassifier struct{}

// NewStateClassifier creates a classifier.
func NewStateClassifier() *StateClassifier {
	return &StateClassifier{}
}

// Classify returns the state of the given frame.
func (sc *StateClassifier) Classify(img *image.RGBA) GameState {
	if img == nil {
		return StateUnknown
	}
	b := img.Bounds()
	if b.Dx() < minFrameWidth || b.Dy() < minFrameHeight {
		return StateUnknown
	}

	si := NewScreenInfo(b.Dx(), b.Dy())

	switch {
	case sc.isLoading(img):
		return StateLoading
	case sc.isDialog(img, si):
		return StateDialog
	case sc.isMap(img):
		return StateMap
	case sc.isPauseMenu(img):
		return StatePauseMenu
	case sc.isMainMenu(img):
		return StateMainMenu
	case sc.isWorld(img, si):
		return StateWorld
	default:
		return StateUnknown
	}
}

// isLoading: near-black full frame.
func (sc *StateClassifier) isLoading(img *image.RGBA) bool {
	region := Bounds{
		X: img.Bounds().Min.X,
		Y: img.Bounds().Min.Y,
		W: img.Bounds().Dx(),
		H: img.Bounds().Dy(),
	}
	mean, _ := regionLuminanceStats(img, region)
	return mean < loadingMeanMax
}

// isDialog: the bottom subtitle band sits in a dim but not black range
// while a dialog box is up.
func (sc *StateClassifier) isDialog(img *image.RGBA, si *ScreenInfo) bool {
	region, ok := clampRegion(img, si.ScaleBounds(dialogRegion))
	if !ok {
		return false
	}
	mean, _ := regionLuminanceStats(img, region)
	return mean > dialogMeanMin && mean < dialogMeanMax
}

// isMap: the map fills the screen with its signature blue. Sampling the
// center third avoids the sidebar and marker clutter at the edges.
func (sc *StateClassifier) isMap(img *image.RGBA) bool {
	b := img.Bounds()
	region := Bounds{
		X: b.Min.X + b.Dx()/3,
		Y: b.Min.Y + b.Dy()/3,
		W: b.Dx() / 3,
		H: b.Dy() / 3,
	}
	region, ok := clampRegion(img, region)
	if !ok {
		return false
	}

	var blue, total int
	for y := region.Y; y < region.Y+region.H; y += probeStride {
		for x := region.X; x < region.X+region.W; x += probeStride {
			h, s, v := rgbToHSV(img.RGBAAt(x, y))
			total++
			if h >= 180 && h <= 260 && s >= 0.15 && s <= 0.60 && v >= 0.55 {
				blue++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(blue)/float64(total) > mapBlueRatioMin
}

// isPauseMenu: the pause overlay dims the whole frame into a narrow
// mid-dark band.
func (sc *StateClassifier) isPauseMenu(img *image.RGBA) bool {
	region := Bounds{
		X: img.Bounds().Min.X,
		Y: img.Bounds().Min.Y,
		W: img.Bounds().Dx(),
		H: img.Bounds().Dy(),
	}
	mean, _ := regionLuminanceStats(img, region)
	return mean > pauseMeanMin && mean < pauseMeanMax
}

// isMainMenu: no reliable pixel signature has been calibrated for the
// title screen yet, so this probe never fires. Kept in the chain so a
// future implementation cannot reorder the other outcomes.
func (sc *StateClassifier) isMainMenu(*image.RGBA) bool {
	return false
}

// isWorld: in open world the minimap corner shows terrain detail, which
// reads as high luminance variance. Menus and overlays flatten it.
func (sc *StateClassifier) isWorld(img *image.RGBA, si *ScreenInfo) bool {
	region, ok := clampRegion(img, si.ScaleBounds(minimapRegion))
	if !ok {
		return false
	}
	_, stddev := regionLuminanceStats(img, region)
	return stddev > minimapStddevMin
}

// regionLuminanceStats returns the mean and standard deviation of the
// luminance over a region, sampled at probeStride.
func regionLuminanceStats(img *image.RGBA, region Bounds) (mean, stddev float64) {
	var sum, sumSq float64
	var n int
	for y := region.Y; y < region.Y+region.H; y += probeStride {
		for x := region.X; x < region.X+region.W; x += probeStride {
			l := luminance(img.RGBAAt(x, y))
			sum += l
			sumSq += l * l
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
