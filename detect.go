// Package main - detect.go
//
// Color-blob detection of world objects. Scans a frame for pixels inside
// an HSV window, clusters the hits into bounding boxes, and filters the
// boxes by area and aspect ratio. Cheap and false-positive prone, which
// is why the results carry fixed low confidences and the navigator treats
// them as hints, not facts.
package main

import (
	"image"
)

// hsvWindow is a half-open hue range in degrees with saturation/value
// floors.
type hsvWindow struct {
	hueMin, hueMax float64
	satMin         float64
	valMin         float64
}

func (w hsvWindow) contains(h, s, v float64) bool {
	return h >= w.hueMin && h <= w.hueMax && s >= w.satMin && v >= w.valMin
}

// objectProfile describes one detectable object kind.
type objectProfile struct {
	kind       string
	window     hsvWindow
	minArea    int
	aspectMin  float64 // 0 disables the aspect filter
	aspectMax  float64
	confidence float64
}

var (
	chestProfile = objectProfile{
		kind:       "chest",
		window:     hsvWindow{hueMin: 30, hueMax: 60, satMin: 0.392, valMin: 0.392},
		minArea:    500,
		aspectMin:  0.5,
		aspectMax:  2.0,
		confidence: 0.5,
	}
	oculusProfile = objectProfile{
		kind:       "oculus",
		window:     hsvWindow{hueMin: 170, hueMax: 200, satMin: 0.588, valMin: 0.588},
		minArea:    200,
		confidence: 0.4,
	}
	promptWindow = hsvWindow{hueMin: 40, hueMax: 80, satMin: 0.392, valMin: 0.784}
)

// Pixel scan stride and cluster gap thresholds.
const (
	detectStride   = 2
	clusterGapX    = 8
	clusterGapY    = 8
	minPromptCount = 30
)

// ObjectDetector finds collectible world objects by color.
type ObjectDetector struct{}

// NewObjectDetector creates a detector.
func NewObjectDetector() *ObjectDetector {
	return &ObjectDetector{}
}

// DetectChests returns gold chest candidates in the frame.
func (od *ObjectDetector) DetectChests(img *image.RGBA) []DetectedObject {
	return od.detect(img, chestProfile)
}

// DetectOculi returns cyan oculus candidates in the frame.
func (od *ObjectDetector) DetectOculi(img *image.RGBA) []DetectedObject {
	return od.detect(img, oculusProfile)
}

// DetectAll returns chests and oculi in one pass order.
func (od *ObjectDetector) DetectAll(img *image.RGBA) []DetectedObject {
	out := od.DetectChests(img)
	return append(out, od.DetectOculi(img)...)
}

// HasInteractionPrompt reports whether the bright interaction hint is
// visible in its usual spot right of center.
func (od *ObjectDetector) HasInteractionPrompt(img *image.RGBA) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	region := Bounds{
		X: b.Min.X + int(0.45*float64(w)),
		Y: b.Min.Y + int(0.35*float64(h)),
		W: int(0.2 * float64(w)),
		H: int(0.3 * float64(h)),
	}
	region, ok := clampRegion(img, region)
	if !ok {
		return false
	}

	count := 0
	for y := region.Y; y < region.Y+region.H; y += detectStride {
		for x := region.X; x < region.X+region.W; x += detectStride {
			hh, s, v := rgbToHSV(img.RGBAAt(x, y))
			if promptWindow.contains(hh, s, v) {
				count++
				if count >= minPromptCount {
					return true
				}
			}
		}
	}
	return false
}

func (od *ObjectDetector) detect(img *image.RGBA, profile objectProfile) []DetectedObject {
	if img == nil {
		return nil
	}
	b := img.Bounds()

	var hits []Point
	for y := b.Min.Y; y < b.Max.Y; y += detectStride {
		for x := b.Min.X; x < b.Max.X; x += detectStride {
			h, s, v := rgbToHSV(img.RGBAAt(x, y))
			if profile.window.contains(h, s, v) {
				hits = append(hits, Point{X: x, Y: y})
			}
		}
	}
	if len(hits) == 0 {
		return nil
	}

	var out []DetectedObject
	for _, box := range clusterPoints(hits, clusterGapX, clusterGapY) {
		if box.Area() < profile.minArea {
			continue
		}
		if profile.aspectMin > 0 && box.H > 0 {
			aspect := float64(box.W) / float64(box.H)
			if aspect < profile.aspectMin || aspect > profile.aspectMax {
				continue
			}
		}
		out = append(out, DetectedObject{
			Kind:       profile.kind,
			Center:     box.Center(),
			Size:       Point{X: box.W, Y: box.H},
			Confidence: profile.confidence,
		})
	}
	return out
}
