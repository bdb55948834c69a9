package main

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointDistance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}
	assert.InDelta(t, 5, a.Distance(b), 0.001)
	assert.Equal(t, 25, a.DistanceSq(b))
}

func TestBoundsCenterAndContains(t *testing.T) {
	b := Bounds{X: 10, Y: 20, W: 100, H: 50}
	assert.Equal(t, Point{X: 60, Y: 45}, b.Center())
	assert.True(t, b.Contains(Point{X: 10, Y: 20}))
	assert.True(t, b.Contains(Point{X: 110, Y: 70}))
	assert.False(t, b.Contains(Point{X: 111, Y: 70}))
}

func TestBoundsIoU(t *testing.T) {
	a := Bounds{X: 0, Y: 0, W: 10, H: 10}
	assert.InDelta(t, 1.0, a.IoU(a), 0.001)

	disjoint := Bounds{X: 100, Y: 100, W: 10, H: 10}
	assert.Equal(t, 0.0, a.IoU(disjoint))

	// Half-overlapping squares: intersection 50, union 150.
	half := Bounds{X: 5, Y: 0, W: 10, H: 10}
	assert.InDelta(t, 1.0/3.0, a.IoU(half), 0.001)
}

func TestScreenInfoScaling(t *testing.T) {
	si := NewScreenInfo(1280, 720)

	x, y := si.Scale(1920, 1080)
	assert.Equal(t, 1280, x)
	assert.Equal(t, 720, y)

	scaled := si.ScaleBounds(Bounds{X: 300, Y: 650, W: 1320, H: 150})
	assert.Equal(t, Bounds{X: 200, Y: 433, W: 880, H: 100}, scaled)

	assert.Equal(t, Point{X: 640, Y: 360}, si.Center())
}

func TestScreenInfoIdentityAtCalibration(t *testing.T) {
	si := NewScreenInfo(1920, 1080)
	x, y := si.Scale(55, 45)
	assert.Equal(t, 55, x)
	assert.Equal(t, 45, y)
}

func TestRGBToHSV(t *testing.T) {
	h, s, v := rgbToHSV(color.RGBA{R: 255, G: 0, B: 0, A: 255})
	assert.InDelta(t, 0, h, 0.5)
	assert.InDelta(t, 1, s, 0.001)
	assert.InDelta(t, 1, v, 0.001)

	h, s, v = rgbToHSV(color.RGBA{R: 0, G: 0, B: 255, A: 255})
	assert.InDelta(t, 240, h, 0.5)
	assert.InDelta(t, 1, s, 0.001)
	assert.InDelta(t, 1, v, 0.001)

	h, s, v = rgbToHSV(color.RGBA{R: 128, G: 128, B: 128, A: 255})
	assert.Equal(t, 0.0, h)
	assert.Equal(t, 0.0, s)
	assert.InDelta(t, 0.502, v, 0.001)
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 255, luminance(color.RGBA{R: 255, G: 255, B: 255, A: 255}), 0.5)
	assert.InDelta(t, 0, luminance(color.RGBA{A: 255}), 0.001)
	// Green dominates perceived brightness.
	g := luminance(color.RGBA{G: 255, A: 255})
	r := luminance(color.RGBA{R: 255, A: 255})
	assert.Greater(t, g, r)
}

func TestClampRegion(t *testing.T) {
	img := uniformFrame(100, 100, gray(0))

	clamped, ok := clampRegion(img, Bounds{X: -10, Y: -10, W: 50, H: 50})
	assert.True(t, ok)
	assert.Equal(t, Bounds{X: 0, Y: 0, W: 40, H: 40}, clamped)

	_, ok = clampRegion(img, Bounds{X: 200, Y: 200, W: 50, H: 50})
	assert.False(t, ok)
}

func TestDetectedObjectBounds(t *testing.T) {
	d := DetectedObject{Center: Point{X: 100, Y: 60}, Size: Point{X: 40, Y: 20}}
	assert.Equal(t, Bounds{X: 80, Y: 50, W: 40, H: 20}, d.Bounds())
}
