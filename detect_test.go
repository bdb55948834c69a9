package main

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chestGold  = color.RGBA{R: 200, G: 150, B: 30, A: 255}  // hue ~42
	oculusCyan = color.RGBA{R: 30, G: 200, B: 210, A: 255}  // hue ~183
	promptHint = color.RGBA{R: 210, G: 210, B: 40, A: 255}  // hue 60, bright
)

func TestDetectChests(t *testing.T) {
	od := NewObjectDetector()
	frame := uniformFrame(400, 400, gray(60))
	fillRect(frame, Bounds{X: 100, Y: 150, W: 40, H: 30}, chestGold)

	chests := od.DetectChests(frame)
	require.Len(t, chests, 1)
	assert.Equal(t, "chest", chests[0].Kind)
	assert.InDelta(t, 120, chests[0].Center.X, 4)
	assert.InDelta(t, 165, chests[0].Center.Y, 4)
	assert.Equal(t, 0.5, chests[0].Confidence)
}

func TestDetectChestsRejectsBadAspect(t *testing.T) {
	od := NewObjectDetector()
	frame := uniformFrame(400, 400, gray(60))
	// A 120x20 streak: large enough by area, but 6:1 is not a chest.
	fillRect(frame, Bounds{X: 50, Y: 50, W: 120, H: 20}, chestGold)
	assert.Empty(t, od.DetectChests(frame))
}

func TestDetectChestsRejectsSmallBlobs(t *testing.T) {
	od := NewObjectDetector()
	frame := uniformFrame(400, 400, gray(60))
	fillRect(frame, Bounds{X: 50, Y: 50, W: 12, H: 12}, chestGold)
	assert.Empty(t, od.DetectChests(frame))
}

func TestDetectOculi(t *testing.T) {
	od := NewObjectDetector()
	frame := uniformFrame(400, 400, gray(60))
	fillRect(frame, Bounds{X: 200, Y: 80, W: 22, H: 22}, oculusCyan)

	oculi := od.DetectOculi(frame)
	require.Len(t, oculi, 1)
	assert.Equal(t, "oculus", oculi[0].Kind)
	assert.Equal(t, 0.4, oculi[0].Confidence)
}

func TestDetectAllSeparateClusters(t *testing.T) {
	od := NewObjectDetector()
	frame := uniformFrame(400, 400, gray(60))
	fillRect(frame, Bounds{X: 40, Y: 40, W: 40, H: 30}, chestGold)
	fillRect(frame, Bounds{X: 250, Y: 250, W: 22, H: 22}, oculusCyan)

	objects := od.DetectAll(frame)
	require.Len(t, objects, 2)
	kinds := []string{objects[0].Kind, objects[1].Kind}
	assert.Contains(t, kinds, "chest")
	assert.Contains(t, kinds, "oculus")
}

func TestHasInteractionPrompt(t *testing.T) {
	od := NewObjectDetector()

	frame := uniformFrame(1000, 1000, gray(60))
	assert.False(t, od.HasInteractionPrompt(frame))

	// Prompt region is x 450..650, y 350..650 on a 1000px frame.
	fillRect(frame, Bounds{X: 500, Y: 400, W: 50, H: 50}, promptHint)
	assert.True(t, od.HasInteractionPrompt(frame))
}

func TestHasInteractionPromptIgnoresOutsideRegion(t *testing.T) {
	od := NewObjectDetector()
	frame := uniformFrame(1000, 1000, gray(60))
	// Same hint color, far outside the probe region.
	fillRect(frame, Bounds{X: 50, Y: 50, W: 50, H: 50}, promptHint)
	assert.False(t, od.HasInteractionPrompt(frame))
}

func TestClusterPointsSplitsOnGaps(t *testing.T) {
	var points []Point
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			points = append(points, Point{X: x, Y: y})          // cluster A
			points = append(points, Point{X: x + 100, Y: y + 100}) // cluster B
		}
	}
	boxes := clusterPoints(points, 8, 8)
	require.Len(t, boxes, 2)
}

func TestNearestObject(t *testing.T) {
	objects := []DetectedObject{
		{Kind: "chest", Center: Point{X: 300, Y: 300}},
		{Kind: "oculus", Center: Point{X: 110, Y: 100}},
		{Kind: "chest", Center: Point{X: 500, Y: 10}},
	}
	got := nearestObject(objects, Point{X: 100, Y: 100})
	assert.Equal(t, "oculus", got.Kind)
}
