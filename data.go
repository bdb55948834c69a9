// Package main - data.go
//
// Core data structures shared across the helper:
//   - Geometric primitives (Point, Bounds) with distance/overlap operations
//   - GameState enumeration produced by the classifier
//   - DetectedObject and MatchResult, the per-frame perception results
//   - ScreenInfo with calibration-resolution scaling
//   - ActionResult, the success/reason value returned across component boundaries
//   - Pixel helpers (luminance, HSV conversion, point clustering)
//
// Perception results are value types created per call and owned by the
// caller. ScreenInfo is read-only after construction.
//
// Clustering Algorithm:
// clusterPoints implements a two-pass approach:
//  1. Sort by X coordinate and cluster within an X distance threshold
//  2. Within each X cluster, sort by Y and cluster within a Y threshold
//
// This produces bounding boxes around spatially close pixels (color-blob
// object candidates).
package main

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// Point represents a 2D coordinate in screen space.
type Point struct {
	X int
	Y int
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceSq returns the squared distance to another point. Used for
// nearest-object selection where only the ordering matters.
func (p Point) DistanceSq(other Point) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Bounds represents an axis-aligned rectangle in screen space.
type Bounds struct {
	X int // top-left x
	Y int // top-left y
	W int
	H int
}

// Center returns the center point of the bounds.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Area returns the area in pixels.
func (b Bounds) Area() int {
	return b.W * b.H
}

// Contains reports whether p lies within the bounds.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W &&
		p.Y >= b.Y && p.Y <= b.Y+b.H
}

// IoU returns the intersection-over-union with another bounds, in [0,1].
func (b Bounds) IoU(other Bounds) float64 {
	xi := max(b.X, other.X)
	yi := max(b.Y, other.Y)
	wi := min(b.X+b.W, other.X+other.W) - xi
	hi := min(b.Y+b.H, other.Y+other.H) - yi

	if wi <= 0 || hi <= 0 {
		return 0
	}

	intersection := wi * hi
	union := b.Area() + other.Area() - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// GameState is the coarse on-screen mode inferred per frame.
type GameState int

const (
	StateUnknown GameState = iota
	StateMainMenu
	StateLoading
	StateWorld
	StateMap
	StateInventory
	StateDialog
	StateCombat
	StateDomain
	StateCutscene
	StatePauseMenu
)

// String returns the state name.
func (s GameState) String() string {
	switch s {
	case StateMainMenu:
		return "main_menu"
	case StateLoading:
		return "loading"
	case StateWorld:
		return "world"
	case StateMap:
		return "map"
	case StateInventory:
		return "inventory"
	case StateDialog:
		return "dialog"
	case StateCombat:
		return "combat"
	case StateDomain:
		return "domain"
	case StateCutscene:
		return "cutscene"
	case StatePauseMenu:
		return "pause_menu"
	default:
		return "unknown"
	}
}

// DetectedObject is a located world object (chest, oculus, interaction
// prompt). Created per detection call; never mutated afterwards.
type DetectedObject struct {
	Kind       string
	Center     Point
	Size       Point // width in X, height in Y
	Confidence float64
}

// Bounds returns the bounding box centered on the detection.
func (d DetectedObject) Bounds() Bounds {
	return Bounds{
		X: d.Center.X - d.Size.X/2,
		Y: d.Center.Y - d.Size.Y/2,
		W: d.Size.X,
		H: d.Size.Y,
	}
}

// MatchResult is a located template instance. Size reflects the scale at
// which the match was found, not the template's native size.
type MatchResult struct {
	TemplateName string
	Confidence   float64 // normalized correlation score, clamped to [0,1]
	TopLeft      Point
	Center       Point
	Size         Point
}

// Bounds returns the match bounding box.
func (m MatchResult) Bounds() Bounds {
	return Bounds{X: m.TopLeft.X, Y: m.TopLeft.Y, W: m.Size.X, H: m.Size.Y}
}

// Calibration resolution every region constant is defined against.
const (
	calibrationWidth  = 1920
	calibrationHeight = 1080
)

// ScreenInfo holds the actual capture resolution and scales calibrated
// coordinates to it.
type ScreenInfo struct {
	Width  int
	Height int
	scaleX float64
	scaleY float64
}

// NewScreenInfo creates screen info for the given capture resolution.
func NewScreenInfo(width, height int) *ScreenInfo {
	return &ScreenInfo{
		Width:  width,
		Height: height,
		scaleX: float64(width) / calibrationWidth,
		scaleY: float64(height) / calibrationHeight,
	}
}

// Scale maps a point from calibration space to capture space.
func (si *ScreenInfo) Scale(baseX, baseY int) (int, int) {
	return int(float64(baseX) * si.scaleX), int(float64(baseY) * si.scaleY)
}

// ScaleBounds maps a region from calibration space to capture space.
func (si *ScreenInfo) ScaleBounds(base Bounds) Bounds {
	x, y := si.Scale(base.X, base.Y)
	return Bounds{
		X: x,
		Y: y,
		W: int(float64(base.W) * si.scaleX),
		H: int(float64(base.H) * si.scaleY),
	}
}

// Center returns the capture-space screen center.
func (si *ScreenInfo) Center() Point {
	return Point{X: si.Width / 2, Y: si.Height / 2}
}

// ActionResult is the success/reason value behaviors and actuation
// operations return. Expected failures (gated input, target not found)
// are values, not errors.
type ActionResult struct {
	Success bool
	Message string
}

func actionOK() ActionResult {
	return ActionResult{Success: true}
}

func actionOKMsg(msg string) ActionResult {
	return ActionResult{Success: true, Message: msg}
}

func actionFail(msg string) ActionResult {
	return ActionResult{Success: false, Message: msg}
}

// luminance returns the perceptual gray value of a pixel, 0..255.
func luminance(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// rgbToHSV converts a pixel to hue (degrees, [0,360)), saturation and
// value (both [0,1]).
func rgbToHSV(c color.RGBA) (h, s, v float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}

	if delta == 0 {
		return 0, s, v
	}
	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// clampRegion intersects a region with the image bounds. The second
// return is false when nothing of the region lies inside the frame.
func clampRegion(img *image.RGBA, region Bounds) (Bounds, bool) {
	b := img.Bounds()
	minX := max(region.X, b.Min.X)
	minY := max(region.Y, b.Min.Y)
	maxX := min(region.X+region.W, b.Max.X)
	maxY := min(region.Y+region.H, b.Max.Y)

	if maxX <= minX || maxY <= minY {
		return Bounds{}, false
	}
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}

// clusterPoints groups pixels into bounding boxes using the two-pass
// X-then-Y gap split described in the file header.
func clusterPoints(points []Point, distX, distY int) []Bounds {
	if len(points) == 0 {
		return nil
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var xClusters [][]Point
	current := []Point{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].X-sorted[i-1].X <= distX {
			current = append(current, sorted[i])
		} else {
			xClusters = append(xClusters, current)
			current = []Point{sorted[i]}
		}
	}
	xClusters = append(xClusters, current)

	var result []Bounds
	for _, xc := range xClusters {
		sort.Slice(xc, func(i, j int) bool { return xc[i].Y < xc[j].Y })

		yc := []Point{xc[0]}
		for i := 1; i < len(xc); i++ {
			if xc[i].Y-xc[i-1].Y <= distY {
				yc = append(yc, xc[i])
			} else {
				result = append(result, pointsToBounds(yc))
				yc = []Point{xc[i]}
			}
		}
		result = append(result, pointsToBounds(yc))
	}
	return result
}

// pointsToBounds returns the bounding box of a point set.
func pointsToBounds(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
