package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Axis is the direction images are stacked along.
type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Extent returns the size of p along the axis.
func (a Axis) Extent(p image.Point) int {
	if a == Horizontal {
		return p.X
	}
	return p.Y
}

// Cross returns the size of p across the axis.
func (a Axis) Cross(p image.Point) int {
	if a == Horizontal {
		return p.Y
	}
	return p.X
}

// Point builds a size from an extent along the axis and a cross extent.
func (a Axis) Point(extent, cross int) image.Point {
	if a == Horizontal {
		return image.Pt(extent, cross)
	}
	return image.Pt(cross, extent)
}

// TargetDimension returns the shared cross extent every image is scaled to:
// the maximum width for Vertical, the maximum height for Horizontal.
func TargetDimension(sizes []image.Point, axis Axis) int {
	target := 0
	for _, s := range sizes {
		if c := axis.Cross(s); c > target {
			target = c
		}
	}
	return target
}

// ScaledSize returns size scaled so that its cross extent equals target,
// preserving aspect ratio. The extent along the axis is rounded half away
// from zero and never drops below 1.
//
// Example: 800x1000 scaled to width 1200 along Vertical is 1200x1500.
func ScaledSize(size image.Point, target int, axis Axis) image.Point {
	cross := axis.Cross(size)
	extent := axis.Extent(size)
	if cross <= 0 || extent <= 0 || target <= 0 {
		return image.Point{}
	}
	scaled := roundDiv(int64(extent)*int64(target), int64(cross))
	if scaled < 1 {
		scaled = 1
	}
	return axis.Point(int(scaled), target)
}

// roundDiv divides num by den rounding half away from zero.
func roundDiv(num, den int64) int64 {
	if den < 0 {
		num, den = -num, -den
	}
	if num < 0 {
		return -((-num*2 + den) / (den * 2))
	}
	return (num*2 + den) / (den * 2)
}

// Resize resamples img to size with the Lanczos filter. Images already at
// size are copied without resampling.
func Resize(img image.Image, size image.Point) *image.NRGBA {
	if img.Bounds().Size() == size {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, size.X, size.Y, imaging.Lanczos)
}
