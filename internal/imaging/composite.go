package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CanvasSize returns the size of the canvas holding sizes stacked along
// axis: the sum of their extents by the largest cross extent.
func CanvasSize(sizes []image.Point, axis Axis) image.Point {
	extent := 0
	for _, s := range sizes {
		extent += axis.Extent(s)
	}
	return axis.Point(extent, TargetDimension(sizes, axis))
}

// CanvasPixels returns the pixel count of CanvasSize without risking int
// overflow on 32-bit platforms.
func CanvasPixels(sizes []image.Point, axis Axis) int64 {
	var extent int64
	for _, s := range sizes {
		extent += int64(axis.Extent(s))
	}
	return extent * int64(TargetDimension(sizes, axis))
}

// Composite stacks layers along axis, in order, on a canvas filled with bg.
//
// Each layer begins where the previous one ended along the axis and is
// centered across it when narrower than the canvas. Every layer pixel is
// flattened against bg, so with an opaque background the canvas is fully
// opaque.
func Composite(layers []*image.NRGBA, axis Axis, bg Background) *image.NRGBA {
	sizes := make([]image.Point, len(layers))
	for i, l := range layers {
		sizes[i] = l.Bounds().Size()
	}
	size := CanvasSize(sizes, axis)
	canvas := imaging.New(size.X, size.Y, bg.NRGBA())

	offset := 0
	for _, layer := range layers {
		ls := layer.Bounds().Size()
		centering := (axis.Cross(size) - axis.Cross(ls)) / 2
		origin := axis.Point(offset, centering)
		blit(canvas, layer, origin, bg)
		offset += axis.Extent(ls)
	}
	return canvas
}

// blit flattens src against bg and writes it into dst at origin.
func blit(dst, src *image.NRGBA, origin image.Point, bg Background) {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	for y := 0; y < h; y++ {
		si := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		di := dst.PixOffset(origin.X, origin.Y+y)
		for x := 0; x < w; x++ {
			s := src.Pix[si : si+4 : si+4]
			d := dst.Pix[di : di+4 : di+4]
			c := bg.Flatten(nrgbaAt(s))
			d[0], d[1], d[2], d[3] = c.R, c.G, c.B, c.A
			si += 4
			di += 4
		}
	}
}

func nrgbaAt(p []uint8) color.NRGBA {
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
