package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropEdges removes lead pixels from the leading edge and trail pixels from
// the trailing edge of img along axis. For Vertical the leading edge is the
// top; for Horizontal it is the left.
//
// The cross extent is never changed. At least one pixel must remain along
// the axis.
func CropEdges(img image.Image, axis Axis, lead, trail int) (*image.NRGBA, error) {
	bounds := img.Bounds()
	extent := axis.Extent(bounds.Size())

	if lead < 0 || trail < 0 {
		return nil, fmt.Errorf("invalid crop: negative trim (%d,%d)", lead, trail)
	}
	if lead+trail >= extent {
		return nil, fmt.Errorf("crop of %d+%d pixels leaves nothing of %d along %s axis",
			lead, trail, extent, axis)
	}

	rect := bounds
	switch axis {
	case Horizontal:
		rect.Min.X += lead
		rect.Max.X -= trail
	default:
		rect.Min.Y += lead
		rect.Max.Y -= trail
	}
	return imaging.Crop(img, rect), nil
}
