package engine

import (
	"fmt"
	"image/png"
	"strings"

	"github.com/ironsheep/image-merge-mcp/internal/imaging"
)

// Direction selects how images are stacked.
type Direction string

const (
	DirectionVertical   Direction = "vertical"
	DirectionHorizontal Direction = "horizontal"
	// DirectionSmart stacks vertically and removes content repeated
	// between adjacent images.
	DirectionSmart Direction = "smart"
)

// ParseDirection parses a direction name. The empty string selects
// vertical.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", DirectionVertical:
		return DirectionVertical, nil
	case DirectionHorizontal:
		return DirectionHorizontal, nil
	case DirectionSmart:
		return DirectionSmart, nil
	}
	return "", fmt.Errorf("unknown direction %q (use vertical, horizontal or smart)", s)
}

// Axis returns the stacking axis. Smart merges stack vertically.
func (d Direction) Axis() imaging.Axis {
	if d == DirectionHorizontal {
		return imaging.Horizontal
	}
	return imaging.Vertical
}

// DefaultMaxOutputPixels bounds the composited canvas (16384 x 16384).
const DefaultMaxOutputPixels int64 = 1 << 28

// MinInputs is the fewest images a merge accepts.
const MinInputs = 2

// Options control a single merge. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	Direction          Direction
	Background         imaging.Background
	OverlapSensitivity int  // 0-100, used only by DirectionSmart
	StripChrome        bool // remove repeated headers and footers in smart merges
	// MaxOutputPixels rejects merges whose canvas would exceed this many
	// pixels. Zero or negative disables the check.
	MaxOutputPixels  int64
	CompressionLevel png.CompressionLevel
}

// DefaultOptions returns vertical stacking on opaque white with the
// default overlap sensitivity.
func DefaultOptions() Options {
	return Options{
		Direction:          DirectionVertical,
		Background:         imaging.White,
		OverlapSensitivity: imaging.DefaultSensitivity,
		StripChrome:        true,
		MaxOutputPixels:    DefaultMaxOutputPixels,
		CompressionLevel:   png.DefaultCompression,
	}
}

// normalized returns o with out-of-range values pulled into range. Unknown
// directions fall back to vertical.
func (o Options) normalized() Options {
	d, err := ParseDirection(string(o.Direction))
	if err != nil {
		d = DirectionVertical
	}
	o.Direction = d
	o.OverlapSensitivity = imaging.ClampSensitivity(o.OverlapSensitivity)
	return o
}
