package imaging

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Background is the RGBA color the merge canvas is filled with and that
// transparent pixels are flattened against.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type Background struct {
	R uint8 `json:"r" yaml:"r"` // Red component (0-255)
	G uint8 `json:"g" yaml:"g"` // Green component (0-255)
	B uint8 `json:"b" yaml:"b"` // Blue component (0-255)
	A uint8 `json:"a" yaml:"a"` // Alpha/opacity component (0-255)
}

var (
	White       = Background{R: 255, G: 255, B: 255, A: 255}
	Black       = Background{A: 255}
	Transparent = Background{}
)

// NRGBA returns the background as a non-premultiplied color.
func (b Background) NRGBA() color.NRGBA {
	return color.NRGBA{R: b.R, G: b.G, B: b.B, A: b.A}
}

// Opaque reports whether the background has full alpha.
func (b Background) Opaque() bool {
	return b.A == 255
}

// Hex formats the background as "#RRGGBB", or "#RRGGBBAA" when it is not
// fully opaque.
func (b Background) Hex() string {
	if b.Opaque() {
		return fmt.Sprintf("#%02X%02X%02X", b.R, b.G, b.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", b.R, b.G, b.B, b.A)
}

func (b Background) String() string {
	return b.Hex()
}

// ParseBackground parses a background color.
//
// Accepted forms:
//   - "#RGB" and "#RRGGBB" (opaque)
//   - "#RRGGBBAA" (explicit alpha)
//   - the names "white", "black" and "transparent"
//
// The leading '#' is optional.
func ParseBackground(s string) (Background, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return Background{}, fmt.Errorf("empty color string")
	case "white":
		return White, nil
	case "black":
		return Black, nil
	case "transparent":
		return Transparent, nil
	}

	hex := strings.TrimPrefix(s, "#")
	alpha := uint8(255)
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Background{}, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = uint8(a)
		hex = hex[:6]
	}
	if len(hex) != 3 && len(hex) != 6 {
		return Background{}, fmt.Errorf("invalid color %q: expected #RGB, #RRGGBB or #RRGGBBAA", s)
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return Background{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Background{R: r, G: g, B: b, A: alpha}, nil
}

// Flatten composites c over the background.
//
// Color channels use integer source-over blending with rounding:
//
//	out = (src*a + bg*(255-a) + 127) / 255
//
// and the output alpha is a + bgA*(255-a)/255, so an opaque background
// always yields an opaque pixel.
func (b Background) Flatten(c color.NRGBA) color.NRGBA {
	switch c.A {
	case 255:
		return c
	case 0:
		return b.NRGBA()
	}
	a := uint32(c.A)
	inv := 255 - a
	return color.NRGBA{
		R: uint8((uint32(c.R)*a + uint32(b.R)*inv + 127) / 255),
		G: uint8((uint32(c.G)*a + uint32(b.G)*inv + 127) / 255),
		B: uint8((uint32(c.B)*a + uint32(b.B)*inv + 127) / 255),
		A: uint8(a + (uint32(b.A)*inv+127)/255),
	}
}
