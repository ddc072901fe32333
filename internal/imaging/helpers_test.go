package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// pageColor returns busy, non-repeating content for a point on a page.
func pageColor(x, y, seed int) color.NRGBA {
	v := (x*37 ^ y*131 ^ seed*7919) % 251
	return color.NRGBA{R: uint8(v), G: uint8(v * 3 % 251), B: uint8(v * 7 % 251), A: 255}
}

// createPageImage renders rows [top, top+height) of a tall page, so two
// captures of overlapping ranges share identical rows.
func createPageImage(width, top, height, seed int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, pageColor(x, top+y, seed))
		}
	}
	return img
}

// createDocImage renders rows [top, top+height) of a white document with
// dark glyph runs on 16-pixel text lines. Different seeds give different
// text on the same line grid.
func createDocImage(width, top, height, seed int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	paper := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	ink := color.NRGBA{R: 30, G: 30, B: 40, A: 255}
	for y := 0; y < height; y++ {
		row := top + y
		line, inLine := row/16, row%16
		for x := 0; x < width; x++ {
			c := paper
			if inLine >= 4 && inLine < 12 && x >= 8 && x < width-8 {
				if glyphHash(x/3, line*2+inLine/8, seed)%3 == 0 {
					c = ink
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func glyphHash(x, y, seed int) uint32 {
	h := uint32(x)*2654435761 ^ uint32(y)*2246822519 ^ uint32(seed)*3266489917
	h ^= h >> 15
	h *= 2246822519
	h ^= h >> 13
	return h
}

// createBarImage renders busy content framed by solid bars at the top and
// bottom, like a screenshot with a toolbar and status bar.
func createBarImage(width, height, top, bottom, seed int) *image.NRGBA {
	img := createPageImage(width, 0, height, seed)
	bar := color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	for y := 0; y < height; y++ {
		if y >= top && y < height-bottom {
			continue
		}
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, bar)
		}
	}
	return img
}

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
