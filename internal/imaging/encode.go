package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
)

// MIMEType is the media type of every merged image.
const MIMEType = "image/png"

// EncodePNG encodes img losslessly as PNG at the given compression level.
func EncodePNG(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCompression maps a compression name to a PNG compression level.
// Accepted names are "default", "none", "speed" and "best"; the empty
// string means "default".
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return png.DefaultCompression, fmt.Errorf("unknown compression %q (use default, none, speed or best)", name)
}
