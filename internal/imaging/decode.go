package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
)

var (
	// ErrUnsupportedFormat is returned when the bytes are not one of the
	// supported formats (PNG, JPEG, GIF, WebP, TIFF).
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecodeFailed is returned when the format was recognized but the
	// data is truncated or structurally invalid.
	ErrDecodeFailed = errors.New("failed to decode image")
)

// Format identifies an image container format detected from content.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatTIFF    Format = "tiff"
	FormatHEIF    Format = "heif"
)

// Supported reports whether the format can be decoded.
func (f Format) Supported() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatGIF, FormatWebP, FormatTIFF:
		return true
	}
	return false
}

var (
	pngMagic    = []byte("\x89PNG\r\n\x1a\n")
	gif87Magic  = []byte("GIF87a")
	gif89Magic  = []byte("GIF89a")
	tiffLEMagic = []byte("II*\x00")
	tiffBEMagic = []byte("MM\x00*")
	heifBrands  = []string{"heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1"}
	riffFourCC  = []byte("RIFF")
	webpFourCC  = []byte("WEBP")
	ftypBoxType = []byte("ftyp")
)

// SniffFormat detects the image format from the leading bytes of data.
//
// The file name and any declared MIME type are ignored; only the content
// signature counts. HEIC/HEIF containers are reported as FormatHEIF so
// callers can produce a specific message, but they are not decodable.
func SniffFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case bytes.HasPrefix(data, gif87Magic), bytes.HasPrefix(data, gif89Magic):
		return FormatGIF
	case len(data) >= 12 && bytes.Equal(data[0:4], riffFourCC) && bytes.Equal(data[8:12], webpFourCC):
		return FormatWebP
	case bytes.HasPrefix(data, tiffLEMagic), bytes.HasPrefix(data, tiffBEMagic):
		return FormatTIFF
	case isHEIF(data):
		return FormatHEIF
	}
	return FormatUnknown
}

func isHEIF(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], ftypBoxType) {
		return false
	}
	brand := string(data[8:12])
	for _, b := range heifBrands {
		if brand == b {
			return true
		}
	}
	return false
}

// Raster is a decoded image together with the metadata the pipeline needs.
//
// Image always has its origin at (0,0). Orientation is the EXIF orientation
// declared by the source; after Normalize it is OrientationNormal and the
// pixel data is upright.
type Raster struct {
	Image       *image.NRGBA
	Format      Format
	Orientation Orientation
}

// Size returns the raster dimensions.
func (r *Raster) Size() image.Point {
	return r.Image.Bounds().Size()
}

// Decode sniffs and decodes raw image bytes into a Raster.
//
// Multi-frame GIFs and animated WebP files yield their first frame.
//
// # Errors
//
//   - ErrUnsupportedFormat if the content signature is not a supported format
//   - ErrDecodeFailed if the data is empty, truncated or corrupt
func Decode(data []byte) (*Raster, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecodeFailed)
	}

	format := SniffFormat(data)
	var decode func(io.Reader) (image.Image, error)
	switch format {
	case FormatPNG:
		decode = png.Decode
	case FormatJPEG:
		decode = jpeg.Decode
	case FormatGIF:
		decode = gif.Decode
	case FormatWebP:
		decode = decodeWebP
	case FormatTIFF:
		decode = tiff.Decode
	case FormatHEIF:
		return nil, fmt.Errorf("%w: HEIC/HEIF images are not supported", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: unrecognized image data", ErrUnsupportedFormat)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, format, err)
	}
	size := img.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrDecodeFailed, format)
	}

	return &Raster{
		Image:       imaging.Clone(img),
		Format:      format,
		Orientation: ReadOrientation(format, data),
	}, nil
}

// Info describes an image without the pixel data.
type Info struct {
	Format           Format `json:"format"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Orientation      int    `json:"orientation"`
	OrientationName  string `json:"orientation_name"`
	NormalizedWidth  int    `json:"normalized_width"`
	NormalizedHeight int    `json:"normalized_height"`
	HasAlpha         bool   `json:"has_alpha"`
}

// Inspect decodes data and reports its format, stored dimensions and the
// dimensions after orientation normalization.
func Inspect(data []byte) (*Info, error) {
	r, err := Decode(data)
	if err != nil {
		return nil, err
	}
	size := r.Size()
	normalized := size
	if r.Orientation.SwapsAxes() {
		normalized = image.Pt(size.Y, size.X)
	}
	return &Info{
		Format:           r.Format,
		Width:            size.X,
		Height:           size.Y,
		Orientation:      int(r.Orientation),
		OrientationName:  r.Orientation.String(),
		NormalizedWidth:  normalized.X,
		NormalizedHeight: normalized.Y,
		HasAlpha:         !r.Image.Opaque(),
	}, nil
}
