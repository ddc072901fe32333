package imaging

import (
	"bytes"
	"encoding/binary"
	"image"

	"github.com/disintegration/imaging"
)

// Orientation is an EXIF orientation value (tag 0x0112). Values outside
// 1..8 are treated as OrientationNormal.
type Orientation int

const (
	OrientationNormal Orientation = 1 + iota
	OrientationFlipH
	OrientationRotate180
	OrientationFlipV
	OrientationTranspose
	OrientationRotate90CW
	OrientationTransverse
	OrientationRotate90CCW
)

const exifTagOrientation = 0x0112

var exifHeader = []byte("Exif\x00\x00")

// Valid reports whether o is a defined EXIF orientation.
func (o Orientation) Valid() bool {
	return o >= OrientationNormal && o <= OrientationRotate90CCW
}

// SwapsAxes reports whether normalizing o exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o >= OrientationTranspose && o <= OrientationRotate90CCW
}

func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationFlipH:
		return "flip-horizontal"
	case OrientationRotate180:
		return "rotate-180"
	case OrientationFlipV:
		return "flip-vertical"
	case OrientationTranspose:
		return "transpose"
	case OrientationRotate90CW:
		return "rotate-90-cw"
	case OrientationTransverse:
		return "transverse"
	case OrientationRotate90CCW:
		return "rotate-90-ccw"
	}
	return "unknown"
}

// ReadOrientation extracts the EXIF orientation from JPEG, TIFF or WebP
// data. Formats without EXIF support, missing tags and malformed metadata
// all yield OrientationNormal.
func ReadOrientation(format Format, data []byte) Orientation {
	var o Orientation
	switch format {
	case FormatJPEG:
		o = jpegOrientation(data)
	case FormatTIFF:
		o = tiffOrientation(data)
	case FormatWebP:
		o = webpOrientation(data)
	}
	if !o.Valid() {
		return OrientationNormal
	}
	return o
}

// jpegOrientation walks the marker segments up to the start of scan looking
// for an APP1 Exif block.
func jpegOrientation(data []byte) Orientation {
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return 0
		}
		marker := data[pos+1]
		switch {
		case marker == 0xFF:
			// fill byte
			pos++
			continue
		case marker == 0xD9 || marker == 0xDA:
			return 0
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8):
			pos += 2
			continue
		}

		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		if length < 2 {
			return 0
		}
		end := pos + 2 + length
		if end > len(data) {
			return 0
		}
		if marker == 0xE1 {
			segment := data[pos+4 : end]
			if bytes.HasPrefix(segment, exifHeader) {
				if o := tiffOrientation(segment[len(exifHeader):]); o != 0 {
					return o
				}
			}
		}
		pos = end
	}
	return 0
}

// tiffOrientation reads the orientation tag from IFD0 of a TIFF structure.
// EXIF payloads embed the same structure.
func tiffOrientation(data []byte) Orientation {
	if len(data) < 8 {
		return 0
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0
	}
	if order.Uint16(data[2:]) != 42 {
		return 0
	}

	offset := uint64(order.Uint32(data[4:]))
	if offset < 8 || offset+2 > uint64(len(data)) {
		return 0
	}
	ifd := int(offset)
	count := int(order.Uint16(data[ifd:]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(data) {
			return 0
		}
		if order.Uint16(data[entry:]) != exifTagOrientation {
			continue
		}
		// SHORT, stored left-justified in the value field
		if order.Uint16(data[entry+2:]) != 3 {
			return 0
		}
		return Orientation(order.Uint16(data[entry+8:]))
	}
	return 0
}

// webpOrientation scans the RIFF chunks of a WebP file for an EXIF chunk.
func webpOrientation(data []byte) Orientation {
	if len(data) < 12 {
		return 0
	}
	for _, c := range riffChunks(data[12:]) {
		if c.fourCC == "EXIF" {
			return tiffOrientation(bytes.TrimPrefix(c.data, exifHeader))
		}
	}
	return 0
}

// Normalize applies the raster's EXIF orientation to its pixels and returns
// an upright raster with OrientationNormal. Orientations 5 through 8 swap
// width and height.
func Normalize(r *Raster) *Raster {
	var img *image.NRGBA
	switch r.Orientation {
	case OrientationFlipH:
		img = imaging.FlipH(r.Image)
	case OrientationRotate180:
		img = imaging.Rotate180(r.Image)
	case OrientationFlipV:
		img = imaging.FlipV(r.Image)
	case OrientationTranspose:
		img = imaging.Transpose(r.Image)
	case OrientationRotate90CW:
		// imaging rotates counter-clockwise
		img = imaging.Rotate270(r.Image)
	case OrientationTransverse:
		img = imaging.Transverse(r.Image)
	case OrientationRotate90CCW:
		img = imaging.Rotate90(r.Image)
	default:
		img = r.Image
	}
	return &Raster{Image: img, Format: r.Format, Orientation: OrientationNormal}
}
