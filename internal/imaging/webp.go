package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

// VP8X feature flags and the fixed ANMF frame header length.
const (
	webpAnimationFlag = 0x02
	webpAlphaFlag     = 0x10
	anmfHeaderLen     = 16
)

type riffChunk struct {
	fourCC string
	data   []byte
}

// riffChunks splits a sequence of RIFF chunks. A chunk that runs past the
// end of data ends the walk.
func riffChunks(data []byte) []riffChunk {
	var chunks []riffChunk
	pos := 0
	for pos+8 <= len(data) {
		size := uint64(binary.LittleEndian.Uint32(data[pos+4:]))
		start := pos + 8
		if uint64(start)+size > uint64(len(data)) {
			break
		}
		end := start + int(size)
		chunks = append(chunks, riffChunk{fourCC: string(data[pos : pos+4]), data: data[start:end]})
		// chunks are padded to an even size
		pos = end + int(size&1)
	}
	return chunks
}

func appendChunk(dst []byte, fourCC string, data []byte) []byte {
	dst = append(dst, fourCC...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data)))
	dst = append(dst, data...)
	if len(data)&1 == 1 {
		dst = append(dst, 0)
	}
	return dst
}

func uint24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

func putUint24(b []byte, v int) {
	b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
}

// webpFrame is the first frame of an animated WebP rewrapped as a still
// WebP file, plus where it sits on the animation canvas.
type webpFrame struct {
	still  []byte
	offset image.Point
	canvas image.Point
}

// firstWebPFrame extracts the first ANMF frame of an animated WebP file.
// animated is false for still images, which decode as they are.
func firstWebPFrame(data []byte) (frame webpFrame, animated bool, err error) {
	if len(data) < 12 {
		return webpFrame{}, false, nil
	}
	chunks := riffChunks(data[12:])
	if len(chunks) == 0 || chunks[0].fourCC != "VP8X" || len(chunks[0].data) < 10 {
		return webpFrame{}, false, nil
	}
	header := chunks[0].data
	if header[0]&webpAnimationFlag == 0 {
		return webpFrame{}, false, nil
	}
	frame.canvas = image.Pt(uint24(header[4:])+1, uint24(header[7:])+1)

	for _, c := range chunks[1:] {
		if c.fourCC != "ANMF" {
			continue
		}
		if len(c.data) < anmfHeaderLen {
			return webpFrame{}, true, errors.New("truncated ANMF frame header")
		}
		frame.offset = image.Pt(2*uint24(c.data[0:]), 2*uint24(c.data[3:]))
		size := image.Pt(uint24(c.data[6:])+1, uint24(c.data[9:])+1)

		var alpha, bitstream *riffChunk
		subs := riffChunks(c.data[anmfHeaderLen:])
		for i := range subs {
			switch subs[i].fourCC {
			case "ALPH":
				alpha = &subs[i]
			case "VP8 ", "VP8L":
				if bitstream == nil {
					bitstream = &subs[i]
				}
			}
		}
		if bitstream == nil {
			return webpFrame{}, true, errors.New("first animation frame has no image data")
		}
		frame.still = stillWebP(size, alpha, bitstream)
		return frame, true, nil
	}
	return webpFrame{}, true, errors.New("animation has no frames")
}

// stillWebP wraps a frame bitstream in its own RIFF/WEBP container. Lossy
// frames with an ALPH chunk need the extended VP8X layout; anything else is
// a simple single-chunk file.
func stillWebP(size image.Point, alpha, bitstream *riffChunk) []byte {
	body := []byte("WEBP")
	if alpha != nil && bitstream.fourCC == "VP8 " {
		vp8x := make([]byte, 10)
		vp8x[0] = webpAlphaFlag
		putUint24(vp8x[4:], size.X-1)
		putUint24(vp8x[7:], size.Y-1)
		body = appendChunk(body, "VP8X", vp8x)
		body = appendChunk(body, "ALPH", alpha.data)
	}
	body = appendChunk(body, bitstream.fourCC, bitstream.data)

	out := append([]byte("RIFF"), binary.LittleEndian.AppendUint32(nil, uint32(len(body)))...)
	return append(out, body...)
}

// decodeWebP decodes a WebP image. Animated files yield their first frame
// placed on a transparent canvas of the animation size.
func decodeWebP(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	frame, animated, err := firstWebPFrame(data)
	if err != nil {
		return nil, err
	}
	if !animated {
		return webp.Decode(bytes.NewReader(data))
	}

	img, err := webp.Decode(bytes.NewReader(frame.still))
	if err != nil {
		return nil, fmt.Errorf("first animation frame: %w", err)
	}
	if frame.offset == (image.Point{}) && img.Bounds().Size() == frame.canvas {
		return img, nil
	}
	canvas := imaging.New(frame.canvas.X, frame.canvas.Y, color.NRGBA{})
	return imaging.Paste(canvas, img, frame.offset), nil
}
