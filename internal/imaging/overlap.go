package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Overlap search parameters.
//
// Scores are the mean absolute RGB channel difference over content pixel
// pairs, scaled by ScoreScale, so ExactTolerance of 500 means an average of
// half a level per channel.
//
// A pixel is content ("ink") when its luma differs from the dominant luma of
// its strip by more than InkDelta. Pairs where neither pixel is ink are not
// scored, and a strip must hold at least a sensitivity-dependent share of ink
// on both sides before it can match, so flat or mostly blank bands never
// count as shared content.
const (
	MinOverlap       = 4
	MaxSearchPercent = 50
	MaxOverlapPixels = 2048
	MaxSampleColumns = 256
	MaxSampleRows    = 256
	ExactTolerance   = 500
	LooseTolerance   = 32000
	ScoreScale       = 1000

	InkDelta          = 24
	MinInkSamples     = 8
	InkPermilleStrict = 20 // at sensitivity 0
	InkPermilleLoose  = 5  // at sensitivity 100

	// DefaultSensitivity is used when a caller does not choose one.
	DefaultSensitivity = 35
)

// OverlapResult is the outcome of comparing the trailing edge of one image
// with the leading edge of the next.
type OverlapResult struct {
	Trim       int     `json:"trim"`       // Pixels to remove from the leading edge of the next image
	Score      int     `json:"score"`      // Scaled mean RGB difference over ink pairs at Trim (0 when Trim is 0)
	Threshold  int     `json:"threshold"`  // Highest score accepted for the sensitivity used
	Window     int     `json:"window"`     // Largest overlap that was considered
	Confidence float64 `json:"confidence"` // 1.0 for a pixel-exact match, 0 when nothing matched
}

// ClampSensitivity limits s to the accepted 0-100 range.
func ClampSensitivity(s int) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

// OverlapThreshold maps a sensitivity in 0-100 onto the highest accepted
// score. Sensitivity 0 accepts only near-exact matches; 100 accepts strips
// that differ by LooseTolerance.
func OverlapThreshold(sensitivity int) int {
	s := ClampSensitivity(sensitivity)
	return ExactTolerance + s*(LooseTolerance-ExactTolerance)/100
}

// MinInkPermille maps a sensitivity onto the share of sampled pixels, in
// permille, that must be ink on each side of a candidate strip.
func MinInkPermille(sensitivity int) int {
	s := ClampSensitivity(sensitivity)
	return InkPermilleStrict - s*(InkPermilleStrict-InkPermilleLoose)/100
}

// OverlapWindow returns the largest overlap searched between images whose
// extents along the axis are a and b. It is always smaller than both.
func OverlapWindow(a, b int) int {
	m := min(a, b)
	w := min(m*MaxSearchPercent/100, MaxOverlapPixels)
	if w > m-1 {
		w = m - 1
	}
	if w < 0 {
		return 0
	}
	return w
}

// DetectOverlap finds how many pixels at the leading edge of next duplicate
// the trailing edge of prev along axis.
//
// Candidate overlaps are scanned from the largest window down to MinOverlap,
// and the first (largest) one whose strip score does not exceed the
// sensitivity threshold wins. Images whose cross extents differ never
// overlap. The background luma is the most common luma across both edge
// bands, so a change of paper color makes every pixel of one side ink.
// Pixel pairs that are both fully transparent are
// ignored. A strip without enough ink on both sides does not match, so
// blank, flat and unrelated rasters yield Trim 0 at any sensitivity.
//
// The returned Trim is always smaller than the extent of both images.
func DetectOverlap(prev, next image.Image, axis Axis, sensitivity int) OverlapResult {
	a := asNRGBA(prev)
	b := asNRGBA(next)
	sa, sb := a.Bounds().Size(), b.Bounds().Size()

	res := OverlapResult{Threshold: OverlapThreshold(sensitivity)}
	if axis.Cross(sa) != axis.Cross(sb) {
		return res
	}
	res.Window = OverlapWindow(axis.Extent(sa), axis.Extent(sb))
	if res.Window < MinOverlap {
		return res
	}

	var hist [256]int
	addLumas(&hist, a, axis, axis.Extent(sa)-res.Window, res.Window)
	addLumas(&hist, b, axis, 0, res.Window)
	st := strip{
		axis:       axis,
		threshold:  res.Threshold,
		inkShare:   MinInkPermille(sensitivity),
		background: dominant(&hist),
	}

	for k := res.Window; k >= MinOverlap; k-- {
		score, ok := st.score(a, b, k)
		if !ok {
			continue
		}
		res.Trim = k
		res.Score = score
		res.Confidence = 1 - float64(score)/float64(255*ScoreScale)
		return res
	}
	return res
}

// strip holds the per-pair parameters of a strip comparison.
type strip struct {
	axis       Axis
	threshold  int
	inkShare   int   // permille of samples that must be ink on each side
	background uint8 // dominant luma of both edge bands
}

// score compares the trailing k lines of a with the leading k lines of b.
// It reports false when either strip lacks ink or as soon as the score is
// certain to exceed the threshold.
func (st strip) score(a, b *image.NRGBA, k int) (int, bool) {
	axis := st.axis
	extentA := axis.Extent(a.Bounds().Size())
	cross := axis.Cross(a.Bounds().Size())

	colStride := ceilDiv(cross, MaxSampleColumns)
	rowStride := ceilDiv(k, MaxSampleRows)
	rows := ceilDiv(k, rowStride)
	cols := ceilDiv(cross, colStride)

	// Scored pairs never exceed rows*cols, so this bound stays valid for
	// the abort test.
	limit := int64(st.threshold) * int64(rows*cols*3)

	var sum, n int64
	var inkA, inkB int
	for i := 0; i < k; i += rowStride {
		lineA := extentA - k + i
		for j := 0; j < cross; j += colStride {
			pa := pixelOffset(a, axis, lineA, j)
			pb := pixelOffset(b, axis, i, j)
			ca := a.Pix[pa : pa+4 : pa+4]
			cb := b.Pix[pb : pb+4 : pb+4]
			clearA, clearB := ca[3] == 0, cb[3] == 0
			if clearA && clearB {
				continue
			}
			isInkA := !clearA && absDiff(luma(ca), st.background) > InkDelta
			isInkB := !clearB && absDiff(luma(cb), st.background) > InkDelta
			if isInkA {
				inkA++
			}
			if isInkB {
				inkB++
			}
			switch {
			case clearA != clearB:
				sum += 3 * 255
			case isInkA || isInkB:
				sum += int64(absDiff(ca[0], cb[0]) + absDiff(ca[1], cb[1]) + absDiff(ca[2], cb[2]))
			default:
				continue
			}
			n += 3
		}
		if sum*ScoreScale > limit {
			return 0, false
		}
	}

	minInk := max(MinInkSamples, rows*cols*st.inkShare/1000)
	if n == 0 || inkA < minInk || inkB < minInk {
		return 0, false
	}
	score := int(sum * ScoreScale / n)
	return score, score <= st.threshold
}

// addLumas counts the luma of every sampled opaque pixel of lines
// [first, first+k) of img into hist.
func addLumas(hist *[256]int, img *image.NRGBA, axis Axis, first, k int) {
	cross := axis.Cross(img.Bounds().Size())
	colStride := ceilDiv(cross, MaxSampleColumns)
	rowStride := ceilDiv(k, MaxSampleRows)

	for i := 0; i < k; i += rowStride {
		for j := 0; j < cross; j += colStride {
			p := pixelOffset(img, axis, first+i, j)
			c := img.Pix[p : p+4 : p+4]
			if c[3] == 0 {
				continue
			}
			hist[luma(c)]++
		}
	}
}

// dominant returns the most frequent luma in hist. Ties go to the darker
// value.
func dominant(hist *[256]int) uint8 {
	best := 0
	for v := 1; v < len(hist); v++ {
		if hist[v] > hist[best] {
			best = v
		}
	}
	return uint8(best)
}

// luma is the integer Rec. 601 luma of an NRGBA pixel.
func luma(c []uint8) uint8 {
	return uint8((299*int(c[0]) + 587*int(c[1]) + 114*int(c[2]) + 500) / 1000)
}
// pixelOffset returns the Pix index of the pixel at line (along the axis)
// and column (across it).
func pixelOffset(img *image.NRGBA, axis Axis, line, column int) int {
	origin := img.Rect.Min
	if axis == Horizontal {
		return img.PixOffset(origin.X+line, origin.Y+column)
	}
	return img.PixOffset(origin.X+column, origin.Y+line)
}

func asNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
