package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
)

// ChromeTrim is the number of pixels to strip from the top and bottom of an
// image because they repeat application chrome (title bars, toolbars, status
// bars) already present in a neighboring capture.
type ChromeTrim struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Chrome detection parameters. Rows are compared on a grayscale proxy at
// most chromeProxyWidth pixels wide.
const (
	chromeProxyWidth     = 320
	chromeMarginPermille = 25
	chromePixelDelta     = 12
	chromeRowMatchPct    = 97
	chromeRowMeanMax     = 6
	chromeMaxTrimPixels  = 240
	chromeMaxTrimPct     = 20
	chromeMinContent     = 50
)

// ChromeTrims finds header and footer bands shared by adjacent images in a
// vertical sequence.
//
// For each adjacent pair the rows that match from the top set the next
// image's top trim, and the rows that match from the bottom set the previous
// image's bottom trim. Trims are limited to chromeMaxTrimPixels and
// chromeMaxTrimPct of the height, and an image whose trims would leave less
// than chromeMinContent rows is not trimmed at all. The first image keeps
// its top and the last image keeps its bottom.
//
// The result has one entry per image.
func ChromeTrims(images []image.Image) []ChromeTrim {
	n := len(images)
	if n == 0 {
		return nil
	}

	proxies := make([]*grayProxy, n)
	for i, img := range images {
		proxies[i] = chromeProxy(img)
	}

	trims := make([]ChromeTrim, n)
	for i := 0; i+1 < n; i++ {
		prev, curr := proxies[i], proxies[i+1]
		prevH := images[i].Bounds().Dy()
		currH := images[i+1].Bounds().Dy()

		top := proxyRowsToPixels(commonRowsTop(prev, curr), currH, curr.h)
		trims[i+1].Top = clampChromeTrim(top, currH)

		bottom := proxyRowsToPixels(commonRowsBottom(prev, curr), prevH, prev.h)
		trims[i].Bottom = clampChromeTrim(bottom, prevH)
	}

	for i, img := range images {
		trims[i] = enforceMinContent(trims[i], img.Bounds().Dy())
	}
	trims[0].Top = 0
	trims[n-1].Bottom = 0
	return trims
}

// grayProxy is a packed grayscale copy of an image used for row matching.
type grayProxy struct {
	pix  []uint8
	w, h int
}

func (p *grayProxy) row(y int) []uint8 {
	return p.pix[y*p.w : (y+1)*p.w]
}

// chromeProxy converts img to grayscale and scales it down to at most
// chromeProxyWidth columns, preserving aspect ratio.
func chromeProxy(img image.Image) *grayProxy {
	size := img.Bounds().Size()
	w := max(size.X, 1)
	h := max(size.Y, 1)

	targetW := min(chromeProxyWidth, w)
	targetH := int((int64(h)*int64(targetW) + int64(w)/2) / int64(w))
	targetH = max(1, min(targetH, h))

	gray := effect.Grayscale(img)
	p := &grayProxy{pix: make([]uint8, targetW*targetH), w: targetW, h: targetH}
	if targetW == size.X && targetH == size.Y {
		for y := 0; y < targetH; y++ {
			copy(p.row(y), gray.Pix[y*gray.Stride:y*gray.Stride+targetW])
		}
		return p
	}

	scaled := transform.Resize(gray, targetW, targetH, transform.Linear)
	for y := 0; y < targetH; y++ {
		row := p.row(y)
		off := y * scaled.Stride
		for x := range row {
			row[x] = scaled.Pix[off+4*x]
		}
	}
	return p
}

func proxyRowsToPixels(rows, origH, proxyH int) int {
	if rows == 0 || origH == 0 || proxyH == 0 {
		return 0
	}
	return int((int64(rows)*int64(origH) + int64(proxyH)/2) / int64(proxyH))
}

func clampChromeTrim(trim, height int) int {
	if height <= 0 {
		return 0
	}
	byFraction := int(roundDiv(int64(height)*chromeMaxTrimPct, 100))
	return min(trim, chromeMaxTrimPixels, byFraction, height)
}

func enforceMinContent(t ChromeTrim, height int) ChromeTrim {
	if height <= 0 {
		return ChromeTrim{}
	}
	if t.Top+t.Bottom > height-min(chromeMinContent, height) {
		return ChromeTrim{}
	}
	return t
}

func commonRowsTop(a, b *grayProxy) int {
	maxRows := min(a.h, b.h)
	x0, w := commonSpan(a.w, b.w)
	if w == 0 {
		return 0
	}
	rows := 0
	for y := 0; y < maxRows; y++ {
		if !rowsSimilar(a, b, x0, w, y, y) {
			break
		}
		rows++
	}
	return rows
}

func commonRowsBottom(a, b *grayProxy) int {
	maxRows := min(a.h, b.h)
	x0, w := commonSpan(a.w, b.w)
	if w == 0 {
		return 0
	}
	rows := 0
	for i := 0; i < maxRows; i++ {
		if !rowsSimilar(a, b, x0, w, a.h-1-i, b.h-1-i) {
			break
		}
		rows++
	}
	return rows
}

// commonSpan returns the start and width of the columns compared between
// two proxies, leaving out a small margin on each side.
func commonSpan(wa, wb int) (int, int) {
	common := min(wa, wb)
	if common <= 0 {
		return 0, 0
	}
	margin := common * chromeMarginPermille / 1000
	return margin, max(common-2*margin, 0)
}

func rowsSimilar(a, b *grayProxy, x0, w, ay, by int) bool {
	if w == 0 {
		return false
	}
	ra := a.row(ay)[x0 : x0+w]
	rb := b.row(by)[x0 : x0+w]
	matches, sum := 0, 0
	for x := range ra {
		d := absDiff(ra[x], rb[x])
		if d <= chromePixelDelta {
			matches++
		}
		sum += d
	}
	if matches*100 < chromeRowMatchPct*w {
		return false
	}
	return sum <= chromeRowMeanMax*w
}
