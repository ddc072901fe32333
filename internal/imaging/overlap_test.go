package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestOverlapWindow(t *testing.T) {
	tests := []struct {
		a, b int
		want int
	}{
		{300, 300, 150},
		{300, 100, 50},
		{10, 10, 5},
		{2, 2, 1},
		{1, 5, 0},
		{0, 5, 0},
		{100000, 100000, MaxOverlapPixels},
	}

	for _, tt := range tests {
		if got := OverlapWindow(tt.a, tt.b); got != tt.want {
			t.Errorf("OverlapWindow(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOverlapThreshold(t *testing.T) {
	tests := []struct {
		sensitivity int
		want        int
	}{
		{0, ExactTolerance},
		{100, LooseTolerance},
		{-10, ExactTolerance},
		{250, LooseTolerance},
		{35, 11525},
	}

	for _, tt := range tests {
		if got := OverlapThreshold(tt.sensitivity); got != tt.want {
			t.Errorf("OverlapThreshold(%d) = %d, want %d", tt.sensitivity, got, tt.want)
		}
	}

	for s := 1; s <= 100; s++ {
		if OverlapThreshold(s) < OverlapThreshold(s-1) {
			t.Fatalf("threshold decreases between sensitivity %d and %d", s-1, s)
		}
	}
}

func TestDetectOverlap_ScrollCaptures(t *testing.T) {
	prev := createPageImage(64, 0, 300, 1)
	next := createPageImage(64, 200, 300, 1)

	for _, sensitivity := range []int{0, 35, 100} {
		res := DetectOverlap(prev, next, Vertical, sensitivity)
		if res.Trim != 100 {
			t.Errorf("sensitivity %d: Trim = %d, want 100", sensitivity, res.Trim)
		}
		if res.Score != 0 || res.Confidence != 1 {
			t.Errorf("sensitivity %d: Score = %d, Confidence = %v, want exact match", sensitivity, res.Score, res.Confidence)
		}
		if res.Window != 150 {
			t.Errorf("Window = %d, want 150", res.Window)
		}
	}
}

func TestDetectOverlap_Horizontal(t *testing.T) {
	prev := imaging.Transpose(createPageImage(48, 0, 200, 4))
	next := imaging.Transpose(createPageImage(48, 140, 200, 4))

	res := DetectOverlap(prev, next, Horizontal, DefaultSensitivity)
	if res.Trim != 60 {
		t.Errorf("Trim = %d, want 60", res.Trim)
	}

	// The same pair has no vertical relationship.
	if res := DetectOverlap(prev, next, Vertical, DefaultSensitivity); res.Trim != 0 {
		t.Errorf("vertical Trim = %d, want 0", res.Trim)
	}
}

func TestDetectOverlap_Sensitivity(t *testing.T) {
	prev := createPageImage(64, 0, 300, 7)
	next := createPageImage(64, 200, 300, 7)
	// shift every color channel by 5 levels
	for i := 0; i < len(next.Pix); i += 4 {
		next.Pix[i] += 5
		next.Pix[i+1] += 5
		next.Pix[i+2] += 5
	}

	if res := DetectOverlap(prev, next, Vertical, 0); res.Trim != 0 {
		t.Errorf("sensitivity 0: Trim = %d, want 0", res.Trim)
	}

	res := DetectOverlap(prev, next, Vertical, DefaultSensitivity)
	if res.Trim != 100 {
		t.Errorf("default sensitivity: Trim = %d, want 100", res.Trim)
	}
	if res.Score != 5000 {
		t.Errorf("Score = %d, want 5000", res.Score)
	}
	if res.Confidence <= 0 || res.Confidence >= 1 {
		t.Errorf("Confidence = %v, want between 0 and 1", res.Confidence)
	}
}

func TestDetectOverlap_IdenticalRasters(t *testing.T) {
	a := createPageImage(40, 0, 60, 3)
	b := createPageImage(40, 0, 60, 3)

	for _, sensitivity := range []int{0, 50, 100} {
		res := DetectOverlap(a, b, Vertical, sensitivity)
		if res.Trim != res.Window || res.Window != 30 {
			t.Errorf("sensitivity %d: Trim = %d, Window = %d, want 30", sensitivity, res.Trim, res.Window)
		}
	}
}

func TestDetectOverlap_FlatRasters(t *testing.T) {
	tests := []struct {
		name string
		a, b color.RGBA
	}{
		{"identical gray", color.RGBA{128, 128, 128, 255}, color.RGBA{128, 128, 128, 255}},
		{"close grays", color.RGBA{100, 100, 100, 255}, color.RGBA{110, 110, 110, 255}},
		{"distinct grays", color.RGBA{100, 100, 100, 255}, color.RGBA{140, 140, 140, 255}},
		{"black and white", color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := createInMemoryImage(40, 60, tt.a)
			b := createInMemoryImage(40, 60, tt.b)
			for s := 0; s <= 100; s += 10 {
				if res := DetectOverlap(a, b, Vertical, s); res.Trim != 0 {
					t.Errorf("sensitivity %d: Trim = %d, want 0", s, res.Trim)
				}
			}
		})
	}
}

func TestDetectOverlap_NoSharedContent(t *testing.T) {
	a := createPageImage(64, 0, 200, 1)
	b := createPageImage(64, 0, 200, 2)
	if res := DetectOverlap(a, b, Vertical, DefaultSensitivity); res.Trim != 0 {
		t.Errorf("unrelated pages: Trim = %d, want 0", res.Trim)
	}
}

func TestDetectOverlap_TextPages(t *testing.T) {
	t.Run("unrelated documents", func(t *testing.T) {
		a := createDocImage(200, 0, 300, 1)
		b := createDocImage(200, 0, 300, 5)
		for _, s := range []int{0, DefaultSensitivity, 100} {
			if res := DetectOverlap(a, b, Vertical, s); res.Trim != 0 {
				t.Errorf("sensitivity %d: Trim = %d, Score = %d, want no overlap", s, res.Trim, res.Score)
			}
		}
	})

	t.Run("scrolled document", func(t *testing.T) {
		a := createDocImage(200, 0, 300, 1)
		b := createDocImage(200, 200, 300, 1)
		for _, s := range []int{0, DefaultSensitivity, 100} {
			res := DetectOverlap(a, b, Vertical, s)
			if res.Trim != 100 || res.Score != 0 {
				t.Errorf("sensitivity %d: Trim = %d, Score = %d, want exact 100", s, res.Trim, res.Score)
			}
		}
	})

	t.Run("different paper", func(t *testing.T) {
		a := createDocImage(200, 0, 300, 1)
		b := createDocImage(200, 200, 300, 1)
		for i := 0; i < len(b.Pix); i += 4 {
			if b.Pix[i] == 255 {
				b.Pix[i], b.Pix[i+1], b.Pix[i+2] = 180, 180, 180
			}
		}
		if res := DetectOverlap(a, b, Vertical, 100); res.Trim != 0 {
			t.Errorf("Trim = %d, want 0", res.Trim)
		}
	})
}

func TestMinInkPermille(t *testing.T) {
	if got := MinInkPermille(0); got != InkPermilleStrict {
		t.Errorf("MinInkPermille(0) = %d", got)
	}
	if got := MinInkPermille(100); got != InkPermilleLoose {
		t.Errorf("MinInkPermille(100) = %d", got)
	}
	for s := 1; s <= 100; s++ {
		if MinInkPermille(s) > MinInkPermille(s-1) {
			t.Fatalf("ink share increases between sensitivity %d and %d", s-1, s)
		}
	}
}

func TestDetectOverlap_EdgeCases(t *testing.T) {
	t.Run("cross size mismatch", func(t *testing.T) {
		a := createInMemoryImage(40, 60, color.White)
		b := createInMemoryImage(41, 60, color.White)
		res := DetectOverlap(a, b, Vertical, 100)
		if res.Trim != 0 || res.Window != 0 {
			t.Errorf("Trim = %d, Window = %d, want 0", res.Trim, res.Window)
		}
	})

	t.Run("fully transparent", func(t *testing.T) {
		a := image.NewNRGBA(image.Rect(0, 0, 20, 40))
		b := image.NewNRGBA(image.Rect(0, 0, 20, 40))
		if res := DetectOverlap(a, b, Vertical, 100); res.Trim != 0 {
			t.Errorf("Trim = %d, want 0", res.Trim)
		}
	})

	t.Run("window below minimum", func(t *testing.T) {
		a := createInMemoryImage(10, 6, color.White)
		b := createInMemoryImage(10, 6, color.White)
		if res := DetectOverlap(a, b, Vertical, 100); res.Trim != 0 {
			t.Errorf("Trim = %d, want 0", res.Trim)
		}
	})

	t.Run("trim stays below both extents", func(t *testing.T) {
		for h := 1; h <= 24; h++ {
			a := createPageImage(8, 0, h, 2)
			b := createPageImage(8, h/2, 24, 2)
			res := DetectOverlap(a, b, Vertical, 100)
			if res.Trim >= h {
				t.Fatalf("height %d: Trim = %d", h, res.Trim)
			}
		}
	})
}
