package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestTargetDimension(t *testing.T) {
	sizes := []image.Point{{800, 1000}, {1200, 300}, {640, 2000}}

	if got := TargetDimension(sizes, Vertical); got != 1200 {
		t.Errorf("Vertical target = %d, want 1200", got)
	}
	if got := TargetDimension(sizes, Horizontal); got != 2000 {
		t.Errorf("Horizontal target = %d, want 2000", got)
	}
	if got := TargetDimension(nil, Vertical); got != 0 {
		t.Errorf("empty target = %d, want 0", got)
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name   string
		size   image.Point
		target int
		axis   Axis
		want   image.Point
	}{
		{"upscale vertical", image.Pt(800, 1000), 1200, Vertical, image.Pt(1200, 1500)},
		{"unchanged", image.Pt(1200, 300), 1200, Vertical, image.Pt(1200, 300)},
		{"downscale horizontal", image.Pt(400, 200), 100, Horizontal, image.Pt(200, 100)},
		{"half rounds away from zero", image.Pt(2, 1), 3, Vertical, image.Pt(3, 2)},
		{"rounds down below half", image.Pt(3, 1), 2, Vertical, image.Pt(2, 1)},
		{"floor at one pixel", image.Pt(1000, 1), 10, Vertical, image.Pt(10, 1)},
		{"zero target", image.Pt(10, 10), 0, Vertical, image.Point{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaledSize(tt.size, tt.target, tt.axis); got != tt.want {
				t.Errorf("ScaledSize(%v, %d, %s) = %v, want %v", tt.size, tt.target, tt.axis, got, tt.want)
			}
		})
	}
}

func TestScaledSize_PreservesAspectRatio(t *testing.T) {
	for _, axis := range []Axis{Vertical, Horizontal} {
		for w := 1; w <= 40; w += 3 {
			for h := 1; h <= 40; h += 7 {
				for target := 1; target <= 90; target += 11 {
					size := image.Pt(w, h)
					got := ScaledSize(size, target, axis)
					if axis.Cross(got) != target {
						t.Fatalf("%s %v -> %d: cross = %d", axis, size, target, axis.Cross(got))
					}
					// |extent' - extent*target/cross| <= 1
					diff := int64(axis.Extent(got))*int64(axis.Cross(size)) - int64(axis.Extent(size))*int64(target)
					if diff < 0 {
						diff = -diff
					}
					if diff > int64(axis.Cross(size)) {
						t.Fatalf("%s %v -> %d: got %v, off by more than one pixel", axis, size, target, got)
					}
				}
			}
		}
	}
}

func TestRoundDiv(t *testing.T) {
	tests := []struct {
		num, den, want int64
	}{
		{5, 2, 3},
		{4, 2, 2},
		{7, 3, 2},
		{-5, 2, -3},
		{5, -2, -3},
		{-7, 3, -2},
		{0, 9, 0},
	}

	for _, tt := range tests {
		if got := roundDiv(tt.num, tt.den); got != tt.want {
			t.Errorf("roundDiv(%d, %d) = %d, want %d", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestResize(t *testing.T) {
	src := createInMemoryImage(10, 10, color.RGBA{0, 0, 255, 255})

	out := Resize(src, image.Pt(20, 7))
	if out.Bounds().Size() != image.Pt(20, 7) {
		t.Fatalf("size = %v, want (20,7)", out.Bounds().Size())
	}
	if got := out.NRGBAAt(10, 3); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("resampled solid color = %v, want blue", got)
	}

	same := Resize(out, image.Pt(20, 7))
	if same == out {
		t.Error("Resize at the same size returned the input")
	}
	if !bytes.Equal(same.Pix, out.Pix) {
		t.Error("Resize at the same size changed pixels")
	}
}
