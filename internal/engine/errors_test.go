package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ironsheep/image-merge-mcp/internal/imaging"
)

func TestKindCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnsupportedFormat, "UNSUPPORTED_FORMAT"},
		{KindDecodeFailed, "DECODE_FAILED"},
		{KindNoImages, "NO_IMAGES"},
		{KindOutputTooLarge, "OUTPUT_TOO_LARGE"},
		{KindInternal, "INTERNAL_ERROR"},
		{Kind(99), "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		if got := tt.kind.Code(); got != tt.want {
			t.Errorf("Kind(%d).Code() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"named file", &Error{Kind: KindDecodeFailed, Message: "bad data", FileIndex: 1, FileName: "b.png"}, "bad data (file 1: b.png)"},
		{"unnamed file", &Error{Kind: KindDecodeFailed, Message: "bad data", FileIndex: 0}, "bad data (file 0)"},
		{"no file", &Error{Kind: KindNoImages, Message: "need more", FileIndex: NoFile}, "need more"},
		{"no message", &Error{Kind: KindInternal, FileIndex: NoFile}, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeErrorClassification(t *testing.T) {
	tests := []struct {
		cause error
		want  Kind
	}{
		{fmt.Errorf("%w: nope", imaging.ErrUnsupportedFormat), KindUnsupportedFormat},
		{fmt.Errorf("%w: truncated", imaging.ErrDecodeFailed), KindDecodeFailed},
		{errors.New("something else"), KindInternal},
	}

	for _, tt := range tests {
		e := decodeError(3, "x.png", tt.cause)
		if e.Kind != tt.want {
			t.Errorf("decodeError(%v).Kind = %s, want %s", tt.cause, e.Kind, tt.want)
		}
		if e.FileIndex != 3 || e.FileName != "x.png" {
			t.Errorf("file details lost: %+v", e)
		}
		if !errors.Is(e, tt.cause) {
			t.Errorf("cause %v not wrapped", tt.cause)
		}
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}

	plain := errors.New("boom")
	e := AsError(plain)
	if e.Kind != KindInternal || e.HasFile() || !errors.Is(e, plain) {
		t.Errorf("AsError(plain) = %+v", e)
	}

	original := NewFileError(KindUnsupportedFormat, 2, "a.heic", errors.New("HEIC"))
	wrapped := fmt.Errorf("while merging: %w", original)
	if AsError(wrapped) != original {
		t.Error("AsError did not unwrap to the original *Error")
	}
	if !errors.Is(wrapped, ErrUnsupportedFormat) || errors.Is(wrapped, ErrDecodeFailed) {
		t.Error("sentinel matching by kind failed")
	}
}

func TestRemapFileIndex(t *testing.T) {
	index := []int{0, 2, 5}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"mapped", NewFileError(KindDecodeFailed, 1, "b.png", nil), 2},
		{"wrapped", fmt.Errorf("merge: %w", NewFileError(KindDecodeFailed, 2, "c.png", nil)), 5},
		{"no file", &Error{Kind: KindNoImages, FileIndex: NoFile}, NoFile},
		{"out of range", NewFileError(KindDecodeFailed, 3, "d.png", nil), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsError(RemapFileIndex(tt.err, index))
			if got.FileIndex != tt.want {
				t.Errorf("FileIndex = %d, want %d", got.FileIndex, tt.want)
			}
		})
	}

	plain := errors.New("boom")
	if RemapFileIndex(plain, index) != plain {
		t.Error("non-merge error was replaced")
	}
}

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageIdle, StageDecoding, true},
		{StageDecoding, StageNormalizing, true},
		{StageNormalizing, StageDetectingOverlap, true},
		{StageNormalizing, StageScaling, true},
		{StageDetectingOverlap, StageScaling, true},
		{StageScaling, StageCompositing, true},
		{StageCompositing, StageEncoding, true},
		{StageEncoding, StageDone, true},
		{StageDecoding, StageFailed, true},
		{StageIdle, StageScaling, false},
		{StageScaling, StageDecoding, false},
		{StageDone, StageFailed, false},
		{StageFailed, StageDecoding, false},
	}

	for _, tt := range tests {
		if got := tt.from.canAdvance(tt.to); got != tt.want {
			t.Errorf("%s -> %s allowed = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRunLifecycle(t *testing.T) {
	r := newRun(2, DefaultOptions())
	other := newRun(3, DefaultOptions())
	if r.id == other.id {
		t.Errorf("runs share id %d", r.id)
	}
	if r.stage != StageIdle || len(r.history) != 1 {
		t.Fatalf("new run = %s %v, want idle", r.stage, r.history)
	}

	r.advance(StageDecoding)
	r.advance(StageNormalizing)
	r.advance(StageScaling)
	e := r.fail(errors.New("boom"))
	if e.Stage != StageScaling || e.Kind != KindInternal {
		t.Errorf("fail = %+v, want internal error in scaling", e)
	}

	want := []Stage{StageIdle, StageDecoding, StageNormalizing, StageScaling, StageFailed}
	if fmt.Sprint(r.history) != fmt.Sprint(want) {
		t.Errorf("history = %v, want %v", r.history, want)
	}

	defer func() {
		if recover() == nil {
			t.Error("advancing a failed run did not panic")
		}
	}()
	r.advance(StageCompositing)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"", DirectionVertical, false},
		{"vertical", DirectionVertical, false},
		{"Horizontal", DirectionHorizontal, false},
		{" smart ", DirectionSmart, false},
		{"diagonal", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, %v", tt.input, got, err)
		}
	}

	if DirectionSmart.Axis() != imaging.Vertical || DirectionHorizontal.Axis() != imaging.Horizontal {
		t.Error("unexpected axis mapping")
	}
}
