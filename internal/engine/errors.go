package engine

import (
	"errors"
	"fmt"

	"github.com/ironsheep/image-merge-mcp/internal/imaging"
)

// Kind classifies a merge failure.
type Kind int

const (
	KindInternal Kind = iota
	KindUnsupportedFormat
	KindDecodeFailed
	KindNoImages
	KindOutputTooLarge
)

// Code returns the wire error code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindUnsupportedFormat:
		return "UNSUPPORTED_FORMAT"
	case KindDecodeFailed:
		return "DECODE_FAILED"
	case KindNoImages:
		return "NO_IMAGES"
	case KindOutputTooLarge:
		return "OUTPUT_TOO_LARGE"
	}
	return "INTERNAL_ERROR"
}

func (k Kind) String() string {
	return k.Code()
}

// NoFile is the FileIndex of errors not tied to a particular input.
const NoFile = -1

// Error is the failure returned by Merge.
type Error struct {
	Kind      Kind
	Message   string // human-readable description, without file details
	FileIndex int    // index into the input list, or NoFile
	FileName  string // input name, when the caller supplied one
	Stage     Stage  // stage that was running when the merge failed
	Err       error
}

// Sentinel errors for use with errors.Is. Only the Kind is compared.
var (
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat, FileIndex: NoFile}
	ErrDecodeFailed      = &Error{Kind: KindDecodeFailed, FileIndex: NoFile}
	ErrNoImages          = &Error{Kind: KindNoImages, FileIndex: NoFile}
	ErrOutputTooLarge    = &Error{Kind: KindOutputTooLarge, FileIndex: NoFile}
	ErrInternal          = &Error{Kind: KindInternal, FileIndex: NoFile}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Code()
	}
	if e.HasFile() {
		if e.FileName != "" {
			msg = fmt.Sprintf("%s (file %d: %s)", msg, e.FileIndex, e.FileName)
		} else {
			msg = fmt.Sprintf("%s (file %d)", msg, e.FileIndex)
		}
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Code returns the wire error code.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// HasFile reports whether the error names an input.
func (e *Error) HasFile() bool {
	return e.FileIndex >= 0
}

// NewFileError builds an error for the input at index. Callers that reject
// inputs before merging, such as upload filters, use it to report failures
// the same way Merge does.
func NewFileError(kind Kind, index int, name string, err error) *Error {
	e := &Error{Kind: kind, FileIndex: index, FileName: name, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// RemapFileIndex rewrites the file index of a merge error through index,
// which holds the caller's position for each input passed to Merge. It is
// used when inputs were filtered before the merge. Errors without a file
// index, or with one outside index, are left unchanged.
func RemapFileIndex(err error, index []int) error {
	var e *Error
	if errors.As(err, &e) && e.FileIndex >= 0 && e.FileIndex < len(index) {
		e.FileIndex = index[e.FileIndex]
	}
	return err
}

// decodeError classifies a decoder failure for input i.
func decodeError(i int, name string, err error) *Error {
	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return NewFileError(KindUnsupportedFormat, i, name, err)
	case errors.Is(err, imaging.ErrDecodeFailed):
		return NewFileError(KindDecodeFailed, i, name, err)
	}
	return NewFileError(KindInternal, i, name, err)
}

// AsError converts any error into an *Error, treating unknown errors as
// internal failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: err.Error(), FileIndex: NoFile, Err: err}
}
