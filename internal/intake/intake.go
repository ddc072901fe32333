// Package intake screens files before they are handed to the merge engine.
//
// HEIC/HEIF files are rejected with a dedicated error so users learn to
// convert them. Files that are not images at all (documents, archives,
// anything without an image extension or image MIME type) are silently
// dropped. Everything else is passed through; the engine decides whether
// the bytes are actually decodable.
package intake

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// ErrHEIC is returned for HEIC/HEIF inputs.
var ErrHEIC = errors.New("HEIC/HEIF images are not supported; convert them to JPEG or PNG first")

// Decision is the outcome of screening one file.
type Decision int

const (
	Accept Decision = iota
	RejectHEIC
	Drop
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case RejectHEIC:
		return "reject-heic"
	}
	return "drop"
}

var heicExtensions = map[string]bool{
	".heic": true,
	".heif": true,
	".hif":  true,
}

var heicTypes = map[string]bool{
	"image/heic":          true,
	"image/heif":          true,
	"image/heic-sequence": true,
	"image/heif-sequence": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".jpe":  true,
	".jfif": true,
	".gif":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// Classify screens a file by name and declared MIME type. Either may be
// empty. A declared non-image MIME type wins over an image extension.
func Classify(name, mimeType string) Decision {
	ext := strings.ToLower(filepath.Ext(name))
	mediaType := ""
	if mimeType != "" {
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}

	if heicExtensions[ext] || heicTypes[mediaType] {
		return RejectHEIC
	}
	if mediaType != "" {
		if strings.HasPrefix(mediaType, "image/") {
			return Accept
		}
		if mediaType != "application/octet-stream" {
			return Drop
		}
	}
	if imageExtensions[ext] {
		return Accept
	}
	return Drop
}

// File is a candidate input.
type File struct {
	Name string
	MIME string
	Data []byte

	// Index is the file's position in the list passed to Filter. Filter
	// sets it on every file it accepts.
	Index int
}

// RejectedError reports a file refused by Filter.
type RejectedError struct {
	Index int // position in the list passed to Filter
	Name  string
	Err   error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Filter screens files in order. Dropped files are removed; the first
// HEIC/HEIF file aborts with a *RejectedError wrapping ErrHEIC.
func Filter(files []File) ([]File, error) {
	accepted := make([]File, 0, len(files))
	for i, f := range files {
		switch Classify(f.Name, f.MIME) {
		case RejectHEIC:
			return nil, &RejectedError{Index: i, Name: f.Name, Err: ErrHEIC}
		case Accept:
			f.Index = i
			accepted = append(accepted, f)
		}
	}
	return accepted, nil
}

// FilterPaths applies Filter to file paths, classifying by extension only.
// Each accepted File carries the path as its Name. A rejected path is
// reported by its base name.
func FilterPaths(paths []string) ([]File, error) {
	files := make([]File, len(paths))
	for i, p := range paths {
		files[i] = File{Name: p}
	}
	accepted, err := Filter(files)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			rejected.Name = filepath.Base(rejected.Name)
		}
		return nil, err
	}
	return accepted, nil
}
