package server

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/image-merge-mcp/internal/codec"
	"github.com/ironsheep/image-merge-mcp/internal/engine"
	"github.com/ironsheep/image-merge-mcp/internal/imaging"
	"github.com/ironsheep/image-merge-mcp/internal/logging"
)

// MergeRequest asks for one merge. Images are raw encoded files in merge
// order; FileNames, when present, parallels Images and is echoed in
// errors.
type MergeRequest struct {
	ID        uint64       `json:"id,omitempty"`
	Images    [][]byte     `json:"images"`
	FileNames []string     `json:"fileNames,omitempty"`
	Options   *WireOptions `json:"options,omitempty"`
}

// WireOptions are the caller-supplied merge options. Unset fields take the
// server defaults.
type WireOptions struct {
	Direction          string     `json:"direction,omitempty"`
	Background         *WireColor `json:"background,omitempty"`
	OverlapSensitivity *int       `json:"overlapSensitivity,omitempty"`
	StripChrome        *bool      `json:"stripChrome,omitempty"`
}

// WireColor is an RGBA color. Missing channels default to 255 and values
// are clamped to 0-255.
type WireColor struct {
	R *int `json:"r,omitempty"`
	G *int `json:"g,omitempty"`
	B *int `json:"b,omitempty"`
	A *int `json:"a,omitempty"`
}

// Background converts the color, filling and clamping channels.
func (c *WireColor) Background() imaging.Background {
	channel := func(v *int) uint8 {
		switch {
		case v == nil:
			return 255
		case *v < 0:
			return 0
		case *v > 255:
			return 255
		}
		return uint8(*v)
	}
	return imaging.Background{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: channel(c.A)}
}

// MergeResponse carries exactly one of Result or Error.
type MergeResponse struct {
	ID     uint64        `json:"id,omitempty"`
	Result *MergeSuccess `json:"result,omitempty"`
	Error  *ErrorBody    `json:"error,omitempty"`
}

// MergeSuccess is the encoded output of a merge.
type MergeSuccess struct {
	Bytes  []byte `json:"bytes"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	MIME   string `json:"mime"`
}

// CodeInvalidRequest marks a CBOR item that does not decode as a
// MergeRequest.
const CodeInvalidRequest = "INVALID_REQUEST"

// ErrorBody is the structured form of a merge failure.
type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails names the input a failure relates to.
type ErrorDetails struct {
	FileIndex int    `json:"fileIndex"`
	FileName  string `json:"fileName,omitempty"`
}

// NewErrorBody converts err into its wire form. Errors that are not
// *engine.Error become INTERNAL_ERROR.
func NewErrorBody(err error) *ErrorBody {
	e := engine.AsError(err)
	body := &ErrorBody{Code: e.Code(), Message: e.Message}
	if body.Message == "" {
		body.Message = e.Error()
	}
	if e.HasFile() {
		body.Details = &ErrorDetails{FileIndex: e.FileIndex, FileName: e.FileName}
	}
	return body
}

// options merges the request options over the server defaults.
func (s *Server) options(w *WireOptions) engine.Options {
	opts := s.defaults
	if w == nil {
		return opts
	}
	if w.Direction != "" {
		opts.Direction = engine.Direction(w.Direction)
	}
	if w.Background != nil {
		opts.Background = w.Background.Background()
	}
	if w.OverlapSensitivity != nil {
		opts.OverlapSensitivity = imaging.ClampSensitivity(*w.OverlapSensitivity)
	}
	if w.StripChrome != nil {
		opts.StripChrome = *w.StripChrome
	}
	return opts
}

// HandleMerge runs one merge request.
func (s *Server) HandleMerge(req *MergeRequest) *MergeResponse {
	inputs := make([]engine.Input, len(req.Images))
	for i, data := range req.Images {
		inputs[i] = engine.Input{Data: data}
		if i < len(req.FileNames) {
			inputs[i].Name = req.FileNames[i]
		}
	}

	res, err := s.engine.Merge(inputs, s.options(req.Options))
	if err != nil {
		return &MergeResponse{ID: req.ID, Error: NewErrorBody(err)}
	}
	return &MergeResponse{
		ID: req.ID,
		Result: &MergeSuccess{
			Bytes:  res.Data,
			Width:  res.Width,
			Height: res.Height,
			MIME:   res.MIME,
		},
	}
}

// RunCBOR serves the binary merge transport on stdin and stdout.
func (s *Server) RunCBOR() error {
	return s.ServeCBOR(os.Stdin, os.Stdout)
}

// maxDiagnosticLen bounds the diagnostic notation logged for a malformed
// request.
const maxDiagnosticLen = 256

// ServeCBOR reads a stream of CBOR-encoded MergeRequest values from r and
// writes one MergeResponse per request to w. It returns nil when r ends
// cleanly between requests.
//
// A well-formed CBOR item that is not a merge request gets an
// INVALID_REQUEST response and the stream continues. Bytes that are not
// CBOR at all end the stream with an error.
func (s *Server) ServeCBOR(r io.Reader, w io.Writer) error {
	dec := codec.NewDecoder(r)
	enc := codec.NewEncoder(w)

	for {
		var raw codec.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode merge request: %w", err)
		}

		var resp *MergeResponse
		var req MergeRequest
		if err := codec.Unmarshal(raw, &req); err != nil {
			logging.Warn("malformed merge request %s: %v", diagnose(raw), err)
			resp = &MergeResponse{Error: &ErrorBody{Code: CodeInvalidRequest, Message: err.Error()}}
		} else {
			logging.Debug("cbor request %d: %d images", req.ID, len(req.Images))
			resp = s.HandleMerge(&req)
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode merge response: %w", err)
		}
	}
}

func diagnose(raw []byte) string {
	diag, err := codec.Diagnose(raw)
	if err != nil {
		return fmt.Sprintf("(%d bytes)", len(raw))
	}
	if len(diag) > maxDiagnosticLen {
		diag = diag[:maxDiagnosticLen] + "..."
	}
	return diag
}
