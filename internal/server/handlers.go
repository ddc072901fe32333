package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-merge-mcp/internal/engine"
	"github.com/ironsheep/image-merge-mcp/internal/imaging"
	"github.com/ironsheep/image-merge-mcp/internal/intake"
	"github.com/ironsheep/image-merge-mcp/internal/logging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_merge").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Merge failures carry an ErrorBody as the error data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		logging.Warn("tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", errorData(err))
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "image_merge":
		return s.handleImageMerge(args)
	case "image_detect_overlap":
		return s.handleImageDetectOverlap(args)
	case "image_info":
		return s.handleImageInfo(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// errorData is the structured body for merge errors and the plain message
// otherwise.
func errorData(err error) interface{} {
	var e *engine.Error
	if errors.As(err, &e) {
		return NewErrorBody(e)
	}
	return err.Error()
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Merge ===

type imageMergeArgs struct {
	Paths              []string `json:"paths"`
	ImagesBase64       []string `json:"images_base64"`
	Direction          string   `json:"direction"`
	Background         string   `json:"background"`
	OverlapSensitivity *int     `json:"overlap_sensitivity"`
	StripChrome        *bool    `json:"strip_chrome"`
	OutputPath         string   `json:"output_path"`
	IncludeImage       *bool    `json:"include_image"`
}

type mergeToolResult struct {
	Width       int                     `json:"width"`
	Height      int                     `json:"height"`
	MIMEType    string                  `json:"mime_type"`
	PixelDigest string                  `json:"pixel_digest"`
	SizeBytes   int                     `json:"size_bytes"`
	OutputPath  string                  `json:"output_path,omitempty"`
	ImageBase64 string                  `json:"image_base64,omitempty"`
	Overlaps    []imaging.OverlapResult `json:"overlaps,omitempty"`
	Chrome      []imaging.ChromeTrim    `json:"chrome,omitempty"`
	DurationMS  int64                   `json:"duration_ms"`
}

func (s *Server) handleImageMerge(args json.RawMessage) (interface{}, error) {
	var a imageMergeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	opts := s.defaults
	if a.Direction != "" {
		d, err := engine.ParseDirection(a.Direction)
		if err != nil {
			return nil, err
		}
		opts.Direction = d
	}
	if a.Background != "" {
		bg, err := imaging.ParseBackground(a.Background)
		if err != nil {
			return nil, err
		}
		opts.Background = bg
	}
	if a.OverlapSensitivity != nil {
		opts.OverlapSensitivity = imaging.ClampSensitivity(*a.OverlapSensitivity)
	}
	if a.StripChrome != nil {
		opts.StripChrome = *a.StripChrome
	}

	inputs, origin, err := gatherInputs(a.Paths, a.ImagesBase64)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Merge(inputs, opts)
	if err != nil {
		return nil, engine.RemapFileIndex(err, origin)
	}

	out := mergeToolResult{
		Width:       res.Width,
		Height:      res.Height,
		MIMEType:    res.MIME,
		PixelDigest: res.PixelDigest,
		SizeBytes:   len(res.Data),
		Overlaps:    res.Overlaps,
		Chrome:      res.Chrome,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if a.OutputPath != "" {
		if err := os.WriteFile(a.OutputPath, res.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
		out.OutputPath = a.OutputPath
	}
	include := a.OutputPath == ""
	if a.IncludeImage != nil {
		include = *a.IncludeImage
	}
	if include {
		out.ImageBase64 = base64.StdEncoding.EncodeToString(res.Data)
	}
	return out, nil
}

// gatherInputs reads the image files in order, followed by the inline
// images. Paths that do not look like images are skipped; a HEIC/HEIF
// path fails the call.
//
// File indexes count positions in paths followed by encoded, before any
// path is skipped. origin maps each returned input to that position.
func gatherInputs(paths, encoded []string) (inputs []engine.Input, origin []int, err error) {
	accepted, err := intake.FilterPaths(paths)
	if err != nil {
		var rejected *intake.RejectedError
		if errors.As(err, &rejected) {
			return nil, nil, engine.NewFileError(engine.KindUnsupportedFormat, rejected.Index, rejected.Name, err)
		}
		return nil, nil, err
	}
	if skipped := len(paths) - len(accepted); skipped > 0 {
		logging.Info("skipped %d non-image path(s)", skipped)
	}

	inputs = make([]engine.Input, 0, len(accepted)+len(encoded))
	origin = make([]int, 0, cap(inputs))
	for _, f := range accepted {
		name := filepath.Base(f.Name)
		data, err := os.ReadFile(f.Name)
		if err != nil {
			return nil, nil, engine.NewFileError(engine.KindDecodeFailed, f.Index, name, err)
		}
		inputs = append(inputs, engine.Input{Data: data, Name: name})
		origin = append(origin, f.Index)
	}
	for j, s := range encoded {
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, nil, engine.NewFileError(engine.KindDecodeFailed, len(paths)+j, "", fmt.Errorf("invalid base64: %w", err))
		}
		inputs = append(inputs, engine.Input{Data: data})
		origin = append(origin, len(paths)+j)
	}
	return inputs, origin, nil
}

// === Analysis ===

type imageDetectOverlapArgs struct {
	PathA       string `json:"path_a"`
	PathB       string `json:"path_b"`
	Direction   string `json:"direction"`
	Sensitivity *int   `json:"sensitivity"`
}

func (s *Server) handleImageDetectOverlap(args json.RawMessage) (interface{}, error) {
	var a imageDetectOverlapArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	direction, err := engine.ParseDirection(a.Direction)
	if err != nil {
		return nil, err
	}
	sensitivity := s.defaults.OverlapSensitivity
	if a.Sensitivity != nil {
		sensitivity = imaging.ClampSensitivity(*a.Sensitivity)
	}

	prev, err := loadRaster(a.PathA)
	if err != nil {
		return nil, err
	}
	next, err := loadRaster(a.PathB)
	if err != nil {
		return nil, err
	}
	return imaging.DetectOverlap(prev.Image, next.Image, direction.Axis(), sensitivity), nil
}

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Inspect(data)
}

// loadRaster reads, decodes and uprights one image file.
func loadRaster(path string) (*imaging.Raster, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return imaging.Normalize(r), nil
}
