package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var directionSchema = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"vertical", "horizontal", "smart"},
	"description": "Stacking direction. 'smart' stacks top to bottom and removes repeated chrome and overlapping content between neighbours. Default: vertical",
}

var sensitivitySchema = map[string]interface{}{
	"type":        "integer",
	"minimum":     0,
	"maximum":     100,
	"description": "Overlap matching tolerance, 0 (pixel-exact) to 100 (loose). Default: 35",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_merge",
			Description: "Merge two or more images into one PNG, stacked vertically or horizontally. Images are scaled to a common width (vertical) or height (horizontal) and centered on the background. Smart mode stitches scrolling screenshots by trimming repeated headers/footers and overlapping content.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the images, in merge order. Non-image files are skipped; HEIC/HEIF files are rejected.",
					},
					"images_base64": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Base64-encoded image data, merged after any paths",
					},
					"direction": directionSchema,
					"background": map[string]interface{}{
						"type":        "string",
						"description": "Canvas color as #RGB, #RRGGBB, #RRGGBBAA or white/black/transparent. Default: white",
					},
					"overlap_sensitivity": sensitivitySchema,
					"strip_chrome": map[string]interface{}{
						"type":        "boolean",
						"description": "In smart mode, trim headers/footers repeated between neighbouring images. Default: true",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the merged PNG to this path",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the merged PNG as base64 in the result. Default: true when output_path is not set",
					},
				},
			},
		},
		{
			Name:        "image_detect_overlap",
			Description: "Measure how much the start of the second image repeats the end of the first. Returns the number of pixels smart mode would trim from the second image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path_a": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the earlier image",
					},
					"path_b": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the later image",
					},
					"direction":   directionSchema,
					"sensitivity": sensitivitySchema,
				},
				"required": []string{"path_a", "path_b"},
			},
		},
		{
			Name:        "image_info",
			Description: "Report an image's format, stored dimensions, EXIF orientation and the dimensions it will have once upright.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
