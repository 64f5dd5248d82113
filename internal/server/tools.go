package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "inspect_image",
			Description: "Run the surface defect pipeline on an image file. Returns a confidence-ranked list of findings (type, confidence, support, bounding box in canonical coordinates) and optionally the annotated image as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file (PNG, JPEG, GIF or BMP)",
					},
					"annotated": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the annotated image as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pipeline_config",
			Description: "Return the active pipeline configuration: preprocessing bounds, detector thresholds, fusion parameters and whether the learned detector is loaded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
