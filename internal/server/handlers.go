package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ironsheep/defect-inspect/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call request.
type ToolCallParams struct {
	// Name is the tool to invoke.
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleInitialize responds with the server's protocol capabilities.
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "defect-inspect",
				"version": "1.0.0",
			},
		},
	}
}

// handleToolsList returns the tool catalog.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

// handleToolsCall processes a tools/call request and executes the specified
// tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
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
	switch name {
	case "inspect_image":
		return s.handleInspectImage(args)
	case "pipeline_config":
		return s.handlePipelineConfig()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// InspectArgs are the arguments of the inspect_image tool.
type InspectArgs struct {
	Path      string `json:"path"`
	Annotated bool   `json:"annotated"`
}

// InspectResult is the inspect_image tool response.
type InspectResult struct {
	// Width and Height are the canonical image dimensions all finding
	// boxes refer to.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Findings is the confidence-ranked detection list.
	Findings []pipeline.Finding `json:"findings"`

	// Count is the number of findings.
	Count int `json:"count"`

	// AnnotatedBase64 is the annotated image as base64 PNG when requested.
	AnnotatedBase64 string `json:"annotated_base64,omitempty"`
}

func (s *Server) handleInspectImage(args json.RawMessage) (interface{}, error) {
	var params InspectArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(params.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	result, err := s.pipeline.Run(context.Background(), data)
	if err != nil {
		return nil, err
	}

	out := &InspectResult{
		Width:    result.Canonical.Bounds().Dx(),
		Height:   result.Canonical.Bounds().Dy(),
		Findings: result.Findings(),
	}
	out.Count = len(out.Findings)

	if params.Annotated {
		encoded, err := result.AnnotatedPNG()
		if err != nil {
			return nil, fmt.Errorf("failed to encode annotated image: %w", err)
		}
		out.AnnotatedBase64 = base64.StdEncoding.EncodeToString(encoded)
	}

	return out, nil
}

func (s *Server) handlePipelineConfig() (interface{}, error) {
	cfg := s.pipeline.Config()
	return map[string]interface{}{
		"preprocess":     cfg.Preprocess,
		"crack":          cfg.Crack,
		"irregularity":   cfg.Irregularity,
		"fusion":         cfg.Fusion,
		"model_dir":      cfg.Model.Dir,
		"learned_active": s.pipeline.LearnedActive(),
	}, nil
}

// mustMarshalJSON marshals a value to an indented JSON string, falling back
// to an error payload on failure.
func mustMarshalJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal result: %v"}`, err)
	}
	return string(data)
}
