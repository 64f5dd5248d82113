// Package server exposes the defect detection pipeline over MCP-style
// JSON-RPC on stdin/stdout.
//
// The protocol surface is deliberately thin: initialize, tools/list,
// tools/call and ping. Two tools exist — inspect_image runs the full
// pipeline on an image file and returns the ranked findings (plus the
// annotated image on request), and pipeline_config echoes the active
// thresholds. All detection logic lives below the pipeline package; this
// layer only moves bytes.
package server
