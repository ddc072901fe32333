// Package server exposes the merge engine over stdio.
//
// # JSON-RPC
//
// Run speaks MCP (JSON-RPC 2.0, one message per line):
//   - initialize: protocol handshake
//   - tools/list: enumerate available tools
//   - tools/call: execute a tool with arguments
//   - merge: run a MergeRequest directly, images as base64 strings
//   - ping: health check
//
// Tools:
//   - image_merge: stack images into one PNG
//   - image_detect_overlap: measure the overlap between two images
//   - image_info: format, dimensions and orientation of one image
//
// Merge failures are returned with error code -32000 and an ErrorBody
// ({code, message, details}) as the error data.
//
// # CBOR
//
// RunCBOR reads a stream of CBOR-encoded MergeRequest values and writes one
// MergeResponse for each. Images travel as byte strings, so no base64 step
// is needed. The stream ends cleanly at EOF between requests.
//
// Requests on either transport are independent; unset options take the
// defaults the server was created with.
package server
