// Package toolregistry holds the canonical set of tools, presents each
// one to a model in a provider-appropriate schema, and dispatches a
// model's tool-call payload to the typed handler bound to it.
package toolregistry

import (
	"context"
	"encoding/json"
)

// ErrorKind enumerates the ways a tool dispatch can fail. All are
// normalized into a Response with Kind == KindError; none surface as a
// Go error from Execute except genuine programmer mistakes.
type ErrorKind string

const (
	ErrUnknownTool      ErrorKind = "UnknownTool"
	ErrInvalidArguments ErrorKind = "InvalidArguments"
	ErrInvalidPath      ErrorKind = "InvalidPath"
	ErrFileNotFound     ErrorKind = "FileNotFound"
	ErrFileTooLarge     ErrorKind = "FileTooLarge"
	ErrSearchNotFound   ErrorKind = "SearchNotFound"
	ErrTimeout          ErrorKind = "Timeout"
	ErrPermissionDenied ErrorKind = "PermissionDenied"
	ErrExecutionError   ErrorKind = "ExecutionError"
)

// KindError tags a Response as the Error variant of ToolResponse.
const KindError = "error"

// Response is a tagged tool result: Kind identifies which variant Data
// holds (e.g. "read_file", "grep", "error"), Summary is the
// deterministic model-visible rendering, and Data is the structured
// payload kept for tests and programmatic callers.
type Response struct {
	Kind    string
	Summary string
	Data    any

	// Populated only when Kind == KindError.
	ErrorKind ErrorKind
	Message   string
}

// ErrorResponse builds the Error variant of Response.
func ErrorResponse(kind ErrorKind, toolName, message string) Response {
	return Response{
		Kind:      KindError,
		ErrorKind: kind,
		Message:   message,
		Summary:   "Error (" + string(kind) + "): " + message,
		Data: map[string]string{
			"tool_name":  toolName,
			"error_kind": string(kind),
			"message":    message,
		},
	}
}

// Spec describes one tool's contract as shown to a model.
type Spec struct {
	Name        string
	Description string
	Parameters  json.RawMessage // canonical JSON Schema, inline subschemas only
}

// Tool is the typed handler bound to one request variant. Schema
// returns the canonical schema (before any provider dialect rewrite);
// Execute decodes rawArgs itself so each tool owns its own variant type.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, rawArgs json.RawMessage) (Response, error)
}
