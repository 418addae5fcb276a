// Package files implements the path-sandboxed filesystem tools:
// list_files, read_file, write_file, grep, and apply_patch. Every tool
// takes a workspace root; paths are normalised and rejected if they
// would escape it, before any I/O happens.
package files

import "github.com/brainless/nocodo-agentcore/internal/toolregistry"

// Config controls defaults shared by the filesystem tools.
type Config struct {
	Workspace    string
	MaxReadBytes int // server-side cap; read_file also accepts a per-request max_bytes no larger than this
	MaxFiles     int // traversal bound for list_files and grep
}

func invalidArgs(tool string, err error) (toolregistry.Response, error) {
	return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, tool, err.Error()), nil
}

func invalidPath(tool string, err error) (toolregistry.Response, error) {
	return toolregistry.ErrorResponse(toolregistry.ErrInvalidPath, tool, err.Error()), nil
}

func executionError(tool string, err error) (toolregistry.Response, error) {
	return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, tool, err.Error()), nil
}
