package files

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// base64Marker prefixes the content field when a file isn't valid UTF-8,
// so the model can tell a read_file result apart from plain text.
const base64Marker = "base64:"

// ReadFileTool reads a file within the workspace, honouring a
// per-request offset/max_bytes and the tool's configured server-side
// cap.
type ReadFileTool struct {
	resolver       Resolver
	serverMaxBytes int
}

// NewReadFileTool creates a read_file tool scoped to the workspace.
func NewReadFileTool(cfg Config) *ReadFileTool {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 1 << 20 // 1 MiB
	}
	return &ReadFileTool{resolver: Resolver{Root: cfg.Workspace}, serverMaxBytes: limit}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read a file from the workspace." }

func (t *ReadFileTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Path relative to the workspace root."},
			"offset":    map[string]any{"type": "integer", "minimum": 0, "description": "Byte offset to start reading from."},
			"max_bytes": map[string]any{"type": "integer", "minimum": 0, "description": "Per-request cap, never larger than the server-configured maximum."},
		},
		"required": []string{"path"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

func (t *ReadFileTool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return invalidArgs(t.Name(), err)
	}
	if strings.TrimSpace(args.Path) == "" {
		return invalidArgs(t.Name(), fmt.Errorf("path is required"))
	}

	resolved, err := t.resolver.Resolve(args.Path)
	if err != nil {
		return invalidPath(t.Name(), err)
	}

	file, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return toolregistry.ErrorResponse(toolregistry.ErrFileNotFound, t.Name(), err.Error()), nil
		}
		return executionError(t.Name(), err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return executionError(t.Name(), err)
	}

	limit := t.serverMaxBytes
	if args.MaxBytes > 0 && args.MaxBytes < limit {
		limit = args.MaxBytes
	}
	if args.Offset >= info.Size() && info.Size() > 0 {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "offset beyond end of file"), nil
	}
	if info.Size()-args.Offset > int64(limit) && args.MaxBytes == 0 && info.Size() > int64(t.serverMaxBytes)*4 {
		// Whole-file reads on wildly oversized files are rejected outright
		// rather than silently truncated, per the FileTooLarge contract.
		return toolregistry.ErrorResponse(toolregistry.ErrFileTooLarge, t.Name(),
			fmt.Sprintf("file is %d bytes, exceeding the readable range without an explicit max_bytes", info.Size())), nil
	}

	if args.Offset > 0 {
		if _, err := file.Seek(args.Offset, io.SeekStart); err != nil {
			return executionError(t.Name(), err)
		}
	}

	buf, err := io.ReadAll(io.LimitReader(file, int64(limit)))
	if err != nil {
		return executionError(t.Name(), err)
	}
	truncated := info.Size() > 0 && args.Offset+int64(len(buf)) < info.Size()

	content := string(buf)
	binary := !utf8.Valid(buf)
	if binary {
		content = base64Marker + base64.StdEncoding.EncodeToString(buf)
	}

	data := map[string]any{
		"path":      args.Path,
		"content":   content,
		"offset":    args.Offset,
		"bytes":     len(buf),
		"truncated": truncated,
		"binary":    binary,
	}
	summary := fmt.Sprintf("Read %d bytes from %s", len(buf), args.Path)
	if truncated {
		summary += " (truncated)"
	}
	return toolregistry.Response{Kind: "read_file", Summary: summary, Data: data}, nil
}
