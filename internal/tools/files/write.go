package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// WriteFileTool writes or edits a file within the workspace. A request
// either supplies content (full overwrite or append) or a list of
// search/replace edits applied against the file's existing text.
type WriteFileTool struct {
	resolver Resolver
}

// NewWriteFileTool creates a write_file tool scoped to the workspace.
func NewWriteFileTool(cfg Config) *WriteFileTool {
	return &WriteFileTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write, append to, or search/replace within a file in the workspace."
}

func (t *WriteFileTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path relative to the workspace root."},
			"content": map[string]any{"type": "string", "description": "Full content to write. Mutually exclusive with edits."},
			"append":  map[string]any{"type": "boolean", "description": "When true with content, append instead of overwriting."},
			"edits": map[string]any{
				"type":        "array",
				"description": "Search/replace edits applied in order. Mutually exclusive with content.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"old_text":     map[string]any{"type": "string"},
						"new_text":     map[string]any{"type": "string"},
						"replace_all":  map[string]any{"type": "boolean"},
					},
					"required": []string{"old_text", "new_text"},
				},
			},
		},
		"required": []string{"path"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

type editOp struct {
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	ReplaceAll bool   `json:"replace_all"`
}

func (t *WriteFileTool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Path    string   `json:"path"`
		Content *string  `json:"content"`
		Append  bool     `json:"append"`
		Edits   []editOp `json:"edits"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return invalidArgs(t.Name(), err)
	}
	if strings.TrimSpace(args.Path) == "" {
		return invalidArgs(t.Name(), fmt.Errorf("path is required"))
	}
	if args.Content != nil && len(args.Edits) > 0 {
		return invalidArgs(t.Name(), fmt.Errorf("content and edits are mutually exclusive"))
	}
	if args.Content == nil && len(args.Edits) == 0 {
		return invalidArgs(t.Name(), fmt.Errorf("either content or edits is required"))
	}

	resolved, err := t.resolver.Resolve(args.Path)
	if err != nil {
		return invalidPath(t.Name(), err)
	}

	if args.Content != nil {
		return t.writeContent(resolved, args.Path, *args.Content, args.Append)
	}
	return t.applyEdits(resolved, args.Path, args.Edits)
}

func (t *WriteFileTool) writeContent(resolved, displayPath, content string, appendMode bool) (toolregistry.Response, error) {
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return executionError(t.Name(), err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return executionError(t.Name(), err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return executionError(t.Name(), err)
	}

	action := "Wrote"
	if appendMode {
		action = "Appended to"
	}
	return toolregistry.Response{
		Kind:    "write_file",
		Summary: fmt.Sprintf("%s %s (%d bytes)", action, displayPath, len(content)),
		Data: map[string]any{
			"path":   displayPath,
			"bytes":  len(content),
			"append": appendMode,
		},
	}, nil
}

func (t *WriteFileTool) applyEdits(resolved, displayPath string, edits []editOp) (toolregistry.Response, error) {
	raw, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return toolregistry.ErrorResponse(toolregistry.ErrFileNotFound, t.Name(), err.Error()), nil
		}
		return executionError(t.Name(), err)
	}

	content := string(raw)
	totalReplacements := 0
	for i, edit := range edits {
		if edit.OldText == "" {
			return invalidArgs(t.Name(), fmt.Errorf("edits[%d].old_text must not be empty", i))
		}
		count := strings.Count(content, edit.OldText)
		if count == 0 {
			return toolregistry.ErrorResponse(toolregistry.ErrSearchNotFound, t.Name(),
				fmt.Sprintf("edits[%d]: old_text not found in %s", i, displayPath)), nil
		}
		if !edit.ReplaceAll && count > 1 {
			return invalidArgs(t.Name(), fmt.Errorf("edits[%d]: old_text matches %d times; set replace_all to replace them all", i, count))
		}
		if edit.ReplaceAll {
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
			totalReplacements += count
		} else {
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
			totalReplacements++
		}
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return executionError(t.Name(), err)
	}

	return toolregistry.Response{
		Kind:    "write_file",
		Summary: fmt.Sprintf("Applied %d edit(s) to %s (%d replacement(s))", len(edits), displayPath, totalReplacements),
		Data: map[string]any{
			"path":         displayPath,
			"edits":        len(edits),
			"replacements": totalReplacements,
		},
	}, nil
}
