package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// ListFilesTool walks a directory breadth-first, bounded by MaxFiles,
// and returns entries sorted directories-first then case-insensitive
// by name with a stable tiebreak.
type ListFilesTool struct {
	resolver Resolver
	maxFiles int
}

// NewListFilesTool creates a list_files tool scoped to the workspace.
func NewListFilesTool(cfg Config) *ListFilesTool {
	max := cfg.MaxFiles
	if max <= 0 {
		max = 5000
	}
	return &ListFilesTool{resolver: Resolver{Root: cfg.Workspace}, maxFiles: max}
}

func (t *ListFilesTool) Name() string { return "list_files" }
func (t *ListFilesTool) Description() string {
	return "List files and directories under a workspace path, breadth-first."
}

func (t *ListFilesTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Directory relative to the workspace root. Defaults to the root."},
			"max_files": map[string]any{"type": "integer", "minimum": 1, "description": "Caps the number of entries returned, never larger than the server-configured maximum."},
		},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

type listedEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

func (t *ListFilesTool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Path     string `json:"path"`
		MaxFiles int    `json:"max_files"`
	}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return invalidArgs(t.Name(), err)
		}
	}

	limit := t.maxFiles
	if args.MaxFiles > 0 && args.MaxFiles < limit {
		limit = args.MaxFiles
	}

	start := args.Path
	if strings.TrimSpace(start) == "" {
		start = "."
	}
	resolved, err := t.resolver.Resolve(start)
	if err != nil {
		return invalidPath(t.Name(), err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return toolregistry.ErrorResponse(toolregistry.ErrFileNotFound, t.Name(), err.Error()), nil
		}
		return executionError(t.Name(), err)
	}
	if !info.IsDir() {
		return invalidArgs(t.Name(), fmt.Errorf("%s is not a directory", start))
	}

	var entries []listedEntry
	queue := []string{resolved}
	truncated := false

	for len(queue) > 0 && len(entries) < limit {
		select {
		case <-ctx.Done():
			return toolregistry.ErrorResponse(toolregistry.ErrTimeout, t.Name(), ctx.Err().Error()), nil
		default:
		}

		dir := queue[0]
		queue = queue[1:]

		children, err := os.ReadDir(dir)
		if err != nil {
			return executionError(t.Name(), err)
		}
		sort.Slice(children, func(i, j int) bool {
			ci, cj := children[i], children[j]
			if ci.IsDir() != cj.IsDir() {
				return ci.IsDir()
			}
			li, lj := strings.ToLower(ci.Name()), strings.ToLower(cj.Name())
			if li != lj {
				return li < lj
			}
			return ci.Name() < cj.Name()
		})

		for _, child := range children {
			if len(entries) >= limit {
				truncated = true
				break
			}
			full := filepath.Join(dir, child.Name())
			rel, err := filepath.Rel(resolved, full)
			if err != nil {
				rel = child.Name()
			}
			entries = append(entries, listedEntry{Path: filepath.ToSlash(rel), IsDir: child.IsDir()})
			if child.IsDir() {
				queue = append(queue, full)
			}
		}
	}
	if len(queue) > 0 {
		truncated = true
	}

	summary := fmt.Sprintf("Listed %d entries under %s", len(entries), start)
	if truncated {
		summary += " (truncated)"
	}
	return toolregistry.Response{
		Kind:    "list_files",
		Summary: summary,
		Data: map[string]any{
			"entries":   entries,
			"truncated": truncated,
		},
	}, nil
}
