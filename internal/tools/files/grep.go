package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// GrepTool searches file contents for a regular expression, walking
// the workspace breadth-first and bounded by MaxFiles, same traversal
// order as list_files.
type GrepTool struct {
	resolver Resolver
	maxFiles int
}

// NewGrepTool creates a grep tool scoped to the workspace.
func NewGrepTool(cfg Config) *GrepTool {
	max := cfg.MaxFiles
	if max <= 0 {
		max = 5000
	}
	return &GrepTool{resolver: Resolver{Root: cfg.Workspace}, maxFiles: max}
}

func (t *GrepTool) Name() string { return "grep" }
func (t *GrepTool) Description() string {
	return "Search file contents under a workspace path for a regular expression."
}

func (t *GrepTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":    map[string]any{"type": "string", "description": "RE2 regular expression to search for."},
			"path":       map[string]any{"type": "string", "description": "Directory relative to the workspace root. Defaults to the root."},
			"max_files":  map[string]any{"type": "integer", "minimum": 1, "description": "Caps the number of files scanned."},
			"max_matches": map[string]any{"type": "integer", "minimum": 1, "description": "Caps the number of matches returned."},
		},
		"required": []string{"pattern"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

type grepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *GrepTool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Pattern    string `json:"pattern"`
		Path       string `json:"path"`
		MaxFiles   int    `json:"max_files"`
		MaxMatches int    `json:"max_matches"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return invalidArgs(t.Name(), err)
	}
	if strings.TrimSpace(args.Pattern) == "" {
		return invalidArgs(t.Name(), fmt.Errorf("pattern is required"))
	}
	re, err := regexp.Compile(args.Pattern)
	if err != nil {
		return invalidArgs(t.Name(), fmt.Errorf("invalid pattern: %w", err))
	}

	fileLimit := t.maxFiles
	if args.MaxFiles > 0 && args.MaxFiles < fileLimit {
		fileLimit = args.MaxFiles
	}
	matchLimit := 200
	if args.MaxMatches > 0 {
		matchLimit = args.MaxMatches
	}

	start := args.Path
	if strings.TrimSpace(start) == "" {
		start = "."
	}
	resolved, err := t.resolver.Resolve(start)
	if err != nil {
		return invalidPath(t.Name(), err)
	}

	files, filesTruncated, err := t.walk(ctx, resolved, fileLimit)
	if err != nil {
		return executionError(t.Name(), err)
	}

	var matches []grepMatch
	matchesTruncated := false
scan:
	for _, f := range files {
		data, err := os.Open(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(data)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		line := 0
		for scanner.Scan() {
			line++
			if re.MatchString(scanner.Text()) {
				rel, relErr := filepath.Rel(resolved, f)
				if relErr != nil {
					rel = f
				}
				matches = append(matches, grepMatch{Path: filepath.ToSlash(rel), Line: line, Text: scanner.Text()})
				if len(matches) >= matchLimit {
					matchesTruncated = true
					data.Close()
					break scan
				}
			}
		}
		data.Close()
	}

	summary := fmt.Sprintf("Found %d match(es) for %q", len(matches), args.Pattern)
	if matchesTruncated || filesTruncated {
		summary += " (truncated)"
	}
	return toolregistry.Response{
		Kind:    "grep",
		Summary: summary,
		Data: map[string]any{
			"matches":   matches,
			"truncated": matchesTruncated || filesTruncated,
		},
	}, nil
}

// walk returns the absolute paths of regular files breadth-first, mirroring
// list_files's traversal order so grep scans in a predictable sequence.
func (t *GrepTool) walk(ctx context.Context, root string, limit int) ([]string, bool, error) {
	var files []string
	queue := []string{root}
	truncated := false

	for len(queue) > 0 && len(files) < limit {
		select {
		case <-ctx.Done():
			return files, true, ctx.Err()
		default:
		}

		dir := queue[0]
		queue = queue[1:]

		children, err := os.ReadDir(dir)
		if err != nil {
			continue
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
			if len(files) >= limit {
				truncated = true
				break
			}
			full := filepath.Join(dir, child.Name())
			if child.IsDir() {
				queue = append(queue, full)
				continue
			}
			files = append(files, full)
		}
	}
	if len(queue) > 0 {
		truncated = true
	}
	return files, truncated, nil
}
