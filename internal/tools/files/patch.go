package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// ApplyPatchTool applies a unified diff to one or more files in the
// workspace. It parses the diff itself rather than shelling out to
// patch(1), so behaviour is identical regardless of what's installed
// on the host.
type ApplyPatchTool struct {
	resolver Resolver
}

// NewApplyPatchTool creates an apply_patch tool scoped to the workspace.
func NewApplyPatchTool(cfg Config) *ApplyPatchTool {
	return &ApplyPatchTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *ApplyPatchTool) Name() string { return "apply_patch" }
func (t *ApplyPatchTool) Description() string {
	return "Apply a unified diff to files in the workspace."
}

func (t *ApplyPatchTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"patch": map[string]any{"type": "string", "description": "Unified diff text, as produced by diff -u or git diff."},
		},
		"required": []string{"patch"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

func (t *ApplyPatchTool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Patch string `json:"patch"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return invalidArgs(t.Name(), err)
	}
	if strings.TrimSpace(args.Patch) == "" {
		return invalidArgs(t.Name(), fmt.Errorf("patch is required"))
	}

	patches, err := parseUnifiedDiff(args.Patch)
	if err != nil {
		return invalidArgs(t.Name(), err)
	}
	if len(patches) == 0 {
		return invalidArgs(t.Name(), fmt.Errorf("patch contains no file diffs"))
	}

	var results []patchResult
	for _, fp := range patches {
		resolved, err := t.resolver.Resolve(fp.path)
		if err != nil {
			return invalidPath(t.Name(), err)
		}
		res, err := applyFilePatch(resolved, fp)
		if err != nil {
			if res.errorKind != "" {
				return toolregistry.ErrorResponse(res.errorKind, t.Name(), err.Error()), nil
			}
			return executionError(t.Name(), err)
		}
		results = append(results, res)
	}

	return toolregistry.Response{
		Kind:    "apply_patch",
		Summary: fmt.Sprintf("Applied patch to %d file(s)", len(results)),
		Data: map[string]any{
			"files": results,
		},
	}, nil
}

// filePatch is one file's hunks from a unified diff.
type filePatch struct {
	path  string
	hunks []hunk
}

// hunk is a single @@ -a,b +c,d @@ region with its context/add/remove lines.
type hunk struct {
	oldStart int
	oldLines int
	newStart int
	newLines int
	lines    []string // prefixed with ' ', '+', or '-'
}

type patchResult struct {
	Path         string `json:"path"`
	HunksApplied int    `json:"hunks_applied"`

	errorKind toolregistry.ErrorKind
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

func parseUnifiedDiff(text string) ([]filePatch, error) {
	lines := strings.Split(text, "\n")
	var patches []filePatch
	var current *filePatch
	var curHunk *hunk

	flush := func() {
		if curHunk != nil && current != nil {
			current.hunks = append(current.hunks, *curHunk)
			curHunk = nil
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- "):
			flush()
			if current != nil {
				patches = append(patches, *current)
			}
			current = &filePatch{}
		case strings.HasPrefix(line, "+++ "):
			if current == nil {
				return nil, fmt.Errorf("patch: +++ without preceding ---")
			}
			current.path = parseDiffPath(line[4:])
		case hunkHeader.MatchString(line):
			flush()
			m := hunkHeader.FindStringSubmatch(line)
			curHunk = &hunk{
				oldStart: atoi(m[1]),
				oldLines: atoiDefault(m[2], 1),
				newStart: atoi(m[3]),
				newLines: atoiDefault(m[4], 1),
			}
		case curHunk != nil && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")):
			curHunk.lines = append(curHunk.lines, line)
		case curHunk != nil && line == "":
			curHunk.lines = append(curHunk.lines, " ")
		}
	}
	flush()
	if current != nil {
		patches = append(patches, *current)
	}
	return patches, nil
}

func parseDiffPath(raw string) string {
	path := strings.TrimSpace(raw)
	if tab := strings.IndexByte(path, '\t'); tab != -1 {
		path = path[:tab]
	}
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	return path
}

func applyFilePatch(resolvedPath string, fp filePatch) (patchResult, error) {
	result := patchResult{Path: fp.path}

	raw, err := os.ReadFile(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.errorKind = toolregistry.ErrFileNotFound
			return result, err
		}
		return result, err
	}
	original := strings.Split(string(raw), "\n")

	var rebuilt []string
	cursor := 0
	for _, h := range fp.hunks {
		start := h.oldStart - 1
		if start < 0 || start > len(original) {
			result.errorKind = toolregistry.ErrInvalidArguments
			return result, fmt.Errorf("hunk at line %d is out of range for %s", h.oldStart, fp.path)
		}
		rebuilt = append(rebuilt, original[cursor:start]...)
		cursor = start

		for _, line := range h.lines {
			if line == "" {
				continue
			}
			tag, text := line[0], line[1:]
			switch tag {
			case ' ':
				if cursor >= len(original) || original[cursor] != text {
					result.errorKind = toolregistry.ErrSearchNotFound
					return result, fmt.Errorf("context mismatch in %s near line %d", fp.path, h.oldStart)
				}
				rebuilt = append(rebuilt, text)
				cursor++
			case '-':
				if cursor >= len(original) || original[cursor] != text {
					result.errorKind = toolregistry.ErrSearchNotFound
					return result, fmt.Errorf("removal mismatch in %s near line %d", fp.path, h.oldStart)
				}
				cursor++
			case '+':
				rebuilt = append(rebuilt, text)
			}
		}
		result.HunksApplied++
	}
	rebuilt = append(rebuilt, original[cursor:]...)

	if err := os.WriteFile(resolvedPath, []byte(strings.Join(rebuilt, "\n")), 0o644); err != nil {
		return result, err
	}
	return result, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoi(s)
}
