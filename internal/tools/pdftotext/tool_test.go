package pdftotext

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// fakePdftotext installs a shell script standing in for the real
// pdftotext binary, so tests don't depend on poppler-utils being
// installed in the test environment.
func fakePdftotext(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake pdftotext script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := `#!/bin/sh
out="extracted text"
last=""
for arg in "$@"; do
  last="$arg"
done
if [ "$last" = "-" ]; then
  printf '%s' "$out"
else
  printf '%s' "$out" > "$last"
fi
`
	path := filepath.Join(dir, "pdftotext")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestPdfToTextExtractsToStdout(t *testing.T) {
	fakePdftotext(t)
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "doc.pdf"), []byte("%PDF-1.4"), 0o644))

	tool := New(Config{Workspace: workspace})
	args, _ := json.Marshal(map[string]any{"file_path": "doc.pdf"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "pdftotext", resp.Kind)

	data := resp.Data.(map[string]any)
	require.Equal(t, "extracted text", data["content"])
}

func TestPdfToTextWritesOutputFile(t *testing.T) {
	fakePdftotext(t)
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "doc.pdf"), []byte("%PDF-1.4"), 0o644))

	tool := New(Config{Workspace: workspace})
	args, _ := json.Marshal(map[string]any{"file_path": "doc.pdf", "output_path": "doc.txt"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, "pdftotext", resp.Kind)

	content, err := os.ReadFile(filepath.Join(workspace, "doc.txt"))
	require.NoError(t, err)
	require.Equal(t, "extracted text", string(content))
}

func TestPdfToTextMissingFileReturnsFileNotFound(t *testing.T) {
	fakePdftotext(t)
	tool := New(Config{Workspace: t.TempDir()})
	args, _ := json.Marshal(map[string]any{"file_path": "missing.pdf"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrFileNotFound, resp.ErrorKind)
}

func TestPdfToTextRejectsUnsafeEncoding(t *testing.T) {
	fakePdftotext(t)
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "doc.pdf"), []byte("%PDF-1.4"), 0o644))

	tool := New(Config{Workspace: workspace})
	args, _ := json.Marshal(map[string]any{"file_path": "doc.pdf", "encoding": "utf8; rm -rf /"})
	resp, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	require.Equal(t, toolregistry.ErrInvalidArguments, resp.ErrorKind)
}
