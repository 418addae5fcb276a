package files

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
	"github.com/stretchr/testify/require"
)

func workspace(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func TestReadFileReturnsContent(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "hello.txt"), []byte("hello world"), 0o644))

	tool := NewReadFileTool(Config{Workspace: ws, MaxReadBytes: 1024})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"hello.txt"}`))
	require.NoError(t, err)
	require.Equal(t, "read_file", resp.Kind)

	data := resp.Data.(map[string]any)
	require.Equal(t, "hello world", data["content"])
	require.False(t, data["binary"].(bool))
}

func TestReadFileBinaryFallsBackToBase64(t *testing.T) {
	ws := workspace(t)
	payload := []byte{0x00, 0x01, 0xff, 0xfe, 0x80}
	require.NoError(t, os.WriteFile(filepath.Join(ws, "bin.dat"), payload, 0o644))

	tool := NewReadFileTool(Config{Workspace: ws, MaxReadBytes: 1024})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"bin.dat"}`))
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	require.True(t, data["binary"].(bool))
	content := data["content"].(string)
	require.Equal(t, base64Marker, content[:len(base64Marker)])
	decoded, err := base64.StdEncoding.DecodeString(content[len(base64Marker):])
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestReadFileMissingReturnsFileNotFound(t *testing.T) {
	ws := workspace(t)
	tool := NewReadFileTool(Config{Workspace: ws, MaxReadBytes: 1024})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"missing.txt"}`))
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrFileNotFound, resp.ErrorKind)
}

func TestReadFileRejectsPathEscape(t *testing.T) {
	ws := workspace(t)
	tool := NewReadFileTool(Config{Workspace: ws, MaxReadBytes: 1024})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"../outside.txt"}`))
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrInvalidPath, resp.ErrorKind)
}

func TestListFilesSortsDirectoriesFirst(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.Mkdir(filepath.Join(ws, "zzz-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "aaa-file.txt"), []byte("x"), 0o644))

	tool := NewListFilesTool(Config{Workspace: ws, MaxFiles: 100})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	entries := data["entries"].([]listedEntry)
	require.Len(t, entries, 2)
	require.True(t, entries[0].IsDir)
	require.Equal(t, "zzz-dir", entries[0].Path)
	require.Equal(t, "aaa-file.txt", entries[1].Path)
}

func TestListFilesTruncatesAtMaxFiles(t *testing.T) {
	ws := workspace(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(ws, string(rune('a'+i))+".txt"), []byte("x"), 0o644))
	}

	tool := NewListFilesTool(Config{Workspace: ws, MaxFiles: 2})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	require.True(t, data["truncated"].(bool))
	require.Len(t, data["entries"].([]listedEntry), 2)
}

func TestWriteFileOverwritesAndAppends(t *testing.T) {
	ws := workspace(t)
	tool := NewWriteFileTool(Config{Workspace: ws})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"out.txt","content":"first"}`))
	require.NoError(t, err)
	_, err = tool.Execute(context.Background(), json.RawMessage(`{"path":"out.txt","content":" second","append":true}`))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(ws, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "first second", string(got))
}

func TestWriteFileSearchReplace(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "edit.txt"), []byte("hello world"), 0o644))

	tool := NewWriteFileTool(Config{Workspace: ws})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{
		"path": "edit.txt",
		"edits": [{"old_text": "world", "new_text": "there"}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "write_file", resp.Kind)

	got, err := os.ReadFile(filepath.Join(ws, "edit.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello there", string(got))
}

func TestWriteFileSearchNotFound(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "edit.txt"), []byte("hello world"), 0o644))

	tool := NewWriteFileTool(Config{Workspace: ws})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{
		"path": "edit.txt",
		"edits": [{"old_text": "nope", "new_text": "x"}]
	}`))
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrSearchNotFound, resp.ErrorKind)
}

func TestWriteFileAmbiguousReplaceRequiresReplaceAll(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "edit.txt"), []byte("foo foo foo"), 0o644))

	tool := NewWriteFileTool(Config{Workspace: ws})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{
		"path": "edit.txt",
		"edits": [{"old_text": "foo", "new_text": "bar"}]
	}`))
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrInvalidArguments, resp.ErrorKind)
}

func TestGrepFindsMatches(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "b.go"), []byte("package b\nfunc Bar() {}\n"), 0o644))

	tool := NewGrepTool(Config{Workspace: ws, MaxFiles: 100})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"func Foo"}`))
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	matches := data["matches"].([]grepMatch)
	require.Len(t, matches, 1)
	require.Equal(t, "a.go", matches[0].Path)
	require.Equal(t, 2, matches[0].Line)
}

func TestApplyPatchModifiesFile(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "greeting.txt"), []byte("hello\nworld\n"), 0o644))

	patch := "--- a/greeting.txt\n+++ b/greeting.txt\n@@ -1,2 +1,2 @@\n hello\n-world\n+there\n"
	tool := NewApplyPatchTool(Config{Workspace: ws})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"patch":"`+jsonEscape(patch)+`"}`))
	require.NoError(t, err)
	require.Equal(t, "apply_patch", resp.Kind)

	got, err := os.ReadFile(filepath.Join(ws, "greeting.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello\nthere\n", string(got))
}

func TestApplyPatchContextMismatchReturnsSearchNotFound(t *testing.T) {
	ws := workspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(ws, "greeting.txt"), []byte("bonjour\nworld\n"), 0o644))

	patch := "--- a/greeting.txt\n+++ b/greeting.txt\n@@ -1,2 +1,2 @@\n hello\n-world\n+there\n"
	tool := NewApplyPatchTool(Config{Workspace: ws})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"patch":"`+jsonEscape(patch)+`"}`))
	require.NoError(t, err)
	require.Equal(t, toolregistry.KindError, resp.Kind)
	require.Equal(t, toolregistry.ErrSearchNotFound, resp.ErrorKind)
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
