package bashtool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

func TestBashToolRunsAllowedCommand(t *testing.T) {
	tool := New(Config{Policy: Policy{Allow: []string{"echo *"}}, DefaultWorkDir: t.TempDir()})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo hello"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := resp.Data.(map[string]any)
	if data["stdout"] != "hello\n" {
		t.Fatalf("expected stdout %q, got %q", "hello\n", data["stdout"])
	}
	if data["exit_code"] != 0 {
		t.Fatalf("expected exit code 0, got %v", data["exit_code"])
	}
}

func TestBashToolDeniesDisallowedCommand(t *testing.T) {
	tool := New(Config{Policy: Policy{Allow: []string{"ls"}}, DefaultWorkDir: t.TempDir()})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"curl http://example.com"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != toolregistry.KindError || resp.ErrorKind != toolregistry.ErrPermissionDenied {
		t.Fatalf("expected PermissionDenied, got kind=%s errorKind=%s", resp.Kind, resp.ErrorKind)
	}
}

func TestBashToolTimesOut(t *testing.T) {
	tool := New(Config{
		Policy:         Policy{Allow: []string{"sleep *"}},
		DefaultWorkDir: t.TempDir(),
		DefaultTimeout: 50 * time.Millisecond,
	})
	resp, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"sleep 5"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := resp.Data.(map[string]any)
	if data["timed_out"] != true {
		t.Fatalf("expected timed_out=true, got %v", data["timed_out"])
	}
	if data["exit_code"] != nil {
		t.Fatalf("expected exit_code to be absent/nil, got %v", data["exit_code"])
	}
}
