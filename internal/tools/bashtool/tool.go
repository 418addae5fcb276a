package bashtool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	execsafety "github.com/brainless/nocodo-agentcore/internal/exec"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// Config bundles a bash tool's permission policy with its execution
// defaults.
type Config struct {
	Policy         Policy
	DefaultWorkDir string
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

// Tool runs a shell command under a Policy, enforcing the allow/deny
// glob list and allowed working directories before spawning anything,
// and a timeout that still returns a structured response rather than
// an error when it fires.
type Tool struct {
	cfg Config
}

// New creates a bash tool from cfg, filling in sane defaults.
func New(cfg Config) *Tool {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = 10 * time.Minute
	}
	if cfg.DefaultWorkDir == "" {
		cfg.DefaultWorkDir = "."
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Name() string        { return "bash" }
func (t *Tool) Description() string { return "Run a shell command under the configured permission policy." }

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":         map[string]any{"type": "string", "description": "Shell command to run."},
			"workdir":         map[string]any{"type": "string", "description": "Working directory. Must be within an allowed directory."},
			"timeout_seconds": map[string]any{"type": "integer", "minimum": 1, "description": "Overrides the default timeout, capped at the configured maximum."},
			"env": map[string]any{
				"type":                 "object",
				"description":          "Additional environment variables for the command.",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required": []string{"command"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

func (t *Tool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Command        string            `json:"command"`
		WorkDir        string            `json:"workdir"`
		TimeoutSeconds int               `json:"timeout_seconds"`
		Env            map[string]string `json:"env"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}
	if strings.TrimSpace(args.Command) == "" {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "command is required"), nil
	}

	workDir := args.WorkDir
	if workDir == "" {
		workDir = t.cfg.DefaultWorkDir
	}

	decision := t.cfg.Policy.Evaluate(args.Command, workDir)
	if !decision.Allowed {
		return toolregistry.ErrorResponse(toolregistry.ErrPermissionDenied, t.Name(), decision.Reason), nil
	}

	envPairs := make([]string, 0, len(args.Env))
	for k, v := range args.Env {
		if !execsafety.IsSafeArgument(k) || (v != "" && !execsafety.IsSafeArgument(v)) {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(),
				fmt.Sprintf("env var %q contains unsafe characters", k)), nil
		}
		envPairs = append(envPairs, k+"="+v)
	}

	timeout := t.cfg.DefaultTimeout
	if args.TimeoutSeconds > 0 {
		requested := time.Duration(args.TimeoutSeconds) * time.Second
		if requested < t.cfg.MaxTimeout {
			timeout = requested
		} else {
			timeout = t.cfg.MaxTimeout
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", args.Command)
	cmd.Dir = workDir
	if len(envPairs) > 0 {
		cmd.Env = append(cmd.Environ(), envPairs...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	data := map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"timed_out": timedOut,
	}
	if timedOut {
		data["exit_code"] = nil
		return toolregistry.Response{
			Kind:    "bash",
			Summary: fmt.Sprintf("Command timed out after %s", timeout),
			Data:    data,
		}, nil
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), runErr.Error()), nil
		}
	}
	data["exit_code"] = exitCode

	summary := fmt.Sprintf("Command exited %d", exitCode)
	return toolregistry.Response{Kind: "bash", Summary: summary, Data: data}, nil
}
