// Package pdftotext shells out to the system pdftotext binary (part of
// poppler-utils) to extract text from PDF files, sandboxed the same
// way the other filesystem tools are.
package pdftotext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	execsafety "github.com/brainless/nocodo-agentcore/internal/exec"
	"github.com/brainless/nocodo-agentcore/internal/tools/files"
	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// Config bounds the tool's path access and execution time.
type Config struct {
	Workspace string
	Timeout   time.Duration
}

// Tool implements toolregistry.Tool for PDF text extraction.
type Tool struct {
	resolver files.Resolver
	timeout  time.Duration
}

// New creates a pdftotext tool rooted at cfg.Workspace.
func New(cfg Config) *Tool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Tool{resolver: files.Resolver{Root: cfg.Workspace}, timeout: timeout}
}

func (t *Tool) Name() string { return "pdftotext" }
func (t *Tool) Description() string {
	return "Extract text from a PDF file using pdftotext, optionally writing to an output file."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path":        map[string]any{"type": "string"},
			"output_path":      map[string]any{"type": "string"},
			"preserve_layout":  map[string]any{"type": "boolean"},
			"no_page_breaks":   map[string]any{"type": "boolean"},
			"first_page":       map[string]any{"type": "integer", "minimum": 1},
			"last_page":        map[string]any{"type": "integer", "minimum": 1},
			"encoding":         map[string]any{"type": "string"},
		},
		"required": []string{"file_path"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

type request struct {
	FilePath       string `json:"file_path"`
	OutputPath     string `json:"output_path"`
	PreserveLayout bool   `json:"preserve_layout"`
	NoPageBreaks   bool   `json:"no_page_breaks"`
	FirstPage      int    `json:"first_page"`
	LastPage       int    `json:"last_page"`
	Encoding       string `json:"encoding"`
}

func (t *Tool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args request
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}
	if args.FilePath == "" {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "file_path is required"), nil
	}

	inputPath, err := t.resolver.Resolve(args.FilePath)
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidPath, t.Name(), err.Error()), nil
	}
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return toolregistry.ErrorResponse(toolregistry.ErrFileNotFound, t.Name(), fmt.Sprintf("PDF file does not exist: %s", args.FilePath)), nil
	}

	var outputPath string
	if args.OutputPath != "" {
		outputPath, err = t.resolver.Resolve(args.OutputPath)
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidPath, t.Name(), err.Error()), nil
		}
	}
	if args.Encoding != "" && !execsafety.IsSafeExecutableValue(args.Encoding) {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "encoding contains unsafe characters"), nil
	}

	cmdArgs := t.buildArgs(args, inputPath, outputPath)
	if _, err := execsafety.SanitizeArguments(cmdArgs); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "pdftotext", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrTimeout, t.Name(), "pdftotext timed out"), nil
		}
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(),
			fmt.Sprintf("pdftotext failed: %s", stderr.String())), nil
	}

	if outputPath == "" {
		content := stdout.String()
		return toolregistry.Response{
			Kind:    "pdftotext",
			Summary: fmt.Sprintf("Extracted %d bytes of text", len(content)),
			Data:    map[string]any{"content": content, "bytes_written": len(content)},
		}, nil
	}

	info, err := os.Stat(outputPath)
	bytesWritten := 0
	if err == nil {
		bytesWritten = int(info.Size())
	}
	return toolregistry.Response{
		Kind:    "pdftotext",
		Summary: fmt.Sprintf("Wrote %d bytes to %s", bytesWritten, args.OutputPath),
		Data:    map[string]any{"output_path": args.OutputPath, "bytes_written": bytesWritten},
	}, nil
}

func (t *Tool) buildArgs(args request, inputPath, outputPath string) []string {
	var cmdArgs []string
	if args.PreserveLayout {
		cmdArgs = append(cmdArgs, "-layout")
	}
	if args.FirstPage > 0 {
		cmdArgs = append(cmdArgs, "-f", strconv.Itoa(args.FirstPage))
	}
	if args.LastPage > 0 {
		cmdArgs = append(cmdArgs, "-l", strconv.Itoa(args.LastPage))
	}
	if args.Encoding != "" {
		cmdArgs = append(cmdArgs, "-enc", args.Encoding)
	}
	if args.NoPageBreaks {
		cmdArgs = append(cmdArgs, "-nopgbrk")
	}
	cmdArgs = append(cmdArgs, inputPath)
	if outputPath == "" {
		cmdArgs = append(cmdArgs, "-")
	} else {
		cmdArgs = append(cmdArgs, outputPath)
	}
	return cmdArgs
}
