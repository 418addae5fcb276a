// Package sqlitereader implements the embedded SQL reader tool: a
// read-only, timeout- and row-limit-bounded executor of ad-hoc SQL
// against a SQLite file, for data-analysis agents.
package sqlitereader

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 1000

	displayRowCap  = 20
	displayCellCap = 50
)

// Config bounds what sqlite3_reader is allowed to do.
type Config struct {
	DefaultRowLimit int
	MaxRowLimit     int
	QueryTimeout    time.Duration
}

// Tool opens a SQLite file read-only and runs ad-hoc queries against
// it, bounded by a row limit and per-query timeout.
type Tool struct {
	cfg Config
}

// New creates a sqlite3_reader tool.
func New(cfg Config) *Tool {
	if cfg.DefaultRowLimit <= 0 {
		cfg.DefaultRowLimit = defaultRowLimit
	}
	if cfg.MaxRowLimit <= 0 {
		cfg.MaxRowLimit = maxRowLimit
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Name() string { return "sqlite3_reader" }
func (t *Tool) Description() string {
	return "Run a read-only SQL query against a SQLite file, with a row limit and timeout."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":  map[string]any{"type": "string", "description": "Path to an existing SQLite database file."},
			"query": map[string]any{"type": "string", "description": "SQL query to run."},
			"limit": map[string]any{"type": "integer", "minimum": 1, "description": "Row cap, never larger than the server-configured maximum."},
		},
		"required": []string{"path", "query"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

// Row is one row of a query result; each cell is already a JSON-safe
// scalar (string, float64, bool, or nil).
type Row []any

func (t *Tool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args struct {
		Path  string `json:"path"`
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}
	if strings.TrimSpace(args.Path) == "" || strings.TrimSpace(args.Query) == "" {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "path and query are required"), nil
	}

	info, err := os.Stat(args.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return toolregistry.ErrorResponse(toolregistry.ErrFileNotFound, t.Name(), err.Error()), nil
		}
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}
	if info.IsDir() {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidPath, t.Name(), "path is a directory, not a regular file"), nil
	}

	limit := t.cfg.DefaultRowLimit
	if args.Limit > 0 {
		limit = args.Limit
	}
	if limit > t.cfg.MaxRowLimit {
		limit = t.cfg.MaxRowLimit
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", args.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}
	defer db.Close()

	queryCtx, cancel := context.WithTimeout(ctx, t.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryContext(queryCtx, args.Query)
	if err != nil {
		if queryCtx.Err() != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrTimeout, t.Name(), err.Error()), nil
		}
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}

	var result []Row
	truncated := false
	for rows.Next() {
		if len(result) >= limit {
			truncated = true
			break
		}
		scanDest := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range scanDest {
			scanTargets[i] = &scanDest[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		result = append(result, Row(normalizeRow(scanDest)))
	}
	if err := rows.Err(); err != nil {
		if queryCtx.Err() != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrTimeout, t.Name(), err.Error()), nil
		}
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}
	// A row beyond the limit was pending in the result set.
	if !truncated && rows.Next() {
		truncated = true
	}

	elapsed := time.Since(start)
	data := map[string]any{
		"columns":           columns,
		"rows":              result,
		"row_count":         len(result),
		"truncated":         truncated,
		"execution_time_ms": elapsed.Milliseconds(),
	}

	return toolregistry.Response{
		Kind:    "sqlite3_reader",
		Summary: formatTable(columns, result, truncated),
		Data:    data,
	}, nil
}

// normalizeRow converts driver-returned values ([]byte for TEXT/BLOB
// under mattn/go-sqlite3) into JSON-safe scalars.
func normalizeRow(cells []any) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case []byte:
			out[i] = string(v)
		default:
			out[i] = v
		}
	}
	return out
}

// formatTable renders a result set for the model: long cells are
// truncated at displayCellCap characters, and display is capped at
// displayRowCap rows plus a "… and K more rows" trailer.
func formatTable(columns []string, rows []Row, truncated bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(columns, ", "))

	shown := rows
	more := 0
	if len(shown) > displayRowCap {
		more = len(shown) - displayRowCap
		shown = shown[:displayRowCap]
	}

	for _, row := range shown {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = truncateCell(fmt.Sprintf("%v", cell))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}

	if more > 0 {
		fmt.Fprintf(&b, "… and %d more rows\n", more)
	}
	if truncated {
		b.WriteString("(result truncated by row limit)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= displayCellCap {
		return s
	}
	return string(runes[:displayCellCap]) + "…"
}
