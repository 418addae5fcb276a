package imap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brainless/nocodo-agentcore/internal/toolregistry"
)

// ServerConfig is the fixed connection target the tool is configured
// with; per-call requests only name the mailbox operation, never the
// server or credentials, so a model cannot redirect the tool to an
// arbitrary host.
type ServerConfig struct {
	Host        string
	Port        int
	Username    string
	PasswordEnv string
	UseTLS      bool
	Timeout     time.Duration
}

// Tool implements toolregistry.Tool for IMAP mailbox operations.
type Tool struct {
	cfg ServerConfig
}

// New creates an imap tool bound to a fixed server/account.
func New(cfg ServerConfig) *Tool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Name() string { return "imap" }
func (t *Tool) Description() string {
	return "List, search, and fetch email from a configured IMAP mailbox."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":  map[string]any{"type": "string", "enum": []string{"list_mailboxes", "mailbox_status", "search_emails", "fetch_headers", "fetch_email"}},
			"mailbox": map[string]any{"type": "string"},
			"pattern": map[string]any{"type": "string"},
			"criteria": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"from":        map[string]any{"type": "string"},
					"to":          map[string]any{"type": "string"},
					"subject":     map[string]any{"type": "string"},
					"since_date":  map[string]any{"type": "string"},
					"before_date": map[string]any{"type": "string"},
					"unseen_only": map[string]any{"type": "boolean"},
				},
			},
			"limit":        map[string]any{"type": "integer", "minimum": 1},
			"uids":         map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			"uid":          map[string]any{"type": "integer"},
			"include_html": map[string]any{"type": "boolean"},
			"include_text": map[string]any{"type": "boolean"},
		},
		"required": []string{"action"},
	}
	payload, _ := json.Marshal(schema)
	return payload
}

type request struct {
	Action      string         `json:"action"`
	Mailbox     string         `json:"mailbox"`
	Pattern     string         `json:"pattern"`
	Criteria    SearchCriteria `json:"criteria"`
	Limit       int            `json:"limit"`
	UIDs        []uint32       `json:"uids"`
	UID         uint32         `json:"uid"`
	IncludeHTML bool           `json:"include_html"`
	IncludeText bool           `json:"include_text"`
}

func (t *Tool) Execute(ctx context.Context, rawArgs json.RawMessage) (toolregistry.Response, error) {
	var args request
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), err.Error()), nil
	}

	client, err := Connect(Config{
		Host: t.cfg.Host, Port: t.cfg.Port, Username: t.cfg.Username,
		PasswordEnv: t.cfg.PasswordEnv, UseTLS: t.cfg.UseTLS, Timeout: t.cfg.Timeout,
	})
	if err != nil {
		return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
	}
	defer client.Close()

	switch args.Action {
	case "list_mailboxes":
		mailboxes, err := client.ListMailboxes(args.Pattern)
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		return toolregistry.Response{
			Kind:    "imap",
			Summary: fmt.Sprintf("Found %d mailbox(es)", len(mailboxes)),
			Data:    map[string]any{"action": "list_mailboxes", "mailboxes": mailboxes},
		}, nil

	case "mailbox_status":
		if args.Mailbox == "" {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "mailbox is required"), nil
		}
		status, err := client.MailboxStatus(args.Mailbox)
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		return toolregistry.Response{
			Kind:    "imap",
			Summary: fmt.Sprintf("%s: %d messages, %d unseen", args.Mailbox, status.Messages, status.Unseen),
			Data:    map[string]any{"action": "mailbox_status", "status": status},
		}, nil

	case "search_emails":
		if args.Mailbox == "" {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "mailbox is required"), nil
		}
		uids, err := client.SearchEmails(args.Mailbox, args.Criteria, args.Limit)
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		return toolregistry.Response{
			Kind:    "imap",
			Summary: fmt.Sprintf("Found %d matching message(s) in %s", len(uids), args.Mailbox),
			Data:    map[string]any{"action": "search_emails", "uids": uids},
		}, nil

	case "fetch_headers":
		if args.Mailbox == "" {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "mailbox is required"), nil
		}
		headers, err := client.FetchHeaders(args.Mailbox, args.UIDs)
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		return toolregistry.Response{
			Kind:    "imap",
			Summary: fmt.Sprintf("Fetched %d header(s) from %s", len(headers), args.Mailbox),
			Data:    map[string]any{"action": "fetch_headers", "headers": headers},
		}, nil

	case "fetch_email":
		if args.Mailbox == "" || args.UID == 0 {
			return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), "mailbox and uid are required"), nil
		}
		content, err := client.FetchEmail(args.Mailbox, args.UID, args.IncludeHTML, args.IncludeText)
		if err != nil {
			return toolregistry.ErrorResponse(toolregistry.ErrExecutionError, t.Name(), err.Error()), nil
		}
		return toolregistry.Response{
			Kind:    "imap",
			Summary: fmt.Sprintf("Fetched message %d from %s (%d attachment(s))", args.UID, args.Mailbox, len(content.Attachments)),
			Data:    map[string]any{"action": "fetch_email", "content": content},
		}, nil

	default:
		return toolregistry.ErrorResponse(toolregistry.ErrInvalidArguments, t.Name(), fmt.Sprintf("unknown action %q", args.Action)), nil
	}
}
