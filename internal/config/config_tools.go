package config

import "time"

// ToolsConfig configures the filesystem sandbox, the bash permission
// policy, and execution limits shared by every tool.
type ToolsConfig struct {
	// WorkspaceRoot bounds every filesystem tool (list_files, read_file,
	// write_file, grep, apply_patch) and the bash tool's working
	// directory; paths resolving outside it are rejected before any I/O.
	WorkspaceRoot string `yaml:"workspace_root"`

	MaxFileBytes int `yaml:"max_file_bytes"` // read_file server-side cap
	MaxFiles     int `yaml:"max_files"`      // list_files/grep traversal bound

	Bash   BashToolConfig     `yaml:"bash"`
	Policy PolicyConfig       `yaml:"policy"`
	SQLite SQLiteReaderConfig `yaml:"sqlite_reader"`

	// Mailbox configures the optional imap tool. Host is the switch:
	// left empty, the tool is not registered at all.
	Mailbox MailboxConfig `yaml:"imap"`
}

// MailboxConfig names the fixed IMAP server/account the imap tool is
// bound to. PasswordEnv, not a password field, names the environment
// variable the tool reads its credential from at connect time.
type MailboxConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	PasswordEnv string        `yaml:"password_env"`
	UseTLS      bool          `yaml:"use_tls"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BashToolConfig configures the bash tool's allow/deny policy and
// timeout.
type BashToolConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	AllowedWorkdirs  []string      `yaml:"allowed_workdirs"`
	ExtraAllow       []string      `yaml:"extra_allow"` // glob patterns added on top of the default floor
	ExtraDeny        []string      `yaml:"extra_deny"`
}

// PolicyConfig carries the bash tool's allow/deny glob lists, decoded
// here and translated into a bashtool.Policy at wiring time.
type PolicyConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// SQLiteReaderConfig bounds the embedded SQL reader tool.
type SQLiteReaderConfig struct {
	MaxRowLimit    int           `yaml:"max_row_limit"`
	DefaultRowLimit int          `yaml:"default_row_limit"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
}
