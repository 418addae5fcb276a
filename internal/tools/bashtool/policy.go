// Package bashtool implements the bash tool: a permission-gated shell
// command runner. A command is matched against an ordered list of
// allow/deny glob patterns and a set of allowed working directories
// before it is ever spawned; a standard deny set is the floor beneath
// any configured policy.
package bashtool

import (
	"path/filepath"
	"strings"
)

// deniedByDefault is matched regardless of policy configuration; no
// allow rule can override it.
var deniedByDefault = []string{
	"rm -rf *",
	"rm -rf",
	"sudo *",
	"sudo",
	"mkfs*",
	"dd if=*of=/dev/*",
	":(){ :|:& };:",
}

// Policy is an ordered allow/deny glob list plus a set of directories
// a command is permitted to run in.
type Policy struct {
	// Allow and Deny are evaluated in order; the first pattern that
	// matches the command string decides the outcome. Deny entries
	// configured here are checked after deniedByDefault.
	Allow []string
	Deny  []string

	// WorkDirs restricts which working directories a command may run
	// in. Empty means any directory is allowed.
	WorkDirs []string
}

// Decision explains whether a command was allowed to run.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate checks command against the policy's deny-set floor, then
// its configured deny patterns, then its allow patterns. A command
// with no matching allow rule is denied by default.
func (p Policy) Evaluate(command, workDir string) Decision {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Decision{Allowed: false, Reason: "empty command"}
	}

	for _, pattern := range deniedByDefault {
		if matchGlob(pattern, trimmed) {
			return Decision{Allowed: false, Reason: "denied by default deny set: " + pattern}
		}
	}

	for _, pattern := range p.Deny {
		if matchGlob(pattern, trimmed) {
			return Decision{Allowed: false, Reason: "denied by rule: " + pattern}
		}
	}

	if !p.workDirAllowed(workDir) {
		return Decision{Allowed: false, Reason: "working directory not permitted: " + workDir}
	}

	for _, pattern := range p.Allow {
		if matchGlob(pattern, trimmed) {
			return Decision{Allowed: true, Reason: "allowed by rule: " + pattern}
		}
	}

	return Decision{Allowed: false, Reason: "no matching allow rule"}
}

func (p Policy) workDirAllowed(workDir string) bool {
	if len(p.WorkDirs) == 0 {
		return true
	}
	clean := filepath.Clean(workDir)
	for _, allowed := range p.WorkDirs {
		allowedClean := filepath.Clean(allowed)
		if clean == allowedClean || strings.HasPrefix(clean, allowedClean+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// matchGlob matches a command string against a glob pattern. "*" is
// the only wildcard, matching any run of characters; a pattern with
// no "*" must match the full command string, and a pattern ending in
// a bare prefix (no trailing "*") also matches a following space, so
// "sudo" covers "sudo apt-get install x".
func matchGlob(pattern, command string) bool {
	if pattern == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return command == pattern || strings.HasPrefix(command, pattern+" ")
	}
	ok, err := filepath.Match(pattern, command)
	if err == nil && ok {
		return true
	}
	// filepath.Match doesn't treat "*" as matching across the command
	// the way a simple prefix/suffix glob should for shell commands
	// with embedded spaces, so fall back to a manual prefix/suffix
	// check around the wildcard boundaries.
	parts := strings.SplitN(pattern, "*", 2)
	prefix, suffix := parts[0], parts[1]
	return strings.HasPrefix(command, prefix) && strings.HasSuffix(command, suffix) && len(command) >= len(prefix)+len(suffix)
}
