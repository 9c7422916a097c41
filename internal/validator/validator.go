/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package validator implements the Rule Validator: it applies the
// compiled write allowlist, the operator-configured path rules, the
// Build Anchor precondition, and the bash destination/dangerous-command
// checks to one tool call, independent of its complexity score.
package validator

import (
	"fmt"
	"strings"

	"github.com/spf-gate/spfgate/internal/bashparser"
	"github.com/spf-gate/spfgate/internal/config"
	"github.com/spf-gate/spfgate/internal/pathresolve"
	"github.com/spf-gate/spfgate/internal/session"
)

// hardBlockedVFSTools are virtual-filesystem tool names the gate never
// permits, regardless of configuration or enforce mode — they bypass
// the gate's own path accounting entirely, so nothing canonicalizes or
// records them.
var hardBlockedVFSTools = map[string]bool{
	"vfs_read":     true,
	"vfs_write":    true,
	"vfs_delete":   true,
	"vfs_rename":   true,
	"vfs_stat":     true,
	"vfs_list":     true,
	"vfs_mkdir":    true,
	"vfs_rmrf":     true,
	"vfs_chmod":    true,
	"vfs_metadata": true,
}

// knownSafeTools pass through unconditionally once their category-
// specific checks (if any) clear — they carry no filesystem side
// effect the validator needs to reason about beyond what the dispatch
// below already handles for Read/Search/Brain/RAG/Meta categories.
var knownSafeTools = map[string]bool{
	"Glob": true, "Grep": true, "LS": true,
	"WebFetch": true, "WebSearch": true,
	"NotebookRead": true, "NotebookEdit": true,
	"Task": true, "TodoRead": true, "TodoWrite": true,
	"BashOutput": true, "KillShell": true,
	"Download": true, "Upload": true,
	"SearchCode": true, "SearchSymbol": true,
	"FormatFile": true, "LintFile": true,
	"RunTests": true, "RunBuild": true,
	"GitStatus": true, "GitDiff": true, "GitLog": true, "GitBlame": true,
	"ListDir": true, "StatFile": true, "ReadLines": true,
	"ReadURL": true, "FetchJSON": true, "QueryAPI": true,
	"BrainRecall": true, "BrainStore": true,
	"RAGQuery": true, "RAGIngest": true,
	"MetaPing": true, "MetaVersion": true,
}

// KnownSafeTools returns the tool names the validator passes through
// unconditionally, for callers (the MCP tool catalog) that need the
// same list without duplicating it.
func KnownSafeTools() []string {
	out := make([]string, 0, len(knownSafeTools))
	for name := range knownSafeTools {
		out = append(out, name)
	}
	return out
}

// Request is one tool call awaiting validation.
type Request struct {
	Tool    string
	Path    string // Write, Edit, Read
	Command string // Bash
}

// Result is the Rule Validator's verdict.
type Result struct {
	Valid    bool
	Reason   string
	Warnings []string

	// Canonical is the resolved path, when Request carried one.
	Canonical string
	Tainted   bool
}

// Validator applies path and command policy to one request.
type Validator struct {
	resolver *pathresolve.Resolver
}

// New builds a Validator against the given path resolver.
func New(resolver *pathresolve.Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// Validate evaluates req against snap (the current Configuration
// snapshot) and sess (the live session, for the Build Anchor check).
func (v *Validator) Validate(req Request, snap config.Snapshot, sess *session.Session) Result {
	if hardBlockedVFSTools[req.Tool] {
		return Result{Valid: false, Reason: "tool permanently blocked: " + req.Tool}
	}

	switch req.Tool {
	case "Write":
		return v.validateWrite(req, snap)
	case "Edit", "MultiEdit":
		return v.validateEdit(req, snap, sess)
	case "Read":
		return v.validateRead(req, snap)
	case "Bash":
		return v.validateBash(req, snap)
	default:
		if knownSafeTools[req.Tool] {
			return Result{Valid: true}
		}
		return Result{Valid: false, Reason: "unknown tool: " + req.Tool}
	}
}

func (v *Validator) resolvePath(path string) (canonical string, tainted bool) {
	resolved, err := pathresolve.Resolve(path)
	if err != nil {
		return "", true
	}
	return resolved, false
}

func (v *Validator) checkWriteTarget(canonical string, snap config.Snapshot) (bool, string) {
	if !v.resolver.IsWritable(canonical) {
		return false, "path not under a writable root: " + canonical
	}
	if blocked, prefix := v.resolver.IsBlocked(canonical); blocked {
		return false, "path matches blocked prefix " + prefix
	}
	if len(snap.AllowedPaths) > 0 && !v.resolver.IsAllowed(canonical) {
		return false, "path not on the allowed list: " + canonical
	}
	return true, ""
}

func (v *Validator) validateWrite(req Request, snap config.Snapshot) Result {
	canonical, tainted := v.resolvePath(req.Path)
	if tainted {
		return Result{Valid: false, Reason: "traversal-tainted path", Tainted: true}
	}
	ok, reason := v.checkWriteTarget(canonical, snap)
	return Result{Valid: ok, Reason: reason, Canonical: canonical}
}

func (v *Validator) validateEdit(req Request, snap config.Snapshot, sess *session.Session) Result {
	canonical, tainted := v.resolvePath(req.Path)
	if tainted {
		return Result{Valid: false, Reason: "traversal-tainted path", Tainted: true}
	}
	ok, reason := v.checkWriteTarget(canonical, snap)
	if !ok {
		return Result{Valid: false, Reason: reason, Canonical: canonical}
	}

	if !snap.RequireReadBeforeEdit {
		return Result{Valid: true, Canonical: canonical}
	}
	if sess.HasRead(canonical, false) {
		return Result{Valid: true, Canonical: canonical}
	}

	anchorMsg := "build anchor violation: " + canonical + " was never read this session"
	if snap.EnforceMode == config.ModeMax {
		maxMsg := "MAX TIER: BUILD ANCHOR violation: " + canonical + " was never read this session"
		return Result{Valid: false, Reason: maxMsg, Canonical: canonical, Warnings: []string{maxMsg}}
	}
	return Result{Valid: true, Canonical: canonical, Warnings: []string{anchorMsg}}
}

func (v *Validator) validateRead(req Request, snap config.Snapshot) Result {
	canonical, tainted := v.resolvePath(req.Path)
	if tainted {
		return Result{Valid: false, Reason: "traversal-tainted path", Tainted: true}
	}
	if blocked, prefix := v.resolver.IsBlocked(canonical); blocked {
		return Result{Valid: false, Reason: "path matches blocked prefix " + prefix, Canonical: canonical}
	}
	return Result{Valid: true, Canonical: canonical}
}

func (v *Validator) validateBash(req Request, snap config.Snapshot) Result {
	parsed := bashparser.Parse(req.Command, snap.DangerousCommands, config.HardcodedDangerousSupplement(), snap.GitForcePatterns)

	if parsed.ReferencesTmp {
		return Result{Valid: false, Reason: "direct /tmp reference is never permitted"}
	}
	if len(parsed.Dangerous) > 0 {
		var patterns []string
		for _, d := range parsed.Dangerous {
			patterns = append(patterns, d.Pattern)
		}
		return Result{Valid: false, Reason: "dangerous command pattern: " + strings.Join(patterns, ", ")}
	}
	if parsed.GitForce {
		return Result{Valid: false, Reason: "forced git operation is not permitted"}
	}

	var warnings []string
	for _, dest := range parsed.Destinations {
		canonical, tainted := v.resolvePath(dest.Path)
		if tainted {
			return Result{Valid: false, Reason: "traversal-tainted destination: " + dest.Path, Tainted: true}
		}
		if ok, reason := v.checkWriteTarget(canonical, snap); !ok {
			return Result{Valid: false, Reason: fmt.Sprintf("%s (%s): %s", dest.Construct, dest.Path, reason)}
		}
	}
	if parsed.InlineCodeFlags {
		warnings = append(warnings, "inline interpreter code flag present; destinations not fully inspectable")
	}

	return Result{Valid: true, Warnings: warnings}
}
