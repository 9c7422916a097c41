/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package inspector implements the gate pipeline's content-inspection
// stage: credential, path-traversal and shell-injection scanning of the
// content a Write/Edit/Notebook-write call is about to persist.
package inspector

import (
	"path/filepath"
	"strings"
)

// credentialMarker is one literal prefix or fixed substring the inspector
// scans for, paired with the short reason reported alongside a match.
type credentialMarker struct {
	literal string
	reason  string
}

// credentialMarkers is the fixed 18-entry credential set.
var credentialMarkers = []credentialMarker{
	{"sk-", "OpenAI-style secret key"},
	{"AKIA", "AWS access key ID"},
	{"ghp_", "GitHub personal access token"},
	{"gho_", "GitHub OAuth token"},
	{"ghu_", "GitHub user-to-server token"},
	{"ghs_", "GitHub server-to-server token"},
	{"ghr_", "GitHub refresh token"},
	{"xoxb-", "Slack bot token"},
	{"xoxp-", "Slack user token"},
	{"xoxa-", "Slack app token"},
	{"-----BEGIN", "PEM private key block"},
	{"password=", "inline password literal"},
	{"api_key=", "inline API key literal"},
	{"access_token=", "inline access token literal"},
	{"secret=", "inline secret literal"},
	{"AIza", "Google API key"},
	{"hvs.", "Vault token"},
	{"eyJ", "JWT-shaped token"},
}

// codeExtensions are the extensions routed through the narrower
// credential+traversal+blocked-path scan; everything else also gets the
// shell-injection scan.
var codeExtensions = map[string]struct{}{
	".sh": {}, ".bash": {}, ".zsh": {}, ".rs": {}, ".py": {},
	".js": {}, ".ts": {}, ".toml": {}, ".json": {}, ".md": {},
}

var injectionSignals = []string{"$(", "`", "eval ", "exec "}

// Warning is one inspector finding. Text is prefixed with "MAX TIER: "
// when the caller is operating in Max enforce mode, signaling the gate
// pipeline to escalate the decision to CRITICAL.
type Warning struct {
	Kind   string
	Reason string
	Text   string // "<kind>: <reason>", tagged if MaxMode
}

// Result is the outcome of inspecting one piece of content.
type Result struct {
	Valid    bool
	Warnings []Warning
}

// IsCodeFile reports whether path's extension routes through the narrow
// (code) scan rather than the broad (non-code) scan.
func IsCodeFile(path string) bool {
	_, ok := codeExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Inspect scans content written to path. blockedPaths is the configured
// block list (absolute path prefixes); content that mentions any of them
// gets a blocked_path warning.
// maxMode tags every warning with the MAX TIER prefix so the gate
// pipeline's escalation stage fires.
func Inspect(path, content string, blockedPaths []string, maxMode bool) Result {
	var warnings []Warning

	for _, m := range credentialMarkers {
		if strings.Contains(content, m.literal) {
			warnings = append(warnings, newWarning("credential", m.reason, maxMode))
		}
	}

	if strings.Contains(content, "..") {
		warnings = append(warnings, newWarning("traversal", "parent-directory reference in content", maxMode))
	}

	for _, blocked := range blockedPaths {
		if blocked != "" && strings.Contains(content, blocked) {
			warnings = append(warnings, newWarning("blocked_path", "reference to blocked path "+blocked, maxMode))
		}
	}

	if !IsCodeFile(path) {
		for _, sig := range injectionSignals {
			if strings.Contains(content, sig) {
				warnings = append(warnings, newWarning("shell_injection", "shell metacharacter "+strings.TrimSpace(sig), maxMode))
			}
		}
	}

	return Result{
		Valid:    len(warnings) == 0 || !maxMode,
		Warnings: warnings,
	}
}

func newWarning(kind, reason string, maxMode bool) Warning {
	text := kind + ": " + reason
	if maxMode {
		text = "MAX TIER: " + text
	}
	return Warning{Kind: kind, Reason: reason, Text: text}
}
