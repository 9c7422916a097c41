/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package inspector

import (
	"strings"
	"testing"
)

func TestInspect_GitHubPAT_SoftModeWarnsButValid(t *testing.T) {
	result := Inspect("notes.md", "key=ghp_ABCDEFGHIJKLMN", nil, false)

	if !result.Valid {
		t.Fatal("expected Soft mode to remain valid despite credential warning")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(result.Warnings))
	}
	if result.Warnings[0].Text != "credential: GitHub personal access token" {
		t.Errorf("unexpected warning text: %s", result.Warnings[0].Text)
	}
}

func TestInspect_GitHubPAT_MaxModeDeniesAndTags(t *testing.T) {
	result := Inspect("notes.md", "key=ghp_ABCDEFGHIJKLMN", nil, true)

	if result.Valid {
		t.Fatal("expected Max mode to invalidate on credential warning")
	}
	if !strings.HasPrefix(result.Warnings[0].Text, "MAX TIER:") {
		t.Errorf("expected MAX TIER prefix, got: %s", result.Warnings[0].Text)
	}
}

func TestInspect_CodeFileSkipsShellInjectionScan(t *testing.T) {
	result := Inspect("script.sh", "echo $(whoami)", nil, false)

	for _, w := range result.Warnings {
		if w.Kind == "shell_injection" {
			t.Fatal("code files must not be scanned for shell injection signals")
		}
	}
}

func TestInspect_NonCodeFileCatchesShellInjection(t *testing.T) {
	result := Inspect("notes.txt", "run $(whoami) now", nil, false)

	found := false
	for _, w := range result.Warnings {
		if w.Kind == "shell_injection" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected shell_injection warning for non-code file")
	}
}

func TestInspect_BlockedPathReference(t *testing.T) {
	result := Inspect("notes.md", "see /etc/shadow for reference", []string{"/etc/shadow"}, false)

	found := false
	for _, w := range result.Warnings {
		if w.Kind == "blocked_path" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected blocked_path warning")
	}
}

func TestInspect_CleanContentNoWarnings(t *testing.T) {
	result := Inspect("notes.md", "nothing sensitive here", nil, true)
	if !result.Valid {
		t.Fatal("expected valid with no warnings")
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %d", len(result.Warnings))
	}
}

func TestIsCodeFile(t *testing.T) {
	cases := map[string]bool{
		"script.sh":  true,
		"main.py":    true,
		"config.yml": false,
		"notes.txt":  false,
		"data.json":  true,
	}
	for path, want := range cases {
		if got := IsCodeFile(path); got != want {
			t.Errorf("IsCodeFile(%q) = %v, want %v", path, got, want)
		}
	}
}
