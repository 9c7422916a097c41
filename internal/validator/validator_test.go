/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package validator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf-gate/spfgate/internal/config"
	"github.com/spf-gate/spfgate/internal/pathresolve"
	"github.com/spf-gate/spfgate/internal/session"
)

func newTestValidator(t *testing.T) (*Validator, string, string) {
	t.Helper()
	root := t.TempDir()
	projects := filepath.Join(root, "LIVE", "PROJECTS", "PROJECTS")
	tmp := filepath.Join(root, "LIVE", "TMP", "TMP")
	resolver := pathresolve.New(projects, tmp, nil, []string{"/etc"})
	return New(resolver), projects, tmp
}

func baseSnapshot() config.Snapshot {
	return config.Snapshot{
		EnforceMode:           config.ModeSoft,
		RequireReadBeforeEdit: true,
	}
}

func TestValidate_HardBlockedVFSTool(t *testing.T) {
	v, _, _ := newTestValidator(t)
	res := v.Validate(Request{Tool: "vfs_rmrf"}, baseSnapshot(), session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected vfs_rmrf to be permanently blocked")
	}
}

func TestValidate_UnknownToolDefaultDeny(t *testing.T) {
	v, _, _ := newTestValidator(t)
	res := v.Validate(Request{Tool: "DoSomethingExotic"}, baseSnapshot(), session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected unknown tool to be denied by default")
	}
}

func TestValidate_KnownSafeToolPassesThrough(t *testing.T) {
	v, _, _ := newTestValidator(t)
	res := v.Validate(Request{Tool: "Glob"}, baseSnapshot(), session.New(time.Now()))
	if !res.Valid {
		t.Fatalf("expected known-safe tool to pass, got reason: %s", res.Reason)
	}
}

func TestValidate_WriteOutsideWritableRootBlocked(t *testing.T) {
	v, _, _ := newTestValidator(t)
	res := v.Validate(Request{Tool: "Write", Path: "/srv/outside.txt"}, baseSnapshot(), session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected write outside writable roots to be blocked")
	}
}

func TestValidate_WriteUnderProjectsRootAllowed(t *testing.T) {
	v, projects, _ := newTestValidator(t)
	path := filepath.Join(projects, "demo", "main.go")
	res := v.Validate(Request{Tool: "Write", Path: path}, baseSnapshot(), session.New(time.Now()))
	if !res.Valid {
		t.Fatalf("expected write under projects root to be allowed, got reason: %s", res.Reason)
	}
}

func TestValidate_EditWithoutPriorReadSoftModeWarnsButValid(t *testing.T) {
	v, projects, _ := newTestValidator(t)
	path := filepath.Join(projects, "demo", "main.go")
	res := v.Validate(Request{Tool: "Edit", Path: path}, baseSnapshot(), session.New(time.Now()))
	if !res.Valid {
		t.Fatalf("expected soft mode to allow with warning, got reason: %s", res.Reason)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a build anchor warning")
	}
}

func TestValidate_EditWithoutPriorReadMaxModeDenied(t *testing.T) {
	v, projects, _ := newTestValidator(t)
	path := filepath.Join(projects, "demo", "main.go")
	snap := baseSnapshot()
	snap.EnforceMode = config.ModeMax
	res := v.Validate(Request{Tool: "Edit", Path: path}, snap, session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected max mode to deny an edit with no prior read")
	}
}

func TestValidate_EditWithPriorReadAllowed(t *testing.T) {
	v, projects, _ := newTestValidator(t)
	path := filepath.Join(projects, "demo", "main.go")
	canonical, err := pathresolve.Resolve(path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	sess := session.New(time.Now())
	sess.MarkRead(canonical, false)

	snap := baseSnapshot()
	snap.EnforceMode = config.ModeMax
	res := v.Validate(Request{Tool: "Edit", Path: path}, snap, sess)
	if !res.Valid {
		t.Fatalf("expected edit after read to be allowed, got reason: %s", res.Reason)
	}
}

func TestValidate_ReadBlockedPathDenied(t *testing.T) {
	v, _, _ := newTestValidator(t)
	res := v.Validate(Request{Tool: "Read", Path: "/etc/shadow"}, baseSnapshot(), session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected read of a blocked path to be denied")
	}
}

func TestValidate_BashDangerousCommandDenied(t *testing.T) {
	v, _, _ := newTestValidator(t)
	snap := baseSnapshot()
	snap.DangerousCommands = map[string]int{"rm -rf /": 10}
	res := v.Validate(Request{Tool: "Bash", Command: "rm -rf /"}, snap, session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected dangerous bash command to be denied")
	}
}

func TestValidate_BashDirectTmpReferenceDenied(t *testing.T) {
	v, _, _ := newTestValidator(t)
	res := v.Validate(Request{Tool: "Bash", Command: "cat /tmp/secret"}, baseSnapshot(), session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected direct /tmp reference to be denied")
	}
}

func TestValidate_BashWriteUnderProjectsRootAllowed(t *testing.T) {
	v, projects, _ := newTestValidator(t)
	dest := filepath.Join(projects, "demo", "out.txt")
	res := v.Validate(Request{Tool: "Bash", Command: "echo hi > " + dest}, baseSnapshot(), session.New(time.Now()))
	if !res.Valid {
		t.Fatalf("expected bash redirect under projects root to be allowed, got reason: %s", res.Reason)
	}
}

func TestValidate_BashGitForceDenied(t *testing.T) {
	v, _, _ := newTestValidator(t)
	snap := baseSnapshot()
	snap.GitForcePatterns = []string{"--force"}
	res := v.Validate(Request{Tool: "Bash", Command: "git push --force origin main"}, snap, session.New(time.Now()))
	if res.Valid {
		t.Fatal("expected forced git push to be denied")
	}
}
