/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package gate

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/config"
	"github.com/spf-gate/spfgate/internal/kvstore"
	"github.com/spf-gate/spfgate/internal/pathresolve"
	"github.com/spf-gate/spfgate/internal/session"
	"github.com/spf-gate/spfgate/internal/shared/ratelimit"
	"github.com/spf-gate/spfgate/internal/validator"
)

func newTestPipeline(t *testing.T) (*Pipeline, string, *session.Ledger, config.Snapshot) {
	t.Helper()
	root := t.TempDir()
	projects := filepath.Join(root, "LIVE", "PROJECTS", "PROJECTS")
	tmp := filepath.Join(root, "LIVE", "TMP", "TMP")
	resolver := pathresolve.New(projects, tmp, nil, nil)

	limiter := ratelimit.New(ratelimit.DefaultLimits())
	estimator := complexity.New(complexity.DefaultWeightTable(), complexity.DefaultTierTable(), complexity.DefaultFormulaParams())
	val := validator.New(resolver)

	kvPath := filepath.Join(root, "session.mdb")
	kv, err := kvstore.Open(kvstore.EnvSession, kvPath, nil)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	ledger, err := session.Open(kv, time.Now())
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}

	snap := config.Snapshot{
		EnforceMode:           config.ModeSoft,
		RequireReadBeforeEdit: true,
	}

	return New(limiter, estimator, val), projects, ledger, snap
}

func TestProcess_ReadThenEditSatisfiesBuildAnchor(t *testing.T) {
	p, projects, ledger, snap := newTestPipeline(t)
	now := time.Now()
	path := filepath.Join(projects, "demo", "main.go")

	readDecision, err := p.Process(context.Background(), Call{
		Tool:     "Read",
		Category: complexity.CategoryRead,
		Path:     path,
		Generic:  &complexity.GenericInput{Path: path},
	}, snap, ledger, now)
	if err != nil {
		t.Fatalf("Process (read): %v", err)
	}
	if !readDecision.Allowed {
		t.Fatalf("expected read to be allowed, got: %s", readDecision.Message)
	}

	snap.EnforceMode = config.ModeMax
	editDecision, err := p.Process(context.Background(), Call{
		Tool:      "Edit",
		Category:  complexity.CategoryEdit,
		Path:      path,
		EditWrite: &complexity.EditWriteInput{Path: path, ContentLength: 20},
	}, snap, ledger, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Process (edit): %v", err)
	}
	if !editDecision.Allowed {
		t.Fatalf("expected edit after read to be allowed under max mode, got: %s", editDecision.Message)
	}
}

func TestProcess_EditWithoutReadMaxModeBlocked(t *testing.T) {
	p, projects, ledger, snap := newTestPipeline(t)
	snap.EnforceMode = config.ModeMax
	path := filepath.Join(projects, "demo", "untouched.go")

	decision, err := p.Process(context.Background(), Call{
		Tool:      "Edit",
		Category:  complexity.CategoryEdit,
		Path:      path,
		EditWrite: &complexity.EditWriteInput{Path: path, ContentLength: 20},
	}, snap, ledger, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected edit without prior read to be blocked under max mode")
	}
	if !strings.HasPrefix(decision.Message, "BLOCKED") {
		t.Fatalf("expected BLOCKED message, got: %s", decision.Message)
	}
	if !strings.Contains(decision.Message, "MAX TIER:") || !strings.Contains(decision.Message, "BUILD ANCHOR") {
		t.Fatalf("expected message tagged MAX TIER: and BUILD ANCHOR, got: %s", decision.Message)
	}
	if decision.Tier != complexity.TierCritical {
		t.Fatalf("expected escalation to CRITICAL tier, got %s", decision.Tier)
	}
}

func TestProcess_CredentialInContentEscalatesUnderMaxMode(t *testing.T) {
	p, projects, ledger, snap := newTestPipeline(t)
	snap.EnforceMode = config.ModeMax
	path := filepath.Join(projects, "demo", "secrets.env")

	decision, err := p.Process(context.Background(), Call{
		Tool:      "Write",
		Category:  complexity.CategoryWrite,
		Path:      path,
		Content:   "api_key=ghp_ABCDEFGHIJKLMN",
		EditWrite: &complexity.EditWriteInput{Path: path, ContentLength: 30},
	}, snap, ledger, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected credential-bearing write to be denied under max mode")
	}
	if decision.Tier != complexity.TierCritical {
		t.Fatalf("expected escalation to CRITICAL, got %s", decision.Tier)
	}
}

func TestProcess_CredentialInContentSoftModeWarnsButAllows(t *testing.T) {
	p, projects, ledger, snap := newTestPipeline(t)
	path := filepath.Join(projects, "demo", "secrets.env")

	decision, err := p.Process(context.Background(), Call{
		Tool:      "Write",
		Category:  complexity.CategoryWrite,
		Path:      path,
		Content:   "api_key=ghp_ABCDEFGHIJKLMN",
		EditWrite: &complexity.EditWriteInput{Path: path, ContentLength: 30},
	}, snap, ledger, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected soft mode to allow with a warning")
	}
	if len(decision.Warnings) == 0 {
		t.Fatal("expected a credential warning")
	}
}

func TestProcess_RateLimitShortCircuits(t *testing.T) {
	p, projects, ledger, snap := newTestPipeline(t)
	now := time.Now()
	path := filepath.Join(projects, "demo", "file.go")

	for i := 0; i < 60; i++ {
		_, err := p.Process(context.Background(), Call{
			Tool:     "Bash",
			Category: complexity.CategoryBash,
			Command:  "echo hi",
			Bash:     &complexity.BashInput{Command: "echo hi"},
		}, snap, ledger, now.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			t.Fatalf("Process iteration %d: %v", i, err)
		}
	}

	decision, err := p.Process(context.Background(), Call{
		Tool:     "Bash",
		Category: complexity.CategoryBash,
		Command:  "echo hi",
		Bash:     &complexity.BashInput{Command: "echo hi"},
	}, snap, ledger, now.Add(61*time.Millisecond))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected the 61st mutating call within the window to be rate-limited")
	}
	if decision.Tier != complexity.TierRateLimited {
		t.Fatalf("expected RATE_LIMITED tier, got %s", decision.Tier)
	}
	_ = path
}

func TestProcess_MessageFormat(t *testing.T) {
	p, projects, ledger, snap := newTestPipeline(t)
	path := filepath.Join(projects, "demo", "readme.md")

	decision, err := p.Process(context.Background(), Call{
		Tool:     "Read",
		Category: complexity.CategoryRead,
		Path:     path,
		Generic:  &complexity.GenericInput{Path: path},
	}, snap, ledger, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasPrefix(decision.Message, "ALLOWED | Read | C=") {
		t.Fatalf("unexpected message format: %s", decision.Message)
	}
}
