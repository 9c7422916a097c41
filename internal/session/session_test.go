/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.mdb")
	kv, err := kvstore.Open(kvstore.EnvSession, path, nil)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	l, err := Open(kv, time.Now())
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	return l
}

func TestMarkRead_InsertionOrderAndDedup(t *testing.T) {
	s := New(time.Now())
	s.MarkRead("/a", false)
	s.MarkRead("/b", false)
	s.MarkRead("/a", false)

	if len(s.FilesRead) != 2 {
		t.Fatalf("expected 2 unique reads, got %d: %v", len(s.FilesRead), s.FilesRead)
	}
	if s.FilesRead[0] != "/a" || s.FilesRead[1] != "/b" {
		t.Fatalf("unexpected insertion order: %v", s.FilesRead)
	}
}

func TestHasRead_TraversalTaintedNeverSatisfiesAnchor(t *testing.T) {
	s := New(time.Now())
	s.MarkRead("/a", true)

	if s.HasRead("/a", true) {
		t.Fatal("tainted path must never satisfy the anchor check")
	}
}

func TestFIFOs_NeverExceedCaps(t *testing.T) {
	s := New(time.Now())
	for i := 0; i < maxManifest+50; i++ {
		s.AppendManifest(ManifestEntry{Tool: "write"})
	}
	if len(s.Manifest) != maxManifest {
		t.Fatalf("manifest exceeded cap: %d", len(s.Manifest))
	}

	for i := 0; i < maxComplexityHistory+10; i++ {
		s.AppendComplexityHistory(ComplexityHistoryEntry{Tool: "edit"})
	}
	if len(s.ComplexityHistory) != maxComplexityHistory {
		t.Fatalf("complexity history exceeded cap: %d", len(s.ComplexityHistory))
	}

	for i := 0; i < maxFailures+5; i++ {
		s.AppendFailure(FailureEntry{Tool: "bash"})
	}
	if len(s.Failures) != maxFailures {
		t.Fatalf("failures exceeded cap: %d", len(s.Failures))
	}
}

func TestPushRateWindow_EvictsOlderThan60s(t *testing.T) {
	s := New(time.Now())
	base := time.Now()

	s.PushRateWindow(base.Add(-90 * time.Second))
	s.PushRateWindow(base.Add(-30 * time.Second))
	s.PushRateWindow(base)

	for _, ts := range s.RateWindow {
		if base.Sub(ts) > 60*time.Second {
			t.Fatalf("rate window retained a timestamp older than 60s: %v", ts)
		}
	}
	if len(s.RateWindow) != 2 {
		t.Fatalf("expected 2 surviving timestamps, got %d", len(s.RateWindow))
	}
}

func TestLedger_SaveAndReloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mdb")
	kv, err := kvstore.Open(kvstore.EnvSession, path, nil)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	defer kv.Close()

	l, err := Open(kv, time.Now())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Current().MarkRead("/a/b.txt", false)
	l.Current().RecordAction("read", "ok", time.Now())
	if err := l.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Open(kv, time.Now())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reloaded.Current().HasRead("/a/b.txt", false) {
		t.Fatal("expected reloaded session to retain files_read")
	}
	if reloaded.Current().ActionCount != 1 {
		t.Fatalf("expected action_count=1, got %d", reloaded.Current().ActionCount)
	}
}

func TestResetAndSave_ClearsState(t *testing.T) {
	l := openTestLedger(t)
	l.Current().MarkRead("/a", false)
	l.Current().RecordAction("read", "ok", time.Now())

	if err := l.ResetAndSave(time.Now()); err != nil {
		t.Fatalf("ResetAndSave: %v", err)
	}
	if l.Current().ActionCount != 0 {
		t.Fatalf("expected reset action_count=0, got %d", l.Current().ActionCount)
	}
	if len(l.Current().FilesRead) != 0 {
		t.Fatal("expected reset to clear files_read")
	}
}
