/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package project

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.mdb")
	kv, err := kvstore.Open(kvstore.EnvProjects, path, nil)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return Open(kv)
}

func TestTouch_CreatesUntrustedOnFirstSight(t *testing.T) {
	s := openTestStore(t)
	m, err := s.Touch("/LIVE/PROJECTS/PROJECTS/demo", time.Now())
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if m.Trust != TrustUntrusted {
		t.Fatalf("expected Untrusted, got %s", m.Trust)
	}
	if m.MaxSessionWrites != defaultMaxSessionWrites {
		t.Fatalf("expected default write budget, got %d", m.MaxSessionWrites)
	}
}

func TestIncrementWriteCount_ExhaustsBudget(t *testing.T) {
	s := openTestStore(t)
	path := "/LIVE/PROJECTS/PROJECTS/demo"
	now := time.Now()

	var exhausted bool
	for i := 0; i < defaultMaxSessionWrites+1; i++ {
		var err error
		_, exhausted, err = s.IncrementWriteCount(path, now)
		if err != nil {
			t.Fatalf("IncrementWriteCount: %v", err)
		}
	}
	if !exhausted {
		t.Fatal("expected write budget to be exhausted")
	}
}

func TestSetTrust_RaisesWriteBudget(t *testing.T) {
	s := openTestStore(t)
	path := "/LIVE/PROJECTS/PROJECTS/demo"
	m, err := s.SetTrust(path, TrustHigh, time.Now())
	if err != nil {
		t.Fatalf("SetTrust: %v", err)
	}
	if m.MaxSessionWrites != 2000 {
		t.Fatalf("expected High trust write budget, got %d", m.MaxSessionWrites)
	}
}
