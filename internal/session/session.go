/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package session implements the Session Ledger: the single live,
// persisted record of one process's reads, writes, actions, and rate
// window. Exactly one Session exists per process; the Gate Pipeline
// holds the owning reference and saves it after every state-changing
// operation.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

const (
	bucketSession = "session"
	keyCurrent    = "current_session"

	maxComplexityHistory = 100
	maxManifest          = 200
	maxFailures          = 50
)

// traversalSentinel marks a path that failed canonicalization; it is
// recorded in files_read/files_written instead of a real path and can
// never satisfy a Build Anchor check.
const traversalSentinel = "<traversal-tainted>"

// ManifestEntry is one record in the session's append-only call
// manifest.
type ManifestEntry struct {
	Tool   string    `json:"tool"`
	C      uint64    `json:"c"`
	Status string    `json:"status"`
	Notes  string    `json:"notes"`
	At     time.Time `json:"at"`
}

// FailureEntry is one record in the session's failures FIFO.
type FailureEntry struct {
	Tool    string    `json:"tool"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ComplexityHistoryEntry is one record in the session's complexity
// history FIFO.
type ComplexityHistoryEntry struct {
	Tool string  `json:"tool"`
	C    uint64  `json:"c"`
	Tier string  `json:"tier"`
	At   time.Time `json:"at"`
}

// Session is the full ledger state for one process.
type Session struct {
	ActionCount uint64 `json:"action_count"`

	FilesRead    []string `json:"files_read"`
	FilesWritten []string `json:"files_written"`

	LastTool   string `json:"last_tool"`
	LastResult string `json:"last_result"`
	LastFile   string `json:"last_file"`

	StartedAt    time.Time `json:"started_at"`
	LastActionAt time.Time `json:"last_action_at"`

	ComplexityHistory []ComplexityHistoryEntry `json:"complexity_history"`
	Manifest          []ManifestEntry          `json:"manifest"`
	Failures          []FailureEntry           `json:"failures"`

	RateWindow []time.Time `json:"rate_window"`

	filesReadSet    map[string]struct{}
	filesWrittenSet map[string]struct{}
}

// New creates a fresh Session for process start.
func New(now time.Time) *Session {
	return &Session{
		StartedAt:       now,
		LastActionAt:    now,
		filesReadSet:    make(map[string]struct{}),
		filesWrittenSet: make(map[string]struct{}),
	}
}

func (s *Session) rebuildIndexes() {
	s.filesReadSet = make(map[string]struct{}, len(s.FilesRead))
	for _, p := range s.FilesRead {
		s.filesReadSet[p] = struct{}{}
	}
	s.filesWrittenSet = make(map[string]struct{}, len(s.FilesWritten))
	for _, p := range s.FilesWritten {
		s.filesWrittenSet[p] = struct{}{}
	}
}

// MarkRead records a canonical path (or traversalSentinel) as read, if
// not already present — insertion order is preserved.
func (s *Session) MarkRead(canonicalPath string, tainted bool) {
	path := canonicalPath
	if tainted {
		path = traversalSentinel
	}
	if _, ok := s.filesReadSet[path]; ok {
		return
	}
	s.filesReadSet[path] = struct{}{}
	s.FilesRead = append(s.FilesRead, path)
	s.LastFile = path
}

// MarkWritten records a canonical path (or traversalSentinel) as
// written, if not already present.
func (s *Session) MarkWritten(canonicalPath string, tainted bool) {
	path := canonicalPath
	if tainted {
		path = traversalSentinel
	}
	if _, ok := s.filesWrittenSet[path]; ok {
		return
	}
	s.filesWrittenSet[path] = struct{}{}
	s.FilesWritten = append(s.FilesWritten, path)
	s.LastFile = path
}

// HasRead reports whether canonicalPath satisfies a Build Anchor check.
// A traversal-tainted path never satisfies the anchor, regardless of
// whether the sentinel happens to be present.
func (s *Session) HasRead(canonicalPath string, tainted bool) bool {
	if tainted {
		return false
	}
	_, ok := s.filesReadSet[canonicalPath]
	return ok
}

// RecordAction bumps action_count, last_* fields, and last_action_at.
func (s *Session) RecordAction(tool, result string, now time.Time) {
	s.ActionCount++
	s.LastTool = tool
	s.LastResult = result
	s.LastActionAt = now
}

// AppendManifest appends to the bounded manifest FIFO, evicting the
// oldest entry if the cap would be exceeded.
func (s *Session) AppendManifest(entry ManifestEntry) {
	s.Manifest = append(s.Manifest, entry)
	if len(s.Manifest) > maxManifest {
		s.Manifest = s.Manifest[len(s.Manifest)-maxManifest:]
	}
}

// AppendComplexityHistory appends to the bounded complexity history FIFO.
func (s *Session) AppendComplexityHistory(entry ComplexityHistoryEntry) {
	s.ComplexityHistory = append(s.ComplexityHistory, entry)
	if len(s.ComplexityHistory) > maxComplexityHistory {
		s.ComplexityHistory = s.ComplexityHistory[len(s.ComplexityHistory)-maxComplexityHistory:]
	}
}

// AppendFailure appends to the bounded failures FIFO.
func (s *Session) AppendFailure(entry FailureEntry) {
	s.Failures = append(s.Failures, entry)
	if len(s.Failures) > maxFailures {
		s.Failures = s.Failures[len(s.Failures)-maxFailures:]
	}
}

// PushRateWindow appends now to the rate window, then evicts every
// timestamp older than 60s, per the eviction-on-every-touch invariant.
func (s *Session) PushRateWindow(now time.Time) {
	s.RateWindow = append(s.RateWindow, now)
	cutoff := now.Add(-60 * time.Second)
	i := 0
	for i < len(s.RateWindow) && s.RateWindow[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		s.RateWindow = s.RateWindow[i:]
	}
}

// Reset returns a fresh session started at now. The `reset` CLI
// subcommand goes through Ledger.ResetAndSave instead.
func Reset(now time.Time) *Session {
	return New(now)
}

// Ledger owns the persisted Session for one process.
type Ledger struct {
	kv      *kvstore.Store
	current *Session
}

// Open loads the persisted Session if present, or creates one, per the
// lifecycle rule ("created on process start if absent").
func Open(kv *kvstore.Store, now time.Time) (*Ledger, error) {
	data, ok, err := kv.Get(bucketSession, keyCurrent)
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var s *Session
	if ok {
		s = &Session{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("session: decode: %w", err)
		}
		s.rebuildIndexes()
	} else {
		s = New(now)
	}

	l := &Ledger{kv: kv, current: s}
	if err := l.Save(); err != nil {
		return nil, err
	}
	return l, nil
}

// Current returns the live Session.
func (l *Ledger) Current() *Session {
	return l.current
}

// Save persists the current Session in one transaction, so that the
// gate pipeline's ordering guarantee — call n's mutation durable before
// call n+1 is read — holds.
func (l *Ledger) Save() error {
	data, err := json.Marshal(l.current)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return l.kv.Put(bucketSession, keyCurrent, data)
}

// ResetAndSave replaces the current session with a fresh one and
// persists it immediately.
func (l *Ledger) ResetAndSave(now time.Time) error {
	l.current = New(now)
	return l.Save()
}
