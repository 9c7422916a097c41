/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package project implements Project Metadata: a per-project trust
// level and write budget, keyed by the project's canonical path under
// the Projects writable root.
package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

// Trust is a project's trust level, widening the actions the Rule
// Validator permits without requiring per-call approval as it rises.
type Trust string

const (
	TrustUntrusted Trust = "Untrusted"
	TrustLow       Trust = "Low"
	TrustMedium    Trust = "Medium"
	TrustHigh      Trust = "High"
	TrustFull      Trust = "Full"
)

// defaultMaxSessionWrites is the write budget a freshly discovered
// project starts with, before an operator raises its trust level.
const defaultMaxSessionWrites = 50

const bucketProjects = "projects"

// Metadata is one project's persisted record.
type Metadata struct {
	Path              string    `json:"path"`
	Trust             Trust     `json:"trust"`
	SessionWriteCount int       `json:"session_write_count"`
	MaxSessionWrites  int       `json:"max_session_writes"`
	CreatedAt         time.Time `json:"created_at"`
	LastAccessAt      time.Time `json:"last_access_at"`
}

// Store wraps the Projects KV environment.
type Store struct {
	kv *kvstore.Store
}

// Open opens the Projects metadata store.
func Open(kv *kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Get loads a project's metadata, if it has been seen before.
func (s *Store) Get(path string) (Metadata, bool, error) {
	data, ok, err := s.kv.Get(bucketProjects, path)
	if err != nil || !ok {
		return Metadata{}, ok, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, true, fmt.Errorf("project: decode %s: %w", path, err)
	}
	return m, true, nil
}

// Touch loads a project's metadata, creating it as Untrusted with the
// default write budget on first sight, and bumps last_access_at.
func (s *Store) Touch(path string, now time.Time) (Metadata, error) {
	m, ok, err := s.Get(path)
	if err != nil {
		return Metadata{}, err
	}
	if !ok {
		m = Metadata{
			Path:             path,
			Trust:            TrustUntrusted,
			MaxSessionWrites: defaultMaxSessionWrites,
			CreatedAt:        now,
		}
	}
	m.LastAccessAt = now
	if err := s.put(m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// IncrementWriteCount bumps session_write_count for path and reports
// whether the project's write budget has been exhausted.
func (s *Store) IncrementWriteCount(path string, now time.Time) (Metadata, bool, error) {
	m, err := s.Touch(path, now)
	if err != nil {
		return Metadata{}, false, err
	}
	m.SessionWriteCount++
	if err := s.put(m); err != nil {
		return Metadata{}, false, err
	}
	return m, m.SessionWriteCount > m.MaxSessionWrites, nil
}

// SetTrust updates a project's trust level, widening (or narrowing)
// its write budget to match.
func (s *Store) SetTrust(path string, trust Trust, now time.Time) (Metadata, error) {
	m, err := s.Touch(path, now)
	if err != nil {
		return Metadata{}, err
	}
	m.Trust = trust
	m.MaxSessionWrites = maxWritesForTrust(trust)
	if err := s.put(m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

func maxWritesForTrust(trust Trust) int {
	switch trust {
	case TrustLow:
		return 100
	case TrustMedium:
		return 500
	case TrustHigh:
		return 2000
	case TrustFull:
		return 1 << 30
	default:
		return defaultMaxSessionWrites
	}
}

func (s *Store) put(m Metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.kv.Put(bucketProjects, m.Path, data)
}
