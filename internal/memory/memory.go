/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package memory implements the Agent Memory Entry store: UUID-keyed
// notes an agent asks the gateway to retain across sessions, with
// kind-specific TTLs swept on a schedule.
package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

const bucketMemory = "memory"

// Kind classifies a memory entry, determining its TTL.
type Kind string

const (
	KindFact        Kind = "Fact"
	KindInstruction Kind = "Instruction"
	KindPreference  Kind = "Preference"
	KindObservation Kind = "Observation"
	KindTemporary   Kind = "Temporary"
	KindPinned      Kind = "Pinned"
)

// ttlFor returns the sweep TTL for kind, or zero for kinds that never
// expire on their own (Fact, Instruction, Preference, Pinned).
func ttlFor(kind Kind) time.Duration {
	switch kind {
	case KindObservation:
		return 30 * 24 * time.Hour
	case KindTemporary:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Entry is one Agent Memory Entry.
type Entry struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Store wraps the Agent state KV environment's memory bucket.
type Store struct {
	kv *kvstore.Store
}

// Open opens the memory store.
func Open(kv *kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Put creates a new memory entry with a fresh UUID, applying kind's
// TTL if it has one.
func (s *Store) Put(kind Kind, content string, now time.Time) (Entry, error) {
	e := Entry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Content:   content,
		CreatedAt: now,
	}
	if ttl := ttlFor(kind); ttl > 0 {
		expires := now.Add(ttl)
		e.ExpiresAt = &expires
	}
	if err := s.put(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get loads one memory entry by ID.
func (s *Store) Get(id string) (Entry, bool, error) {
	data, ok, err := s.kv.Get(bucketMemory, id)
	if err != nil || !ok {
		return Entry{}, ok, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, true, fmt.Errorf("memory: decode %s: %w", id, err)
	}
	return e, true, nil
}

// Delete removes one memory entry by ID, for the Pinned-or-explicit
// removal path.
func (s *Store) Delete(id string) error {
	return s.kv.Delete(bucketMemory, id)
}

// List enumerates every memory entry.
func (s *Store) List() ([]Entry, error) {
	var out []Entry
	err := s.kv.ForEach(bucketMemory, func(_, v []byte) error {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("memory: decode: %w", err)
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Sweep deletes every entry whose ExpiresAt has passed as of now,
// returning the count removed.
func (s *Store) Sweep(now time.Time) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
			if err := s.Delete(e.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *Store) put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.kv.Put(bucketMemory, e.ID, data)
}

// Scheduler runs Store.Sweep on a cron schedule, owning its own
// *cron.Cron instance.
type Scheduler struct {
	cron *cron.Cron
}

// StartSweeper schedules an hourly sweep of expired memory entries,
// decoupled from request handling, and starts the cron scheduler. The
// caller must call Stop on shutdown.
func StartSweeper(store *Store) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc("@every 1h", func() {
		_, _ = store.Sweep(time.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("memory: schedule sweep: %w", err)
	}
	c.Start()
	return &Scheduler{cron: c}, nil
}

// Stop halts the sweep scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
