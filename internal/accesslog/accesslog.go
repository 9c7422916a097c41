/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package accesslog implements the Access Log Record: an append-only
// record of every virtual filesystem operation, keyed so iteration
// order matches append order.
package accesslog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

const bucketAccessLog = "access_log"

// Record is one append-only access log entry.
type Record struct {
	At          time.Time `json:"at"`
	VirtualPath string    `json:"virtual_path"`
	ProjectPath string    `json:"project_path"`
	Operation   string    `json:"operation"`
	Source      string    `json:"source"`
	Bytes       int64     `json:"bytes"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// Log appends and iterates Access Log Records.
type Log struct {
	kv      *kvstore.Store
	counter uint64
}

// Open opens the access log, starting its monotonic append counter
// fresh — sufficient for ordering within one process's lifetime, which
// is the only place the gate pipeline writes records.
func Open(kv *kvstore.Store) *Log {
	return &Log{kv: kv}
}

// Append writes one record under a key built from its timestamp and a
// per-process append counter.
func (l *Log) Append(rec Record) error {
	l.counter++
	key := fmt.Sprintf("%020d-%010d", rec.At.UnixNano(), l.counter)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("accesslog: encode: %w", err)
	}
	return l.kv.Put(bucketAccessLog, key, data)
}

// ForEach iterates every record in append order.
func (l *Log) ForEach(fn func(Record) error) error {
	return l.kv.ForEach(bucketAccessLog, func(_, v []byte) error {
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("accesslog: decode: %w", err)
		}
		return fn(rec)
	})
}

// Tail returns the last n records in append order.
func (l *Log) Tail(n int) ([]Record, error) {
	var all []Record
	if err := l.ForEach(func(r Record) error {
		all = append(all, r)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}
