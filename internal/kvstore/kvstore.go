/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package kvstore wraps go.etcd.io/bbolt as the embedded B-tree backend
// for the gateway's five persisted environments (session, configuration,
// projects, tmp metadata, agent state) and the virtual filesystem store.
// Each environment is one bbolt.DB opened exactly once at process start
// and shared for the life of the process; writes are serialized by
// bbolt's single-writer transaction model, which gives the gateway's
// single-threaded dispatch loop the commit-before-next-read ordering the
// session ledger requires for free.
package kvstore

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Env names the five compiled KV environments plus the virtual FS store.
type Env string

const (
	EnvSession       Env = "SESSION"
	EnvConfiguration Env = "CONFIG"
	EnvProjects      Env = "PROJECTS"
	EnvTMP           Env = "TMP"
	EnvAgentState    Env = "LMDB5"
	EnvVirtualFS     Env = "SPF_FS"
)

// MapSizes mirrors the map-size table from the KV stores specification.
// bbolt grows its file on demand, so these are not hard ceilings. Open
// does not apply them: they record each environment's working-set
// budget only.
var MapSizes = map[Env]int64{
	EnvSession:       50 << 20,
	EnvConfiguration: 10 << 20,
	EnvProjects:      20 << 20,
	EnvTMP:           50 << 20,
	EnvAgentState:    100 << 20,
	EnvVirtualFS:     4 << 30,
}

// Store is one opened bbolt environment.
type Store struct {
	db   *bolt.DB
	name Env
}

// Open opens (creating if absent) the bbolt file at path for the named
// environment, pre-creating the given top-level buckets. The handle is
// opened exactly once and should be shared read-only-by-default for the
// life of the process, per the concurrency model's shared-resource
// policy.
func Open(name Env, path string, buckets []string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open %s at %s: %w", name, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: seed %s: %w", name, err)
	}

	return &Store{db: db, name: name}, nil
}

// Close closes the environment's handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads one key from bucket. ok is false if the bucket or key does
// not exist.
func (s *Store) Get(bucket, key string) (value []byte, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v != nil {
			// bbolt's returned slice is only valid for the transaction's
			// lifetime; copy it out.
			value = append([]byte(nil), v...)
			ok = true
		}
		return nil
	})
	return value, ok, err
}

// Put writes one key to bucket in its own serializable transaction. A
// successful return guarantees the write is committed to disk before
// the caller proceeds, satisfying the ordering guarantee that call n's
// mutation is durable before call n+1 is read.
func (s *Store) Put(bucket, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

// Delete removes one key from bucket. It is a no-op if the key is absent.
func (s *Store) Delete(bucket, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// ForEach iterates every key/value pair in bucket in key order, stopping
// early if fn returns an error.
func (s *Store) ForEach(bucket string, fn func(key, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(fn)
	})
}

// PrefixScan iterates every key in bucket with the given prefix, in key
// order.
func (s *Store) PrefixScan(bucket, prefix string, fn func(key, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update runs fn inside a single read-write transaction over the whole
// environment, so multi-key mutations commit atomically.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
