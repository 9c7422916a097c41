/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package vfs implements the Virtual FS View: a routing layer over the
// gateway's five KV environments plus a hybrid inline/blob store for
// everything that doesn't belong to one of the named environments.
// Content at or under 1MiB is stored inline in the KV entry; anything
// larger is written once to blobs/<sha256> on disk and referenced by
// hash, so identical large writes are deduplicated for free.
package vfs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf-gate/spfgate/internal/kvstore"
)

// InlineThreshold is the largest content size stored inline in the KV
// entry rather than spilled to a blob file.
const InlineThreshold = 1 << 20 // 1MiB

const bucketMetadata = "vfs_metadata"
const bucketInline = "vfs_inline"

// Metadata is one virtual path's stored record.
type Metadata struct {
	VirtualPath string    `json:"virtual_path"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256,omitempty"`
	Version     int64     `json:"version"`
	Inline      bool      `json:"inline"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Store is the hybrid inline/blob virtual filesystem: the fallback
// backend for any virtual path that doesn't match one of the routed
// prefixes (config, tmp, projects, home/agent).
type Store struct {
	kv      *kvstore.Store
	blobDir string
}

// Open opens the hybrid store, rooted at blobDir for spilled content.
func Open(kv *kvstore.Store, blobDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(blobDir, "blobs"), 0o700); err != nil {
		return nil, fmt.Errorf("vfs: create blob dir: %w", err)
	}
	return &Store{kv: kv, blobDir: blobDir}, nil
}

// Normalize cleans a virtual path to a canonical slash-separated,
// leading-slash form.
func Normalize(vpath string) string {
	cleaned := path.Clean("/" + strings.TrimPrefix(vpath, "/"))
	return cleaned
}

// Write stores content at vpath, inline or as a blob depending on
// size.
func (s *Store) Write(vpath string, content []byte, now time.Time) error {
	vpath = Normalize(vpath)

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	meta := Metadata{VirtualPath: vpath, Size: int64(len(content)), SHA256: digest, ModifiedAt: now}

	existing, ok, err := s.stat(vpath)
	if err != nil {
		return err
	}
	if ok {
		meta.CreatedAt = existing.CreatedAt
		meta.Version = existing.Version + 1
	} else {
		meta.CreatedAt = now
		meta.Version = 1
	}

	if len(content) <= InlineThreshold {
		meta.Inline = true
		if err := s.kv.Put(bucketInline, vpath, content); err != nil {
			return fmt.Errorf("vfs: write inline: %w", err)
		}
	} else {
		blobPath := s.blobPath(digest)
		if _, err := os.Stat(blobPath); os.IsNotExist(err) {
			if err := os.WriteFile(blobPath, content, 0o600); err != nil {
				return fmt.Errorf("vfs: write blob: %w", err)
			}
		}
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.kv.Put(bucketMetadata, vpath, data)
}

// Read loads the content stored at vpath.
func (s *Store) Read(vpath string) ([]byte, error) {
	vpath = Normalize(vpath)
	meta, ok, err := s.stat(vpath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("vfs: %s: not found", vpath)
	}
	if meta.Inline {
		data, ok, err := s.kv.Get(bucketInline, vpath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("vfs: %s: inline content missing", vpath)
		}
		return data, nil
	}
	return os.ReadFile(s.blobPath(meta.SHA256))
}

// Stat loads vpath's metadata without reading its content.
func (s *Store) Stat(vpath string) (Metadata, bool, error) {
	return s.stat(Normalize(vpath))
}

func (s *Store) stat(vpath string) (Metadata, bool, error) {
	data, ok, err := s.kv.Get(bucketMetadata, vpath)
	if err != nil || !ok {
		return Metadata{}, ok, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, true, fmt.Errorf("vfs: decode metadata %s: %w", vpath, err)
	}
	return m, true, nil
}

// Delete removes vpath's metadata and inline content (blob files are
// left in place — they are content-addressed and may be shared).
func (s *Store) Delete(vpath string) error {
	vpath = Normalize(vpath)
	if err := s.kv.Delete(bucketInline, vpath); err != nil {
		return err
	}
	return s.kv.Delete(bucketMetadata, vpath)
}

// RmRF deletes every virtual path under prefix (inclusive).
func (s *Store) RmRF(prefix string) (int, error) {
	prefix = Normalize(prefix)
	var toDelete []string
	if err := s.kv.PrefixScan(bucketMetadata, prefix, func(k, _ []byte) error {
		toDelete = append(toDelete, string(k))
		return nil
	}); err != nil {
		return 0, err
	}
	for _, vpath := range toDelete {
		if err := s.Delete(vpath); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}

// Rename moves content and metadata from srcPath to dstPath.
func (s *Store) Rename(srcPath, dstPath string, now time.Time) error {
	srcPath = Normalize(srcPath)
	dstPath = Normalize(dstPath)

	content, err := s.Read(srcPath)
	if err != nil {
		return err
	}
	if err := s.Write(dstPath, content, now); err != nil {
		return err
	}
	return s.Delete(srcPath)
}

func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.blobDir, "blobs", digest)
}

// Router dispatches a virtual path to the KV environment the routing
// table names for its prefix, falling back to the hybrid Store for
// anything that matches none of them.
type Router struct {
	config   *kvstore.Store
	tmp      *kvstore.Store
	projects *kvstore.Store
	agent    *kvstore.Store
	hybrid   *Store
}

// NewRouter builds a Router from the gateway's four named KV
// environments plus the hybrid fallback store.
func NewRouter(config, tmp, projects, agent *kvstore.Store, hybrid *Store) *Router {
	return &Router{config: config, tmp: tmp, projects: projects, agent: agent, hybrid: hybrid}
}

// Backend reports which KV environment vpath routes to, and the store
// itself when it's one of the four named ones (nil, false for the
// hybrid fallback).
func (r *Router) Backend(vpath string) (*kvstore.Store, bool) {
	switch {
	case strings.HasPrefix(vpath, "/config"):
		return r.config, true
	case strings.HasPrefix(vpath, "/tmp"):
		return r.tmp, true
	case strings.HasPrefix(vpath, "/projects"):
		return r.projects, true
	case strings.HasPrefix(vpath, "/home/agent"):
		return r.agent, true
	default:
		return nil, false
	}
}

// Hybrid returns the fallback hybrid store for any virtual path that
// matches none of the named prefixes.
func (r *Router) Hybrid() *Store {
	return r.hybrid
}
