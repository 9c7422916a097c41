/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/spf-gate/spfgate/internal/pathresolve"
)

// runInitConfig opens the Configuration store, which seeds compiled
// defaults on first boot if nothing is persisted yet, and prints the
// resulting snapshot.
func runInitConfig(_ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.configStore.Snapshot()
	if err != nil {
		return err
	}
	return printJSON(snap)
}

// runRefreshPaths recanonicalizes every configured allowed/blocked path
// rule against the live filesystem (resolving symlinks, skipping
// entries that no longer canonicalize) and, unless --dry-run is given,
// adds the canonical forms as rules. Existing rules are not removed.
func runRefreshPaths(args []string) error {
	dryRun := containsFlag(args, "--dry-run")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	allowed, blocked, err := a.configStore.PathRules()
	if err != nil {
		return err
	}

	refreshedAllowed := refreshPaths(allowed)
	refreshedBlocked := refreshPaths(blocked)

	if dryRun {
		return printJSON(map[string]any{"allowed": refreshedAllowed, "blocked": refreshedBlocked, "dry_run": true})
	}

	for _, p := range refreshedAllowed {
		if err := a.configStore.AddPathRule(true, p); err != nil {
			return err
		}
	}
	for _, p := range refreshedBlocked {
		if err := a.configStore.AddPathRule(false, p); err != nil {
			return err
		}
	}
	return printJSON(map[string]any{"allowed": refreshedAllowed, "blocked": refreshedBlocked})
}

func refreshPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		canonical, err := pathresolve.Resolve(p)
		if err != nil {
			continue
		}
		out = append(out, canonical)
	}
	return out
}

// runConfigImport loads a JSON configuration snapshot (as produced by
// config-export) into the persisted configuration, unless --dry-run is
// given: scalars are overwritten and path rules and dangerous patterns
// are merged (see config.Store.Import).
func runConfigImport(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: spfgate config-import <json> [--dry-run]")
	}
	dryRun := containsFlag(args, "--dry-run")

	data := []byte(args[0])
	if strings.HasPrefix(args[0], "@") {
		read, err := os.ReadFile(strings.TrimPrefix(args[0], "@"))
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		data = read
	}

	if dryRun {
		fmt.Println("dry run: would import", len(data), "bytes")
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.configStore.Import(data); err != nil {
		return err
	}
	snap, err := a.configStore.Snapshot()
	if err != nil {
		return err
	}
	return printJSON(snap)
}

// runConfigExport exports the configuration snapshot as JSON, optionally
// sealing it with chacha20poly1305 under a 32-byte key read from
// --encrypt <keyfile>.
func runConfigExport(args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := a.configStore.Export()
	if err != nil {
		return err
	}

	keyfile, ok := flagValue(args, "--encrypt")
	if !ok {
		fmt.Println(string(data))
		return nil
	}

	key, err := os.ReadFile(keyfile)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	sealed, err := sealConfig(key, data)
	if err != nil {
		return err
	}
	fmt.Println(sealed)
	return nil
}

// sealConfig encrypts plaintext with a 32-byte key under XChaCha20-Poly1305,
// returning "<nonce-hex>:<ciphertext-hex>".
func sealConfig(key, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return fmt.Sprintf("%x:%x", nonce, ciphertext), nil
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}
