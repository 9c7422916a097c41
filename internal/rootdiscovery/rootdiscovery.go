/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package rootdiscovery locates the gateway's data root: the directory
// under which the KV environments, the virtual filesystem's blob store,
// and the compiled writable roots (LIVE/PROJECTS/PROJECTS,
// LIVE/TMP/TMP) all live.
package rootdiscovery

import (
	"fmt"
	"os"
	"path/filepath"
)

// MarkerFile is the file whose presence identifies a directory as the
// gateway's data root.
const MarkerFile = ".spfgate-root"

// EnvOverride is the environment variable that, when set and no marker
// file was found above the binary, is used (made absolute) as the root
// without a marker check.
const EnvOverride = "SPF_ROOT"

// appDirName is the fallback root under $HOME when neither a marker
// file nor SPF_ROOT is found.
const appDirName = "spfgate"

// Discover resolves the data root: walk up from the running binary's
// directory looking for MarkerFile; if none is found, use $SPF_ROOT;
// if that is unset, fall back to $HOME/spfgate (creating it if
// necessary); if HOME cannot be determined either, Discover fails —
// the caller is expected to treat that as fatal.
func Discover() (string, error) {
	if exe, err := os.Executable(); err == nil {
		if root, ok := walkUpForMarker(filepath.Dir(exe)); ok {
			return root, nil
		}
	}

	if override := os.Getenv(EnvOverride); override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("rootdiscovery: %s: %w", EnvOverride, err)
		}
		return abs, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("rootdiscovery: no marker file, no %s, and no resolvable home directory", EnvOverride)
	}

	root := filepath.Join(home, appDirName)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return "", fmt.Errorf("rootdiscovery: create %s: %w", root, err)
	}
	return root, nil
}

// walkUpForMarker walks from dir up to the filesystem root, returning
// the first ancestor (inclusive) containing MarkerFile.
func walkUpForMarker(dir string) (string, bool) {
	for {
		if _, err := os.Stat(filepath.Join(dir, MarkerFile)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
