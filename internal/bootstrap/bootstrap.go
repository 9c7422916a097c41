/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package bootstrap loads the gateway's pre-KV bootstrap file: operator
// overrides for root discovery, KV map sizes, and the debug flag, read
// before any KV environment can be opened.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the bootstrap file's name under <root>/LIVE/CONFIG/.
const FileName = "bootstrap.yaml"

// Config is the bootstrap file's full contents.
type Config struct {
	RootOverride string           `yaml:"root_override,omitempty"`
	MapSizes     map[string]int64 `yaml:"map_sizes,omitempty"`
	Debug        bool             `yaml:"debug,omitempty"`
}

// Path returns the bootstrap file path under root.
func Path(root string) string {
	return filepath.Join(root, "LIVE", "CONFIG", FileName)
}

// Load reads the bootstrap file at root, if present. A missing file is
// not an error — the gateway falls back to compiled defaults for every
// field.
func Load(root string) (Config, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("bootstrap: read: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("bootstrap: parse: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to root's bootstrap file, creating its directory if
// absent.
func Save(root string, cfg Config) error {
	dir := filepath.Dir(Path(root))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("bootstrap: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: marshal: %w", err)
	}
	if err := os.WriteFile(Path(root), data, 0o600); err != nil {
		return fmt.Errorf("bootstrap: write: %w", err)
	}
	return nil
}
