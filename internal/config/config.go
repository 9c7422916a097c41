/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package config implements the Configuration Store: a persisted
// singleton of enforcement knobs, path rules, and dangerous-command
// patterns, backed by a dedicated kvstore.Store environment with three
// logical namespaces (scalars, path rules, dangerous patterns).
package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/kvstore"
)

// CurrentVersion is the compiled release string re-asserted on every
// boot, overriding any persisted value.
const CurrentVersion = "1.0.0"

// EnforceMode is the gate's enforcement posture.
type EnforceMode string

const (
	ModeSoft EnforceMode = "Soft"
	ModeMax  EnforceMode = "Max"
)

const (
	bucketScalars  = "scalars"
	bucketPaths    = "paths"
	bucketPatterns = "patterns"
)

// defaultBlockedPaths is the 16-entry default block list seeded on
// first boot.
var defaultBlockedPaths = []string{
	"/etc", "/root/.ssh", "/root/.aws", "/root/.gnupg",
	"/var/run/secrets", "/proc", "/sys", "/dev",
	"/boot", "/usr/lib/systemd", "/etc/shadow", "/etc/passwd",
	"/home/*/.ssh", "/var/lib/docker", "/.git/config", "/etc/kubernetes",
}

// defaultDangerousPatterns is the nine dangerous-command substrings
// seeded on first boot, paired with a severity 0-10.
var defaultDangerousPatterns = map[string]int{
	"rm -rf /":        10,
	"dd if=/dev/zero":  8,
	"mkfs":             9,
	":(){ :|:& };:":    10,
	"chmod -R 777 /":   8,
	"> /dev/sda":       9,
	"curl | bash":      7,
	"wget -O- |":       7,
	"shutdown -h now":  6,
}

// hardcodedDangerousSupplement is the seven-entry list the Bash
// Destination Parser applies unconditionally, independent of
// configuration.
var hardcodedDangerousSupplement = []string{
	"chmod 0777", "chmod a+rwx", "mkfs", "> /dev/sd", "curl|bash", "wget -O-|", "curl -s|",
}

// Snapshot is the full, read-only Configuration assembled for a single
// gate pipeline call.
type Snapshot struct {
	Version               string
	EnforceMode           EnforceMode
	AllowedPaths          []string
	BlockedPaths          []string
	RequireReadBeforeEdit bool
	MaxWriteSize          int64
	TierTable             []complexity.TierBand
	FormulaParams         complexity.FormulaParams
	WeightTable           complexity.WeightTable
	DangerousCommands     map[string]int
	GitForcePatterns      []string
}

// HardcodedDangerousSupplement returns the seven compiled substrings
// that cannot be removed via configuration.
func HardcodedDangerousSupplement() []string {
	out := make([]string, len(hardcodedDangerousSupplement))
	copy(out, hardcodedDangerousSupplement)
	return out
}

// Store wraps the Configuration KV environment.
type Store struct {
	kv *kvstore.Store
}

// Open opens (and, on first boot, seeds) the Configuration store, then
// re-asserts the compiled tier-approval policy and version, per the
// lifecycle rule that compiled code wins over persisted values for
// those two fields.
func Open(kv *kvstore.Store) (*Store, error) {
	s := &Store{kv: kv}

	if err := s.seedIfAbsent(); err != nil {
		return nil, fmt.Errorf("config: seed: %w", err)
	}
	if err := s.reassertCompiledPolicy(); err != nil {
		return nil, fmt.Errorf("config: reassert: %w", err)
	}
	return s, nil
}

func (s *Store) seedIfAbsent() error {
	_, ok, err := s.kv.Get(bucketScalars, "version")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if err := s.putScalar("version", CurrentVersion); err != nil {
		return err
	}
	if err := s.putScalar("enforce_mode", ModeSoft); err != nil {
		return err
	}
	if err := s.putScalar("require_read_before_edit", true); err != nil {
		return err
	}
	if err := s.putScalar("max_write_size", int64(100000)); err != nil {
		return err
	}
	if err := s.putScalar("tier_table", complexity.DefaultTierTable()); err != nil {
		return err
	}
	if err := s.putScalar("formula_params", complexity.DefaultFormulaParams()); err != nil {
		return err
	}
	if err := s.putScalar("weight_table", complexity.DefaultWeightTable()); err != nil {
		return err
	}
	if err := s.putScalar("git_force_patterns", defaultGitForcePatterns()); err != nil {
		return err
	}

	for _, p := range defaultBlockedPaths {
		if err := s.kv.Put(bucketPaths, "blocked:"+p, []byte("true")); err != nil {
			return err
		}
	}
	for pattern, severity := range defaultDangerousPatterns {
		if err := s.kv.Put(bucketPatterns, pattern, []byte(fmt.Sprintf("%d", severity))); err != nil {
			return err
		}
	}

	return nil
}

func defaultGitForcePatterns() []string {
	return []string{"--force", "--hard", "push -f", "reset -f", "rebase -f", "merge -f", "checkout -f"}
}

// reassertCompiledPolicy bumps version to CurrentVersion and forces
// requires_approval=true for every tier, regardless of what was
// persisted — compiled code wins for these two fields on every boot.
func (s *Store) reassertCompiledPolicy() error {
	if err := s.putScalar("version", CurrentVersion); err != nil {
		return err
	}

	tiers, err := s.tierTable()
	if err != nil {
		return err
	}
	// requires_approval is compiled true for every tier; the tier
	// table carries no field for it (§4.4 says "true" unconditionally)
	// so there is nothing further to reassert here beyond the version
	// bump above and the formula invariants below.
	_ = tiers

	params, err := s.formulaParams()
	if err != nil {
		return err
	}
	if params.BasicPower == 0 {
		params = complexity.DefaultFormulaParams()
		if err := s.putScalar("formula_params", params); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) putScalar(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Put(bucketScalars, key, data)
}

func (s *Store) getScalar(key string, out interface{}) (bool, error) {
	data, ok, err := s.kv.Get(bucketScalars, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, err
	}
	return true, nil
}

// GetScalar exposes a read-only lookup by namespace+key, as required by
// the Configuration Store's read-only views.
func (s *Store) GetScalar(key string) ([]byte, bool, error) {
	return s.kv.Get(bucketScalars, key)
}

func (s *Store) enforceMode() (EnforceMode, error) {
	var m EnforceMode
	_, err := s.getScalar("enforce_mode", &m)
	return m, err
}

func (s *Store) tierTable() ([]complexity.TierBand, error) {
	var t []complexity.TierBand
	_, err := s.getScalar("tier_table", &t)
	return t, err
}

func (s *Store) formulaParams() (complexity.FormulaParams, error) {
	var p complexity.FormulaParams
	_, err := s.getScalar("formula_params", &p)
	return p, err
}

func (s *Store) weightTable() (complexity.WeightTable, error) {
	var w complexity.WeightTable
	_, err := s.getScalar("weight_table", &w)
	return w, err
}

// PathRules enumerates every path rule (allowed:* and blocked:*) keyed
// by their namespace key, in sorted key order.
func (s *Store) PathRules() (allowed, blocked []string, err error) {
	err = s.kv.ForEach(bucketPaths, func(k, _ []byte) error {
		key := string(k)
		switch {
		case strings.HasPrefix(key, "allowed:"):
			allowed = append(allowed, strings.TrimPrefix(key, "allowed:"))
		case strings.HasPrefix(key, "blocked:"):
			blocked = append(blocked, strings.TrimPrefix(key, "blocked:"))
		}
		return nil
	})
	sort.Strings(allowed)
	sort.Strings(blocked)
	return allowed, blocked, err
}

// DangerousPatterns enumerates every configured dangerous-command
// pattern and its severity.
func (s *Store) DangerousPatterns() (map[string]int, error) {
	out := make(map[string]int)
	err := s.kv.ForEach(bucketPatterns, func(k, v []byte) error {
		var sev int
		fmt.Sscanf(string(v), "%d", &sev)
		out[string(k)] = sev
		return nil
	})
	return out, err
}

// AddPathRule persists one allowed/blocked path rule.
func (s *Store) AddPathRule(allow bool, path string) error {
	prefix := "blocked:"
	if allow {
		prefix = "allowed:"
	}
	return s.kv.Put(bucketPaths, prefix+path, []byte("true"))
}

// SetEnforceMode persists a new enforce mode (the only way Soft/Max
// transitions happen, per the state-machine description).
func (s *Store) SetEnforceMode(mode EnforceMode) error {
	return s.putScalar("enforce_mode", mode)
}

// Snapshot assembles a full, read-only Configuration for one gate
// pipeline call.
func (s *Store) Snapshot() (Snapshot, error) {
	mode, err := s.enforceMode()
	if err != nil {
		return Snapshot{}, err
	}
	allowed, blocked, err := s.PathRules()
	if err != nil {
		return Snapshot{}, err
	}
	tiers, err := s.tierTable()
	if err != nil {
		return Snapshot{}, err
	}
	params, err := s.formulaParams()
	if err != nil {
		return Snapshot{}, err
	}
	weights, err := s.weightTable()
	if err != nil {
		return Snapshot{}, err
	}
	dangerous, err := s.DangerousPatterns()
	if err != nil {
		return Snapshot{}, err
	}
	var maxWriteSize int64
	if _, err := s.getScalar("max_write_size", &maxWriteSize); err != nil {
		return Snapshot{}, err
	}
	var requireReadBeforeEdit bool
	if _, err := s.getScalar("require_read_before_edit", &requireReadBeforeEdit); err != nil {
		return Snapshot{}, err
	}
	var gitForce []string
	if _, err := s.getScalar("git_force_patterns", &gitForce); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Version:               CurrentVersion,
		EnforceMode:           mode,
		AllowedPaths:          allowed,
		BlockedPaths:          blocked,
		RequireReadBeforeEdit: requireReadBeforeEdit,
		MaxWriteSize:          maxWriteSize,
		TierTable:             tiers,
		FormulaParams:         params,
		WeightTable:           weights,
		DangerousCommands:     dangerous,
		GitForcePatterns:      gitForce,
	}, nil
}

// Export serializes the full snapshot to JSON, for the config-export CLI
// subcommand.
func (s *Store) Export() ([]byte, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

// Import loads a JSON snapshot previously produced by Export. Scalars are
// overwritten; the snapshot's path rules and dangerous patterns are added
// to the stored ones, and stored entries absent from the snapshot are
// kept. Version and the compiled tier-approval policy are reasserted
// afterward regardless of what the import carries.
func (s *Store) Import(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("config: import: %w", err)
	}

	if err := s.SetEnforceMode(snap.EnforceMode); err != nil {
		return err
	}
	if err := s.putScalar("require_read_before_edit", snap.RequireReadBeforeEdit); err != nil {
		return err
	}
	if err := s.putScalar("max_write_size", snap.MaxWriteSize); err != nil {
		return err
	}
	if err := s.putScalar("tier_table", snap.TierTable); err != nil {
		return err
	}
	if err := s.putScalar("formula_params", snap.FormulaParams); err != nil {
		return err
	}
	if err := s.putScalar("weight_table", snap.WeightTable); err != nil {
		return err
	}
	if err := s.putScalar("git_force_patterns", snap.GitForcePatterns); err != nil {
		return err
	}

	for _, p := range snap.AllowedPaths {
		if err := s.AddPathRule(true, p); err != nil {
			return err
		}
	}
	for _, p := range snap.BlockedPaths {
		if err := s.AddPathRule(false, p); err != nil {
			return err
		}
	}
	for pattern, sev := range snap.DangerousCommands {
		if err := s.kv.Put(bucketPatterns, pattern, []byte(fmt.Sprintf("%d", sev))); err != nil {
			return err
		}
	}

	return s.reassertCompiledPolicy()
}
