/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"time"

	"github.com/spf-gate/spfgate/internal/metrics"
)

// statusReport is the `status` subcommand's JSON shape.
type statusReport struct {
	Root         string    `json:"root"`
	Version      string    `json:"version"`
	EnforceMode  string    `json:"enforce_mode"`
	ActionCount  uint64    `json:"action_count"`
	LastTool     string    `json:"last_tool"`
	LastResult   string    `json:"last_result"`
	StartedAt    time.Time `json:"started_at"`
	LastActionAt time.Time `json:"last_action_at"`
	Metrics      string    `json:"metrics"`
}

// runStatus gathers the current session and the metrics registry's
// values and prints them, without standing up an HTTP listener — the
// gateway has no inbound network surface.
func runStatus(_ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.configStore.Snapshot()
	if err != nil {
		return err
	}
	sess := a.ledger.Current()

	dump, err := metrics.Dump()
	if err != nil {
		return err
	}

	report := statusReport{
		Root:         a.root,
		Version:      snap.Version,
		EnforceMode:  string(snap.EnforceMode),
		ActionCount:  sess.ActionCount,
		LastTool:     sess.LastTool,
		LastResult:   sess.LastResult,
		StartedAt:    sess.StartedAt,
		LastActionAt: sess.LastActionAt,
		Metrics:      dump,
	}

	return printJSON(report)
}
