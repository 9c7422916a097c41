/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/gate"
)

// callPayload is the JSON shape `gate`/`calculate` accept on the
// command line: one call's parameters (the tool name is passed as its
// own argument).
type callPayload struct {
	Category string `json:"category"`
	Path     string `json:"path,omitempty"`
	Command  string `json:"command,omitempty"`
	Content  string `json:"content,omitempty"`

	ReplaceAll bool `json:"replace_all,omitempty"`
	LargeDiff  bool `json:"large_diff,omitempty"`
	HasImports bool `json:"has_imports,omitempty"`

	DangerousMatched bool `json:"dangerous_matched,omitempty"`
	GitForceMatched  bool `json:"git_force_matched,omitempty"`
	PipeCount        int  `json:"pipe_count,omitempty"`
	ChainCount       int  `json:"chain_count,omitempty"`

	Pattern string `json:"pattern,omitempty"`
}

func parseCallPayload(tool, raw string) (gate.Call, error) {
	var p callPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return gate.Call{}, fmt.Errorf("parse call json: %w", err)
	}

	category := complexity.Category(p.Category)
	if category == "" {
		category = complexity.CategoryUnknown
	}

	call := gate.Call{
		Tool:     tool,
		Category: category,
		Path:     p.Path,
		Command:  p.Command,
		Content:  p.Content,
	}

	switch category {
	case complexity.CategoryWrite, complexity.CategoryEdit:
		call.EditWrite = &complexity.EditWriteInput{
			ContentLength: len(p.Content),
			ReplaceAll:    p.ReplaceAll,
			LargeDiff:     p.LargeDiff,
			HasImports:    p.HasImports,
			Path:          p.Path,
			Content:       p.Content,
		}
	case complexity.CategoryBash:
		call.Bash = &complexity.BashInput{
			Command:          p.Command,
			DangerousMatched: p.DangerousMatched,
			GitForceMatched:  p.GitForceMatched,
			PipeCount:        p.PipeCount,
			ChainCount:       p.ChainCount,
		}
	default:
		call.Generic = &complexity.GenericInput{Path: p.Path, Pattern: p.Pattern, Command: p.Command}
	}

	return call, nil
}

// runGate runs one call through the full Gate Pipeline, including its
// session-ledger side effects, and prints the resulting decision.
func runGate(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: spfgate gate <tool> <json>")
	}
	tool, raw := args[0], args[1]

	call, err := parseCallPayload(tool, raw)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.configStore.Snapshot()
	if err != nil {
		return err
	}

	decision, err := a.pipeline.Process(context.Background(), call, snap, a.ledger, time.Now())
	if err != nil {
		return err
	}

	status := "CALL"
	if !decision.Allowed {
		status = "FAIL"
	}
	_ = a.cmdLog.Record(time.Now(), status, tool, decision.Message)

	return printJSON(decision)
}

// runCalculate scores a call's complexity without running it through
// the validator/inspector or mutating the session ledger.
func runCalculate(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: spfgate calculate <tool> <json>")
	}
	tool, raw := args[0], args[1]

	call, err := parseCallPayload(tool, raw)
	if err != nil {
		return err
	}

	estimator := complexity.New(complexity.DefaultWeightTable(), complexity.DefaultTierTable(), complexity.DefaultFormulaParams())
	result := estimator.Score(complexity.Call{
		Tool:      call.Tool,
		Category:  call.Category,
		EditWrite: call.EditWrite,
		Bash:      call.Bash,
		Generic:   call.Generic,
	})

	return printJSON(result)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
