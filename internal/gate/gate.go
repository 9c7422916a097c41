/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package gate sequences the five-stage Gate Pipeline — rate limit,
// complexity score, validate, inspect, mode-escalation — into one
// process() entry point and produces the final Decision for a single
// tool call. It is the only package that mutates the Session Ledger.
package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/config"
	"github.com/spf-gate/spfgate/internal/inspector"
	"github.com/spf-gate/spfgate/internal/metrics"
	"github.com/spf-gate/spfgate/internal/session"
	"github.com/spf-gate/spfgate/internal/shared/ratelimit"
	"github.com/spf-gate/spfgate/internal/telemetry"
	"github.com/spf-gate/spfgate/internal/validator"
)

// Call is the normalized input to Process. Category/EditWrite/Bash/
// Generic feed the complexity estimator; Path/Command feed the
// validator; Content, when non-empty, is run through the inspector.
type Call struct {
	Tool     string
	Category complexity.Category
	Path     string
	Command  string
	Content  string

	EditWrite *complexity.EditWriteInput
	Bash      *complexity.BashInput
	Generic   *complexity.GenericInput
}

// Decision is the Gate Pipeline's verdict for one call.
type Decision struct {
	Tool             string
	Allowed          bool
	C                uint64
	Tier             complexity.Tier
	RequiresApproval bool
	AnalyzePercent   int
	BuildPercent     int
	AOptimalTokens   uint64
	Message          string
	Reasons          []string
	Warnings         []string
}

// Pipeline wires the three stateless stage evaluators together. The
// rate-limit and Build Anchor stages read and mutate the Session
// Ledger passed into Process.
type Pipeline struct {
	limiter   *ratelimit.Limiter
	estimator *complexity.Estimator
	validator *validator.Validator
}

// New builds a Pipeline from its three stage evaluators.
func New(limiter *ratelimit.Limiter, estimator *complexity.Estimator, val *validator.Validator) *Pipeline {
	return &Pipeline{limiter: limiter, estimator: estimator, validator: val}
}

// Process runs call through all five stages against snap and ledger,
// persists the resulting session mutation, and returns the Decision.
// now is passed in rather than read from time.Now so callers (and
// tests) control the rate-window clock explicitly.
func (p *Pipeline) Process(ctx context.Context, call Call, snap config.Snapshot, ledger *session.Ledger, now time.Time) (Decision, error) {
	ctx, span := telemetry.StartPipelineSpan(ctx, call.Tool)
	defer span.End()

	sess := ledger.Current()

	// Stage 1: rate limit.
	category := ratelimit.ClassifyTool(strings.ToLower(call.Tool))
	window := ratelimit.Prune(sess.RateWindow, now)
	rateDecision := p.limiter.Check(category, window)
	if !rateDecision.Allowed {
		decision := Decision{
			Tool:    call.Tool,
			Allowed: false,
			Tier:    complexity.TierRateLimited,
			Message: fmt.Sprintf("BLOCKED | %s | C=0 | %s", call.Tool, rateDecision.Reason),
			Reasons: []string{rateDecision.Reason},
		}
		sess.RateWindow = window
		sess.RecordAction(call.Tool, "rate_limited", now)
		sess.AppendFailure(session.FailureEntry{Tool: call.Tool, Message: rateDecision.Reason, At: now})
		if err := ledger.Save(); err != nil {
			return decision, err
		}
		metrics.RecordRateLimited(string(category))
		metrics.RecordDecision(call.Tool, false)
		telemetry.EndPipelineSpan(span, string(decision.Tier), decision.C, false)
		return decision, nil
	}
	sess.RateWindow = append(window, now)

	// Stage 2: complexity score.
	scoreResult := p.estimator.Score(complexity.Call{
		Tool:      call.Tool,
		Category:  call.Category,
		EditWrite: call.EditWrite,
		Bash:      call.Bash,
		Generic:   call.Generic,
	})

	// Stage 3: validate.
	valResult := p.validator.Validate(validator.Request{
		Tool:    call.Tool,
		Path:    call.Path,
		Command: call.Command,
	}, snap, sess)

	// Stage 4: inspect (only when there is content to scan).
	var inspResult inspector.Result
	inspResult.Valid = true
	if call.Content != "" {
		inspResult = inspector.Inspect(call.Path, call.Content, snap.BlockedPaths, snap.EnforceMode == config.ModeMax)
	}

	allowed := valResult.Valid && inspResult.Valid

	// Stage 5: mode-escalation. A MAX TIER-tagged warning from either
	// the validator (e.g. a Build Anchor violation) or the inspector
	// escalates the decision to CRITICAL under Max enforce mode,
	// independent of the computed score.
	tier := scoreResult.Tier
	escalated := false
	if strings.HasPrefix(valResult.Reason, "MAX TIER:") {
		tier = complexity.TierCritical
		escalated = true
	}
	for _, w := range valResult.Warnings {
		if strings.HasPrefix(w, "MAX TIER:") {
			tier = complexity.TierCritical
			escalated = true
			break
		}
	}
	for _, w := range inspResult.Warnings {
		if strings.HasPrefix(w.Text, "MAX TIER:") {
			tier = complexity.TierCritical
			escalated = true
			break
		}
	}

	var warnings []string
	for _, w := range valResult.Warnings {
		warnings = append(warnings, w)
	}
	for _, w := range inspResult.Warnings {
		warnings = append(warnings, w.Text)
	}
	if escalated {
		warnings = append(warnings, "ESCALATED TO CRITICAL TIER")
	}

	details := valResult.Reason
	if details == "" && len(warnings) > 0 {
		details = strings.Join(warnings, "; ")
	} else if details != "" && len(warnings) > 0 {
		details = details + "; " + strings.Join(warnings, "; ")
	}
	if details == "" {
		details = "ok"
	}

	status := "BLOCKED"
	if allowed {
		status = "ALLOWED"
	}

	decision := Decision{
		Tool:             call.Tool,
		Allowed:          allowed,
		C:                scoreResult.C,
		Tier:             tier,
		RequiresApproval: scoreResult.RequiresApproval,
		AnalyzePercent:   scoreResult.AnalyzePercent,
		BuildPercent:     scoreResult.BuildPercent,
		AOptimalTokens:   scoreResult.AOptimalTokens,
		Message:          fmt.Sprintf("%s | %s | C=%d | %s", status, call.Tool, scoreResult.C, details),
		Reasons:          scoreResult.Reasons,
		Warnings:         warnings,
	}

	recordSideEffects(sess, call, valResult, allowed)

	sess.RecordAction(call.Tool, status, now)
	sess.AppendComplexityHistory(session.ComplexityHistoryEntry{Tool: call.Tool, C: scoreResult.C, Tier: string(tier), At: now})
	sess.AppendManifest(session.ManifestEntry{Tool: call.Tool, C: scoreResult.C, Status: status, Notes: details, At: now})
	if !allowed {
		sess.AppendFailure(session.FailureEntry{Tool: call.Tool, Message: details, At: now})
	}

	if err := ledger.Save(); err != nil {
		return decision, err
	}

	metrics.RecordCall(call.Tool, string(tier))
	metrics.RecordDecision(call.Tool, allowed)
	metrics.RecordComplexity(float64(scoreResult.C))
	metrics.SetSessionActionCount(float64(sess.ActionCount))
	if escalated {
		metrics.RecordEscalation(call.Tool)
	}
	telemetry.EndPipelineSpan(span, string(tier), scoreResult.C, allowed)

	return decision, nil
}

// recordSideEffects updates the session's files_read/files_written
// bookkeeping for a successfully validated call, so later Build Anchor
// checks on subsequent calls can see it.
func recordSideEffects(sess *session.Session, call Call, valResult validator.Result, allowed bool) {
	if !allowed || valResult.Canonical == "" {
		return
	}
	switch call.Tool {
	case "Read":
		sess.MarkRead(valResult.Canonical, valResult.Tainted)
	case "Write", "Edit", "MultiEdit":
		sess.MarkWritten(valResult.Canonical, valResult.Tainted)
	}
}
