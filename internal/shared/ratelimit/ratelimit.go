/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package ratelimit implements the gate pipeline's rate-limit stage: a
// 60-second sliding window over a session's recent call timestamps,
// partitioned by tool category.
package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Category groups tool names into one of the three rate bands.
type Category string

const (
	CategoryMutating Category = "mutating" // Write/Edit/Bash/Download/Notebook
	CategoryExternal Category = "external" // web-fetch/search/api
	CategoryDefault  Category = "default"  // everything else
)

// Window is the 60-second lookback applied to every check.
const Window = 60 * time.Second

// DefaultLimits returns the compiled-in per-category ceilings (calls per
// 60-second window).
func DefaultLimits() map[Category]int {
	return map[Category]int{
		CategoryMutating: 60,
		CategoryExternal: 30,
		CategoryDefault:  120,
	}
}

// mutatingSubstrings match against a lowercased tool name: Write, Edit,
// MultiEdit, Bash, Download, NotebookRead, and NotebookEdit all contain
// one of these.
var mutatingSubstrings = []string{"write", "edit", "bash", "download", "notebook"}

// externalSubstrings match the lowercased names of the gateway's
// web-fetch/search/query-api passthrough tools: WebFetch, WebSearch,
// FetchJSON, QueryAPI.
var externalSubstrings = []string{"fetch", "search", "api"}

// ClassifyTool maps a tool name onto its rate category by substring
// match against the lowercased registered tool name (the caller is
// expected to have already lowercased it), since the gateway's actual
// tool names (e.g. "notebookedit", "webfetch", "queryapi") don't equal
// the spec's prose category labels verbatim. Anything matching neither
// set falls into CategoryDefault.
func ClassifyTool(tool string) Category {
	for _, s := range mutatingSubstrings {
		if strings.Contains(tool, s) {
			return CategoryMutating
		}
	}
	for _, s := range externalSubstrings {
		if strings.Contains(tool, s) {
			return CategoryExternal
		}
	}
	return CategoryDefault
}

// Decision is the rate-limit stage's verdict.
type Decision struct {
	Allowed bool
	Reason  string
	Count   int
	Limit   int
}

// Limiter evaluates the rate-limit stage against a caller-owned window of
// timestamps (the session's rate_window). It holds no state of its own:
// the session ledger owns the window's lifetime and persistence.
type Limiter struct {
	limits map[Category]int
}

// New builds a Limiter from a compiled or persisted per-category limit
// table.
func New(limits map[Category]int) *Limiter {
	return &Limiter{limits: limits}
}

// Prune returns window with every timestamp older than 60s before now
// evicted. Callers persist the pruned window back onto the session on
// every touch, per the ledger's eviction invariant.
func Prune(window []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(window) && window[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return window
	}
	return window[i:]
}

// Check evaluates whether a call in the given category is permitted,
// given the already-pruned window of recent call timestamps. It does not
// mutate window or append the current call; the gate pipeline pushes the
// timestamp itself once the full decision is known.
func (l *Limiter) Check(category Category, window []time.Time) Decision {
	limit, ok := l.limits[category]
	if !ok {
		limit = l.limits[CategoryDefault]
	}

	count := len(window)
	if count >= limit {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("rate limit reached for %s category (%d/%d in last 60s)", category, count, limit),
			Count:   count,
			Limit:   limit,
		}
	}

	return Decision{Allowed: true, Count: count, Limit: limit}
}
