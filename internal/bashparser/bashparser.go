/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package bashparser implements the Bash Destination Parser: it splits a
// shell command into top-level constructs, extracts every filesystem
// destination a construct could touch, and flags dangerous-command
// substrings, forced git operations, and direct /tmp references.
//
// It never executes anything; it only reasons about the text of the
// command so the Rule Validator can apply path policy to whatever the
// command would touch.
package bashparser

import (
	"regexp"
	"strings"
)

// Destination is one filesystem path a bash construct could write,
// delete, or otherwise mutate.
type Destination struct {
	Path      string
	Construct string
}

// DangerousMatch is one dangerous-command substring found in the
// command text, paired with its configured severity.
type DangerousMatch struct {
	Pattern  string
	Severity int
}

// Result is the full parse of one bash command string.
type Result struct {
	Destinations    []Destination
	Dangerous       []DangerousMatch
	GitForce        bool
	ReferencesTmp   bool
	InlineCodeFlags bool
}

var inlineCodeFlag = regexp.MustCompile(`(^|\s)-(c|e)\s`)

var tmpReference = regexp.MustCompile(`(^|[\s"'])/tmp(/|[\s"']|$)`)

// Parse tokenizes cmd on top-level ';', '&&', '||', and '|', then
// extracts destinations, dangerous-command matches, git-force usage,
// and /tmp references across every construct. dangerousPatterns is the
// operator-configured set; hardcoded is the compiled supplement the
// caller passes in (see config.HardcodedDangerousSupplement), which Parse
// always applies in addition.
func Parse(cmd string, dangerousPatterns map[string]int, hardcoded, gitForcePatterns []string) Result {
	var res Result

	for _, construct := range splitTopLevel(cmd) {
		res.Destinations = append(res.Destinations, extractDestinations(construct)...)
		if inlineCodeFlag.MatchString(construct) {
			res.InlineCodeFlags = true
		}
	}

	lower := strings.ToLower(cmd)
	for pattern, severity := range dangerousPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			res.Dangerous = append(res.Dangerous, DangerousMatch{Pattern: pattern, Severity: severity})
		}
	}
	for _, pattern := range hardcoded {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			res.Dangerous = append(res.Dangerous, DangerousMatch{Pattern: pattern, Severity: 10})
		}
	}

	if strings.Contains(lower, "git") {
		for _, pattern := range gitForcePatterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				res.GitForce = true
				break
			}
		}
	}

	res.ReferencesTmp = tmpReference.MatchString(cmd)

	return res
}

// splitTopLevel splits cmd on ';', '&&', '||', and top-level '|',
// honoring single and double quoting so separators inside a quoted
// string are not treated as construct boundaries.
func splitTopLevel(cmd string) []string {
	var parts []string
	var cur strings.Builder

	var inSingle, inDouble bool
	runes := []rune(cmd)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteRune(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteRune(c)
		case !inSingle && !inDouble && c == ';':
			parts = append(parts, cur.String())
			cur.Reset()
		case !inSingle && !inDouble && c == '&' && i+1 < len(runes) && runes[i+1] == '&':
			parts = append(parts, cur.String())
			cur.Reset()
			i++
		case !inSingle && !inDouble && c == '|' && i+1 < len(runes) && runes[i+1] == '|':
			parts = append(parts, cur.String())
			cur.Reset()
			i++
		case !inSingle && !inDouble && c == '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	parts = append(parts, cur.String())

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractionRule maps a leading command word to how its destination
// argument(s) should be found.
type extractionRule struct {
	commands []string
	extract  func(fields []string) []string
}

var extractionTable = []extractionRule{
	{[]string{"cp", "mv", "install"}, func(f []string) []string {
		args := nonFlagArgs(f[1:])
		if len(args) < 2 {
			return nil
		}
		return []string{args[len(args)-1]}
	}},
	{[]string{"tee"}, func(f []string) []string {
		return nonFlagArgs(f[1:])
	}},
	{[]string{"mkdir", "touch", "rm", "rmdir"}, func(f []string) []string {
		return nonFlagArgs(f[1:])
	}},
	{[]string{"chmod", "chown"}, func(f []string) []string {
		args := nonFlagArgs(f[1:])
		if len(args) < 2 {
			return nil
		}
		return args[1:]
	}},
	{[]string{"sed"}, func(f []string) []string {
		hasInPlace := false
		for _, a := range f[1:] {
			if a == "-i" || strings.HasPrefix(a, "-i") {
				hasInPlace = true
				break
			}
		}
		if !hasInPlace {
			return nil
		}
		args := nonFlagArgs(f[1:])
		if len(args) < 2 {
			return nil
		}
		// args[0] is the sed script (e.g. "s/a/b/"); every remaining
		// non-flag token is a file destination sed will edit in place.
		return args[1:]
	}},
	{[]string{"dd"}, func(f []string) []string {
		for _, a := range f[1:] {
			if strings.HasPrefix(a, "of=") {
				return []string{strings.TrimPrefix(a, "of=")}
			}
		}
		return nil
	}},
}

// extractDestinations extracts filesystem destinations from one
// already-split construct: redirects first, then the command-word
// table.
func extractDestinations(construct string) []Destination {
	var out []Destination

	for _, path := range extractRedirects(construct) {
		out = append(out, Destination{Path: path, Construct: "redirect"})
	}

	fields := strings.Fields(construct)
	if len(fields) == 0 {
		return out
	}
	word := strings.TrimPrefix(fields[0], "sudo")
	word = strings.TrimSpace(word)
	if word == "" && len(fields) > 1 {
		word = fields[1]
		fields = fields[1:]
	}

	for _, rule := range extractionTable {
		for _, cmdName := range rule.commands {
			if word == cmdName {
				for _, path := range rule.extract(fields) {
					out = append(out, Destination{Path: path, Construct: cmdName})
				}
			}
		}
	}

	return out
}

var redirectPattern = regexp.MustCompile(`(?:^|\s)(?:[0-9]*>>?)\s*("[^"]+"|'[^']+'|\S+)`)

func extractRedirects(construct string) []string {
	var out []string
	for _, m := range redirectPattern.FindAllStringSubmatch(construct, -1) {
		path := strings.Trim(m[1], `"'`)
		if path != "" && path != "&1" && path != "&2" {
			out = append(out, path)
		}
	}
	return out
}

// nonFlagArgs drops any argument beginning with '-', which is good
// enough for the common flag shapes these commands take.
func nonFlagArgs(fields []string) []string {
	var out []string
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			continue
		}
		out = append(out, f)
	}
	return out
}
