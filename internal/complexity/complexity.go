/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package complexity implements the SPF formula: a deterministic,
// pure-function estimator that maps a tool call onto an integer
// complexity score, a tier, and a token budget split.
package complexity

import (
	"math"
	"regexp"
	"strings"
)

// Category is one of the nine tool categories the weight table covers.
type Category string

const (
	CategoryWrite   Category = "write"
	CategoryEdit    Category = "edit"
	CategoryBash    Category = "bash"
	CategoryRead    Category = "read"
	CategorySearch  Category = "search"
	CategoryBrain   Category = "brain"
	CategoryRAG     Category = "rag"
	CategoryMeta    Category = "meta"
	CategoryUnknown Category = "unknown"
)

// Tier is the discrete complexity band assigned to a call.
type Tier string

const (
	TierSimple      Tier = "SIMPLE"
	TierLight       Tier = "LIGHT"
	TierMedium      Tier = "MEDIUM"
	TierCritical    Tier = "CRITICAL"
	TierRateLimited Tier = "RATE_LIMITED"
)

// Weights is the four-tuple (basic, deps, complex, files) the formula
// reduces every call to before exponentiation.
type Weights struct {
	Basic   uint64
	Deps    uint64
	Complex uint64
	Files   uint64
}

// FormulaParams holds the compiled exponents and multiplier. Invariants
// hold these at basic_power=1, deps_power=7, complex_power=10,
// files_multiplier=10 unless an operator explicitly overrides them.
type FormulaParams struct {
	BasicPower      uint64
	DepsPower       uint64
	ComplexPower    uint64
	FilesMultiplier uint64
	WEff            float64
}

// DefaultFormulaParams returns the compiled-in formula constants.
func DefaultFormulaParams() FormulaParams {
	return FormulaParams{
		BasicPower:      1,
		DepsPower:       7,
		ComplexPower:    10,
		FilesMultiplier: 10,
		WEff:            40000,
	}
}

// WeightTable maps each tool category to its base weights.
type WeightTable map[Category]Weights

// DefaultWeightTable returns the compiled-in per-category base weights.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		CategoryWrite:   {Basic: 10, Deps: 2, Complex: 0, Files: 1},
		CategoryEdit:    {Basic: 8, Deps: 2, Complex: 0, Files: 1},
		CategoryBash:    {Basic: 5, Deps: 1, Complex: 0, Files: 1},
		CategoryRead:    {Basic: 2, Deps: 0, Complex: 0, Files: 1},
		CategorySearch:  {Basic: 3, Deps: 0, Complex: 0, Files: 1},
		CategoryBrain:   {Basic: 4, Deps: 0, Complex: 0, Files: 1},
		CategoryRAG:     {Basic: 6, Deps: 1, Complex: 0, Files: 1},
		CategoryMeta:    {Basic: 1, Deps: 0, Complex: 0, Files: 1},
		CategoryUnknown: {Basic: 20, Deps: 3, Complex: 1, Files: 1},
	}
}

// bashSubcategory base weights, added on top of the bash category weight
// before the pipe/chain adjustments described in the estimator spec.
type bashSubcategory string

const (
	bashDangerous bashSubcategory = "dangerous"
	bashGit       bashSubcategory = "git"
	bashPiped     bashSubcategory = "piped"
	bashSimple    bashSubcategory = "simple"
)

var bashSubcategoryBasic = map[bashSubcategory]uint64{
	bashDangerous: 40,
	bashGit:       25,
	bashPiped:     15,
	bashSimple:    5,
}

var riskPattern = regexp.MustCompile(`(?i)delete|drop|remove|truncate|override|force|unsafe|\brm\b|sudo`)

var architecturalPattern = regexp.MustCompile(`(?i)config|main\.|lib\.|mod\.|cargo\.toml|package\.json|\.env|settings|schema|.*rc$|\.ya?ml$`)

// Tier is computed from one of four C ceilings, strictly ordered.
type TierBand struct {
	Tier           Tier
	Ceiling        uint64 // exclusive upper bound; CRITICAL has no ceiling
	AnalyzePercent int
	BuildPercent   int
}

// DefaultTierTable returns the compiled-in tier ceilings and token split.
func DefaultTierTable() []TierBand {
	return []TierBand{
		{Tier: TierSimple, Ceiling: 500, AnalyzePercent: 40, BuildPercent: 60},
		{Tier: TierLight, Ceiling: 2000, AnalyzePercent: 60, BuildPercent: 40},
		{Tier: TierMedium, Ceiling: 10000, AnalyzePercent: 75, BuildPercent: 25},
		{Tier: TierCritical, Ceiling: 0, AnalyzePercent: 95, BuildPercent: 5},
	}
}

// EditWriteInput is the subset of call parameters the formula reads for
// Edit/Write category calls.
type EditWriteInput struct {
	ContentLength int
	ReplaceAll    bool
	LargeDiff     bool
	HasImports    bool
	Path          string
	Content       string
}

// BashInput is the subset of call parameters read for Bash category calls.
type BashInput struct {
	Command          string
	DangerousMatched bool
	GitForceMatched  bool
	PipeCount        int
	ChainCount       int
}

// GenericInput covers Read/Search/Brain/RAG/meta/unknown calls, where the
// formula only needs an optional glob-scope hint for the files factor.
type GenericInput struct {
	Path    string
	Pattern string
	Command string
}

// Call is the normalized input to Score: exactly one of the typed input
// fields is populated, selected by Category.
type Call struct {
	Tool      string
	Category  Category
	EditWrite *EditWriteInput
	Bash      *BashInput
	Generic   *GenericInput
}

// Result is the ComplexityResult the estimator returns for every call.
type Result struct {
	Tool             string
	C                uint64
	Tier             Tier
	AnalyzePercent   int
	BuildPercent     int
	AOptimalTokens   uint64
	RequiresApproval bool
	Reasons          []string
}

// Estimator computes SPF complexity scores. It never fails: malformed or
// unrecognized input degrades to the unknown-tool weights rather than
// returning an error.
type Estimator struct {
	weights WeightTable
	params  FormulaParams
	tiers   []TierBand
}

// New builds an Estimator from a compiled or persisted weight table, tier
// table and formula parameters.
func New(weights WeightTable, tiers []TierBand, params FormulaParams) *Estimator {
	return &Estimator{weights: weights, params: params, tiers: tiers}
}

// Score evaluates the SPF formula for one call.
func (e *Estimator) Score(call Call) Result {
	w, ok := e.weights[call.Category]
	if !ok {
		w = e.weights[CategoryUnknown]
	}

	var reasons []string
	basic, deps, complex, files := w.Basic, w.Deps, w.Complex, w.Files

	switch call.Category {
	case CategoryEdit, CategoryWrite:
		if call.EditWrite != nil {
			in := call.EditWrite
			div := uint64(50)
			if call.Category == CategoryEdit {
				div = 20
			}
			basic = satAdd(basic, uint64(in.ContentLength)/div)

			if in.ReplaceAll {
				deps = satAdd(deps, 2)
				reasons = append(reasons, "replace_all")
			}
			if in.LargeDiff {
				deps = satAdd(deps, 1)
				reasons = append(reasons, "large_diff")
			}
			if in.HasImports {
				deps = satAdd(deps, 2)
				reasons = append(reasons, "has_imports")
			}

			risk := hasRisk(in.Content)
			arch := isArchitectural(in.Path)
			complex = complexFactor(in.ContentLength, risk, arch)
			if risk {
				reasons = append(reasons, "risk_keyword")
			}
			if arch {
				reasons = append(reasons, "architectural_path")
			}

			if in.ReplaceAll {
				files = 5
			} else {
				files = 1
			}
		}

	case CategoryBash:
		if call.Bash != nil {
			in := call.Bash
			sub := classifyBash(*in)
			basic = satAdd(basic, bashSubcategoryBasic[sub])
			reasons = append(reasons, "bash:"+string(sub))

			deps = satAdd(deps, uint64(in.PipeCount))
			deps = satAdd(deps, uint64(in.ChainCount))
			if in.PipeCount > 0 {
				complex = satAdd(complex, 1)
				reasons = append(reasons, "piped")
			}
			files = filesFactor(in.Command, "", in.Command)
		}

	default:
		if call.Generic != nil {
			files = filesFactor(call.Generic.Path, call.Generic.Pattern, call.Generic.Command)
		}
	}

	c := e.computeC(basic, deps, complex, files)
	tier, analyzePct, buildPct := e.tierFor(c)
	aOptimal := aOptimalTokens(c, e.params.WEff)

	return Result{
		Tool:             call.Tool,
		C:                c,
		Tier:             tier,
		AnalyzePercent:   analyzePct,
		BuildPercent:     buildPct,
		AOptimalTokens:   aOptimal,
		RequiresApproval: true,
		Reasons:          reasons,
	}
}

func (e *Estimator) computeC(basic, deps, complex, files uint64) uint64 {
	basicTerm := satPow(basic, e.params.BasicPower)
	depsTerm := satPow(deps, e.params.DepsPower)
	complexTerm := satPow(complex, e.params.ComplexPower)
	filesTerm := satMul(files, e.params.FilesMultiplier)

	c := satAdd(basicTerm, depsTerm)
	c = satAdd(c, complexTerm)
	c = satAdd(c, filesTerm)
	return c
}

func (e *Estimator) tierFor(c uint64) (Tier, int, int) {
	for _, band := range e.tiers {
		if band.Tier == TierCritical {
			continue
		}
		if c < band.Ceiling {
			return band.Tier, band.AnalyzePercent, band.BuildPercent
		}
	}
	for _, band := range e.tiers {
		if band.Tier == TierCritical {
			return band.Tier, band.AnalyzePercent, band.BuildPercent
		}
	}
	return TierCritical, 95, 5
}

// aOptimalTokens computes floor(W_eff * (1 - 1/ln(C+e))), clamped to 0.
func aOptimalTokens(c uint64, wEff float64) uint64 {
	x := float64(c) + math.E
	v := wEff * (1 - 1/math.Log(x))
	if v < 0 {
		return 0
	}
	return uint64(math.Floor(v))
}

func complexFactor(length int, risk, architectural bool) uint64 {
	var f uint64
	if length > 200 {
		f++
	}
	if length > 1000 {
		f++
	}
	if length > 5000 {
		f++
	}
	if risk {
		f++
	}
	if architectural && f < 3 {
		f = 3
	}
	if f > 4 {
		f = 4
	}
	return f
}

func filesFactor(path, pattern, cmd string) uint64 {
	joined := path + " " + pattern + " " + cmd
	lower := strings.ToLower(joined)
	switch {
	case strings.Contains(lower, "find") && strings.Contains(lower, "xargs"):
		return 100
	case strings.Contains(cmd, "-r"):
		return 100
	case strings.Contains(pattern, "**"):
		return 50
	case strings.Contains(pattern, "*"):
		return 20
	case isRootScopeDir(path):
		return 20
	default:
		return 1
	}
}

func isRootScopeDir(path string) bool {
	base := strings.ToLower(strings.TrimSuffix(path, "/"))
	switch base {
	case "", ".", "/", "root", "src", "lib":
		return true
	}
	return strings.HasSuffix(base, "/root") || strings.HasSuffix(base, "/src") || strings.HasSuffix(base, "/lib")
}

func isArchitectural(path string) bool {
	return architecturalPattern.MatchString(path)
}

func hasRisk(content string) bool {
	return riskPattern.MatchString(content)
}

func classifyBash(in BashInput) bashSubcategory {
	if in.DangerousMatched {
		return bashDangerous
	}
	if in.GitForceMatched {
		return bashGit
	}
	if in.PipeCount > 0 || in.ChainCount > 0 {
		return bashPiped
	}
	return bashSimple
}

// satAdd adds two uint64s, saturating at the 64-bit ceiling on overflow.
func satAdd(a, b uint64) uint64 {
	s := a + b
	if s < a {
		return math.MaxUint64
	}
	return s
}

// satMul multiplies two uint64s, saturating at the 64-bit ceiling on overflow.
func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	s := a * b
	if s/a != b {
		return math.MaxUint64
	}
	return s
}

// satPow raises base to exp, saturating at the 64-bit ceiling.
func satPow(base, exp uint64) uint64 {
	result := uint64(1)
	for i := uint64(0); i < exp; i++ {
		result = satMul(result, base)
		if result == math.MaxUint64 {
			return result
		}
	}
	return result
}
