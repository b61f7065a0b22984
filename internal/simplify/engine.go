// Package simplify rewrites text with phrase rules and normalizes the result.
//
// DESIGN: A Snapshot is compiled once into a program: an ordered list of
// stages, each an ordered list of rewrites. Stages run in this fixed order,
// every rewrite operating on the output of the previous one (no backtracking,
// no re-scan):
//  1. deletions:    user rules with an empty replacement, replaced by a space
//  2. courtesy:     user courtesy rules, then built-in courtesy removals
//  3. fillers:      user filler rules, then built-in filler removals
//  4. verbose:      user verbose rules, then the built-in verbose map
//  5. redundant:    redundant phrases collapsed to their last word
//  6. contractions: user contraction rules, then built-in contractions
//  7. advanced:     built-in regex replacements
//  8. passive:      passive-to-active heuristic (optional)
//
// Every phrase match is case-insensitive and anchored at word boundaries.
// Programs are cached per snapshot; the engine never mutates a snapshot.
package simplify

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

// Stage names, in application order.
const (
	StageDeletions    = "deletions"
	StageCourtesy     = "courtesy"
	StageFillers      = "fillers"
	StageVerbose      = "verbose"
	StageRedundant    = "redundant"
	StageContractions = "contractions"
	StageAdvanced     = "advanced"
	StagePassive      = "passive"
)

// maxPrograms bounds the compiled program cache.
const maxPrograms = 16

// Options configures an Engine.
type Options struct {
	// PassiveVoice enables the passive-to-active heuristic (stage 8).
	PassiveVoice bool
}

// DefaultOptions returns the options matching the full rewrite pipeline.
func DefaultOptions() Options {
	return Options{PassiveVoice: true}
}

// Engine applies snapshots to text. Safe for concurrent use.
type Engine struct {
	opts Options

	mu       sync.Mutex
	programs map[string]*program
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:     opts,
		programs: make(map[string]*program),
	}
}

// Simplify rewrites text with the rules in snap. A nil snap applies the
// built-in groups only. The result is not normalized; see Normalize.
func (e *Engine) Simplify(text string, snap *phrases.Snapshot) string {
	if text == "" {
		return ""
	}
	if snap == nil {
		snap = phrases.NewSnapshot(nil, nil)
	}
	return e.programFor(snap).run(text)
}

// Signature identifies everything besides the user rules that decides the
// output for snap: the built-in table revision and the engine options.
// Unversioned built-in tables are identified by address, which is only
// stable within one process.
func (e *Engine) Signature(snap *phrases.Snapshot) string {
	b := phrases.DefaultBuiltins()
	if snap != nil {
		b = snap.Builtins()
	}
	version := b.Version
	if version == "" {
		version = fmt.Sprintf("adhoc-%p", b)
	}
	return fmt.Sprintf("builtins=%s,passive=%t", version, e.opts.PassiveVoice)
}

// Stages returns the stage names the engine runs, in order.
func (e *Engine) Stages() []string {
	stages := []string{
		StageDeletions, StageCourtesy, StageFillers, StageVerbose,
		StageRedundant, StageContractions, StageAdvanced,
	}
	if e.opts.PassiveVoice {
		stages = append(stages, StagePassive)
	}
	return stages
}

// programFor returns the compiled program for snap, compiling on first use.
func (e *Engine) programFor(snap *phrases.Snapshot) *program {
	key := fmt.Sprintf("%s/%p", snap.Fingerprint(), snap.Builtins())

	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.programs[key]; ok {
		return p
	}
	if len(e.programs) >= maxPrograms {
		e.programs = make(map[string]*program)
	}
	p := compile(snap, e.opts)
	e.programs[key] = p
	return p
}

// =============================================================================
// PROGRAM
// =============================================================================

type stage struct {
	name     string
	rewrites []rewrite
}

type program struct {
	stages []stage
}

func (p *program) run(text string) string {
	for _, st := range p.stages {
		before := text
		for _, rw := range st.rewrites {
			text = rw.apply(text)
		}
		if text != before {
			log.Debug().Str("stage", st.name).Int("before_len", len(before)).Int("after_len", len(text)).Msg("simplify stage applied")
		}
	}
	return text
}

// compile turns a snapshot into a program. User phrases are quoted, so only
// built-in patterns can fail to compile; those are logged and skipped.
func compile(snap *phrases.Snapshot, opts Options) *program {
	b := snap.Builtins()
	rules := snap.Rules()

	userRewrites := func(cat phrases.Category) []rewrite {
		var out []rewrite
		for _, r := range rules {
			if r.Category == cat && !r.IsDeletion() {
				out = append(out, literalRewrite{re: phrasePattern(r.Original), replacement: r.Simplified})
			}
		}
		return out
	}

	var deletions []rewrite
	for _, r := range rules {
		if r.IsDeletion() {
			deletions = append(deletions, deletionRewrite{re: phrasePattern(r.Original)})
		}
	}

	courtesy := userRewrites(phrases.CategoryCourtesy)
	for _, p := range b.Courtesy {
		courtesy = append(courtesy, literalRewrite{re: phrasePattern(p)})
	}

	fillers := userRewrites(phrases.CategoryFiller)
	for _, p := range b.Fillers {
		fillers = append(fillers, literalRewrite{re: phrasePattern(p)})
	}

	verbose := userRewrites(phrases.CategoryVerbose)
	for _, p := range b.Verbose {
		verbose = append(verbose, caseMatchRewrite{re: phrasePattern(p.From), replacement: p.To})
	}

	var redundant []rewrite
	for _, p := range b.Redundant {
		redundant = append(redundant, lastWordRewrite{re: phrasePattern(p)})
	}

	contractions := userRewrites(phrases.CategoryContraction)
	for _, p := range b.Contractions {
		contractions = append(contractions, caseMatchRewrite{re: phrasePattern(p.From), replacement: p.To})
	}

	prog := &program{stages: []stage{
		{name: StageDeletions, rewrites: deletions},
		{name: StageCourtesy, rewrites: courtesy},
		{name: StageFillers, rewrites: fillers},
		{name: StageVerbose, rewrites: verbose},
		{name: StageRedundant, rewrites: redundant},
		{name: StageContractions, rewrites: contractions},
		{name: StageAdvanced, rewrites: compileRewrites(b.Advanced)},
	}}
	if opts.PassiveVoice {
		prog.stages = append(prog.stages, stage{name: StagePassive, rewrites: compileRewrites(b.Passive)})
	}
	return prog
}

func compileRewrites(defs []phrases.Rewrite) []rewrite {
	out := make([]rewrite, 0, len(defs))
	for _, d := range defs {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			log.Warn().Err(err).Str("rewrite", d.Name).Msg("skipping invalid built-in pattern")
			continue
		}
		out = append(out, patternRewrite{re: re, template: d.Replacement, fn: d.Func})
	}
	return out
}
