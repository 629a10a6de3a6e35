// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package procfw implements the pull-based rule-processing framework the
// generic and backend-specific processors are built on: each stage pulls
// rules from its upstream one at a time, transforms or fans them out, and
// exposes the same pull contract to whatever sits downstream.
package procfw

import "go.linuxfabrik.ch/fwcompile/internal/compile"

// RuleProcessor is the single method every pipeline stage implements: given
// the next rule pulled from upstream, produce zero or more output rules.
// Returning zero rules drops the input (e.g. a filter stage); returning more
// than one fans it out (e.g. atomization, group expansion). This replaces
// the original's prev_processor/get_next_rule/process_next subclassing with
// one small interface plus composable combinators (spec §9.1).
type RuleProcessor interface {
	Step(r *compile.Rule) []*compile.Rule
}

// RuleProcessorFunc adapts a plain function to RuleProcessor.
type RuleProcessorFunc func(r *compile.Rule) []*compile.Rule

func (f RuleProcessorFunc) Step(r *compile.Rule) []*compile.Rule { return f(r) }

// Source is a pull-based producer of rules: the head of every pipeline.
type Source interface {
	Next() (*compile.Rule, bool)
}

// SliceSource adapts a fixed slice of rules into a Source.
type SliceSource struct {
	rules []*compile.Rule
	pos   int
}

// NewSliceSource wraps rules as a pull source.
func NewSliceSource(rules []*compile.Rule) *SliceSource {
	return &SliceSource{rules: rules}
}

func (s *SliceSource) Next() (*compile.Rule, bool) {
	if s.pos >= len(s.rules) {
		return nil, false
	}
	r := s.rules[s.pos]
	s.pos++
	return r, true
}

// Stage pairs a Source with a RuleProcessor, buffering the processor's
// fanned-out output so Next() can still yield rules one at a time (mirrors
// the original's tmp_queue: process_next() may produce several rules per
// upstream pull; get_next_rule() drains that queue before pulling again).
type Stage struct {
	upstream Source
	proc     RuleProcessor
	queue    []*compile.Rule
}

// NewStage chains proc after upstream.
func NewStage(upstream Source, proc RuleProcessor) *Stage {
	return &Stage{upstream: upstream, proc: proc}
}

// Next implements Source: drain the queue, or pull-and-process from
// upstream until the queue has something (or upstream is exhausted).
func (s *Stage) Next() (*compile.Rule, bool) {
	for len(s.queue) == 0 {
		in, ok := s.upstream.Next()
		if !ok {
			return nil, false
		}
		s.queue = append(s.queue, s.proc.Step(in)...)
	}
	r := s.queue[0]
	s.queue = s.queue[1:]
	return r, true
}

// Pipeline chains a sequence of RuleProcessors onto a Source in order,
// returning the final Stage — a convenience over repeated NewStage calls.
func Pipeline(src Source, procs ...RuleProcessor) Source {
	cur := src
	for _, p := range procs {
		cur = NewStage(cur, p)
	}
	return cur
}

// Slurp fully drains src, pulling until exhaustion. Used by stages that need
// the complete rule set before they can act (shadow detection), and by tests
// to collect a pipeline's output — the "slurp" access pattern, as opposed to the
// strictly incremental pull used by per-rule transforms (spec §4.1).
func Slurp(src Source) []*compile.Rule {
	var out []*compile.Rule
	for {
		r, ok := src.Next()
		if !ok {
			break
		}
		out = append(out, r)
	}
	return out
}

// Map applies f to every rule pulled from src, passing through 1:1. Use for
// stages that never drop or fan out (interface assignment, direction
// splitting that always yields exactly one output per call is better
// expressed as a RuleProcessorFunc, but simple field mutations read more
// clearly through Map).
func Map(src Source, f func(*compile.Rule) *compile.Rule) Source {
	return NewStage(src, RuleProcessorFunc(func(r *compile.Rule) []*compile.Rule {
		return []*compile.Rule{f(r)}
	}))
}

// Filter keeps only rules for which keep returns true.
func Filter(src Source, keep func(*compile.Rule) bool) Source {
	return NewStage(src, RuleProcessorFunc(func(r *compile.Rule) []*compile.Rule {
		if keep(r) {
			return []*compile.Rule{r}
		}
		return nil
	}))
}

// FanOut applies f, which may return any number of rules (including zero),
// to each input — the general case underlying atomization and group
// expansion.
func FanOut(src Source, f func(*compile.Rule) []*compile.Rule) Source {
	return NewStage(src, RuleProcessorFunc(f))
}
