// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compile

import (
	"fmt"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

// Context carries the mutable state a single compilation pass shares across
// processors: the object arena, the diagnostic sink, chain-creation
// bookkeeping, and per-pass dedup sets. Passing this explicitly (rather than
// through package globals) is what lets fwdriver run several passes
// concurrently without cross-talk (spec §9.1 "compiler-context object").
type Context struct {
	Library  *fwmodel.Library
	Firewall *fwmodel.Device
	RuleSet  *fwmodel.RuleSet
	Platform fwmodel.Platform
	IPv6     bool

	Sink *fwerrors.Sink

	// minusN dedups "-N chain" / "add chain" declarations: once a chain has
	// been declared it must not be declared again within the same pass
	// (mirrors the original's minus_n_commands tracker).
	minusN map[string]bool

	// chainUsage counts how many rules reference each chain. The counts are
	// exposed through ChainUsage; no stage prunes unused chains.
	chainUsage map[string]int

	// emitted dedups identical rendered rule text within one chain (the
	// generic DeduplicateByEmittedText processor).
	emitted map[string]bool

	tempChainSeq map[uuid.UUID]int
}

// NewContext returns a Context ready for one compilation pass.
func NewContext(lib *fwmodel.Library, fw *fwmodel.Device, rs *fwmodel.RuleSet, platform fwmodel.Platform, ipv6 bool) *Context {
	return &Context{
		Library:      lib,
		Firewall:     fw,
		RuleSet:      rs,
		Platform:     platform,
		IPv6:         ipv6,
		Sink:         fwerrors.NewSink(),
		minusN:       map[string]bool{},
		chainUsage:   map[string]int{},
		emitted:      map[string]bool{},
		tempChainSeq: map[uuid.UUID]int{},
	}
}

// DeclareChain records that chain has been declared in this pass, returning
// true if this is the first declaration (caller should emit the creation
// command) or false if it was already declared (caller should skip it).
func (c *Context) DeclareChain(chain string) bool {
	if c.minusN[chain] {
		return false
	}
	c.minusN[chain] = true
	return true
}

// TouchChain increments the usage counter for chain and returns the new count.
func (c *Context) TouchChain(chain string) int {
	c.chainUsage[chain]++
	return c.chainUsage[chain]
}

// ChainUsage reports how many times chain has been referenced so far.
func (c *Context) ChainUsage(chain string) int {
	return c.chainUsage[chain]
}

// SeenEmitted reports whether line has already been emitted into chain in
// this pass, recording it if not (used by DeduplicateByEmittedText, spec §4.2).
func (c *Context) SeenEmitted(chain, line string) bool {
	key := chain + "\x00" + line
	if c.emitted[key] {
		return true
	}
	c.emitted[key] = true
	return false
}

// TempChainName derives a deterministic temp-chain name for the n'th
// negation-lowering chain spawned while compiling rule. The hash is derived
// from the rule's own UUID so that re-running the compiler on the same
// ruleset reproduces byte-identical chain names (spec §8.1 P5; DESIGN.md
// open-question #3).
func (c *Context) TempChainName(rule *fwmodel.Rule, n int) string {
	var h uint32
	if rule != nil {
		b := rule.ID
		h = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return fmt.Sprintf("C%x.%d", h, n)
}

// NextTempChainSuffix returns a monotonically increasing per-rule sequence
// number, used when a single rule needs more than one temp chain (multiple
// negated slots).
func (c *Context) NextTempChainSuffix(ruleID uuid.UUID) int {
	n := c.tempChainSeq[ruleID]
	c.tempChainSeq[ruleID] = n + 1
	return n
}
