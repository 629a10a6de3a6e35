// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package compile holds the compile-time working buffer (Rule) and the
// compiler-scoped mutable state (Context) that generic and backend
// processors read and write as a ruleset moves through the pipeline.
package compile

import (
	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

// Rule is the mutable per-rule working buffer every processor reads and
// writes (spec §3.2 "compile rule"). It starts as a 1:1 copy of a
// fwmodel.Rule and accumulates compilation metadata as it is atomized,
// negation-lowered, and chain-assigned. Slot lists hold live element IDs;
// an empty list means "any" unless HasEmptyRE marks that slot as having
// become empty through filtering (spec §3.2, §8.1 P8).
type Rule struct {
	Source *fwmodel.Rule // the originating declarative rule; never mutated

	Kind fwmodel.RuleKind

	// Policy slots
	Src, Dst, Srv, Itf, When []uuid.UUID
	// NAT slots
	OSrc, ODst, OSrv, TSrc, TDst, TSrv, ItfInb, ItfOutb []uuid.UUID
	// Routing slots
	RDst, RGtw, RItf []uuid.UUID

	Neg map[string]bool // per-slot negation, keyed by slot name

	Direction   fwmodel.Direction
	Action      fwmodel.PolicyAction
	NATAction   fwmodel.NATAction
	NATRuleType fwmodel.NATRuleType

	// Compilation metadata.
	IPTChain           string
	IPTTarget          string
	AbsRuleNumber      int
	NFTLog             bool
	ForceStateCheck    bool
	UpstreamRuleChain  string
	Final              bool
	ParentRuleNum      int
	SubruleSuffix      string
	IPTMultiport       bool
	MergedTCPUDP       bool
	HasEmptyRE         map[string]bool

	Disabled bool
	Fallback bool
	Hidden   bool

	CompilerMessage string
}

// FromModel creates the initial compile Rule from a declarative fwmodel.Rule
// (spec §4.1 generic "Begin" processor).
func FromModel(r *fwmodel.Rule) *Rule {
	neg := map[string]bool{}
	for k, v := range r.Negations {
		neg[k] = v
	}
	return &Rule{
		Source:      r,
		Kind:        r.Kind,
		Src:         append([]uuid.UUID(nil), r.Src...),
		Dst:         append([]uuid.UUID(nil), r.Dst...),
		Srv:         append([]uuid.UUID(nil), r.Srv...),
		Itf:         append([]uuid.UUID(nil), r.Itf...),
		When:        append([]uuid.UUID(nil), r.When...),
		OSrc:        append([]uuid.UUID(nil), r.OSrc...),
		ODst:        append([]uuid.UUID(nil), r.ODst...),
		OSrv:        append([]uuid.UUID(nil), r.OSrv...),
		TSrc:        append([]uuid.UUID(nil), r.TSrc...),
		TDst:        append([]uuid.UUID(nil), r.TDst...),
		TSrv:        append([]uuid.UUID(nil), r.TSrv...),
		ItfInb:      append([]uuid.UUID(nil), r.ItfInb...),
		ItfOutb:     append([]uuid.UUID(nil), r.ItfOutb...),
		RDst:        append([]uuid.UUID(nil), r.RDst...),
		RGtw:        append([]uuid.UUID(nil), r.RGtw...),
		RItf:        append([]uuid.UUID(nil), r.RItf...),
		Neg:         neg,
		Direction:   r.Direction,
		Action:      r.Action,
		NATAction:   r.NATAction,
		NATRuleType: r.NATRuleType,
		Disabled:    r.Disabled,
		Fallback:    r.Fallback,
		Hidden:      r.Hidden,
		HasEmptyRE:  map[string]bool{},
	}
}

// Clone returns a deep copy of r, sharing domain-object references (the
// element IDs) but with independent slot lists, negation map, and
// HasEmptyRE set, mirroring the original CompRule.clone() used whenever a
// processor fans one rule out into several (atomization, group expansion
// across address families, negation lowering via temp chains).
func (r *Rule) Clone() *Rule {
	c := *r
	c.Src = append([]uuid.UUID(nil), r.Src...)
	c.Dst = append([]uuid.UUID(nil), r.Dst...)
	c.Srv = append([]uuid.UUID(nil), r.Srv...)
	c.Itf = append([]uuid.UUID(nil), r.Itf...)
	c.When = append([]uuid.UUID(nil), r.When...)
	c.OSrc = append([]uuid.UUID(nil), r.OSrc...)
	c.ODst = append([]uuid.UUID(nil), r.ODst...)
	c.OSrv = append([]uuid.UUID(nil), r.OSrv...)
	c.TSrc = append([]uuid.UUID(nil), r.TSrc...)
	c.TDst = append([]uuid.UUID(nil), r.TDst...)
	c.TSrv = append([]uuid.UUID(nil), r.TSrv...)
	c.ItfInb = append([]uuid.UUID(nil), r.ItfInb...)
	c.ItfOutb = append([]uuid.UUID(nil), r.ItfOutb...)
	c.RDst = append([]uuid.UUID(nil), r.RDst...)
	c.RGtw = append([]uuid.UUID(nil), r.RGtw...)
	c.RItf = append([]uuid.UUID(nil), r.RItf...)

	c.Neg = make(map[string]bool, len(r.Neg))
	for k, v := range r.Neg {
		c.Neg[k] = v
	}
	c.HasEmptyRE = make(map[string]bool, len(r.HasEmptyRE))
	for k, v := range r.HasEmptyRE {
		c.HasEmptyRE[k] = v
	}
	return &c
}

// Slot returns the named slot's element list by reference, so callers can
// mutate it in place. Unknown slot names return nil, false.
func (r *Rule) Slot(name string) ([]uuid.UUID, bool) {
	switch name {
	case "src":
		return r.Src, true
	case "dst":
		return r.Dst, true
	case "srv":
		return r.Srv, true
	case "itf":
		return r.Itf, true
	case "when":
		return r.When, true
	case "osrc":
		return r.OSrc, true
	case "odst":
		return r.ODst, true
	case "osrv":
		return r.OSrv, true
	case "tsrc":
		return r.TSrc, true
	case "tdst":
		return r.TDst, true
	case "tsrv":
		return r.TSrv, true
	case "itf_inb":
		return r.ItfInb, true
	case "itf_outb":
		return r.ItfOutb, true
	case "rdst":
		return r.RDst, true
	case "rgtw":
		return r.RGtw, true
	case "ritf":
		return r.RItf, true
	default:
		return nil, false
	}
}

// SetSlot assigns a new element list to the named slot, marking HasEmptyRE
// when the replacement is empty but the slot previously had elements (the
// "became empty via filtering" distinction, spec §3.2).
func (r *Rule) SetSlot(name string, elems []uuid.UUID) {
	before, ok := r.Slot(name)
	if !ok {
		return
	}
	if len(elems) == 0 && len(before) > 0 {
		r.HasEmptyRE[name] = true
	}
	switch name {
	case "src":
		r.Src = elems
	case "dst":
		r.Dst = elems
	case "srv":
		r.Srv = elems
	case "itf":
		r.Itf = elems
	case "when":
		r.When = elems
	case "osrc":
		r.OSrc = elems
	case "odst":
		r.ODst = elems
	case "osrv":
		r.OSrv = elems
	case "tsrc":
		r.TSrc = elems
	case "tdst":
		r.TDst = elems
	case "tsrv":
		r.TSrv = elems
	case "itf_inb":
		r.ItfInb = elems
	case "itf_outb":
		r.ItfOutb = elems
	case "rdst":
		r.RDst = elems
	case "rgtw":
		r.RGtw = elems
	case "ritf":
		r.RItf = elems
	}
}

// IsAnySlot reports whether the named slot matches everything: empty and
// never filtered down to empty (spec §3.2's "any" vs "dropped" distinction).
func (r *Rule) IsAnySlot(name string) bool {
	elems, ok := r.Slot(name)
	if !ok {
		return false
	}
	return len(elems) == 0 && !r.HasEmptyRE[name]
}

// IsNeg reports the negation flag for the named slot.
func (r *Rule) IsNeg(name string) bool { return r.Neg[name] }
