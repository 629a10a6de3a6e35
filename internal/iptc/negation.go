// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

// negatableSlots are the slots negation lowering considers (spec §4.3
// "Negation lowering"): src, dst, srv.
var negatableSlots = []string{"src", "dst", "srv"}

// LowerNegation implements the engine's lack of inline negation for
// multi-object elements (spec §4.3):
//   - a single-object negation on a non-firewall address is left as-is; the
//     printer emits the inline '!' syntax (see printer.go).
//   - a multi-object negation on src/dst/srv is lowered into a temp chain:
//     a jump rule matching everything except the negated slot, a RETURN rule
//     in the temp chain matching only the negated objects, and an action
//     rule in the temp chain with the src, dst and srv slots cleared.
func LowerNegation(src procfw.Source, ctx *compile.Context) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		for _, slot := range negatableSlots {
			if !r.IsNeg(slot) {
				continue
			}
			elems, _ := r.Slot(slot)
			if len(elems) <= 1 {
				continue // single-object negation: printer handles '!' inline
			}
			return lowerMultiObjectNegation(r, ctx, slot)
		}
		return []*compile.Rule{r}
	})
}

func lowerMultiObjectNegation(r *compile.Rule, ctx *compile.Context, slot string) []*compile.Rule {
	n := ctx.NextTempChainSuffix(r.Source.ID)
	tempChain := ctx.TempChainName(r.Source, n)

	jump := r.Clone()
	jump.Neg[slot] = false
	jump.SetSlot(slot, nil) // match everything except the negated slot, per _policy_compiler.py's r_jump.<slot> = []
	jump.IPTTarget = tempChain

	ret := r.Clone()
	negated, _ := r.Slot(slot)
	for _, other := range negatableSlots {
		if other != slot {
			ret.SetSlot(other, nil)
		}
	}
	ret.SetSlot(slot, negated)
	ret.Neg[slot] = false
	ret.IPTChain = tempChain
	ret.IPTTarget = "RETURN" // printer must prefer IPTTarget over ActionTarget(r.Action) here
	ret.ForceStateCheck = false

	action := r.Clone()
	for _, s := range negatableSlots {
		action.SetSlot(s, nil)
	}
	action.IPTChain = tempChain
	action.Neg[slot] = false

	return []*compile.Rule{jump, ret, action}
}
