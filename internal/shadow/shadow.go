// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package shadow implements the slurping shadow-detection stage: for every
// pair of rules in a rule set, does an earlier rule strictly subsume a
// later one (spec §4.6)?
package shadow

import (
	"fmt"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

// eligible reports whether r can participate in shadow detection at all:
// rules with slot-level negation, non-terminating actions, fallback/hidden
// rules, and routing/tagging/classification-tagged rules are excluded (spec
// §4.6 "Rules excluded").
func eligible(r *compile.Rule) bool {
	if r.Fallback || r.Hidden {
		return false
	}
	for _, neg := range r.Neg {
		if neg {
			return false
		}
	}
	switch r.Action {
	case fwmodel.ActionContinue, fwmodel.ActionBranch, fwmodel.ActionReturn, fwmodel.ActionAccounting:
		return false
	}
	if r.Source != nil {
		opts := r.Source.Options
		if opts.Routing || opts.Tagging || opts.Classification {
			return false
		}
	}
	return true
}

// laterEligible applies the one asymmetric exclusion: a later_rule with
// Continue is never considered shadowed (spec §4.6).
func laterEligible(r *compile.Rule) bool {
	return r.Action != fwmodel.ActionContinue
}

// interfaceCompatible implements spec §4.6 "interface compatibility": any
// above (empty itf slot) can shadow anything below; a specific interface
// above can only shadow the identical interface below.
func interfaceCompatible(earlier, later *compile.Rule) bool {
	if earlier.IsAnySlot("itf") {
		return true
	}
	if len(earlier.Itf) != 1 || len(later.Itf) != 1 {
		return false
	}
	return earlier.Itf[0] == later.Itf[0]
}

// directionCompatible implements spec §4.6 "direction compatibility": Both
// unifies with anything; otherwise the directions must be equal.
func directionCompatible(earlier, later *compile.Rule) bool {
	if earlier.Direction == fwmodel.DirectionBoth || later.Direction == fwmodel.DirectionBoth {
		return true
	}
	return earlier.Direction == later.Direction
}

func slotContainsAddresses(lib *fwmodel.Library, sup, sub *compile.Rule, slot string) bool {
	supElems, _ := sup.Slot(slot)
	subElems, _ := sub.Slot(slot)
	if len(supElems) == 0 {
		return true // "any" superset contains everything
	}
	if len(subElems) == 0 {
		return false
	}
	for _, subID := range subElems {
		subAddr, ok := lib.Addresses[subID]
		if !ok {
			return false
		}
		contained := false
		for _, supID := range supElems {
			supAddr, ok := lib.Addresses[supID]
			if ok && fwmodel.AddressContains(supAddr, subAddr) {
				contained = true
				break
			}
		}
		if !contained {
			return false
		}
	}
	return true
}

func slotContainsServices(lib *fwmodel.Library, sup, sub *compile.Rule) bool {
	if len(sup.Srv) == 0 {
		return true
	}
	if len(sub.Srv) == 0 {
		return false
	}
	for _, subID := range sub.Srv {
		subSrv, ok := lib.Services[subID]
		if !ok {
			return false
		}
		contained := false
		for _, supID := range sup.Srv {
			supSrv, ok := lib.Services[supID]
			if ok && fwmodel.ServiceContains(supSrv, subSrv) {
				contained = true
				break
			}
		}
		if !contained {
			return false
		}
	}
	return true
}

// subsumes reports whether earlier strictly subsumes later, per spec §4.6's
// coordinate-wise subsumption definition.
func subsumes(lib *fwmodel.Library, earlier, later *compile.Rule) bool {
	if earlier.IPTChain != later.IPTChain {
		return false
	}
	if !directionCompatible(earlier, later) {
		return false
	}
	if !interfaceCompatible(earlier, later) {
		return false
	}
	if !slotContainsAddresses(lib, earlier, later, "src") {
		return false
	}
	if !slotContainsAddresses(lib, earlier, later, "dst") {
		return false
	}
	return slotContainsServices(lib, earlier, later)
}

// DetectShadowing slurps src and checks every pair of eligible rules in
// position order for subsumption. For every shadowing pair found, it records
// a fatal diagnostic using the exact message format the printer contract
// requires, and returns the full rule slice unchanged (the Sink's aborted
// flag signals downstream stages to stop producing output, per spec §5
// cancellation model).
func DetectShadowing(src procfw.Source, lib *fwmodel.Library, sink *fwerrors.Sink) procfw.Source {
	rules := procfw.Slurp(src)
	for i, earlier := range rules {
		if !eligible(earlier) {
			continue
		}
		for j := i + 1; j < len(rules); j++ {
			later := rules[j]
			if !eligible(later) || !laterEligible(later) {
				continue
			}
			if subsumes(lib, earlier, later) {
				sink.Add(fwerrors.Fatalf(fwerrors.KindSemantic, "%s", shadowMessage(earlier, later)))
			}
		}
	}
	return procfw.NewSliceSource(rules)
}

// shadowMessage renders the exact diagnostic text spec §4.6 requires.
func shadowMessage(earlier, later *compile.Rule) string {
	earlierLabel := ruleLabel(earlier)
	laterLabel := ruleLabel(later)
	return fmt.Sprintf("Rule '%s' shadows rule '%s' below it", earlierLabel, laterLabel)
}

func ruleLabel(r *compile.Rule) string {
	if r.Source != nil && r.Source.Label != "" {
		return r.Source.Label
	}
	if r.Source != nil {
		return fmt.Sprintf("%d", r.Source.Position)
	}
	return ""
}
