// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"strconv"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

// ApplyLogging implements spec §4.3 "Logging": Continue+log rules become a
// bare LOG target; rules with a real verdict get a log sub-chain holding a
// LOG rule followed by the action rule, with a jump to that sub-chain
// replacing the rule in its original position.
func ApplyLogging(src procfw.Source, ctx *compile.Context) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		if r.Source == nil || !r.Source.Options.Log {
			return []*compile.Rule{r}
		}

		if r.Action == fwmodel.ActionContinue {
			r.IPTTarget = "LOG"
			return []*compile.Rule{r}
		}

		subChain := ctx.TempChainName(r.Source, ctx.NextTempChainSuffix(r.Source.ID)) + ".log"

		jump := r.Clone()
		jump.IPTTarget = subChain

		logRule := r.Clone()
		logRule.IPTChain = subChain
		logRule.IPTTarget = "LOG"
		for _, s := range negatableSlots {
			logRule.SetSlot(s, nil)
		}

		action := r.Clone()
		action.IPTChain = subChain
		for _, s := range negatableSlots {
			action.SetSlot(s, nil)
		}

		return []*compile.Rule{jump, logRule, action}
	})
}

// expandLogPrefix implements the %N %A %I %C %R macro expansion the
// original's log-prefix builder performs: %N=rule number, %A=original
// action, %I=interface, %C=chain, %R=rule set name. %I expands to the
// interface name only when the rule names exactly one interface, and to
// nothing otherwise.
func expandLogPrefix(template string, r *compile.Rule, lib *fwmodel.Library, ruleSetName string) string {
	out := make([]byte, 0, len(template)+16)
	for i := 0; i < len(template); i++ {
		if template[i] != '%' || i+1 >= len(template) {
			out = append(out, template[i])
			continue
		}
		switch template[i+1] {
		case 'N':
			out = append(out, []byte(strconv.Itoa(r.AbsRuleNumber))...)
			i++
		case 'A':
			out = append(out, []byte(actionName(r.Action))...)
			i++
		case 'I':
			if lib != nil && len(r.Itf) == 1 {
				if iface, ok := lib.Interfaces[r.Itf[0]]; ok {
					out = append(out, []byte(iface.Name)...)
				}
			}
			i++
		case 'C':
			out = append(out, []byte(r.IPTChain)...)
			i++
		case 'R':
			out = append(out, []byte(ruleSetName)...)
			i++
		default:
			out = append(out, template[i])
		}
	}
	return string(out)
}

func actionName(a fwmodel.PolicyAction) string {
	switch a {
	case fwmodel.ActionAccept:
		return "Accept"
	case fwmodel.ActionReject:
		return "Reject"
	case fwmodel.ActionDeny:
		return "Deny"
	case fwmodel.ActionReturn:
		return "Return"
	case fwmodel.ActionContinue:
		return "Continue"
	case fwmodel.ActionAccounting:
		return "Accounting"
	case fwmodel.ActionBranch:
		return "Branch"
	default:
		return "Custom"
	}
}
