// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package iptc is the iptables backend: chain decision, negation lowering
// via temp chains, multiport, logging sub-chains, NAT classification, and
// the three output printers (spec §4.3, §4.4).
package iptc

import (
	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

// standardChains are pre-registered and never -N-created (spec §4.3 "Chain management").
var standardChains = map[string]bool{
	"INPUT": true, "OUTPUT": true, "FORWARD": true,
	"PREROUTING": true, "POSTROUTING": true,
	"RETURN": true, "LOG": true, "ACCEPT": true, "DROP": true, "REJECT": true,
	"MARK": true, "CONNMARK": true, "QUEUE": true, "CLASSIFY": true, "ROUTE": true,
}

// IsStandardChain reports whether name is one of the engine's built-in
// chains/targets that must never be -N-created.
func IsStandardChain(name string) bool { return standardChains[name] }

// matchesFirewall implements spec §4.3's "matches firewall" predicate:
// identity equals the firewall, or the object is one of its interfaces, or
// an address bound to one of its interfaces.
func matchesFirewall(ctx *compile.Context, id uuid.UUID) bool {
	if id == ctx.Firewall.ID {
		return true
	}
	for _, iface := range ctx.Firewall.Interfaces {
		if iface.ID == id {
			return true
		}
		for _, aid := range iface.Addresses {
			if aid == id {
				return true
			}
		}
	}
	return ctx.Library.MatchesFirewall(ctx.Firewall, id)
}

func slotMatchesFirewall(ctx *compile.Context, elems []uuid.UUID) bool {
	if len(elems) != 1 {
		return false
	}
	return matchesFirewall(ctx, elems[0])
}

// slotContainsFirewallNetwork reports whether any element of elems is a
// network address one of the firewall's interfaces is attached to.
func slotContainsFirewallNetwork(ctx *compile.Context, elems []uuid.UUID) bool {
	for _, id := range elems {
		addr, ok := ctx.Library.Addresses[id]
		if !ok || addr.Kind != fwmodel.AddressNetworkV4 && addr.Kind != fwmodel.AddressNetworkV6 {
			continue
		}
		for _, iface := range ctx.Firewall.Interfaces {
			for _, aid := range iface.Addresses {
				a, ok := ctx.Library.Addresses[aid]
				if ok && fwmodel.AddressContains(addr, a) {
					return true
				}
			}
		}
	}
	return false
}

// allFirewallAddresses returns the IDs of every address bound to every
// interface of the firewall, used when src and dst both resolve to the
// firewall itself (spec §4.3 chain-decision table).
func allFirewallAddresses(ctx *compile.Context) []uuid.UUID {
	var out []uuid.UUID
	for _, iface := range ctx.Firewall.Interfaces {
		out = append(out, iface.Addresses...)
	}
	return out
}

func isLoopbackInterface(ctx *compile.Context, r *compile.Rule) bool {
	if len(r.Itf) != 1 {
		return false
	}
	iface, ok := ctx.Library.Interfaces[r.Itf[0]]
	return ok && iface.IsLoopback()
}

// DecideChain assigns IPTChain and fans a rule out when the chain-decision
// table requires both an edge chain and FORWARD copy (spec §4.3).
func DecideChain(src procfw.Source, ctx *compile.Context) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		if !ctx.RuleSet.Top {
			r.IPTChain = "BRANCH_" + ctx.RuleSet.Name
			return []*compile.Rule{r}
		}

		dstIsFW := slotMatchesFirewall(ctx, r.Dst)
		srcIsFW := slotMatchesFirewall(ctx, r.Src)

		if srcIsFW && dstIsFW {
			all := allFirewallAddresses(ctx)
			r.Src = all
			r.Dst = all
		}

		if dstIsFW && (r.Direction == fwmodel.DirectionInbound || r.Direction == fwmodel.DirectionBoth) {
			r.IPTChain = "INPUT"
			return []*compile.Rule{r}
		}
		if srcIsFW && (r.Direction == fwmodel.DirectionOutbound || r.Direction == fwmodel.DirectionBoth) {
			r.IPTChain = "OUTPUT"
			return []*compile.Rule{r}
		}

		partOfAny := ctx.Firewall.Options.FirewallIsPartOfAnyAndNetworks

		if r.IsAnySlot("dst") && partOfAny {
			in := r.Clone()
			in.IPTChain = "INPUT"
			r.IPTChain = "FORWARD"
			return []*compile.Rule{in, r}
		}
		if r.IsAnySlot("src") && partOfAny {
			out := r.Clone()
			out.IPTChain = "OUTPUT"
			r.IPTChain = "FORWARD"
			return []*compile.Rule{out, r}
		}

		if slotContainsFirewallNetwork(ctx, r.Src) || slotContainsFirewallNetwork(ctx, r.Dst) {
			edge := r.Clone()
			if slotContainsFirewallNetwork(ctx, r.Dst) {
				edge.IPTChain = "INPUT"
			} else {
				edge.IPTChain = "OUTPUT"
			}
			r.IPTChain = "FORWARD"
			return []*compile.Rule{edge, r}
		}

		if r.IsAnySlot("src") && r.IsAnySlot("dst") && isLoopbackInterface(ctx, r) {
			in := r.Clone()
			in.IPTChain = "INPUT"
			out := r.Clone()
			out.IPTChain = "OUTPUT"
			return []*compile.Rule{in, out}
		}

		r.IPTChain = "FORWARD"
		return []*compile.Rule{r}
	})
}
