// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package nftc is the nftables backend. Negation is inline, service sets
// are native, and logging is a single verdict rule — so nftc drops the
// ~30 IPT-only processors that exist purely to work around a table engine
// with no inline negation or set matching (spec §4.5). It imports
// github.com/google/nftables for the hook/chain-type/priority constants
// the driver needs to emit `type filter hook ...` headers; text emission
// stays hand-rolled since this is a wire-format compiler, not a live
// netlink client.
package nftc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/nftables"
	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

// ChainName lowercases the standard chain names for NFT syntax (spec §4.5
// "Chain names are lowercase").
func ChainName(iptChain string) string {
	return strings.ToLower(iptChain)
}

// HookFor maps a lowercase base chain name to its nftables hook constant,
// exercising the nftables library purely for its typed hook/priority
// vocabulary (spec §11 domain-stack wiring) — this compiler never opens a
// netlink connection itself, it only borrows the library's naming.
func HookFor(chain string) *nftables.ChainHookRef {
	switch chain {
	case "input":
		return nftables.ChainHookInput
	case "output":
		return nftables.ChainHookOutput
	case "forward":
		return nftables.ChainHookForward
	case "prerouting":
		return nftables.ChainHookPrerouting
	case "postrouting":
		return nftables.ChainHookPostrouting
	default:
		return nil
	}
}

// PriorityFor returns the conventional nftables priority for a base chain.
func PriorityFor(chain string) *nftables.ChainPriorityRef {
	switch chain {
	case "prerouting":
		return nftables.ChainPriorityNATDest
	case "postrouting":
		return nftables.ChainPriorityNATSource
	default:
		return nftables.ChainPriorityFilter
	}
}

// Line is one rendered rule line within a chain block.
type Line struct {
	Chain string
	Text  string
}

// Printer renders compile.Rule values as nftables statements.
type Printer struct {
	Library *fwmodel.Library
}

// Render produces one rule line: match expressions in src/dst/service
// order followed by an inline verdict, with inline `!=` negation and native
// sets instead of temp chains (spec §4.5).
func (p *Printer) Render(r *compile.Rule) Line {
	var b strings.Builder

	p.renderAddr(&b, r, "src", "ip saddr")
	p.renderAddr(&b, r, "dst", "ip daddr")
	p.renderService(&b, r)

	if r.Source != nil && r.Source.Options.Log {
		b.WriteString(" log")
		if r.Source.Options.LogPrefix != "" {
			b.WriteString(fmt.Sprintf(` prefix "%s"`, r.Source.Options.LogPrefix))
		}
	}

	b.WriteString(" ")
	b.WriteString(p.verdict(r))

	return Line{Chain: ChainName(r.IPTChain), Text: strings.TrimSpace(b.String())}
}

func (p *Printer) renderAddr(b *strings.Builder, r *compile.Rule, slot, expr string) {
	elems, _ := r.Slot(slot)
	if len(elems) == 0 {
		return
	}
	neg := r.IsNeg(slot)
	var lits []string
	for _, id := range elems {
		if addr, ok := p.Library.Addresses[id]; ok {
			lits = append(lits, addrLiteral(addr))
		}
	}
	if len(lits) == 0 {
		return
	}
	b.WriteString(" ")
	b.WriteString(expr)
	if neg {
		b.WriteString(" !=")
	}
	if len(lits) == 1 {
		b.WriteString(" ")
		b.WriteString(lits[0])
		return
	}
	b.WriteString(" { ")
	b.WriteString(strings.Join(lits, ", "))
	b.WriteString(" }")
}

func addrLiteral(a *fwmodel.Address) string {
	switch a.Kind {
	case fwmodel.AddressNetworkV4, fwmodel.AddressNetworkV6:
		return fmt.Sprintf("%s/%d", a.Addr.String(), a.PrefixLen)
	default:
		return a.GetAddress()
	}
}

func (p *Printer) renderService(b *strings.Builder, r *compile.Rule) {
	if len(r.Srv) == 0 {
		return
	}
	if r.MergedTCPUDP {
		b.WriteString(" meta l4proto { tcp, udp }")
		b.WriteString(p.portSetExpr(r, "th dport"))
		return
	}
	first, ok := p.Library.Services[r.Srv[0]]
	if !ok {
		return
	}
	switch first.Kind {
	case fwmodel.ServiceTCP:
		b.WriteString(" meta l4proto tcp")
		b.WriteString(p.portSetExpr(r, "tcp dport"))
	case fwmodel.ServiceUDP:
		b.WriteString(" meta l4proto udp")
		b.WriteString(p.portSetExpr(r, "udp dport"))
	case fwmodel.ServiceICMP, fwmodel.ServiceICMP6:
		if first.ICMPType >= 0 {
			proto := "icmp"
			if first.Kind == fwmodel.ServiceICMP6 {
				proto = "icmpv6"
			}
			b.WriteString(fmt.Sprintf(" %s type %d", proto, first.ICMPType))
		}
	case fwmodel.ServiceIP:
		if first.ProtocolNum > 0 {
			b.WriteString(fmt.Sprintf(" meta l4proto %d", first.ProtocolNum))
		}
	}
}

func (p *Printer) portSetExpr(r *compile.Rule, expr string) string {
	var ports []string
	neg := r.IsNeg("srv")
	for _, id := range r.Srv {
		s, ok := p.Library.Services[id]
		if !ok || s.DstRangeStart == 0 && s.DstRangeEnd == 0 {
			continue
		}
		if s.DstRangeStart == s.DstRangeEnd {
			ports = append(ports, strconv.Itoa(s.DstRangeStart))
		} else {
			ports = append(ports, fmt.Sprintf("%d-%d", s.DstRangeStart, s.DstRangeEnd))
		}
	}
	if len(ports) == 0 {
		return ""
	}
	negTok := ""
	if neg {
		negTok = " !="
	}
	if len(ports) == 1 {
		return fmt.Sprintf(" %s%s %s", expr, negTok, ports[0])
	}
	return fmt.Sprintf(" %s%s { %s }", expr, negTok, strings.Join(ports, ", "))
}

// rejectTypeMap maps iptables reject-type names to nftables reject syntax
// (spec §4.5 "Reject type map"). Unknown types downgrade to bare `reject`.
var rejectTypeMap = map[string]string{
	"icmp-host-unreachable": "reject with icmp host-unreachable",
	"icmp-net-unreachable":  "reject with icmp net-unreachable",
	"icmp-admin-prohibited": "reject with icmp admin-prohibited",
	"tcp-reset":             "reject with tcp reset",
}

func (p *Printer) verdict(r *compile.Rule) string {
	switch r.Action {
	case fwmodel.ActionAccept:
		return "accept"
	case fwmodel.ActionDeny:
		return "drop"
	case fwmodel.ActionReject:
		key := ""
		if r.Source != nil {
			key = r.Source.Options.ActionOnReject
		}
		if v, ok := rejectTypeMap[key]; ok {
			return v
		}
		return "reject"
	case fwmodel.ActionReturn:
		return "return"
	case fwmodel.ActionContinue:
		return ""
	default:
		if r.Source != nil && r.Source.Options.CustomStr != "" {
			return r.Source.Options.CustomStr
		}
		return ""
	}
}

// NATVerdict renders the inline NAT verdict for a classified NAT rule (spec
// §4.5's nftables delta over §4.4's table: snat/dnat/masquerade are
// statements, not jump targets).
func (p *Printer) NATVerdict(r *compile.Rule) string {
	switch r.NATRuleType {
	case fwmodel.NATMasq:
		return "masquerade"
	case fwmodel.NATSNAT, fwmodel.NATSNetnat:
		return fmt.Sprintf("snat to %s", p.firstAddr(r.TSrc))
	case fwmodel.NATDNAT, fwmodel.NATDNetnat:
		return fmt.Sprintf("dnat to %s", p.firstAddr(r.TDst))
	case fwmodel.NATRedirect:
		return "redirect"
	default:
		return ""
	}
}

func (p *Printer) firstAddr(elems []uuid.UUID) string {
	if len(elems) == 0 {
		return ""
	}
	if a, ok := p.Library.Addresses[elems[0]]; ok {
		return addrLiteral(a)
	}
	return ""
}

// MergeTCPUDP wraps genproc.GroupServicesByProtocol's NFT-only merge path:
// callers pass mergeTCPUDP=true when building the nftables pipeline.
const MergeTCPUDP = true

// BuildChainHeader renders the `chain { type ... hook ...; }` header lines
// for a chain; it emits no `table` line and does not use its table argument
// (spec §4.5's per-chain buffering note, spec
// §6.4's wire-syntax invariant that every base chain declare its hook,
// priority, and policy). A non-base (temp/branch) chain gets no type/hook
// line, matching nftables' own distinction between base and regular chains.
func BuildChainHeader(table, chain string, policy string) []string {
	hook := HookFor(chain)
	if hook == nil {
		return []string{fmt.Sprintf("chain %s {", chain)}
	}
	return []string{
		fmt.Sprintf("chain %s {", chain),
		fmt.Sprintf("\ttype filter hook %s priority %v; policy %s;", chain, *PriorityFor(chain), policy),
	}
}
