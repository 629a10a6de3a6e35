// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"fmt"
	"strconv"
	"strings"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

// PrintFormat selects one of the three output variants (spec §4.3 "Output
// formats"): shell invocations, an iptables-restore block, or the same
// restore text wrapped for shell-variable expansion.
type PrintFormat int

const (
	FormatShell PrintFormat = iota
	FormatRestore
	FormatRestoreEcho
)

// Line is one emitted output line tagged with the chain it belongs to, so
// the driver can group per-chain output without a shared mutable buffer
// (spec §9.1 printer re-architecture note).
type Line struct {
	Chain  string
	Text   string
	Create bool // true for a chain-declaration line rather than a rule line
}

// Printer renders compile.Rule values into iptables syntax. It shares the
// core per-rule line-assembly logic across all three PrintFormat variants;
// only chain-declaration and table-wrapper framing differ, mirroring the
// original's PrintRule / PrintRuleIptRst / PrintRuleIptRstEcho subclassing
// (here expressed as one type switching on Format instead of three classes).
type Printer struct {
	Format        PrintFormat
	EngineVersion string
	Library       *fwmodel.Library
	Context       *compile.Context
	Table         string
}

// RuleText renders just the rule's own -A line, with none of Render's
// chain-declaration bookkeeping side effects — used by the dedup-by-text
// stage to decide whether a rule would duplicate one already emitted on its
// chain, without tripping DeclareChain.
func (p *Printer) RuleText(r *compile.Rule) string {
	return p.buildRuleCommand(r)
}

// Render produces the rule's output lines: chain-creation declarations (if
// not yet emitted this pass) followed by the rule line itself.
func (p *Printer) Render(r *compile.Rule) []Line {
	var lines []Line
	if !IsStandardChain(r.IPTChain) && p.Context.DeclareChain(r.IPTChain) {
		lines = append(lines, p.renderChainCreate(r.IPTChain))
	}
	lines = append(lines, Line{Chain: r.IPTChain, Text: p.buildRuleCommand(r)})
	return lines
}

func (p *Printer) renderChainCreate(chain string) Line {
	switch p.Format {
	case FormatShell:
		return Line{Chain: chain, Text: fmt.Sprintf("%s -N %s", p.ipt(), chain), Create: true}
	default:
		return Line{Chain: chain, Text: fmt.Sprintf(":%s - [0:0]", chain), Create: true}
	}
}

func (p *Printer) ipt() string {
	if SupportsWaitFlag(p.EngineVersion) {
		return "$IPTABLES -w"
	}
	return "$IPTABLES"
}

// buildRuleCommand assembles one -A line: chain, direction/interface,
// protocol, multiport or services, addresses, state, target (spec §4.3,
// grounded on the original's _build_rule_command assembly order). An
// IPTTarget set by an earlier stage replaces the action's target and its
// arguments.
func (p *Printer) buildRuleCommand(r *compile.Rule) string {
	var b strings.Builder

	switch p.Format {
	case FormatShell, FormatRestoreEcho:
		b.WriteString(p.ipt())
		if p.Table != "" && p.Table != "filter" {
			b.WriteString(" -t ")
			b.WriteString(p.Table)
		}
		b.WriteString(" -A ")
		b.WriteString(r.IPTChain)
	default:
		b.WriteString("-A ")
		b.WriteString(r.IPTChain)
	}

	p.printDirectionAndInterface(&b, r)
	p.printProtocol(&b, r)

	if r.IPTMultiport {
		p.printMultiport(&b, r)
	} else {
		p.printServices(&b, r)
	}

	p.printAddr(&b, r, "src", "-s")
	p.printAddr(&b, r, "dst", "-d")

	if !r.Source.Options.Stateless || r.ForceStateCheck {
		b.WriteString(" -m ")
		b.WriteString(StateModule(p.EngineVersion))
		b.WriteString(" --ctstate NEW")
	}

	target, args := ActionTarget(r, p.EngineVersion)
	if r.IPTTarget != "" {
		target, args = r.IPTTarget, nil
	}
	if target != "" {
		b.WriteString(" -j ")
		b.WriteString(target)
		for _, a := range args {
			b.WriteString(" ")
			b.WriteString(a)
		}
	}

	text := b.String()
	if p.Format == FormatRestoreEcho {
		text = fmt.Sprintf("echo \"%s\"", text)
	}
	return text
}

func (p *Printer) printDirectionAndInterface(b *strings.Builder, r *compile.Rule) {
	if r.IsAnySlot("itf") {
		return
	}
	iface, ok := p.Library.Interfaces[r.Itf[0]]
	if !ok {
		return
	}
	name := iface.IPTName()
	switch r.IPTChain {
	case "INPUT", "PREROUTING":
		b.WriteString(" -i ")
		b.WriteString(name)
	case "OUTPUT", "POSTROUTING":
		b.WriteString(" -o ")
		b.WriteString(name)
	case "FORWARD":
		if r.Direction == fwmodel.DirectionInbound || r.Direction == fwmodel.DirectionBoth {
			b.WriteString(" -i ")
			b.WriteString(name)
		}
		if r.Direction == fwmodel.DirectionOutbound {
			b.WriteString(" -o ")
			b.WriteString(name)
		}
	}
}

func (p *Printer) printProtocol(b *strings.Builder, r *compile.Rule) {
	if len(r.Srv) != 1 {
		return
	}
	s, ok := p.Library.Services[r.Srv[0]]
	if !ok || s.IsAny() {
		return
	}
	b.WriteString(" -p ")
	b.WriteString(s.ProtocolName())
}

func (p *Printer) printMultiport(b *strings.Builder, r *compile.Rule) {
	var proto string
	var ports []string
	for _, id := range r.Srv {
		s, ok := p.Library.Services[id]
		if !ok {
			continue
		}
		proto = s.ProtocolName()
		ports = append(ports, strconv.Itoa(s.DstRangeStart))
	}
	if proto != "" {
		b.WriteString(" -p ")
		b.WriteString(proto)
	}
	b.WriteString(" -m multiport --dports ")
	b.WriteString(strings.Join(ports, ","))
}

func (p *Printer) printServices(b *strings.Builder, r *compile.Rule) {
	for _, id := range r.Srv {
		s, ok := p.Library.Services[id]
		if !ok || s.IsAny() {
			continue
		}
		switch s.Kind {
		case fwmodel.ServiceTCP, fwmodel.ServiceUDP:
			if s.DstRangeStart != 0 || s.DstRangeEnd != 0 {
				b.WriteString(p.portArg(s.DstRangeStart, s.DstRangeEnd, "--dport"))
			}
			if s.SrcRangeStart != 0 || s.SrcRangeEnd != 0 {
				b.WriteString(p.portArg(s.SrcRangeStart, s.SrcRangeEnd, "--sport"))
			}
		case fwmodel.ServiceICMP, fwmodel.ServiceICMP6:
			if s.ICMPType >= 0 {
				b.WriteString(" --icmp-type ")
				b.WriteString(strconv.Itoa(s.ICMPType))
				if s.ICMPCode >= 0 {
					b.WriteString("/")
					b.WriteString(strconv.Itoa(s.ICMPCode))
				}
			}
		}
	}
}

func (p *Printer) portArg(start, end int, flag string) string {
	if start == end {
		return fmt.Sprintf(" %s %d", flag, start)
	}
	return fmt.Sprintf(" %s %d:%d", flag, start, end)
}

func (p *Printer) printAddr(b *strings.Builder, r *compile.Rule, slot, flag string) {
	elems, _ := r.Slot(slot)
	if len(elems) == 0 {
		return
	}
	neg := r.IsNeg(slot)
	if len(elems) == 1 {
		addr, ok := p.Library.Addresses[elems[0]]
		if !ok {
			return
		}
		b.WriteString(" ")
		if neg {
			b.WriteString("! ")
		}
		b.WriteString(flag)
		b.WriteString(" ")
		b.WriteString(addrLiteral(addr))
		return
	}
	// multi-object negation has already been lowered via a temp chain by
	// the time the printer runs (negation.go); a multi-object slot here is
	// never negated.
	var lits []string
	for _, id := range elems {
		if addr, ok := p.Library.Addresses[id]; ok {
			lits = append(lits, addrLiteral(addr))
		}
	}
	_ = lits // a true multi-object match would need per-address fan-out upstream
}

func addrLiteral(a *fwmodel.Address) string {
	switch a.Kind {
	case fwmodel.AddressNetworkV4, fwmodel.AddressNetworkV6:
		return fmt.Sprintf("%s/%d", a.Addr.String(), a.PrefixLen)
	default:
		return a.GetAddress()
	}
}
