// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

// ClassifyNAT derives NATRuleType from the contents of tsrc/tdst (spec §4.4
// step 4's classification table).
func ClassifyNAT(src procfw.Source, ctx *compile.Context) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		if r.NATAction == fwmodel.NATActionBranch {
			r.NATRuleType = fwmodel.NATBranch
			return r
		}

		tsrcEmpty := len(r.TSrc) == 0
		tdstEmpty := len(r.TDst) == 0

		switch {
		case tsrcEmpty && tdstEmpty:
			r.NATRuleType = fwmodel.NATNone
		case !tsrcEmpty && isNetwork(ctx, r.TSrc) && tdstEmpty:
			r.NATRuleType = fwmodel.NATSNetnat
		case !tsrcEmpty && !isNetwork(ctx, r.TSrc) && tdstEmpty:
			if isDynamicInterface(ctx, r.TSrc) {
				r.NATRuleType = fwmodel.NATMasq
			} else {
				r.NATRuleType = fwmodel.NATSNAT
			}
		case tsrcEmpty && !tdstEmpty && isNetwork(ctx, r.TDst):
			r.NATRuleType = fwmodel.NATDNetnat
		case tsrcEmpty && !tdstEmpty && slotMatchesFirewall(ctx, r.TDst):
			r.NATRuleType = fwmodel.NATRedirect
		case tsrcEmpty && !tdstEmpty:
			r.NATRuleType = fwmodel.NATDNAT
		case !tsrcEmpty && !tdstEmpty:
			r.NATRuleType = fwmodel.NATSDNAT
		}
		return r
	})
}

func isNetwork(ctx *compile.Context, elems []uuid.UUID) bool {
	for _, id := range elems {
		a, ok := ctx.Library.Addresses[id]
		if ok && (a.Kind == fwmodel.AddressNetworkV4 || a.Kind == fwmodel.AddressNetworkV6) {
			return true
		}
	}
	return false
}

func isDynamicInterface(ctx *compile.Context, elems []uuid.UUID) bool {
	for _, id := range elems {
		if iface, ok := ctx.Library.Interfaces[id]; ok && iface.Dynamic {
			return true
		}
	}
	return false
}

// VerifyNATNegation rejects negation on tsrc/tdst/tsrv with an error (spec
// §4.4 step 5).
func VerifyNATNegation(src procfw.Source, sink *fwerrors.Sink) procfw.Source {
	return procfw.Filter(src, func(r *compile.Rule) bool {
		if r.IsNeg("tsrc") || r.IsNeg("tdst") || r.IsNeg("tsrv") {
			sink.Add(fwerrors.Fatalf(fwerrors.KindSemantic, "negation is not allowed on NAT translation slots"))
			return false
		}
		return true
	})
}

// DecideNATChain assigns the PREROUTING/POSTROUTING chain per NAT type
// (spec §4.4 step 8).
func DecideNATChain(src procfw.Source) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		switch r.NATRuleType {
		case fwmodel.NATSNAT, fwmodel.NATSNetnat, fwmodel.NATMasq:
			r.IPTChain = "POSTROUTING"
		case fwmodel.NATDNAT, fwmodel.NATDNetnat, fwmodel.NATRedirect:
			r.IPTChain = "PREROUTING"
		}
		return r
	})
}

// PrintNAT renders the NAT-specific target and arguments (spec §4.4 step
// 13's table).
func (p *Printer) PrintNAT(r *compile.Rule) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("-A %s", r.IPTChain))
	p.printAddr(&b, r, "osrc", "-s")
	p.printAddr(&b, r, "odst", "-d")

	switch r.NATRuleType {
	case fwmodel.NATMasq:
		b.WriteString(" -j MASQUERADE")
		if r.Source.Options.IPTNatRandom {
			b.WriteString(" --random")
		}
	case fwmodel.NATSNAT:
		b.WriteString(" -j SNAT --to-source ")
		b.WriteString(p.natAddrArg(r.TSrc))
		p.appendNatFlags(&b, r)
	case fwmodel.NATDNAT:
		b.WriteString(" -j DNAT --to-destination ")
		b.WriteString(p.natAddrArg(r.TDst))
		p.appendNatFlags(&b, r)
	case fwmodel.NATSNetnat, fwmodel.NATDNetnat:
		target := r.TSrc
		if r.NATRuleType == fwmodel.NATDNetnat {
			target = r.TDst
		}
		b.WriteString(" -j NETMAP --to ")
		b.WriteString(p.natAddrArg(target))
	case fwmodel.NATRedirect:
		b.WriteString(" -j REDIRECT --to-ports ")
		b.WriteString(p.natPortArg(r.TSrv))
	}
	return b.String()
}

func (p *Printer) natAddrArg(elems []uuid.UUID) string {
	if len(elems) == 0 {
		return ""
	}
	addr, ok := p.Library.Addresses[elems[0]]
	if !ok {
		return ""
	}
	return addrLiteral(addr)
}

func (p *Printer) natPortArg(elems []uuid.UUID) string {
	if len(elems) == 0 {
		return ""
	}
	s, ok := p.Library.Services[elems[0]]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", s.DstRangeStart)
}

func (p *Printer) appendNatFlags(b *strings.Builder, r *compile.Rule) {
	if r.Source.Options.IPTNatRandom {
		b.WriteString(" --random")
	}
	if r.Source.Options.IPTNatPersistent && SupportsPersistent(p.EngineVersion) {
		b.WriteString(" --persistent")
	}
}

// ReplaceFirewallInTSrc implements spec §4.4 step 9: for an SNAT rule whose
// tsrc names the firewall itself, resolve tsrc to a concrete address rather
// than leaving a bare firewall reference the printer has no address literal
// for. Preference goes to the interface whose attached network contains
// odst; failing that, the firewall's first non-loopback, regular interface
// other than the one facing osrc (mirrors the original's
// find_address_for-based resolution).
func ReplaceFirewallInTSrc(src procfw.Source, ctx *compile.Context) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		if r.NATRuleType != fwmodel.NATSNAT || !slotMatchesFirewall(ctx, r.TSrc) {
			return r
		}
		iface := interfaceTowards(ctx, r.ODst)
		if iface == nil {
			iface = firstRegularInterface(ctx, r)
		}
		if iface == nil {
			return r
		}
		addr, ok := ctx.Library.FindAddressFor(iface)
		if !ok {
			return r
		}
		r.TSrc = []uuid.UUID{addr.ID}
		return r
	})
}

// interfaceTowards returns the firewall interface whose attached network
// contains one of elems' addresses, or nil if none matches.
func interfaceTowards(ctx *compile.Context, elems []uuid.UUID) *fwmodel.Interface {
	for _, iface := range ctx.Firewall.Interfaces {
		for _, aid := range iface.Addresses {
			netAddr, ok := ctx.Library.Addresses[aid]
			if !ok {
				continue
			}
			for _, id := range elems {
				addr, ok := ctx.Library.Addresses[id]
				if ok && fwmodel.AddressContains(netAddr, addr) {
					return iface
				}
			}
		}
	}
	return nil
}

// firstRegularInterface returns the firewall's first non-loopback, regular
// interface, skipping the one facing osrc if one was found.
func firstRegularInterface(ctx *compile.Context, r *compile.Rule) *fwmodel.Interface {
	facingOSrc := interfaceTowards(ctx, r.OSrc)
	for _, iface := range ctx.Firewall.Interfaces {
		if iface.IsLoopback() || !iface.IsRegular() {
			continue
		}
		if facingOSrc != nil && iface.ID == facingOSrc.ID {
			continue
		}
		return iface
	}
	return nil
}
