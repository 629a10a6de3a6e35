// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package genproc implements the backend-independent processors shared by
// the IPT and NFT pipelines (spec §4.2): everything from initial rule
// enqueueing through group expansion, address-family filtering, atomization,
// and final dedup. Backend-specific stages (chain decision, negation
// lowering, NAT classification) live in internal/iptc and internal/nftc.
package genproc

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

// Begin seeds the pipeline from a rule set: every non-disabled rule, in
// position order (spec §4.2 step 1).
func Begin(rs *fwmodel.RuleSet) procfw.Source {
	var rules []*compile.Rule
	sorted := append([]*fwmodel.Rule(nil), rs.Rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	for _, r := range sorted {
		if r.Disabled {
			continue
		}
		rules = append(rules, compile.FromModel(r))
	}
	return procfw.NewSliceSource(rules)
}

// SingleRuleFilter drops every rule except the one whose source ID matches
// target, when target is non-nil (spec §4.2 step 2).
func SingleRuleFilter(src procfw.Source, target *uuid.UUID) procfw.Source {
	if target == nil {
		return src
	}
	return procfw.Filter(src, func(r *compile.Rule) bool {
		return r.Source != nil && r.Source.ID == *target
	})
}

// StoreAction passes every rule through unchanged (spec §4.2 step 3); it
// keeps no snapshot of the original action. Negation lowering and logging
// sub-chains change IPTTarget and IPTChain, not Action, so log-prefix macro
// expansion (%A) reads r.Action directly.
func StoreAction(src procfw.Source) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		return r
	})
}

// InterfaceAndDirection defaults Direction to Both when Undefined (spec §4.2
// step 4).
func InterfaceAndDirection(src procfw.Source) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		if r.Direction == fwmodel.DirectionUndefined {
			r.Direction = fwmodel.DirectionBoth
		}
		return r
	})
}

// SplitOnBothWithInterface fans a Direction=Both rule with a specific
// (non-any) interface slot into an inbound copy and an outbound copy (spec
// §4.2 step 5).
func SplitOnBothWithInterface(src procfw.Source) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		if r.Direction != fwmodel.DirectionBoth || r.IsAnySlot("itf") {
			return []*compile.Rule{r}
		}
		in := r.Clone()
		in.Direction = fwmodel.DirectionInbound
		out := r.Clone()
		out.Direction = fwmodel.DirectionOutbound
		return []*compile.Rule{in, out}
	})
}

// MultiAddressResolver resolves compile-time multi-address objects (DNS
// names, address-table files) into concrete address lists. Run-time
// variants (resolved on the target host) are left untouched.
type MultiAddressResolver struct {
	Library    *fwmodel.Library
	Sink       *fwerrors.Sink
	IPv6       bool
	LookupHost func(name string, ipv6 bool) ([]string, error)
	LoadTable  func(path string) ([]string, error)
}

// ResolveMultiAddress implements spec §4.2 step 6 over every address-bearing
// slot of r, replacing each compile-time multi-address element with its
// resolved leaves. A resolution failure records a fatal diagnostic and
// drops the failed element from the slot (the caller observes
// Sink.Aborted()).
func (m *MultiAddressResolver) ResolveMultiAddress(src procfw.Source) procfw.Source {
	slots := []string{"src", "dst", "osrc", "odst", "tsrc", "tdst"}
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		for _, slot := range slots {
			elems, ok := r.Slot(slot)
			if !ok || len(elems) == 0 {
				continue
			}
			r.SetSlot(slot, m.resolveSlot(elems))
		}
		return r
	})
}

func (m *MultiAddressResolver) resolveSlot(elems []uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range elems {
		addr, ok := m.Library.Addresses[id]
		if !ok {
			out = append(out, id)
			continue
		}
		switch addr.Kind {
		case fwmodel.AddressDNSName:
			if addr.RunTime {
				out = append(out, id)
				continue
			}
			if m.LookupHost == nil {
				out = append(out, id)
				continue
			}
			hosts, err := m.LookupHost(addr.DNSName, m.IPv6)
			if err != nil {
				if m.Sink != nil {
					m.Sink.Add(fwerrors.Fatalf(fwerrors.KindResolution, "DNS lookup failed for %q: %v", addr.DNSName, err))
				}
				continue
			}
			for _, h := range hosts {
				out = append(out, addressIDForLiteral(m.Library, h))
			}
		case fwmodel.AddressTableFile:
			if addr.RunTime {
				out = append(out, id)
				continue
			}
			if m.LoadTable == nil {
				out = append(out, id)
				continue
			}
			lines, err := m.LoadTable(addr.TableFile)
			if err != nil {
				if m.Sink != nil {
					m.Sink.Add(fwerrors.Fatalf(fwerrors.KindResolution, "address table %q: %v", addr.TableFile, err))
				}
				continue
			}
			for _, l := range lines {
				out = append(out, addressIDForLiteral(m.Library, l))
			}
		default:
			out = append(out, id)
		}
	}
	return out
}

// addressIDForLiteral interns a textual address literal into the library,
// reusing an existing Address if one with the same Name already exists.
func addressIDForLiteral(lib *fwmodel.Library, literal string) uuid.UUID {
	for id, a := range lib.Addresses {
		if a.Name == literal {
			return id
		}
	}
	id := uuid.New()
	lib.Addresses[id] = &fwmodel.Address{ID: id, Name: literal}
	return id
}

// EmptyGroupsCheck implements spec §4.2 step 7 for one named slot: a group
// with zero effective members is removed (with a warning) when
// ignoreEmpty is set, otherwise compilation aborts. Removing it empties the
// slot and drops the rule (marking HasEmptyRE).
func EmptyGroupsCheck(src procfw.Source, lib *fwmodel.Library, sink *fwerrors.Sink, slot string, ignoreEmpty bool) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		elems, ok := r.Slot(slot)
		if !ok {
			return []*compile.Rule{r}
		}
		var kept []uuid.UUID
		for _, id := range elems {
			g, isGroup := lib.Groups[id]
			if !isGroup {
				kept = append(kept, id)
				continue
			}
			if len(fwmodel.ExpandGroup(g, lib.LookupGroup, nil)) == 0 {
				if !ignoreEmpty {
					if sink != nil {
						sink.Add(fwerrors.Fatalf(fwerrors.KindSemantic, "empty group %q in slot %s", g.Name, slot))
					}
					return nil
				}
				if sink != nil {
					sink.Add(fwerrors.Newf(fwerrors.KindSemantic, "dropping empty group %q from slot %s", g.Name, slot))
				}
				continue
			}
			kept = append(kept, id)
		}
		r.SetSlot(slot, kept)
		return []*compile.Rule{r}
	})
}

// allSlotNames lists every slot ExpandGroups/EliminateDuplicates/etc. sweep
// over, across policy, NAT, and routing rule kinds.
var allSlotNames = []string{
	"src", "dst", "srv", "itf", "when",
	"osrc", "odst", "osrv", "tsrc", "tdst", "tsrv", "itf_inb", "itf_outb",
	"rdst", "rgtw", "ritf",
}

// ExpandGroups recursively replaces group references in every slot with
// their leaves (cycle-safe), then sorts each slot's leaves by name (spec
// §4.2 step 8).
func ExpandGroups(src procfw.Source, lib *fwmodel.Library) procfw.Source {
	nameOf := func(id uuid.UUID) string {
		if a, ok := lib.Addresses[id]; ok {
			return a.Name
		}
		if s, ok := lib.Services[id]; ok {
			return s.Name
		}
		if i, ok := lib.Interfaces[id]; ok {
			return i.Name
		}
		return id.String()
	}
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		for _, slot := range allSlotNames {
			elems, ok := r.Slot(slot)
			if !ok || len(elems) == 0 {
				continue
			}
			var expanded []uuid.UUID
			for _, id := range elems {
				if g, isGroup := lib.Groups[id]; isGroup {
					expanded = append(expanded, fwmodel.ExpandGroup(g, lib.LookupGroup, nil)...)
				} else {
					expanded = append(expanded, id)
				}
			}
			sort.SliceStable(expanded, func(i, j int) bool {
				return nameOf(expanded[i]) < nameOf(expanded[j])
			})
			r.SetSlot(slot, expanded)
		}
		return r
	})
}

// DropRulesWithEmptyRE drops rules any of whose slots were filtered down to
// empty by an earlier stage (spec §4.2 step 9).
func DropRulesWithEmptyRE(src procfw.Source) procfw.Source {
	return procfw.Filter(src, func(r *compile.Rule) bool {
		return len(r.HasEmptyRE) == 0
	})
}

// EliminateDuplicates dedups the named slot's element list by identity,
// preserving first-seen order (spec §4.2 step 10, applied once per slot:
// SRC, DST, SRV).
func EliminateDuplicates(src procfw.Source, slot string) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		elems, ok := r.Slot(slot)
		if !ok || len(elems) == 0 {
			return r
		}
		seen := map[uuid.UUID]bool{}
		var out []uuid.UUID
		for _, id := range elems {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
		r.SetSlot(slot, out)
		return r
	})
}

// FillActionOnReject inherits the firewall-wide default reject parameter
// when action is Reject and the rule didn't specify one (spec §4.2 step 11).
func FillActionOnReject(src procfw.Source, fwDefault string) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		if r.Action == fwmodel.ActionReject && r.Source != nil && r.Source.Options.ActionOnReject == "" {
			r.Source.Options.ActionOnReject = fwDefault
		}
		return r
	})
}

// DropByAddressFamily removes elements whose address family doesn't match
// the current pass, and drops ICMPv4 services on IPv6 passes (and ICMPv6 on
// IPv4 passes). A slot that was non-empty and becomes empty drops the rule
// (spec §4.2 step 12).
func DropByAddressFamily(src procfw.Source, lib *fwmodel.Library, ipv6 bool) procfw.Source {
	addrSlots := []string{"src", "dst", "osrc", "odst", "tsrc", "tdst"}
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		for _, slot := range addrSlots {
			elems, ok := r.Slot(slot)
			if !ok || len(elems) == 0 {
				continue
			}
			var kept []uuid.UUID
			for _, id := range elems {
				a, ok := lib.Addresses[id]
				if !ok || a.IsV6() == ipv6 {
					kept = append(kept, id)
				}
			}
			r.SetSlot(slot, kept)
		}

		if len(r.Srv) > 0 {
			var kept []uuid.UUID
			for _, id := range r.Srv {
				s, ok := lib.Services[id]
				if !ok {
					kept = append(kept, id)
					continue
				}
				if ipv6 && s.Kind == fwmodel.ServiceICMP {
					continue
				}
				if !ipv6 && s.Kind == fwmodel.ServiceICMP6 {
					continue
				}
				kept = append(kept, id)
			}
			r.Srv = kept
			if len(kept) == 0 && len(r.Srv) == 0 {
				r.HasEmptyRE["srv"] = true
			}
		}

		if len(r.HasEmptyRE) > 0 {
			return nil
		}
		return []*compile.Rule{r}
	})
}

// CheckInterfaceAgainstAF drops rules whose required interface slot has no
// address in the current family (spec §4.2 step 13).
func CheckInterfaceAgainstAF(src procfw.Source, lib *fwmodel.Library, ipv6 bool) procfw.Source {
	return procfw.Filter(src, func(r *compile.Rule) bool {
		if r.IsAnySlot("itf") {
			return true
		}
		for _, id := range r.Itf {
			iface, ok := lib.Interfaces[id]
			if !ok {
				continue
			}
			for _, aid := range iface.Addresses {
				if a, ok := lib.Addresses[aid]; ok && a.IsV6() == ipv6 {
					return true
				}
			}
		}
		return false
	})
}

// AtomizeForInterfaces fans out one copy per element of the interface slot
// (spec §4.2 step 14).
func AtomizeForInterfaces(src procfw.Source) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		if len(r.Itf) <= 1 {
			return []*compile.Rule{r}
		}
		out := make([]*compile.Rule, 0, len(r.Itf))
		for _, id := range r.Itf {
			c := r.Clone()
			c.Itf = []uuid.UUID{id}
			out = append(out, c)
		}
		return out
	})
}

// GroupServicesByProtocol partitions the service slot by IP protocol number
// and fans out one rule per partition. When mergeTCPUDP is true and the
// partitions are exactly {TCP, UDP} with identical port sets, the rule is
// kept as one with MergedTCPUDP set instead of being split (spec §4.2 step
// 16; the merge special-case is NFT-only per spec §4.5).
func GroupServicesByProtocol(src procfw.Source, lib *fwmodel.Library, mergeTCPUDP bool) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		if len(r.Srv) <= 1 {
			return []*compile.Rule{r}
		}
		groups := map[int][]uuid.UUID{}
		var order []int
		for _, id := range r.Srv {
			s, ok := lib.Services[id]
			proto := -1
			if ok {
				proto = s.ProtocolNumber()
			}
			if _, seen := groups[proto]; !seen {
				order = append(order, proto)
			}
			groups[proto] = append(groups[proto], id)
		}
		if len(groups) == 1 {
			return []*compile.Rule{r}
		}
		if mergeTCPUDP && len(groups) == 2 && groups[6] != nil && groups[17] != nil {
			if samePortSets(lib, groups[6], groups[17]) {
				c := r.Clone()
				c.MergedTCPUDP = true
				return []*compile.Rule{c}
			}
		}
		out := make([]*compile.Rule, 0, len(order))
		for _, proto := range order {
			c := r.Clone()
			c.Srv = groups[proto]
			out = append(out, c)
		}
		return out
	})
}

func samePortSets(lib *fwmodel.Library, tcpIDs, udpIDs []uuid.UUID) bool {
	key := func(ids []uuid.UUID) string {
		var ports []string
		for _, id := range ids {
			s, ok := lib.Services[id]
			if !ok {
				continue
			}
			ports = append(ports, s.ProtocolName()+":"+strconv.Itoa(s.DstRangeStart)+"-"+strconv.Itoa(s.DstRangeEnd))
		}
		sort.Strings(ports)
		out := ""
		for _, p := range ports {
			out += p + ","
		}
		return out
	}
	a := key(tcpIDs)
	b := key(udpIDs)
	// port sets match irrespective of which protocol carried them
	return stripProto(a) == stripProto(b)
}

func stripProto(s string) string {
	out := make([]byte, 0, len(s))
	skip := true
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			skip = false
			continue
		}
		if s[i] == ',' {
			skip = true
		}
		if !skip || s[i] == ',' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// SeparatePortRanges pulls TCP/UDP services whose source-or-destination
// range spans more than one port into their own rule, since multiport
// cannot represent ranges (spec §4.2 step 17).
func SeparatePortRanges(src procfw.Source, lib *fwmodel.Library) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		if len(r.Srv) <= 1 {
			return []*compile.Rule{r}
		}
		var single, ranged []uuid.UUID
		for _, id := range r.Srv {
			s, ok := lib.Services[id]
			if !ok || (s.Kind != fwmodel.ServiceTCP && s.Kind != fwmodel.ServiceUDP) {
				single = append(single, id)
				continue
			}
			if s.SrcRangeStart != s.SrcRangeEnd || s.DstRangeStart != s.DstRangeEnd {
				ranged = append(ranged, id)
			} else {
				single = append(single, id)
			}
		}
		if len(ranged) == 0 {
			return []*compile.Rule{r}
		}
		var out []*compile.Rule
		if len(single) > 0 {
			c := r.Clone()
			c.Srv = single
			out = append(out, c)
		}
		for _, id := range ranged {
			c := r.Clone()
			c.Srv = []uuid.UUID{id}
			out = append(out, c)
		}
		return out
	})
}

// AtomizeForAddresses fans out one copy per (src, dst) combination, in
// (src-index, dst-index) lexicographic order (spec §4.2 step 18, §5
// ordering guarantee).
func AtomizeForAddresses(src procfw.Source) procfw.Source {
	return procfw.FanOut(src, func(r *compile.Rule) []*compile.Rule {
		srcs := r.Src
		if len(srcs) == 0 {
			srcs = []uuid.UUID{uuid.Nil}
		}
		dsts := r.Dst
		if len(dsts) == 0 {
			dsts = []uuid.UUID{uuid.Nil}
		}
		if len(srcs) <= 1 && len(dsts) <= 1 {
			return []*compile.Rule{r}
		}
		out := make([]*compile.Rule, 0, len(srcs)*len(dsts))
		for _, s := range srcs {
			for _, d := range dsts {
				c := r.Clone()
				if s != uuid.Nil || len(r.Src) > 0 {
					c.Src = []uuid.UUID{s}
				}
				if d != uuid.Nil || len(r.Dst) > 0 {
					c.Dst = []uuid.UUID{d}
				}
				out = append(out, c)
			}
		}
		return out
	})
}

// DeduplicateByEmittedText drops rules whose rendered text (as computed by
// render) exactly duplicates one already seen for the same chain (spec §4.2
// step 20).
func DeduplicateByEmittedText(src procfw.Source, ctx *compile.Context, render func(*compile.Rule) string) procfw.Source {
	return procfw.Filter(src, func(r *compile.Rule) bool {
		line := render(r)
		return !ctx.SeenEmitted(r.IPTChain, line)
	})
}

// CountChainUsage increments ctx's per-chain usage counter for each rule
// that passes through (spec §4.2 step 21).
func CountChainUsage(src procfw.Source, ctx *compile.Context) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		ctx.TouchChain(r.IPTChain)
		return r
	})
}
