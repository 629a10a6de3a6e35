// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import "github.com/google/uuid"

// MatchesFirewall reports whether addrID names an address that belongs to
// fw itself (one of its interfaces' addresses), supplementing the "firewall
// is part of any-and-networks" special case used by rule-element resolution
// (spec SPEC_FULL.md §4, supplemented from the original's complex_match /
// MatchesFirewall helper). It checks interface-bound addresses only; the
// IPT chain decision (iptc.matchesFirewall) calls it after its own identity
// and interface checks.
func (l *Library) MatchesFirewall(fw *Device, addrID uuid.UUID) bool {
	if fw == nil {
		return false
	}
	for _, iface := range fw.Interfaces {
		for _, aid := range iface.Addresses {
			if aid == addrID {
				return true
			}
		}
	}
	return false
}

// FindAddressFor returns the first address attached to iface, or ok=false if
// the interface has none (supplemented from the original's find_address_for,
// used when an interface-only rule element needs a concrete address — the
// IPT NAT stage uses it to replace the firewall in an SNAT rule's tsrc).
func (l *Library) FindAddressFor(iface *Interface) (*Address, bool) {
	if iface == nil || len(iface.Addresses) == 0 {
		return nil, false
	}
	addr, ok := l.Addresses[iface.Addresses[0]]
	return addr, ok
}

// AssignUniqueRuleID mirrors the original's AssignUniqueRuleId: a rule
// whose ID is still uuid.Nil gets a fresh random UUID; a rule that already
// has one keeps it. The returned value is the rule's ID. No pipeline stage
// calls it: rules split by the pipeline (e.g. logging sub-chains) keep
// their Source rule's identity.
func AssignUniqueRuleID(r *Rule) uuid.UUID {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return r.ID
}
