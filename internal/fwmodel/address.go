// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import (
	"fmt"
	"net/netip"

	"github.com/google/uuid"
)

// Address is the tagged-union network-layer object described in spec §3.1.
// Kind-specific fields are typed (Addr/Mask/Start/End/Name...); Extra is the
// escape hatch for the rare platform-specific keys that don't warrant a
// first-class field, per the typed-fields-plus-escape-hatch-map note.
type Address struct {
	ID      uuid.UUID
	Name    string
	Kind    AddressKind
	Comment string

	Addr     netip.Addr // HostV4, HostV6, NetworkV4, NetworkV6, Range.Start
	PrefixLen int       // NetworkV4/NetworkV6: CIDR length
	RangeEnd netip.Addr // Range: end address

	MAC string // AddressMAC

	DNSName   string // AddressDNSName
	RunTime   bool   // true when resolved on the target host rather than at compile time

	TableFile string // AddressTableFile: path to the address-table file

	InterfaceID uuid.UUID // AddressAttachedNetworks: owning interface

	Extra map[string]string
}

// IsAny reports whether this address matches everything. No address variant
// is "any" by itself in this model (unlike Service) — an "any" slot is
// represented by an empty element list, per spec §3.2.
func (a *Address) IsAny() bool { return false }

// IsV6 reports whether this address belongs to the IPv6 family.
func (a *Address) IsV6() bool {
	switch a.Kind {
	case AddressHostV6, AddressNetworkV6:
		return true
	case AddressHostV4, AddressNetworkV4:
		return false
	case AddressRange:
		return a.Addr.Is6()
	default:
		return a.Addr.IsValid() && a.Addr.Is6()
	}
}

// GetAddress renders the address's base IP literal (no mask), mirroring the
// original's Address.get_address().
func (a *Address) GetAddress() string {
	switch a.Kind {
	case AddressMAC:
		return a.MAC
	case AddressDNSName:
		return a.DNSName
	default:
		if a.Addr.IsValid() {
			return a.Addr.String()
		}
		return ""
	}
}

// GetNetmask renders the CIDR prefix length for Network variants.
func (a *Address) GetNetmask() string {
	switch a.Kind {
	case AddressNetworkV4, AddressNetworkV6:
		return fmt.Sprintf("%d", a.PrefixLen)
	default:
		return ""
	}
}

// Range returns the inclusive [first, last] numeric address range this
// object covers, used by shadow detection's address-containment check
// (spec §4.6, "numeric address-range containment"). Non-address kinds
// (MAC, DNS names not yet resolved) return ok=false.
func (a *Address) Range() (first, last netip.Addr, ok bool) {
	switch a.Kind {
	case AddressHostV4, AddressHostV6:
		if !a.Addr.IsValid() {
			return netip.Addr{}, netip.Addr{}, false
		}
		return a.Addr, a.Addr, true
	case AddressNetworkV4, AddressNetworkV6:
		if !a.Addr.IsValid() {
			return netip.Addr{}, netip.Addr{}, false
		}
		p := netip.PrefixFrom(a.Addr, a.PrefixLen).Masked()
		return p.Addr(), lastOfPrefix(p), true
	case AddressRange:
		if !a.Addr.IsValid() || !a.RangeEnd.IsValid() {
			return netip.Addr{}, netip.Addr{}, false
		}
		return a.Addr, a.RangeEnd, true
	default:
		return netip.Addr{}, netip.Addr{}, false
	}
}

func lastOfPrefix(p netip.Prefix) netip.Addr {
	base := p.Addr()
	bits := base.BitLen()
	ones := p.Bits()
	buf := base.AsSlice()
	for i := ones; i < bits; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		buf[byteIdx] |= 1 << bitIdx
	}
	addr, _ := netip.AddrFromSlice(buf)
	if base.Is4() {
		addr = addr.Unmap()
	}
	return addr
}

// AddressContains reports whether sup's numeric range wholly contains sub's,
// per spec §4.6's address-containment rule: sup.first <= sub.first and
// sup.last >= sub.last.
func AddressContains(sup, sub *Address) bool {
	supFirst, supLast, ok1 := sup.Range()
	subFirst, subLast, ok2 := sub.Range()
	if !ok1 || !ok2 {
		return false
	}
	if supFirst.Is4() != subFirst.Is4() {
		return false
	}
	return compareAddr(supFirst, subFirst) <= 0 && compareAddr(supLast, subLast) >= 0
}

func compareAddr(a, b netip.Addr) int {
	return a.Compare(b)
}
