// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import (
	"strconv"

	"github.com/google/uuid"
)

// TCPFlags holds the 6 flag bits + 6 mask bits a TCPService may match on
// (spec §3.1 "Service"): urg/ack/psh/rst/syn/fin, each with a paired mask
// bit controlling whether it participates in the match.
type TCPFlags struct {
	Urg, Ack, Psh, Rst, Syn, Fin             bool
	MaskUrg, MaskAck, MaskPsh, MaskRst, MaskSyn, MaskFin bool
}

// AnySet reports whether all mask bits are zero (the flag bits are not
// consulted), which per spec §8.3 means "no flag match" rather than
// "flags=0".
func (f TCPFlags) AnySet() bool {
	return !(f.MaskUrg || f.MaskAck || f.MaskPsh || f.MaskRst || f.MaskSyn || f.MaskFin)
}

// IPOptionFlags are the eight IP-option match flags an IPService carries,
// plus TOS/DSCP.
type IPOptionFlags struct {
	Fragment, ShortFragment, LSRR, SSRR, RecordRoute, Timestamp, RouterAlert, AnyOption bool
	TOS, DSCP string
}

// Service is the tagged-union transport-layer match object (spec §3.1).
type Service struct {
	ID      uuid.UUID
	Name    string
	Kind    ServiceKind
	Comment string

	// TCP/UDP port ranges. 0/0 and 0/65535 both mean "any" (spec §8.3).
	SrcRangeStart, SrcRangeEnd int
	DstRangeStart, DstRangeEnd int
	Flags                      TCPFlags
	Established                bool

	// ICMP(v6)
	ICMPType, ICMPCode int // -1 means unset/any

	// IP-Protocol
	ProtocolNum int // -1 = unset ("0" in the source model means any)
	IPOpts      IPOptionFlags

	// Custom
	CustomCode map[string]string // platform -> code string

	// User / Tag
	UserID  string
	TagCode string
}

// ProtocolName returns the textual protocol name for the printer.
func (s *Service) ProtocolName() string {
	switch s.Kind {
	case ServiceTCP:
		return "tcp"
	case ServiceUDP:
		return "udp"
	case ServiceICMP:
		return "icmp"
	case ServiceICMP6:
		return "ipv6-icmp"
	case ServiceIP:
		return strconv.Itoa(s.ProtocolNum)
	default:
		return ""
	}
}

// ProtocolNumber returns the IP protocol number, or -1 if not applicable.
func (s *Service) ProtocolNumber() int {
	switch s.Kind {
	case ServiceTCP:
		return 6
	case ServiceUDP:
		return 17
	case ServiceICMP:
		return 1
	case ServiceICMP6:
		return 58
	case ServiceIP:
		return s.ProtocolNum
	default:
		return -1
	}
}

// IsAny reports whether this service's distinguishing fields are all
// zero/wildcard (spec §3.1: "A service is 'any' when its distinguishing
// fields are all zero/wildcard").
func (s *Service) IsAny() bool {
	switch s.Kind {
	case ServiceIP:
		return s.ProtocolNum <= 0
	case ServiceTCP, ServiceUDP:
		return s.SrcRangeStart == 0 && s.SrcRangeEnd == 0 &&
			s.DstRangeStart == 0 && s.DstRangeEnd == 0
	case ServiceICMP, ServiceICMP6:
		return s.ICMPType < 0
	default:
		return false
	}
}

// ServiceContains implements spec §4.6's per-kind service-containment rule
// used by shadow detection: does sup's match set contain sub's?
func ServiceContains(sup, sub *Service) bool {
	if sup.Kind == ServiceIP && sup.ProtocolNum <= 0 {
		// A fully-open IP-Protocol service shadows any specific service
		// (spec §4.6 "cross-kind" rule).
		return true
	}
	if sup.Kind != sub.Kind {
		return false
	}
	switch sup.Kind {
	case ServiceIP:
		return sup.ProtocolNum == sub.ProtocolNum && sup.IPOpts == sub.IPOpts
	case ServiceTCP, ServiceUDP:
		if sup.Flags != sub.Flags {
			return false
		}
		return portRangeContains(sup.SrcRangeStart, sup.SrcRangeEnd, sub.SrcRangeStart, sub.SrcRangeEnd) &&
			portRangeContains(sup.DstRangeStart, sup.DstRangeEnd, sub.DstRangeStart, sub.DstRangeEnd)
	case ServiceICMP, ServiceICMP6:
		if sup.ICMPType < 0 {
			return true // "any ICMP" shadows any specific type (spec §4.6)
		}
		return sup.ICMPType == sub.ICMPType && (sup.ICMPCode < 0 || sup.ICMPCode == sub.ICMPCode)
	default:
		return false
	}
}

// portRangeContains normalizes 0/0 and 0/65535 to "any" before comparing,
// per spec §8.3.
func portRangeContains(supStart, supEnd, subStart, subEnd int) bool {
	normalize := func(start, end int) (int, int) {
		if (start == 0 && end == 0) || (start == 0 && end == 65535) {
			return 0, 65535
		}
		return start, end
	}
	supStart, supEnd = normalize(supStart, supEnd)
	subStart, subEnd = normalize(subStart, subEnd)
	return supStart <= subStart && supEnd >= subEnd
}
