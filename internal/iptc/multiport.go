// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

const maxMultiportEntries = 15

// MarkMultiport sets IPTMultiport when every service in the slot is TCP or
// UDP, shares one protocol, has no port ranges, and there are at most 15 of
// them (spec §4.3 "Multiport").
func MarkMultiport(src procfw.Source, lib *fwmodel.Library) procfw.Source {
	return procfw.Map(src, func(r *compile.Rule) *compile.Rule {
		if len(r.Srv) == 0 || len(r.Srv) > maxMultiportEntries {
			return r
		}
		var proto fwmodel.ServiceKind
		first := true
		for _, id := range r.Srv {
			s, ok := lib.Services[id]
			if !ok {
				return r
			}
			if s.Kind != fwmodel.ServiceTCP && s.Kind != fwmodel.ServiceUDP {
				return r
			}
			if s.SrcRangeStart != s.SrcRangeEnd || s.DstRangeStart != s.DstRangeEnd {
				return r
			}
			if first {
				proto = s.Kind
				first = false
			} else if s.Kind != proto {
				return r
			}
		}
		r.IPTMultiport = true
		return r
	})
}

// engineVersion is a dotted iptables version used for syntax gating (spec
// §4.3 "State matching", "Action → target mapping").
type engineVersion struct{ major, minor, patch int }

func parseEngineVersion(v string) engineVersion {
	var ev engineVersion
	parts := [3]*int{&ev.major, &ev.minor, &ev.patch}
	idx, num := 0, 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == '.' {
			if idx < 3 {
				*parts[idx] = num
			}
			idx++
			num = 0
			continue
		}
		if v[i] >= '0' && v[i] <= '9' {
			num = num*10 + int(v[i]-'0')
		}
	}
	return ev
}

func (e engineVersion) atLeast(major, minor, patch int) bool {
	if e.major != major {
		return e.major > major
	}
	if e.minor != minor {
		return e.minor > minor
	}
	return e.patch >= patch
}

// StateModule returns the conntrack/state matching module name for the
// given engine version (spec §4.3 "State matching").
func StateModule(version string) string {
	if parseEngineVersion(version).atLeast(1, 4, 4) {
		return "conntrack"
	}
	return "state"
}

// SupportsWaitFlag reports whether -w is available (engine >= 1.4.20).
func SupportsWaitFlag(version string) bool {
	return parseEngineVersion(version).atLeast(1, 4, 20)
}

// SupportsPersistent reports whether --persistent is available (>= 1.4.3).
func SupportsPersistent(version string) bool {
	return parseEngineVersion(version).atLeast(1, 4, 3)
}

// SupportsAdminProhibited reports whether icmp-admin-prohibited is
// available (>= 1.2.9).
func SupportsAdminProhibited(version string) bool {
	return parseEngineVersion(version).atLeast(1, 2, 9)
}

// rejectWithMap is the fixed lookup from iptables reject-type names to the
// iptables --reject-with argument (spec §4.3 "Action → target mapping").
var rejectWithMap = map[string]string{
	"icmp-net-unreachable":   "icmp-net-unreachable",
	"icmp-host-unreachable":  "icmp-host-unreachable",
	"icmp-port-unreachable":  "icmp-port-unreachable",
	"icmp-proto-unreachable": "icmp-proto-unreachable",
	"icmp-net-prohibited":    "icmp-net-prohibited",
	"icmp-host-prohibited":   "icmp-host-prohibited",
	"icmp-admin-prohibited":  "icmp-admin-prohibited",
	"tcp-reset":              "tcp-reset",
}

// ActionTarget maps a policy action to its iptables target, per spec §4.3's
// table. Reject resolves --reject-with via rejectWithMap, downgrading
// icmp-admin-prohibited on engines older than 1.2.9.
func ActionTarget(r *compile.Rule, version string) (target string, args []string) {
	switch r.Action {
	case fwmodel.ActionAccept:
		return "ACCEPT", nil
	case fwmodel.ActionDeny:
		return "DROP", nil
	case fwmodel.ActionReject:
		withArg := ""
		if r.Source != nil {
			withArg = rejectWithMap[r.Source.Options.ActionOnReject]
		}
		if withArg == "icmp-admin-prohibited" && !SupportsAdminProhibited(version) {
			withArg = ""
		}
		if withArg == "" {
			return "REJECT", nil
		}
		return "REJECT", []string{"--reject-with", withArg}
	case fwmodel.ActionReturn:
		return "RETURN", nil
	case fwmodel.ActionContinue:
		return "", nil
	case fwmodel.ActionPipe:
		return "QUEUE", nil
	default:
		if r.Source != nil && r.Source.Options.CustomStr != "" {
			return r.Source.Options.CustomStr, nil
		}
		return "", nil
	}
}
