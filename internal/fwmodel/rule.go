// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import "github.com/google/uuid"

// RuleOptions is the closed set of typed per-rule options (spec §3.1).
// Per-rule values take precedence over the firewall-wide Options when both
// apply (spec §6.3).
type RuleOptions struct {
	LimitValue    int
	LimitValueNot bool
	LimitSuffix   string
	LimitBurst    int

	HashlimitValue  int
	HashlimitSuffix string
	HashlimitBurst  int
	HashlimitName   string

	ConnlimitValue    int
	ConnlimitAboveNot bool
	ConnlimitMasklen  int

	LogLevel    string
	LogPrefix   string
	Log         bool
	Logging     bool
	CounterName string

	Disabled           bool
	Stateless          bool
	IPTContinue        bool
	IPTMarkConnections bool
	NoInputChain       bool
	NoOutputChain      bool
	DoNotOptimizeBySrv bool
	PutInMangleTable   bool

	Tagging        bool
	TagObjectID    string
	ClassifyStr    string
	Routing        bool
	Classification bool

	IPTNatRandom     bool
	IPTNatPersistent bool

	ActionOnReject string
	CustomStr      string

	RuleAddedForOSrcNeg bool
	RuleAddedForODstNeg bool
	RuleAddedForOSrvNeg bool
}

// There are no GetBool/GetString-style lookups: processors read the typed
// fields directly through compile.Rule's Source.Options.

// RuleSet is an ordered sequence of rules scoped to a device (spec §3.1).
type RuleSet struct {
	ID       uuid.UUID
	Name     string
	Kind     RuleSetKind
	DeviceID uuid.UUID

	IPv4 bool
	IPv6 bool
	Top  bool // installed into the platform's root chain

	Rules []*Rule
}

// MatchingAddressFamily mirrors RuleSet.matching_address_family(): if
// neither flag is set, the rule set applies to both families.
func (rs *RuleSet) MatchingAddressFamily(v6 bool) bool {
	if !rs.IPv4 && !rs.IPv6 {
		return true
	}
	if v6 {
		return rs.IPv6
	}
	return rs.IPv4
}

// Rule is a single declarative statement (spec §3.1). Slots are ordered ID
// lists; an empty slot means "any". Negations mirror slot keys one-to-one.
type Rule struct {
	ID       uuid.UUID
	Kind     RuleKind
	Position int
	Label    string
	Comment  string

	Src, Dst, Srv, Itf, When                            []uuid.UUID // policy slots
	OSrc, ODst, OSrv, TSrc, TDst, TSrv, ItfInb, ItfOutb []uuid.UUID // NAT slots
	RDst, RGtw, RItf                                    []uuid.UUID // routing slots

	Negations map[string]bool

	Action      PolicyAction
	NATAction   NATAction
	Direction   Direction
	NATRuleType NATRuleType
	RoutingType RoutingRuleType

	Disabled bool
	Fallback bool
	Hidden   bool

	Options RuleOptions

	CompilerMessage string
}
