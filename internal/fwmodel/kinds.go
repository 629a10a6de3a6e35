// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fwmodel is the declarative domain model the rule compiler reads:
// addresses, services, interfaces, devices, groups, rules and rule sets,
// resolved by stable 128-bit identity rather than owning pointers (the
// object graph may be cyclic through groups).
package fwmodel

// AddressKind tags the Address union. Mirrors the single-table-inheritance
// discriminator of the reference model one value per concrete kind, per
// the "tagged union over class hierarchy" re-architecture note.
type AddressKind int

const (
	AddressHostV4 AddressKind = iota
	AddressHostV6
	AddressNetworkV4
	AddressNetworkV6
	AddressRange
	AddressMAC
	AddressDNSName
	AddressTableFile
	AddressAttachedNetworks
	AddressDynamicGroup
	AddressMultiRunTime
)

// ServiceKind tags the Service union.
type ServiceKind int

const (
	ServiceTCP ServiceKind = iota
	ServiceUDP
	ServiceICMP
	ServiceICMP6
	ServiceIP
	ServiceCustom
	ServiceUser
	ServiceTag
)

// RuleKind distinguishes the three rule families that share the processor
// framework (spec §3.1, §4.1).
type RuleKind int

const (
	RuleKindPolicy RuleKind = iota
	RuleKindNAT
	RuleKindRouting
)

// RuleSetKind mirrors RuleKind at the rule-set level.
type RuleSetKind int

const (
	RuleSetPolicy RuleSetKind = iota
	RuleSetNAT
	RuleSetRouting
)

// Direction is the policy-rule traffic direction.
type Direction int

const (
	DirectionUndefined Direction = iota
	DirectionInbound
	DirectionOutbound
	DirectionBoth
)

// PolicyAction is the policy-rule action.
type PolicyAction int

const (
	ActionAccept PolicyAction = iota
	ActionReject
	ActionDeny
	ActionReturn
	ActionContinue
	ActionAccounting
	ActionBranch
	ActionModify
	ActionPipe
	ActionCustom
)

// NATAction is the NAT-rule action.
type NATAction int

const (
	NATActionTranslate NATAction = iota
	NATActionBranch
)

// NATRuleType is derived during compilation by the IPT NAT classifier
// (iptc.ClassifyNAT, spec §4.4 step 4).
type NATRuleType int

const (
	NATNone NATRuleType = iota
	NATSNAT
	NATDNAT
	NATSNetnat
	NATDNetnat
	NATMasq
	NATRedirect
	NATSDNAT
	NATBranch
	NATReturn
	NATContinue
	NATSkip
	NATLoadBalance
)

// RoutingRuleType tags a routing rule (structurally parallel to NAT/Policy
// but out of this module's implementation scope per spec §1 — kept here
// only so CompRule's routing slots type-check).
type RoutingRuleType int

const (
	RoutingStatic RoutingRuleType = iota
)

// DeviceKind distinguishes Host/Firewall/Cluster.
type DeviceKind int

const (
	DeviceHost DeviceKind = iota
	DeviceFirewall
	DeviceCluster
)

// GroupKind tags the Group union.
type GroupKind int

const (
	GroupObject GroupKind = iota
	GroupService
	GroupInterval
)

// Platform is the target backend engine.
type Platform int

const (
	PlatformIPT Platform = iota
	PlatformNFT
)

func (p Platform) String() string {
	if p == PlatformNFT {
		return "nftables"
	}
	return "iptables"
}
