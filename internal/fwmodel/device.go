// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import "github.com/google/uuid"

// Options is a firewall's typed option record (spec §6.3). The handful of
// options that actually gate pipeline behavior are promoted to first-class
// fields; the remaining ~60 recognized keys (kernel tunables, paths, output
// formatting) that the pipeline only passes through opaquely to the
// OS-configurator / script-assembly collaborators live in Extra, per the
// "typed fields plus escape hatch" re-architecture note (spec §9.1) — never
// use Extra when a typed field exists.
type Options struct {
	FirewallIsPartOfAnyAndNetworks bool
	AcceptNewTCPWithNoSyn          bool
	AcceptEstablished              bool
	DropInvalid                    bool
	LogInvalid                     bool
	CheckShading                   bool
	IgnoreEmptyGroups              bool
	BridgingFW                     bool
	ClampMSSToMTU                  bool
	IPv6NeighborDiscovery          bool

	LogLevel  string
	LogPrefix string
	UseULOG   bool
	UseNFLog  bool
	LogAll    bool

	UseIptablesRestore bool
	ActionOnReject     string

	DataDir string

	Extra map[string]string
}

// Device is Host | Firewall | Cluster (spec §3.1).
type Device struct {
	ID       uuid.UUID
	Name     string
	Kind     DeviceKind
	Platform Platform
	Version  string

	Interfaces []*Interface
	RuleSets   []*RuleSet

	Options Options
}

// IsFirewall reports whether this device compiles rule sets (Firewall or
// Cluster, as opposed to a plain Host referenced only as an address).
func (d *Device) IsFirewall() bool {
	return d.Kind == DeviceFirewall || d.Kind == DeviceCluster
}
