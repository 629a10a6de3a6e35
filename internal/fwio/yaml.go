// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fwio is the persistence collaborator stub: a minimal on-disk
// loader that turns a YAML document into a fwmodel.Library plus the
// firewalls to compile. Loading/saving the full domain model is out of
// scope (spec §1 Non-goals); this exists only so cmd/fwcompile has
// something concrete to read before invoking the compiler.
package fwio

import (
	"fmt"
	"io"
	"net/netip"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

// Document is the YAML shape a fixture file takes: flat lists of objects
// keyed by name, resolved into a fwmodel.Library on load.
type Document struct {
	Addresses []AddressDoc  `yaml:"addresses"`
	Services  []ServiceDoc  `yaml:"services"`
	Firewalls []FirewallDoc `yaml:"firewalls"`
}

// AddressDoc is one address-table entry.
type AddressDoc struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Addr    string `yaml:"addr"`
	Prefix  int    `yaml:"prefix"`
	Comment string `yaml:"comment"`
}

// ServiceDoc is one service-table entry.
type ServiceDoc struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	DstStart int    `yaml:"dst_start"`
	DstEnd   int    `yaml:"dst_end"`
}

// FirewallDoc is one firewall/device entry.
type FirewallDoc struct {
	Name     string `yaml:"name"`
	Platform string `yaml:"platform"` // "iptables" | "nftables"
	Version  string `yaml:"version"`
}

// Load parses r into a fwmodel.Library. It is intentionally forgiving of
// unknown kind strings (treated as AddressHostV4 / ServiceTCP) since this
// loader only needs to support the compiler's own fixtures, not a full
// schema (spec §1 Non-goals: persistence/loading is a collaborator's job in
// the full system, not the rule-compilation core).
func Load(r io.Reader) (*fwmodel.Library, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("fwio: decode yaml: %w", err)
	}

	lib := fwmodel.NewLibrary()
	for _, a := range doc.Addresses {
		id := uuid.New()
		addr, _ := netip.ParseAddr(a.Addr)
		lib.Addresses[id] = &fwmodel.Address{
			ID:        id,
			Name:      a.Name,
			Kind:      addressKindOf(a.Kind),
			Addr:      addr,
			PrefixLen: a.Prefix,
			Comment:   a.Comment,
		}
	}
	for _, s := range doc.Services {
		id := uuid.New()
		lib.Services[id] = &fwmodel.Service{
			ID:            id,
			Name:          s.Name,
			Kind:          serviceKindOf(s.Kind),
			DstRangeStart: s.DstStart,
			DstRangeEnd:   s.DstEnd,
		}
	}
	for _, f := range doc.Firewalls {
		id := uuid.New()
		platform := fwmodel.PlatformIPT
		if f.Platform == "nftables" {
			platform = fwmodel.PlatformNFT
		}
		lib.Devices[id] = &fwmodel.Device{ID: id, Name: f.Name, Kind: fwmodel.DeviceFirewall, Platform: platform, Version: f.Version}
	}
	return lib, nil
}

func addressKindOf(s string) fwmodel.AddressKind {
	switch s {
	case "network_v4":
		return fwmodel.AddressNetworkV4
	case "network_v6":
		return fwmodel.AddressNetworkV6
	case "host_v6":
		return fwmodel.AddressHostV6
	case "range":
		return fwmodel.AddressRange
	case "mac":
		return fwmodel.AddressMAC
	case "dns_name":
		return fwmodel.AddressDNSName
	default:
		return fwmodel.AddressHostV4
	}
}

func serviceKindOf(s string) fwmodel.ServiceKind {
	switch s {
	case "udp":
		return fwmodel.ServiceUDP
	case "icmp":
		return fwmodel.ServiceICMP
	case "icmp6":
		return fwmodel.ServiceICMP6
	case "ip":
		return fwmodel.ServiceIP
	default:
		return fwmodel.ServiceTCP
	}
}
