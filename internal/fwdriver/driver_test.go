// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwdriver

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

// TestCompileOnePassNATReplacesFirewallInTSrc exercises the NAT-kind branch
// wired into compileOnePass: an SNAT rule whose tsrc names the firewall
// itself must come out the other end with tsrc resolved to a concrete
// address on the interface facing odst (spec §4.4 step 9).
func TestCompileOnePassNATReplacesFirewallInTSrc(t *testing.T) {
	lib := fwmodel.NewLibrary()

	insideAddrID := uuid.New()
	lib.Addresses[insideAddrID] = &fwmodel.Address{ID: insideAddrID, Kind: fwmodel.AddressHostV4, Addr: netip.MustParseAddr("10.0.0.1")}
	outsideAddrID := uuid.New()
	lib.Addresses[outsideAddrID] = &fwmodel.Address{ID: outsideAddrID, Kind: fwmodel.AddressHostV4, Addr: netip.MustParseAddr("203.0.113.1")}

	outsideNetID := uuid.New()
	lib.Addresses[outsideNetID] = &fwmodel.Address{ID: outsideNetID, Kind: fwmodel.AddressNetworkV4, Addr: netip.MustParseAddr("203.0.113.0"), PrefixLen: 24}
	destID := uuid.New()
	lib.Addresses[destID] = &fwmodel.Address{ID: destID, Kind: fwmodel.AddressHostV4, Addr: netip.MustParseAddr("203.0.113.50")}

	inside := &fwmodel.Interface{ID: uuid.New(), Name: "eth0", Addresses: []uuid.UUID{insideAddrID}}
	outside := &fwmodel.Interface{ID: uuid.New(), Name: "eth1", Addresses: []uuid.UUID{outsideAddrID, outsideNetID}}

	fwID := uuid.New()
	fw := &fwmodel.Device{
		ID:         fwID,
		Name:       "gw",
		Kind:       fwmodel.DeviceFirewall,
		Platform:   fwmodel.PlatformIPT,
		Version:    "1.8.7",
		Interfaces: []*fwmodel.Interface{inside, outside},
	}
	lib.Devices[fwID] = fw

	rule := &fwmodel.Rule{
		ID:        uuid.New(),
		Kind:      fwmodel.RuleKindNAT,
		Negations: map[string]bool{},
		TSrc:      []uuid.UUID{insideAddrID}, // names the firewall: insideAddrID belongs to eth0
		ODst:      []uuid.UUID{destID},
	}
	rs := &fwmodel.RuleSet{ID: uuid.New(), Name: "nat", Kind: fwmodel.RuleSetNAT, IPv4: true, Top: true, Rules: []*fwmodel.Rule{rule}}
	fw.RuleSets = []*fwmodel.RuleSet{rs}

	result := compileOnePass(lib, fw, rs, false)

	if len(result.Diagnostics) > 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("got %d lines, want 1: %+v", len(result.Lines), result.Lines)
	}
	line := result.Lines[0]
	if line.Chain != "POSTROUTING" {
		t.Errorf("Chain = %q, want POSTROUTING", line.Chain)
	}
	if !strings.Contains(line.Text, "-j SNAT --to-source 203.0.113.1") {
		t.Errorf("Text = %q, want it to SNAT to the outside interface's address", line.Text)
	}
}
