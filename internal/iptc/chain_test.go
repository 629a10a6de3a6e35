// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"testing"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

func newFirewallFixture() (*fwmodel.Library, *fwmodel.Device) {
	lib := fwmodel.NewLibrary()
	fwAddrID := uuid.New()
	lib.Addresses[fwAddrID] = &fwmodel.Address{ID: fwAddrID, Kind: fwmodel.AddressHostV4}
	iface := &fwmodel.Interface{ID: uuid.New(), Name: "eth0", Addresses: []uuid.UUID{fwAddrID}}
	fw := &fwmodel.Device{
		ID:         uuid.New(),
		Kind:       fwmodel.DeviceFirewall,
		Platform:   fwmodel.PlatformIPT,
		Interfaces: []*fwmodel.Interface{iface},
	}
	lib.Devices[fw.ID] = fw
	return lib, fw
}

func TestDecideChainInboundToFirewall(t *testing.T) {
	lib, fw := newFirewallFixture()
	fwAddrID := fw.Interfaces[0].Addresses[0]

	rs := &fwmodel.RuleSet{Top: true}
	ctx := compile.NewContext(lib, fw, rs, fwmodel.PlatformIPT, false)

	model := &fwmodel.Rule{ID: uuid.New(), Negations: map[string]bool{}}
	r := compile.FromModel(model)
	r.Dst = []uuid.UUID{fwAddrID}
	r.Direction = fwmodel.DirectionInbound

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(DecideChain(src, ctx))

	if len(out) != 1 {
		t.Fatalf("got %d rules, want 1", len(out))
	}
	if out[0].IPTChain != "INPUT" {
		t.Errorf("IPTChain = %q, want INPUT", out[0].IPTChain)
	}
}

func TestDecideChainDefaultsToForward(t *testing.T) {
	lib, fw := newFirewallFixture()
	rs := &fwmodel.RuleSet{Top: true}
	ctx := compile.NewContext(lib, fw, rs, fwmodel.PlatformIPT, false)

	model := &fwmodel.Rule{ID: uuid.New(), Negations: map[string]bool{}}
	r := compile.FromModel(model)
	otherHost := uuid.New()
	lib.Addresses[otherHost] = &fwmodel.Address{ID: otherHost, Kind: fwmodel.AddressHostV4}
	r.Src = []uuid.UUID{otherHost}
	r.Dst = []uuid.UUID{otherHost}
	r.Direction = fwmodel.DirectionBoth

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(DecideChain(src, ctx))

	if len(out) != 1 || out[0].IPTChain != "FORWARD" {
		t.Errorf("expected a single FORWARD rule for a rule between two non-firewall hosts, got %+v", out)
	}
}

func TestMarkMultiport(t *testing.T) {
	lib := fwmodel.NewLibrary()
	tests := []struct {
		name string
		svcs []*fwmodel.Service
		want bool
	}{
		{
			name: "all single-port tcp under limit",
			svcs: []*fwmodel.Service{
				{Kind: fwmodel.ServiceTCP, DstRangeStart: 80, DstRangeEnd: 80},
				{Kind: fwmodel.ServiceTCP, DstRangeStart: 443, DstRangeEnd: 443},
			},
			want: true,
		},
		{
			name: "mixed protocols disqualify",
			svcs: []*fwmodel.Service{
				{Kind: fwmodel.ServiceTCP, DstRangeStart: 80, DstRangeEnd: 80},
				{Kind: fwmodel.ServiceUDP, DstRangeStart: 53, DstRangeEnd: 53},
			},
			want: false,
		},
		{
			name: "port range disqualifies",
			svcs: []*fwmodel.Service{
				{Kind: fwmodel.ServiceTCP, DstRangeStart: 1024, DstRangeEnd: 2048},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fwmodel.Rule{ID: uuid.New(), Negations: map[string]bool{}}
			r := compile.FromModel(model)
			for _, s := range tt.svcs {
				s.ID = uuid.New()
				lib.Services[s.ID] = s
				r.Srv = append(r.Srv, s.ID)
			}

			src := procfw.NewSliceSource([]*compile.Rule{r})
			out := procfw.Slurp(MarkMultiport(src, lib))

			if out[0].IPTMultiport != tt.want {
				t.Errorf("IPTMultiport = %v, want %v", out[0].IPTMultiport, tt.want)
			}
		})
	}
}
