// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package genproc

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

func newRule(lib *fwmodel.Library) *compile.Rule {
	model := &fwmodel.Rule{ID: uuid.New(), Negations: map[string]bool{}}
	return compile.FromModel(model)
}

func TestExpandGroupsSortsBySlotName(t *testing.T) {
	lib := fwmodel.NewLibrary()
	bID, aID := uuid.New(), uuid.New()
	lib.Addresses[bID] = &fwmodel.Address{ID: bID, Name: "bravo"}
	lib.Addresses[aID] = &fwmodel.Address{ID: aID, Name: "alpha"}

	r := newRule(lib)
	r.Src = []uuid.UUID{bID, aID}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(ExpandGroups(src, lib))

	if len(out) != 1 || len(out[0].Src) != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out[0].Src[0] != aID || out[0].Src[1] != bID {
		t.Errorf("Src not sorted by name: got %v", out[0].Src)
	}
}

func TestExpandGroupsExpandsAndBreaksCycles(t *testing.T) {
	lib := fwmodel.NewLibrary()
	leaf := uuid.New()
	lib.Addresses[leaf] = &fwmodel.Address{ID: leaf, Name: "leaf"}

	gA := &fwmodel.Group{ID: uuid.New(), Kind: fwmodel.GroupObject}
	gB := &fwmodel.Group{ID: uuid.New(), Kind: fwmodel.GroupObject}
	gA.Members = []uuid.UUID{gB.ID}
	gB.Members = []uuid.UUID{gA.ID, leaf}
	lib.Groups[gA.ID] = gA
	lib.Groups[gB.ID] = gB

	r := newRule(lib)
	r.Src = []uuid.UUID{gA.ID}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(ExpandGroups(src, lib))

	if len(out) != 1 || len(out[0].Src) != 1 || out[0].Src[0] != leaf {
		t.Errorf("expected cycle-safe expansion to [leaf], got %+v", out[0].Src)
	}
}

func TestDropByAddressFamilyRemovesMismatchedFamily(t *testing.T) {
	lib := fwmodel.NewLibrary()
	v4 := uuid.New()
	lib.Addresses[v4] = &fwmodel.Address{ID: v4, Kind: fwmodel.AddressHostV4, Addr: netip.MustParseAddr("10.0.0.1")}
	v6 := uuid.New()
	lib.Addresses[v6] = &fwmodel.Address{ID: v6, Kind: fwmodel.AddressHostV6, Addr: netip.MustParseAddr("::1")}

	r := newRule(lib)
	r.Src = []uuid.UUID{v4, v6}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(DropByAddressFamily(src, lib, false))

	if len(out) != 1 || len(out[0].Src) != 1 || out[0].Src[0] != v4 {
		t.Errorf("expected only the v4 address to survive an IPv4 pass, got %+v", out)
	}
}

func TestDropByAddressFamilyDropsRuleWhenSlotEmptied(t *testing.T) {
	lib := fwmodel.NewLibrary()
	v6 := uuid.New()
	lib.Addresses[v6] = &fwmodel.Address{ID: v6, Kind: fwmodel.AddressHostV6, Addr: netip.MustParseAddr("::1")}

	r := newRule(lib)
	r.Src = []uuid.UUID{v6}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(DropByAddressFamily(src, lib, false))

	if len(out) != 0 {
		t.Errorf("expected the rule to be dropped when its only src becomes empty, got %d rules", len(out))
	}
}

func TestGroupServicesByProtocolSplitsByDefault(t *testing.T) {
	lib := fwmodel.NewLibrary()
	tcpID, udpID := uuid.New(), uuid.New()
	lib.Services[tcpID] = &fwmodel.Service{ID: tcpID, Kind: fwmodel.ServiceTCP, DstRangeStart: 80, DstRangeEnd: 80}
	lib.Services[udpID] = &fwmodel.Service{ID: udpID, Kind: fwmodel.ServiceUDP, DstRangeStart: 80, DstRangeEnd: 80}

	r := newRule(lib)
	r.Srv = []uuid.UUID{tcpID, udpID}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(GroupServicesByProtocol(src, lib, false))

	if len(out) != 2 {
		t.Fatalf("expected a split into 2 rules without merging, got %d", len(out))
	}
}

func TestGroupServicesByProtocolMergesIdenticalTCPUDPPorts(t *testing.T) {
	lib := fwmodel.NewLibrary()
	tcpID, udpID := uuid.New(), uuid.New()
	lib.Services[tcpID] = &fwmodel.Service{ID: tcpID, Kind: fwmodel.ServiceTCP, DstRangeStart: 53, DstRangeEnd: 53}
	lib.Services[udpID] = &fwmodel.Service{ID: udpID, Kind: fwmodel.ServiceUDP, DstRangeStart: 53, DstRangeEnd: 53}

	r := newRule(lib)
	r.Srv = []uuid.UUID{tcpID, udpID}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(GroupServicesByProtocol(src, lib, true))

	if len(out) != 1 || !out[0].MergedTCPUDP {
		t.Errorf("expected identical tcp/udp port 53 to merge into one MergedTCPUDP rule, got %+v", out)
	}
}

func TestAtomizeForAddressesProducesCartesianOrder(t *testing.T) {
	lib := fwmodel.NewLibrary()
	s1, s2 := uuid.New(), uuid.New()
	d1, d2 := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{s1, s2, d1, d2} {
		lib.Addresses[id] = &fwmodel.Address{ID: id}
	}

	r := newRule(lib)
	r.Src = []uuid.UUID{s1, s2}
	r.Dst = []uuid.UUID{d1, d2}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(AtomizeForAddresses(src))

	if len(out) != 4 {
		t.Fatalf("got %d rules, want 4", len(out))
	}
	want := [][2]uuid.UUID{{s1, d1}, {s1, d2}, {s2, d1}, {s2, d2}}
	for i, w := range want {
		if out[i].Src[0] != w[0] || out[i].Dst[0] != w[1] {
			t.Errorf("rule %d: got src=%v dst=%v, want src=%v dst=%v", i, out[i].Src[0], out[i].Dst[0], w[0], w[1])
		}
	}
}

func TestEliminateDuplicatesPreservesFirstSeenOrder(t *testing.T) {
	lib := fwmodel.NewLibrary()
	a, b := uuid.New(), uuid.New()

	r := newRule(lib)
	r.Src = []uuid.UUID{a, b, a}

	src := procfw.NewSliceSource([]*compile.Rule{r})
	out := procfw.Slurp(EliminateDuplicates(src, "src"))

	if len(out[0].Src) != 2 || out[0].Src[0] != a || out[0].Src[1] != b {
		t.Errorf("EliminateDuplicates() = %v, want [a b]", out[0].Src)
	}
}
