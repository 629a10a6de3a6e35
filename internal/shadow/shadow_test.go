// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package shadow

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
)

func newTestLibrary() (*fwmodel.Library, uuid.UUID, uuid.UUID) {
	lib := fwmodel.NewLibrary()
	broadID := uuid.New()
	lib.Addresses[broadID] = &fwmodel.Address{ID: broadID, Kind: fwmodel.AddressNetworkV4, Addr: netip.MustParseAddr("10.0.0.0"), PrefixLen: 8}
	narrowID := uuid.New()
	lib.Addresses[narrowID] = &fwmodel.Address{ID: narrowID, Kind: fwmodel.AddressHostV4, Addr: netip.MustParseAddr("10.1.2.3")}
	return lib, broadID, narrowID
}

func mkRule(label, chain string, src []uuid.UUID) *compile.Rule {
	model := &fwmodel.Rule{ID: uuid.New(), Label: label, Negations: map[string]bool{}}
	r := compile.FromModel(model)
	r.IPTChain = chain
	r.Src = src
	r.Direction = fwmodel.DirectionBoth
	return r
}

func TestDetectShadowingFlagsSubsumedRule(t *testing.T) {
	lib, broad, narrow := newTestLibrary()

	earlier := mkRule("allow-net", "FORWARD", []uuid.UUID{broad})
	later := mkRule("allow-host", "FORWARD", []uuid.UUID{narrow})

	sink := fwerrors.NewSink()
	src := procfw.NewSliceSource([]*compile.Rule{earlier, later})
	DetectShadowing(src, lib, sink)

	require.True(t, sink.Aborted(), "expected shadow detection to abort compilation")
	diags := sink.Diagnostics()
	require.Len(t, diags, 1)
	require.Equal(t, fwerrors.KindSemantic, diags[0].Kind)
	require.Contains(t, diags[0].Message, "Rule 'allow-net' shadows rule 'allow-host' below it")
}

func TestDetectShadowingIgnoresDifferentChains(t *testing.T) {
	lib, broad, narrow := newTestLibrary()

	earlier := mkRule("allow-net", "INPUT", []uuid.UUID{broad})
	later := mkRule("allow-host", "FORWARD", []uuid.UUID{narrow})

	sink := fwerrors.NewSink()
	src := procfw.NewSliceSource([]*compile.Rule{earlier, later})
	DetectShadowing(src, lib, sink)

	if sink.Aborted() {
		t.Errorf("rules on different chains must not shadow each other")
	}
}

func TestDetectShadowingExcludesNegatedRules(t *testing.T) {
	lib, broad, narrow := newTestLibrary()

	earlier := mkRule("allow-net", "FORWARD", []uuid.UUID{broad})
	earlier.Neg["src"] = true
	later := mkRule("allow-host", "FORWARD", []uuid.UUID{narrow})

	sink := fwerrors.NewSink()
	src := procfw.NewSliceSource([]*compile.Rule{earlier, later})
	DetectShadowing(src, lib, sink)

	if sink.Aborted() {
		t.Errorf("a rule with slot-level negation must be excluded from shadow detection")
	}
}
