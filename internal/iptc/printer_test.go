// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package iptc

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

func TestPrinterRenderEmitsChainCreateThenRule(t *testing.T) {
	lib, fw := newFirewallFixture()
	rs := &fwmodel.RuleSet{Top: true}
	ctx := compile.NewContext(lib, fw, rs, fwmodel.PlatformIPT, false)

	model := &fwmodel.Rule{ID: uuid.New(), Negations: map[string]bool{}}
	r := compile.FromModel(model)
	r.IPTChain = "BRANCH_test"
	r.Action = fwmodel.ActionAccept

	printer := &Printer{Format: FormatShell, EngineVersion: "1.8.7", Library: lib, Context: ctx}

	lines := printer.Render(r)
	require.Len(t, lines, 2, "first rule on a non-standard chain must emit a chain-create line")
	require.Equal(t, Line{Chain: "BRANCH_test", Text: "$IPTABLES -w -N BRANCH_test", Create: true}, lines[0])
	require.Equal(t, "BRANCH_test", lines[1].Chain)
	require.False(t, lines[1].Create)
	require.Contains(t, lines[1].Text, "-A BRANCH_test")
	require.Contains(t, lines[1].Text, "-j ACCEPT")

	again := printer.Render(r)
	require.Len(t, again, 1, "the chain must not be -N-created twice in the same pass")
}

func TestPrinterRuleTextHasNoChainDeclareSideEffect(t *testing.T) {
	lib, fw := newFirewallFixture()
	rs := &fwmodel.RuleSet{Top: true}
	ctx := compile.NewContext(lib, fw, rs, fwmodel.PlatformIPT, false)

	model := &fwmodel.Rule{ID: uuid.New(), Negations: map[string]bool{}}
	r := compile.FromModel(model)
	r.IPTChain = "BRANCH_test"
	r.Action = fwmodel.ActionAccept

	printer := &Printer{Format: FormatShell, EngineVersion: "1.8.7", Library: lib, Context: ctx}

	text := printer.RuleText(r)
	require.Equal(t, printer.buildRuleCommand(r), text)

	lines := printer.Render(r)
	require.Len(t, lines, 2, "RuleText must not have already declared the chain")
}
