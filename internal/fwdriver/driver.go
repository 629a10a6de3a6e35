// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fwdriver orchestrates compilation across firewalls, address
// families, and rule-set kinds: it is the only place concurrency is
// introduced, since the pipeline itself is a synchronous pull chain (spec
// §5).
package fwdriver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.linuxfabrik.ch/fwcompile/internal/compile"
	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
	"go.linuxfabrik.ch/fwcompile/internal/genproc"
	"go.linuxfabrik.ch/fwcompile/internal/iptc"
	"go.linuxfabrik.ch/fwcompile/internal/nftc"
	"go.linuxfabrik.ch/fwcompile/internal/procfw"
	"go.linuxfabrik.ch/fwcompile/internal/shadow"
)

// PassResult holds the output of one (firewall, address-family, rule-set)
// compilation pass.
type PassResult struct {
	Firewall    string
	RuleSet     string
	IPv6        bool
	Lines       []iptc.Line
	NFTLines    []nftc.Line
	Diagnostics []*fwerrors.Error
}

// CompileAll runs every firewall × address-family × rule-set combination.
// Per-firewall, per-family, and per-ruleset-kind passes are independent and
// run concurrently (spec §5 "Parallelism opportunities"); all must finish
// before CompileAll returns, since nothing downstream may see partial
// output.
func CompileAll(ctx context.Context, lib *fwmodel.Library, firewalls []*fwmodel.Device) ([]*PassResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var results []*PassResult

	for _, fw := range firewalls {
		fw := fw
		if !fw.IsFirewall() {
			continue
		}
		for _, ipv6 := range []bool{false, true} {
			ipv6 := ipv6
			for _, rs := range fw.RuleSets {
				rs := rs
				if !rs.MatchingAddressFamily(ipv6) {
					continue
				}
				g.Go(func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					res := compileOnePass(lib, fw, rs, ipv6)
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
					return nil
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fwdriver: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Firewall != results[j].Firewall {
			return results[i].Firewall < results[j].Firewall
		}
		if results[i].RuleSet != results[j].RuleSet {
			return results[i].RuleSet < results[j].RuleSet
		}
		return !results[i].IPv6
	})
	return results, nil
}

func compileOnePass(lib *fwmodel.Library, fw *fwmodel.Device, rs *fwmodel.RuleSet, ipv6 bool) *PassResult {
	ctx := compile.NewContext(lib, fw, rs, fw.Platform, ipv6)
	result := &PassResult{Firewall: fw.Name, RuleSet: rs.Name, IPv6: ipv6}

	if fw.Platform == fwmodel.PlatformIPT && rs.Kind == fwmodel.RuleSetNAT {
		compileNATPass(ctx, lib, fw, rs, result)
		result.Diagnostics = ctx.Sink.Diagnostics()
		if ctx.Sink.Aborted() {
			result.Lines = nil
		}
		return result
	}

	src := genproc.Begin(rs)
	src = genproc.InterfaceAndDirection(src)
	src = genproc.SplitOnBothWithInterface(src)
	resolver := &genproc.MultiAddressResolver{Library: lib, Sink: ctx.Sink, IPv6: ipv6}
	src = resolver.ResolveMultiAddress(src)
	src = genproc.ExpandGroups(src, lib)
	src = genproc.DropRulesWithEmptyRE(src)
	src = genproc.EliminateDuplicates(src, "src")
	src = genproc.EliminateDuplicates(src, "dst")
	src = genproc.EliminateDuplicates(src, "srv")
	src = genproc.FillActionOnReject(src, fw.Options.ActionOnReject)
	src = genproc.DropByAddressFamily(src, lib, ipv6)
	src = genproc.CheckInterfaceAgainstAF(src, lib, ipv6)
	src = genproc.AtomizeForInterfaces(src)

	switch fw.Platform {
	case fwmodel.PlatformIPT:
		src = iptc.DecideChain(src, ctx)
		src = iptc.LowerNegation(src, ctx)
		src = iptc.ApplyLogging(src, ctx)
		src = genproc.GroupServicesByProtocol(src, lib, false)
		src = genproc.SeparatePortRanges(src, lib)
		src = genproc.AtomizeForAddresses(src)
		src = iptc.MarkMultiport(src, lib)
		if fw.Options.CheckShading {
			src = shadow.DetectShadowing(src, lib, ctx.Sink)
		}

		printer := &iptc.Printer{
			Format:        iptc.FormatShell,
			EngineVersion: fw.Version,
			Library:       lib,
			Context:       ctx,
		}
		src = genproc.CountChainUsage(src, ctx)
		src = genproc.DeduplicateByEmittedText(src, ctx, printer.RuleText)
		for {
			r, ok := src.Next()
			if !ok {
				break
			}
			if ctx.Sink.Aborted() {
				break
			}
			result.Lines = append(result.Lines, printer.Render(r)...)
		}

	case fwmodel.PlatformNFT:
		src = genproc.GroupServicesByProtocol(src, lib, nftc.MergeTCPUDP)
		src = genproc.AtomizeForAddresses(src)
		if fw.Options.CheckShading {
			src = shadow.DetectShadowing(src, lib, ctx.Sink)
		}
		src = procfw.Map(src, func(r *compile.Rule) *compile.Rule {
			r.IPTChain = chainFor(r)
			return r
		})

		printer := &nftc.Printer{Library: lib}
		src = genproc.CountChainUsage(src, ctx)
		src = genproc.DeduplicateByEmittedText(src, ctx, func(r *compile.Rule) string {
			return printer.Render(r).Text
		})
		for {
			r, ok := src.Next()
			if !ok {
				break
			}
			if ctx.Sink.Aborted() {
				break
			}
			result.NFTLines = append(result.NFTLines, printer.Render(r))
		}
	}

	result.Diagnostics = ctx.Sink.Diagnostics()
	if ctx.Sink.Aborted() {
		result.Lines = nil
		result.NFTLines = nil
	}
	return result
}

// compileNATPass runs the IPT NAT pipeline (spec §4.4): NAT rules are keyed
// by osrc/odst/osrv/tsrc/tdst/tsrv rather than the policy pipeline's
// src/dst/srv, so it shares only rule enqueueing with the policy path
// before branching into NAT classification, chain routing, and printing.
func compileNATPass(ctx *compile.Context, lib *fwmodel.Library, fw *fwmodel.Device, rs *fwmodel.RuleSet, result *PassResult) {
	src := genproc.Begin(rs)
	src = iptc.ClassifyNAT(src, ctx)
	src = iptc.VerifyNATNegation(src, ctx.Sink)
	src = iptc.ReplaceFirewallInTSrc(src, ctx)
	src = iptc.DecideNATChain(src)

	printer := &iptc.Printer{
		Format:        iptc.FormatShell,
		EngineVersion: fw.Version,
		Library:       lib,
		Context:       ctx,
	}
	src = genproc.CountChainUsage(src, ctx)
	src = genproc.DeduplicateByEmittedText(src, ctx, printer.PrintNAT)
	for {
		r, ok := src.Next()
		if !ok {
			break
		}
		if ctx.Sink.Aborted() {
			break
		}
		if r.IPTChain == "" {
			continue
		}
		result.Lines = append(result.Lines, iptc.Line{Chain: r.IPTChain, Text: printer.PrintNAT(r)})
	}
}

func chainFor(r *compile.Rule) string {
	if r.IPTChain != "" {
		return r.IPTChain
	}
	return "forward"
}
