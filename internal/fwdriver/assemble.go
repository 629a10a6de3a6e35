// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwdriver

import (
	"fmt"
	"io"

	"go.linuxfabrik.ch/fwcompile/internal/iptc"
	"go.linuxfabrik.ch/fwcompile/internal/nftc"
)

// WriteIPT writes res's iptables-restore-format lines, grouped by chain and
// wrapped in the `*filter` / `COMMIT` block the restore format requires.
// Assembling a full boot script (ordering multiple tables, shell
// scaffolding, deployment) is a collaborator's job, out of this compiler's
// scope (spec §1 Non-goals "script-assembly templating"); this only renders
// the one table's worth of lines this pass produced.
func WriteIPT(w io.Writer, res *PassResult) error {
	if len(res.Lines) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "*filter"); err != nil {
		return err
	}
	byChain := map[string][]string{}
	var order []string
	for _, l := range res.Lines {
		if _, seen := byChain[l.Chain]; !seen {
			order = append(order, l.Chain)
		}
		byChain[l.Chain] = append(byChain[l.Chain], l.Text)
	}
	for _, chain := range order {
		if iptc.IsStandardChain(chain) {
			continue
		}
		if _, err := fmt.Fprintf(w, ":%s - [0:0]\n", chain); err != nil {
			return err
		}
	}
	for _, chain := range order {
		for _, line := range byChain[chain] {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "COMMIT")
	return err
}

// WriteNFT writes res's nftables lines grouped into per-chain blocks. Every
// base chain (input/output/forward/prerouting/postrouting) gets its
// `type filter hook ...; policy ...;` header line (spec §6.4); a non-base
// (temp/branch) chain gets a bare chain block, matching BuildChainHeader.
func WriteNFT(w io.Writer, res *PassResult, table string) error {
	if len(res.NFTLines) == 0 {
		return nil
	}
	byChain := map[string][]string{}
	var order []string
	for _, l := range res.NFTLines {
		if _, seen := byChain[l.Chain]; !seen {
			order = append(order, l.Chain)
		}
		byChain[l.Chain] = append(byChain[l.Chain], l.Text)
	}
	if _, err := fmt.Fprintf(w, "table inet %s {\n", table); err != nil {
		return err
	}
	for _, chain := range order {
		for _, headerLine := range nftc.BuildChainHeader(table, chain, "drop") {
			if _, err := fmt.Fprintf(w, "\t%s\n", headerLine); err != nil {
				return err
			}
		}
		for _, line := range byChain[chain] {
			if _, err := fmt.Fprintf(w, "\t\t%s\n", line); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "\t}"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
