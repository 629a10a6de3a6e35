// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import (
	"bufio"
	"io"
	"strings"
)

// addrTableAllowedChars is the exact character set the original address-table
// loader keeps per line before truncating at the first disallowed byte. This
// is a load-bearing quirk, not a bug: historical address-table files carry
// trailing comments and annotations on the same line as the address, and
// downstream consumers have long depended on silent truncation rather than a
// parse error (DESIGN.md open-question #4).
const addrTableAllowedChars = "0123456789abcdef:/."

// LoadAddressTable parses a runtime address-table file: one candidate
// address per line, filtered through addrTableAllowedChars, truncated at the
// first character outside that set. Blank lines and lines beginning with '#'
// are skipped. The original accepted both v4 and v6 literals and CIDR
// blocks; no further validation happens here; resolution against the
// running rule happens at compile time (spec §3.1 MultiAddress, AddressKind
// AddressTableFile).
func LoadAddressTable(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		var b strings.Builder
		for i := 0; i < len(trimmed); i++ {
			c := trimmed[i]
			if strings.IndexByte(addrTableAllowedChars, lower(c)) < 0 {
				break
			}
			b.WriteByte(c)
		}
		if b.Len() == 0 {
			continue
		}
		out = append(out, b.String())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'F' {
		return c - 'A' + 'a'
	}
	return c
}
