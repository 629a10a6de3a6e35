// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import (
	"strings"

	"github.com/google/uuid"
)

// Interface is a named attachment point on a Device (spec §3.1).
type Interface struct {
	ID       uuid.UUID
	Name     string // may end in '*' denoting a wildcard, emitted as '+' in IPT
	Label    string
	Dynamic  bool
	Unnumbered bool
	BridgePort bool
	Slave      bool
	SecurityLevel string
	Management    bool

	ParentInterfaceID uuid.UUID
	HasParent         bool

	Addresses []uuid.UUID // ordered list of Address IDs
}

// IsLoopback mirrors the original's Interface.is_loopback(): name == "lo".
func (i *Interface) IsLoopback() bool { return i.Name == "lo" }

// IsWildcard reports whether the interface name ends in '*'.
func (i *Interface) IsWildcard() bool { return strings.HasSuffix(i.Name, "*") }

// IsRegular mirrors is_regular(): not dynamic, not unnumbered, not a bridge port.
func (i *Interface) IsRegular() bool { return !i.Dynamic && !i.Unnumbered && !i.BridgePort }

// IPTName renders the interface name for IPT syntax, replacing the
// wildcard suffix with '+' (spec §8.3 boundary behavior).
func (i *Interface) IPTName() string {
	return strings.ReplaceAll(i.Name, "*", "+")
}
