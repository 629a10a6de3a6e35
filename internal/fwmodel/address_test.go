// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"
)

func TestAddressContains(t *testing.T) {
	net1 := &Address{Kind: AddressNetworkV4, Addr: netip.MustParseAddr("10.0.0.0"), PrefixLen: 8}
	host := &Address{Kind: AddressHostV4, Addr: netip.MustParseAddr("10.1.2.3")}
	outside := &Address{Kind: AddressHostV4, Addr: netip.MustParseAddr("192.168.1.1")}
	v6host := &Address{Kind: AddressHostV6, Addr: netip.MustParseAddr("::1")}

	tests := []struct {
		name     string
		sup, sub *Address
		want     bool
	}{
		{"network contains host within range", net1, host, true},
		{"network does not contain host outside range", net1, outside, false},
		{"mismatched address families never contain", net1, v6host, false},
		{"host contains itself", host, host, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddressContains(tt.sup, tt.sub); got != tt.want {
				t.Errorf("AddressContains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandGroupBreaksCycles(t *testing.T) {
	a := &Group{ID: uuid.New(), Kind: GroupObject}
	b := &Group{ID: uuid.New(), Kind: GroupObject}
	leaf := uuid.New()

	a.Members = []uuid.UUID{b.ID}
	b.Members = []uuid.UUID{a.ID, leaf}

	lookup := func(id uuid.UUID) (*Group, bool) {
		switch id {
		case a.ID:
			return a, true
		case b.ID:
			return b, true
		default:
			return nil, false
		}
	}

	got := ExpandGroup(a, lookup, nil)
	if len(got) != 1 || got[0] != leaf {
		t.Errorf("ExpandGroup() = %v, want [%v]", got, leaf)
	}
}
