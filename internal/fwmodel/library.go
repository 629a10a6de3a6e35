// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import "github.com/google/uuid"

// Library is the object arena keyed by stable 128-bit ID (spec §9.1's
// "arena-by-UUID" note) — rule element slots, group members and interface
// addresses hold uuid.UUIDs into these maps rather than pointers, so the
// (possibly cyclic) group graph never needs a cycle-aware allocator. A
// Device holds its Interfaces and RuleSets as pointers.
type Library struct {
	Addresses  map[uuid.UUID]*Address
	Services   map[uuid.UUID]*Service
	Interfaces map[uuid.UUID]*Interface
	Devices    map[uuid.UUID]*Device
	Groups     map[uuid.UUID]*Group
}

// NewLibrary returns an empty arena.
func NewLibrary() *Library {
	return &Library{
		Addresses:  map[uuid.UUID]*Address{},
		Services:   map[uuid.UUID]*Service{},
		Interfaces: map[uuid.UUID]*Interface{},
		Devices:    map[uuid.UUID]*Device{},
		Groups:     map[uuid.UUID]*Group{},
	}
}

// LookupGroup implements the callback ExpandGroup needs: is id a Group (and
// if so, which), or a leaf?
func (l *Library) LookupGroup(id uuid.UUID) (*Group, bool) {
	g, ok := l.Groups[id]
	return g, ok
}

// ObjectCategory categorizes what an ID resolves to, for diagnostics.
type ObjectCategory int

const (
	CategoryUnknown ObjectCategory = iota
	CategoryAddress
	CategoryService
	CategoryInterface
	CategoryDevice
	CategoryGroup
)

// Categorize reports which arena (if any) holds id.
func (l *Library) Categorize(id uuid.UUID) ObjectCategory {
	if _, ok := l.Addresses[id]; ok {
		return CategoryAddress
	}
	if _, ok := l.Services[id]; ok {
		return CategoryService
	}
	if _, ok := l.Interfaces[id]; ok {
		return CategoryInterface
	}
	if _, ok := l.Devices[id]; ok {
		return CategoryDevice
	}
	if _, ok := l.Groups[id]; ok {
		return CategoryGroup
	}
	return CategoryUnknown
}

// ExpandAddressGroup expands a group ID that is known to resolve to
// addresses (or nested address groups) into its leaf Address IDs.
func (l *Library) ExpandAddressGroup(id uuid.UUID) []uuid.UUID {
	g, ok := l.Groups[id]
	if !ok {
		return []uuid.UUID{id}
	}
	return ExpandGroup(g, l.LookupGroup, nil)
}

// ExpandServiceGroup expands a group ID known to resolve to services.
func (l *Library) ExpandServiceGroup(id uuid.UUID) []uuid.UUID {
	return l.ExpandAddressGroup(id) // identical mechanics, arena-agnostic
}
