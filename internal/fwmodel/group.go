// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import "github.com/google/uuid"

// Group is an ordered container of references to leaves or other groups
// (spec §3.1). Groups may be cyclic; ExpandGroup below detects and breaks
// cycles rather than recursing forever.
type Group struct {
	ID      uuid.UUID
	Name    string
	Kind    GroupKind
	Members []uuid.UUID // ordered; may reference leaves or other groups
}

// ExpandGroup recursively expands g into its leaf member IDs, skipping
// members already visited to break cycles (spec §3.1, §8.1 P10, P9).
// lookup resolves an ID to either a *Group (recurse) or a leaf (stop).
func ExpandGroup(g *Group, lookup func(uuid.UUID) (group *Group, isGroup bool), seen map[uuid.UUID]bool) []uuid.UUID {
	if seen == nil {
		seen = map[uuid.UUID]bool{}
	}
	if seen[g.ID] {
		return nil
	}
	seen[g.ID] = true

	var result []uuid.UUID
	for _, mid := range g.Members {
		if sub, isGroup := lookup(mid); isGroup {
			result = append(result, ExpandGroup(sub, lookup, seen)...)
		} else {
			result = append(result, mid)
		}
	}
	return result
}
